package fee

import (
	"log/slog"
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATION ENGINE - Running sums keyed by hierarchy, synthetic totals
// =============================================================================

// accumulator holds one running sum per axis position.
type accumulator struct {
	state        State
	sums         []decimal.Decimal
	contributors int
}

func newAccumulator(s State, width int) *accumulator {
	sums := make([]decimal.Decimal, width)
	for i := range sums {
		sums[i] = decimal.Zero
	}
	return &accumulator{state: s, sums: sums}
}

func (a *accumulator) add(values []*float64) {
	for i, v := range values {
		if v == nil || i >= len(a.sums) {
			continue
		}
		a.sums[i] = a.sums[i].Add(decimal.NewFromFloat(*v))
	}
	a.contributors++
}

// values converts the sums to floats. A sum outside the float64 range is
// dropped and logged; it never reaches a record.
func (a *accumulator) values(axis DateAxis, label string, log *slog.Logger) map[string]float64 {
	out := make(map[string]float64, len(axis))
	for i, date := range axis {
		f := a.sums[i].InexactFloat64()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			log.Warn("total dropped", "error", ErrValueCleaning, "label", label, "date", date, "sum", a.sums[i].String())
			continue
		}
		out[date] = f
	}
	return out
}

// Aggregator accumulates leaf values per (category, section, subsection) and
// per category. It lives for one parse.
type Aggregator struct {
	axis        DateAxis
	log         *slog.Logger
	subsections []*accumulator
	subIndex    map[State]int
	categories  []*accumulator
	catIndex    map[string]int
}

// NewAggregator creates an aggregator over axis. log may be nil.
func NewAggregator(axis DateAxis, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		axis:     axis,
		log:      log,
		subIndex: make(map[State]int),
		catIndex: make(map[string]int),
	}
}

// Register creates a zero accumulator for the subsection of s, if s has one
// and it is not already known.
func (a *Aggregator) Register(s State) {
	if s.Subsection == "" {
		return
	}
	if _, ok := a.subIndex[s]; ok {
		return
	}
	a.subIndex[s] = len(a.subsections)
	a.subsections = append(a.subsections, newAccumulator(s, len(a.axis)))
}

// Add folds one leaf's values into the subsection and category sums of the
// state it was scanned under. The two sums are independent.
func (a *Aggregator) Add(s State, values []*float64) {
	if s.Subsection != "" {
		a.Register(s)
		a.subsections[a.subIndex[s]].add(values)
	}
	if s.Category != "" {
		idx, ok := a.catIndex[s.Category]
		if !ok {
			idx = len(a.categories)
			a.catIndex[s.Category] = idx
			a.categories = append(a.categories, newAccumulator(State{Category: s.Category}, len(a.axis)))
		}
		a.categories[idx].add(values)
	}
}

// SubsectionTotals returns one synthetic total per subsection that received
// at least one leaf, in registration order. Positions without a contribution
// are 0, not null; positions that overflow float64 are omitted.
func (a *Aggregator) SubsectionTotals() []Record {
	var out []Record
	for _, acc := range a.subsections {
		if acc.contributors == 0 {
			continue
		}
		label := "Total " + acc.state.Subsection
		out = append(out, Record{
			Label:      label,
			Values:     acc.values(a.axis, label, a.log),
			Category:   acc.state.Category,
			Section:    acc.state.Section,
			Subsection: acc.state.Subsection,
			Path:       acc.state.Path(),
			IsTotal:    true,
		})
	}
	return out
}

// CategoryTotals returns one synthetic total per category, in first-seen order.
func (a *Aggregator) CategoryTotals() []Record {
	var out []Record
	for _, acc := range a.categories {
		if acc.contributors == 0 {
			continue
		}
		label := "Total " + acc.state.Category
		out = append(out, Record{
			Label:    label,
			Values:   acc.values(a.axis, label, a.log),
			Category: acc.state.Category,
			Path:     acc.state.Category,
			IsTotal:  true,
		})
	}
	return out
}
