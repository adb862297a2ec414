package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"sec_scraper/pkg/core/fee"
)

// StoredFiling is one persisted extraction: the record set of a
// (symbol, filing_date) pair and the run that wrote it.
type StoredFiling struct {
	Symbol     string        `json:"symbol"`
	FilingDate string        `json:"filing_date"`
	RunID      string        `json:"run_id"`
	CreatedAt  time.Time     `json:"created_at"`
	RecordSet  fee.RecordSet `json:"record_set"`
}

// RecordRepo stores extracted balance-sheet rows.
type RecordRepo struct {
	db DB
}

// NewRecordRepo creates a new repository instance.
func NewRecordRepo(db DB) *RecordRepo {
	return &RecordRepo{db: db}
}

var recordColumns = []string{
	"run_id", "symbol", "filing_date", "position", "label", "category",
	"section", "subsection", "path", "is_total", "axis", "amounts",
}

// Replace swaps every row of (symbol, filingDate) for rs inside one
// transaction. Re-running a filing therefore never duplicates rows.
func (r *RecordRepo) Replace(ctx context.Context, symbol, filingDate string, runID uuid.UUID, rs fee.RecordSet) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM balance_sheets WHERE symbol = $1 AND filing_date = $2`,
		symbol, filingDate); err != nil {
		return 0, fmt.Errorf("failed to clear previous rows: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"balance_sheets"},
		recordColumns,
		pgx.CopyFromRows(recordRows(symbol, filingDate, runID, rs)))
	if err != nil {
		return 0, fmt.Errorf("failed to insert rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return n, nil
}

// recordRows lays rs out in recordColumns order. The record's own symbol and
// filing date are overridden by the identity being written.
func recordRows(symbol, filingDate string, runID uuid.UUID, rs fee.RecordSet) [][]any {
	id := pgtype.UUID{Bytes: runID, Valid: true}
	axis := rs.Axis
	if axis == nil {
		axis = fee.DateAxis{}
	}

	rows := make([][]any, 0, len(rs.Records))
	for i, rec := range rs.Records {
		values := rec.Values
		if values == nil {
			values = map[string]float64{}
		}
		rows = append(rows, []any{
			id, symbol, filingDate, int32(i), rec.Label, rec.Category,
			rec.Section, rec.Subsection, rec.Path, rec.IsTotal, axis, values,
		})
	}
	return rows
}

const selectRecords = `
	SELECT run_id, symbol, filing_date, label, category, section, subsection,
	       path, is_total, axis, amounts, created_at
	FROM balance_sheets`

// Latest returns the most recent filing stored for symbol.
func (r *RecordRepo) Latest(ctx context.Context, symbol string) (*StoredFiling, error) {
	rows, err := r.db.Query(ctx, selectRecords+`
	WHERE symbol = $1
	  AND filing_date = (SELECT MAX(filing_date) FROM balance_sheets WHERE symbol = $1)
	ORDER BY position`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest filing: %w", err)
	}

	filings, err := collectFilings(rows)
	if err != nil {
		return nil, err
	}
	if len(filings) == 0 {
		return nil, fmt.Errorf("%w: balance sheet for %s", ErrNotFound, symbol)
	}
	return &filings[0], nil
}

// BySymbol returns every filing stored for symbol, newest first.
func (r *RecordRepo) BySymbol(ctx context.Context, symbol string) ([]StoredFiling, error) {
	rows, err := r.db.Query(ctx, selectRecords+`
	WHERE symbol = $1
	ORDER BY filing_date DESC, position`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	return collectFilings(rows)
}

// All returns every stored filing ordered by symbol, then filing date.
func (r *RecordRepo) All(ctx context.Context) ([]StoredFiling, error) {
	rows, err := r.db.Query(ctx, selectRecords+`
	ORDER BY symbol, filing_date, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	return collectFilings(rows)
}

type recordRow struct {
	runID     pgtype.UUID
	axis      fee.DateAxis
	record    fee.Record
	createdAt time.Time
}

// collectFilings groups consecutive rows sharing (symbol, filing_date).
func collectFilings(rows pgx.Rows) ([]StoredFiling, error) {
	scanned, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (recordRow, error) {
		var rr recordRow
		rec := &rr.record
		err := row.Scan(&rr.runID, &rec.Symbol, &rec.FilingDate, &rec.Label,
			&rec.Category, &rec.Section, &rec.Subsection, &rec.Path,
			&rec.IsTotal, &rr.axis, &rec.Values, &rr.createdAt)
		return rr, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return groupFilings(scanned), nil
}

func groupFilings(scanned []recordRow) []StoredFiling {
	var out []StoredFiling
	for _, rr := range scanned {
		n := len(out)
		if n == 0 || out[n-1].Symbol != rr.record.Symbol || out[n-1].FilingDate != rr.record.FilingDate {
			out = append(out, StoredFiling{
				Symbol:     rr.record.Symbol,
				FilingDate: rr.record.FilingDate,
				RunID:      uuid.UUID(rr.runID.Bytes).String(),
				CreatedAt:  rr.createdAt,
				RecordSet:  fee.RecordSet{Axis: rr.axis},
			})
			n++
		}
		out[n-1].RecordSet.Records = append(out[n-1].RecordSet.Records, rr.record)
	}
	return out
}
