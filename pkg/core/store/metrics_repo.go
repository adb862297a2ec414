package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sec_scraper/pkg/core/metrics"
)

// MetricsRepo stores derived liquidity figures.
type MetricsRepo struct {
	db DB
}

// NewMetricsRepo creates a new repository instance.
func NewMetricsRepo(db DB) *MetricsRepo {
	return &MetricsRepo{db: db}
}

// Upsert writes m, replacing any row with the same (symbol, filing_date, as_of).
func (r *MetricsRepo) Upsert(ctx context.Context, m metrics.Metrics) error {
	query := `
		INSERT INTO balance_sheet_metrics (
			symbol, filing_date, as_of, current_assets, current_liabilities,
			total_assets, total_liabilities, total_liabilities_and_equity,
			working_capital, current_ratio, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (symbol, filing_date, as_of)
		DO UPDATE SET
			current_assets = EXCLUDED.current_assets,
			current_liabilities = EXCLUDED.current_liabilities,
			total_assets = EXCLUDED.total_assets,
			total_liabilities = EXCLUDED.total_liabilities,
			total_liabilities_and_equity = EXCLUDED.total_liabilities_and_equity,
			working_capital = EXCLUDED.working_capital,
			current_ratio = EXCLUDED.current_ratio,
			updated_at = EXCLUDED.updated_at;
	`
	_, err := r.db.Exec(ctx, query,
		m.Symbol, m.FilingDate, m.AsOf, m.CurrentAssets, m.CurrentLiabilities,
		m.TotalAssets, m.TotalLiabilities, m.TotalLiabilitiesAndEquity,
		m.WorkingCapital, m.CurrentRatio)
	if err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}
	return nil
}

// Get returns the metrics of one filing, one entry per balance-sheet date,
// newest date first.
func (r *MetricsRepo) Get(ctx context.Context, symbol, filingDate string) ([]metrics.Metrics, error) {
	rows, err := r.db.Query(ctx, `
		SELECT symbol, filing_date, as_of, current_assets, current_liabilities,
		       total_assets, total_liabilities, total_liabilities_and_equity,
		       working_capital, current_ratio
		FROM balance_sheet_metrics
		WHERE symbol = $1 AND filing_date = $2
		ORDER BY as_of DESC`, symbol, filingDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (metrics.Metrics, error) {
		var m metrics.Metrics
		err := row.Scan(&m.Symbol, &m.FilingDate, &m.AsOf, &m.CurrentAssets,
			&m.CurrentLiabilities, &m.TotalAssets, &m.TotalLiabilities,
			&m.TotalLiabilitiesAndEquity, &m.WorkingCapital, &m.CurrentRatio)
		return m, err
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to scan metrics: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: metrics for %s %s", ErrNotFound, symbol, filingDate)
	}
	return out, nil
}
