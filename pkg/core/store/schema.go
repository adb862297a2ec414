package store

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. One row per emitted record;
// (symbol, filing_date) identifies a filing and is replaced as a unit.
const schema = `
CREATE TABLE IF NOT EXISTS balance_sheets (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID        NOT NULL,
	symbol      TEXT        NOT NULL,
	filing_date TEXT        NOT NULL,
	position    INTEGER     NOT NULL,
	label       TEXT        NOT NULL,
	category    TEXT        NOT NULL,
	section     TEXT        NOT NULL,
	subsection  TEXT        NOT NULL,
	path        TEXT        NOT NULL,
	is_total    BOOLEAN     NOT NULL,
	axis        JSONB       NOT NULL,
	amounts     JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS balance_sheets_filing_idx
	ON balance_sheets (symbol, filing_date, position);

CREATE TABLE IF NOT EXISTS balance_sheet_metrics (
	symbol                       TEXT             NOT NULL,
	filing_date                  TEXT             NOT NULL,
	as_of                        TEXT             NOT NULL,
	current_assets               DOUBLE PRECISION NOT NULL,
	current_liabilities          DOUBLE PRECISION NOT NULL,
	total_assets                 DOUBLE PRECISION NOT NULL,
	total_liabilities            DOUBLE PRECISION NOT NULL,
	total_liabilities_and_equity DOUBLE PRECISION NOT NULL,
	working_capital              DOUBLE PRECISION,
	current_ratio                DOUBLE PRECISION,
	updated_at                   TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
	PRIMARY KEY (symbol, filing_date, as_of)
);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
