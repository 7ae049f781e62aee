package sqlite

import (
	"context"
	"fmt"
)

// migrate applies schema migrations tracked in schema_version.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.writer.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err := s.writer.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_version
	`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if current < 1 {
		if err := s.apply(ctx, 1, migrateV1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, version int, stmts []string) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration v%d: %w", version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

var migrateV1 = []string{
	`CREATE TABLE accounts (
		code     TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		type     TEXT NOT NULL CHECK (type IN ('asset','liability','equity','revenue','expense')),
		category TEXT NOT NULL DEFAULT '',
		cash     INTEGER NOT NULL DEFAULT 0,
		metadata TEXT NOT NULL DEFAULT '{}',
		system   INTEGER NOT NULL DEFAULT 0,
		active   INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE entries (
		id             TEXT PRIMARY KEY,
		number         TEXT NOT NULL UNIQUE,
		date           TEXT NOT NULL,
		currency       TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL CHECK (status IN ('draft','approved','posted')),
		reference_type TEXT,
		reference_id   TEXT,
		metadata       TEXT NOT NULL DEFAULT '{}',
		created_by     TEXT NOT NULL DEFAULT '',
		posted_by      TEXT,
		posted_at      TEXT
	)`,
	`CREATE INDEX idx_entries_status_date ON entries (status, date)`,
	`CREATE INDEX idx_entries_reference ON entries (reference_type, reference_id)`,
	`CREATE TABLE entry_lines (
		id           TEXT PRIMARY KEY,
		entry_id     TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		account_code TEXT NOT NULL REFERENCES accounts(code),
		side         TEXT NOT NULL CHECK (side IN ('debit','credit')),
		amount_minor INTEGER NOT NULL CHECK (amount_minor > 0),
		description  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX idx_entry_lines_entry ON entry_lines (entry_id)`,
	`CREATE INDEX idx_entry_lines_account ON entry_lines (account_code)`,
	`CREATE TABLE entry_sequences (
		year     INTEGER PRIMARY KEY,
		last_seq INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE bills (
		id        TEXT PRIMARY KEY,
		number    TEXT NOT NULL UNIQUE,
		vendor_id TEXT NOT NULL,
		bill_date TEXT NOT NULL,
		due_date  TEXT NOT NULL,
		subtotal  INTEGER NOT NULL,
		tax       INTEGER NOT NULL DEFAULT 0,
		total     INTEGER NOT NULL,
		balance   INTEGER NOT NULL,
		status    TEXT NOT NULL
	)`,
	`CREATE TABLE bill_items (
		id           TEXT PRIMARY KEY,
		bill_id      TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		account_code TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		line_total   INTEGER NOT NULL
	)`,
	`CREATE TABLE invoices (
		id           TEXT PRIMARY KEY,
		number       TEXT NOT NULL UNIQUE,
		customer_id  TEXT NOT NULL,
		invoice_date TEXT NOT NULL,
		due_date     TEXT NOT NULL,
		subtotal     INTEGER NOT NULL,
		tax          INTEGER NOT NULL DEFAULT 0,
		total        INTEGER NOT NULL,
		balance      INTEGER NOT NULL,
		status       TEXT NOT NULL
	)`,
	`CREATE TABLE invoice_items (
		id           TEXT PRIMARY KEY,
		invoice_id   TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		account_code TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		line_total   INTEGER NOT NULL
	)`,
	`CREATE TABLE disbursements (
		id                TEXT PRIMARY KEY,
		number            TEXT NOT NULL UNIQUE,
		payee             TEXT NOT NULL,
		purpose           TEXT NOT NULL DEFAULT '',
		method            TEXT NOT NULL,
		disbursement_date TEXT NOT NULL,
		amount            INTEGER NOT NULL,
		status            TEXT NOT NULL
	)`,
	`CREATE TABLE payments (
		id           TEXT PRIMARY KEY,
		number       TEXT NOT NULL UNIQUE,
		invoice_id   TEXT,
		bill_id      TEXT,
		method       TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		amount       INTEGER NOT NULL,
		status       TEXT NOT NULL
	)`,
	`CREATE TABLE adjustments (
		id              TEXT PRIMARY KEY,
		number          TEXT NOT NULL UNIQUE,
		type            TEXT NOT NULL CHECK (type IN ('credit_memo','debit_memo','write_off','discount')),
		direction       TEXT NOT NULL CHECK (direction IN ('payable','receivable')),
		bill_id         TEXT,
		invoice_id      TEXT,
		adjustment_date TEXT NOT NULL,
		amount          INTEGER NOT NULL,
		reason          TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL
	)`,
	`CREATE TABLE budgets (
		id             TEXT PRIMARY KEY,
		department_id  TEXT NOT NULL,
		name           TEXT NOT NULL DEFAULT '',
		fiscal_year    INTEGER NOT NULL,
		total_budgeted INTEGER NOT NULL DEFAULT 0,
		status         TEXT NOT NULL,
		created_at     TEXT NOT NULL
	)`,
	`CREATE INDEX idx_budgets_department ON budgets (department_id, created_at)`,
	`CREATE TABLE budget_items (
		id           TEXT PRIMARY KEY,
		budget_id    TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
		account_code TEXT NOT NULL,
		category     TEXT NOT NULL DEFAULT '',
		budgeted     INTEGER NOT NULL DEFAULT 0,
		actual       INTEGER NOT NULL DEFAULT 0,
		variance     INTEGER NOT NULL DEFAULT 0,
		hard_cap     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX idx_budget_items_account ON budget_items (budget_id, account_code)`,
	`CREATE TABLE budget_liquidations (
		id        TEXT PRIMARY KEY,
		budget_id TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
		amount    INTEGER NOT NULL,
		status    TEXT NOT NULL CHECK (status IN ('pending','approved','rejected')),
		notes     TEXT NOT NULL DEFAULT '',
		date      TEXT NOT NULL
	)`,
	`CREATE TABLE liquidation_requirements (
		department_id  TEXT PRIMARY KEY,
		required       INTEGER NOT NULL DEFAULT 1,
		min_percentage REAL NOT NULL DEFAULT 100
	)`,
}
