package sqlite

// Package sqlite provides a single-file store for deployments that do not
// run postgres. The writer connection is capped at one so SQLite's locking
// model and the write-path transactions behave predictably; reads fan out
// over a small pool.

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	_ "modernc.org/sqlite"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/meta"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

// Store wraps a pair of SQLite connections, one serialized writer and a
// read pool.
type Store struct {
	writer *sql.DB
	reader *sql.DB
}

// Open opens (creating if needed) the database file and applies migrations.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	s := &Store{writer: writer, reader: reader}
	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes both connections.
func (s *Store) Close() error {
	err1 := s.writer.Close()
	err2 := s.reader.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Ready verifies the database file is reachable.
func (s *Store) Ready(ctx context.Context) error { return s.reader.PingContext(ctx) }

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SeedAccounts upserts the chart of accounts.
func (s *Store) SeedAccounts(ctx context.Context, accounts []ledger.Account) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, a := range accounts {
		md, _ := a.Metadata.MarshalJSON()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (code, name, type, category, cash, metadata, system, active)
			VALUES (?,?,?,?,?,?,?,?)
			ON CONFLICT(code) DO UPDATE
			SET name=excluded.name, type=excluded.type, category=excluded.category,
			    cash=excluded.cash, system=excluded.system, active=excluded.active
		`, a.Code, a.Name, string(a.Type), a.Category, boolToInt(a.Cash), string(md), boolToInt(a.System), boolToInt(a.Active)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (ledger.Account, error) {
	var a ledger.Account
	var md string
	var cash, system, active int
	if err := row.Scan(&a.Code, &a.Name, &a.Type, &a.Category, &cash, &md, &system, &active); err != nil {
		return ledger.Account{}, err
	}
	a.Cash, a.System, a.Active = cash == 1, system == 1, active == 1
	if md != "" {
		var m meta.Metadata
		if err := m.UnmarshalJSON([]byte(md)); err == nil {
			a.Metadata = m
		}
	}
	return a, nil
}

const accountColumns = `code, name, type, category, cash, metadata, system, active`

// AccountsByCodes implements journal.Repo.
func (s *Store) AccountsByCodes(ctx context.Context, codes []string) (map[string]ledger.Account, error) {
	out := make(map[string]ledger.Account, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(codes)), ",")
	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = c
	}
	rows, err := s.reader.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE code IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.Code] = a
	}
	return out, rows.Err()
}

// ListAccounts returns the full chart ordered by code.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountByCode fetches one account.
func (s *Store) AccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	a, err := scanAccount(s.reader.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE code = ?
	`, code))
	if err == sql.ErrNoRows {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// CreateAccount inserts an account; duplicate codes conflict.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	md, _ := a.Metadata.MarshalJSON()
	res, err := s.writer.ExecContext(ctx, `
		INSERT OR IGNORE INTO accounts (code, name, type, category, cash, metadata, system, active)
		VALUES (?,?,?,?,?,?,?,?)
	`, a.Code, a.Name, string(a.Type), a.Category, boolToInt(a.Cash), string(md), boolToInt(a.System), boolToInt(a.Active))
	if err != nil {
		return ledger.Account{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Account{}, errs.ErrConflict
	}
	return a, nil
}

// UpdateAccount replaces an account's mutable fields.
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	md, _ := a.Metadata.MarshalJSON()
	res, err := s.writer.ExecContext(ctx, `
		UPDATE accounts SET name=?, category=?, metadata=?, active=? WHERE code=?
	`, a.Name, a.Category, string(md), boolToInt(a.Active), a.Code)
	if err != nil {
		return ledger.Account{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// --- Entries ---

// nextNumber allocates the next entry number for the calendar year inside
// the given transaction. The writer connection serializes all writes, so the
// read-increment pair cannot interleave with another allocation.
func nextNumber(ctx context.Context, tx *sql.Tx, date time.Time) (string, error) {
	year := ledger.SequenceYear(date)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entry_sequences (year, last_seq) VALUES (?, 0)
		ON CONFLICT(year) DO NOTHING
	`, year); err != nil {
		return "", err
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, `
		UPDATE entry_sequences SET last_seq = last_seq + 1 WHERE year = ? RETURNING last_seq
	`, year).Scan(&seq); err != nil {
		return "", err
	}
	return ledger.FormatEntryNumber(year, seq), nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *ledger.JournalEntry) error {
	if e.Number == "" {
		num, err := nextNumber(ctx, tx, e.Date)
		if err != nil {
			return err
		}
		e.Number = num
	}
	md, _ := e.Metadata.MarshalJSON()
	var refType, refID any
	if e.Reference != nil {
		refType, refID = string(e.Reference.Type), e.Reference.ID.String()
	}
	var postedAt any
	if e.PostedAt != nil {
		postedAt = fmtTime(*e.PostedAt)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries (id, number, date, currency, description, status, reference_type, reference_id, metadata, created_by, posted_by, posted_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`, e.ID.String(), e.Number, fmtTime(e.Date), strings.ToUpper(e.Currency), e.Description, string(e.Status),
		refType, refID, string(md), e.CreatedBy, e.PostedBy, postedAt); err != nil {
		return err
	}
	for _, ln := range e.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entry_lines (id, entry_id, account_code, side, amount_minor, description)
			VALUES (?,?,?,?,?,?)
		`, ln.ID.String(), e.ID.String(), ln.AccountCode, string(ln.Side), ln.MinorUnits(), ln.Description); err != nil {
			return err
		}
	}
	return nil
}

// CreateJournalEntry implements journal.Writer.
func (s *Store) CreateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer tx.Rollback()
	if err := insertEntry(ctx, tx, &entry); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry, nil
}

// UpdateJournalEntry replaces header fields and lines.
func (s *Store) UpdateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer tx.Rollback()
	md, _ := entry.Metadata.MarshalJSON()
	var postedAt any
	if entry.PostedAt != nil {
		postedAt = fmtTime(*entry.PostedAt)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE entries SET date=?, currency=?, description=?, status=?, metadata=?, posted_by=?, posted_at=?
		WHERE id=?
	`, fmtTime(entry.Date), strings.ToUpper(entry.Currency), entry.Description, string(entry.Status),
		string(md), entry.PostedBy, postedAt, entry.ID.String())
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_lines WHERE entry_id=?`, entry.ID.String()); err != nil {
		return ledger.JournalEntry{}, err
	}
	for _, ln := range entry.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entry_lines (id, entry_id, account_code, side, amount_minor, description)
			VALUES (?,?,?,?,?,?)
		`, ln.ID.String(), entry.ID.String(), ln.AccountCode, string(ln.Side), ln.MinorUnits(), ln.Description); err != nil {
			return ledger.JournalEntry{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry, nil
}

// DeleteJournalEntry removes an entry; lines cascade.
func (s *Store) DeleteJournalEntry(ctx context.Context, entryID uuid.UUID) error {
	res, err := s.writer.ExecContext(ctx, `DELETE FROM entries WHERE id=?`, entryID.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanEntryRow(row rowScanner) (ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var id, date string
	var refType, refID, postedBy, postedAt sql.NullString
	var md string
	if err := row.Scan(&id, &e.Number, &date, &e.Currency, &e.Description, &e.Status,
		&refType, &refID, &md, &e.CreatedBy, &postedBy, &postedAt); err != nil {
		return ledger.JournalEntry{}, err
	}
	e.ID, _ = uuid.Parse(id)
	e.Date = parseTime(date)
	if refType.Valid && refID.Valid {
		rid, err := uuid.Parse(refID.String)
		if err == nil {
			e.Reference = &ledger.DocRef{Type: ledger.DocumentType(refType.String), ID: rid}
		}
	}
	if postedBy.Valid {
		e.PostedBy = postedBy.String
	}
	if postedAt.Valid {
		t := parseTime(postedAt.String)
		e.PostedAt = &t
	}
	if md != "" {
		var m meta.Metadata
		if err := m.UnmarshalJSON([]byte(md)); err == nil {
			e.Metadata = m
		}
	}
	return e, nil
}

const entryColumns = `id, number, date, currency, description, status, reference_type, reference_id, metadata, created_by, posted_by, posted_at`

func (s *Store) loadLines(ctx context.Context, e *ledger.JournalEntry) error {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT id, account_code, side, amount_minor, description FROM entry_lines WHERE entry_id=? ORDER BY id
	`, e.ID.String())
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, code, side, desc string
		var minor int64
		if err := rows.Scan(&id, &code, &side, &minor, &desc); err != nil {
			return err
		}
		lid, _ := uuid.Parse(id)
		amt, _ := money.NewAmountFromMinorUnits(e.Currency, minor)
		e.Lines = append(e.Lines, ledger.JournalLine{
			ID: lid, EntryID: e.ID, AccountCode: code, Side: ledger.Side(side), Amount: amt, Description: desc,
		})
	}
	return rows.Err()
}

// EntryByID implements journal.Repo with lines populated.
func (s *Store) EntryByID(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error) {
	e, err := scanEntryRow(s.reader.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE id=?
	`, entryID.String()))
	if err == sql.ErrNoRows {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := s.loadLines(ctx, &e); err != nil {
		return ledger.JournalEntry{}, err
	}
	return e, nil
}

// ListEntries returns entries matching the filter with lines populated.
func (s *Store) ListEntries(ctx context.Context, f journal.EntryFilter) ([]ledger.JournalEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM entries WHERE 1=1`
	var args []any
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.DateFrom != nil {
		q += ` AND date >= ?`
		args = append(args, fmtTime(*f.DateFrom))
	}
	if f.DateTo != nil {
		q += ` AND date <= ?`
		args = append(args, fmtTime(*f.DateTo))
	}
	q += ` ORDER BY date, number`
	rows, err := s.reader.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
