package postgres

// Package postgres provides a pgx-backed storage implementation satisfying
// the repository and writer interfaces used by the services.
//
// Migrations that create the expected schema live under db/migrations. This
// package maps between the domain entities and SQL rows and runs the
// necessary statements and transactions; entry-number allocation rides an
// upserted per-year counter row so concurrent posts can never collide.

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/meta"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedAccounts upserts the chart of accounts. Existing codes keep their
// activity history; only name, category, and flags refresh.
func (s *Store) SeedAccounts(ctx context.Context, accounts []ledger.Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, a := range accounts {
		md, _ := a.Metadata.MarshalJSON()
		if _, err := tx.Exec(ctx, `
			insert into accounts (code, name, type, category, cash, metadata, system, active)
			values ($1,$2,$3,$4,$5,$6,$7,$8)
			on conflict (code) do update
			set name=excluded.name, type=excluded.type, category=excluded.category,
			    cash=excluded.cash, system=excluded.system, active=excluded.active
		`, a.Code, a.Name, a.Type, a.Category, a.Cash, md, a.System, a.Active); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const accountColumns = `code, name, type, category, cash, metadata, system, active`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var mdBytes []byte
	if err := row.Scan(&a.Code, &a.Name, &a.Type, &a.Category, &a.Cash, &mdBytes, &a.System, &a.Active); err != nil {
		return ledger.Account{}, err
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			a.Metadata = m
		}
	}
	return a, nil
}

// AccountsByCodes implements journal.Repo.
func (s *Store) AccountsByCodes(ctx context.Context, codes []string) (map[string]ledger.Account, error) {
	if len(codes) == 0 {
		return map[string]ledger.Account{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		select `+accountColumns+` from accounts where code = any($1)
	`, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]ledger.Account)
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
	rows, err := s.pool.Query(ctx, `
		select `+accountColumns+` from accounts order by code
	`)
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

// AccountByCode fetches a single account.
func (s *Store) AccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountColumns+` from accounts where code = $1
	`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// CreateAccount inserts an account; duplicate codes conflict.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	md, _ := a.Metadata.MarshalJSON()
	ct, err := s.pool.Exec(ctx, `
		insert into accounts (code, name, type, category, cash, metadata, system, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (code) do nothing
	`, a.Code, a.Name, a.Type, a.Category, a.Cash, md, a.System, a.Active)
	if err != nil {
		return ledger.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrConflict
	}
	return a, nil
}

// UpdateAccount replaces an account's mutable fields.
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	md, _ := a.Metadata.MarshalJSON()
	ct, err := s.pool.Exec(ctx, `
		update accounts set name=$1, category=$2, metadata=$3, active=$4 where code=$5
	`, a.Name, a.Category, md, a.Active, a.Code)
	if err != nil {
		return ledger.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// --- Entry reads ---

const entryColumns = `id, number, date, currency, description, status, reference_type, reference_id, metadata, created_by, posted_by, posted_at`

func scanEntry(row pgx.Row) (ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var refType *string
	var refID *uuid.UUID
	var mdBytes []byte
	var postedBy *string
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Currency, &e.Description, &e.Status,
		&refType, &refID, &mdBytes, &e.CreatedBy, &postedBy, &e.PostedAt)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if refType != nil && refID != nil {
		e.Reference = &ledger.DocRef{Type: ledger.DocumentType(*refType), ID: *refID}
	}
	if postedBy != nil {
		e.PostedBy = *postedBy
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			e.Metadata = m
		}
	}
	return e, nil
}

func (s *Store) loadLines(ctx context.Context, entries []ledger.JournalEntry) ([]ledger.JournalEntry, error) {
	if len(entries) == 0 {
		return entries, nil
	}
	ids := make([]uuid.UUID, 0, len(entries))
	idx := make(map[uuid.UUID]*ledger.JournalEntry, len(entries))
	for i := range entries {
		ids = append(ids, entries[i].ID)
		idx[entries[i].ID] = &entries[i]
	}
	rows, err := s.pool.Query(ctx, `
		select id, entry_id, account_code, side, amount_minor, description
		from entry_lines
		where entry_id = any($1)
		order by id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, entryID uuid.UUID
		var code, side, desc string
		var minor int64
		if err := rows.Scan(&id, &entryID, &code, &side, &minor, &desc); err != nil {
			return nil, err
		}
		e := idx[entryID]
		if e == nil {
			continue
		}
		amt, _ := money.NewAmountFromMinorUnits(e.Currency, minor)
		e.Lines = append(e.Lines, ledger.JournalLine{
			ID: id, EntryID: entryID, AccountCode: code, Side: ledger.Side(side), Amount: amt, Description: desc,
		})
	}
	return entries, rows.Err()
}

// EntryByID implements journal.Repo with lines populated.
func (s *Store) EntryByID(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, `
		select `+entryColumns+` from entries where id = $1
	`, entryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	out, err := s.loadLines(ctx, []ledger.JournalEntry{e})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	return out[0], nil
}

// ListEntries returns entries matching the filter with lines populated.
func (s *Store) ListEntries(ctx context.Context, f journal.EntryFilter) ([]ledger.JournalEntry, error) {
	q := `select ` + entryColumns + ` from entries where 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		q += ` and status = $1`
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		q += ` and date >= $` + itoa(len(args))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		q += ` and date <= $` + itoa(len(args))
	}
	q += ` order by date asc, number asc`
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]ledger.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.loadLines(ctx, entries)
}

func itoa(n int) string { return strconv.Itoa(n) }

// --- Entry writes ---

// nextNumber allocates the next entry number for the entry's calendar year
// inside the given transaction. The upsert increments the counter row under
// its row lock, so two concurrent posts serialize on the year.
func nextNumber(ctx context.Context, tx pgx.Tx, date time.Time) (string, error) {
	year := ledger.SequenceYear(date)
	var seq int64
	err := tx.QueryRow(ctx, `
		insert into entry_sequences (year, last_seq) values ($1, 1)
		on conflict (year) do update set last_seq = entry_sequences.last_seq + 1
		returning last_seq
	`, year).Scan(&seq)
	if err != nil {
		return "", err
	}
	return ledger.FormatEntryNumber(year, seq), nil
}

// createEntry inserts the entry header and its lines within the provided
// transaction, allocating the number when absent.
func createEntry(ctx context.Context, tx pgx.Tx, e *ledger.JournalEntry) error {
	if e.Number == "" {
		num, err := nextNumber(ctx, tx, e.Date)
		if err != nil {
			return err
		}
		e.Number = num
	}
	md, _ := e.Metadata.MarshalJSON()
	var refType *string
	var refID *uuid.UUID
	if e.Reference != nil {
		t := string(e.Reference.Type)
		refType, refID = &t, &e.Reference.ID
	}
	if _, err := tx.Exec(ctx, `
		insert into entries (id, number, date, currency, description, status, reference_type, reference_id, metadata, created_by, posted_by, posted_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, e.ID, e.Number, e.Date, strings.ToUpper(e.Currency), e.Description, e.Status,
		refType, refID, md, e.CreatedBy, nullable(e.PostedBy), e.PostedAt); err != nil {
		return err
	}
	for _, ln := range e.Lines {
		if _, err := tx.Exec(ctx, `
			insert into entry_lines (id, entry_id, account_code, side, amount_minor, description)
			values ($1,$2,$3,$4,$5,$6)
		`, ln.ID, e.ID, ln.AccountCode, ln.Side, ln.MinorUnits(), ln.Description); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateJournalEntry implements journal.Writer: header, lines, and the
// sequence increment commit together.
func (s *Store) CreateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := createEntry(ctx, tx, &entry); err != nil {
		_ = tx.Rollback(ctx)
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry, nil
}

// UpdateJournalEntry replaces the header fields and lines of an entry.
func (s *Store) UpdateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	md, _ := entry.Metadata.MarshalJSON()
	ct, err := tx.Exec(ctx, `
		update entries
		set date=$1, currency=$2, description=$3, status=$4, metadata=$5, posted_by=$6, posted_at=$7
		where id=$8
	`, entry.Date, strings.ToUpper(entry.Currency), entry.Description, entry.Status, md,
		nullable(entry.PostedBy), entry.PostedAt, entry.ID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `delete from entry_lines where entry_id=$1`, entry.ID); err != nil {
		return ledger.JournalEntry{}, err
	}
	for _, ln := range entry.Lines {
		if _, err := tx.Exec(ctx, `
			insert into entry_lines (id, entry_id, account_code, side, amount_minor, description)
			values ($1,$2,$3,$4,$5,$6)
		`, ln.ID, entry.ID, ln.AccountCode, ln.Side, ln.MinorUnits(), ln.Description); err != nil {
			return ledger.JournalEntry{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry, nil
}

// DeleteJournalEntry removes an entry; lines cascade.
func (s *Store) DeleteJournalEntry(ctx context.Context, entryID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from entries where id=$1`, entryID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
