package memory

// Package memory provides the in-memory implementation used for development
// and tests. It keeps code paths easy to follow while the postgres and sqlite
// stores carry the same behavior against a real database.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

// Store is an in-memory implementation of every repository and writer the
// services use, guarded by an RWMutex for concurrent reads and writes.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]ledger.Account
	entries  map[uuid.UUID]*ledger.JournalEntry
	// sequences holds the next entry number per calendar year. Allocation
	// happens under the write lock, so two concurrent posts can never draw
	// the same number.
	sequences map[int]int64

	bills         map[uuid.UUID]*ledger.Bill
	invoices      map[uuid.UUID]*ledger.Invoice
	disbursements map[uuid.UUID]ledger.Disbursement
	payments      map[uuid.UUID]ledger.Payment
	adjustments   map[uuid.UUID]ledger.Adjustment

	budgets      map[uuid.UUID]ledger.Budget
	budgetOrder  []uuid.UUID
	budgetItems  map[uuid.UUID]ledger.BudgetItem
	liquidations map[uuid.UUID]ledger.BudgetLiquidation
	requirements map[uuid.UUID]ledger.LiquidationRequirement
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:      make(map[string]ledger.Account),
		entries:       make(map[uuid.UUID]*ledger.JournalEntry),
		sequences:     make(map[int]int64),
		bills:         make(map[uuid.UUID]*ledger.Bill),
		invoices:      make(map[uuid.UUID]*ledger.Invoice),
		disbursements: make(map[uuid.UUID]ledger.Disbursement),
		payments:      make(map[uuid.UUID]ledger.Payment),
		adjustments:   make(map[uuid.UUID]ledger.Adjustment),
		budgets:       make(map[uuid.UUID]ledger.Budget),
		budgetItems:   make(map[uuid.UUID]ledger.BudgetItem),
		liquidations:  make(map[uuid.UUID]ledger.BudgetLiquidation),
		requirements:  make(map[uuid.UUID]ledger.LiquidationRequirement),
	}
}

// SeedAccounts loads a chart of accounts, replacing codes that already exist.
func (s *Store) SeedAccounts(accounts []ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.accounts[a.Code] = a
	}
}

// AccountsByCodes implements journal.Repo.
func (s *Store) AccountsByCodes(_ context.Context, codes []string) (map[string]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ledger.Account, len(codes))
	for _, code := range codes {
		if acc, ok := s.accounts[code]; ok {
			out[code] = acc
		}
	}
	return out, nil
}

// ListAccounts returns the full chart sorted by code.
func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// AccountByCode returns one account.
func (s *Store) AccountByCode(_ context.Context, code string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[code]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return acc, nil
}

// CreateAccount adds an account; duplicate codes conflict.
func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Code]; ok {
		return ledger.Account{}, errs.ErrConflict
	}
	s.accounts[a.Code] = a
	return a, nil
}

// UpdateAccount replaces an existing account's mutable fields.
func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Code]; !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	s.accounts[a.Code] = a
	return a, nil
}

// nextNumberLocked allocates the next sequential entry number for the
// entry's calendar year. Caller must hold the write lock.
func (s *Store) nextNumberLocked(date time.Time) string {
	year := ledger.SequenceYear(date)
	s.sequences[year]++
	return ledger.FormatEntryNumber(year, s.sequences[year])
}

// CreateJournalEntry implements journal.Writer, allocating the entry number
// when the caller did not carry one.
func (s *Store) CreateJournalEntry(_ context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEntryLocked(entry), nil
}

func (s *Store) createEntryLocked(entry ledger.JournalEntry) ledger.JournalEntry {
	e := entry
	if e.Number == "" {
		e.Number = s.nextNumberLocked(e.Date)
	}
	e.Lines = append([]ledger.JournalLine(nil), entry.Lines...)
	s.entries[e.ID] = &e
	return e
}

// UpdateJournalEntry replaces an entry and its lines.
func (s *Store) UpdateJournalEntry(_ context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	e := entry
	e.Lines = append([]ledger.JournalLine(nil), entry.Lines...)
	s.entries[entry.ID] = &e
	return e, nil
}

// DeleteJournalEntry removes an entry with its lines.
func (s *Store) DeleteJournalEntry(_ context.Context, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.entries, entryID)
	return nil
}

// EntryByID implements journal.Repo.
func (s *Store) EntryByID(_ context.Context, entryID uuid.UUID) (ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	return *e, nil
}

// ListEntries returns entries matching the filter sorted by (date, number).
func (s *Store) ListEntries(_ context.Context, f journal.EntryFilter) ([]ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.JournalEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.DateFrom != nil && e.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && e.Date.After(*f.DateTo) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}
