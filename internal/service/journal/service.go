package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/magnolia-hms/finance/internal/audit"
	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	AccountsByCodes(ctx context.Context, codes []string) (map[string]ledger.Account, error)
	EntryByID(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error)
	ListEntries(ctx context.Context, f EntryFilter) ([]ledger.JournalEntry, error)
}

// Writer defines write operations needed by the service. CreateJournalEntry
// allocates the entry number and persists header plus lines in one
// transaction; a partially written entry must never be observable.
type Writer interface {
	CreateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
	UpdateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, entryID uuid.UUID) error
}

// EntryFilter narrows ListEntries.
type EntryFilter struct {
	Status   ledger.EntryStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// LineInput is one requested journal line. Exactly one side, amount > 0.
type LineInput struct {
	AccountCode string
	Side        ledger.Side
	AmountMinor int64
	Description string
}

// EntryInput is a request to record a journal entry.
type EntryInput struct {
	Date        time.Time
	Currency    string
	Description string
	// Status defaults to draft; translators post directly.
	Status    ledger.EntryStatus
	Reference *ledger.DocRef
	CreatedBy string
	Lines     []LineInput
}

// Service is the journal engine: it creates, validates, mutates, and
// transitions balanced journal entries.
type Service interface {
	Validate(ctx context.Context, in EntryInput) error
	CreateEntry(ctx context.Context, in EntryInput) (ledger.JournalEntry, error)
	UpdateDraftEntry(ctx context.Context, entryID uuid.UUID, in EntryInput) (ledger.JournalEntry, error)
	Transition(ctx context.Context, entryID uuid.UUID, to ledger.EntryStatus, actor string) (ledger.JournalEntry, error)
	DeleteEntry(ctx context.Context, entryID uuid.UUID, actor string) error
	Entry(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error)
	ListEntries(ctx context.Context, f EntryFilter) ([]ledger.JournalEntry, error)
}

type service struct {
	repo    Repo
	writer  Writer
	auditor audit.Recorder
}

// New constructs the journal engine. A nil auditor disables audit output.
func New(repo Repo, writer Writer, auditor audit.Recorder) Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &service{repo: repo, writer: writer, auditor: auditor}
}

// Validate checks the double-entry invariants before any write: a known
// currency code, at least two lines, one positive side per line, debits equal
// credits within tolerance, and every account code active in the chart.
func (s *service) Validate(ctx context.Context, in EntryInput) error {
	if in.Currency == "" {
		return fmt.Errorf("%w: currency is required", errs.ErrValidation)
	}
	if _, err := money.ParseCurr(in.Currency); err != nil {
		return fmt.Errorf("%w: unknown currency %q", errs.ErrValidation, in.Currency)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", errs.ErrValidation, in.Status)
	}
	if len(in.Lines) < 2 {
		return fmt.Errorf("%w: at least 2 lines", errs.ErrTooFewLines)
	}
	codes := make([]string, 0, len(in.Lines))
	var sumDebits, sumCredits int64
	for i, ln := range in.Lines {
		if ln.AccountCode == "" {
			return fmt.Errorf("%w: line[%d]: account_code required", errs.ErrValidation, i)
		}
		if ln.AmountMinor <= 0 {
			return fmt.Errorf("%w: line[%d]: amount must be > 0", errs.ErrInvalidAmount, i)
		}
		switch ln.Side {
		case ledger.SideDebit:
			sumDebits += ln.AmountMinor
		case ledger.SideCredit:
			sumCredits += ln.AmountMinor
		default:
			return fmt.Errorf("%w: line[%d]: side must be debit or credit", errs.ErrValidation, i)
		}
		codes = append(codes, ln.AccountCode)
	}
	if diff := sumDebits - sumCredits; diff > ledger.BalanceTolerance || diff < -ledger.BalanceTolerance {
		return fmt.Errorf("%w: sum(debits)=%d sum(credits)=%d", errs.ErrUnbalancedEntry, sumDebits, sumCredits)
	}

	accounts, err := s.repo.AccountsByCodes(ctx, codes)
	if err != nil {
		return err
	}
	for i, ln := range in.Lines {
		acc, ok := accounts[ln.AccountCode]
		if !ok {
			return fmt.Errorf("%w: line[%d]: account %s not in chart", errs.ErrMissingAccount, i, ln.AccountCode)
		}
		if !acc.Active {
			return fmt.Errorf("%w: line[%d]: account %s is inactive", errs.ErrMissingAccount, i, ln.AccountCode)
		}
	}
	return nil
}

// CreateEntry validates and persists an entry atomically. The writer
// allocates the sequential entry number inside the same transaction.
func (s *service) CreateEntry(ctx context.Context, in EntryInput) (ledger.JournalEntry, error) {
	if err := s.Validate(ctx, in); err != nil {
		return ledger.JournalEntry{}, err
	}
	entry := BuildEntry(in)
	saved, err := s.writer.CreateJournalEntry(ctx, entry)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: in.CreatedBy, Action: "journal.create",
		EntityType: "journal_entry", EntityID: saved.ID.String(), New: entrySnapshot(saved),
	})
	return saved, nil
}

// UpdateDraftEntry replaces the header fields and lines of a draft entry and
// recomputes totals. Approved and posted entries are immutable.
func (s *service) UpdateDraftEntry(ctx context.Context, entryID uuid.UUID, in EntryInput) (ledger.JournalEntry, error) {
	current, err := s.repo.EntryByID(ctx, entryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if !current.Status.Mutable() {
		return ledger.JournalEntry{}, fmt.Errorf("%w: entry %s is %s", errs.ErrImmutableEntry, current.Number, current.Status)
	}
	in.Status = ledger.StatusDraft
	if err := s.Validate(ctx, in); err != nil {
		return ledger.JournalEntry{}, err
	}
	next := BuildEntry(in)
	next.ID = current.ID
	next.Number = current.Number
	next.CreatedBy = current.CreatedBy
	next.Reference = current.Reference
	for i := range next.Lines {
		next.Lines[i].EntryID = current.ID
	}
	saved, err := s.writer.UpdateJournalEntry(ctx, next)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: in.CreatedBy, Action: "journal.update",
		EntityType: "journal_entry", EntityID: saved.ID.String(),
		Old: entrySnapshot(current), New: entrySnapshot(saved),
	})
	return saved, nil
}

// Transition moves an entry forward through draft -> approved -> posted.
// Re-posting a posted entry is an idempotent success; any other repeat or
// backward move is rejected.
func (s *service) Transition(ctx context.Context, entryID uuid.UUID, to ledger.EntryStatus, actor string) (ledger.JournalEntry, error) {
	entry, err := s.repo.EntryByID(ctx, entryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if !to.Valid() {
		return ledger.JournalEntry{}, fmt.Errorf("%w: unknown status %q", errs.ErrInvalidTransition, to)
	}
	if entry.Status == ledger.StatusPosted && to == ledger.StatusPosted {
		return entry, nil
	}
	if !entry.Status.CanTransition(to) {
		return ledger.JournalEntry{}, fmt.Errorf("%w: %v", errs.ErrInvalidTransition,
			&ledger.InvalidTransitionError{From: entry.Status, To: to})
	}
	old := entry
	entry.Status = to
	if to == ledger.StatusPosted {
		now := time.Now().UTC()
		entry.PostedBy = actor
		entry.PostedAt = &now
	}
	saved, err := s.writer.UpdateJournalEntry(ctx, entry)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: actor, Action: "journal.transition",
		EntityType: "journal_entry", EntityID: saved.ID.String(),
		Old: entrySnapshot(old), New: entrySnapshot(saved),
	})
	return saved, nil
}

// DeleteEntry removes a draft entry and its lines. Approved and posted
// entries cannot be deleted through normal paths.
func (s *service) DeleteEntry(ctx context.Context, entryID uuid.UUID, actor string) error {
	entry, err := s.repo.EntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	if !entry.Status.Mutable() {
		return fmt.Errorf("%w: entry %s is %s", errs.ErrImmutableEntry, entry.Number, entry.Status)
	}
	if err := s.writer.DeleteJournalEntry(ctx, entryID); err != nil {
		return err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: actor, Action: "journal.delete",
		EntityType: "journal_entry", EntityID: entryID.String(), Old: entrySnapshot(entry),
	})
	return nil
}

func (s *service) Entry(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error) {
	return s.repo.EntryByID(ctx, entryID)
}

func (s *service) ListEntries(ctx context.Context, f EntryFilter) ([]ledger.JournalEntry, error) {
	return s.repo.ListEntries(ctx, f)
}

// BuildEntry assigns fresh IDs and materializes money amounts. The document
// translators reuse it so handler-posted and document-posted entries share
// one construction path.
func BuildEntry(in EntryInput) ledger.JournalEntry {
	entryID := uuid.New()
	status := in.Status
	if status == "" {
		status = ledger.StatusDraft
	}
	entry := ledger.JournalEntry{
		ID:          entryID,
		Date:        in.Date,
		Currency:    in.Currency,
		Description: in.Description,
		Status:      status,
		Reference:   in.Reference,
		CreatedBy:   in.CreatedBy,
		Lines:       make([]ledger.JournalLine, 0, len(in.Lines)),
	}
	for _, ln := range in.Lines {
		amt, _ := money.NewAmountFromMinorUnits(in.Currency, ln.AmountMinor)
		entry.Lines = append(entry.Lines, ledger.JournalLine{
			ID:          uuid.New(),
			EntryID:     entryID,
			AccountCode: ln.AccountCode,
			Side:        ln.Side,
			Amount:      amt,
			Description: ln.Description,
		})
	}
	if status == ledger.StatusPosted {
		now := time.Now().UTC()
		entry.PostedBy = in.CreatedBy
		entry.PostedAt = &now
	}
	return entry
}

// entrySnapshot is the compact form handed to the audit recorder.
type snapshot struct {
	Number      string `json:"number"`
	Status      string `json:"status"`
	Date        string `json:"date"`
	Description string `json:"description"`
	TotalDebit  int64  `json:"total_debit"`
	TotalCredit int64  `json:"total_credit"`
	Lines       int    `json:"lines"`
}

func entrySnapshot(e ledger.JournalEntry) snapshot {
	return snapshot{
		Number:      e.Number,
		Status:      string(e.Status),
		Date:        e.Date.Format("2006-01-02"),
		Description: e.Description,
		TotalDebit:  e.TotalDebit(),
		TotalCredit: e.TotalCredit(),
		Lines:       len(e.Lines),
	}
}
