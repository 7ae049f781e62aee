package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
	"github.com/magnolia-hms/finance/internal/storage/memory"
)

func newService(t *testing.T) journal.Service {
	t.Helper()
	st := memory.New()
	st.SeedAccounts(chart.DefaultChart())
	return journal.New(st, st, nil)
}

func validInput() journal.EntryInput {
	return journal.EntryInput{
		Date:        time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		Description: "supplies purchase",
		CreatedBy:   "clerk",
		Lines: []journal.LineInput{
			{AccountCode: "5403", Side: ledger.SideDebit, AmountMinor: 2500},
			{AccountCode: "1001", Side: ledger.SideCredit, AmountMinor: 2500},
		},
	}
}

func TestCreateEntry(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	saved, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, saved.Status)
	assert.Equal(t, "JE-2026-000001", saved.Number)
	assert.Len(t, saved.Lines, 2)
	assert.True(t, saved.Balanced())
	assert.Nil(t, saved.PostedAt)
}

func TestCreateEntryPostedStampsPoster(t *testing.T) {
	svc := newService(t)

	in := validInput()
	in.Status = ledger.StatusPosted
	saved, err := svc.CreateEntry(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, saved.Status)
	assert.Equal(t, "clerk", saved.PostedBy)
	require.NotNil(t, saved.PostedAt)
}

func TestValidateRejections(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*journal.EntryInput)
		wantErr error
	}{
		{"no currency", func(in *journal.EntryInput) { in.Currency = "" }, errs.ErrValidation},
		{"unknown currency", func(in *journal.EntryInput) { in.Currency = "ZZZ" }, errs.ErrValidation},
		{"single line", func(in *journal.EntryInput) { in.Lines = in.Lines[:1] }, errs.ErrTooFewLines},
		{"zero amount", func(in *journal.EntryInput) { in.Lines[0].AmountMinor = 0 }, errs.ErrInvalidAmount},
		{"negative amount", func(in *journal.EntryInput) { in.Lines[0].AmountMinor = -100 }, errs.ErrInvalidAmount},
		{"unbalanced", func(in *journal.EntryInput) { in.Lines[0].AmountMinor = 9999 }, errs.ErrUnbalancedEntry},
		{"bad side", func(in *journal.EntryInput) { in.Lines[0].Side = "both" }, errs.ErrValidation},
		{"unknown account", func(in *journal.EntryInput) { in.Lines[0].AccountCode = "0000" }, errs.ErrMissingAccount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := svc.Validate(ctx, in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateEntryRejectsUnknownCurrency(t *testing.T) {
	svc := newService(t)

	in := validInput()
	in.Currency = "ZZZ"
	_, err := svc.CreateEntry(context.Background(), in)
	assert.ErrorIs(t, err, errs.ErrValidation)

	// Nothing may be stored with zeroed amounts.
	entries, err := svc.ListEntries(context.Background(), journal.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateToleratesOneMinorUnit(t *testing.T) {
	svc := newService(t)

	in := validInput()
	in.Lines[0].AmountMinor = 2501
	assert.NoError(t, svc.Validate(context.Background(), in))
}

func TestUpdateDraftEntry(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	saved, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Description = "corrected memo"
	in.Lines[0].AmountMinor = 3000
	in.Lines[1].AmountMinor = 3000
	updated, err := svc.UpdateDraftEntry(ctx, saved.ID, in)
	require.NoError(t, err)
	assert.Equal(t, saved.Number, updated.Number, "number survives edits")
	assert.Equal(t, "corrected memo", updated.Description)
	assert.Equal(t, int64(3000), updated.TotalDebit())
}

func TestUpdateRejectsNonDraft(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	saved, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Transition(ctx, saved.ID, ledger.StatusApproved, "manager")
	require.NoError(t, err)

	_, err = svc.UpdateDraftEntry(ctx, saved.ID, validInput())
	assert.ErrorIs(t, err, errs.ErrImmutableEntry)
}

func TestTransitionLifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	saved, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	approved, err := svc.Transition(ctx, saved.ID, ledger.StatusApproved, "manager")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, approved.Status)

	posted, err := svc.Transition(ctx, saved.ID, ledger.StatusPosted, "manager")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, posted.Status)
	assert.Equal(t, "manager", posted.PostedBy)
	require.NotNil(t, posted.PostedAt)

	// Re-posting is an idempotent success.
	again, err := svc.Transition(ctx, saved.ID, ledger.StatusPosted, "manager")
	require.NoError(t, err)
	assert.Equal(t, posted.PostedAt, again.PostedAt)

	// Backward moves are rejected.
	_, err = svc.Transition(ctx, saved.ID, ledger.StatusDraft, "manager")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	_, err = svc.Transition(ctx, saved.ID, ledger.StatusApproved, "manager")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestDeleteEntry(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	draft, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEntry(ctx, draft.ID, "clerk"))
	_, err = svc.Entry(ctx, draft.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	posted, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Transition(ctx, posted.ID, ledger.StatusPosted, "manager")
	require.NoError(t, err)
	err = svc.DeleteEntry(ctx, posted.ID, "clerk")
	assert.ErrorIs(t, err, errs.ErrImmutableEntry)
}

func TestListEntriesByStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Transition(ctx, first.ID, ledger.StatusPosted, "manager")
	require.NoError(t, err)

	posted, err := svc.ListEntries(ctx, journal.EntryFilter{Status: ledger.StatusPosted})
	require.NoError(t, err)
	require.Len(t, posted, 1)
	assert.Equal(t, first.ID, posted[0].ID)

	drafts, err := svc.ListEntries(ctx, journal.EntryFilter{Status: ledger.StatusDraft})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}
