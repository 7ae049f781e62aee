package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

type fakeLedger struct {
	accounts []ledger.Account
	entries  []ledger.JournalEntry
}

func (f *fakeLedger) ListAccounts(context.Context) ([]ledger.Account, error) {
	return f.accounts, nil
}

func (f *fakeLedger) ListEntries(_ context.Context, filter journal.EntryFilter) ([]ledger.JournalEntry, error) {
	var out []ledger.JournalEntry
	for _, e := range f.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && e.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && e.Date.After(*filter.DateTo) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeDocs struct {
	bills    []ledger.Bill
	invoices []ledger.Invoice
}

func (f *fakeDocs) ListBills(context.Context) ([]ledger.Bill, error)       { return f.bills, nil }
func (f *fakeDocs) ListInvoices(context.Context) ([]ledger.Invoice, error) { return f.invoices, nil }

func postedEntry(date time.Time, lines ...ledger.JournalLine) ledger.JournalEntry {
	id := uuid.New()
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].EntryID = id
	}
	return ledger.JournalEntry{
		ID: id, Number: "JE-2026-000001", Date: date, Currency: "USD",
		Status: ledger.StatusPosted, Lines: lines,
	}
}

func line(code string, side ledger.Side, minor int64) ledger.JournalLine {
	amt, _ := money.NewAmountFromMinorUnits("USD", minor)
	return ledger.JournalLine{AccountCode: code, Side: side, Amount: amt}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newReportService(entries ...ledger.JournalEntry) *Service {
	return New(&fakeLedger{accounts: chart.DefaultChart(), entries: entries}, &fakeDocs{})
}

func TestBalanceSignConvention(t *testing.T) {
	svc := newReportService(
		// Invoice posting: AR up, revenue and tax payable up.
		postedEntry(day(2026, 3, 1),
			line("1002", ledger.SideDebit, 112000),
			line("4001", ledger.SideCredit, 100000),
			line("2108", ledger.SideCredit, 12000),
		),
		// Partial collection.
		postedEntry(day(2026, 3, 10),
			line("1001", ledger.SideDebit, 50000),
			line("1002", ledger.SideCredit, 50000),
		),
	)
	asOf := day(2026, 3, 31)

	ar, err := svc.Balance(context.Background(), "1002", asOf, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(62000), ar)

	revenue, err := svc.Balance(context.Background(), "4001", asOf, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), revenue)

	taxPayable, err := svc.Balance(context.Background(), "2108", asOf, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), taxPayable)

	// No posted activity yields zero, not an error.
	idle, err := svc.Balance(context.Background(), "5201", asOf, nil)
	require.NoError(t, err)
	assert.Zero(t, idle)

	_, err = svc.Balance(context.Background(), "9999", asOf, nil)
	assert.ErrorIs(t, err, errs.ErrMissingAccount)
}

func TestBalanceRespectsDateRange(t *testing.T) {
	svc := newReportService(
		postedEntry(day(2026, 1, 15),
			line("1001", ledger.SideDebit, 10000),
			line("4001", ledger.SideCredit, 10000),
		),
		postedEntry(day(2026, 2, 15),
			line("1001", ledger.SideDebit, 5000),
			line("4001", ledger.SideCredit, 5000),
		),
	)
	from := day(2026, 2, 1)
	cash, err := svc.Balance(context.Background(), "1001", day(2026, 2, 28), &from)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cash)
}

func TestDraftEntriesNeverContribute(t *testing.T) {
	draft := postedEntry(day(2026, 3, 1),
		line("1001", ledger.SideDebit, 99999),
		line("4001", ledger.SideCredit, 99999),
	)
	draft.Status = ledger.StatusDraft
	svc := newReportService(draft)

	cash, err := svc.Balance(context.Background(), "1001", day(2026, 12, 31), nil)
	require.NoError(t, err)
	assert.Zero(t, cash)
}

func TestTrialBalance(t *testing.T) {
	svc := newReportService(
		postedEntry(day(2026, 3, 1),
			line("1002", ledger.SideDebit, 112000),
			line("4001", ledger.SideCredit, 100000),
			line("2108", ledger.SideCredit, 12000),
		),
	)
	tb, err := svc.BuildTrialBalance(context.Background(), day(2026, 3, 31), false)
	require.NoError(t, err)
	assert.Len(t, tb.Rows, 3)
	assert.Equal(t, tb.TotalDebit, tb.TotalCredit)
	assert.Equal(t, int64(112000), tb.TotalDebit)
}

func TestTrialBalancePreviewIncludesDrafts(t *testing.T) {
	draft := postedEntry(day(2026, 3, 2),
		line("5101", ledger.SideDebit, 30000),
		line("2001", ledger.SideCredit, 30000),
	)
	draft.Status = ledger.StatusDraft
	svc := newReportService(
		postedEntry(day(2026, 3, 1),
			line("1001", ledger.SideDebit, 10000),
			line("4001", ledger.SideCredit, 10000),
		),
		draft,
	)
	asOf := day(2026, 3, 31)

	tb, err := svc.BuildTrialBalance(context.Background(), asOf, false)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), tb.TotalDebit)

	preview, err := svc.BuildTrialBalance(context.Background(), asOf, true)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), preview.TotalDebit)
	assert.Equal(t, preview.TotalDebit, preview.TotalCredit)
}

func TestTrialBalanceStructuralImbalance(t *testing.T) {
	// A lopsided entry can only reach the store through a bug; the report
	// must refuse to paper over it.
	svc := newReportService(
		postedEntry(day(2026, 3, 1),
			line("1001", ledger.SideDebit, 5000),
			line("4001", ledger.SideCredit, 4000),
		),
	)
	_, err := svc.BuildTrialBalance(context.Background(), day(2026, 3, 31), false)
	assert.ErrorIs(t, err, errs.ErrStructuralImbalance)
}

func TestIncomeStatement(t *testing.T) {
	svc := newReportService(
		postedEntry(day(2026, 3, 1),
			line("1002", ledger.SideDebit, 100000),
			line("4001", ledger.SideCredit, 100000),
		),
		postedEntry(day(2026, 3, 5),
			line("5101", ledger.SideDebit, 40000),
			line("2001", ledger.SideCredit, 40000),
		),
	)
	st, err := svc.BuildIncomeStatement(context.Background(), day(2026, 3, 1), day(2026, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(100000), st.RevenueTotal)
	assert.Equal(t, int64(40000), st.ExpenseTotal)
	assert.Equal(t, int64(60000), st.NetProfit)
	assert.InDelta(t, 0.6, st.ProfitMargin, 1e-9)
	assert.Len(t, st.Revenue, 1)
	assert.Len(t, st.Expenses, 1)
}

func TestIncomeStatementNoRevenue(t *testing.T) {
	svc := newReportService(
		postedEntry(day(2026, 3, 5),
			line("5301", ledger.SideDebit, 7000),
			line("1001", ledger.SideCredit, 7000),
		),
	)
	st, err := svc.BuildIncomeStatement(context.Background(), day(2026, 3, 1), day(2026, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(-7000), st.NetProfit)
	assert.Zero(t, st.ProfitMargin)
}

func TestBalanceSheetBalances(t *testing.T) {
	svc := newReportService(
		postedEntry(day(2026, 3, 1),
			line("1002", ledger.SideDebit, 112000),
			line("4001", ledger.SideCredit, 100000),
			line("2108", ledger.SideCredit, 12000),
		),
		postedEntry(day(2026, 3, 5),
			line("5101", ledger.SideDebit, 30000),
			line("2001", ledger.SideCredit, 30000),
		),
	)
	bs, err := svc.BuildBalanceSheet(context.Background(), day(2026, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(112000), bs.TotalAssets)
	assert.Equal(t, int64(42000), bs.TotalLiabilities)
	assert.Equal(t, int64(70000), bs.RetainedEarnings)
	assert.Equal(t, int64(70000), bs.TotalEquity)
	assert.True(t, bs.Balanced)
	assert.Zero(t, bs.Discrepancy)
}

func TestCashFlow(t *testing.T) {
	svc := newReportService(
		postedEntry(day(2026, 3, 2),
			line("1001", ledger.SideDebit, 50000),
			line("4001", ledger.SideCredit, 50000),
		),
		postedEntry(day(2026, 3, 9),
			line("5301", ledger.SideDebit, 20000),
			line("1003", ledger.SideCredit, 20000),
		),
	)
	cf, err := svc.BuildCashFlow(context.Background(), day(2026, 3, 1), day(2026, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(30000), cf.NetCashChange)
	assert.Equal(t, int64(30000), cf.Operating)
	assert.Zero(t, cf.Investing)
	assert.Zero(t, cf.Financing)
	assert.Len(t, cf.CashAccounts, 2)
}

func TestAgingBuckets(t *testing.T) {
	asOf := day(2026, 8, 31)
	docs := &fakeDocs{invoices: []ledger.Invoice{
		{ID: uuid.New(), Number: "INV-CUR", DueDate: day(2026, 9, 10), Balance: 1000, Status: ledger.DocStatusSent},
		{ID: uuid.New(), Number: "INV-30", DueDate: asOf.AddDate(0, 0, -30), Balance: 2000, Status: ledger.DocStatusPartial},
		{ID: uuid.New(), Number: "INV-31", DueDate: asOf.AddDate(0, 0, -31), Balance: 3000, Status: ledger.DocStatusOverdue},
		{ID: uuid.New(), Number: "INV-90", DueDate: asOf.AddDate(0, 0, -90), Balance: 4000, Status: ledger.DocStatusSent},
		{ID: uuid.New(), Number: "INV-91", DueDate: asOf.AddDate(0, 0, -91), Balance: 5000, Status: ledger.DocStatusSent},
		// Settled and void documents never age.
		{ID: uuid.New(), Number: "INV-PAID", DueDate: asOf.AddDate(0, 0, -40), Balance: 0, Status: ledger.DocStatusPaid},
		{ID: uuid.New(), Number: "INV-VOID", DueDate: asOf.AddDate(0, 0, -40), Balance: 900, Status: ledger.DocStatusVoid},
	}}
	svc := New(&fakeLedger{accounts: chart.DefaultChart()}, docs)

	r, err := svc.BuildReceivableAging(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), r.Buckets[BucketCurrent])
	assert.Equal(t, int64(2000), r.Buckets[BucketUpTo30])
	assert.Equal(t, int64(3000), r.Buckets[BucketUpTo60])
	assert.Equal(t, int64(4000), r.Buckets[BucketUpTo90])
	assert.Equal(t, int64(5000), r.Buckets[BucketBeyond90])
	assert.Equal(t, int64(15000), r.Total)
	assert.Len(t, r.Documents, 5)
	assert.Equal(t, 1, r.Counts[BucketUpTo30])

	assert.Equal(t, 5, r.Summary.DocumentCount)
	assert.Equal(t, int64(15000), r.Summary.TotalOutstanding)
	assert.Equal(t, 4, r.Summary.OverdueCount)
	assert.Equal(t, int64(14000), r.Summary.OverdueAmount)
	assert.InDelta(t, 60.5, r.Summary.AverageDaysOverdue, 1e-9)
}

func TestPayableAging(t *testing.T) {
	asOf := day(2026, 8, 31)
	docs := &fakeDocs{bills: []ledger.Bill{
		{ID: uuid.New(), Number: "BILL-1", DueDate: asOf.AddDate(0, 0, -45), Balance: 8000, Status: ledger.DocStatusApproved},
		{ID: uuid.New(), Number: "BILL-2", DueDate: asOf.AddDate(0, 0, -5), Balance: 2500, Status: ledger.DocStatusPartial},
	}}
	svc := New(&fakeLedger{accounts: chart.DefaultChart()}, docs)

	r, err := svc.BuildPayableAging(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), r.Buckets[BucketUpTo60])
	assert.Equal(t, int64(2500), r.Buckets[BucketUpTo30])
	assert.Equal(t, int64(10500), r.Total)
}
