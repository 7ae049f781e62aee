package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Resolve the SQL path relative to this file so CWD doesn't matter.
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "0001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
		truncate entry_lines, entries, entry_sequences,
		         bill_items, bills, invoice_items, invoices,
		         disbursements, payments, adjustments,
		         budget_items, budget_liquidations, budgets, liquidation_requirements,
		         accounts cascade
	`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func setup(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	s := mustOpen(t, dsn)
	t.Cleanup(s.Close)
	applyInitSQL(t, s)
	truncateAll(t, s)
	if err := s.SeedAccounts(context.Background(), chart.DefaultChart()); err != nil {
		t.Fatalf("seed accounts: %v", err)
	}
	return s
}

func postedEntry(date time.Time) ledger.JournalEntry {
	return journal.BuildEntry(journal.EntryInput{
		Date:     date,
		Currency: "USD",
		Status:   ledger.StatusPosted,
		Lines: []journal.LineInput{
			{AccountCode: "1001", Side: ledger.SideDebit, AmountMinor: 1000},
			{AccountCode: "4001", Side: ledger.SideCredit, AmountMinor: 1000},
		},
	})
}

func TestCreateEntryAllocatesNumbers(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	first, err := s.CreateJournalEntry(ctx, postedEntry(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.CreateJournalEntry(ctx, postedEntry(time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Number != "JE-2026-000001" || second.Number != "JE-2026-000002" {
		t.Fatalf("unexpected numbers: %s, %s", first.Number, second.Number)
	}

	got, err := s.EntryByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(got.Lines))
	}
	if !got.Balanced() {
		t.Fatal("entry should round-trip balanced")
	}
}

func TestConcurrentCreatesAllocateUniqueNumbers(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	const n = 20
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			e, err := s.CreateJournalEntry(ctx, postedEntry(date))
			if err != nil {
				results <- ""
				return
			}
			results <- e.Number
		}()
	}
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		num := <-results
		if num == "" {
			t.Fatal("concurrent create failed")
		}
		if seen[num] {
			t.Fatalf("duplicate number %s", num)
		}
		seen[num] = true
	}
}

func TestConcurrentAccrualsOverlappingCodes(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	b, err := s.CreateBudget(ctx, ledger.Budget{
		ID: uuid.New(), DepartmentID: uuid.New(), Name: "Kitchen 2026",
		FiscalYear: 2026, Status: ledger.DocStatusApproved, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	for _, code := range []string{"5101", "5301"} {
		if _, err := s.SaveBudgetItem(ctx, ledger.BudgetItem{
			ID: uuid.New(), BudgetID: b.ID, AccountCode: code, Budgeted: 10_000_000,
		}); err != nil {
			t.Fatalf("save item: %v", err)
		}
	}

	// Each posting touches both budget rows; opposing lock orders would
	// deadlock, so every posting must succeed.
	const n = 10
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			bill := ledger.Bill{
				ID: uuid.New(), Number: "BILL-C" + string(rune('A'+i)), VendorID: uuid.New(),
				BillDate: time.Now(), DueDate: time.Now().AddDate(0, 1, 0),
				Subtotal: 2000, Total: 2000, Balance: 2000, Status: ledger.DocStatusApproved,
				Items: []ledger.LineItem{
					{AccountCode: "5101", LineTotal: 1000},
					{AccountCode: "5301", LineTotal: 1000},
				},
			}
			_, err := s.PostDocument(ctx, translate.Posting{
				Type: ledger.DocBill, Bill: &bill,
				Entry:         postedEntry(time.Now()),
				BudgetActuals: map[string]int64{"5101": 1000, "5301": 1000},
			})
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent post: %v", err)
		}
	}

	items, err := s.ItemsForBudget(ctx, b.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	for _, it := range items {
		if it.Actual != n*1000 {
			t.Fatalf("item %s actual=%d, want %d", it.AccountCode, it.Actual, n*1000)
		}
	}
}

func TestPostDocumentRoundTrip(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	invID := uuid.New()
	inv := ledger.Invoice{
		ID: invID, Number: "INV-100", CustomerID: uuid.New(),
		InvoiceDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Subtotal:    100000, Tax: 12000, Total: 112000, Balance: 112000,
		Status: ledger.DocStatusSent,
		Items:  []ledger.LineItem{{AccountCode: "4001", Description: "Banquet", LineTotal: 100000}},
	}
	if _, err := s.PostDocument(ctx, translate.Posting{
		Type: ledger.DocInvoice, Invoice: &inv, Entry: postedEntry(inv.InvoiceDate),
	}); err != nil {
		t.Fatalf("post invoice: %v", err)
	}

	_, err := s.PostDocument(ctx, translate.Posting{
		Type:            ledger.DocPaymentReceived,
		Payment:         &ledger.Payment{ID: uuid.New(), Number: "RCPT-1", InvoiceID: invID, Method: ledger.MethodCash, PaymentDate: time.Now(), Amount: 112000, Status: ledger.DocStatusPaid},
		Entry:           postedEntry(time.Now()),
		TargetInvoiceID: invID,
		BalanceDelta:    -112000,
	})
	if err != nil {
		t.Fatalf("post payment: %v", err)
	}

	got, err := s.InvoiceByID(ctx, invID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.Balance != 0 || got.Status != ledger.DocStatusPaid {
		t.Fatalf("invoice not settled: balance=%d status=%s", got.Balance, got.Status)
	}
	if len(got.Items) != 1 {
		t.Fatalf("want 1 item, got %d", len(got.Items))
	}
}
