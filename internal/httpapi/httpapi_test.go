package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/journal"
	"github.com/magnolia-hms/finance/internal/service/report"
	"github.com/magnolia-hms/finance/internal/service/translate"
	"github.com/magnolia-hms/finance/internal/storage/memory"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st := memory.New()
	st.SeedAccounts(chart.DefaultChart())
	reg, err := chart.Resolve(chart.DefaultChart(), chart.DefaultMapping())
	if err != nil {
		t.Fatalf("resolve chart: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	js := journal.New(st, st, nil)
	srv := New(Deps{
		Journal:  js,
		Docs:     translate.New(reg, js, st, "USD", nil),
		Reports:  report.New(st, st),
		Budgets:  budget.New(st, nil),
		Accounts: st,
		Logger:   logger,
	})
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
}

func entryBody(status string) map[string]any {
	return map[string]any{
		"date":        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		"currency":    "USD",
		"description": "office supplies",
		"status":      status,
		"created_by":  "clerk",
		"lines": []map[string]any{
			{"account_code": "5101", "side": "debit", "amount_minor": 5000},
			{"account_code": "1001", "side": "credit", "amount_minor": 5000},
		},
	}
}

func TestPostEntryAndLifecycle(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/entries", entryBody(""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: want 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created entryResponse
	decodeBody(t, rec, &created)
	if created.Status != ledger.StatusDraft {
		t.Fatalf("want draft, got %s", created.Status)
	}
	if created.Number == "" {
		t.Fatal("entry number should be allocated")
	}

	base := "/v1/entries/" + created.ID.String()
	for _, status := range []string{"approved", "posted"} {
		rec = doJSON(t, h, http.MethodPost, base+"/transition", map[string]any{"status": status, "actor": "manager"})
		if rec.Code != http.StatusOK {
			t.Fatalf("transition to %s: want 200, got %d: %s", status, rec.Code, rec.Body.String())
		}
	}

	// Posting a posted entry again is an idempotent no-op.
	rec = doJSON(t, h, http.MethodPost, base+"/transition", map[string]any{"status": "posted", "actor": "manager"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reposting: want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Posted entries reject mutation and deletion.
	rec = doJSON(t, h, http.MethodPut, base, entryBody(""))
	if rec.Code != http.StatusConflict {
		t.Fatalf("update posted: want 409, got %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodDelete, base, nil)
	del := httptest.NewRecorder()
	h.ServeHTTP(del, req)
	if del.Code != http.StatusConflict {
		t.Fatalf("delete posted: want 409, got %d", del.Code)
	}
}

func TestPostEntryValidation(t *testing.T) {
	h := newTestServer(t)

	body := entryBody("")
	body["lines"] = []map[string]any{
		{"account_code": "5101", "side": "debit", "amount_minor": 5000},
		{"account_code": "1001", "side": "credit", "amount_minor": 4000},
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/entries", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unbalanced: want 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var er errorResponse
	decodeBody(t, rec, &er)
	if er.Code != "unbalanced_entry" {
		t.Fatalf("want unbalanced_entry code, got %q", er.Code)
	}

	body = entryBody("")
	body["lines"] = []map[string]any{
		{"account_code": "9999", "side": "debit", "amount_minor": 5000},
		{"account_code": "1001", "side": "credit", "amount_minor": 5000},
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/entries", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown account: want 422, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &er)
	if er.Code != "missing_account" {
		t.Fatalf("want missing_account code, got %q", er.Code)
	}
}

func TestPostEntryRequiresJSONContentType(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/entries", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("want 415, got %d", rec.Code)
	}
}

func TestInvoiceThenPaymentSettles(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/documents/invoices", map[string]any{
		"customer_id":  uuid.New(),
		"invoice_date": time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		"due_date":     time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		"items": []map[string]any{
			{"account_code": "4001", "description": "Banquet package", "amount_minor": 100000},
		},
		"actor": "frontdesk",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invoice: want 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var doc documentResponse
	decodeBody(t, rec, &doc)
	if doc.Entry.Status != ledger.StatusPosted {
		t.Fatalf("document entries post immediately, got %s", doc.Entry.Status)
	}
	if len(doc.Entry.Lines) != 3 {
		t.Fatalf("want AR + revenue + tax lines, got %d", len(doc.Entry.Lines))
	}

	// Default 12% tax: 112,000 receivable in total.
	rec = doJSON(t, h, http.MethodPost, "/v1/documents/payments-received", map[string]any{
		"invoice_id":   doc.DocumentID,
		"method":       "cash",
		"date":         time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		"amount_minor": 112000,
		"actor":        "frontdesk",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: want 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/reports/aging/receivable?as_of=2026-04-30", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("aging: want 200, got %d", rec.Code)
	}
	var aging report.AgingReport
	decodeBody(t, rec, &aging)
	if aging.Total != 0 || len(aging.Documents) != 0 {
		t.Fatalf("settled invoice should not age: %+v", aging)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/reports/trial-balance?as_of=2026-12-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trial balance: want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tb report.TrialBalance
	decodeBody(t, rec, &tb)
	if tb.TotalDebit != tb.TotalCredit {
		t.Fatalf("trial balance out of balance: %d vs %d", tb.TotalDebit, tb.TotalCredit)
	}
}

func TestAccountBalanceEndpoint(t *testing.T) {
	h := newTestServer(t)

	body := entryBody("posted")
	rec := doJSON(t, h, http.MethodPost, "/v1/entries", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: want 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/accounts/5101/balance?as_of=2026-12-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var bal balanceResponse
	decodeBody(t, rec, &bal)
	if bal.BalanceMinor != 5000 {
		t.Fatalf("want 5000, got %d", bal.BalanceMinor)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/accounts/9999/balance", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown account: want 422, got %d", rec.Code)
	}
}

func TestBudgetGateBlocksSecondBudget(t *testing.T) {
	h := newTestServer(t)
	dept := uuid.New()

	rec := doJSON(t, h, http.MethodPost, "/v1/budgets", map[string]any{
		"department_id": dept,
		"name":          "Kitchen FY2026",
		"fiscal_year":   2026,
		"actor":         "chef",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first budget: want 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var b budgetResponse
	decodeBody(t, rec, &b)

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/v1/budgets/%s/items", b.ID), map[string]any{
		"account_code": "5101",
		"budgeted":     100000,
		"actor":        "chef",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("item: want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Nothing liquidated yet, so the default 100% policy closes the gate.
	rec = doJSON(t, h, http.MethodPost, "/v1/budgets", map[string]any{
		"department_id": dept,
		"name":          "Kitchen FY2027",
		"fiscal_year":   2027,
		"actor":         "chef",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second budget: want 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var er errorResponse
	decodeBody(t, rec, &er)
	if er.Code != "budget_gate_closed" {
		t.Fatalf("want budget_gate_closed, got %q", er.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/departments/"+dept.String()+"/gate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("gate: want 200, got %d", rec.Code)
	}
	var decision budget.GateDecision
	decodeBody(t, rec, &decision)
	if decision.Allowed {
		t.Fatal("gate should be closed")
	}

	// Liquidate the full allocation and the gate reopens.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/v1/budgets/%s/liquidations", b.ID), map[string]any{
		"amount_minor": 100000,
		"notes":        "Q1 spend report",
		"actor":        "chef",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("liquidation: want 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var liq liquidationResponse
	decodeBody(t, rec, &liq)

	rec = doJSON(t, h, http.MethodPost, "/v1/liquidations/"+liq.ID.String()+"/review", map[string]any{
		"approve": true,
		"actor":   "controller",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("review: want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/budgets", map[string]any{
		"department_id": dept,
		"name":          "Kitchen FY2027",
		"fiscal_year":   2027,
		"actor":         "chef",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("budget after liquidation: want 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want 200, got %d", path, rec.Code)
		}
	}
}
