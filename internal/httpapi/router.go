// Package httpapi wires the HTTP surface of the finance service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/journal"
	"github.com/magnolia-hms/finance/internal/service/report"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

// AccountStore abstracts chart-of-accounts persistence for the API.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	AccountByCode(ctx context.Context, code string) (ledger.Account, error)
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

// ReadyChecker reports whether the backing store can serve traffic.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Deps carries everything the server needs; the caller wires services and
// the store once in main.
type Deps struct {
	Journal  journal.Service
	Docs     *translate.Service
	Reports  *report.Service
	Budgets  *budget.Service
	Accounts AccountStore
	Readier  ReadyChecker
	Logger   *slog.Logger
}

// Server wires handlers and middleware using Chi.
type Server struct {
	journal  journal.Service
	docs     *translate.Service
	reports  *report.Service
	budgets  *budget.Service
	accounts AccountStore
	readier  ReadyChecker
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by request/response logging and panic recovery.
func New(d Deps) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(d.Logger))
	r.Use(recoverer(d.Logger))
	r.Use(metricsMiddleware)

	s := &Server{
		journal:  d.Journal,
		docs:     d.Docs,
		reports:  d.Reports,
		budgets:  d.Budgets,
		accounts: d.Accounts,
		readier:  d.Readier,
		log:      d.Logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Journal entries (v1)
	s.rt.With(s.validatePostEntry()).Post("/v1/entries", s.postEntry)
	s.rt.Get("/v1/entries", s.listEntries)
	s.rt.Get("/v1/entries/{id}", s.getEntry)
	s.rt.With(s.validatePostEntry()).Put("/v1/entries/{id}", s.updateEntry)
	s.rt.Post("/v1/entries/{id}/transition", s.transitionEntry)
	s.rt.Delete("/v1/entries/{id}", s.deleteEntry)
	// Accounts (v1)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts/{code}", s.getAccount)
	s.rt.Patch("/v1/accounts/{code}", s.updateAccount)
	s.rt.Get("/v1/accounts/{code}/balance", s.getAccountBalance)
	// Source documents (v1)
	s.rt.Post("/v1/documents/bills", s.postBill)
	s.rt.Post("/v1/documents/invoices", s.postInvoice)
	s.rt.Post("/v1/documents/disbursements", s.postDisbursement)
	s.rt.Post("/v1/documents/payments-received", s.postPaymentReceived)
	s.rt.Post("/v1/documents/payments-made", s.postPaymentMade)
	s.rt.Post("/v1/documents/adjustments", s.postAdjustment)
	// Reports (v1)
	s.rt.Get("/v1/reports/trial-balance", s.trialBalance)
	s.rt.Get("/v1/reports/income-statement", s.incomeStatement)
	s.rt.Get("/v1/reports/balance-sheet", s.balanceSheet)
	s.rt.Get("/v1/reports/cash-flow", s.cashFlow)
	s.rt.Get("/v1/reports/aging/receivable", s.receivableAging)
	s.rt.Get("/v1/reports/aging/payable", s.payableAging)
	// Budgets (v1)
	s.rt.Post("/v1/budgets", s.postBudget)
	s.rt.Get("/v1/budgets", s.listBudgets)
	s.rt.Get("/v1/budgets/{id}", s.getBudget)
	s.rt.Put("/v1/budgets/{id}/items", s.putBudgetItem)
	s.rt.Post("/v1/budgets/{id}/liquidations", s.postLiquidation)
	s.rt.Post("/v1/liquidations/{id}/review", s.reviewLiquidation)
	s.rt.Get("/v1/departments/{id}/gate", s.departmentGate)
	s.rt.Put("/v1/departments/{id}/requirement", s.putRequirement)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
