package httpapi

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/meta"
)

func validAccountType(t ledger.AccountType) bool {
	switch t {
	case ledger.AccountTypeAsset, ledger.AccountTypeLiability, ledger.AccountTypeEquity,
		ledger.AccountTypeRevenue, ledger.AccountTypeExpense:
		return true
	}
	return false
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListAccounts(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.accounts.AccountByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.Name == "" {
		badRequest(w, "code and name are required")
		return
	}
	if !validAccountType(req.Type) {
		badRequest(w, "invalid account type")
		return
	}
	md := meta.New(req.Metadata)
	if err := md.Validate(); err != nil {
		unprocessable(w, err.Error(), "validation_error")
		return
	}
	a := ledger.Account{
		Code:     req.Code,
		Name:     req.Name,
		Type:     req.Type,
		Category: req.Category,
		Cash:     req.Cash,
		Metadata: md,
		Active:   true,
	}
	saved, err := s.accounts.CreateAccount(r.Context(), a)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(saved))
}

// updateAccount patches name, category, metadata, and active. Code and type
// are fixed once the account exists.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.accounts.AccountByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if req.Name != "" {
		a.Name = req.Name
	}
	if req.Category != "" {
		a.Category = req.Category
	}
	if req.Metadata != nil {
		md := meta.New(req.Metadata)
		if err := md.Validate(); err != nil {
			unprocessable(w, err.Error(), "validation_error")
			return
		}
		a.Metadata = md
	}
	if req.Active != nil {
		a.Active = *req.Active
	}
	saved, err := s.accounts.UpdateAccount(r.Context(), a)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(saved))
}

// getAccountBalance returns the signed balance of one account. as_of defaults
// to now; from optionally bounds the window for period activity.
func (s *Server) getAccountBalance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	q := r.URL.Query()

	asOf := time.Now().UTC()
	if raw := q.Get("as_of"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			badRequest(w, "invalid as_of date")
			return
		}
		asOf = t
	}
	var from *time.Time
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			badRequest(w, "invalid from date")
			return
		}
		from = &t
	}

	balance, err := s.reports.Balance(r.Context(), code, asOf, from)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{AccountCode: code, AsOf: asOf, BalanceMinor: balance})
}
