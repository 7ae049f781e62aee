package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/ledger"
)

func (s *Server) postBudget(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DepartmentID == uuid.Nil {
		badRequest(w, "department_id is required")
		return
	}
	b, err := s.budgets.CreateBudget(r.Context(), req.DepartmentID, req.Name, req.FiscalYear, req.Actor)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBudgetResponse(b, nil))
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListBudgets(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b, nil))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid budget id")
		return
	}
	b, items, err := s.budgets.Budget(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBudgetResponse(b, items))
}

func (s *Server) putBudgetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid budget id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req budgetItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.budgets.UpsertItem(r.Context(), id, req.toInput(), req.Actor)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, budgetItemResponse{
		ID:          item.ID,
		AccountCode: item.AccountCode,
		Category:    item.Category,
		Budgeted:    item.Budgeted,
		Actual:      item.Actual,
		Variance:    item.Variance,
		HardCap:     item.HardCap,
	})
}

func (s *Server) postLiquidation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid budget id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req liquidationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := s.budgets.RecordLiquidation(r.Context(), id, req.AmountMinor, req.Notes, req.Actor)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toLiquidationResponse(l))
}

func (s *Server) reviewLiquidation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid liquidation id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := s.budgets.ReviewLiquidation(r.Context(), id, req.Approve, req.Actor)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toLiquidationResponse(l))
}

// departmentGate reports whether a department may open a new budget, with the
// liquidation standing behind the decision.
func (s *Server) departmentGate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid department id")
		return
	}
	decision, err := s.budgets.EvaluateGate(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, decision)
}

func (s *Server) putRequirement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid department id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req requirementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err = s.budgets.SetRequirement(r.Context(), ledger.LiquidationRequirement{
		DepartmentID:  id,
		Required:      req.Required,
		MinPercentage: req.MinPercentage,
	}, req.Actor)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
