package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
)

// CreateBudget implements budget.Store.
func (s *Store) CreateBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; ok {
		return ledger.Budget{}, errs.ErrConflict
	}
	s.budgets[b.ID] = b
	s.budgetOrder = append(s.budgetOrder, b.ID)
	return b, nil
}

// UpdateBudget replaces a budget header.
func (s *Store) UpdateBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	s.budgets[b.ID] = b
	return b, nil
}

// BudgetByID returns one budget.
func (s *Store) BudgetByID(_ context.Context, id uuid.UUID) (ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

// ListBudgets returns budgets in creation order.
func (s *Store) ListBudgets(_ context.Context) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Budget, 0, len(s.budgetOrder))
	for _, id := range s.budgetOrder {
		out = append(out, s.budgets[id])
	}
	return out, nil
}

// LatestBudgetForDepartment returns the department's most recently created
// budget, or errs.ErrNotFound when it has none.
func (s *Store) LatestBudgetForDepartment(_ context.Context, departmentID uuid.UUID) (ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.budgetOrder) - 1; i >= 0; i-- {
		if b := s.budgets[s.budgetOrder[i]]; b.DepartmentID == departmentID {
			return b, nil
		}
	}
	return ledger.Budget{}, errs.ErrNotFound
}

// ItemsForBudget returns a budget's items sorted by account code.
func (s *Store) ItemsForBudget(_ context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.BudgetItem
	for _, item := range s.budgetItems {
		if item.BudgetID == budgetID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out, nil
}

// SaveBudgetItem inserts or replaces an item by ID.
func (s *Store) SaveBudgetItem(_ context.Context, item ledger.BudgetItem) (ledger.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgetItems[item.ID] = item
	return item, nil
}

// LiquidationsForBudget returns a budget's liquidations sorted by date.
func (s *Store) LiquidationsForBudget(_ context.Context, budgetID uuid.UUID) ([]ledger.BudgetLiquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.BudgetLiquidation
	for _, l := range s.liquidations {
		if l.BudgetID == budgetID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LiquidationByID returns one liquidation.
func (s *Store) LiquidationByID(_ context.Context, id uuid.UUID) (ledger.BudgetLiquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.liquidations[id]
	if !ok {
		return ledger.BudgetLiquidation{}, errs.ErrNotFound
	}
	return l, nil
}

// SaveLiquidation inserts or replaces a liquidation by ID.
func (s *Store) SaveLiquidation(_ context.Context, l ledger.BudgetLiquidation) (ledger.BudgetLiquidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liquidations[l.ID] = l
	return l, nil
}

// RequirementForDepartment returns the explicit policy for a department or
// errs.ErrNotFound when none was configured.
func (s *Store) RequirementForDepartment(_ context.Context, departmentID uuid.UUID) (ledger.LiquidationRequirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requirements[departmentID]
	if !ok {
		return ledger.LiquidationRequirement{}, errs.ErrNotFound
	}
	return r, nil
}

// SaveRequirement stores a department policy.
func (s *Store) SaveRequirement(_ context.Context, r ledger.LiquidationRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requirements[r.DepartmentID] = r
	return nil
}
