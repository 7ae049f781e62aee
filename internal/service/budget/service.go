package budget

// Package budget tracks departmental allocations, the spend posted against
// them, and liquidation reporting. Its gate decides whether a department may
// open a new budget proposal based on how much of the previous allocation it
// has liquidated.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/audit"
	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
)

// Store is the persistence surface for budgets and liquidations.
type Store interface {
	CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	BudgetByID(ctx context.Context, id uuid.UUID) (ledger.Budget, error)
	ListBudgets(ctx context.Context) ([]ledger.Budget, error)
	// LatestBudgetForDepartment returns the department's most recent budget
	// or errs.ErrNotFound when none exists.
	LatestBudgetForDepartment(ctx context.Context, departmentID uuid.UUID) (ledger.Budget, error)

	ItemsForBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error)
	SaveBudgetItem(ctx context.Context, item ledger.BudgetItem) (ledger.BudgetItem, error)

	LiquidationsForBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetLiquidation, error)
	LiquidationByID(ctx context.Context, id uuid.UUID) (ledger.BudgetLiquidation, error)
	SaveLiquidation(ctx context.Context, l ledger.BudgetLiquidation) (ledger.BudgetLiquidation, error)

	// RequirementForDepartment returns errs.ErrNotFound when the department
	// has no explicit policy; callers fall back to the default.
	RequirementForDepartment(ctx context.Context, departmentID uuid.UUID) (ledger.LiquidationRequirement, error)
	SaveRequirement(ctx context.Context, r ledger.LiquidationRequirement) error
}

// Accrue adds posted spend to a budget item, maintaining Variance. Hard-cap
// items reject spend that would push Actual past Budgeted.
func Accrue(item *ledger.BudgetItem, amount int64) error {
	next := item.Actual + amount
	if item.HardCap && next > item.Budgeted {
		return fmt.Errorf("%w: item %s would reach %d of %d", errs.ErrBudgetExceeded, item.AccountCode, next, item.Budgeted)
	}
	item.Actual = next
	item.Variance = item.Budgeted - item.Actual
	return nil
}

// GateDecision is the outcome of the proposal gate for one department.
type GateDecision struct {
	Allowed               bool    `json:"allowed"`
	Reason                string  `json:"reason"`
	LiquidationPercentage float64 `json:"liquidation_percentage"`
	RequiredPercentage    float64 `json:"required_percentage"`
	Allocated             int64   `json:"allocated"`
	Liquidated            int64   `json:"liquidated"`
}

// ItemInput is a requested allocation line.
type ItemInput struct {
	AccountCode string
	Category    string
	Budgeted    int64
	HardCap     bool
}

// Service manages budgets and evaluates the liquidation gate.
type Service struct {
	store   Store
	auditor audit.Recorder
}

// New constructs the budget service. A nil auditor disables audit output.
func New(store Store, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{store: store, auditor: auditor}
}

// CreateBudget opens a budget for a department and fiscal year, gated on the
// department's liquidation standing.
func (s *Service) CreateBudget(ctx context.Context, departmentID uuid.UUID, name string, fiscalYear int, actor string) (ledger.Budget, error) {
	if departmentID == uuid.Nil {
		return ledger.Budget{}, fmt.Errorf("%w: department_id is required", errs.ErrValidation)
	}
	if fiscalYear < 2000 || fiscalYear > 2200 {
		return ledger.Budget{}, fmt.Errorf("%w: implausible fiscal year %d", errs.ErrValidation, fiscalYear)
	}
	decision, err := s.EvaluateGate(ctx, departmentID)
	if err != nil {
		return ledger.Budget{}, err
	}
	if !decision.Allowed {
		return ledger.Budget{}, fmt.Errorf("%w: %s", errs.ErrBudgetGateClosed, decision.Reason)
	}
	b := ledger.Budget{
		ID:           uuid.New(),
		DepartmentID: departmentID,
		Name:         name,
		FiscalYear:   fiscalYear,
		Status:       ledger.DocStatusApproved,
		CreatedAt:    time.Now().UTC(),
	}
	saved, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return ledger.Budget{}, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: actor, Action: "budget.create", EntityType: "budget", EntityID: saved.ID.String(),
		New: map[string]any{"name": name, "fiscal_year": fiscalYear},
	})
	return saved, nil
}

// Budget returns one budget with its items attached.
func (s *Service) Budget(ctx context.Context, id uuid.UUID) (ledger.Budget, []ledger.BudgetItem, error) {
	b, err := s.store.BudgetByID(ctx, id)
	if err != nil {
		return ledger.Budget{}, nil, err
	}
	items, err := s.store.ItemsForBudget(ctx, id)
	if err != nil {
		return ledger.Budget{}, nil, err
	}
	return b, items, nil
}

// ListBudgets returns all budgets.
func (s *Service) ListBudgets(ctx context.Context) ([]ledger.Budget, error) {
	return s.store.ListBudgets(ctx)
}

// UpsertItem writes an allocation line and recomputes the budget's total
// from its items. The total is always derived, never edited directly.
func (s *Service) UpsertItem(ctx context.Context, budgetID uuid.UUID, in ItemInput, actor string) (ledger.BudgetItem, error) {
	if in.AccountCode == "" {
		return ledger.BudgetItem{}, fmt.Errorf("%w: account_code is required", errs.ErrValidation)
	}
	if in.Budgeted < 0 {
		return ledger.BudgetItem{}, fmt.Errorf("%w: budgeted must be >= 0", errs.ErrInvalidAmount)
	}
	b, err := s.store.BudgetByID(ctx, budgetID)
	if err != nil {
		return ledger.BudgetItem{}, err
	}
	items, err := s.store.ItemsForBudget(ctx, budgetID)
	if err != nil {
		return ledger.BudgetItem{}, err
	}
	item := ledger.BudgetItem{
		ID:          uuid.New(),
		BudgetID:    budgetID,
		AccountCode: in.AccountCode,
		Category:    in.Category,
		Budgeted:    in.Budgeted,
		HardCap:     in.HardCap,
	}
	for _, existing := range items {
		if existing.AccountCode == in.AccountCode {
			item.ID = existing.ID
			item.Actual = existing.Actual
			break
		}
	}
	item.Variance = item.Budgeted - item.Actual
	saved, err := s.store.SaveBudgetItem(ctx, item)
	if err != nil {
		return ledger.BudgetItem{}, err
	}

	var total int64
	replaced := false
	for _, existing := range items {
		if existing.ID == saved.ID {
			total += saved.Budgeted
			replaced = true
			continue
		}
		total += existing.Budgeted
	}
	if !replaced {
		total += saved.Budgeted
	}
	b.TotalBudgeted = total
	if _, err := s.store.UpdateBudget(ctx, b); err != nil {
		return ledger.BudgetItem{}, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: actor, Action: "budget.item", EntityType: "budget_item", EntityID: saved.ID.String(),
		New: map[string]any{"account_code": saved.AccountCode, "budgeted": saved.Budgeted},
	})
	return saved, nil
}

// RecordLiquidation reports spend against a budget. It lands pending and
// only counts toward the gate once approved.
func (s *Service) RecordLiquidation(ctx context.Context, budgetID uuid.UUID, amount int64, notes, actor string) (ledger.BudgetLiquidation, error) {
	if amount <= 0 {
		return ledger.BudgetLiquidation{}, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}
	if _, err := s.store.BudgetByID(ctx, budgetID); err != nil {
		return ledger.BudgetLiquidation{}, err
	}
	l := ledger.BudgetLiquidation{
		ID:       uuid.New(),
		BudgetID: budgetID,
		Amount:   amount,
		Status:   ledger.LiquidationPending,
		Notes:    notes,
		Date:     time.Now().UTC(),
	}
	saved, err := s.store.SaveLiquidation(ctx, l)
	if err != nil {
		return ledger.BudgetLiquidation{}, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: actor, Action: "liquidation.record", EntityType: "budget_liquidation", EntityID: saved.ID.String(),
		New: map[string]any{"amount": amount},
	})
	return saved, nil
}

// ReviewLiquidation approves or rejects a pending liquidation.
func (s *Service) ReviewLiquidation(ctx context.Context, id uuid.UUID, approve bool, actor string) (ledger.BudgetLiquidation, error) {
	l, err := s.store.LiquidationByID(ctx, id)
	if err != nil {
		return ledger.BudgetLiquidation{}, err
	}
	if l.Status != ledger.LiquidationPending {
		return ledger.BudgetLiquidation{}, fmt.Errorf("%w: liquidation is already %s", errs.ErrConflict, l.Status)
	}
	old := l
	if approve {
		l.Status = ledger.LiquidationApproved
	} else {
		l.Status = ledger.LiquidationRejected
	}
	saved, err := s.store.SaveLiquidation(ctx, l)
	if err != nil {
		return ledger.BudgetLiquidation{}, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: actor, Action: "liquidation.review", EntityType: "budget_liquidation", EntityID: saved.ID.String(),
		Old: map[string]any{"status": old.Status}, New: map[string]any{"status": saved.Status},
	})
	return saved, nil
}

// LiquidationPercentage is approved liquidated spend over the allocation. A
// zero allocation counts as fully liquidated, not a division error.
func (s *Service) LiquidationPercentage(ctx context.Context, budgetID uuid.UUID) (float64, int64, error) {
	b, err := s.store.BudgetByID(ctx, budgetID)
	if err != nil {
		return 0, 0, err
	}
	liqs, err := s.store.LiquidationsForBudget(ctx, budgetID)
	if err != nil {
		return 0, 0, err
	}
	var approved int64
	for _, l := range liqs {
		if l.Status == ledger.LiquidationApproved {
			approved += l.Amount
		}
	}
	if b.TotalBudgeted == 0 {
		return 100, approved, nil
	}
	return float64(approved) / float64(b.TotalBudgeted) * 100, approved, nil
}

// EvaluateGate decides whether a department may open a new budget proposal:
// allowed when its requirement is disabled, when it has no prior allocation,
// or when the latest budget's liquidation percentage meets the requirement.
func (s *Service) EvaluateGate(ctx context.Context, departmentID uuid.UUID) (GateDecision, error) {
	req, err := s.store.RequirementForDepartment(ctx, departmentID)
	if errors.Is(err, errs.ErrNotFound) {
		req = ledger.DefaultLiquidationRequirement(departmentID)
	} else if err != nil {
		return GateDecision{}, err
	}
	if !req.Required {
		return GateDecision{Allowed: true, Reason: "liquidation requirement disabled for department"}, nil
	}

	latest, err := s.store.LatestBudgetForDepartment(ctx, departmentID)
	if errors.Is(err, errs.ErrNotFound) {
		return GateDecision{
			Allowed: true, Reason: "no prior budget for department",
			LiquidationPercentage: 100, RequiredPercentage: req.MinPercentage,
		}, nil
	}
	if err != nil {
		return GateDecision{}, err
	}

	pct, approved, err := s.LiquidationPercentage(ctx, latest.ID)
	if err != nil {
		return GateDecision{}, err
	}
	d := GateDecision{
		LiquidationPercentage: pct,
		RequiredPercentage:    req.MinPercentage,
		Allocated:             latest.TotalBudgeted,
		Liquidated:            approved,
	}
	if latest.TotalBudgeted == 0 {
		d.Allowed = true
		d.Reason = "no allocation on latest budget"
		return d, nil
	}
	if pct >= req.MinPercentage {
		d.Allowed = true
		d.Reason = fmt.Sprintf("liquidation at %.1f%% meets the required %.1f%%", pct, req.MinPercentage)
		return d, nil
	}
	d.Reason = fmt.Sprintf("liquidation at %.1f%% is below the required %.1f%% for budget %q", pct, req.MinPercentage, latest.Name)
	return d, nil
}

// SetRequirement stores a department's liquidation policy.
func (s *Service) SetRequirement(ctx context.Context, r ledger.LiquidationRequirement, actor string) error {
	if r.DepartmentID == uuid.Nil {
		return fmt.Errorf("%w: department_id is required", errs.ErrValidation)
	}
	if r.MinPercentage < 0 || r.MinPercentage > 100 {
		return fmt.Errorf("%w: min_percentage must be within [0,100]", errs.ErrValidation)
	}
	if err := s.store.SaveRequirement(ctx, r); err != nil {
		return err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor: actor, Action: "budget.requirement", EntityType: "department", EntityID: r.DepartmentID.String(),
		New: map[string]any{"required": r.Required, "min_percentage": r.MinPercentage},
	})
	return nil
}
