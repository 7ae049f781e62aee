package budget

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
)

type memStore struct {
	budgets      map[uuid.UUID]ledger.Budget
	items        map[uuid.UUID]ledger.BudgetItem
	liquidations map[uuid.UUID]ledger.BudgetLiquidation
	requirements map[uuid.UUID]ledger.LiquidationRequirement
	order        []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		budgets:      map[uuid.UUID]ledger.Budget{},
		items:        map[uuid.UUID]ledger.BudgetItem{},
		liquidations: map[uuid.UUID]ledger.BudgetLiquidation{},
		requirements: map[uuid.UUID]ledger.LiquidationRequirement{},
	}
}

func (m *memStore) CreateBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	m.budgets[b.ID] = b
	m.order = append(m.order, b.ID)
	return b, nil
}

func (m *memStore) UpdateBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	if _, ok := m.budgets[b.ID]; !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	m.budgets[b.ID] = b
	return b, nil
}

func (m *memStore) BudgetByID(_ context.Context, id uuid.UUID) (ledger.Budget, error) {
	b, ok := m.budgets[id]
	if !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListBudgets(context.Context) ([]ledger.Budget, error) {
	out := make([]ledger.Budget, 0, len(m.budgets))
	for _, id := range m.order {
		out = append(out, m.budgets[id])
	}
	return out, nil
}

func (m *memStore) LatestBudgetForDepartment(_ context.Context, dept uuid.UUID) (ledger.Budget, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		if b := m.budgets[m.order[i]]; b.DepartmentID == dept {
			return b, nil
		}
	}
	return ledger.Budget{}, errs.ErrNotFound
}

func (m *memStore) ItemsForBudget(_ context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error) {
	var out []ledger.BudgetItem
	for _, it := range m.items {
		if it.BudgetID == budgetID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out, nil
}

func (m *memStore) SaveBudgetItem(_ context.Context, item ledger.BudgetItem) (ledger.BudgetItem, error) {
	m.items[item.ID] = item
	return item, nil
}

func (m *memStore) LiquidationsForBudget(_ context.Context, budgetID uuid.UUID) ([]ledger.BudgetLiquidation, error) {
	var out []ledger.BudgetLiquidation
	for _, l := range m.liquidations {
		if l.BudgetID == budgetID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) LiquidationByID(_ context.Context, id uuid.UUID) (ledger.BudgetLiquidation, error) {
	l, ok := m.liquidations[id]
	if !ok {
		return ledger.BudgetLiquidation{}, errs.ErrNotFound
	}
	return l, nil
}

func (m *memStore) SaveLiquidation(_ context.Context, l ledger.BudgetLiquidation) (ledger.BudgetLiquidation, error) {
	m.liquidations[l.ID] = l
	return l, nil
}

func (m *memStore) RequirementForDepartment(_ context.Context, dept uuid.UUID) (ledger.LiquidationRequirement, error) {
	r, ok := m.requirements[dept]
	if !ok {
		return ledger.LiquidationRequirement{}, errs.ErrNotFound
	}
	return r, nil
}

func (m *memStore) SaveRequirement(_ context.Context, r ledger.LiquidationRequirement) error {
	m.requirements[r.DepartmentID] = r
	return nil
}

func TestTotalBudgetedDerivedFromItems(t *testing.T) {
	store := newMemStore()
	svc := New(store, nil)
	dept := uuid.New()

	b, err := svc.CreateBudget(context.Background(), dept, "Kitchen FY2026", 2026, "controller")
	require.NoError(t, err)
	assert.Zero(t, b.TotalBudgeted)

	_, err = svc.UpsertItem(context.Background(), b.ID, ItemInput{AccountCode: "5101", Budgeted: 500000}, "controller")
	require.NoError(t, err)
	_, err = svc.UpsertItem(context.Background(), b.ID, ItemInput{AccountCode: "5301", Budgeted: 120000}, "controller")
	require.NoError(t, err)

	got, err := store.BudgetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(620000), got.TotalBudgeted)

	// Reallocating an existing account replaces, never accumulates.
	_, err = svc.UpsertItem(context.Background(), b.ID, ItemInput{AccountCode: "5101", Budgeted: 300000}, "controller")
	require.NoError(t, err)
	got, err = store.BudgetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(420000), got.TotalBudgeted)
}

func TestAccrueMaintainsVarianceAndHardCap(t *testing.T) {
	item := ledger.BudgetItem{AccountCode: "5101", Budgeted: 10000}
	require.NoError(t, Accrue(&item, 4000))
	assert.Equal(t, int64(4000), item.Actual)
	assert.Equal(t, int64(6000), item.Variance)

	item.HardCap = true
	err := Accrue(&item, 7000)
	require.ErrorIs(t, err, errs.ErrBudgetExceeded)
	assert.Equal(t, int64(4000), item.Actual)

	require.NoError(t, Accrue(&item, 6000))
	assert.Zero(t, item.Variance)
}

func TestGateDefaultsAndTruthTable(t *testing.T) {
	store := newMemStore()
	svc := New(store, nil)
	ctx := context.Background()
	dept := uuid.New()

	// No prior budget: open.
	d, err := svc.EvaluateGate(ctx, dept)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	b, err := svc.CreateBudget(ctx, dept, "FY2025", 2025, "controller")
	require.NoError(t, err)

	// Zero allocation is fully satisfied, not a division error.
	d, err = svc.EvaluateGate(ctx, dept)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = svc.UpsertItem(ctx, b.ID, ItemInput{AccountCode: "5101", Budgeted: 100000}, "controller")
	require.NoError(t, err)

	// Allocation with no approved liquidation: closed at the default 100%.
	d, err = svc.EvaluateGate(ctx, dept)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "0.0%")

	// Pending liquidations never count.
	l, err := svc.RecordLiquidation(ctx, b.ID, 50000, "Q1 spend", "controller")
	require.NoError(t, err)
	d, err = svc.EvaluateGate(ctx, dept)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	_, err = svc.ReviewLiquidation(ctx, l.ID, true, "manager")
	require.NoError(t, err)
	d, err = svc.EvaluateGate(ctx, dept)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.InDelta(t, 50, d.LiquidationPercentage, 1e-9)
	assert.Contains(t, d.Reason, "50.0%")

	// Lowering the departmental requirement opens the gate.
	require.NoError(t, svc.SetRequirement(ctx, ledger.LiquidationRequirement{
		DepartmentID: dept, Required: true, MinPercentage: 50,
	}, "manager"))
	d, err = svc.EvaluateGate(ctx, dept)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Disabling the requirement short-circuits everything.
	require.NoError(t, svc.SetRequirement(ctx, ledger.LiquidationRequirement{
		DepartmentID: dept, Required: false,
	}, "manager"))
	d, err = svc.EvaluateGate(ctx, dept)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCreateBudgetBlockedByGate(t *testing.T) {
	store := newMemStore()
	svc := New(store, nil)
	ctx := context.Background()
	dept := uuid.New()

	b, err := svc.CreateBudget(ctx, dept, "FY2025", 2025, "controller")
	require.NoError(t, err)
	_, err = svc.UpsertItem(ctx, b.ID, ItemInput{AccountCode: "5101", Budgeted: 100000}, "controller")
	require.NoError(t, err)

	_, err = svc.CreateBudget(ctx, dept, "FY2026", 2026, "controller")
	require.ErrorIs(t, err, errs.ErrBudgetGateClosed)
}

func TestReviewLiquidationTwice(t *testing.T) {
	store := newMemStore()
	svc := New(store, nil)
	ctx := context.Background()

	b, err := svc.CreateBudget(ctx, uuid.New(), "FY2026", 2026, "controller")
	require.NoError(t, err)
	l, err := svc.RecordLiquidation(ctx, b.ID, 100, "", "controller")
	require.NoError(t, err)

	_, err = svc.ReviewLiquidation(ctx, l.ID, false, "manager")
	require.NoError(t, err)
	_, err = svc.ReviewLiquidation(ctx, l.ID, true, "manager")
	require.ErrorIs(t, err, errs.ErrConflict)
}
