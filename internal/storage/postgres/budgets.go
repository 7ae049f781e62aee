package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
)

const budgetColumns = `id, department_id, name, fiscal_year, total_budgeted, status, created_at`

func scanBudget(row pgx.Row) (ledger.Budget, error) {
	var b ledger.Budget
	err := row.Scan(&b.ID, &b.DepartmentID, &b.Name, &b.FiscalYear, &b.TotalBudgeted, &b.Status, &b.CreatedAt)
	return b, err
}

// CreateBudget implements budget.Store.
func (s *Store) CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	_, err := s.pool.Exec(ctx, `
		insert into budgets (`+budgetColumns+`) values ($1,$2,$3,$4,$5,$6,$7)
	`, b.ID, b.DepartmentID, b.Name, b.FiscalYear, b.TotalBudgeted, b.Status, b.CreatedAt)
	if err != nil {
		return ledger.Budget{}, err
	}
	return b, nil
}

// UpdateBudget replaces a budget header.
func (s *Store) UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	ct, err := s.pool.Exec(ctx, `
		update budgets set name=$1, fiscal_year=$2, total_budgeted=$3, status=$4 where id=$5
	`, b.Name, b.FiscalYear, b.TotalBudgeted, b.Status, b.ID)
	if err != nil {
		return ledger.Budget{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

// BudgetByID returns one budget.
func (s *Store) BudgetByID(ctx context.Context, id uuid.UUID) (ledger.Budget, error) {
	b, err := scanBudget(s.pool.QueryRow(ctx, `select `+budgetColumns+` from budgets where id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, err
}

// ListBudgets returns budgets oldest first.
func (s *Store) ListBudgets(ctx context.Context) ([]ledger.Budget, error) {
	rows, err := s.pool.Query(ctx, `select `+budgetColumns+` from budgets order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LatestBudgetForDepartment returns the most recently created budget for a
// department, or errs.ErrNotFound.
func (s *Store) LatestBudgetForDepartment(ctx context.Context, departmentID uuid.UUID) (ledger.Budget, error) {
	b, err := scanBudget(s.pool.QueryRow(ctx, `
		select `+budgetColumns+` from budgets where department_id=$1 order by created_at desc limit 1
	`, departmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, err
}

// ItemsForBudget returns a budget's items ordered by account code.
func (s *Store) ItemsForBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error) {
	rows, err := s.pool.Query(ctx, `
		select id, budget_id, account_code, category, budgeted, actual, variance, hard_cap
		from budget_items where budget_id=$1 order by account_code
	`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BudgetItem, 0)
	for rows.Next() {
		var it ledger.BudgetItem
		if err := rows.Scan(&it.ID, &it.BudgetID, &it.AccountCode, &it.Category,
			&it.Budgeted, &it.Actual, &it.Variance, &it.HardCap); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SaveBudgetItem upserts an item by ID.
func (s *Store) SaveBudgetItem(ctx context.Context, item ledger.BudgetItem) (ledger.BudgetItem, error) {
	_, err := s.pool.Exec(ctx, `
		insert into budget_items (id, budget_id, account_code, category, budgeted, actual, variance, hard_cap)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (id) do update
		set category=excluded.category, budgeted=excluded.budgeted,
		    actual=excluded.actual, variance=excluded.variance, hard_cap=excluded.hard_cap
	`, item.ID, item.BudgetID, item.AccountCode, item.Category, item.Budgeted, item.Actual, item.Variance, item.HardCap)
	if err != nil {
		return ledger.BudgetItem{}, err
	}
	return item, nil
}

// LiquidationsForBudget returns a budget's liquidations oldest first.
func (s *Store) LiquidationsForBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetLiquidation, error) {
	rows, err := s.pool.Query(ctx, `
		select id, budget_id, amount, status, notes, date
		from budget_liquidations where budget_id=$1 order by date
	`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BudgetLiquidation, 0)
	for rows.Next() {
		var l ledger.BudgetLiquidation
		if err := rows.Scan(&l.ID, &l.BudgetID, &l.Amount, &l.Status, &l.Notes, &l.Date); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LiquidationByID returns one liquidation.
func (s *Store) LiquidationByID(ctx context.Context, id uuid.UUID) (ledger.BudgetLiquidation, error) {
	var l ledger.BudgetLiquidation
	err := s.pool.QueryRow(ctx, `
		select id, budget_id, amount, status, notes, date from budget_liquidations where id=$1
	`, id).Scan(&l.ID, &l.BudgetID, &l.Amount, &l.Status, &l.Notes, &l.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.BudgetLiquidation{}, errs.ErrNotFound
	}
	return l, err
}

// SaveLiquidation upserts a liquidation by ID.
func (s *Store) SaveLiquidation(ctx context.Context, l ledger.BudgetLiquidation) (ledger.BudgetLiquidation, error) {
	_, err := s.pool.Exec(ctx, `
		insert into budget_liquidations (id, budget_id, amount, status, notes, date)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (id) do update set status=excluded.status, notes=excluded.notes
	`, l.ID, l.BudgetID, l.Amount, l.Status, l.Notes, l.Date)
	if err != nil {
		return ledger.BudgetLiquidation{}, err
	}
	return l, nil
}

// RequirementForDepartment returns the explicit policy or errs.ErrNotFound.
func (s *Store) RequirementForDepartment(ctx context.Context, departmentID uuid.UUID) (ledger.LiquidationRequirement, error) {
	var r ledger.LiquidationRequirement
	err := s.pool.QueryRow(ctx, `
		select department_id, required, min_percentage from liquidation_requirements where department_id=$1
	`, departmentID).Scan(&r.DepartmentID, &r.Required, &r.MinPercentage)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.LiquidationRequirement{}, errs.ErrNotFound
	}
	return r, err
}

// SaveRequirement upserts a department policy.
func (s *Store) SaveRequirement(ctx context.Context, r ledger.LiquidationRequirement) error {
	_, err := s.pool.Exec(ctx, `
		insert into liquidation_requirements (department_id, required, min_percentage)
		values ($1,$2,$3)
		on conflict (department_id) do update
		set required=excluded.required, min_percentage=excluded.min_percentage
	`, r.DepartmentID, r.Required, r.MinPercentage)
	return err
}
