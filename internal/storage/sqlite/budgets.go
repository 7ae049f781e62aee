package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
)

const budgetColumns = `id, department_id, name, fiscal_year, total_budgeted, status, created_at`

func scanBudget(row rowScanner) (ledger.Budget, error) {
	var b ledger.Budget
	var id, departmentID, createdAt string
	if err := row.Scan(&id, &departmentID, &b.Name, &b.FiscalYear, &b.TotalBudgeted, &b.Status, &createdAt); err != nil {
		return ledger.Budget{}, err
	}
	b.ID, _ = uuid.Parse(id)
	b.DepartmentID, _ = uuid.Parse(departmentID)
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// CreateBudget implements budget.Store.
func (s *Store) CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`) VALUES (?,?,?,?,?,?,?)
	`, b.ID.String(), b.DepartmentID.String(), b.Name, b.FiscalYear, b.TotalBudgeted, string(b.Status), fmtTime(b.CreatedAt))
	if err != nil {
		return ledger.Budget{}, err
	}
	return b, nil
}

// UpdateBudget replaces a budget header.
func (s *Store) UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	res, err := s.writer.ExecContext(ctx, `
		UPDATE budgets SET name=?, fiscal_year=?, total_budgeted=?, status=? WHERE id=?
	`, b.Name, b.FiscalYear, b.TotalBudgeted, string(b.Status), b.ID.String())
	if err != nil {
		return ledger.Budget{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

// BudgetByID returns one budget.
func (s *Store) BudgetByID(ctx context.Context, id uuid.UUID) (ledger.Budget, error) {
	b, err := scanBudget(s.reader.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE id=?
	`, id.String()))
	if err == sql.ErrNoRows {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, err
}

// ListBudgets returns budgets oldest first.
func (s *Store) ListBudgets(ctx context.Context) ([]ledger.Budget, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY created_at`)
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
	b, err := scanBudget(s.reader.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE department_id=? ORDER BY created_at DESC LIMIT 1
	`, departmentID.String()))
	if err == sql.ErrNoRows {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, err
}

func scanBudgetItem(row rowScanner) (ledger.BudgetItem, error) {
	var it ledger.BudgetItem
	var id, budgetID string
	var hardCap int
	if err := row.Scan(&id, &budgetID, &it.AccountCode, &it.Category,
		&it.Budgeted, &it.Actual, &it.Variance, &hardCap); err != nil {
		return ledger.BudgetItem{}, err
	}
	it.ID, _ = uuid.Parse(id)
	it.BudgetID, _ = uuid.Parse(budgetID)
	it.HardCap = hardCap == 1
	return it, nil
}

// ItemsForBudget returns a budget's items ordered by account code.
func (s *Store) ItemsForBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetItem, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT id, budget_id, account_code, category, budgeted, actual, variance, hard_cap
		FROM budget_items WHERE budget_id=? ORDER BY account_code
	`, budgetID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BudgetItem, 0)
	for rows.Next() {
		it, err := scanBudgetItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SaveBudgetItem upserts an item by ID.
func (s *Store) SaveBudgetItem(ctx context.Context, item ledger.BudgetItem) (ledger.BudgetItem, error) {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO budget_items (id, budget_id, account_code, category, budgeted, actual, variance, hard_cap)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE
		SET category=excluded.category, budgeted=excluded.budgeted,
		    actual=excluded.actual, variance=excluded.variance, hard_cap=excluded.hard_cap
	`, item.ID.String(), item.BudgetID.String(), item.AccountCode, item.Category,
		item.Budgeted, item.Actual, item.Variance, boolToInt(item.HardCap))
	if err != nil {
		return ledger.BudgetItem{}, err
	}
	return item, nil
}

func scanLiquidation(row rowScanner) (ledger.BudgetLiquidation, error) {
	var l ledger.BudgetLiquidation
	var id, budgetID, date string
	if err := row.Scan(&id, &budgetID, &l.Amount, &l.Status, &l.Notes, &date); err != nil {
		return ledger.BudgetLiquidation{}, err
	}
	l.ID, _ = uuid.Parse(id)
	l.BudgetID, _ = uuid.Parse(budgetID)
	l.Date = parseTime(date)
	return l, nil
}

// LiquidationsForBudget returns a budget's liquidations oldest first.
func (s *Store) LiquidationsForBudget(ctx context.Context, budgetID uuid.UUID) ([]ledger.BudgetLiquidation, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT id, budget_id, amount, status, notes, date
		FROM budget_liquidations WHERE budget_id=? ORDER BY date
	`, budgetID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BudgetLiquidation, 0)
	for rows.Next() {
		l, err := scanLiquidation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LiquidationByID returns one liquidation.
func (s *Store) LiquidationByID(ctx context.Context, id uuid.UUID) (ledger.BudgetLiquidation, error) {
	l, err := scanLiquidation(s.reader.QueryRowContext(ctx, `
		SELECT id, budget_id, amount, status, notes, date FROM budget_liquidations WHERE id=?
	`, id.String()))
	if err == sql.ErrNoRows {
		return ledger.BudgetLiquidation{}, errs.ErrNotFound
	}
	return l, err
}

// SaveLiquidation upserts a liquidation by ID.
func (s *Store) SaveLiquidation(ctx context.Context, l ledger.BudgetLiquidation) (ledger.BudgetLiquidation, error) {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO budget_liquidations (id, budget_id, amount, status, notes, date)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, notes=excluded.notes
	`, l.ID.String(), l.BudgetID.String(), l.Amount, string(l.Status), l.Notes, fmtTime(l.Date))
	if err != nil {
		return ledger.BudgetLiquidation{}, err
	}
	return l, nil
}

// RequirementForDepartment returns the explicit policy or errs.ErrNotFound.
func (s *Store) RequirementForDepartment(ctx context.Context, departmentID uuid.UUID) (ledger.LiquidationRequirement, error) {
	var r ledger.LiquidationRequirement
	var id string
	var required int
	err := s.reader.QueryRowContext(ctx, `
		SELECT department_id, required, min_percentage FROM liquidation_requirements WHERE department_id=?
	`, departmentID.String()).Scan(&id, &required, &r.MinPercentage)
	if err == sql.ErrNoRows {
		return ledger.LiquidationRequirement{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.LiquidationRequirement{}, err
	}
	r.DepartmentID, _ = uuid.Parse(id)
	r.Required = required == 1
	return r, nil
}

// SaveRequirement upserts a department policy.
func (s *Store) SaveRequirement(ctx context.Context, r ledger.LiquidationRequirement) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO liquidation_requirements (department_id, required, min_percentage)
		VALUES (?,?,?)
		ON CONFLICT(department_id) DO UPDATE
		SET required=excluded.required, min_percentage=excluded.min_percentage
	`, r.DepartmentID.String(), boolToInt(r.Required), r.MinPercentage)
	return err
}
