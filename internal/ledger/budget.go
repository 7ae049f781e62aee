package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Budget allocates spend to a department for a fiscal year. TotalBudgeted is
// derived: it is recomputed as the sum of the items after every item write
// and is never set directly by a caller.
type Budget struct {
	ID            uuid.UUID
	DepartmentID  uuid.UUID
	Name          string
	FiscalYear    int
	TotalBudgeted int64
	Status        DocumentStatus
	CreatedAt     time.Time
}

// BudgetItem is one allocation inside a budget, keyed to an expense account.
// Actual accumulates posted spend against the item; Variance is
// Budgeted - Actual, maintained alongside Actual.
type BudgetItem struct {
	ID          uuid.UUID
	BudgetID    uuid.UUID
	AccountCode string
	Category    string
	Budgeted    int64
	Actual      int64
	Variance    int64
	// HardCap rejects postings that would push Actual past Budgeted.
	HardCap     bool
}

// LiquidationStatus is the approval state of a reported spend.
type LiquidationStatus string

const (
	LiquidationPending  LiquidationStatus = "pending"
	LiquidationApproved LiquidationStatus = "approved"
	LiquidationRejected LiquidationStatus = "rejected"
)

// BudgetLiquidation records spend reported against a budget. Only approved
// liquidations count toward the gate percentage.
type BudgetLiquidation struct {
	ID       uuid.UUID
	BudgetID uuid.UUID
	Amount   int64
	Status   LiquidationStatus
	Notes    string
	Date     time.Time
}

// LiquidationRequirement is a department's policy for creating new budget
// proposals. MinPercentage applies only when Required is true.
type LiquidationRequirement struct {
	DepartmentID  uuid.UUID
	Required      bool
	MinPercentage float64
}

// DefaultLiquidationRequirement mirrors the fallback the back office applies
// when a department has no explicit policy: liquidation required at 100%.
func DefaultLiquidationRequirement(departmentID uuid.UUID) LiquidationRequirement {
	return LiquidationRequirement{DepartmentID: departmentID, Required: true, MinPercentage: 100}
}
