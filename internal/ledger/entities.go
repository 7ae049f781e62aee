package ledger

import (
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"

    "github.com/magnolia-hms/finance/internal/meta"
)

// Side represents the accounting position of a journal line.
type Side string

const (
	// SideDebit records a value on the debit side of an account.
	SideDebit Side = "debit"
	// SideCredit records a value on the credit side of an account.
	SideCredit Side = "credit"
)

// AccountType enumerates the broad classification of an account in the ledger.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side and holds resources owned by the business.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability increases on the credit side and tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owners' residual interest in the entity.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeRevenue represents inflows that increase equity.
	AccountTypeRevenue AccountType = "revenue"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "expense"
)

// DebitNormal reports whether balances of this account type accumulate on the
// debit side (asset/expense) rather than the credit side.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// SignedBalance applies the sign convention for an account type to raw
// debit/credit totals in minor units: asset/expense report debit - credit,
// liability/equity/revenue report credit - debit. Every reporting path goes
// through this one function.
func SignedBalance(t AccountType, debit, credit int64) int64 {
	if t.DebitNormal() {
		return debit - credit
	}
	return credit - debit
}

// Account represents one row in the chart of accounts. Code is the stable
// business identifier ("1001", "2108"); accounts referenced by a posted entry
// are immutable except for Name and Active.
type Account struct {
    Code     string
    Name     string
    Type     AccountType
    // Category groups accounts for presentation (e.g. "Current Assets").
    Category string
    // Cash marks cash/bank accounts picked up by the cash-flow report.
    Cash     bool
    // Metadata holds additional key-value attributes for the account.
    Metadata meta.Metadata `json:"metadata,omitempty"`
    // System marks reserved accounts created by the seeder (e.g. Retained Earnings).
    System   bool
    // Active indicates whether the account accepts postings (soft-delete when false).
    Active   bool
}

// DocRef links a journal entry back to the source document that produced it.
type DocRef struct {
	Type DocumentType `json:"type"`
	ID   uuid.UUID    `json:"id"`
}

// JournalEntry captures the header of a balanced set of journal lines.
type JournalEntry struct {
    ID          uuid.UUID
    // Number is the human-facing sequential identifier, "JE-2026-000042",
    // allocated per calendar year at post time.
    Number      string
    Date        time.Time
    Currency    string
    Description string
    Status      EntryStatus
    // Reference is set for entries produced by a document translator.
    Reference   *DocRef
    // Metadata holds additional key-value attributes for the entry.
    Metadata    meta.Metadata `json:"metadata,omitempty"`
    CreatedBy   string
    PostedBy    string
    PostedAt    *time.Time
    Lines       []JournalLine
}

// JournalLine records an amount on one side of one account. Its lifecycle is
// tied to the owning entry: lines are created and deleted as a batch.
type JournalLine struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	AccountCode string
	Side        Side
	Amount      money.Amount
	Description string
}

// MinorUnits returns the line amount in minor currency units.
func (l JournalLine) MinorUnits() int64 {
	units, _ := l.Amount.MinorUnits()
	return units
}

// TotalDebit sums the debit lines of the entry in minor units.
func (e JournalEntry) TotalDebit() int64 {
	var sum int64
	for _, ln := range e.Lines {
		if ln.Side == SideDebit {
			sum += ln.MinorUnits()
		}
	}
	return sum
}

// TotalCredit sums the credit lines of the entry in minor units.
func (e JournalEntry) TotalCredit() int64 {
	var sum int64
	for _, ln := range e.Lines {
		if ln.Side == SideCredit {
			sum += ln.MinorUnits()
		}
	}
	return sum
}

// BalanceTolerance is the permitted debit/credit mismatch in minor units
// (0.01 of a currency unit).
const BalanceTolerance = 1

// Balanced reports whether the entry's debit and credit totals agree within
// BalanceTolerance.
func (e JournalEntry) Balanced() bool {
	diff := e.TotalDebit() - e.TotalCredit()
	if diff < 0 {
		diff = -diff
	}
	return diff <= BalanceTolerance
}
