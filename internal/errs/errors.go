package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
    ErrNotFound = errors.New("not_found")
    ErrConflict = errors.New("conflict")
    ErrInvalid  = errors.New("invalid")
    // ErrValidation is used for semantic validation failures (HTTP 422)
    ErrValidation = errors.New("validation_error")
)

// Bookkeeping invariants. These are never auto-corrected; the caller fixes the
// input, or for ErrStructuralImbalance the operator fixes the master data.
var (
    // ErrTooFewLines indicates an entry with fewer than two lines.
    ErrTooFewLines = errors.New("too_few_lines")
    // ErrInvalidAmount indicates a line amount that is zero, negative, or set on both sides.
    ErrInvalidAmount = errors.New("invalid_amount")
    // ErrUnbalancedEntry indicates sum(debits) != sum(credits).
    ErrUnbalancedEntry = errors.New("unbalanced_entry")
    // ErrImmutableEntry indicates an attempt to mutate an approved or posted entry.
    ErrImmutableEntry = errors.New("immutable_entry")
    // ErrMissingAccount indicates a required account code is absent or inactive
    // in the chart of accounts.
    ErrMissingAccount = errors.New("missing_account")
    // ErrStructuralImbalance indicates the posted ledger itself fails
    // sum(debit) == sum(credit) at report time.
    ErrStructuralImbalance = errors.New("structural_imbalance")
    // ErrInvalidTransition indicates an unknown or backward status transition.
    ErrInvalidTransition = errors.New("invalid_transition")
    // ErrBudgetGateClosed indicates a budget proposal blocked by the liquidation requirement.
    ErrBudgetGateClosed = errors.New("budget_gate_closed")
    // ErrBudgetExceeded indicates a posting would overrun a hard-capped budget item.
    ErrBudgetExceeded = errors.New("budget_exceeded")
)
