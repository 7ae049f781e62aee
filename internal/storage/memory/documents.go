package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

// BillByID implements translate.Store.
func (s *Store) BillByID(_ context.Context, id uuid.UUID) (ledger.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bills[id]
	if !ok {
		return ledger.Bill{}, errs.ErrNotFound
	}
	return *b, nil
}

// InvoiceByID implements translate.Store.
func (s *Store) InvoiceByID(_ context.Context, id uuid.UUID) (ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return ledger.Invoice{}, errs.ErrNotFound
	}
	return *inv, nil
}

// ListBills returns all bills sorted by number.
func (s *Store) ListBills(_ context.Context) ([]ledger.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ListInvoices returns all invoices sorted by number.
func (s *Store) ListInvoices(_ context.Context) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// PostDocument implements translate.Store. The whole posting commits under
// one write lock: document, journal entry with its allocated number, target
// balance movement, and budget actuals land together or not at all. Checks
// that can fail run before any state is touched.
func (s *Store) PostDocument(_ context.Context, p translate.Posting) (ledger.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var targetBill *ledger.Bill
	var targetInvoice *ledger.Invoice
	if p.TargetBillID != uuid.Nil {
		b, ok := s.bills[p.TargetBillID]
		if !ok {
			return ledger.JournalEntry{}, fmt.Errorf("%w: bill %s", errs.ErrNotFound, p.TargetBillID)
		}
		targetBill = b
	}
	if p.TargetInvoiceID != uuid.Nil {
		inv, ok := s.invoices[p.TargetInvoiceID]
		if !ok {
			return ledger.JournalEntry{}, fmt.Errorf("%w: invoice %s", errs.ErrNotFound, p.TargetInvoiceID)
		}
		targetInvoice = inv
	}

	accrued, err := s.accrueActualsLocked(p.BudgetActuals)
	if err != nil {
		return ledger.JournalEntry{}, err
	}

	switch {
	case p.Bill != nil:
		b := *p.Bill
		s.bills[b.ID] = &b
	case p.Invoice != nil:
		inv := *p.Invoice
		s.invoices[inv.ID] = &inv
	case p.Disbursement != nil:
		s.disbursements[p.Disbursement.ID] = *p.Disbursement
	case p.Payment != nil:
		s.payments[p.Payment.ID] = *p.Payment
	case p.Adjustment != nil:
		s.adjustments[p.Adjustment.ID] = *p.Adjustment
	}

	if targetBill != nil && p.BalanceDelta != 0 {
		targetBill.Balance += p.BalanceDelta
		targetBill.Status = ledger.SettleStatus(targetBill.Balance)
	}
	if targetInvoice != nil && p.BalanceDelta != 0 {
		targetInvoice.Balance += p.BalanceDelta
		targetInvoice.Status = ledger.SettleStatus(targetInvoice.Balance)
	}
	for _, item := range accrued {
		s.budgetItems[item.ID] = item
	}
	return s.createEntryLocked(p.Entry), nil
}

// accrueActualsLocked applies per-account spend to the most recent budget
// item carrying each code. The updated items are returned rather than
// written so a hard-cap failure leaves nothing behind. Spend on accounts no
// budget tracks is simply untracked.
func (s *Store) accrueActualsLocked(actuals map[string]int64) ([]ledger.BudgetItem, error) {
	if len(actuals) == 0 {
		return nil, nil
	}
	codes := make([]string, 0, len(actuals))
	for code := range actuals {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var updated []ledger.BudgetItem
	for _, code := range codes {
		item, ok := s.latestItemForCodeLocked(code)
		if !ok {
			continue
		}
		if err := budget.Accrue(&item, actuals[code]); err != nil {
			return nil, err
		}
		updated = append(updated, item)
	}
	return updated, nil
}

func (s *Store) latestItemForCodeLocked(code string) (ledger.BudgetItem, bool) {
	for i := len(s.budgetOrder) - 1; i >= 0; i-- {
		budgetID := s.budgetOrder[i]
		for _, item := range s.budgetItems {
			if item.BudgetID == budgetID && item.AccountCode == code {
				return item, true
			}
		}
	}
	return ledger.BudgetItem{}, false
}
