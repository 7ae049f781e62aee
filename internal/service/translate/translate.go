package translate

// Package translate maps source documents onto journal entry requests. Each
// document type has one pure translator encoding its fixed account-selection
// rule; the Service wraps the translators with persistence and the balance
// side effects a posting carries.

import (
	"fmt"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

// DefaultTaxRate applies to invoices that do not override it.
var DefaultTaxRate = decimal.MustParse("0.12")

// TaxOn computes the tax for a subtotal at the given rate, rounded to the
// currency's minor unit.
func TaxOn(currency string, subtotalMinor int64, rate decimal.Decimal) int64 {
	base, err := money.NewAmountFromMinorUnits(currency, subtotalMinor)
	if err != nil {
		return 0
	}
	taxed, err := base.Mul(rate)
	if err != nil {
		return 0
	}
	minor, _ := taxed.RoundToCurr().MinorUnits()
	return minor
}

// Apportion splits total across weights pro rata. The final share absorbs
// the rounding remainder so the shares always sum to total exactly.
func Apportion(total int64, weights []int64) []int64 {
	shares := make([]int64, len(weights))
	if len(weights) == 0 {
		return shares
	}
	var sum int64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		shares[len(shares)-1] = total
		return shares
	}
	var allocated int64
	for i, w := range weights {
		shares[i] = total * w / sum
		allocated += shares[i]
	}
	shares[len(shares)-1] += total - allocated
	return shares
}

// BillEntry builds the posting for an approved bill: debit each item's
// expense account, debit tax expense when tax was charged, credit accounts
// payable for the full obligation.
func BillEntry(reg *chart.Registry, b ledger.Bill, currency, actor string) (journal.EntryInput, error) {
	cogs, err := reg.Require(chart.KeyCOGS)
	if err != nil {
		return journal.EntryInput{}, err
	}
	payable, err := reg.Require(chart.KeyPayable)
	if err != nil {
		return journal.EntryInput{}, err
	}
	lines := make([]journal.LineInput, 0, len(b.Items)+2)
	for _, it := range b.Items {
		code := it.AccountCode
		if code == "" {
			code = cogs.Code
		}
		lines = append(lines, journal.LineInput{
			AccountCode: code,
			Side:        ledger.SideDebit,
			AmountMinor: it.LineTotal,
			Description: it.Description,
		})
	}
	if b.Tax > 0 {
		taxExp, err := reg.Require(chart.KeyTaxExpense)
		if err != nil {
			return journal.EntryInput{}, err
		}
		lines = append(lines, journal.LineInput{
			AccountCode: taxExp.Code,
			Side:        ledger.SideDebit,
			AmountMinor: b.Tax,
			Description: "Tax on bill " + b.Number,
		})
	}
	lines = append(lines, journal.LineInput{
		AccountCode: payable.Code,
		Side:        ledger.SideCredit,
		AmountMinor: b.Total,
		Description: "Payable to vendor",
	})
	return journal.EntryInput{
		Date:        b.BillDate,
		Currency:    currency,
		Description: "Bill " + b.Number,
		Status:      ledger.StatusPosted,
		Reference:   &ledger.DocRef{Type: ledger.DocBill, ID: b.ID},
		CreatedBy:   actor,
		Lines:       lines,
	}, nil
}

// InvoiceEntry builds the posting for a sent invoice: debit accounts
// receivable for the full total, credit each item's revenue account, credit
// sales tax payable when tax was charged.
func InvoiceEntry(reg *chart.Registry, inv ledger.Invoice, currency, actor string) (journal.EntryInput, error) {
	receivable, err := reg.Require(chart.KeyReceivable)
	if err != nil {
		return journal.EntryInput{}, err
	}
	revenue, err := reg.Require(chart.KeySalesRevenue)
	if err != nil {
		return journal.EntryInput{}, err
	}
	lines := make([]journal.LineInput, 0, len(inv.Items)+2)
	lines = append(lines, journal.LineInput{
		AccountCode: receivable.Code,
		Side:        ledger.SideDebit,
		AmountMinor: inv.Total,
		Description: "Receivable from customer",
	})
	for _, it := range inv.Items {
		code := it.AccountCode
		if code == "" {
			code = revenue.Code
		}
		lines = append(lines, journal.LineInput{
			AccountCode: code,
			Side:        ledger.SideCredit,
			AmountMinor: it.LineTotal,
			Description: it.Description,
		})
	}
	if inv.Tax > 0 {
		taxPayable, err := reg.Require(chart.KeySalesTaxPayable)
		if err != nil {
			return journal.EntryInput{}, err
		}
		lines = append(lines, journal.LineInput{
			AccountCode: taxPayable.Code,
			Side:        ledger.SideCredit,
			AmountMinor: inv.Tax,
			Description: "Tax on invoice " + inv.Number,
		})
	}
	return journal.EntryInput{
		Date:        inv.InvoiceDate,
		Currency:    currency,
		Description: "Invoice " + inv.Number,
		Status:      ledger.StatusPosted,
		Reference:   &ledger.DocRef{Type: ledger.DocInvoice, ID: inv.ID},
		CreatedBy:   actor,
		Lines:       lines,
	}, nil
}

// DisbursementEntry builds the posting for a cash disbursement. The funding
// account follows the payment method: bank for transfers and checks, cash
// otherwise.
func DisbursementEntry(reg *chart.Registry, d ledger.Disbursement, currency, actor string) (journal.EntryInput, error) {
	funding, err := reg.MethodAccount(d.Method)
	if err != nil {
		return journal.EntryInput{}, err
	}
	payable, err := reg.Require(chart.KeyPayable)
	if err != nil {
		return journal.EntryInput{}, err
	}
	return journal.EntryInput{
		Date:        d.DisbursementDate,
		Currency:    currency,
		Description: fmt.Sprintf("Disbursement %s to %s", d.Number, d.Payee),
		Status:      ledger.StatusPosted,
		Reference:   &ledger.DocRef{Type: ledger.DocDisbursement, ID: d.ID},
		CreatedBy:   actor,
		Lines: []journal.LineInput{
			{AccountCode: funding.Code, Side: ledger.SideDebit, AmountMinor: d.Amount, Description: d.Purpose},
			{AccountCode: payable.Code, Side: ledger.SideCredit, AmountMinor: d.Amount, Description: "Settlement of payables"},
		},
	}, nil
}

// PaymentReceivedEntry builds the posting for a customer payment against an
// invoice: debit cash, credit accounts receivable.
func PaymentReceivedEntry(reg *chart.Registry, p ledger.Payment, currency, actor string) (journal.EntryInput, error) {
	cash, err := reg.Require(chart.KeyCash)
	if err != nil {
		return journal.EntryInput{}, err
	}
	receivable, err := reg.Require(chart.KeyReceivable)
	if err != nil {
		return journal.EntryInput{}, err
	}
	return journal.EntryInput{
		Date:        p.PaymentDate,
		Currency:    currency,
		Description: "Payment received " + p.Number,
		Status:      ledger.StatusPosted,
		Reference:   &ledger.DocRef{Type: ledger.DocPaymentReceived, ID: p.ID},
		CreatedBy:   actor,
		Lines: []journal.LineInput{
			{AccountCode: cash.Code, Side: ledger.SideDebit, AmountMinor: p.Amount, Description: "Customer payment"},
			{AccountCode: receivable.Code, Side: ledger.SideCredit, AmountMinor: p.Amount, Description: "Applied to invoice"},
		},
	}, nil
}

// PaymentMadeEntry builds the posting for a vendor payment against a bill:
// debit accounts payable, credit cash.
func PaymentMadeEntry(reg *chart.Registry, p ledger.Payment, currency, actor string) (journal.EntryInput, error) {
	payable, err := reg.Require(chart.KeyPayable)
	if err != nil {
		return journal.EntryInput{}, err
	}
	cash, err := reg.Require(chart.KeyCash)
	if err != nil {
		return journal.EntryInput{}, err
	}
	return journal.EntryInput{
		Date:        p.PaymentDate,
		Currency:    currency,
		Description: "Payment made " + p.Number,
		Status:      ledger.StatusPosted,
		Reference:   &ledger.DocRef{Type: ledger.DocPaymentMade, ID: p.ID},
		CreatedBy:   actor,
		Lines: []journal.LineInput{
			{AccountCode: payable.Code, Side: ledger.SideDebit, AmountMinor: p.Amount, Description: "Settlement of bill"},
			{AccountCode: cash.Code, Side: ledger.SideCredit, AmountMinor: p.Amount, Description: "Vendor payment"},
		},
	}, nil
}

// adjustmentAccounts is the account-selection table for adjustments, keyed by
// type and direction. Each cell is the (debit, credit) role pair. This table
// is business policy and posting behavior must match it exactly.
var adjustmentAccounts = map[ledger.AdjustmentDirection]map[ledger.AdjustmentType][2]chart.Key{
	ledger.DirectionPayable: {
		ledger.AdjCreditMemo: {chart.KeyCOGS, chart.KeyPayable},
		ledger.AdjDebitMemo:  {chart.KeyPayable, chart.KeyCOGS},
		ledger.AdjWriteOff:   {chart.KeyBadDebtExpense, chart.KeyPayable},
		ledger.AdjDiscount:   {chart.KeyPayable, chart.KeyDiscountsReceived},
	},
	ledger.DirectionReceivable: {
		ledger.AdjCreditMemo: {chart.KeyReceivable, chart.KeySalesDiscounts},
		ledger.AdjDebitMemo:  {chart.KeySalesDiscounts, chart.KeyReceivable},
		ledger.AdjWriteOff:   {chart.KeyBadDebtExpense, chart.KeyReceivable},
		ledger.AdjDiscount:   {chart.KeySalesDiscounts, chart.KeyReceivable},
	},
}

// AdjustmentEntry builds the posting for an adjustment from the fixed
// type/direction table above.
func AdjustmentEntry(reg *chart.Registry, a ledger.Adjustment, currency, actor string) (journal.EntryInput, error) {
	byType, ok := adjustmentAccounts[a.Direction]
	if !ok {
		return journal.EntryInput{}, fmt.Errorf("%w: unknown adjustment direction %q", errs.ErrValidation, a.Direction)
	}
	pair, ok := byType[a.Type]
	if !ok {
		return journal.EntryInput{}, fmt.Errorf("%w: unknown adjustment type %q", errs.ErrValidation, a.Type)
	}
	debit, err := reg.Require(pair[0])
	if err != nil {
		return journal.EntryInput{}, err
	}
	credit, err := reg.Require(pair[1])
	if err != nil {
		return journal.EntryInput{}, err
	}
	desc := fmt.Sprintf("Adjustment %s (%s)", a.Number, a.Type)
	return journal.EntryInput{
		Date:        a.AdjustmentDate,
		Currency:    currency,
		Description: desc,
		Status:      ledger.StatusPosted,
		Reference:   &ledger.DocRef{Type: ledger.DocAdjustment, ID: a.ID},
		CreatedBy:   actor,
		Lines: []journal.LineInput{
			{AccountCode: debit.Code, Side: ledger.SideDebit, AmountMinor: a.Amount, Description: a.Reason},
			{AccountCode: credit.Code, Side: ledger.SideCredit, AmountMinor: a.Amount, Description: a.Reason},
		},
	}, nil
}
