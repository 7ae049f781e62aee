package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/magnolia-hms/finance/internal/audit"
	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

// Posting bundles everything one document operation commits: the document
// itself, its posted journal entry, the balance delta applied to a referenced
// open document, and the spend rolled into budget items. The store must apply
// the whole bundle atomically; a partial posting must never be observable.
type Posting struct {
	Type         ledger.DocumentType
	Bill         *ledger.Bill
	Invoice      *ledger.Invoice
	Disbursement *ledger.Disbursement
	Payment      *ledger.Payment
	Adjustment   *ledger.Adjustment

	Entry ledger.JournalEntry

	// TargetBillID/TargetInvoiceID reference the open document whose balance
	// moves by BalanceDelta. The store rederives the document status from the
	// resulting balance.
	TargetBillID    uuid.UUID
	TargetInvoiceID uuid.UUID
	BalanceDelta    int64

	// BudgetActuals maps expense account codes to minor-unit spend to be
	// accumulated on matching budget items.
	BudgetActuals map[string]int64
}

// Store is the persistence surface the document service posts through.
type Store interface {
	BillByID(ctx context.Context, id uuid.UUID) (ledger.Bill, error)
	InvoiceByID(ctx context.Context, id uuid.UUID) (ledger.Invoice, error)
	ListBills(ctx context.Context) ([]ledger.Bill, error)
	ListInvoices(ctx context.Context) ([]ledger.Invoice, error)
	PostDocument(ctx context.Context, p Posting) (ledger.JournalEntry, error)
}

// ItemInput is one requested bill or invoice line item.
type ItemInput struct {
	AccountCode string
	Description string
	AmountMinor int64
}

// BillInput is a request to record and post a vendor bill.
type BillInput struct {
	Number   string
	VendorID uuid.UUID
	BillDate time.Time
	DueDate  time.Time
	TaxMinor int64
	Items    []ItemInput
	Actor    string
}

// InvoiceInput is a request to record and post a customer invoice. TaxRate
// overrides the default rate when set; tax is computed on the subtotal.
type InvoiceInput struct {
	Number      string
	CustomerID  uuid.UUID
	InvoiceDate time.Time
	DueDate     time.Time
	TaxRate     *decimal.Decimal
	Items       []ItemInput
	Actor       string
}

// DisbursementInput is a request to record and post a direct cash outflow.
type DisbursementInput struct {
	Number      string
	Payee       string
	Purpose     string
	Method      ledger.PaymentMethod
	Date        time.Time
	AmountMinor int64
	Actor       string
}

// PaymentInput is a request to apply a payment to an open invoice or bill.
// InvoiceID is set for payments received, BillID for payments made.
type PaymentInput struct {
	Number      string
	InvoiceID   uuid.UUID
	BillID      uuid.UUID
	Method      ledger.PaymentMethod
	Date        time.Time
	AmountMinor int64
	Actor       string
}

// AdjustmentInput is a request to adjust an open bill or invoice.
type AdjustmentInput struct {
	Number      string
	Type        ledger.AdjustmentType
	BillID      uuid.UUID
	InvoiceID   uuid.UUID
	Date        time.Time
	AmountMinor int64
	Reason      string
	Actor       string
}

// Result is the outcome of a document posting.
type Result struct {
	DocumentID uuid.UUID
	Entry      ledger.JournalEntry
}

// Service posts source documents: it validates, translates each document
// into a balanced journal entry, and commits document, entry, and balance
// side effects through the store in one transaction.
type Service struct {
	registry *chart.Registry
	journal  journal.Service
	store    Store
	currency string
	auditor  audit.Recorder
}

// New constructs the document service. A nil auditor disables audit output.
func New(registry *chart.Registry, js journal.Service, store Store, currency string, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{registry: registry, journal: js, store: store, currency: currency, auditor: auditor}
}

// PostBill records an approved bill and posts its journal entry. The tax is
// apportioned across the items pro rata when accumulating budget actuals so
// each expense account carries its share of the full cost.
func (s *Service) PostBill(ctx context.Context, in BillInput) (Result, error) {
	if len(in.Items) == 0 {
		return Result{}, fmt.Errorf("%w: bill requires at least one item", errs.ErrValidation)
	}
	var subtotal int64
	for i, it := range in.Items {
		if it.AmountMinor <= 0 {
			return Result{}, fmt.Errorf("%w: item[%d]: amount must be > 0", errs.ErrInvalidAmount, i)
		}
		subtotal += it.AmountMinor
	}
	if in.TaxMinor < 0 {
		return Result{}, fmt.Errorf("%w: tax must be >= 0", errs.ErrInvalidAmount)
	}
	bill := ledger.Bill{
		ID:       uuid.New(),
		Number:   s.documentNumber(in.Number, "BILL", in.BillDate),
		VendorID: in.VendorID,
		BillDate: in.BillDate,
		DueDate:  in.DueDate,
		Subtotal: subtotal,
		Tax:      in.TaxMinor,
		Total:    subtotal + in.TaxMinor,
		Balance:  subtotal + in.TaxMinor,
		Status:   ledger.DocStatusApproved,
		Items:    billItems(s.registry, in.Items),
	}
	entryIn, err := BillEntry(s.registry, bill, s.currency, in.Actor)
	if err != nil {
		return Result{}, err
	}
	if err := s.journal.Validate(ctx, entryIn); err != nil {
		return Result{}, err
	}
	posting := Posting{
		Type:          ledger.DocBill,
		Bill:          &bill,
		Entry:         journal.BuildEntry(entryIn),
		BudgetActuals: billActuals(bill),
	}
	entry, err := s.store.PostDocument(ctx, posting)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, in.Actor, "bill.post", bill.ID, entry)
	return Result{DocumentID: bill.ID, Entry: entry}, nil
}

// PostInvoice records a sent invoice and posts its journal entry.
func (s *Service) PostInvoice(ctx context.Context, in InvoiceInput) (Result, error) {
	if len(in.Items) == 0 {
		return Result{}, fmt.Errorf("%w: invoice requires at least one item", errs.ErrValidation)
	}
	var subtotal int64
	for i, it := range in.Items {
		if it.AmountMinor <= 0 {
			return Result{}, fmt.Errorf("%w: item[%d]: amount must be > 0", errs.ErrInvalidAmount, i)
		}
		subtotal += it.AmountMinor
	}
	rate := DefaultTaxRate
	if in.TaxRate != nil {
		if in.TaxRate.IsNeg() {
			return Result{}, fmt.Errorf("%w: tax rate must be >= 0", errs.ErrInvalidAmount)
		}
		rate = *in.TaxRate
	}
	tax := TaxOn(s.currency, subtotal, rate)
	inv := ledger.Invoice{
		ID:          uuid.New(),
		Number:      s.documentNumber(in.Number, "INV", in.InvoiceDate),
		CustomerID:  in.CustomerID,
		InvoiceDate: in.InvoiceDate,
		DueDate:     in.DueDate,
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       subtotal + tax,
		Balance:     subtotal + tax,
		Status:      ledger.DocStatusSent,
		Items:       invoiceItems(in.Items),
	}
	entryIn, err := InvoiceEntry(s.registry, inv, s.currency, in.Actor)
	if err != nil {
		return Result{}, err
	}
	if err := s.journal.Validate(ctx, entryIn); err != nil {
		return Result{}, err
	}
	posting := Posting{
		Type:    ledger.DocInvoice,
		Invoice: &inv,
		Entry:   journal.BuildEntry(entryIn),
	}
	entry, err := s.store.PostDocument(ctx, posting)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, in.Actor, "invoice.post", inv.ID, entry)
	return Result{DocumentID: inv.ID, Entry: entry}, nil
}

// PostDisbursement records a direct cash outflow and posts its journal entry.
func (s *Service) PostDisbursement(ctx context.Context, in DisbursementInput) (Result, error) {
	if in.AmountMinor <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}
	d := ledger.Disbursement{
		ID:               uuid.New(),
		Number:           s.documentNumber(in.Number, "DISB", in.Date),
		Payee:            in.Payee,
		Purpose:          in.Purpose,
		Method:           in.Method,
		DisbursementDate: in.Date,
		Amount:           in.AmountMinor,
		Status:           ledger.DocStatusPaid,
	}
	entryIn, err := DisbursementEntry(s.registry, d, s.currency, in.Actor)
	if err != nil {
		return Result{}, err
	}
	if err := s.journal.Validate(ctx, entryIn); err != nil {
		return Result{}, err
	}
	posting := Posting{
		Type:         ledger.DocDisbursement,
		Disbursement: &d,
		Entry:        journal.BuildEntry(entryIn),
	}
	entry, err := s.store.PostDocument(ctx, posting)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, in.Actor, "disbursement.post", d.ID, entry)
	return Result{DocumentID: d.ID, Entry: entry}, nil
}

// PostPaymentReceived applies a customer payment to an open invoice, reducing
// its balance and flipping its status when settled.
func (s *Service) PostPaymentReceived(ctx context.Context, in PaymentInput) (Result, error) {
	if in.AmountMinor <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}
	if in.InvoiceID == uuid.Nil {
		return Result{}, fmt.Errorf("%w: invoice_id is required", errs.ErrValidation)
	}
	inv, err := s.store.InvoiceByID(ctx, in.InvoiceID)
	if err != nil {
		return Result{}, err
	}
	if inv.Status == ledger.DocStatusVoid || inv.Status == ledger.DocStatusPaid {
		return Result{}, fmt.Errorf("%w: invoice %s is %s", errs.ErrConflict, inv.Number, inv.Status)
	}
	p := ledger.Payment{
		ID:          uuid.New(),
		Number:      s.documentNumber(in.Number, "RCPT", in.Date),
		InvoiceID:   in.InvoiceID,
		Method:      in.Method,
		PaymentDate: in.Date,
		Amount:      in.AmountMinor,
		Status:      ledger.DocStatusPaid,
	}
	entryIn, err := PaymentReceivedEntry(s.registry, p, s.currency, in.Actor)
	if err != nil {
		return Result{}, err
	}
	if err := s.journal.Validate(ctx, entryIn); err != nil {
		return Result{}, err
	}
	posting := Posting{
		Type:            ledger.DocPaymentReceived,
		Payment:         &p,
		Entry:           journal.BuildEntry(entryIn),
		TargetInvoiceID: in.InvoiceID,
		BalanceDelta:    -in.AmountMinor,
	}
	entry, err := s.store.PostDocument(ctx, posting)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, in.Actor, "payment.received", p.ID, entry)
	return Result{DocumentID: p.ID, Entry: entry}, nil
}

// PostPaymentMade applies a vendor payment to an open bill, reducing its
// balance and flipping its status when settled.
func (s *Service) PostPaymentMade(ctx context.Context, in PaymentInput) (Result, error) {
	if in.AmountMinor <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}
	if in.BillID == uuid.Nil {
		return Result{}, fmt.Errorf("%w: bill_id is required", errs.ErrValidation)
	}
	bill, err := s.store.BillByID(ctx, in.BillID)
	if err != nil {
		return Result{}, err
	}
	if bill.Status == ledger.DocStatusVoid || bill.Status == ledger.DocStatusPaid {
		return Result{}, fmt.Errorf("%w: bill %s is %s", errs.ErrConflict, bill.Number, bill.Status)
	}
	p := ledger.Payment{
		ID:          uuid.New(),
		Number:      s.documentNumber(in.Number, "PMT", in.Date),
		BillID:      in.BillID,
		Method:      in.Method,
		PaymentDate: in.Date,
		Amount:      in.AmountMinor,
		Status:      ledger.DocStatusPaid,
	}
	entryIn, err := PaymentMadeEntry(s.registry, p, s.currency, in.Actor)
	if err != nil {
		return Result{}, err
	}
	if err := s.journal.Validate(ctx, entryIn); err != nil {
		return Result{}, err
	}
	posting := Posting{
		Type:         ledger.DocPaymentMade,
		Payment:      &p,
		Entry:        journal.BuildEntry(entryIn),
		TargetBillID: in.BillID,
		BalanceDelta: -in.AmountMinor,
	}
	entry, err := s.store.PostDocument(ctx, posting)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, in.Actor, "payment.made", p.ID, entry)
	return Result{DocumentID: p.ID, Entry: entry}, nil
}

// PostAdjustment applies a memo, write-off, or discount to an open bill or
// invoice. The direction is inferred from which reference is set; the posting
// rule comes from the fixed type/direction table. Debit memos widen the open
// balance, every other type narrows it.
func (s *Service) PostAdjustment(ctx context.Context, in AdjustmentInput) (Result, error) {
	if in.AmountMinor <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}
	if !in.Type.Valid() {
		return Result{}, fmt.Errorf("%w: unknown adjustment type %q", errs.ErrValidation, in.Type)
	}
	var direction ledger.AdjustmentDirection
	switch {
	case in.BillID != uuid.Nil && in.InvoiceID != uuid.Nil:
		return Result{}, fmt.Errorf("%w: set exactly one of bill_id, invoice_id", errs.ErrValidation)
	case in.BillID != uuid.Nil:
		direction = ledger.DirectionPayable
		if _, err := s.store.BillByID(ctx, in.BillID); err != nil {
			return Result{}, err
		}
	case in.InvoiceID != uuid.Nil:
		direction = ledger.DirectionReceivable
		if _, err := s.store.InvoiceByID(ctx, in.InvoiceID); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("%w: set exactly one of bill_id, invoice_id", errs.ErrValidation)
	}
	adj := ledger.Adjustment{
		ID:             uuid.New(),
		Number:         s.documentNumber(in.Number, "ADJ", in.Date),
		Type:           in.Type,
		Direction:      direction,
		BillID:         in.BillID,
		InvoiceID:      in.InvoiceID,
		AdjustmentDate: in.Date,
		Amount:         in.AmountMinor,
		Reason:         in.Reason,
		Status:         ledger.DocStatusApproved,
	}
	entryIn, err := AdjustmentEntry(s.registry, adj, s.currency, in.Actor)
	if err != nil {
		return Result{}, err
	}
	if err := s.journal.Validate(ctx, entryIn); err != nil {
		return Result{}, err
	}
	posting := Posting{
		Type:            ledger.DocAdjustment,
		Adjustment:      &adj,
		Entry:           journal.BuildEntry(entryIn),
		TargetBillID:    in.BillID,
		TargetInvoiceID: in.InvoiceID,
		BalanceDelta:    adj.BalanceDelta(),
	}
	entry, err := s.store.PostDocument(ctx, posting)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, in.Actor, "adjustment.post", adj.ID, entry)
	return Result{DocumentID: adj.ID, Entry: entry}, nil
}

func (s *Service) record(ctx context.Context, actor, action string, docID uuid.UUID, entry ledger.JournalEntry) {
	s.auditor.Record(ctx, audit.Event{
		Actor:      actor,
		Action:     action,
		EntityType: "document",
		EntityID:   docID.String(),
		New: map[string]any{
			"entry_number": entry.Number,
			"total":        entry.TotalDebit(),
		},
	})
}

// documentNumber keeps a caller-supplied number or derives one from the type
// prefix, the document date, and a short random suffix.
func (s *Service) documentNumber(given, prefix string, date time.Time) string {
	if given != "" {
		return given
	}
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, date.Format("20060102"), suffix)
}

func billItems(reg *chart.Registry, items []ItemInput) []ledger.LineItem {
	out := make([]ledger.LineItem, 0, len(items))
	for _, it := range items {
		code := it.AccountCode
		if code == "" {
			code = reg.Code(chart.KeyCOGS)
		}
		out = append(out, ledger.LineItem{AccountCode: code, Description: it.Description, LineTotal: it.AmountMinor})
	}
	return out
}

func invoiceItems(items []ItemInput) []ledger.LineItem {
	out := make([]ledger.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, ledger.LineItem{AccountCode: it.AccountCode, Description: it.Description, LineTotal: it.AmountMinor})
	}
	return out
}

// billActuals rolls a bill into per-account spend for budget tracking. The
// header tax is apportioned across the items pro rata so every expense
// account carries its share of the full cost, and the shares sum to the
// bill total exactly.
func billActuals(b ledger.Bill) map[string]int64 {
	if len(b.Items) == 0 {
		return nil
	}
	weights := make([]int64, len(b.Items))
	for i, it := range b.Items {
		weights[i] = it.LineTotal
	}
	taxShares := Apportion(b.Tax, weights)
	out := make(map[string]int64, len(b.Items))
	for i, it := range b.Items {
		out[it.AccountCode] += it.LineTotal + taxShares[i]
	}
	return out
}
