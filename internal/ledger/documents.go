package ledger

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType identifies the business document class behind a journal entry.
type DocumentType string

const (
	DocBill            DocumentType = "bill"
	DocInvoice         DocumentType = "invoice"
	DocDisbursement    DocumentType = "disbursement"
	DocPaymentReceived DocumentType = "payment_received"
	DocPaymentMade     DocumentType = "payment_made"
	DocAdjustment      DocumentType = "adjustment"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocBill, DocInvoice, DocDisbursement, DocPaymentReceived, DocPaymentMade, DocAdjustment:
		return true
	}
	return false
}

// DocumentStatus is the shared lifecycle vocabulary of source documents.
type DocumentStatus string

const (
	DocStatusDraft    DocumentStatus = "draft"
	DocStatusApproved DocumentStatus = "approved"
	DocStatusSent     DocumentStatus = "sent"
	DocStatusPartial  DocumentStatus = "partial"
	DocStatusPaid     DocumentStatus = "paid"
	DocStatusOverdue  DocumentStatus = "overdue"
	DocStatusVoid     DocumentStatus = "void"
)

// LineItem is one line of a bill or invoice. LineTotal is in minor units.
// AccountCode may be empty, in which case the translator falls back to the
// document's default expense/revenue account.
type LineItem struct {
	AccountCode string
	Description string
	LineTotal   int64
}

// Bill is a vendor obligation (accounts payable). Amounts are minor units.
type Bill struct {
	ID           uuid.UUID
	Number       string
	VendorID     uuid.UUID
	BillDate     time.Time
	DueDate      time.Time
	Subtotal     int64
	Tax          int64
	Total        int64
	// Balance is the open amount still owed; payments and adjustments move it.
	Balance      int64
	Status       DocumentStatus
	Items        []LineItem
}

// Invoice is a customer obligation (accounts receivable). Amounts are minor units.
type Invoice struct {
	ID          uuid.UUID
	Number      string
	CustomerID  uuid.UUID
	InvoiceDate time.Time
	DueDate     time.Time
	Subtotal    int64
	Tax         int64
	Total       int64
	Balance     int64
	Status      DocumentStatus
	Items       []LineItem
}

// PaymentMethod selects the funding account for disbursements and payments.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCheck        PaymentMethod = "check"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// Disbursement is a direct cash outflow settling accounts payable.
type Disbursement struct {
	ID               uuid.UUID
	Number           string
	Payee            string
	Purpose          string
	Method           PaymentMethod
	DisbursementDate time.Time
	Amount           int64
	Status           DocumentStatus
}

// Payment settles an invoice (received) or a bill (made). Direction is fixed
// by the document type the caller submits.
type Payment struct {
	ID          uuid.UUID
	Number      string
	// InvoiceID is set for payments received, BillID for payments made.
	InvoiceID   uuid.UUID
	BillID      uuid.UUID
	Method      PaymentMethod
	PaymentDate time.Time
	Amount      int64
	Status      DocumentStatus
}

// SettleStatus derives a document's lifecycle status from its open balance
// after a payment or adjustment lands: fully settled documents become paid,
// anything still open becomes partial.
func SettleStatus(balance int64) DocumentStatus {
	if balance <= 0 {
		return DocStatusPaid
	}
	return DocStatusPartial
}

// AdjustmentType narrows the posting rule for an adjustment.
type AdjustmentType string

const (
	AdjCreditMemo AdjustmentType = "credit_memo"
	AdjDebitMemo  AdjustmentType = "debit_memo"
	AdjWriteOff   AdjustmentType = "write_off"
	AdjDiscount   AdjustmentType = "discount"
)

// Valid reports whether t is a known adjustment type.
func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjCreditMemo, AdjDebitMemo, AdjWriteOff, AdjDiscount:
		return true
	}
	return false
}

// AdjustmentDirection distinguishes payable (bill-side) from receivable
// (invoice-side) adjustments.
type AdjustmentDirection string

const (
	DirectionPayable    AdjustmentDirection = "payable"
	DirectionReceivable AdjustmentDirection = "receivable"
)

// Adjustment corrects an open bill or invoice without touching the journal
// entry that recorded the original obligation; it posts its own entry.
type Adjustment struct {
	ID             uuid.UUID
	Number         string
	Type           AdjustmentType
	Direction      AdjustmentDirection
	BillID         uuid.UUID
	InvoiceID      uuid.UUID
	AdjustmentDate time.Time
	Amount         int64
	Reason         string
	Status         DocumentStatus
}

// BalanceDelta returns the signed change an adjustment applies to its source
// document's open balance: debit memos increase it, every other type reduces it.
func (a Adjustment) BalanceDelta() int64 {
	if a.Type == AdjDebitMemo {
		return a.Amount
	}
	return -a.Amount
}
