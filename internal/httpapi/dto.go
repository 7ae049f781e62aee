package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/journal"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

type postEntryRequest struct {
	Date        time.Time          `json:"date"`
	Currency    string             `json:"currency"`
	Description string             `json:"description"`
	Status      ledger.EntryStatus `json:"status,omitempty"`
	CreatedBy   string             `json:"created_by"`
	Lines       []postEntryLine    `json:"lines"`
}

type postEntryLine struct {
	AccountCode string      `json:"account_code"`
	Side        ledger.Side `json:"side"`
	AmountMinor int64       `json:"amount_minor"`
	Description string      `json:"description,omitempty"`
}

func toEntryInput(req postEntryRequest) journal.EntryInput {
	lines := make([]journal.LineInput, 0, len(req.Lines))
	for _, ln := range req.Lines {
		lines = append(lines, journal.LineInput{
			AccountCode: ln.AccountCode,
			Side:        ln.Side,
			AmountMinor: ln.AmountMinor,
			Description: ln.Description,
		})
	}
	return journal.EntryInput{
		Date:        req.Date,
		Currency:    req.Currency,
		Description: req.Description,
		Status:      req.Status,
		CreatedBy:   req.CreatedBy,
		Lines:       lines,
	}
}

type docRefResponse struct {
	Type ledger.DocumentType `json:"type"`
	ID   uuid.UUID           `json:"id"`
}

type entryResponse struct {
	ID          uuid.UUID          `json:"id"`
	Number      string             `json:"number"`
	Date        time.Time          `json:"date"`
	Currency    string             `json:"currency"`
	Description string             `json:"description"`
	Status      ledger.EntryStatus `json:"status"`
	Reference   *docRefResponse    `json:"reference,omitempty"`
	CreatedBy   string             `json:"created_by,omitempty"`
	PostedBy    string             `json:"posted_by,omitempty"`
	PostedAt    *time.Time         `json:"posted_at,omitempty"`
	Lines       []lineResponse     `json:"lines"`
}

type lineResponse struct {
	ID          uuid.UUID   `json:"id"`
	AccountCode string      `json:"account_code"`
	Side        ledger.Side `json:"side"`
	AmountMinor int64       `json:"amount_minor"`
	Description string      `json:"description,omitempty"`
}

func toEntryResponse(e ledger.JournalEntry) entryResponse {
	lines := make([]lineResponse, 0, len(e.Lines))
	for _, ln := range e.Lines {
		lines = append(lines, lineResponse{
			ID:          ln.ID,
			AccountCode: ln.AccountCode,
			Side:        ln.Side,
			AmountMinor: ln.MinorUnits(),
			Description: ln.Description,
		})
	}
	resp := entryResponse{
		ID:          e.ID,
		Number:      e.Number,
		Date:        e.Date,
		Currency:    e.Currency,
		Description: e.Description,
		Status:      e.Status,
		CreatedBy:   e.CreatedBy,
		PostedBy:    e.PostedBy,
		PostedAt:    e.PostedAt,
		Lines:       lines,
	}
	if e.Reference != nil {
		resp.Reference = &docRefResponse{Type: e.Reference.Type, ID: e.Reference.ID}
	}
	return resp
}

type transitionRequest struct {
	Status ledger.EntryStatus `json:"status"`
	Actor  string             `json:"actor"`
}

// Accounts

type accountRequest struct {
	Code     string             `json:"code"`
	Name     string             `json:"name"`
	Type     ledger.AccountType `json:"type"`
	Category string             `json:"category,omitempty"`
	Cash     bool               `json:"cash,omitempty"`
	Metadata map[string]string  `json:"metadata,omitempty"`
	Active   *bool              `json:"active,omitempty"`
}

type accountResponse struct {
	Code     string             `json:"code"`
	Name     string             `json:"name"`
	Type     ledger.AccountType `json:"type"`
	Category string             `json:"category,omitempty"`
	Cash     bool               `json:"cash"`
	Metadata map[string]string  `json:"metadata,omitempty"`
	System   bool               `json:"system"`
	Active   bool               `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		Code:     a.Code,
		Name:     a.Name,
		Type:     a.Type,
		Category: a.Category,
		Cash:     a.Cash,
		Metadata: a.Metadata,
		System:   a.System,
		Active:   a.Active,
	}
}

type balanceResponse struct {
	AccountCode  string    `json:"account_code"`
	AsOf         time.Time `json:"as_of"`
	BalanceMinor int64     `json:"balance_minor"`
}

// Documents

type documentItem struct {
	AccountCode string `json:"account_code,omitempty"`
	Description string `json:"description,omitempty"`
	AmountMinor int64  `json:"amount_minor"`
}

func toItemInputs(items []documentItem) []translate.ItemInput {
	out := make([]translate.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, translate.ItemInput{
			AccountCode: it.AccountCode,
			Description: it.Description,
			AmountMinor: it.AmountMinor,
		})
	}
	return out
}

type billRequest struct {
	Number   string         `json:"number,omitempty"`
	VendorID uuid.UUID      `json:"vendor_id"`
	BillDate time.Time      `json:"bill_date"`
	DueDate  time.Time      `json:"due_date"`
	TaxMinor int64          `json:"tax_minor,omitempty"`
	Items    []documentItem `json:"items"`
	Actor    string         `json:"actor,omitempty"`
}

type invoiceRequest struct {
	Number      string         `json:"number,omitempty"`
	CustomerID  uuid.UUID      `json:"customer_id"`
	InvoiceDate time.Time      `json:"invoice_date"`
	DueDate     time.Time      `json:"due_date"`
	TaxRate     string         `json:"tax_rate,omitempty"`
	Items       []documentItem `json:"items"`
	Actor       string         `json:"actor,omitempty"`
}

type disbursementRequest struct {
	Number      string               `json:"number,omitempty"`
	Payee       string               `json:"payee"`
	Purpose     string               `json:"purpose,omitempty"`
	Method      ledger.PaymentMethod `json:"method"`
	Date        time.Time            `json:"date"`
	AmountMinor int64                `json:"amount_minor"`
	Actor       string               `json:"actor,omitempty"`
}

type paymentRequest struct {
	Number      string               `json:"number,omitempty"`
	InvoiceID   uuid.UUID            `json:"invoice_id,omitempty"`
	BillID      uuid.UUID            `json:"bill_id,omitempty"`
	Method      ledger.PaymentMethod `json:"method"`
	Date        time.Time            `json:"date"`
	AmountMinor int64                `json:"amount_minor"`
	Actor       string               `json:"actor,omitempty"`
}

type adjustmentRequest struct {
	Number      string                `json:"number,omitempty"`
	Type        ledger.AdjustmentType `json:"type"`
	BillID      uuid.UUID             `json:"bill_id,omitempty"`
	InvoiceID   uuid.UUID             `json:"invoice_id,omitempty"`
	Date        time.Time             `json:"date"`
	AmountMinor int64                 `json:"amount_minor"`
	Reason      string                `json:"reason,omitempty"`
	Actor       string                `json:"actor,omitempty"`
}

type documentResponse struct {
	DocumentID uuid.UUID     `json:"document_id"`
	Entry      entryResponse `json:"entry"`
}

func toDocumentResponse(res translate.Result) documentResponse {
	return documentResponse{DocumentID: res.DocumentID, Entry: toEntryResponse(res.Entry)}
}

// Budgets

type budgetRequest struct {
	DepartmentID uuid.UUID `json:"department_id"`
	Name         string    `json:"name"`
	FiscalYear   int       `json:"fiscal_year"`
	Actor        string    `json:"actor,omitempty"`
}

type budgetResponse struct {
	ID            uuid.UUID             `json:"id"`
	DepartmentID  uuid.UUID             `json:"department_id"`
	Name          string                `json:"name"`
	FiscalYear    int                   `json:"fiscal_year"`
	TotalBudgeted int64                 `json:"total_budgeted"`
	Status        ledger.DocumentStatus `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	Items         []budgetItemResponse  `json:"items,omitempty"`
}

type budgetItemResponse struct {
	ID          uuid.UUID `json:"id"`
	AccountCode string    `json:"account_code"`
	Category    string    `json:"category,omitempty"`
	Budgeted    int64     `json:"budgeted"`
	Actual      int64     `json:"actual"`
	Variance    int64     `json:"variance"`
	HardCap     bool      `json:"hard_cap"`
}

func toBudgetResponse(b ledger.Budget, items []ledger.BudgetItem) budgetResponse {
	resp := budgetResponse{
		ID:            b.ID,
		DepartmentID:  b.DepartmentID,
		Name:          b.Name,
		FiscalYear:    b.FiscalYear,
		TotalBudgeted: b.TotalBudgeted,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, budgetItemResponse{
			ID:          it.ID,
			AccountCode: it.AccountCode,
			Category:    it.Category,
			Budgeted:    it.Budgeted,
			Actual:      it.Actual,
			Variance:    it.Variance,
			HardCap:     it.HardCap,
		})
	}
	return resp
}

type budgetItemRequest struct {
	AccountCode string `json:"account_code"`
	Category    string `json:"category,omitempty"`
	Budgeted    int64  `json:"budgeted"`
	HardCap     bool   `json:"hard_cap,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

func (r budgetItemRequest) toInput() budget.ItemInput {
	return budget.ItemInput{
		AccountCode: r.AccountCode,
		Category:    r.Category,
		Budgeted:    r.Budgeted,
		HardCap:     r.HardCap,
	}
}

type liquidationRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Notes       string `json:"notes,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

type liquidationResponse struct {
	ID       uuid.UUID                `json:"id"`
	BudgetID uuid.UUID                `json:"budget_id"`
	Amount   int64                    `json:"amount"`
	Status   ledger.LiquidationStatus `json:"status"`
	Notes    string                   `json:"notes,omitempty"`
	Date     time.Time                `json:"date"`
}

func toLiquidationResponse(l ledger.BudgetLiquidation) liquidationResponse {
	return liquidationResponse{
		ID: l.ID, BudgetID: l.BudgetID, Amount: l.Amount,
		Status: l.Status, Notes: l.Notes, Date: l.Date,
	}
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Actor   string `json:"actor,omitempty"`
}

type requirementRequest struct {
	Required      bool    `json:"required"`
	MinPercentage float64 `json:"min_percentage"`
	Actor         string  `json:"actor,omitempty"`
}
