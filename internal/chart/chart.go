package chart

// Package chart holds the chart-of-accounts registry: the curated default
// chart for a hospitality back office and the typed mapping of roles the
// posting rules depend on. The mapping is resolved once at startup and boot
// fails fast when a required code is missing or inactive, so a chart gap can
// never surface mid-transaction.

import (
	"fmt"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
)

// Key names an account role required by the document translators and report
// builders. Roles are resolved to concrete account codes through a Mapping.
type Key string

const (
	KeyCash              Key = "cash"
	KeyBank              Key = "bank"
	KeyReceivable        Key = "accounts_receivable"
	KeyPayable           Key = "accounts_payable"
	KeySalesTaxPayable   Key = "sales_tax_payable"
	KeySalesRevenue      Key = "sales_revenue"
	KeySalesDiscounts    Key = "sales_discounts"
	KeyDiscountsReceived Key = "discounts_received"
	KeyBadDebtExpense    Key = "bad_debt_expense"
	KeyCOGS              Key = "cost_of_goods_sold"
	KeyTaxExpense        Key = "tax_expense"
	KeyOtherIncome       Key = "other_income"
	KeyRetainedEarnings  Key = "retained_earnings"
	KeyOwnerEquity       Key = "owner_equity"
)

// requiredKeys is the full set the registry must resolve at boot.
var requiredKeys = []Key{
	KeyCash, KeyBank, KeyReceivable, KeyPayable, KeySalesTaxPayable,
	KeySalesRevenue, KeySalesDiscounts, KeyDiscountsReceived,
	KeyBadDebtExpense, KeyCOGS, KeyTaxExpense, KeyOtherIncome,
	KeyRetainedEarnings, KeyOwnerEquity,
}

// Mapping binds roles to account codes.
type Mapping map[Key]string

// DefaultMapping mirrors the codes the back office ships with.
func DefaultMapping() Mapping {
	return Mapping{
		KeyCash:              "1001",
		KeyBank:              "1003",
		KeyReceivable:        "1002",
		KeyPayable:           "2001",
		KeySalesTaxPayable:   "2108",
		KeySalesRevenue:      "4001",
		KeySalesDiscounts:    "5501",
		KeyDiscountsReceived: "4102",
		KeyBadDebtExpense:    "5409",
		KeyCOGS:              "5101",
		KeyTaxExpense:        "5902",
		KeyOtherIncome:       "4309",
		KeyRetainedEarnings:  "3101",
		KeyOwnerEquity:       "3001",
	}
}

// DefaultChart is the seed chart of accounts for a hotel/restaurant entity.
func DefaultChart() []ledger.Account {
	return []ledger.Account{
		{Code: "1001", Name: "Cash on Hand", Type: ledger.AccountTypeAsset, Category: "Current Assets", Cash: true, System: true, Active: true},
		{Code: "1002", Name: "Accounts Receivable", Type: ledger.AccountTypeAsset, Category: "Current Assets", System: true, Active: true},
		{Code: "1003", Name: "Cash in Bank", Type: ledger.AccountTypeAsset, Category: "Current Assets", Cash: true, System: true, Active: true},
		{Code: "1101", Name: "Office Supplies", Type: ledger.AccountTypeAsset, Category: "Current Assets", Active: true},
		{Code: "1201", Name: "Food & Beverage Inventory", Type: ledger.AccountTypeAsset, Category: "Current Assets", Active: true},
		{Code: "1301", Name: "Furniture & Fixtures", Type: ledger.AccountTypeAsset, Category: "Fixed Assets", Active: true},
		{Code: "2001", Name: "Accounts Payable", Type: ledger.AccountTypeLiability, Category: "Current Liabilities", System: true, Active: true},
		{Code: "2101", Name: "Loans Payable", Type: ledger.AccountTypeLiability, Category: "Current Liabilities", Active: true},
		{Code: "2108", Name: "Sales Tax Payable", Type: ledger.AccountTypeLiability, Category: "Current Liabilities", System: true, Active: true},
		{Code: "3001", Name: "Owner's Equity", Type: ledger.AccountTypeEquity, Category: "Equity", System: true, Active: true},
		{Code: "3101", Name: "Retained Earnings", Type: ledger.AccountTypeEquity, Category: "Equity", System: true, Active: true},
		{Code: "4001", Name: "Service Revenue", Type: ledger.AccountTypeRevenue, Category: "Revenue", System: true, Active: true},
		{Code: "4101", Name: "Room Revenue", Type: ledger.AccountTypeRevenue, Category: "Revenue", Active: true},
		{Code: "4102", Name: "Discounts Received", Type: ledger.AccountTypeRevenue, Category: "Other Income", System: true, Active: true},
		{Code: "4201", Name: "Food & Beverage Sales", Type: ledger.AccountTypeRevenue, Category: "Revenue", Active: true},
		{Code: "4309", Name: "Other Income", Type: ledger.AccountTypeRevenue, Category: "Other Income", System: true, Active: true},
		{Code: "5101", Name: "Cost of Goods Sold", Type: ledger.AccountTypeExpense, Category: "Cost of Sales", System: true, Active: true},
		{Code: "5201", Name: "Salaries & Wages", Type: ledger.AccountTypeExpense, Category: "Operating Expenses", Active: true},
		{Code: "5301", Name: "Utilities Expense", Type: ledger.AccountTypeExpense, Category: "Operating Expenses", Active: true},
		{Code: "5403", Name: "Office Supplies Expense", Type: ledger.AccountTypeExpense, Category: "Operating Expenses", Active: true},
		{Code: "5409", Name: "Bad Debt Expense", Type: ledger.AccountTypeExpense, Category: "Operating Expenses", System: true, Active: true},
		{Code: "5501", Name: "Sales Discounts", Type: ledger.AccountTypeExpense, Category: "Contra Revenue", System: true, Active: true},
		{Code: "5902", Name: "Taxes & Licenses", Type: ledger.AccountTypeExpense, Category: "Operating Expenses", System: true, Active: true},
	}
}

// Registry is the resolved role->account view used by translators and
// reports. It is immutable after Resolve.
type Registry struct {
	byKey  map[Key]ledger.Account
	byCode map[string]ledger.Account
}

// Resolve builds a Registry from the live chart, failing on any role whose
// code is absent or inactive.
func Resolve(accounts []ledger.Account, mapping Mapping) (*Registry, error) {
	byCode := make(map[string]ledger.Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	byKey := make(map[Key]ledger.Account, len(requiredKeys))
	for _, k := range requiredKeys {
		code, ok := mapping[k]
		if !ok || code == "" {
			return nil, fmt.Errorf("%w: no code mapped for role %q", errs.ErrMissingAccount, k)
		}
		acc, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: role %q expects account %s", errs.ErrMissingAccount, k, code)
		}
		if !acc.Active {
			return nil, fmt.Errorf("%w: account %s (%s) is inactive", errs.ErrMissingAccount, code, k)
		}
		byKey[k] = acc
	}
	return &Registry{byKey: byKey, byCode: byCode}, nil
}

// Require returns the account bound to a role. Resolve guarantees presence,
// so a miss here means the registry was built with a different key set.
func (r *Registry) Require(k Key) (ledger.Account, error) {
	acc, ok := r.byKey[k]
	if !ok {
		return ledger.Account{}, fmt.Errorf("%w: role %q not resolved", errs.ErrMissingAccount, k)
	}
	return acc, nil
}

// Code returns the account code bound to a role, or "" when unresolved.
func (r *Registry) Code(k Key) string {
	return r.byKey[k].Code
}

// MethodAccount picks the funding account for a payment method: bank for
// transfers and checks, cash otherwise.
func (r *Registry) MethodAccount(m ledger.PaymentMethod) (ledger.Account, error) {
	switch m {
	case ledger.MethodBankTransfer, ledger.MethodCheck:
		return r.Require(KeyBank)
	default:
		return r.Require(KeyCash)
	}
}
