package report

// Package report derives read-only financial views from posted journal
// activity: account balances, trial balance, balance sheet, income
// statement, a simplified cash flow, and receivable/payable aging. Nothing
// in this package mutates state.

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

// LedgerRepo is the journal read surface the builders aggregate over.
type LedgerRepo interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	ListEntries(ctx context.Context, f journal.EntryFilter) ([]ledger.JournalEntry, error)
}

// DocumentRepo lists open documents for aging.
type DocumentRepo interface {
	ListBills(ctx context.Context) ([]ledger.Bill, error)
	ListInvoices(ctx context.Context) ([]ledger.Invoice, error)
}

// Service builds the reports.
type Service struct {
	ledger LedgerRepo
	docs   DocumentRepo
}

// New constructs the report service.
func New(lr LedgerRepo, dr DocumentRepo) *Service {
	return &Service{ledger: lr, docs: dr}
}

// totals accumulates posted debit and credit minor units for one account.
type totals struct {
	debit  int64
	credit int64
}

// accumulate sums lines per account code over [from, to]. Only posted
// entries contribute unless includeUnposted is set, which pulls in draft
// and approved entries as well.
func (s *Service) accumulate(ctx context.Context, from, to *time.Time, includeUnposted bool) (map[string]totals, error) {
	status := ledger.StatusPosted
	if includeUnposted {
		status = ""
	}
	entries, err := s.ledger.ListEntries(ctx, journal.EntryFilter{
		Status:   status,
		DateFrom: from,
		DateTo:   to,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]totals)
	for _, e := range entries {
		for _, ln := range e.Lines {
			t := out[ln.AccountCode]
			switch ln.Side {
			case ledger.SideDebit:
				t.debit += ln.MinorUnits()
			case ledger.SideCredit:
				t.credit += ln.MinorUnits()
			}
			out[ln.AccountCode] = t
		}
	}
	return out, nil
}

func (s *Service) accountIndex(ctx context.Context) (map[string]ledger.Account, []ledger.Account, error) {
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	byCode := make(map[string]ledger.Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return byCode, accounts, nil
}

// Balance returns the signed balance of one account as of a date, optionally
// ranged from a start date. Accounts with no posted activity yield zero.
func (s *Service) Balance(ctx context.Context, accountCode string, asOf time.Time, from *time.Time) (int64, error) {
	byCode, _, err := s.accountIndex(ctx)
	if err != nil {
		return 0, err
	}
	acc, ok := byCode[accountCode]
	if !ok {
		return 0, fmt.Errorf("%w: account %s", errs.ErrMissingAccount, accountCode)
	}
	sums, err := s.accumulate(ctx, from, &asOf, false)
	if err != nil {
		return 0, err
	}
	t := sums[accountCode]
	return ledger.SignedBalance(acc.Type, t.debit, t.credit), nil
}

// TrialBalanceRow is one account's posted activity up to the report date.
type TrialBalanceRow struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Type        ledger.AccountType `json:"type"`
	DebitTotal  int64              `json:"debit_total"`
	CreditTotal int64              `json:"credit_total"`
	Balance     int64              `json:"balance"`
}

// TrialBalance lists every account with posted activity plus the report
// totals, which must agree for a structurally sound ledger.
type TrialBalance struct {
	AsOf        time.Time         `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  int64             `json:"total_debit"`
	TotalCredit int64             `json:"total_credit"`
}

// BuildTrialBalance emits a row per active account with nonzero totals. When
// the report-level debit and credit totals disagree the ledger itself is
// unbalanced and the call fails with ErrStructuralImbalance rather than
// returning a report that quietly looks fine. includeUnposted produces a
// preview that folds draft and approved entries into the totals.
func (s *Service) BuildTrialBalance(ctx context.Context, asOf time.Time, includeUnposted bool) (TrialBalance, error) {
	byCode, accounts, err := s.accountIndex(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	sums, err := s.accumulate(ctx, nil, &asOf, includeUnposted)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{AsOf: asOf, Rows: []TrialBalanceRow{}}
	for _, acc := range accounts {
		t, ok := sums[acc.Code]
		if !ok || (t.debit == 0 && t.credit == 0) {
			continue
		}
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			Code:        acc.Code,
			Name:        acc.Name,
			Type:        acc.Type,
			DebitTotal:  t.debit,
			CreditTotal: t.credit,
			Balance:     ledger.SignedBalance(acc.Type, t.debit, t.credit),
		})
		tb.TotalDebit += t.debit
		tb.TotalCredit += t.credit
	}
	for code, t := range sums {
		if _, known := byCode[code]; !known && (t.debit != 0 || t.credit != 0) {
			return TrialBalance{}, fmt.Errorf("%w: posted lines reference unknown account %s", errs.ErrStructuralImbalance, code)
		}
	}
	if diff := tb.TotalDebit - tb.TotalCredit; diff > ledger.BalanceTolerance || diff < -ledger.BalanceTolerance {
		return TrialBalance{}, fmt.Errorf("%w: debits=%d credits=%d", errs.ErrStructuralImbalance, tb.TotalDebit, tb.TotalCredit)
	}
	return tb, nil
}

// StatementLine is one account's contribution to a statement section.
type StatementLine struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// IncomeStatement is revenue against expenses over a period.
type IncomeStatement struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Revenue      []StatementLine `json:"revenue"`
	Expenses     []StatementLine `json:"expenses"`
	RevenueTotal int64           `json:"revenue_total"`
	ExpenseTotal int64           `json:"expense_total"`
	NetProfit    int64           `json:"net_profit"`
	// ProfitMargin is NetProfit / RevenueTotal, zero when there is no revenue.
	ProfitMargin float64 `json:"profit_margin"`
}

// BuildIncomeStatement totals revenue and expense accounts over [from, to].
func (s *Service) BuildIncomeStatement(ctx context.Context, from, to time.Time) (IncomeStatement, error) {
	_, accounts, err := s.accountIndex(ctx)
	if err != nil {
		return IncomeStatement{}, err
	}
	sums, err := s.accumulate(ctx, &from, &to, false)
	if err != nil {
		return IncomeStatement{}, err
	}
	st := IncomeStatement{From: from, To: to, Revenue: []StatementLine{}, Expenses: []StatementLine{}}
	for _, acc := range accounts {
		t, ok := sums[acc.Code]
		if !ok {
			continue
		}
		bal := ledger.SignedBalance(acc.Type, t.debit, t.credit)
		if bal == 0 {
			continue
		}
		line := StatementLine{Code: acc.Code, Name: acc.Name, Balance: bal}
		switch acc.Type {
		case ledger.AccountTypeRevenue:
			st.Revenue = append(st.Revenue, line)
			st.RevenueTotal += bal
		case ledger.AccountTypeExpense:
			st.Expenses = append(st.Expenses, line)
			st.ExpenseTotal += bal
		}
	}
	st.NetProfit = st.RevenueTotal - st.ExpenseTotal
	if st.RevenueTotal > 0 {
		st.ProfitMargin = float64(st.NetProfit) / float64(st.RevenueTotal)
	}
	return st, nil
}

// BalanceSheet presents assets against liabilities and equity as of a date.
// RetainedEarnings is the all-time net profit up to the report date.
type BalanceSheet struct {
	AsOf             time.Time       `json:"as_of"`
	Assets           []StatementLine `json:"assets"`
	Liabilities      []StatementLine `json:"liabilities"`
	Equity           []StatementLine `json:"equity"`
	TotalAssets      int64           `json:"total_assets"`
	TotalLiabilities int64           `json:"total_liabilities"`
	TotalEquity      int64           `json:"total_equity"`
	RetainedEarnings int64           `json:"retained_earnings"`
	// Discrepancy is assets minus liabilities-plus-equity. Balanced is false
	// whenever it exceeds the tolerance; callers decide how loudly to react.
	Discrepancy int64 `json:"discrepancy"`
	Balanced    bool  `json:"balanced"`
}

// BuildBalanceSheet assembles the position statement as of a date.
func (s *Service) BuildBalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	_, accounts, err := s.accountIndex(ctx)
	if err != nil {
		return BalanceSheet{}, err
	}
	sums, err := s.accumulate(ctx, nil, &asOf, false)
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BalanceSheet{AsOf: asOf, Assets: []StatementLine{}, Liabilities: []StatementLine{}, Equity: []StatementLine{}}
	var revenue, expense int64
	for _, acc := range accounts {
		t, ok := sums[acc.Code]
		if !ok {
			continue
		}
		bal := ledger.SignedBalance(acc.Type, t.debit, t.credit)
		line := StatementLine{Code: acc.Code, Name: acc.Name, Balance: bal}
		switch acc.Type {
		case ledger.AccountTypeAsset:
			if bal != 0 {
				bs.Assets = append(bs.Assets, line)
				bs.TotalAssets += bal
			}
		case ledger.AccountTypeLiability:
			if bal != 0 {
				bs.Liabilities = append(bs.Liabilities, line)
				bs.TotalLiabilities += bal
			}
		case ledger.AccountTypeEquity:
			if bal != 0 {
				bs.Equity = append(bs.Equity, line)
				bs.TotalEquity += bal
			}
		case ledger.AccountTypeRevenue:
			revenue += bal
		case ledger.AccountTypeExpense:
			expense += bal
		}
	}
	bs.RetainedEarnings = revenue - expense
	bs.TotalEquity += bs.RetainedEarnings
	bs.Discrepancy = bs.TotalAssets - (bs.TotalLiabilities + bs.TotalEquity)
	bs.Balanced = bs.Discrepancy <= ledger.BalanceTolerance && bs.Discrepancy >= -ledger.BalanceTolerance
	return bs, nil
}

// CashFlow is a simplified statement: the net movement of cash-flagged
// accounts over the period, with net profit as the operating proxy. The
// investing and financing sections are deliberate zero placeholders; the
// source data cannot distinguish those activities.
type CashFlow struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	CashAccounts  []StatementLine `json:"cash_accounts"`
	NetCashChange int64           `json:"net_cash_change"`
	Operating     int64           `json:"operating"`
	Investing     int64           `json:"investing"`
	Financing     int64           `json:"financing"`
}

// BuildCashFlow reports the period's cash movement.
func (s *Service) BuildCashFlow(ctx context.Context, from, to time.Time) (CashFlow, error) {
	_, accounts, err := s.accountIndex(ctx)
	if err != nil {
		return CashFlow{}, err
	}
	sums, err := s.accumulate(ctx, &from, &to, false)
	if err != nil {
		return CashFlow{}, err
	}
	cf := CashFlow{From: from, To: to, CashAccounts: []StatementLine{}}
	for _, acc := range accounts {
		if !acc.Cash {
			continue
		}
		t, ok := sums[acc.Code]
		if !ok {
			continue
		}
		change := ledger.SignedBalance(acc.Type, t.debit, t.credit)
		cf.CashAccounts = append(cf.CashAccounts, StatementLine{Code: acc.Code, Name: acc.Name, Balance: change})
		cf.NetCashChange += change
	}
	income, err := s.BuildIncomeStatement(ctx, from, to)
	if err != nil {
		return CashFlow{}, err
	}
	cf.Operating = income.NetProfit
	cf.Investing = 0
	cf.Financing = 0
	return cf, nil
}
