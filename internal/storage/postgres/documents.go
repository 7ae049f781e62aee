package postgres

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

const billColumns = `id, number, vendor_id, bill_date, due_date, subtotal, tax, total, balance, status`

func scanBill(row pgx.Row) (ledger.Bill, error) {
	var b ledger.Bill
	err := row.Scan(&b.ID, &b.Number, &b.VendorID, &b.BillDate, &b.DueDate,
		&b.Subtotal, &b.Tax, &b.Total, &b.Balance, &b.Status)
	return b, err
}

func (s *Store) billItems(ctx context.Context, billID uuid.UUID) ([]ledger.LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		select account_code, description, line_total from bill_items where bill_id=$1 order by id
	`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ledger.LineItem
	for rows.Next() {
		var it ledger.LineItem
		if err := rows.Scan(&it.AccountCode, &it.Description, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// BillByID implements translate.Store.
func (s *Store) BillByID(ctx context.Context, id uuid.UUID) (ledger.Bill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx, `select `+billColumns+` from bills where id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Bill{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Bill{}, err
	}
	b.Items, err = s.billItems(ctx, id)
	return b, err
}

// ListBills returns all bills with items populated.
func (s *Store) ListBills(ctx context.Context) ([]ledger.Bill, error) {
	rows, err := s.pool.Query(ctx, `select `+billColumns+` from bills order by number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = s.billItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const invoiceColumns = `id, number, customer_id, invoice_date, due_date, subtotal, tax, total, balance, status`

func scanInvoice(row pgx.Row) (ledger.Invoice, error) {
	var inv ledger.Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.InvoiceDate, &inv.DueDate,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Balance, &inv.Status)
	return inv, err
}

func (s *Store) invoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]ledger.LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		select account_code, description, line_total from invoice_items where invoice_id=$1 order by id
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ledger.LineItem
	for rows.Next() {
		var it ledger.LineItem
		if err := rows.Scan(&it.AccountCode, &it.Description, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InvoiceByID implements translate.Store.
func (s *Store) InvoiceByID(ctx context.Context, id uuid.UUID) (ledger.Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, `select `+invoiceColumns+` from invoices where id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Invoice{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Invoice{}, err
	}
	inv.Items, err = s.invoiceItems(ctx, id)
	return inv, err
}

// ListInvoices returns all invoices with items populated.
func (s *Store) ListInvoices(ctx context.Context) ([]ledger.Invoice, error) {
	rows, err := s.pool.Query(ctx, `select `+invoiceColumns+` from invoices order by number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = s.invoiceItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PostDocument implements translate.Store. Everything the posting carries
// commits in a single transaction: document rows, journal entry with its
// allocated number, target balance movement, and budget actuals. Target rows
// and budget items are locked for update before any write.
func (s *Store) PostDocument(ctx context.Context, p translate.Posting) (ledger.JournalEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertDocument(ctx, tx, p); err != nil {
		return ledger.JournalEntry{}, err
	}
	if p.BalanceDelta != 0 {
		if err := applyBalanceDelta(ctx, tx, p); err != nil {
			return ledger.JournalEntry{}, err
		}
	}
	if err := accrueActuals(ctx, tx, p.BudgetActuals); err != nil {
		return ledger.JournalEntry{}, err
	}
	entry := p.Entry
	if err := createEntry(ctx, tx, &entry); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry, nil
}

func insertDocument(ctx context.Context, tx pgx.Tx, p translate.Posting) error {
	switch {
	case p.Bill != nil:
		b := p.Bill
		if _, err := tx.Exec(ctx, `
			insert into bills (id, number, vendor_id, bill_date, due_date, subtotal, tax, total, balance, status)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, b.ID, b.Number, b.VendorID, b.BillDate, b.DueDate, b.Subtotal, b.Tax, b.Total, b.Balance, b.Status); err != nil {
			return err
		}
		for _, it := range b.Items {
			if _, err := tx.Exec(ctx, `
				insert into bill_items (id, bill_id, account_code, description, line_total)
				values ($1,$2,$3,$4,$5)
			`, uuid.New(), b.ID, it.AccountCode, it.Description, it.LineTotal); err != nil {
				return err
			}
		}
	case p.Invoice != nil:
		inv := p.Invoice
		if _, err := tx.Exec(ctx, `
			insert into invoices (id, number, customer_id, invoice_date, due_date, subtotal, tax, total, balance, status)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, inv.ID, inv.Number, inv.CustomerID, inv.InvoiceDate, inv.DueDate, inv.Subtotal, inv.Tax, inv.Total, inv.Balance, inv.Status); err != nil {
			return err
		}
		for _, it := range inv.Items {
			if _, err := tx.Exec(ctx, `
				insert into invoice_items (id, invoice_id, account_code, description, line_total)
				values ($1,$2,$3,$4,$5)
			`, uuid.New(), inv.ID, it.AccountCode, it.Description, it.LineTotal); err != nil {
				return err
			}
		}
	case p.Disbursement != nil:
		d := p.Disbursement
		if _, err := tx.Exec(ctx, `
			insert into disbursements (id, number, payee, purpose, method, disbursement_date, amount, status)
			values ($1,$2,$3,$4,$5,$6,$7,$8)
		`, d.ID, d.Number, d.Payee, d.Purpose, d.Method, d.DisbursementDate, d.Amount, d.Status); err != nil {
			return err
		}
	case p.Payment != nil:
		pay := p.Payment
		if _, err := tx.Exec(ctx, `
			insert into payments (id, number, invoice_id, bill_id, method, payment_date, amount, status)
			values ($1,$2,$3,$4,$5,$6,$7,$8)
		`, pay.ID, pay.Number, nilUUID(pay.InvoiceID), nilUUID(pay.BillID), pay.Method, pay.PaymentDate, pay.Amount, pay.Status); err != nil {
			return err
		}
	case p.Adjustment != nil:
		a := p.Adjustment
		if _, err := tx.Exec(ctx, `
			insert into adjustments (id, number, type, direction, bill_id, invoice_id, adjustment_date, amount, reason, status)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, a.ID, a.Number, a.Type, a.Direction, nilUUID(a.BillID), nilUUID(a.InvoiceID), a.AdjustmentDate, a.Amount, a.Reason, a.Status); err != nil {
			return err
		}
	}
	return nil
}

func nilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// applyBalanceDelta moves the target document's open balance under a row
// lock and rederives its status.
func applyBalanceDelta(ctx context.Context, tx pgx.Tx, p translate.Posting) error {
	table := ""
	var id uuid.UUID
	switch {
	case p.TargetBillID != uuid.Nil:
		table, id = "bills", p.TargetBillID
	case p.TargetInvoiceID != uuid.Nil:
		table, id = "invoices", p.TargetInvoiceID
	default:
		return nil
	}
	var balance int64
	err := tx.QueryRow(ctx, `select balance from `+table+` where id=$1 for update`, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	if err != nil {
		return err
	}
	balance += p.BalanceDelta
	_, err = tx.Exec(ctx, `update `+table+` set balance=$1, status=$2 where id=$3`,
		balance, ledger.SettleStatus(balance), id)
	return err
}

// accrueActuals adds posted spend to the most recent budget item per account
// code, enforcing hard caps. Spend on accounts no budget tracks is untracked.
// Codes are locked in sorted order so concurrent postings over overlapping
// budgets cannot deadlock on opposing lock orders.
func accrueActuals(ctx context.Context, tx pgx.Tx, actuals map[string]int64) error {
	codes := make([]string, 0, len(actuals))
	for code := range actuals {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		amount := actuals[code]
		var item ledger.BudgetItem
		err := tx.QueryRow(ctx, `
			select bi.id, bi.budget_id, bi.account_code, bi.category, bi.budgeted, bi.actual, bi.variance, bi.hard_cap
			from budget_items bi
			join budgets b on b.id = bi.budget_id
			where bi.account_code = $1
			order by b.created_at desc
			limit 1
			for update of bi
		`, code).Scan(&item.ID, &item.BudgetID, &item.AccountCode, &item.Category,
			&item.Budgeted, &item.Actual, &item.Variance, &item.HardCap)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		if err := budget.Accrue(&item, amount); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			update budget_items set actual=$1, variance=$2 where id=$3
		`, item.Actual, item.Variance, item.ID); err != nil {
			return err
		}
	}
	return nil
}
