package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/errs"
	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

const billColumns = `id, number, vendor_id, bill_date, due_date, subtotal, tax, total, balance, status`

func scanBill(row rowScanner) (ledger.Bill, error) {
	var b ledger.Bill
	var id, vendorID, billDate, dueDate string
	if err := row.Scan(&id, &b.Number, &vendorID, &billDate, &dueDate,
		&b.Subtotal, &b.Tax, &b.Total, &b.Balance, &b.Status); err != nil {
		return ledger.Bill{}, err
	}
	b.ID, _ = uuid.Parse(id)
	b.VendorID, _ = uuid.Parse(vendorID)
	b.BillDate = parseTime(billDate)
	b.DueDate = parseTime(dueDate)
	return b, nil
}

func (s *Store) billItems(ctx context.Context, billID uuid.UUID) ([]ledger.LineItem, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT account_code, description, line_total FROM bill_items WHERE bill_id=? ORDER BY id
	`, billID.String())
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
	b, err := scanBill(s.reader.QueryRowContext(ctx, `
		SELECT `+billColumns+` FROM bills WHERE id=?
	`, id.String()))
	if err == sql.ErrNoRows {
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
	rows, err := s.reader.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY number`)
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

func scanInvoice(row rowScanner) (ledger.Invoice, error) {
	var inv ledger.Invoice
	var id, customerID, invoiceDate, dueDate string
	if err := row.Scan(&id, &inv.Number, &customerID, &invoiceDate, &dueDate,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Balance, &inv.Status); err != nil {
		return ledger.Invoice{}, err
	}
	inv.ID, _ = uuid.Parse(id)
	inv.CustomerID, _ = uuid.Parse(customerID)
	inv.InvoiceDate = parseTime(invoiceDate)
	inv.DueDate = parseTime(dueDate)
	return inv, nil
}

func (s *Store) invoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]ledger.LineItem, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT account_code, description, line_total FROM invoice_items WHERE invoice_id=? ORDER BY id
	`, invoiceID.String())
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
	inv, err := scanInvoice(s.reader.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id=?
	`, id.String()))
	if err == sql.ErrNoRows {
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
	rows, err := s.reader.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY number`)
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

// PostDocument implements translate.Store. The document rows, target balance
// movement, budget actuals, and journal entry commit in one write
// transaction; the serialized writer connection makes the sequence atomic
// with respect to every other write.
func (s *Store) PostDocument(ctx context.Context, p translate.Posting) (ledger.JournalEntry, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer tx.Rollback()

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
	if err := insertEntry(ctx, tx, &entry); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry, nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, p translate.Posting) error {
	switch {
	case p.Bill != nil:
		b := p.Bill
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bills (id, number, vendor_id, bill_date, due_date, subtotal, tax, total, balance, status)
			VALUES (?,?,?,?,?,?,?,?,?,?)
		`, b.ID.String(), b.Number, b.VendorID.String(), fmtTime(b.BillDate), fmtTime(b.DueDate),
			b.Subtotal, b.Tax, b.Total, b.Balance, string(b.Status)); err != nil {
			return err
		}
		for _, it := range b.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO bill_items (id, bill_id, account_code, description, line_total)
				VALUES (?,?,?,?,?)
			`, uuid.NewString(), b.ID.String(), it.AccountCode, it.Description, it.LineTotal); err != nil {
				return err
			}
		}
	case p.Invoice != nil:
		inv := p.Invoice
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (id, number, customer_id, invoice_date, due_date, subtotal, tax, total, balance, status)
			VALUES (?,?,?,?,?,?,?,?,?,?)
		`, inv.ID.String(), inv.Number, inv.CustomerID.String(), fmtTime(inv.InvoiceDate), fmtTime(inv.DueDate),
			inv.Subtotal, inv.Tax, inv.Total, inv.Balance, string(inv.Status)); err != nil {
			return err
		}
		for _, it := range inv.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO invoice_items (id, invoice_id, account_code, description, line_total)
				VALUES (?,?,?,?,?)
			`, uuid.NewString(), inv.ID.String(), it.AccountCode, it.Description, it.LineTotal); err != nil {
				return err
			}
		}
	case p.Disbursement != nil:
		d := p.Disbursement
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO disbursements (id, number, payee, purpose, method, disbursement_date, amount, status)
			VALUES (?,?,?,?,?,?,?,?)
		`, d.ID.String(), d.Number, d.Payee, d.Purpose, string(d.Method),
			fmtTime(d.DisbursementDate), d.Amount, string(d.Status)); err != nil {
			return err
		}
	case p.Payment != nil:
		pay := p.Payment
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, number, invoice_id, bill_id, method, payment_date, amount, status)
			VALUES (?,?,?,?,?,?,?,?)
		`, pay.ID.String(), pay.Number, nilUUID(pay.InvoiceID), nilUUID(pay.BillID),
			string(pay.Method), fmtTime(pay.PaymentDate), pay.Amount, string(pay.Status)); err != nil {
			return err
		}
	case p.Adjustment != nil:
		a := p.Adjustment
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO adjustments (id, number, type, direction, bill_id, invoice_id, adjustment_date, amount, reason, status)
			VALUES (?,?,?,?,?,?,?,?,?,?)
		`, a.ID.String(), a.Number, string(a.Type), string(a.Direction),
			nilUUID(a.BillID), nilUUID(a.InvoiceID), fmtTime(a.AdjustmentDate),
			a.Amount, a.Reason, string(a.Status)); err != nil {
			return err
		}
	}
	return nil
}

func nilUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

func applyBalanceDelta(ctx context.Context, tx *sql.Tx, p translate.Posting) error {
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
	err := tx.QueryRowContext(ctx, `SELECT balance FROM `+table+` WHERE id=?`, id.String()).Scan(&balance)
	if err == sql.ErrNoRows {
		return errs.ErrNotFound
	}
	if err != nil {
		return err
	}
	balance += p.BalanceDelta
	_, err = tx.ExecContext(ctx, `UPDATE `+table+` SET balance=?, status=? WHERE id=?`,
		balance, string(ledger.SettleStatus(balance)), id.String())
	return err
}

// accrueActuals adds posted spend to the most recent budget item per account
// code, enforcing hard caps. Spend on accounts no budget tracks is untracked.
func accrueActuals(ctx context.Context, tx *sql.Tx, actuals map[string]int64) error {
	for code, amount := range actuals {
		var item ledger.BudgetItem
		var itemID, budgetID string
		var hardCap int
		err := tx.QueryRowContext(ctx, `
			SELECT bi.id, bi.budget_id, bi.account_code, bi.category, bi.budgeted, bi.actual, bi.variance, bi.hard_cap
			FROM budget_items bi
			JOIN budgets b ON b.id = bi.budget_id
			WHERE bi.account_code = ?
			ORDER BY b.created_at DESC
			LIMIT 1
		`, code).Scan(&itemID, &budgetID, &item.AccountCode, &item.Category,
			&item.Budgeted, &item.Actual, &item.Variance, &hardCap)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return err
		}
		item.ID, _ = uuid.Parse(itemID)
		item.BudgetID, _ = uuid.Parse(budgetID)
		item.HardCap = hardCap == 1
		if err := budget.Accrue(&item, amount); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE budget_items SET actual=?, variance=? WHERE id=?
		`, item.Actual, item.Variance, itemID); err != nil {
			return err
		}
	}
	return nil
}
