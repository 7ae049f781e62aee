package report

import (
	"context"
	"time"

	"github.com/magnolia-hms/finance/internal/ledger"
)

// Bucket labels, ordered from least to most overdue.
const (
	BucketCurrent  = "current"
	BucketUpTo30   = "1-30"
	BucketUpTo60   = "31-60"
	BucketUpTo90   = "61-90"
	BucketBeyond90 = "90+"
)

// AgedDocument is one open bill or invoice placed in its bucket.
type AgedDocument struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	DueDate     time.Time `json:"due_date"`
	Balance     int64     `json:"balance"`
	DaysOverdue int       `json:"days_overdue"`
	Bucket      string    `json:"bucket"`
}

// AgingSummary aggregates the open documents behind a report.
type AgingSummary struct {
	DocumentCount      int     `json:"document_count"`
	TotalOutstanding   int64   `json:"total_outstanding"`
	OverdueCount       int     `json:"overdue_count"`
	OverdueAmount      int64   `json:"overdue_amount"`
	AverageDaysOverdue float64 `json:"average_days_overdue"`
}

// AgingReport buckets open balances by how far past due they are.
type AgingReport struct {
	AsOf      time.Time                  `json:"as_of"`
	Documents []AgedDocument             `json:"documents"`
	Buckets   map[string]int64           `json:"buckets"`
	Counts    map[string]int             `json:"counts"`
	Total     int64                      `json:"total"`
	Summary   AgingSummary               `json:"summary"`
	Direction ledger.AdjustmentDirection `json:"direction"`
}

// ageBucket places a days-overdue count. Boundaries are inclusive on the
// upper edge: exactly 30 days overdue still falls in the 1-30 bucket.
func ageBucket(daysOverdue int) string {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return BucketUpTo30
	case daysOverdue <= 60:
		return BucketUpTo60
	case daysOverdue <= 90:
		return BucketUpTo90
	default:
		return BucketBeyond90
	}
}

// openDocument reports whether a status still carries collectible balance.
func openDocument(status ledger.DocumentStatus) bool {
	switch status {
	case ledger.DocStatusApproved, ledger.DocStatusSent, ledger.DocStatusPartial, ledger.DocStatusOverdue:
		return true
	}
	return false
}

func emptyAging(asOf time.Time, direction ledger.AdjustmentDirection) AgingReport {
	return AgingReport{
		AsOf:      asOf,
		Documents: []AgedDocument{},
		Buckets: map[string]int64{
			BucketCurrent: 0, BucketUpTo30: 0, BucketUpTo60: 0, BucketUpTo90: 0, BucketBeyond90: 0,
		},
		Counts: map[string]int{
			BucketCurrent: 0, BucketUpTo30: 0, BucketUpTo60: 0, BucketUpTo90: 0, BucketBeyond90: 0,
		},
		Direction: direction,
	}
}

func (r *AgingReport) add(id, number string, due time.Time, balance int64) {
	days := int(r.AsOf.Sub(due).Hours() / 24)
	bucket := ageBucket(days)
	r.Documents = append(r.Documents, AgedDocument{
		ID: id, Number: number, DueDate: due, Balance: balance, DaysOverdue: days, Bucket: bucket,
	})
	r.Buckets[bucket] += balance
	r.Counts[bucket]++
	r.Total += balance
}

// finish computes the summary once all documents are in.
func (r *AgingReport) finish() {
	s := AgingSummary{DocumentCount: len(r.Documents), TotalOutstanding: r.Total}
	var overdueDays int
	for _, d := range r.Documents {
		if d.DaysOverdue > 0 {
			s.OverdueCount++
			s.OverdueAmount += d.Balance
			overdueDays += d.DaysOverdue
		}
	}
	if s.OverdueCount > 0 {
		s.AverageDaysOverdue = float64(overdueDays) / float64(s.OverdueCount)
	}
	r.Summary = s
}

// BuildReceivableAging buckets open invoice balances by days past due.
func (s *Service) BuildReceivableAging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	invoices, err := s.docs.ListInvoices(ctx)
	if err != nil {
		return AgingReport{}, err
	}
	r := emptyAging(asOf, ledger.DirectionReceivable)
	for _, inv := range invoices {
		if inv.Balance <= 0 || !openDocument(inv.Status) {
			continue
		}
		r.add(inv.ID.String(), inv.Number, inv.DueDate, inv.Balance)
	}
	r.finish()
	return r, nil
}

// BuildPayableAging buckets open bill balances by days past due.
func (s *Service) BuildPayableAging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	bills, err := s.docs.ListBills(ctx)
	if err != nil {
		return AgingReport{}, err
	}
	r := emptyAging(asOf, ledger.DirectionPayable)
	for _, b := range bills {
		if b.Balance <= 0 || !openDocument(b.Status) {
			continue
		}
		r.add(b.ID.String(), b.Number, b.DueDate, b.Balance)
	}
	r.finish()
	return r, nil
}
