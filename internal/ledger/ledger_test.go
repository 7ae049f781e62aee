package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

func TestSignedBalance(t *testing.T) {
	cases := []struct {
		typ            AccountType
		debit, credit  int64
		want           int64
	}{
		{AccountTypeAsset, 1000, 400, 600},
		{AccountTypeExpense, 1000, 400, 600},
		{AccountTypeLiability, 400, 1000, 600},
		{AccountTypeEquity, 400, 1000, 600},
		{AccountTypeRevenue, 400, 1000, 600},
		{AccountTypeAsset, 400, 1000, -600},
	}
	for _, tc := range cases {
		if got := SignedBalance(tc.typ, tc.debit, tc.credit); got != tc.want {
			t.Errorf("SignedBalance(%s, %d, %d) = %d, want %d", tc.typ, tc.debit, tc.credit, got, tc.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to EntryStatus
		ok       bool
	}{
		{StatusDraft, StatusApproved, true},
		{StatusDraft, StatusPosted, true},
		{StatusApproved, StatusPosted, true},
		{StatusApproved, StatusDraft, false},
		{StatusPosted, StatusDraft, false},
		{StatusPosted, StatusApproved, false},
		{StatusPosted, StatusPosted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
	if !StatusDraft.Mutable() {
		t.Error("draft entries must be mutable")
	}
	if StatusApproved.Mutable() || StatusPosted.Mutable() {
		t.Error("approved and posted entries must be immutable")
	}
}

func testLine(side Side, minor int64) JournalLine {
	amt, _ := money.NewAmountFromMinorUnits("USD", minor)
	return JournalLine{ID: uuid.New(), Side: side, Amount: amt}
}

func TestBalanced(t *testing.T) {
	e := JournalEntry{Currency: "USD", Lines: []JournalLine{
		testLine(SideDebit, 5000),
		testLine(SideCredit, 3000),
		testLine(SideCredit, 2000),
	}}
	if !e.Balanced() {
		t.Fatal("entry with equal sides should balance")
	}

	// One minor unit of drift stays within tolerance.
	e.Lines[2] = testLine(SideCredit, 2001)
	if !e.Balanced() {
		t.Fatal("one minor unit of drift is tolerated")
	}

	e.Lines[2] = testLine(SideCredit, 2002)
	if e.Balanced() {
		t.Fatal("two minor units of drift must not balance")
	}
}

func TestFormatEntryNumber(t *testing.T) {
	if got := FormatEntryNumber(2026, 1); got != "JE-2026-000001" {
		t.Fatalf("got %q", got)
	}
	if got := FormatEntryNumber(2026, 123456); got != "JE-2026-123456" {
		t.Fatalf("got %q", got)
	}
	if got := SequenceYear(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)); got != 2025 {
		t.Fatalf("sequence year: got %d", got)
	}
}

func TestSettleStatus(t *testing.T) {
	if got := SettleStatus(0); got != DocStatusPaid {
		t.Fatalf("zero balance: got %s", got)
	}
	if got := SettleStatus(-50); got != DocStatusPaid {
		t.Fatalf("overpaid: got %s", got)
	}
	if got := SettleStatus(1); got != DocStatusPartial {
		t.Fatalf("open balance: got %s", got)
	}
}

func TestAdjustmentBalanceDelta(t *testing.T) {
	cases := []struct {
		typ  AdjustmentType
		want int64
	}{
		{AdjDebitMemo, 1500},
		{AdjCreditMemo, -1500},
		{AdjWriteOff, -1500},
		{AdjDiscount, -1500},
	}
	for _, tc := range cases {
		a := Adjustment{Type: tc.typ, Amount: 1500}
		if got := a.BalanceDelta(); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.typ, got, tc.want)
		}
	}
}
