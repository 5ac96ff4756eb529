package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// issueState is what the store knows about a prospective loan at the moment
// the issue is attempted. A nil book or member means the row does not exist.
type issueState struct {
	book        *Book
	member      *Member
	activeLoans int
	unpaidFines decimal.Decimal
}

// decideIssue applies the issue rules in a fixed order and returns the first
// one that is violated:
//
//	book exists, member exists, book available (and active), member active,
//	active loans below the member's limit, unpaid fines not above unpaidLimit.
func decideIssue(s issueState, unpaidLimit decimal.Decimal) error {
	if s.book == nil {
		return ErrBookNotFound
	}
	if s.member == nil {
		return ErrMemberNotFound
	}
	if !s.book.Available || !s.book.Active {
		return fmt.Errorf("%w: %s", ErrBookUnavailable, s.book.Code)
	}
	if !s.member.Active {
		return fmt.Errorf("%w: %s", ErrMemberInactive, s.member.MembershipID)
	}
	limits := s.member.Limits()
	if s.activeLoans >= limits.MaxBooks {
		return fmt.Errorf("%w: %d of %d books on loan", ErrLoanLimitReached, s.activeLoans, limits.MaxBooks)
	}
	if s.unpaidFines.GreaterThan(unpaidLimit) {
		return fmt.Errorf("%w: %s outstanding, settle fines first", ErrUnpaidFines, s.unpaidFines.StringFixed(2))
	}
	return nil
}

// dueDate is the issue date plus the member's loan period.
func dueDate(issued time.Time, limits Limits) time.Time {
	return issued.AddDate(0, 0, limits.MaxIssueDays)
}

// wholeDaysBetween floors to - from to whole days. It is 0 when to is not
// after from.
func wholeDaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / day)
}

// assessFine builds the fine for a loan returned at returned. ok is false
// when the return was on time. A return late by less than a whole day yields
// a Pending fine of zero, which counts as settled since nothing remains.
func assessFine(issueID int64, due, returned time.Time, rate decimal.Decimal) (fine *Fine, ok bool) {
	if !returned.After(due) {
		return nil, false
	}
	days := wholeDaysBetween(due, returned)
	f := &Fine{
		IssueID:     issueID,
		DaysOverdue: days,
		FinePerDay:  rate,
		TotalAmount: rate.Mul(decimal.NewFromInt(int64(days))),
		AmountPaid:  decimal.Zero,
		FineDate:    returned,
		Status:      FineStatusPending,
	}
	return f, true
}

// applyPayment records amount against f. Anything above the remaining
// balance is not recorded and comes back as change.
func applyPayment(f *Fine, amount decimal.Decimal, now time.Time) (change decimal.Decimal, err error) {
	if f.IsSettled() {
		return decimal.Zero, ErrFineSettled
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}
	remaining := f.Remaining()
	if amount.GreaterThan(remaining) {
		change = amount.Sub(remaining)
		amount = remaining
	}
	f.AmountPaid = f.AmountPaid.Add(amount)
	if f.AmountPaid.GreaterThanOrEqual(f.TotalAmount) {
		f.Status = FineStatusPaid
		f.PaymentDate = &now
	} else {
		f.Status = FineStatusPartial
	}
	return change, nil
}

// applyWaiver cancels the unpaid part of f.
func applyWaiver(f *Fine, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: a reason is required to waive a fine", ErrInvalidInput)
	}
	if f.Status == FineStatusPaid || f.Status == FineStatusWaived {
		return ErrFineSettled
	}
	f.Status = FineStatusWaived
	f.PaymentDate = &now
	f.Remarks = "Waived: " + reason
	return nil
}

// bookCode derives the copy code from the ISBN and copy number, e.g.
// BK-123451-002.
func bookCode(isbn string, copyNumber int) string {
	digits := strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if len(digits) > 6 {
		digits = digits[len(digits)-6:]
	}
	return fmt.Sprintf("BK-%s-%03d", digits, copyNumber)
}

const (
	prefixStudent = "STU"
	prefixFaculty = "FAC"
)

func membershipPrefix(kind MemberKind) string {
	if kind == KindFaculty {
		return prefixFaculty
	}
	return prefixStudent
}

// membershipID formats e.g. STU-2026-004.
func membershipID(kind MemberKind, year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", membershipPrefix(kind), year, seq)
}

// variantID formats the generated student or faculty number, e.g. S2026-004.
func variantID(kind MemberKind, year, seq int) string {
	letter := "S"
	if kind == KindFaculty {
		letter = "F"
	}
	return fmt.Sprintf("%s%d-%03d", letter, year, seq)
}
