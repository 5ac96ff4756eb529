package library

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookCode(t *testing.T) {
	assert.Equal(t, "BK-685991-001", bookCode("978-0-13-468599-1", 1))
	assert.Equal(t, "BK-685991-012", bookCode(" 9780134685991 ", 12))
	assert.Equal(t, "BK-1234-003", bookCode("1234", 3))
}

func TestGeneratedMemberIDs(t *testing.T) {
	assert.Equal(t, "STU-2026-004", membershipID(KindStudent, 2026, 4))
	assert.Equal(t, "FAC-2026-010", membershipID(KindFaculty, 2026, 10))
	assert.Equal(t, "S2026-004", variantID(KindStudent, 2026, 4))
	assert.Equal(t, "F2026-001", variantID(KindFaculty, 2026, 1))
}

func TestWholeDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		to   time.Time
		want int
	}{
		{"before", t0.Add(-time.Hour), 0},
		{"same instant", t0, 0},
		{"23 hours", t0.Add(23 * time.Hour), 0},
		{"exactly one day", t0.Add(24 * time.Hour), 1},
		{"six and a half days", t0.Add(6*day + 12*time.Hour), 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wholeDaysBetween(t0, tc.to))
		})
	}
}

func TestDecideIssueOrder(t *testing.T) {
	limit := decimal.NewFromInt(10)
	book := func() *Book { return &Book{Code: "BK-1", Available: true, Active: true} }
	member := func() *Member {
		return &Member{Kind: KindStudent, MembershipID: "STU-1", Active: true, Student: &StudentProfile{}}
	}

	tests := []struct {
		name  string
		state func() issueState
		want  error
	}{
		{"ok", func() issueState {
			return issueState{book: book(), member: member(), activeLoans: 2, unpaidFines: limit}
		}, nil},
		{"missing book wins over everything", func() issueState {
			return issueState{member: nil, activeLoans: 9}
		}, ErrBookNotFound},
		{"missing member", func() issueState {
			return issueState{book: book()}
		}, ErrMemberNotFound},
		{"unavailable before inactive member", func() issueState {
			b, m := book(), member()
			b.Available, m.Active = false, false
			return issueState{book: b, member: m}
		}, ErrBookUnavailable},
		{"deactivated copy", func() issueState {
			b := book()
			b.Active = false
			return issueState{book: b, member: member()}
		}, ErrBookUnavailable},
		{"inactive member before limit", func() issueState {
			m := member()
			m.Active = false
			return issueState{book: book(), member: m, activeLoans: 3}
		}, ErrMemberInactive},
		{"limit before fines", func() issueState {
			return issueState{book: book(), member: member(), activeLoans: 3, unpaidFines: decimal.NewFromInt(50)}
		}, ErrLoanLimitReached},
		{"fines over limit", func() issueState {
			return issueState{book: book(), member: member(), unpaidFines: decimal.RequireFromString("10.01")}
		}, ErrUnpaidFines},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := decideIssue(tc.state(), limit)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFacultyLimit(t *testing.T) {
	m := &Member{Kind: KindFaculty, Active: true, Faculty: &FacultyProfile{}}
	s := issueState{book: &Book{Available: true, Active: true}, member: m, activeLoans: 9}
	require.NoError(t, decideIssue(s, decimal.NewFromInt(10)))
	s.activeLoans = 10
	require.ErrorIs(t, decideIssue(s, decimal.NewFromInt(10)), ErrLoanLimitReached)

	assert.Equal(t, t0.AddDate(0, 0, 30), dueDate(t0, m.Limits()))
}

func TestAssessFine(t *testing.T) {
	rate := decimal.NewFromInt(1)
	due := t0.AddDate(0, 0, 14)

	_, late := assessFine(1, due, due, rate)
	assert.False(t, late, "returning on the due date is on time")

	f, late := assessFine(1, due, t0.AddDate(0, 0, 20), rate)
	require.True(t, late)
	assert.Equal(t, 6, f.DaysOverdue)
	assert.Equal(t, "6.00", f.TotalAmount.StringFixed(2))
	assert.Equal(t, FineStatusPending, f.Status)
	assert.Nil(t, f.PaymentDate)

	f, late = assessFine(1, due, due.Add(3*time.Hour), rate)
	require.True(t, late)
	assert.Zero(t, f.DaysOverdue)
	assert.True(t, f.TotalAmount.IsZero())
	assert.Equal(t, FineStatusPending, f.Status)
	assert.Nil(t, f.PaymentDate)
	assert.True(t, f.IsSettled())

	_, err := applyPayment(f, decimal.NewFromInt(1), t0)
	require.ErrorIs(t, err, ErrFineSettled)
}

func TestApplyPayment(t *testing.T) {
	newFine := func() *Fine {
		return &Fine{TotalAmount: decimal.NewFromInt(6), AmountPaid: decimal.Zero, Status: FineStatusPending}
	}

	t.Run("partial then full", func(t *testing.T) {
		f := newFine()
		change, err := applyPayment(f, decimal.NewFromInt(2), t0)
		require.NoError(t, err)
		assert.True(t, change.IsZero())
		assert.Equal(t, FineStatusPartial, f.Status)
		assert.Equal(t, "4.00", f.Remaining().StringFixed(2))
		assert.Nil(t, f.PaymentDate)

		change, err = applyPayment(f, decimal.NewFromInt(4), t0)
		require.NoError(t, err)
		assert.True(t, change.IsZero())
		assert.Equal(t, FineStatusPaid, f.Status)
		assert.True(t, f.Remaining().IsZero())
		require.NotNil(t, f.PaymentDate)
	})

	t.Run("overpayment is capped", func(t *testing.T) {
		f := newFine()
		change, err := applyPayment(f, decimal.NewFromInt(10), t0)
		require.NoError(t, err)
		assert.Equal(t, "4.00", change.StringFixed(2))
		assert.Equal(t, "6.00", f.AmountPaid.StringFixed(2))
		assert.Equal(t, FineStatusPaid, f.Status)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFine()
		_, err := applyPayment(f, decimal.Zero, t0)
		require.ErrorIs(t, err, ErrInvalidInput)
		_, err = applyPayment(f, decimal.NewFromInt(-1), t0)
		require.ErrorIs(t, err, ErrInvalidInput)

		f.Status = FineStatusWaived
		_, err = applyPayment(f, decimal.NewFromInt(1), t0)
		require.ErrorIs(t, err, ErrFineSettled)
	})
}

func TestApplyWaiver(t *testing.T) {
	f := &Fine{TotalAmount: decimal.NewFromInt(6), AmountPaid: decimal.NewFromInt(2), Status: FineStatusPartial}
	require.ErrorIs(t, applyWaiver(f, "  ", t0), ErrInvalidInput)

	require.NoError(t, applyWaiver(f, "hospitalised", t0))
	assert.Equal(t, FineStatusWaived, f.Status)
	assert.Equal(t, "Waived: hospitalised", f.Remarks)
	assert.True(t, f.IsSettled())

	require.ErrorIs(t, applyWaiver(f, "again", t0), ErrFineSettled)
}
