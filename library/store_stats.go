package library

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Statistics takes the dashboard snapshot at now. Counts come from SQL; the
// money sums are added up here because amounts are stored as decimal text.
func (s *Store) Statistics(ctx context.Context, now time.Time) (*Statistics, error) {
	st := &Statistics{GeneratedAt: now}

	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&st.TotalBooks, `SELECT COUNT(*) FROM books WHERE active=1`, nil},
		{&st.AvailableBooks, `SELECT COUNT(*) FROM books WHERE active=1 AND available=1`, nil},
		{&st.TotalMembers, `SELECT COUNT(*) FROM members WHERE active=1`, nil},
		{&st.TotalStudents, `SELECT COUNT(*) FROM members WHERE active=1 AND member_type=?`, []any{KindStudent}},
		{&st.TotalFaculty, `SELECT COUNT(*) FROM members WHERE active=1 AND member_type=?`, []any{KindFaculty}},
		{&st.ActiveIssues, `SELECT COUNT(*) FROM book_issues WHERE return_date IS NULL`, nil},
		{&st.OverdueIssues, `SELECT COUNT(*) FROM book_issues WHERE return_date IS NULL AND due_date < ?`, []any{stamp(now)}},
	}
	for _, c := range counts {
		n, err := s.count(ctx, c.query, c.args...)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	pending, err := s.ListFines(ctx, FineFilter{PendingOnly: true})
	if err != nil {
		return nil, err
	}
	st.PendingFines = decimal.Zero
	for _, f := range pending {
		st.PendingFines = st.PendingFines.Add(f.Remaining())
	}

	var paid []decimal.Decimal
	if err := s.selectRaw(ctx, &paid, `SELECT amount_paid FROM fines`); err != nil {
		return nil, err
	}
	st.FinesCollected = decimal.Sum(decimal.Zero, paid...)
	return st, nil
}
