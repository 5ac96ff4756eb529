package library

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
)

// FineFilter narrows a fine listing.
type FineFilter struct {
	// PendingOnly keeps Pending and Partial fines.
	PendingOnly bool
	// MemberID limits the listing to one member when non-zero.
	MemberID int64
}

var unsettledStatuses = []any{string(FineStatusPending), string(FineStatusPartial)}

const fineColumns = `id,issue_id,days_overdue,fine_per_day,total_amount,amount_paid,fine_date,
	payment_date,status,remarks`

// InsertFine stores f and sets its ID.
func (s *Store) InsertFine(ctx context.Context, f *Fine) error {
	var paidAt any
	if f.PaymentDate != nil {
		paidAt = stamp(*f.PaymentDate)
	}
	id, err := s.insert(ctx, `INSERT INTO fines(issue_id,days_overdue,fine_per_day,total_amount,amount_paid,
		fine_date,payment_date,status,remarks) VALUES(?,?,?,?,?,?,?,?,?)`,
		f.IssueID, f.DaysOverdue, f.FinePerDay, f.TotalAmount, f.AmountPaid,
		stamp(f.FineDate), paidAt, f.Status, f.Remarks)
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

// GetFine fetches one fine by ID together with the member it is charged to.
func (s *Store) GetFine(ctx context.Context, id int64) (*Fine, error) {
	var f Fine
	err := s.get(ctx, &f, `SELECT f.id,f.issue_id,f.days_overdue,f.fine_per_day,f.total_amount,f.amount_paid,
		f.fine_date,f.payment_date,f.status,f.remarks,i.member_id
		FROM fines f JOIN book_issues i ON i.id = f.issue_id WHERE f.id=?`, id)
	if err != nil {
		return nil, notFound(err, ErrFineNotFound)
	}
	return &f, nil
}

// SaveFineSettlement writes the payment state of f.
func (s *Store) SaveFineSettlement(ctx context.Context, f *Fine) error {
	var paidAt any
	if f.PaymentDate != nil {
		paidAt = stamp(*f.PaymentDate)
	}
	return s.exec(ctx, ErrFineNotFound, `UPDATE fines SET amount_paid=?,status=?,payment_date=?,remarks=? WHERE id=?`,
		f.AmountPaid, f.Status, paidAt, f.Remarks, f.ID)
}

// UnpaidFineBalance sums the remaining balance of the member's Pending and
// Partial fines. Amounts are stored as decimal text, so the sum is taken
// here rather than in SQL.
func (s *Store) UnpaidFineBalance(ctx context.Context, memberID int64) (decimal.Decimal, error) {
	fines, err := s.ListFines(ctx, FineFilter{PendingOnly: true, MemberID: memberID})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, f := range fines {
		total = total.Add(f.Remaining())
	}
	return total, nil
}

// ListFines returns the fines matching f with loan details, newest first.
func (s *Store) ListFines(ctx context.Context, f FineFilter) ([]*Fine, error) {
	ds := dialect.From(goqu.T("fines").As("f")).
		Join(goqu.T("book_issues").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("f.issue_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("i.book_id")))).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("i.member_id")))).
		Select(
			goqu.I("f.id"), goqu.I("f.issue_id"), goqu.I("f.days_overdue"), goqu.I("f.fine_per_day"),
			goqu.I("f.total_amount"), goqu.I("f.amount_paid"), goqu.I("f.fine_date"),
			goqu.I("f.payment_date"), goqu.I("f.status"), goqu.I("f.remarks"),
			goqu.I("i.member_id"),
			goqu.L("TRIM(m.first_name || ' ' || m.last_name)").As("member_name"),
			goqu.I("b.title").As("book_title"),
		).
		Order(goqu.I("f.fine_date").Desc(), goqu.I("f.id").Desc())

	if f.PendingOnly {
		ds = ds.Where(goqu.I("f.status").In(unsettledStatuses...))
	}
	if f.MemberID != 0 {
		ds = ds.Where(goqu.I("i.member_id").Eq(f.MemberID))
	}

	fines := []*Fine{}
	if err := s.selectAll(ctx, &fines, ds); err != nil {
		return nil, err
	}
	return fines, nil
}
