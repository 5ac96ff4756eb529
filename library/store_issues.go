package library

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
)

// IssueScope selects which loans a listing returns.
type IssueScope int

const (
	IssuesAll IssueScope = iota
	IssuesActive
	IssuesOverdue
)

// IssueFilter narrows a loan listing.
type IssueFilter struct {
	Scope IssueScope
	// MemberID limits the listing to one member when non-zero.
	MemberID int64
}

const issueColumns = `id,book_id,member_id,issue_date,due_date,return_date,issue_duration,status,
	issued_by,returned_to,remarks`

// InsertIssue stores a new loan and sets its ID.
func (s *Store) InsertIssue(ctx context.Context, i *BookIssue) error {
	id, err := s.insert(ctx, `INSERT INTO book_issues(book_id,member_id,issue_date,due_date,issue_duration,
		status,issued_by,remarks) VALUES(?,?,?,?,?,?,?,?)`,
		i.BookID, i.MemberID, stamp(i.IssueDate), stamp(i.DueDate), i.IssueDuration,
		i.Status, i.IssuedBy, i.Remarks)
	if err != nil {
		return err
	}
	i.ID = id
	return nil
}

// GetIssue fetches one loan by ID.
func (s *Store) GetIssue(ctx context.Context, id int64) (*BookIssue, error) {
	var i BookIssue
	if err := s.get(ctx, &i, `SELECT `+issueColumns+` FROM book_issues WHERE id=?`, id); err != nil {
		return nil, notFound(err, ErrIssueNotFound)
	}
	return &i, nil
}

// GetOpenIssueForBook fetches the unreturned loan of a copy.
func (s *Store) GetOpenIssueForBook(ctx context.Context, bookID int64) (*BookIssue, error) {
	var i BookIssue
	if err := s.get(ctx, &i, `SELECT `+issueColumns+` FROM book_issues
		WHERE book_id=? AND return_date IS NULL`, bookID); err != nil {
		return nil, notFound(err, ErrIssueNotFound)
	}
	return &i, nil
}

// CountActiveIssues counts the member's unreturned loans.
func (s *Store) CountActiveIssues(ctx context.Context, memberID int64) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM book_issues WHERE member_id=? AND return_date IS NULL`, memberID)
}

// CountOverdueIssues counts the member's unreturned loans past due at now.
func (s *Store) CountOverdueIssues(ctx context.Context, memberID int64, now time.Time) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM book_issues
		WHERE member_id=? AND return_date IS NULL AND due_date < ?`, memberID, stamp(now))
}

// CloseIssue records the return of a loan. It fails with ErrAlreadyReturned
// when the loan was closed in the meantime.
func (s *Store) CloseIssue(ctx context.Context, i *BookIssue) error {
	return s.exec(ctx, ErrAlreadyReturned, `UPDATE book_issues SET return_date=?,status=?,returned_to=?
		WHERE id=? AND return_date IS NULL`,
		stamp(*i.ReturnDate), i.Status, i.ReturnedTo, i.ID)
}

// ListIssues returns the loans matching f with book and member details,
// newest first. Overdue listings are ordered by due date instead.
func (s *Store) ListIssues(ctx context.Context, f IssueFilter, now time.Time) ([]*BookIssue, error) {
	ds := dialect.From(goqu.T("book_issues").As("i")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("i.book_id")))).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("i.member_id")))).
		Select(
			goqu.I("i.id"), goqu.I("i.book_id"), goqu.I("i.member_id"), goqu.I("i.issue_date"),
			goqu.I("i.due_date"), goqu.I("i.return_date"), goqu.I("i.issue_duration"), goqu.I("i.status"),
			goqu.I("i.issued_by"), goqu.I("i.returned_to"), goqu.I("i.remarks"),
			goqu.I("b.title").As("book_title"),
			goqu.I("b.book_code").As("book_code"),
			goqu.L("TRIM(m.first_name || ' ' || m.last_name)").As("member_name"),
		)

	switch f.Scope {
	case IssuesActive:
		ds = ds.Where(goqu.I("i.return_date").IsNull()).Order(goqu.I("i.issue_date").Desc(), goqu.I("i.id").Desc())
	case IssuesOverdue:
		ds = ds.Where(
			goqu.I("i.return_date").IsNull(),
			goqu.I("i.due_date").Lt(stamp(now)),
		).Order(goqu.I("i.due_date").Asc(), goqu.I("i.id").Asc())
	default:
		ds = ds.Order(goqu.I("i.issue_date").Desc(), goqu.I("i.id").Desc())
	}
	if f.MemberID != 0 {
		ds = ds.Where(goqu.I("i.member_id").Eq(f.MemberID))
	}

	issues := []*BookIssue{}
	if err := s.selectAll(ctx, &issues, ds); err != nil {
		return nil, err
	}
	return issues, nil
}
