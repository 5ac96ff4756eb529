package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LibraryManager is the service layer used by the front ends: the loan and
// fine rule engine, the query layer and the auth layer. It keeps no state of
// its own beyond configuration; every call takes the caller's Session.
type LibraryManager struct {
	db  *Database
	log *zap.Logger
	now func() time.Time

	finePerDay  decimal.Decimal
	unpaidLimit decimal.Decimal
	bcryptCost  int
	admin       AdminAccount
}

// AdminAccount is the bootstrap administrator created by EnsureAdmin.
type AdminAccount struct {
	Username string
	Password string
	Email    string
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(lm *LibraryManager) { lm.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) { lm.now = now }
}

// WithFinePerDay sets the overdue rate charged per whole day.
func WithFinePerDay(rate decimal.Decimal) Option {
	return func(lm *LibraryManager) { lm.finePerDay = rate }
}

// WithUnpaidFineLimit sets the unpaid balance above which issues are refused.
func WithUnpaidFineLimit(limit decimal.Decimal) Option {
	return func(lm *LibraryManager) { lm.unpaidLimit = limit }
}

// WithBcryptCost sets the cost used when hashing new passwords.
func WithBcryptCost(cost int) Option {
	return func(lm *LibraryManager) { lm.bcryptCost = cost }
}

// WithAdminAccount sets the bootstrap administrator.
func WithAdminAccount(a AdminAccount) Option {
	return func(lm *LibraryManager) { lm.admin = a }
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	lm := &LibraryManager{
		db:          db,
		log:         zap.NewNop(),
		now:         time.Now,
		finePerDay:  decimal.NewFromInt(1),
		unpaidLimit: decimal.NewFromInt(10),
		bcryptCost:  bcrypt.DefaultCost,
		admin:       AdminAccount{Username: "admin", Password: "admin123", Email: "admin@library.local"},
	}
	for _, opt := range opts {
		opt(lm)
	}
	return lm, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

func (lm *LibraryManager) clock() time.Time { return stamp(lm.now()) }

// failure turns err into a failed Result, logging storage failures.
func failure[T any](lm *LibraryManager, op string, err error) Result[T] {
	err = classify(err)
	if errors.Is(err, ErrStorage) {
		lm.log.Error(op+" failed", zap.Error(err))
	} else {
		lm.log.Debug(op+" refused", zap.Error(err))
	}
	return fail[T](err)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return nil
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

const dateLayout = "2006-01-02"

// ------------------ Circulation ------------------

// IssueBook lends a copy to a member. The checks of decideIssue run inside
// the same transaction that records the loan and marks the copy unavailable.
func (lm *LibraryManager) IssueBook(ctx context.Context, sess *Session, bookID, memberID int64, issuedBy string) Result[*BookIssue] {
	const op = "issue book"
	if err := requireMember(sess, memberID); err != nil {
		return failure[*BookIssue](lm, op, err)
	}
	if strings.TrimSpace(issuedBy) == "" {
		issuedBy = sess.Username
	}
	now := lm.clock()

	var issue *BookIssue
	err := lm.db.InTx(ctx, func(s *Store) error {
		st, err := loadIssueState(ctx, s, bookID, memberID)
		if err != nil {
			return err
		}
		if err := decideIssue(st, lm.unpaidLimit); err != nil {
			return err
		}

		limits := st.member.Limits()
		issue = &BookIssue{
			BookID:        bookID,
			MemberID:      memberID,
			IssueDate:     now,
			DueDate:       dueDate(now, limits),
			IssueDuration: limits.MaxIssueDays,
			Status:        IssueStatusIssued,
			IssuedBy:      strings.TrimSpace(issuedBy),
			BookTitle:     st.book.Title,
			BookCode:      st.book.Code,
			MemberName:    st.member.FullName(),
		}
		if err := s.InsertIssue(ctx, issue); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return fmt.Errorf("%w: %s", ErrBookUnavailable, st.book.Code)
			}
			return err
		}
		return s.SetBookAvailable(ctx, bookID, false)
	})
	if err != nil {
		return failure[*BookIssue](lm, op, err)
	}

	lm.log.Info("book issued",
		zap.Int64("issue_id", issue.ID),
		zap.Int64("book_id", bookID),
		zap.Int64("member_id", memberID),
		zap.Time("due", issue.DueDate))
	return succeed(issue, "Issued %q to %s. Due date: %s", issue.BookTitle, issue.MemberName, issue.DueDate.Format(dateLayout))
}

// loadIssueState gathers what decideIssue needs. Missing rows are left nil.
func loadIssueState(ctx context.Context, s *Store, bookID, memberID int64) (issueState, error) {
	var st issueState
	book, err := s.GetBook(ctx, bookID)
	switch {
	case err == nil:
		st.book = book
	case !errors.Is(err, ErrBookNotFound):
		return st, err
	}
	member, err := s.GetMember(ctx, memberID)
	switch {
	case err == nil:
		st.member = member
	case !errors.Is(err, ErrMemberNotFound):
		return st, err
	}
	if st.book == nil || st.member == nil {
		return st, nil
	}

	if st.activeLoans, err = s.CountActiveIssues(ctx, memberID); err != nil {
		return st, err
	}
	if st.unpaidFines, err = s.UnpaidFineBalance(ctx, memberID); err != nil {
		return st, err
	}
	return st, nil
}

// ReturnBook closes a loan and makes the copy available again. A late return
// creates a Fine, which is the returned value; an on-time return yields nil.
func (lm *LibraryManager) ReturnBook(ctx context.Context, sess *Session, issueID int64, returnedTo string) Result[*Fine] {
	const op = "return book"
	if err := requireSession(sess); err != nil {
		return failure[*Fine](lm, op, err)
	}
	if strings.TrimSpace(returnedTo) == "" {
		returnedTo = sess.Username
	}
	now := lm.clock()

	var (
		fine  *Fine
		issue *BookIssue
	)
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if issue, err = s.GetIssue(ctx, issueID); err != nil {
			return err
		}
		if err := requireMember(sess, issue.MemberID); err != nil {
			return err
		}
		if issue.IsReturned() {
			return ErrAlreadyReturned
		}

		issue.ReturnDate = &now
		issue.Status = IssueStatusReturned
		issue.ReturnedTo = strings.TrimSpace(returnedTo)
		if err := s.CloseIssue(ctx, issue); err != nil {
			return err
		}
		if err := s.SetBookAvailable(ctx, issue.BookID, true); err != nil {
			return err
		}

		f, late := assessFine(issue.ID, issue.DueDate, now, lm.finePerDay)
		if !late {
			return nil
		}
		f.MemberID = issue.MemberID
		if err := s.InsertFine(ctx, f); err != nil {
			return err
		}
		fine = f
		return nil
	})
	if err != nil {
		return failure[*Fine](lm, op, err)
	}

	if fine == nil {
		lm.log.Info("book returned", zap.Int64("issue_id", issueID), zap.Int64("book_id", issue.BookID))
		return succeed[*Fine](nil, "Book returned. No fine applied.")
	}
	lm.log.Info("book returned late",
		zap.Int64("issue_id", issueID),
		zap.Int64("fine_id", fine.ID),
		zap.Int("days_overdue", fine.DaysOverdue),
		zap.String("amount", money(fine.TotalAmount)))
	return succeed(fine, "Book returned. Fine of %s applied for %d days overdue.", money(fine.TotalAmount), fine.DaysOverdue)
}

// PayFine records a payment against a fine. Amounts above the outstanding
// balance are capped; the surplus is reported as change.
func (lm *LibraryManager) PayFine(ctx context.Context, sess *Session, fineID int64, amount decimal.Decimal) Result[*Fine] {
	const op = "pay fine"
	if err := requireSession(sess); err != nil {
		return failure[*Fine](lm, op, err)
	}
	now := lm.clock()

	var (
		fine   *Fine
		change decimal.Decimal
	)
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if fine, err = s.GetFine(ctx, fineID); err != nil {
			return err
		}
		if err := requireMember(sess, fine.MemberID); err != nil {
			return err
		}
		if change, err = applyPayment(fine, amount, now); err != nil {
			return err
		}
		return s.SaveFineSettlement(ctx, fine)
	})
	if err != nil {
		return failure[*Fine](lm, op, err)
	}

	recorded := amount.Sub(change)
	lm.log.Info("fine payment recorded",
		zap.Int64("fine_id", fineID),
		zap.String("amount", money(recorded)),
		zap.String("status", string(fine.Status)))
	msg := fmt.Sprintf("Payment of %s recorded. Remaining: %s", money(recorded), money(fine.Remaining()))
	if change.IsPositive() {
		msg += fmt.Sprintf(". Change due: %s", money(change))
	}
	return succeed(fine, "%s", msg)
}

// WaiveFine cancels the unpaid part of a fine. Admin only.
func (lm *LibraryManager) WaiveFine(ctx context.Context, sess *Session, fineID int64, reason string) Result[*Fine] {
	const op = "waive fine"
	if err := requireAdmin(sess); err != nil {
		return failure[*Fine](lm, op, err)
	}
	now := lm.clock()

	var fine *Fine
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if fine, err = s.GetFine(ctx, fineID); err != nil {
			return err
		}
		if err := applyWaiver(fine, reason, now); err != nil {
			return err
		}
		return s.SaveFineSettlement(ctx, fine)
	})
	if err != nil {
		return failure[*Fine](lm, op, err)
	}

	lm.log.Info("fine waived", zap.Int64("fine_id", fineID), zap.String("by", sess.Username))
	return succeed(fine, "Fine waived.")
}

// ------------------ Catalog ------------------

// NewBook describes a copy being acquired.
type NewBook struct {
	ISBN            string
	Title           string
	Author          string
	Publisher       string
	PublicationYear int
	Category        string
	ShelfLocation   string
	Price           decimal.Decimal
}

// BookUpdate holds the editable descriptive fields of a copy.
type BookUpdate struct {
	Title           string
	Author          string
	Publisher       string
	PublicationYear int
	Category        string
	ShelfLocation   string
	Price           decimal.Decimal
}

func validateBookFields(title, author string, year int, price decimal.Decimal) error {
	if err := required("title", title); err != nil {
		return err
	}
	if err := required("author", author); err != nil {
		return err
	}
	if year < 0 {
		return fmt.Errorf("%w: publication year cannot be negative", ErrInvalidInput)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// AddBook records a new copy. The copy number continues from the copies
// already recorded for the ISBN and the book code is derived from both.
func (lm *LibraryManager) AddBook(ctx context.Context, sess *Session, in NewBook) Result[*Book] {
	const op = "add book"
	if err := requireAdmin(sess); err != nil {
		return failure[*Book](lm, op, err)
	}
	if err := required("ISBN", in.ISBN); err != nil {
		return failure[*Book](lm, op, err)
	}
	if err := validateBookFields(in.Title, in.Author, in.PublicationYear, in.Price); err != nil {
		return failure[*Book](lm, op, err)
	}

	book := &Book{
		ISBN:            strings.TrimSpace(in.ISBN),
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		Publisher:       strings.TrimSpace(in.Publisher),
		PublicationYear: in.PublicationYear,
		Category:        strings.TrimSpace(in.Category),
		ShelfLocation:   strings.TrimSpace(in.ShelfLocation),
		Price:           in.Price,
		AddedAt:         lm.clock(),
		Available:       true,
		Active:          true,
	}
	err := lm.db.InTx(ctx, func(s *Store) error {
		copies, err := s.CountCopies(ctx, book.ISBN)
		if err != nil {
			return err
		}
		book.CopyNumber = copies + 1
		book.Code = bookCode(book.ISBN, book.CopyNumber)
		return s.InsertBook(ctx, book)
	})
	if err != nil {
		return failure[*Book](lm, op, err)
	}

	lm.log.Info("book added", zap.Int64("book_id", book.ID), zap.String("code", book.Code))
	return succeed(book, "Added %s as %s.", book.DisplayName(), book.Code)
}

// UpdateBook edits the descriptive fields of a copy.
func (lm *LibraryManager) UpdateBook(ctx context.Context, sess *Session, id int64, in BookUpdate) Result[*Book] {
	const op = "update book"
	if err := requireAdmin(sess); err != nil {
		return failure[*Book](lm, op, err)
	}
	if err := validateBookFields(in.Title, in.Author, in.PublicationYear, in.Price); err != nil {
		return failure[*Book](lm, op, err)
	}

	var book *Book
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if book, err = s.GetBook(ctx, id); err != nil {
			return err
		}
		book.Title = strings.TrimSpace(in.Title)
		book.Author = strings.TrimSpace(in.Author)
		book.Publisher = strings.TrimSpace(in.Publisher)
		book.PublicationYear = in.PublicationYear
		book.Category = strings.TrimSpace(in.Category)
		book.ShelfLocation = strings.TrimSpace(in.ShelfLocation)
		book.Price = in.Price
		return s.UpdateBookDetails(ctx, book)
	})
	if err != nil {
		return failure[*Book](lm, op, err)
	}

	lm.log.Info("book updated", zap.Int64("book_id", id))
	return succeed(book, "Updated %s.", book.Code)
}

// DeactivateBook removes a copy from circulation. Copies on loan are refused.
func (lm *LibraryManager) DeactivateBook(ctx context.Context, sess *Session, id int64) Result[*Book] {
	const op = "deactivate book"
	if err := requireAdmin(sess); err != nil {
		return failure[*Book](lm, op, err)
	}

	var book *Book
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if book, err = s.GetBook(ctx, id); err != nil {
			return err
		}
		open, err := s.GetOpenIssueForBook(ctx, id)
		switch {
		case err == nil:
			return fmt.Errorf("%w: loan #%d is still open", ErrBookOnLoan, open.ID)
		case !errors.Is(err, ErrIssueNotFound):
			return err
		}
		book.Active = false
		return s.SetBookActive(ctx, id, false)
	})
	if err != nil {
		return failure[*Book](lm, op, err)
	}

	lm.log.Info("book deactivated", zap.Int64("book_id", id), zap.String("code", book.Code))
	return succeed(book, "Removed %s from the catalog.", book.Code)
}

// GetBook fetches one copy.
func (lm *LibraryManager) GetBook(ctx context.Context, sess *Session, id int64) Result[*Book] {
	if err := requireSession(sess); err != nil {
		return failure[*Book](lm, "get book", err)
	}
	book, err := lm.db.Store().GetBook(ctx, id)
	if err != nil {
		return failure[*Book](lm, "get book", err)
	}
	return succeed(book, "%s", book.DisplayName())
}

// GetBookByCode fetches one copy by its book code.
func (lm *LibraryManager) GetBookByCode(ctx context.Context, sess *Session, code string) Result[*Book] {
	if err := requireSession(sess); err != nil {
		return failure[*Book](lm, "get book", err)
	}
	book, err := lm.db.Store().GetBookByCode(ctx, code)
	if err != nil {
		return failure[*Book](lm, "get book", err)
	}
	return succeed(book, "%s", book.DisplayName())
}

// ListBooks returns the copies matching f. Only admins see inactive copies.
func (lm *LibraryManager) ListBooks(ctx context.Context, sess *Session, f BookFilter) Result[[]*Book] {
	if err := requireSession(sess); err != nil {
		return failure[[]*Book](lm, "list books", err)
	}
	if !sess.IsAdmin() {
		f.IncludeInactive = false
	}
	books, err := lm.db.Store().ListBooks(ctx, f)
	if err != nil {
		return failure[[]*Book](lm, "list books", err)
	}
	return succeed(books, "%d books", len(books))
}

// SearchBooks matches term against title, author, ISBN and book code.
func (lm *LibraryManager) SearchBooks(ctx context.Context, sess *Session, term string) Result[[]*Book] {
	return lm.ListBooks(ctx, sess, BookFilter{Search: term})
}

// ListAvailableBooks returns the copies that can be issued now.
func (lm *LibraryManager) ListAvailableBooks(ctx context.Context, sess *Session) Result[[]*Book] {
	return lm.ListBooks(ctx, sess, BookFilter{AvailableOnly: true})
}

// ------------------ Members ------------------

// NewMember describes a member being registered. VariantID is the student or
// faculty number and is generated when empty. YearOfStudy applies to
// students and Designation to faculty.
type NewMember struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Department  string
	VariantID   string
	YearOfStudy int
	Designation string
}

// MemberUpdate holds the editable contact and profile fields of a member.
type MemberUpdate struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Department  string
	YearOfStudy int
	Designation string
}

func validateEmail(email string) error {
	if err := required("email", email); err != nil {
		return err
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: %q is not an email address", ErrInvalidInput, email)
	}
	return nil
}

// createMember generates the identifiers of a new member and stores it. It
// runs inside the caller's transaction.
func createMember(ctx context.Context, s *Store, kind MemberKind, in NewMember, now time.Time) (*Member, error) {
	if _, ok := LimitsFor(kind); !ok {
		return nil, fmt.Errorf("%w: unknown member type %q", ErrInvalidInput, kind)
	}
	if err := required("first name", in.FirstName); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}

	taken, err := s.MemberEmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email %s already belongs to a member", ErrDuplicate, in.Email)
	}

	seq, err := s.NextMemberSequence(ctx, kind, now.Year())
	if err != nil {
		return nil, err
	}
	variant := strings.TrimSpace(in.VariantID)
	if variant == "" {
		variant = variantID(kind, now.Year(), seq)
	}
	department := strings.TrimSpace(in.Department)
	if department == "" {
		department = "Undeclared"
	}

	m := &Member{
		Kind:         kind,
		MembershipID: membershipID(kind, now.Year(), seq),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		RegisteredAt: now,
		Active:       true,
	}
	switch kind {
	case KindStudent:
		year := in.YearOfStudy
		if year <= 0 {
			year = 1
		}
		m.Student = &StudentProfile{StudentID: variant, Department: department, YearOfStudy: year}
	case KindFaculty:
		designation := strings.TrimSpace(in.Designation)
		if designation == "" {
			designation = "Professor"
		}
		m.Faculty = &FacultyProfile{FacultyID: variant, Department: department, Designation: designation}
	}

	if err := s.InsertMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (lm *LibraryManager) addMember(ctx context.Context, sess *Session, kind MemberKind, in NewMember) Result[*Member] {
	const op = "add member"
	if err := requireAdmin(sess); err != nil {
		return failure[*Member](lm, op, err)
	}
	now := lm.clock()

	var member *Member
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		member, err = createMember(ctx, s, kind, in, now)
		return err
	})
	if err != nil {
		return failure[*Member](lm, op, err)
	}

	lm.log.Info("member added",
		zap.Int64("member_id", member.ID),
		zap.String("membership_id", member.MembershipID),
		zap.String("kind", string(kind)))
	return succeed(member, "Registered %s as %s.", member.FullName(), member.MembershipID)
}

// AddStudent registers a Student member.
func (lm *LibraryManager) AddStudent(ctx context.Context, sess *Session, in NewMember) Result[*Member] {
	return lm.addMember(ctx, sess, KindStudent, in)
}

// AddFaculty registers a Faculty member.
func (lm *LibraryManager) AddFaculty(ctx context.Context, sess *Session, in NewMember) Result[*Member] {
	return lm.addMember(ctx, sess, KindFaculty, in)
}

// UpdateMember edits the contact and profile fields of a member.
func (lm *LibraryManager) UpdateMember(ctx context.Context, sess *Session, id int64, in MemberUpdate) Result[*Member] {
	const op = "update member"
	if err := requireAdmin(sess); err != nil {
		return failure[*Member](lm, op, err)
	}
	if err := required("first name", in.FirstName); err != nil {
		return failure[*Member](lm, op, err)
	}
	if err := validateEmail(in.Email); err != nil {
		return failure[*Member](lm, op, err)
	}

	var member *Member
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if member, err = s.GetMember(ctx, id); err != nil {
			return err
		}
		member.FirstName = strings.TrimSpace(in.FirstName)
		member.LastName = strings.TrimSpace(in.LastName)
		member.Email = strings.TrimSpace(in.Email)
		member.Phone = strings.TrimSpace(in.Phone)
		department := strings.TrimSpace(in.Department)
		switch {
		case member.Student != nil:
			if department != "" {
				member.Student.Department = department
			}
			if in.YearOfStudy > 0 {
				member.Student.YearOfStudy = in.YearOfStudy
			}
		case member.Faculty != nil:
			if department != "" {
				member.Faculty.Department = department
			}
			if d := strings.TrimSpace(in.Designation); d != "" {
				member.Faculty.Designation = d
			}
		}
		return s.UpdateMemberDetails(ctx, member)
	})
	if err != nil {
		return failure[*Member](lm, op, err)
	}

	lm.log.Info("member updated", zap.Int64("member_id", id))
	return succeed(member, "Updated %s.", member.MembershipID)
}

// SetMemberActive deactivates or reactivates a member. Members are never
// deleted.
func (lm *LibraryManager) SetMemberActive(ctx context.Context, sess *Session, id int64, active bool) Result[*Member] {
	const op = "set member active"
	if err := requireAdmin(sess); err != nil {
		return failure[*Member](lm, op, err)
	}

	var member *Member
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if member, err = s.GetMember(ctx, id); err != nil {
			return err
		}
		member.Active = active
		return s.SetMemberActive(ctx, id, active)
	})
	if err != nil {
		return failure[*Member](lm, op, err)
	}

	state := "deactivated"
	if active {
		state = "reactivated"
	}
	lm.log.Info("member "+state, zap.Int64("member_id", id))
	return succeed(member, "Member %s %s.", member.MembershipID, state)
}

// GetMember fetches one member. Non-admins may only fetch their own record.
func (lm *LibraryManager) GetMember(ctx context.Context, sess *Session, id int64) Result[*Member] {
	if err := requireMember(sess, id); err != nil {
		return failure[*Member](lm, "get member", err)
	}
	member, err := lm.db.Store().GetMember(ctx, id)
	if err != nil {
		return failure[*Member](lm, "get member", err)
	}
	return succeed(member, "%s", member.FullName())
}

// GetMemberByMembershipID fetches one member by the printed membership ID.
func (lm *LibraryManager) GetMemberByMembershipID(ctx context.Context, sess *Session, membershipID string) Result[*Member] {
	if err := requireSession(sess); err != nil {
		return failure[*Member](lm, "get member", err)
	}
	member, err := lm.db.Store().GetMemberByMembershipID(ctx, membershipID)
	if err != nil {
		return failure[*Member](lm, "get member", err)
	}
	if err := requireMember(sess, member.ID); err != nil {
		return failure[*Member](lm, "get member", err)
	}
	return succeed(member, "%s", member.FullName())
}

// ListMembers returns the members matching f. A non-admin only ever sees the
// member linked to their account.
func (lm *LibraryManager) ListMembers(ctx context.Context, sess *Session, f MemberFilter) Result[[]*Member] {
	const op = "list members"
	scope, err := scopeMember(sess, 0)
	if err != nil {
		return failure[[]*Member](lm, op, err)
	}
	store := lm.db.Store()
	if scope == 0 {
		members, err := store.ListMembers(ctx, f)
		if err != nil {
			return failure[[]*Member](lm, op, err)
		}
		return succeed(members, "%d members", len(members))
	}

	member, err := store.GetMember(ctx, scope)
	if err != nil {
		return failure[[]*Member](lm, op, err)
	}
	members := []*Member{}
	if f.Kind == "" || f.Kind == member.Kind {
		members = append(members, member)
	}
	return succeed(members, "%d members", len(members))
}

// ListStudents lists the active Student members.
func (lm *LibraryManager) ListStudents(ctx context.Context, sess *Session) Result[[]*Member] {
	return lm.ListMembers(ctx, sess, MemberFilter{Kind: KindStudent})
}

// ListFaculty lists the active Faculty members.
func (lm *LibraryManager) ListFaculty(ctx context.Context, sess *Session) Result[[]*Member] {
	return lm.ListMembers(ctx, sess, MemberFilter{Kind: KindFaculty})
}

// ------------------ Queries ------------------

// ListIssues returns loans in the requested scope. Non-admin listings are
// limited to the caller's own member.
func (lm *LibraryManager) ListIssues(ctx context.Context, sess *Session, f IssueFilter) Result[[]*BookIssue] {
	const op = "list loans"
	scope, err := scopeMember(sess, f.MemberID)
	if err != nil {
		return failure[[]*BookIssue](lm, op, err)
	}
	f.MemberID = scope
	issues, err := lm.db.Store().ListIssues(ctx, f, lm.clock())
	if err != nil {
		return failure[[]*BookIssue](lm, op, err)
	}
	return succeed(issues, "%d loans", len(issues))
}

// ListFines returns fines, optionally only unsettled ones. Non-admin listings
// are limited to the caller's own member.
func (lm *LibraryManager) ListFines(ctx context.Context, sess *Session, f FineFilter) Result[[]*Fine] {
	const op = "list fines"
	scope, err := scopeMember(sess, f.MemberID)
	if err != nil {
		return failure[[]*Fine](lm, op, err)
	}
	f.MemberID = scope
	fines, err := lm.db.Store().ListFines(ctx, f)
	if err != nil {
		return failure[[]*Fine](lm, op, err)
	}
	return succeed(fines, "%d fines", len(fines))
}

// Statistics returns the dashboard snapshot.
func (lm *LibraryManager) Statistics(ctx context.Context, sess *Session) Result[*Statistics] {
	if err := requireSession(sess); err != nil {
		return failure[*Statistics](lm, "statistics", err)
	}
	st, err := lm.db.Store().Statistics(ctx, lm.clock())
	if err != nil {
		return failure[*Statistics](lm, "statistics", err)
	}
	return succeed(st, "Statistics as of %s", st.GeneratedAt.Format(time.RFC3339))
}

// MemberLoanSummary reports a member's borrowing position.
func (lm *LibraryManager) MemberLoanSummary(ctx context.Context, sess *Session, memberID int64) Result[*LoanSummary] {
	const op = "loan summary"
	if err := requireMember(sess, memberID); err != nil {
		return failure[*LoanSummary](lm, op, err)
	}
	now := lm.clock()
	store := lm.db.Store()

	member, err := store.GetMember(ctx, memberID)
	if err != nil {
		return failure[*LoanSummary](lm, op, err)
	}
	sum := &LoanSummary{MemberID: memberID, Limits: member.Limits()}
	if sum.ActiveLoans, err = store.CountActiveIssues(ctx, memberID); err != nil {
		return failure[*LoanSummary](lm, op, err)
	}
	if sum.OverdueLoans, err = store.CountOverdueIssues(ctx, memberID, now); err != nil {
		return failure[*LoanSummary](lm, op, err)
	}
	if sum.UnpaidFines, err = store.UnpaidFineBalance(ctx, memberID); err != nil {
		return failure[*LoanSummary](lm, op, err)
	}
	sum.RemainingSlots = max(sum.Limits.MaxBooks-sum.ActiveLoans, 0)
	return succeed(sum, "%d of %d books on loan, %s unpaid", sum.ActiveLoans, sum.Limits.MaxBooks, money(sum.UnpaidFines))
}
