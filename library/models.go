package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Book is a single physical copy. Copies of the same title share an ISBN and
// are told apart by CopyNumber and the generated BookCode.
type Book struct {
	ID              int64           `db:"id" json:"id"`
	Code            string          `db:"book_code" json:"code"`
	ISBN            string          `db:"isbn" json:"isbn"`
	Title           string          `db:"title" json:"title"`
	Author          string          `db:"author" json:"author"`
	Publisher       string          `db:"publisher" json:"publisher,omitempty"`
	PublicationYear int             `db:"publication_year" json:"publication_year,omitempty"`
	Category        string          `db:"category" json:"category,omitempty"`
	ShelfLocation   string          `db:"shelf_location" json:"shelf_location,omitempty"`
	CopyNumber      int             `db:"copy_number" json:"copy_number"`
	Price           decimal.Decimal `db:"price" json:"price"`
	AddedAt         time.Time       `db:"added_at" json:"added_at"`
	Available       bool            `db:"available" json:"available"`
	Active          bool            `db:"active" json:"active"`
}

// DisplayName is the label used in listings.
func (b *Book) DisplayName() string {
	return fmt.Sprintf("%s - %s (copy #%d)", b.Title, b.Author, b.CopyNumber)
}

// MemberKind tags the Member variant.
type MemberKind string

const (
	KindStudent MemberKind = "Student"
	KindFaculty MemberKind = "Faculty"
)

// Limits are the borrowing capabilities of a member kind.
type Limits struct {
	MaxBooks     int
	MaxIssueDays int
}

var memberLimits = map[MemberKind]Limits{
	KindStudent: {MaxBooks: 3, MaxIssueDays: 14},
	KindFaculty: {MaxBooks: 10, MaxIssueDays: 30},
}

// LimitsFor returns the limits of kind. The second value is false for an
// unknown kind.
func LimitsFor(kind MemberKind) (Limits, bool) {
	l, ok := memberLimits[kind]
	return l, ok
}

// ParseMemberKind accepts "student", "faculty" and "professor" in any case.
func ParseMemberKind(s string) (MemberKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return KindStudent, nil
	case "faculty", "professor":
		return KindFaculty, nil
	}
	return "", fmt.Errorf("%w: unknown member type %q", ErrInvalidInput, s)
}

// StudentProfile holds the Student-only attributes.
type StudentProfile struct {
	StudentID   string `json:"student_id"`
	Department  string `json:"department"`
	YearOfStudy int    `json:"year_of_study"`
}

// FacultyProfile holds the Faculty-only attributes.
type FacultyProfile struct {
	FacultyID   string `json:"faculty_id"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
}

// Member is a library patron. Exactly one of Student and Faculty is set,
// matching Kind.
type Member struct {
	ID           int64           `json:"id"`
	Kind         MemberKind      `json:"kind"`
	MembershipID string          `json:"membership_id"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone,omitempty"`
	RegisteredAt time.Time       `json:"registered_at"`
	Active       bool            `json:"active"`
	Student      *StudentProfile `json:"student,omitempty"`
	Faculty      *FacultyProfile `json:"faculty,omitempty"`
}

// FullName joins first and last name.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Limits resolves the borrowing limits for the member's kind.
func (m *Member) Limits() Limits {
	return memberLimits[m.Kind]
}

// Department returns the department of either variant.
func (m *Member) Department() string {
	switch {
	case m.Student != nil:
		return m.Student.Department
	case m.Faculty != nil:
		return m.Faculty.Department
	}
	return ""
}

// IssueStatus is the lifecycle state of a loan.
type IssueStatus string

const (
	IssueStatusIssued   IssueStatus = "Issued"
	IssueStatusReturned IssueStatus = "Returned"
)

// BookIssue is a loan of one book copy to one member.
type BookIssue struct {
	ID            int64       `db:"id" json:"id"`
	BookID        int64       `db:"book_id" json:"book_id"`
	MemberID      int64       `db:"member_id" json:"member_id"`
	IssueDate     time.Time   `db:"issue_date" json:"issue_date"`
	DueDate       time.Time   `db:"due_date" json:"due_date"`
	ReturnDate    *time.Time  `db:"return_date" json:"return_date,omitempty"`
	IssueDuration int         `db:"issue_duration" json:"issue_duration"`
	Status        IssueStatus `db:"status" json:"status"`
	IssuedBy      string      `db:"issued_by" json:"issued_by,omitempty"`
	ReturnedTo    string      `db:"returned_to" json:"returned_to,omitempty"`
	Remarks       string      `db:"remarks" json:"remarks,omitempty"`

	// Filled by listing queries.
	BookTitle  string `db:"book_title" json:"book_title,omitempty"`
	BookCode   string `db:"book_code" json:"book_code,omitempty"`
	MemberName string `db:"member_name" json:"member_name,omitempty"`
}

// IsReturned reports whether the loan is closed.
func (i *BookIssue) IsReturned() bool { return i.ReturnDate != nil }

// IsOverdue reports whether the loan is still open past its due date at now.
func (i *BookIssue) IsOverdue(now time.Time) bool {
	return i.ReturnDate == nil && now.After(i.DueDate)
}

// DaysOverdue is the number of whole days the open loan is past due at now.
func (i *BookIssue) DaysOverdue(now time.Time) int {
	if !i.IsOverdue(now) {
		return 0
	}
	return wholeDaysBetween(i.DueDate, now)
}

// StatusLabel is the human-readable state used by listings.
func (i *BookIssue) StatusLabel(now time.Time) string {
	if i.IsReturned() {
		return string(IssueStatusReturned)
	}
	if i.IsOverdue(now) {
		return fmt.Sprintf("Overdue (%d days)", i.DaysOverdue(now))
	}
	return string(IssueStatusIssued)
}

// FineStatus is the settlement state of a fine.
type FineStatus string

const (
	FineStatusPending FineStatus = "Pending"
	FineStatusPartial FineStatus = "Partial"
	FineStatusPaid    FineStatus = "Paid"
	FineStatusWaived  FineStatus = "Waived"
)

// Fine is the penalty for one late return.
type Fine struct {
	ID          int64           `db:"id" json:"id"`
	IssueID     int64           `db:"issue_id" json:"issue_id"`
	DaysOverdue int             `db:"days_overdue" json:"days_overdue"`
	FinePerDay  decimal.Decimal `db:"fine_per_day" json:"fine_per_day"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	AmountPaid  decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	FineDate    time.Time       `db:"fine_date" json:"fine_date"`
	PaymentDate *time.Time      `db:"payment_date" json:"payment_date,omitempty"`
	Status      FineStatus      `db:"status" json:"status"`
	Remarks     string          `db:"remarks" json:"remarks,omitempty"`

	// Filled by listing queries.
	MemberID   int64  `db:"member_id" json:"member_id,omitempty"`
	MemberName string `db:"member_name" json:"member_name,omitempty"`
	BookTitle  string `db:"book_title" json:"book_title,omitempty"`
}

// Remaining is the outstanding balance.
func (f *Fine) Remaining() decimal.Decimal {
	r := f.TotalAmount.Sub(f.AmountPaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// IsSettled reports whether nothing more can be collected on the fine.
func (f *Fine) IsSettled() bool {
	return f.AmountPaid.GreaterThanOrEqual(f.TotalAmount) ||
		f.Status == FineStatusPaid || f.Status == FineStatusWaived
}

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole accepts "user" and "admin" in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// User is a login account, optionally linked to a Member.
type User struct {
	ID           int64       `db:"id" json:"id"`
	Username     string      `db:"username" json:"username"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	Role         Role        `db:"role" json:"role"`
	MemberKind   *MemberKind `db:"member_kind" json:"member_kind,omitempty"`
	MemberID     *int64      `db:"member_id" json:"member_id,omitempty"`
	FirstName    string      `db:"first_name" json:"first_name,omitempty"`
	LastName     string      `db:"last_name" json:"last_name,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	LastLoginAt  *time.Time  `db:"last_login_at" json:"last_login_at,omitempty"`
	Active       bool        `db:"active" json:"active"`
}

// FullName falls back to the username when no name was recorded.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// IsAdmin reports whether the account has the Admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Statistics is the dashboard snapshot.
type Statistics struct {
	TotalBooks     int             `json:"total_books"`
	AvailableBooks int             `json:"available_books"`
	TotalMembers   int             `json:"total_members"`
	TotalStudents  int             `json:"total_students"`
	TotalFaculty   int             `json:"total_faculty"`
	ActiveIssues   int             `json:"active_issues"`
	OverdueIssues  int             `json:"overdue_issues"`
	PendingFines   decimal.Decimal `json:"pending_fines"`
	FinesCollected decimal.Decimal `json:"fines_collected"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// LoanSummary is the borrowing position of one member.
type LoanSummary struct {
	MemberID       int64           `json:"member_id"`
	ActiveLoans    int             `json:"active_loans"`
	OverdueLoans   int             `json:"overdue_loans"`
	Limits         Limits          `json:"limits"`
	RemainingSlots int             `json:"remaining_slots"`
	UnpaidFines    decimal.Decimal `json:"unpaid_fines"`
}
