package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
)

// MemberFilter narrows a member listing. The zero value lists every active
// member of both kinds.
type MemberFilter struct {
	Kind            MemberKind
	Search          string
	IncludeInactive bool
}

// memberRow is the single-table layout of members; member_type is the
// discriminator and selects which variant columns are meaningful.
type memberRow struct {
	ID           int64          `db:"id"`
	MemberType   string         `db:"member_type"`
	MembershipID string         `db:"membership_id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	Phone        string         `db:"phone"`
	RegisteredAt time.Time      `db:"registered_at"`
	Active       bool           `db:"active"`
	Department   string         `db:"department"`
	StudentID    sql.NullString `db:"student_id"`
	YearOfStudy  int            `db:"year_of_study"`
	FacultyID    sql.NullString `db:"faculty_id"`
	Designation  string         `db:"designation"`
}

const memberColumns = `id,member_type,membership_id,first_name,last_name,email,phone,registered_at,
	active,department,student_id,year_of_study,faculty_id,designation`

func (r *memberRow) toMember() *Member {
	m := &Member{
		ID:           r.ID,
		Kind:         MemberKind(r.MemberType),
		MembershipID: r.MembershipID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		RegisteredAt: r.RegisteredAt,
		Active:       r.Active,
	}
	switch m.Kind {
	case KindStudent:
		m.Student = &StudentProfile{StudentID: r.StudentID.String, Department: r.Department, YearOfStudy: r.YearOfStudy}
	case KindFaculty:
		m.Faculty = &FacultyProfile{FacultyID: r.FacultyID.String, Department: r.Department, Designation: r.Designation}
	}
	return m
}

func rowFromMember(m *Member) (memberRow, error) {
	r := memberRow{
		ID:           m.ID,
		MemberType:   string(m.Kind),
		MembershipID: m.MembershipID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		Phone:        m.Phone,
		RegisteredAt: stamp(m.RegisteredAt),
		Active:       m.Active,
	}
	switch m.Kind {
	case KindStudent:
		if m.Student == nil {
			return r, fmt.Errorf("%w: student profile missing", ErrInvalidInput)
		}
		r.Department = m.Student.Department
		r.StudentID = sql.NullString{String: m.Student.StudentID, Valid: true}
		r.YearOfStudy = m.Student.YearOfStudy
	case KindFaculty:
		if m.Faculty == nil {
			return r, fmt.Errorf("%w: faculty profile missing", ErrInvalidInput)
		}
		r.Department = m.Faculty.Department
		r.FacultyID = sql.NullString{String: m.Faculty.FacultyID, Valid: true}
		r.Designation = m.Faculty.Designation
	default:
		return r, fmt.Errorf("%w: unknown member type %q", ErrInvalidInput, m.Kind)
	}
	return r, nil
}

// InsertMember stores m and sets its ID.
func (s *Store) InsertMember(ctx context.Context, m *Member) error {
	r, err := rowFromMember(m)
	if err != nil {
		return err
	}
	id, err := s.insert(ctx, `INSERT INTO members(member_type,membership_id,first_name,last_name,email,email_key,
		phone,registered_at,active,department,student_id,year_of_study,faculty_id,designation,search_text)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.MemberType, r.MembershipID, r.FirstName, r.LastName, r.Email, foldKey(r.Email),
		r.Phone, r.RegisteredAt, r.Active, r.Department, r.StudentID, r.YearOfStudy, r.FacultyID, r.Designation,
		memberSearchText(&r))
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// GetMember fetches one member by ID.
func (s *Store) GetMember(ctx context.Context, id int64) (*Member, error) {
	var r memberRow
	if err := s.get(ctx, &r, `SELECT `+memberColumns+` FROM members WHERE id=?`, id); err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	return r.toMember(), nil
}

// GetMemberByMembershipID fetches one member by the printed membership ID.
func (s *Store) GetMemberByMembershipID(ctx context.Context, membershipID string) (*Member, error) {
	var r memberRow
	if err := s.get(ctx, &r, `SELECT `+memberColumns+` FROM members WHERE membership_id=?`,
		strings.TrimSpace(membershipID)); err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	return r.toMember(), nil
}

// MemberEmailExists reports whether any member already uses email, ignoring case.
func (s *Store) MemberEmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM members WHERE email_key=?`, foldKey(email))
}

// NextMemberSequence returns the next free sequence number for membership
// IDs of kind issued in year.
func (s *Store) NextMemberSequence(ctx context.Context, kind MemberKind, year int) (int, error) {
	prefix := fmt.Sprintf("%s-%d-", membershipPrefix(kind), year)
	n, err := s.count(ctx, `SELECT COUNT(*) FROM members WHERE membership_id LIKE ?`, prefix+"%")
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// UpdateMemberDetails rewrites the contact and profile columns of m.
func (s *Store) UpdateMemberDetails(ctx context.Context, m *Member) error {
	r, err := rowFromMember(m)
	if err != nil {
		return err
	}
	return s.exec(ctx, ErrMemberNotFound, `UPDATE members SET first_name=?,last_name=?,email=?,email_key=?,
		phone=?,department=?,year_of_study=?,designation=?,search_text=? WHERE id=?`,
		r.FirstName, r.LastName, r.Email, foldKey(r.Email), r.Phone, r.Department, r.YearOfStudy, r.Designation,
		memberSearchText(&r), r.ID)
}

func memberSearchText(r *memberRow) string {
	return searchText(r.FirstName, r.LastName, r.Email, r.MembershipID)
}

// SetMemberActive deactivates or reactivates a member.
func (s *Store) SetMemberActive(ctx context.Context, id int64, active bool) error {
	return s.exec(ctx, ErrMemberNotFound, `UPDATE members SET active=? WHERE id=?`, active, id)
}

// ListMembers returns the members matching f ordered by last and first name.
func (s *Store) ListMembers(ctx context.Context, f MemberFilter) ([]*Member, error) {
	ds := dialect.From("members").
		Select(goqu.L(memberColumns)).
		Order(goqu.C("last_name").Asc(), goqu.C("first_name").Asc())

	if !f.IncludeInactive {
		ds = ds.Where(goqu.C("active").Eq(1))
	}
	if f.Kind != "" {
		ds = ds.Where(goqu.C("member_type").Eq(string(f.Kind)))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		ds = ds.Where(likeFolded(term))
	}

	var rows []memberRow
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	members := make([]*Member, 0, len(rows))
	for i := range rows {
		members = append(members, rows[i].toMember())
	}
	return members, nil
}
