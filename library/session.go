package library

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated caller of an operation. It is created by
// Login, owned by the front end, and passed into every call. A nil or ended
// session is rejected with ErrNotAuthenticated.
type Session struct {
	ID        uuid.UUID
	UserID    int64
	Username  string
	FullName  string
	Role      Role
	MemberID  *int64
	StartedAt time.Time

	ended bool
}

func newSession(u *User, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    u.ID,
		Username:  u.Username,
		FullName:  u.FullName(),
		Role:      u.Role,
		MemberID:  u.MemberID,
		StartedAt: now,
	}
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool { return s != nil && !s.ended }

// IsAdmin reports whether the session belongs to an Admin account.
func (s *Session) IsAdmin() bool { return s.Valid() && s.Role == RoleAdmin }

// End invalidates the session.
func (s *Session) End() {
	if s != nil {
		s.ended = true
	}
}

func (s *Session) String() string {
	if s == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s (%s)", s.Username, s.Role)
}

func requireSession(s *Session) error {
	if !s.Valid() {
		return ErrNotAuthenticated
	}
	return nil
}

func requireAdmin(s *Session) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if s.Role != RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// requireMember allows admins everything and other accounts only the member
// linked to them.
func requireMember(s *Session, memberID int64) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if s.Role == RoleAdmin {
		return nil
	}
	if s.MemberID == nil || *s.MemberID != memberID {
		return fmt.Errorf("%w: account is not linked to member %d", ErrForbidden, memberID)
	}
	return nil
}

// scopeMember returns the member a listing must be restricted to: requested
// for admins, the linked member for everyone else.
func scopeMember(s *Session, requested int64) (int64, error) {
	if err := requireSession(s); err != nil {
		return 0, err
	}
	if s.Role == RoleAdmin {
		return requested, nil
	}
	if s.MemberID == nil {
		return 0, fmt.Errorf("%w: account is not linked to a member", ErrForbidden)
	}
	if requested != 0 && requested != *s.MemberID {
		return 0, fmt.Errorf("%w: account is not linked to member %d", ErrForbidden, requested)
	}
	return *s.MemberID, nil
}
