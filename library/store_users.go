package library

import (
	"context"
	"time"
)

const userColumns = `id,username,email,password_hash,role,member_kind,member_id,first_name,last_name,
	created_at,last_login_at,active`

// InsertUser stores u and sets its ID.
func (s *Store) InsertUser(ctx context.Context, u *User) error {
	id, err := s.insert(ctx, `INSERT INTO users(username,username_key,email,email_key,password_hash,role,
		member_kind,member_id,first_name,last_name,created_at,active) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Username, foldKey(u.Username), u.Email, foldKey(u.Email), u.PasswordHash, u.Role, u.MemberKind, u.MemberID,
		u.FirstName, u.LastName, stamp(u.CreatedAt), u.Active)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// GetUser fetches one account by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=?`, id); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &u, nil
}

// GetUserByUsername fetches one account, matching the username without
// regard to case.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username_key=?`,
		foldKey(username)); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &u, nil
}

// UsernameExists reports whether the username is taken, ignoring case.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE username_key=?`, foldKey(username))
}

// UserEmailExists reports whether an account already uses email, ignoring case.
func (s *Store) UserEmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE email_key=?`, foldKey(email))
}

// AdminExists reports whether at least one Admin account exists.
func (s *Store) AdminExists(ctx context.Context) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE role=?`, RoleAdmin)
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return s.exec(ctx, ErrUserNotFound, `UPDATE users SET last_login_at=? WHERE id=?`, stamp(at), id)
}

// SetUserRole changes the role of an account.
func (s *Store) SetUserRole(ctx context.Context, id int64, role Role) error {
	return s.exec(ctx, ErrUserNotFound, `UPDATE users SET role=? WHERE id=?`, role, id)
}

// ListUsers returns every account ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	users := []*User{}
	if err := s.selectRaw(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username_key`); err != nil {
		return nil, err
	}
	return users, nil
}
