package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Registration is a self-service sign-up: a login account plus the member
// record it borrows as.
type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Kind            MemberKind
	FirstName       string
	LastName        string
	Department      string
}

func (lm *LibraryManager) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), lm.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// EnsureAdmin creates the bootstrap administrator when no Admin account
// exists. The value is nil when nothing had to be created.
func (lm *LibraryManager) EnsureAdmin(ctx context.Context) Result[*User] {
	const op = "ensure admin"
	a := lm.admin
	if err := required("admin username", a.Username); err != nil {
		return failure[*User](lm, op, err)
	}
	if len(a.Password) < minPasswordLength {
		return failure[*User](lm, op, ErrPasswordTooShort)
	}

	var admin *User
	err := lm.db.InTx(ctx, func(s *Store) error {
		exists, err := s.AdminExists(ctx)
		if err != nil || exists {
			return err
		}
		hash, err := lm.hashPassword(a.Password)
		if err != nil {
			return err
		}
		admin = &User{
			Username:     strings.TrimSpace(a.Username),
			Email:        strings.TrimSpace(a.Email),
			PasswordHash: hash,
			Role:         RoleAdmin,
			FirstName:    "System",
			LastName:     "Administrator",
			CreatedAt:    lm.clock(),
			Active:       true,
		}
		return s.InsertUser(ctx, admin)
	})
	if err != nil {
		return failure[*User](lm, op, err)
	}
	if admin == nil {
		return succeed[*User](nil, "Admin account present.")
	}
	lm.log.Info("bootstrap admin created", zap.String("username", admin.Username))
	return succeed(admin, "Created admin account %q.", admin.Username)
}

// Login checks the credentials and starts a Session. The username matches
// without regard to case.
func (lm *LibraryManager) Login(ctx context.Context, username, password string) Result[*Session] {
	const op = "login"
	if strings.TrimSpace(username) == "" || password == "" {
		return failure[*Session](lm, op, fmt.Errorf("%w: username and password are required", ErrInvalidInput))
	}

	store := lm.db.Store()
	user, err := store.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return failure[*Session](lm, op, ErrInvalidCredentials)
	}
	if err != nil {
		return failure[*Session](lm, op, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		lm.log.Warn("login rejected", zap.String("username", user.Username))
		return failure[*Session](lm, op, ErrInvalidCredentials)
	}
	if !user.Active {
		return failure[*Session](lm, op, ErrAccountDisabled)
	}

	now := lm.clock()
	if err := store.TouchLastLogin(ctx, user.ID, now); err != nil {
		return failure[*Session](lm, op, err)
	}
	sess := newSession(user, now)
	lm.log.Info("login", zap.String("username", user.Username), zap.Stringer("session", sess.ID))
	return succeed(sess, "Welcome, %s!", sess.FullName)
}

// Logout ends the session. Any later call made with it fails with
// ErrNotAuthenticated.
func (lm *LibraryManager) Logout(sess *Session) Result[struct{}] {
	if err := requireSession(sess); err != nil {
		return failure[struct{}](lm, "logout", err)
	}
	sess.End()
	lm.log.Info("logout", zap.String("username", sess.Username), zap.Stringer("session", sess.ID))
	return succeed(struct{}{}, "Goodbye, %s.", sess.FullName)
}

func (r *Registration) validate() error {
	if err := required("username", r.Username); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(r.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if _, ok := LimitsFor(r.Kind); !ok {
		return fmt.Errorf("%w: unknown member type %q", ErrInvalidInput, r.Kind)
	}
	return nil
}

// Register creates a member of the selected kind and a login account linked
// to it, both in one transaction. Username and email must be unused by any
// account, and the email by any member.
func (lm *LibraryManager) Register(ctx context.Context, r Registration) Result[*User] {
	const op = "register"
	if err := r.validate(); err != nil {
		return failure[*User](lm, op, err)
	}
	hash, err := lm.hashPassword(r.Password)
	if err != nil {
		return failure[*User](lm, op, err)
	}
	now := lm.clock()

	var user *User
	err = lm.db.InTx(ctx, func(s *Store) error {
		taken, err := s.UsernameExists(ctx, r.Username)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: username %s is already taken", ErrDuplicate, r.Username)
		}
		if taken, err = s.UserEmailExists(ctx, r.Email); err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: email %s is already used by an account", ErrDuplicate, r.Email)
		}

		firstName := strings.TrimSpace(r.FirstName)
		if firstName == "" {
			firstName = strings.TrimSpace(r.Username)
		}
		member, err := createMember(ctx, s, r.Kind, NewMember{
			FirstName:  firstName,
			LastName:   r.LastName,
			Email:      r.Email,
			Department: r.Department,
		}, now)
		if err != nil {
			return err
		}

		kind := r.Kind
		user = &User{
			Username:     strings.TrimSpace(r.Username),
			Email:        strings.TrimSpace(r.Email),
			PasswordHash: hash,
			Role:         RoleUser,
			MemberKind:   &kind,
			MemberID:     &member.ID,
			FirstName:    strings.TrimSpace(r.FirstName),
			LastName:     strings.TrimSpace(r.LastName),
			CreatedAt:    now,
			Active:       true,
		}
		return s.InsertUser(ctx, user)
	})
	if err != nil {
		return failure[*User](lm, op, err)
	}

	lm.log.Info("account registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.Int64("member_id", *user.MemberID))
	return succeed(user, "Account created. You can log in now.")
}

// ListUsers returns every login account. Admin only.
func (lm *LibraryManager) ListUsers(ctx context.Context, sess *Session) Result[[]*User] {
	if err := requireAdmin(sess); err != nil {
		return failure[[]*User](lm, "list users", err)
	}
	users, err := lm.db.Store().ListUsers(ctx)
	if err != nil {
		return failure[[]*User](lm, "list users", err)
	}
	return succeed(users, "%d users", len(users))
}

// UpdateUserRole changes the role of an account. Admin only; an admin cannot
// change their own role.
func (lm *LibraryManager) UpdateUserRole(ctx context.Context, sess *Session, userID int64, role Role) Result[*User] {
	const op = "update user role"
	if err := requireAdmin(sess); err != nil {
		return failure[*User](lm, op, err)
	}
	if role != RoleUser && role != RoleAdmin {
		return failure[*User](lm, op, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role))
	}
	if userID == sess.UserID {
		return failure[*User](lm, op, fmt.Errorf("%w: cannot change your own role", ErrForbidden))
	}

	var user *User
	err := lm.db.InTx(ctx, func(s *Store) error {
		var err error
		if user, err = s.GetUser(ctx, userID); err != nil {
			return err
		}
		user.Role = role
		return s.SetUserRole(ctx, userID, role)
	})
	if err != nil {
		return failure[*User](lm, op, err)
	}

	lm.log.Info("user role changed", zap.Int64("user_id", userID), zap.String("role", string(role)))
	return succeed(user, "Role of %s set to %s.", user.Username, role)
}
