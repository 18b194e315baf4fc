// Package auth provides Quill's user accounts, session store, CSRF token
// validation, and email verification codes.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role represents a user's role in the system.
type Role string

const (
	// RoleAdmin has full access to all features.
	RoleAdmin Role = "admin"

	// RoleEditor can manage posts, pages, and events.
	RoleEditor Role = "editor"

	// RoleMember is a registered site member.
	RoleMember Role = "member"
)

// ValidRoles is a list of all valid roles.
var ValidRoles = []Role{RoleAdmin, RoleEditor, RoleMember}

// IsValid checks if the role is a valid role.
func (r Role) IsValid() bool {
	for _, valid := range ValidRoles {
		if r == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// User represents a user in the system.
type User struct {
	ID            int64
	Username      string
	Email         string
	PasswordHash  string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	LastLogin     *time.Time
}

// bcrypt cost for password hashing
const bcryptCost = 12

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned when credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameExists is returned when a username already exists.
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidRole is returned when an invalid role is specified.
	ErrInvalidRole = errors.New("invalid role")
)

// UserStore provides database operations for users.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Create creates a new user.
func (s *UserStore) Create(username, email, password string, role Role) (*User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		username, email, hash, string(role),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user ID: %w", err)
	}

	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
	}, nil
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(id int64) (*User, error) {
	return s.getUser(`id = ?`, id)
}

// GetByUsername retrieves a user by username.
func (s *UserStore) GetByUsername(username string) (*User, error) {
	return s.getUser(`username = ?`, username)
}

func (s *UserStore) getUser(where string, arg any) (*User, error) {
	user := &User{}
	var lastLogin sql.NullTime
	var role string

	err := s.db.QueryRow(
		`SELECT id, username, email, password_hash, role, email_verified, created_at, last_login
		 FROM users WHERE `+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &role, &user.EmailVerified, &user.CreatedAt, &lastLogin)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	user.Role = Role(role)
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// MarkEmailVerified records that the user's email address has been verified.
func (s *UserStore) MarkEmailVerified(id int64) error {
	result, err := s.db.Exec(`UPDATE users SET email_verified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking email verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateLastLogin updates the last login timestamp for a user.
func (s *UserStore) UpdateLastLogin(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// Count returns the number of users in the system.
func (s *UserStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// Authenticate validates credentials and returns the user if valid.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	user, err := s.GetByUsername(username)
	if err != nil {
		if err == ErrUserNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Update last login timestamp
	_ = s.UpdateLastLogin(user.ID)

	return user, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
