package auth

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/quillcms/quill/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "quill.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st.DB()
}

func TestUserStoreCreateAndGet(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	created, err := users.Create("alice", "alice@example.com", "correct horse battery", RoleEditor)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if created.ID == 0 {
		t.Error("created user has no ID")
	}

	got, err := users.GetByUsername("alice")
	if err != nil {
		t.Fatalf("getting user: %v", err)
	}
	if got.Email != "alice@example.com" || got.Role != RoleEditor {
		t.Errorf("got user %+v, want alice the editor", got)
	}
	if got.EmailVerified {
		t.Error("new user must start unverified")
	}
	if got.PasswordHash == "correct horse battery" {
		t.Error("password stored in the clear")
	}

	byID, err := users.GetByID(created.ID)
	if err != nil {
		t.Fatalf("getting user by ID: %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("GetByID returned %q, want alice", byID.Username)
	}
}

func TestUserStoreDuplicateUsername(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	if _, err := users.Create("alice", "a@example.com", "password-one", RoleMember); err != nil {
		t.Fatal(err)
	}
	_, err := users.Create("alice", "b@example.com", "password-two", RoleMember)
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("err = %v, want ErrUsernameExists", err)
	}
}

func TestUserStoreInvalidRole(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	_, err := users.Create("alice", "a@example.com", "password", Role("superuser"))
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
}

func TestUserStoreNotFound(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	if _, err := users.GetByUsername("ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if err := users.MarkEmailVerified(999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("MarkEmailVerified err = %v, want ErrUserNotFound", err)
	}
}

func TestUserStoreAuthenticate(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	if _, err := users.Create("alice", "a@example.com", "the right password", RoleMember); err != nil {
		t.Fatal(err)
	}

	user, err := users.Authenticate("alice", "the right password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("authenticated as %q, want alice", user.Username)
	}

	if _, err := users.Authenticate("alice", "the wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	// Unknown users get the same error as bad passwords.
	if _, err := users.Authenticate("ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserStoreAuthenticateRecordsLastLogin(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	created, err := users.Create("alice", "a@example.com", "password", RoleMember)
	if err != nil {
		t.Fatal(err)
	}
	if created.LastLogin != nil {
		t.Error("fresh user already has a last login")
	}

	if _, err := users.Authenticate("alice", "password"); err != nil {
		t.Fatal(err)
	}
	got, err := users.GetByID(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastLogin == nil {
		t.Error("last login not recorded after authentication")
	}
}

func TestUserStoreMarkEmailVerified(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	created, err := users.Create("alice", "a@example.com", "password", RoleMember)
	if err != nil {
		t.Fatal(err)
	}
	if err := users.MarkEmailVerified(created.ID); err != nil {
		t.Fatalf("marking verified: %v", err)
	}

	got, err := users.GetByID(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.EmailVerified {
		t.Error("user still unverified after MarkEmailVerified")
	}
}

func TestUserStoreCount(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	n, err := users.Count()
	if err != nil || n != 0 {
		t.Fatalf("Count = %d, %v; want 0 on an empty store", n, err)
	}

	if _, err := users.Create("alice", "a@example.com", "password", RoleMember); err != nil {
		t.Fatal(err)
	}
	n, err = users.Count()
	if err != nil || n != 1 {
		t.Errorf("Count = %d, %v; want 1", n, err)
	}
}

func TestRoleIsValid(t *testing.T) {
	for _, role := range ValidRoles {
		if !role.IsValid() {
			t.Errorf("%s should be valid", role)
		}
	}
	if Role("root").IsValid() {
		t.Error("unknown role reported valid")
	}
}
