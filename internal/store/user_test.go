package store

import (
	"errors"
	"testing"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	return NewUserStore(setupTestDB(t))
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice@example.com", "hash", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Username != "alice@example.com" {
		t.Errorf("username = %q, want %q", u.Username, "alice@example.com")
	}
	if u.FamilyID != 0 || u.Role != "" {
		t.Errorf("new user family = %d role = %q, want none", u.FamilyID, u.Role)
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice@example.com", "hash", "Alice"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := us.Create("alice@example.com", "hash", "Alice2")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestUserGetByUsernameNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.GetByUsername("nobody@example.com")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent username")
	}
}

func TestUserUpsertKakao(t *testing.T) {
	us := setupUserTestDB(t)

	first, err := us.UpsertKakao("12345", "민수", "https://img/1.png")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.Username != "kakao:12345" {
		t.Errorf("username = %q, want kakao:12345", first.Username)
	}

	second, err := us.UpsertKakao("12345", "민수 김", "https://img/2.png")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want same user %d", second.ID, first.ID)
	}
	if second.Name != "민수 김" || second.ThumbnailURL != "https://img/2.png" {
		t.Errorf("profile not refreshed: %+v", second)
	}
}

func TestUserDelete(t *testing.T) {
	us := setupUserTestDB(t)
	id := mustCreateUser(t, us, "alice@example.com", "Alice")

	if err := us.Delete(id); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	u, err := us.GetByID(id)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if u != nil {
		t.Error("expected nil after delete")
	}
}
