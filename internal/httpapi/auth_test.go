package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"modetex/backend/internal/domain"
	"modetex/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_STAFF_PASSWORD", "staff123")
	return NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, memory.New())
}

func TestLoginAndTokenRoundtrip(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("expected admin role, got %q", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "staff", Password: "staff123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := auth.ParseToken(resp.AccessToken + "x"); err == nil {
		t.Fatalf("expected error for tampered token")
	}
	if _, err := auth.ParseToken("not.a.jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}

	other := NewAuthManager("another-secret-another-secret-xx", time.Hour, nil)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected error for token signed with a different secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_STAFF_PASSWORD", "staff123")
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, memory.New())

	token, err := auth.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestCreateStaffValidation(t *testing.T) {
	auth := newTestAuth(t)

	cases := []domain.StaffCreateRequest{
		{Username: "ab", Password: "longenough"},
		{Username: "has space", Password: "longenough"},
		{Username: "validname", Password: "123"},
		{Username: "admin", Password: "longenough"},
	}
	for _, req := range cases {
		if _, err := auth.CreateStaff(req); err == nil {
			t.Fatalf("expected validation error for %+v", req)
		}
	}

	user, err := auth.CreateStaff(domain.StaffCreateRequest{Username: "Amina", Password: "s3cret99"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.Username != "amina" || user.Role != "staff" {
		t.Fatalf("unexpected staff user %+v", user)
	}

	if _, err := auth.Login(domain.LoginRequest{Username: "amina", Password: "s3cret99"}); err != nil {
		t.Fatalf("new staff cannot log in: %v", err)
	}

	listed := auth.ListStaff()
	found := false
	for _, u := range listed {
		if u.Username == "amina" {
			found = true
		}
		if u.Role != "staff" {
			t.Fatalf("ListStaff returned non-staff user %+v", u)
		}
	}
	if !found {
		t.Fatalf("created staff missing from list")
	}
}

func TestBootstrapUpgradesPlainTextPasswords(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_STAFF_PASSWORD", "staff123")

	repo := memory.New()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username:  "legacy",
		Password:  "plaintext-pw",
		Role:      "staff",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}

	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, repo)
	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plaintext-pw"}); err != nil {
		t.Fatalf("legacy user cannot log in: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	for _, u := range users {
		if u.Username != "legacy" {
			continue
		}
		if !strings.HasPrefix(u.Password, "$2") {
			t.Fatalf("stored password was not upgraded to a hash: %q", u.Password)
		}
	}
}
