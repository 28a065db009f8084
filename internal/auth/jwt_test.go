package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/session"
)

var (
	alice = session.Identity{Username: "alice", Role: model.RoleUser}
	admin = session.Identity{Username: "admin", Role: model.RoleAdmin}
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_EmptySecretIsRandom(t *testing.T) {
	ts1, err := NewTokenService("")
	if err != nil {
		t.Fatalf("NewTokenService(\"\") error = %v", err)
	}
	ts2, _ := NewTokenService("")

	// Two processes never accept each other's cookies.
	token, _ := ts1.Generate(alice)
	if _, err := ts2.Validate(token); err == nil {
		t.Error("a token from one random secret validated under another")
	}
}

// =========================================================================
// GENERATE TESTS
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(alice)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// header.payload.signature
	if dots := strings.Count(token, "."); dots != 2 {
		t.Errorf("Generate() token doesn't look like a JWT (expected 2 dots, got %d)", dots)
	}
}

func TestGenerate_DifferentIdentitiesGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	token1, _ := ts.Generate(alice)
	token2, _ := ts.Generate(admin)

	if token1 == token2 {
		t.Error("Generate() returned identical tokens for different identities")
	}
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	for _, id := range []session.Identity{alice, admin} {
		token, err := ts.Generate(id)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		got, err := ts.Validate(token)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if got != id {
			t.Errorf("Validate() = %+v, want %+v", got, id)
		}
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration(alice, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Fatal("Validate() should return an error for an expired token")
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate(alice)
	tampered := token[:len(token)-3] + "xxx"

	if _, err := ts.Validate(tampered); err == nil {
		t.Fatal("Validate() should return an error for a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!")
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")

	token, _ := ts1.Generate(alice)

	if _, err := ts2.Validate(token); err == nil {
		t.Fatal("Validate() should fail when using a different secret")
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, in := range []string{"", "not.a.jwt.token"} {
		if _, err := ts.Validate(in); err == nil {
			t.Errorf("Validate(%q) should return an error", in)
		}
	}
}

func TestValidate_UnknownRole(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate(session.Identity{Username: "mallory", Role: "root"})
	if _, err := ts.Validate(token); err == nil {
		t.Fatal("Validate() should reject a token with an unknown role")
	}
}
