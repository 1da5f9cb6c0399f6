package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-0123456789"

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer(testSecret, 15*time.Minute)

	token, err := issuer.Issue("actor-001")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.ActorID() != "actor-001" {
		t.Errorf("ActorID() = %q, want %q", claims.ActorID(), "actor-001")
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Errorf("lifetime = %v, want 15m", got)
	}
}

func TestIssue_RequiresActor(t *testing.T) {
	if _, err := NewIssuer(testSecret, 0).Issue(""); !errors.Is(err, ErrNoActor) {
		t.Errorf("Issue(\"\") error = %v, want ErrNoActor", err)
	}
}

func TestNewIssuer_DefaultTTL(t *testing.T) {
	if got := NewIssuer(testSecret, 0).ttl; got != DefaultTTL {
		t.Errorf("ttl = %v, want %v", got, DefaultTTL)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewIssuer("correct-secret-correct-secret-0000", time.Minute).Issue("actor-001")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = NewIssuer("wrong-secret-wrong-secret-wrong-000", time.Minute).Parse(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParse_Expired(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Minute)
	issued := time.Now().Add(-2 * time.Hour)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Issue("actor-001")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Parse() error = %v, want ErrTokenExpired", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	tests := []string{"", "not-a-jwt", "a.b.c"}
	issuer := NewIssuer(testSecret, time.Minute)
	for _, tok := range tests {
		if _, err := issuer.Parse(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Parse(%q) error = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "actor-001",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := NewIssuer(testSecret, time.Minute).Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParse_MissingSubject(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	_, err = NewIssuer(testSecret, time.Minute).Parse(token)
	if err == nil || !strings.Contains(err.Error(), "missing subject") {
		t.Errorf("Parse() error = %v, want missing subject", err)
	}
}
