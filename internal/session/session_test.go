package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/recall/internal/apperr"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestMintVerify(t *testing.T) {
	iss, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := iss.Mint("alice")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	owner, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if owner != "alice" {
		t.Errorf("owner = %q, want %q", owner, "alice")
	}
}

func TestVerifyRejects(t *testing.T) {
	iss, _ := NewIssuer(testSecret, time.Hour)
	other, _ := NewIssuer(strings.Repeat("x", 32), time.Hour)
	foreign, _ := other.Mint("alice")

	expired, _ := NewIssuer(testSecret, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.Mint("alice")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "alice", Issuer: issuer, Audience: jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	wrongAud, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice", Issuer: issuer, Audience: jwt.ClaimStrings{"someone-else"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"foreign secret": foreign,
		"expired":        stale,
		"alg none":       none,
		"wrong audience": wrongAud,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := iss.Verify(token); !errors.Is(err, apperr.ErrUnauthorized) {
				t.Errorf("Verify err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestNewIssuerRequiresLongSecret(t *testing.T) {
	if _, err := NewIssuer("short", time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
	iss, err := NewIssuer(testSecret, 0)
	if err != nil {
		t.Fatal(err)
	}
	if iss.TTL() != DefaultTTL {
		t.Errorf("ttl = %v, want %v", iss.TTL(), DefaultTTL)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BearerToken(tt.in); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
