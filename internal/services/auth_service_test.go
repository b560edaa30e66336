package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teamtasks/internal/models"
)

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	if _, err := NewAuthService("  ", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("err = %v, want ErrEmptySecret", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	auth, _ := NewAuthService("s", time.Hour)
	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "hunter22" {
		t.Fatal("hash must differ from the password")
	}
	if !auth.CheckPassword(hash, "hunter22") {
		t.Fatal("CheckPassword should accept the right password")
	}
	if auth.CheckPassword(hash, "hunter23") || auth.CheckPassword("", "hunter22") {
		t.Fatal("CheckPassword should reject wrong input")
	}
}

func TestTokenRoundTripAndExpiry(t *testing.T) {
	svc, _ := NewAuthService("s", time.Hour)
	auth := svc.(*authService)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	user := &models.User{ID: 7, Role: models.RoleAdmin}
	token, exp, err := auth.IssueToken(user)
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v", exp)
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 7 || claims.Role != models.RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}

	now = now.Add(2 * time.Hour)
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("expired token should be rejected")
	}
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	auth, _ := NewAuthService("s", time.Hour)
	other, _ := NewAuthService("other", time.Hour)
	token, _, _ := other.IssueToken(&models.User{ID: 1, Role: models.RoleUser})
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("token signed with another secret should be rejected")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.ParseToken(raw); err == nil {
		t.Fatal("unsigned token should be rejected")
	}

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 1}).SignedString([]byte("s"))
	if _, err := auth.ParseToken(noExp); err == nil {
		t.Fatal("token without expiry should be rejected")
	}
}
