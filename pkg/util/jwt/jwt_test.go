package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	Init("test-secret", 15)

	token, err := GenerateAccessToken("U_1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	claims, err := ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != "U_1" {
		t.Fatalf("user id = %q, want U_1", claims.UserID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	Init("secret-a", 15)
	token, err := GenerateAccessToken("U_1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	Init("secret-b", 15)
	if _, err := ParseAccessToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	Init("test-secret", 15)
	claims := Claims{
		UserID: "U_1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Subject:   AccessTokenSubject,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestParseRejectsNonAccessSubject(t *testing.T) {
	Init("test-secret", 15)
	claims := Claims{
		UserID: "U_1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Subject:   "refresh_token",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(token); !errors.Is(err, jwt.ErrTokenInvalidClaims) {
		t.Fatalf("err = %v, want ErrTokenInvalidClaims", err)
	}
}
