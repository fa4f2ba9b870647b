package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestService() *Service {
	return NewService("test-signing-key", time.Hour, 24*time.Hour)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	svc := newTestService()

	access, refresh, err := svc.Issue(42)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("Issue returned an empty token")
	}
	if access == refresh {
		t.Error("access and refresh tokens should differ")
	}

	userID, err := svc.Verify(access)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("Verify returned user ID %d, want 42", userID)
	}
}

func TestVerify_EmptyToken_ReturnsMissing(t *testing.T) {
	svc := newTestService()
	_, err := svc.Verify("")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Verify(\"\") = %v, want ErrMissingToken", err)
	}
}

func TestVerify_ExpiredToken_ReturnsExpired(t *testing.T) {
	svc := NewService("test-signing-key", -time.Minute, 24*time.Hour)

	access, _, err := svc.Issue(7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = svc.Verify(access)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Verify(expired) = %v, want ErrExpiredToken", err)
	}
}

func TestVerify_TamperedToken_ReturnsInvalid(t *testing.T) {
	svc := newTestService()

	access, _, err := svc.Issue(7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(access, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d segments, want 3", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = svc.Verify(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(tampered) = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_TamperedExpiredToken_ReturnsInvalid(t *testing.T) {
	// Tampering must be reported as invalid even when the token is also
	// past its expiry, so signature failure is checked first.
	svc := NewService("test-signing-key", -time.Minute, 24*time.Hour)

	access, _, err := svc.Issue(7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(access, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("x", len(parts[2]))

	_, err = svc.Verify(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(tampered+expired) = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_WrongSecret_ReturnsInvalid(t *testing.T) {
	svc := newTestService()
	other := NewService("another-key", time.Hour, 24*time.Hour)

	access, _, err := other.Issue(7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = svc.Verify(access)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(foreign token) = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_RefreshToken_Rejected(t *testing.T) {
	svc := newTestService()

	_, refresh, err := svc.Issue(7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = svc.Verify(refresh)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(refresh) = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_UnsignedAlgorithm_Rejected(t *testing.T) {
	svc := newTestService()

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	_, err = svc.Verify(unsigned)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(alg=none) = %v, want ErrInvalidToken", err)
	}
}

func TestRenew_RefreshToken_YieldsWorkingAccessToken(t *testing.T) {
	svc := newTestService()

	_, refresh, err := svc.Issue(99)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	access, err := svc.Renew(refresh)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	userID, err := svc.Verify(access)
	if err != nil {
		t.Fatalf("Verify(renewed): %v", err)
	}
	if userID != 99 {
		t.Errorf("renewed token identifies user %d, want 99", userID)
	}
}

func TestRenew_AccessToken_Rejected(t *testing.T) {
	svc := newTestService()

	access, _, err := svc.Issue(99)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = svc.Renew(access)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Renew(access) = %v, want ErrInvalidToken", err)
	}
}

func TestRenew_ExpiredRefreshToken_ReturnsExpired(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour, -time.Minute)

	_, refresh, err := svc.Issue(99)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = svc.Renew(refresh)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Renew(expired refresh) = %v, want ErrExpiredToken", err)
	}
}

func TestRenew_EmptyToken_ReturnsMissing(t *testing.T) {
	svc := newTestService()
	_, err := svc.Renew("")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Renew(\"\") = %v, want ErrMissingToken", err)
	}
}
