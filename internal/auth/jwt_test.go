package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/evenup/evenup/internal/models"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret-key-32-bytes-long!!!", 15*time.Minute, 7*24*time.Hour)
	user := &models.User{ID: "u1", Email: "alice@example.com"}

	pair, err := m.GeneratePair(user)
	if err != nil {
		t.Fatalf("GeneratePair failed: %v", err)
	}

	t.Run("access token validates as access", func(t *testing.T) {
		claims, err := m.Validate(pair.AccessToken, TokenAccess)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.UserID != "u1" || claims.Email != "alice@example.com" {
			t.Errorf("unexpected claims: %+v", claims)
		}
		if claims.ID == "" {
			t.Error("expected jti to be set")
		}
	})

	t.Run("refresh token rejected as access", func(t *testing.T) {
		if _, err := m.Validate(pair.RefreshToken, TokenAccess); !errors.Is(err, ErrWrongTokenUse) {
			t.Fatalf("err = %v, want ErrWrongTokenUse", err)
		}
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		if _, err := m.Validate(pair.AccessToken+"x", TokenAccess); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		other := NewJWTManager("another-secret-entirely!!!!!!!!!", time.Minute, time.Hour)
		if _, err := other.Validate(pair.AccessToken, TokenAccess); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("pair tokens carry distinct ids", func(t *testing.T) {
		access, _ := m.Validate(pair.AccessToken, TokenAccess)
		refresh, _ := m.Validate(pair.RefreshToken, TokenRefresh)
		if access.ID == refresh.ID {
			t.Error("access and refresh tokens share a jti")
		}
	})
}

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := GenerateOTP()
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		seen[code] = true
	}
	// Fresh entropy per call: 50 draws should not collapse to one value.
	if len(seen) < 2 {
		t.Error("GenerateOTP produced a constant code")
	}
}

func TestOTPExpired(t *testing.T) {
	now := time.Now()
	if OTPExpired(now.Unix(), now) {
		t.Error("fresh code reported expired")
	}
	if OTPExpired(now.Add(-9*time.Minute).Unix(), now) {
		t.Error("nine-minute-old code reported expired")
	}
	if !OTPExpired(now.Add(-11*time.Minute).Unix(), now) {
		t.Error("eleven-minute-old code reported valid")
	}
}
