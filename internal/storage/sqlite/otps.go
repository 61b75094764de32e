package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
)

// UpsertOTP stores a fresh code for the email, overwriting any previous
// one. updated_at restarts the expiry window either way.
func (s *SQLiteStore) UpsertOTP(ctx context.Context, email, code string) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO otps (email, code, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET code = excluded.code, updated_at = excluded.updated_at`,
		email, code, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert otp: %w", err)
	}
	return nil
}

// GetOTP retrieves the stored code for an email.
func (s *SQLiteStore) GetOTP(ctx context.Context, email string) (*models.OTP, error) {
	otp := &models.OTP{}
	err := s.db.QueryRowContext(ctx,
		"SELECT email, code, created_at, updated_at FROM otps WHERE email = ?", email,
	).Scan(&otp.Email, &otp.Code, &otp.CreatedAt, &otp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("otp: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	return otp, nil
}

// DeleteOTP removes the code for an email. Deleting a missing code is not
// an error.
func (s *SQLiteStore) DeleteOTP(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM otps WHERE email = ?", email); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// RevokeToken records a token ID as revoked until its natural expiry.
func (s *SQLiteStore) RevokeToken(ctx context.Context, jti string, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
		 ON CONFLICT(jti) DO UPDATE SET expires_at = excluded.expires_at`,
		jti, until.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// TokenRevoked reports whether a token ID has been revoked. Entries past
// their expiry are pruned opportunistically.
func (s *SQLiteStore) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	now := time.Now().Unix()
	// Prune expired entries; the token itself is rejected by its exp claim.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < ?", now); err != nil {
		return false, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM revoked_tokens WHERE jti = ?", jti).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}
