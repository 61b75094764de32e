package auth

import (
	"context"

	"github.com/evenup/evenup/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password,
// passkeys, OAuth, etc.) without changing the service layer code.
type Authenticator interface {
	// Register creates a new, inactive user account with the given email
	// and credential. The account becomes active once email verification
	// completes. Returns the created user or an error if registration fails.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if
	// successful. Inactive (unverified or soft-deleted) accounts are rejected.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// SetCredential replaces the user's credential (password reset flows).
	SetCredential(ctx context.Context, user *models.User, credential string) error

	// VerifyCredential checks a credential against the user's stored one
	// without issuing tokens.
	VerifyCredential(user *models.User, credential string) error

	// ValidateCredential checks if the credential meets the implementation's
	// requirements. For passwords: check length, complexity, etc.
	ValidateCredential(credential string) error
}
