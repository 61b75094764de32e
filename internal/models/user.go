package models

// User is a registered account. Users are created inactive and become
// active once their email is verified with an OTP. Deleting an account
// only clears the Active flag; debts referencing the user stay intact.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's unique email address, used for login.
	Email string

	// DisplayName is the human-readable name shown to other members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Active reports whether the email has been verified.
	// Soft-deleted accounts have Active set back to false.
	Active bool

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64
}

// UserInfo holds the optional profile attached one-to-one to a user.
type UserInfo struct {
	ID            string
	UserID        string
	FirstName     string
	LastName      string
	DateOfBirth   string // ISO date, validated at the handler boundary
	PhoneNumber   string
	StreetAddress string
	City          string
	StateProvince string
	PostalCode    string
	Country       string
	Bio           string
	CreatedAt     int64
	UpdatedAt     int64
}

// OTP is a one-time verification code keyed by email. UpdatedAt drives
// the expiry window: a code is valid for ten minutes after it was last
// written.
type OTP struct {
	Email     string
	Code      string
	CreatedAt int64
	UpdatedAt int64
}
