package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
)

// CreateUser inserts a new user. The ID and timestamps are generated
// when unset. Returns storage.ErrDuplicate for an already-registered email.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash,
		boolToInt(user.Active), user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, active, created_at, updated_at
		 FROM users WHERE email = ?`, email))
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, active, created_at, updated_at
		 FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var active int
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash,
		&active, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Active = active != 0
	return user, nil
}

// UpdateUser persists changes to display name, password hash and active flag.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, password_hash = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		user.DisplayName, user.PasswordHash, boolToInt(user.Active), user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrNotFound)
	}
	return nil
}

// CreateUserInfo inserts a profile row for a user. One profile per user.
func (s *SQLiteStore) CreateUserInfo(ctx context.Context, info *models.UserInfo) error {
	if info.ID == "" {
		info.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	info.CreatedAt = now
	info.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_info (id, user_id, first_name, last_name, date_of_birth, phone_number,
		 street_address, city, state_province, postal_code, country, bio, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.UserID, info.FirstName, info.LastName, info.DateOfBirth, info.PhoneNumber,
		info.StreetAddress, info.City, info.StateProvince, info.PostalCode, info.Country, info.Bio,
		info.CreatedAt, info.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user info for %s: %w", info.UserID, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user info: %w", err)
	}
	return nil
}

// GetUserInfo retrieves the profile for a user.
func (s *SQLiteStore) GetUserInfo(ctx context.Context, userID string) (*models.UserInfo, error) {
	info := &models.UserInfo{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, first_name, last_name, date_of_birth, phone_number,
		 street_address, city, state_province, postal_code, country, bio, created_at, updated_at
		 FROM user_info WHERE user_id = ?`, userID,
	).Scan(&info.ID, &info.UserID, &info.FirstName, &info.LastName, &info.DateOfBirth,
		&info.PhoneNumber, &info.StreetAddress, &info.City, &info.StateProvince,
		&info.PostalCode, &info.Country, &info.Bio, &info.CreatedAt, &info.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user info: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	return info, nil
}

// UpdateUserInfo persists profile changes.
func (s *SQLiteStore) UpdateUserInfo(ctx context.Context, info *models.UserInfo) error {
	info.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_info SET first_name = ?, last_name = ?, date_of_birth = ?, phone_number = ?,
		 street_address = ?, city = ?, state_province = ?, postal_code = ?, country = ?, bio = ?,
		 updated_at = ? WHERE user_id = ?`,
		info.FirstName, info.LastName, info.DateOfBirth, info.PhoneNumber,
		info.StreetAddress, info.City, info.StateProvince, info.PostalCode, info.Country, info.Bio,
		info.UpdatedAt, info.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user info: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user info for %s: %w", info.UserID, storage.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
