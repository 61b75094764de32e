// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/evenup/evenup/internal/models"
)

// Sentinel errors surfaced by implementations. Handlers map these to
// HTTP status codes.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("already exists")
	ErrAlreadyMember = errors.New("user is already a member of the group")
)

// Store defines the persistence operations the services need.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// Users. Lookups return ErrNotFound when no row matches.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// User profiles (one per user).
	CreateUserInfo(ctx context.Context, info *models.UserInfo) error
	GetUserInfo(ctx context.Context, userID string) (*models.UserInfo, error)
	UpdateUserInfo(ctx context.Context, info *models.UserInfo) error

	// OTP codes, keyed by email. Upsert overwrites any previous code
	// and restarts the expiry window.
	UpsertOTP(ctx context.Context, email, code string) error
	GetOTP(ctx context.Context, email string) (*models.OTP, error)
	DeleteOTP(ctx context.Context, email string) error

	// Groups. DeleteGroup removes membership rows and group debts in
	// the same transaction; expenses keep existing with no group.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByName(ctx context.Context, name string) (*models.Group, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	DeleteGroup(ctx context.Context, groupID string) error
	ListGroupDebts(ctx context.Context, groupID string) ([]models.Debt, error)

	// Expenses. CreateExpense writes the expense, its debts and its
	// share entries atomically. RecordExpensePayment runs the full
	// reconciliation inside one write transaction and returns the
	// updated expense.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpenseByName(ctx context.Context, groupID, name string) (*models.Expense, error)
	RecordExpensePayment(ctx context.Context, expenseID, fromUser, toUser string, amount int64) (*models.Expense, error)

	// Bills and their splits.
	CreateBill(ctx context.Context, bill *models.Bill) error
	GetBill(ctx context.Context, billID string) (*models.Bill, error)
	UpdateBill(ctx context.Context, bill *models.Bill) error
	DeleteBill(ctx context.Context, billID string) error
	CreateBillSplits(ctx context.Context, splits []*models.BillSplit) error
	ListBillSplits(ctx context.Context, billID string) ([]*models.BillSplit, error)
	GetBillSplit(ctx context.Context, splitID string) (*models.BillSplit, error)
	UpdateBillSplit(ctx context.Context, split *models.BillSplit) error
	DeleteBillSplit(ctx context.Context, splitID string) error

	// Token revocation (logout / refresh rotation).
	RevokeToken(ctx context.Context, jti string, until time.Time) error
	TokenRevoked(ctx context.Context, jti string) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}
