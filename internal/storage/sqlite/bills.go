package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
)

// CreateBill persists a new bill. Amounts are stored as decimal strings
// to avoid float rounding.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if bill.CreatedAt == 0 {
		bill.CreatedAt = now
	}
	bill.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bills (id, title, description, amount, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.Title, bill.Description, bill.Amount.String(),
		bill.CreatedBy, bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	return nil
}

// GetBill retrieves a bill by ID.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	var amount string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, amount, created_by, created_at, updated_at
		 FROM bills WHERE id = ?`, billID,
	).Scan(&bill.ID, &bill.Title, &bill.Description, &amount,
		&bill.CreatedBy, &bill.CreatedAt, &bill.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	bill.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bill amount %q: %w", amount, err)
	}
	return bill, nil
}

// UpdateBill persists title/description/amount changes. The owner column
// is deliberately not part of the statement.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	bill.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		"UPDATE bills SET title = ?, description = ?, amount = ?, updated_at = ? WHERE id = ?",
		bill.Title, bill.Description, bill.Amount.String(), bill.UpdatedAt, bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bill %s: %w", bill.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteBill removes a bill and, via cascade, its splits.
func (s *SQLiteStore) DeleteBill(ctx context.Context, billID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", billID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	return nil
}

// CreateBillSplits inserts a batch of splits in one transaction.
func (s *SQLiteStore) CreateBillSplits(ctx context.Context, splits []*models.BillSplit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, split := range splits {
		if split.ID == "" {
			split.ID = uuid.New().String()
		}
		if split.Status == "" {
			split.Status = models.SplitPending
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO bill_splits (id, bill_id, paid_by, amount_paid, owed_by, amount_owed, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			split.ID, split.BillID, split.PaidBy, split.AmountPaid.String(),
			split.OwedBy, split.AmountOwed.String(), split.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bill split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListBillSplits retrieves every split attached to a bill.
func (s *SQLiteStore) ListBillSplits(ctx context.Context, billID string) ([]*models.BillSplit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bill_id, paid_by, amount_paid, owed_by, amount_owed, status
		 FROM bill_splits WHERE bill_id = ? ORDER BY rowid`, billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bill splits: %w", err)
	}
	defer rows.Close()

	var splits []*models.BillSplit
	for rows.Next() {
		split, err := scanBillSplit(rows.Scan)
		if err != nil {
			return nil, err
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bill splits: %w", err)
	}
	return splits, nil
}

// GetBillSplit retrieves a single split by ID.
func (s *SQLiteStore) GetBillSplit(ctx context.Context, splitID string) (*models.BillSplit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, bill_id, paid_by, amount_paid, owed_by, amount_owed, status
		 FROM bill_splits WHERE id = ?`, splitID,
	)
	split, err := scanBillSplit(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill split %s: %w", splitID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill split: %w", err)
	}
	return split, nil
}

// UpdateBillSplit persists changes to a split's amounts, parties and status.
func (s *SQLiteStore) UpdateBillSplit(ctx context.Context, split *models.BillSplit) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bill_splits SET paid_by = ?, amount_paid = ?, owed_by = ?, amount_owed = ?, status = ?
		 WHERE id = ?`,
		split.PaidBy, split.AmountPaid.String(), split.OwedBy, split.AmountOwed.String(),
		split.Status, split.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill split: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bill split %s: %w", split.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteBillSplit removes a split by ID.
func (s *SQLiteStore) DeleteBillSplit(ctx context.Context, splitID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bill_splits WHERE id = ?", splitID)
	if err != nil {
		return fmt.Errorf("failed to delete bill split: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bill split %s: %w", splitID, storage.ErrNotFound)
	}
	return nil
}

func scanBillSplit(scan func(dest ...interface{}) error) (*models.BillSplit, error) {
	split := &models.BillSplit{}
	var paid, owed string
	if err := scan(&split.ID, &split.BillID, &split.PaidBy, &paid, &split.OwedBy, &owed, &split.Status); err != nil {
		return nil, err
	}
	var err error
	if split.AmountPaid, err = decimal.NewFromString(paid); err != nil {
		return nil, fmt.Errorf("failed to parse amount_paid %q: %w", paid, err)
	}
	if split.AmountOwed, err = decimal.NewFromString(owed); err != nil {
		return nil, fmt.Errorf("failed to parse amount_owed %q: %w", owed, err)
	}
	return split, nil
}
