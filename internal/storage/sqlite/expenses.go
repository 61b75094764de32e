package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evenup/evenup/internal/ledger"
	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
)

// CreateExpense persists the expense, its repayment debts and its share
// entries in a single transaction: a crash mid-sequence leaves nothing.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID interface{}
	if expense.GroupID != "" {
		groupID = expense.GroupID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, name, group_id, description, amount, paid_by, paid, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Name, groupID, expense.Description, expense.Amount,
		expense.PaidBy, boolToInt(expense.Paid), expense.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("expense %s: %w", expense.Name, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Repayments {
		d := &expense.Repayments[i]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO debts (id, expense_id, group_id, from_user, to_user, amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, expense.ID, groupID, d.FromUser, d.ToUser, d.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert debt: %w", err)
		}
	}

	for i := range expense.Users {
		eu := &expense.Users[i]
		if eu.ID == "" {
			eu.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_users (id, expense_id, user_id, paid_share, owed_share, net_balance)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			eu.ID, expense.ID, eu.UserID, eu.PaidShare, eu.OwedShare, eu.NetBalance,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpenseByName retrieves an expense by name within a group. An empty
// groupID matches standalone expenses only.
func (s *SQLiteStore) GetExpenseByName(ctx context.Context, groupID, name string) (*models.Expense, error) {
	query := `SELECT id, name, COALESCE(group_id, ''), description, amount, paid_by, paid, created_at
	          FROM expenses WHERE name = ? AND group_id IS NULL`
	args := []interface{}{name}
	if groupID != "" {
		query = `SELECT id, name, COALESCE(group_id, ''), description, amount, paid_by, paid, created_at
		         FROM expenses WHERE name = ? AND group_id = ?`
		args = append(args, groupID)
	}

	expense, err := s.scanExpense(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := s.loadExpenseChildren(ctx, s.db, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// RecordExpensePayment runs the repayment reconciliation against the
// expense inside one write transaction, serializing concurrent payments
// against the same expense. The updated expense is returned.
func (s *SQLiteStore) RecordExpensePayment(ctx context.Context, expenseID, fromUser, toUser string, amount int64) (*models.Expense, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	expense, err := s.scanExpense(tx.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(group_id, ''), description, amount, paid_by, paid, created_at
		 FROM expenses WHERE id = ?`, expenseID))
	if err != nil {
		return nil, err
	}
	if err := s.loadExpenseChildren(ctx, tx, expense); err != nil {
		return nil, err
	}

	before := len(expense.Repayments)
	if err := ledger.RecordPayment(expense, fromUser, toUser, amount); err != nil {
		return nil, err
	}

	if len(expense.Repayments) > before {
		// Reconciliation appended a flipped-direction debt.
		created := &expense.Repayments[len(expense.Repayments)-1]
		var groupID interface{}
		if expense.GroupID != "" {
			groupID = expense.GroupID
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO debts (id, expense_id, group_id, from_user, to_user, amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			created.ID, expense.ID, groupID, created.FromUser, created.ToUser, created.Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert debt: %w", err)
		}
	} else {
		for i := range expense.Repayments {
			d := &expense.Repayments[i]
			if _, err := tx.ExecContext(ctx,
				"UPDATE debts SET amount = ? WHERE id = ?", d.Amount, d.ID); err != nil {
				return nil, fmt.Errorf("failed to update debt: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE expenses SET paid = ? WHERE id = ?", boolToInt(expense.Paid), expense.ID); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return expense, nil
}

// querier lets the child loaders run against either *sql.DB or *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *SQLiteStore) scanExpense(row *sql.Row) (*models.Expense, error) {
	expense := &models.Expense{}
	var paid int
	err := row.Scan(&expense.ID, &expense.Name, &expense.GroupID, &expense.Description,
		&expense.Amount, &expense.PaidBy, &paid, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.Paid = paid != 0
	return expense, nil
}

func (s *SQLiteStore) loadExpenseChildren(ctx context.Context, q querier, expense *models.Expense) error {
	rows, err := q.QueryContext(ctx,
		"SELECT id, from_user, to_user, amount FROM debts WHERE expense_id = ? ORDER BY rowid",
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get debts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.Debt
		if err := rows.Scan(&d.ID, &d.FromUser, &d.ToUser, &d.Amount); err != nil {
			return fmt.Errorf("failed to scan debt: %w", err)
		}
		expense.Repayments = append(expense.Repayments, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate debts: %w", err)
	}

	userRows, err := q.QueryContext(ctx,
		`SELECT id, user_id, paid_share, owed_share, net_balance
		 FROM expense_users WHERE expense_id = ? ORDER BY rowid`,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense users: %w", err)
	}
	defer userRows.Close()

	for userRows.Next() {
		var eu models.ExpenseUser
		if err := userRows.Scan(&eu.ID, &eu.UserID, &eu.PaidShare, &eu.OwedShare, &eu.NetBalance); err != nil {
			return fmt.Errorf("failed to scan expense user: %w", err)
		}
		expense.Users = append(expense.Users, eu)
	}
	if err := userRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense users: %w", err)
	}
	return nil
}
