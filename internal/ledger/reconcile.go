package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evenup/evenup/internal/models"
)

// ErrInsufficientDebt is returned when a payment exceeds the
// outstanding reverse debt it would settle.
var ErrInsufficientDebt = errors.New("payment exceeds outstanding debt")

// RecordPayment applies a payment of amount from one user to another
// against the expense's repayment set.
//
// The reverse-direction debt (FromUser == to, ToUser == from) records
// what `to` owes `from`. If such a debt exists and covers the payment,
// it is decremented in place. If it exists but is smaller than the
// payment, the payment is rejected and the expense is left untouched.
// If no reverse debt exists, a new debt to → from of the payment amount
// is appended, which lets an overpayment flip the direction of the
// relationship.
//
// After a successful update the expense's Paid flag is set to true
// exactly when every repayment debt is settled.
func RecordPayment(expense *models.Expense, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	matched := false
	for i := range expense.Repayments {
		d := &expense.Repayments[i]
		if d.FromUser != to || d.ToUser != from {
			continue
		}
		if d.Amount < amount {
			return fmt.Errorf("%w: debt %d, payment %d", ErrInsufficientDebt, d.Amount, amount)
		}
		d.Amount -= amount
		matched = true
		break
	}

	if !matched {
		expense.Repayments = append(expense.Repayments, models.Debt{
			ID:       uuid.New().String(),
			FromUser: to,
			ToUser:   from,
			Amount:   amount,
		})
	}

	expense.Paid = expense.AllSettled()
	return nil
}
