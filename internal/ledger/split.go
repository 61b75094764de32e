// Package ledger implements the debt arithmetic behind expense
// splitting: allocating an expense equally across participants and
// reconciling recorded repayments against the resulting debts.
//
// All functions are pure over in-memory models; persistence and
// transaction boundaries belong to the storage layer.
package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evenup/evenup/internal/models"
)

var (
	// ErrNoParticipants is returned when a split has nobody to split among.
	ErrNoParticipants = errors.New("expense must have at least one participant")

	// ErrPayerNotParticipant is returned when the payer is missing from
	// the participant list.
	ErrPayerNotParticipant = errors.New("payer must be a participant")

	// ErrInvalidAmount is returned for zero or negative expense amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Allocation is the result of splitting one expense.
type Allocation struct {
	// Debts holds one debt per non-payer participant, directed
	// payer → participant.
	Debts []models.Debt

	// Users holds one share entry per participant, payer included.
	Users []models.ExpenseUser
}

// SplitEqual divides amount equally among participants and computes the
// pairwise debts and per-participant shares.
//
// Each participant's base share is amount / len(participants) (integer
// division). The remainder is added to the payer's owed share so shares
// always sum exactly to the amount, and net balances sum to zero.
// For every non-payer participant a debt payer → participant of the
// base share is created.
func SplitEqual(amount int64, payerID string, participantIDs []string) (*Allocation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	n := int64(len(participantIDs))
	if n == 0 {
		return nil, ErrNoParticipants
	}

	payerIncluded := false
	seen := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		if seen[id] {
			return nil, fmt.Errorf("duplicate participant %q", id)
		}
		seen[id] = true
		if id == payerID {
			payerIncluded = true
		}
	}
	if !payerIncluded {
		return nil, ErrPayerNotParticipant
	}

	share := amount / n
	remainder := amount - share*n

	alloc := &Allocation{
		Users: make([]models.ExpenseUser, 0, n),
		Debts: make([]models.Debt, 0, n-1),
	}
	for _, id := range participantIDs {
		eu := models.ExpenseUser{
			ID:     uuid.New().String(),
			UserID: id,
		}
		if id == payerID {
			eu.PaidShare = amount
			eu.OwedShare = share + remainder
		} else {
			eu.OwedShare = share
			alloc.Debts = append(alloc.Debts, models.Debt{
				ID:       uuid.New().String(),
				FromUser: payerID,
				ToUser:   id,
				Amount:   share,
			})
		}
		eu.NetBalance = eu.PaidShare - eu.OwedShare
		alloc.Users = append(alloc.Users, eu)
	}

	return alloc, nil
}
