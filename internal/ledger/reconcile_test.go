package ledger

import (
	"errors"
	"testing"

	"github.com/evenup/evenup/internal/models"
)

func expenseWithDebt(from, to string, amount int64) *models.Expense {
	return &models.Expense{
		ID:     "e1",
		Name:   "dinner",
		Amount: amount,
		PaidBy: from,
		Repayments: []models.Debt{
			{ID: "d1", FromUser: from, ToUser: to, Amount: amount},
		},
	}
}

func TestRecordPayment(t *testing.T) {
	t.Run("partial payment decrements reverse debt", func(t *testing.T) {
		// alice paid, so the split left a debt alice → bob of 40,
		// i.e. bob owes alice 40. Bob pays alice 25.
		exp := expenseWithDebt("alice", "bob", 40)

		if err := RecordPayment(exp, "bob", "alice", 25); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if got := exp.Repayments[0].Amount; got != 15 {
			t.Errorf("remaining debt = %d, want 15", got)
		}
		if exp.Paid {
			t.Error("expense marked paid with outstanding debt")
		}
	})

	t.Run("exact payment settles debt and marks expense paid", func(t *testing.T) {
		exp := expenseWithDebt("alice", "bob", 40)

		if err := RecordPayment(exp, "bob", "alice", 40); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if got := exp.Repayments[0].Amount; got != 0 {
			t.Errorf("remaining debt = %d, want 0", got)
		}
		if !exp.Paid {
			t.Error("expense not marked paid after full settlement")
		}
	})

	t.Run("payment larger than debt is rejected unchanged", func(t *testing.T) {
		exp := expenseWithDebt("alice", "bob", 40)

		err := RecordPayment(exp, "bob", "alice", 41)
		if !errors.Is(err, ErrInsufficientDebt) {
			t.Fatalf("err = %v, want ErrInsufficientDebt", err)
		}
		if got := exp.Repayments[0].Amount; got != 40 {
			t.Errorf("debt mutated on rejected payment: %d, want 40", got)
		}
		if len(exp.Repayments) != 1 {
			t.Errorf("repayments = %d, want 1", len(exp.Repayments))
		}
	})

	t.Run("no reverse debt creates opposite-direction debt", func(t *testing.T) {
		exp := expenseWithDebt("alice", "bob", 40)

		// alice pays bob even though bob is the debtor: no debt with
		// (from=bob, to=alice) exists, so a new one is created.
		if err := RecordPayment(exp, "alice", "bob", 10); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if len(exp.Repayments) != 2 {
			t.Fatalf("repayments = %d, want 2", len(exp.Repayments))
		}
		created := exp.Repayments[1]
		if created.FromUser != "bob" || created.ToUser != "alice" {
			t.Errorf("created debt %s → %s, want bob → alice", created.FromUser, created.ToUser)
		}
		if created.Amount != 10 {
			t.Errorf("created debt amount = %d, want 10", created.Amount)
		}
	})

	t.Run("paid flag requires every debt settled", func(t *testing.T) {
		exp := &models.Expense{
			ID:     "e2",
			PaidBy: "alice",
			Repayments: []models.Debt{
				{ID: "d1", FromUser: "alice", ToUser: "bob", Amount: 30},
				{ID: "d2", FromUser: "alice", ToUser: "carol", Amount: 30},
			},
		}

		if err := RecordPayment(exp, "bob", "alice", 30); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if exp.Paid {
			t.Error("expense marked paid while carol's debt is outstanding")
		}

		if err := RecordPayment(exp, "carol", "alice", 30); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if !exp.Paid {
			t.Error("expense not marked paid after all debts settled")
		}
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		exp := expenseWithDebt("alice", "bob", 40)
		if err := RecordPayment(exp, "bob", "alice", 0); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("err = %v, want ErrInvalidAmount", err)
		}
	})
}
