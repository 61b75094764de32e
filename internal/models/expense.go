package models

// Debt is a directed record stating that FromUser owes ToUser a given
// amount. The amount is decremented by recorded repayments and may go
// to zero or negative; any value ≤ 0 counts as settled. Debts are never
// deleted automatically.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string

	// FromUser is the user ID of the debtor.
	FromUser string

	// ToUser is the user ID of the creditor.
	ToUser string

	// Amount is the outstanding amount in minor currency units.
	Amount int64
}

// Settled reports whether this debt counts as paid off.
func (d *Debt) Settled() bool {
	return d.Amount <= 0
}

// ExpenseUser records one participant's position in a single expense.
// Entries are created fresh per expense and never reused.
type ExpenseUser struct {
	ID     string
	UserID string

	// PaidShare is what this participant actually paid toward the expense.
	PaidShare int64

	// OwedShare is this participant's portion of the expense amount.
	OwedShare int64

	// NetBalance is PaidShare − OwedShare. Positive means the
	// participant is owed money, negative means they owe.
	NetBalance int64
}

// Expense is a shared cost split equally among its participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Name is the unique, user-chosen name of the expense.
	Name string

	// GroupID is the owning group, empty when the expense is standalone.
	GroupID string

	Description string

	// Amount is the total expense amount in minor currency units.
	Amount int64

	// PaidBy is the user ID of the payer.
	PaidBy string

	// Paid is true once every repayment debt has been settled.
	Paid bool

	// Repayments are the debts created by the split, later mutated by
	// recorded payments.
	Repayments []Debt

	// Users are the per-participant share entries.
	Users []ExpenseUser

	// CreatedAt is the Unix timestamp when the expense was created.
	CreatedAt int64
}

// AllSettled reports whether every repayment debt is ≤ 0.
// An expense with no repayments is not considered settled by this
// helper; single-participant expenses are marked paid at creation.
func (e *Expense) AllSettled() bool {
	if len(e.Repayments) == 0 {
		return false
	}
	for i := range e.Repayments {
		if !e.Repayments[i].Settled() {
			return false
		}
	}
	return true
}
