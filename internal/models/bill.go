package models

import "github.com/shopspring/decimal"

// Split status values. Transitions only go pending → paid.
const (
	SplitPending = "pending"
	SplitPaid    = "paid"
)

// Bill is a standalone tracked cost owned by the user who created it.
// The owner is immutable after creation.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// Title is the human-readable name of the bill.
	Title string

	Description string

	// Amount is the total bill amount.
	Amount decimal.Decimal

	// CreatedBy is the user ID of the bill's owner.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64
}

// BillSplit is a fixed line item allocating part of a bill between a
// paying and an owing user. Unlike expense debts there is no partial
// settlement: settling a split just flips its status to paid.
type BillSplit struct {
	ID         string
	BillID     string
	PaidBy     string
	AmountPaid decimal.Decimal
	OwedBy     string
	AmountOwed decimal.Decimal
	Status     string
}
