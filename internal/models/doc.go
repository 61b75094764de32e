// Package models defines the core domain models for EvenUp.
//
// Two parallel settlement models coexist:
//
//   - Expense / ExpenseUser / Debt: an expense is split equally among
//     participants, producing pairwise debts that are later reduced
//     (or flipped) by recorded repayments.
//   - Bill / BillSplit: a bill carries fixed line-item splits, each
//     settled independently with a pending→paid status flag.
//
// Monetary amounts on expenses, debts and shares are int64 minor
// currency units. Bill amounts use decimal.Decimal because bills accept
// fractional input directly from clients.
//
// Relationships are expressed with ID strings rather than pointers to
// avoid circular references; stores resolve them on load.
package models
