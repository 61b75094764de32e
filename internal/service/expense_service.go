package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/evenup/evenup/internal/ledger"
	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
)

// ExpenseService implements expense creation and repayment recording.
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// RegisterRoutes mounts the expense endpoints under the given router.
// All expense routes require authentication.
func (s *ExpenseService) RegisterRoutes(api fiber.Router, requireAuth fiber.Handler) {
	expenses := api.Group("/expenses", requireAuth)
	expenses.Post("/create", s.CreateExpense)
	expenses.Post("/record_payment", s.RecordPayment)
}

type createExpenseRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Amount      int64    `json:"amount"`
	Users       []string `json:"users"`
	PaidBy      string   `json:"paid_by"`
	GroupName   string   `json:"group_name"`
}

// CreateExpense splits an amount equally among the listed users and
// persists the expense with its debts and share entries atomically.
func (s *ExpenseService) CreateExpense(c *fiber.Ctx) error {
	var req createExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}

	var groupID string
	if req.GroupName != "" {
		group, err := s.store.GetGroupByName(c.Context(), req.GroupName)
		if err != nil {
			return fail(c, err)
		}
		groupID = group.ID
	}

	payer, err := s.store.GetUserByEmail(c.Context(), req.PaidBy)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = fmt.Errorf("payer %s: %w", req.PaidBy, storage.ErrNotFound)
		}
		return fail(c, err)
	}

	participantIDs := make([]string, 0, len(req.Users))
	for _, email := range req.Users {
		user, err := s.store.GetUserByEmail(c.Context(), email)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				err = fmt.Errorf("participant %s: %w", email, storage.ErrNotFound)
			}
			return fail(c, err)
		}
		participantIDs = append(participantIDs, user.ID)
	}

	alloc, err := ledger.SplitEqual(req.Amount, payer.ID, participantIDs)
	if err != nil {
		return fail(c, err)
	}

	expense := &models.Expense{
		Name:        req.Name,
		GroupID:     groupID,
		Description: req.Description,
		Amount:      req.Amount,
		PaidBy:      payer.ID,
		// A split with no non-payer participants has nothing to repay.
		Paid:       len(alloc.Debts) == 0,
		Repayments: alloc.Debts,
		Users:      alloc.Users,
	}
	if err := s.store.CreateExpense(c.Context(), expense); err != nil {
		return fail(c, err)
	}

	slog.Info("expense created",
		"expense_id", expense.ID,
		"name", expense.Name,
		"amount", expense.Amount,
		"participants", len(alloc.Users),
	)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Expense created successfully"})
}

type recordPaymentRequest struct {
	FromUser    string `json:"from_user"`
	ToUser      string `json:"to_user"`
	Amount      int64  `json:"amount"`
	GroupName   string `json:"group_name"`
	ExpenseName string `json:"expense_name"`
}

// RecordPayment reconciles a repayment against an expense's debts.
func (s *ExpenseService) RecordPayment(c *fiber.Ctx) error {
	var req recordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	var groupID string
	if req.GroupName != "" {
		group, err := s.store.GetGroupByName(c.Context(), req.GroupName)
		if err != nil {
			return fail(c, err)
		}
		groupID = group.ID
	}

	from, err := s.store.GetUserByEmail(c.Context(), req.FromUser)
	if err != nil {
		return fail(c, err)
	}
	to, err := s.store.GetUserByEmail(c.Context(), req.ToUser)
	if err != nil {
		return fail(c, err)
	}

	expense, err := s.store.GetExpenseByName(c.Context(), groupID, req.ExpenseName)
	if err != nil {
		return fail(c, err)
	}

	updated, err := s.store.RecordExpensePayment(c.Context(), expense.ID, from.ID, to.ID, req.Amount)
	if err != nil {
		return fail(c, err)
	}

	slog.Info("payment recorded",
		"expense_id", updated.ID,
		"from", from.ID,
		"to", to.ID,
		"amount", req.Amount,
		"paid", updated.Paid,
	)
	return c.JSON(fiber.Map{
		"message": "Payment recorded successfully",
		"paid":    updated.Paid,
	})
}
