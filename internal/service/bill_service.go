package service

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/evenup/evenup/internal/middleware"
	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
)

// BillService implements the bill and bill-split endpoints.
type BillService struct {
	store storage.Store
}

// NewBillService creates a new BillService with the given storage backend.
func NewBillService(store storage.Store) *BillService {
	return &BillService{store: store}
}

// RegisterRoutes mounts the bill endpoints under the given router.
// All bill routes require authentication.
func (s *BillService) RegisterRoutes(api fiber.Router, requireAuth fiber.Handler) {
	bill := api.Group("/bill", requireAuth)
	bill.Post("/create", s.CreateBill)
	// Split routes before /:id so "split" is not matched as a bill ID.
	bill.Put("/split/:id", s.UpdateSplit)
	bill.Delete("/split/:id", s.DeleteSplit)
	bill.Post("/split/:id/settle", s.SettleSplit)
	bill.Get("/:id", s.GetBill)
	bill.Put("/:id", s.UpdateBill)
	bill.Delete("/:id", s.DeleteBill)
	bill.Post("/:id/split", s.CreateSplits)
}

type billRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
}

func billResponse(bill *models.Bill) fiber.Map {
	return fiber.Map{
		"id":          bill.ID,
		"title":       bill.Title,
		"description": bill.Description,
		"amount":      bill.Amount,
		"created_by":  bill.CreatedBy,
		"created_at":  bill.CreatedAt,
		"updated_at":  bill.UpdatedAt,
	}
}

func splitResponse(split *models.BillSplit) fiber.Map {
	return fiber.Map{
		"id":          split.ID,
		"bill_id":     split.BillID,
		"paid_by":     split.PaidBy,
		"amount_paid": split.AmountPaid,
		"owed_by":     split.OwedBy,
		"amount_owed": split.AmountOwed,
		"status":      split.Status,
	}
}

// CreateBill creates a bill owned by the caller.
func (s *BillService) CreateBill(c *fiber.Ctx) error {
	var req billRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Title == "" || req.Amount == nil {
		return badRequest(c, "title and amount are required")
	}

	bill := &models.Bill{
		Title:       req.Title,
		Description: req.Description,
		Amount:      *req.Amount,
		CreatedBy:   middleware.UserID(c),
	}
	if err := s.store.CreateBill(c.Context(), bill); err != nil {
		return fail(c, err)
	}

	slog.Info("bill created", "bill_id", bill.ID, "amount", bill.Amount)
	return c.Status(fiber.StatusCreated).JSON(billResponse(bill))
}

// GetBill returns a bill and its splits.
func (s *BillService) GetBill(c *fiber.Ctx) error {
	bill, err := s.store.GetBill(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	splits, err := s.store.ListBillSplits(c.Context(), bill.ID)
	if err != nil {
		return fail(c, err)
	}

	splitViews := make([]fiber.Map, 0, len(splits))
	for _, split := range splits {
		splitViews = append(splitViews, splitResponse(split))
	}
	return c.JSON(fiber.Map{
		"bill":   billResponse(bill),
		"splits": splitViews,
	})
}

// UpdateBill applies a partial update to a bill. The owner never changes.
func (s *BillService) UpdateBill(c *fiber.Ctx) error {
	bill, err := s.store.GetBill(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	var req billRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Title != "" {
		bill.Title = req.Title
	}
	if req.Description != "" {
		bill.Description = req.Description
	}
	if req.Amount != nil {
		bill.Amount = *req.Amount
	}

	if err := s.store.UpdateBill(c.Context(), bill); err != nil {
		return fail(c, err)
	}
	return c.JSON(billResponse(bill))
}

// DeleteBill removes a bill and its splits.
func (s *BillService) DeleteBill(c *fiber.Ctx) error {
	if err := s.store.DeleteBill(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type splitRequest struct {
	PaidBy     string           `json:"paid_by"`
	AmountPaid *decimal.Decimal `json:"amount_paid"`
	OwedBy     string           `json:"owed_by"`
	AmountOwed *decimal.Decimal `json:"amount_owed"`
}

type createSplitsRequest struct {
	Splits []splitRequest `json:"splits"`
}

// resolveUser maps a member email to their user ID. Splits reference
// users by ID in storage, so unknown emails are rejected up front.
func (s *BillService) resolveUser(c *fiber.Ctx, email string) (string, error) {
	user, err := s.store.GetUserByEmail(c.Context(), email)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// CreateSplits attaches one or more splits to a bill.
func (s *BillService) CreateSplits(c *fiber.Ctx) error {
	bill, err := s.store.GetBill(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	var req createSplitsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Splits) == 0 {
		return badRequest(c, "splits are required")
	}

	splits := make([]*models.BillSplit, 0, len(req.Splits))
	for _, sr := range req.Splits {
		if sr.PaidBy == "" || sr.OwedBy == "" || sr.AmountPaid == nil || sr.AmountOwed == nil {
			return badRequest(c, "each split needs paid_by, owed_by, amount_paid and amount_owed")
		}
		paidBy, err := s.resolveUser(c, sr.PaidBy)
		if err != nil {
			return badRequest(c, fmt.Sprintf("no user with email %s", sr.PaidBy))
		}
		owedBy, err := s.resolveUser(c, sr.OwedBy)
		if err != nil {
			return badRequest(c, fmt.Sprintf("no user with email %s", sr.OwedBy))
		}
		splits = append(splits, &models.BillSplit{
			BillID:     bill.ID,
			PaidBy:     paidBy,
			AmountPaid: *sr.AmountPaid,
			OwedBy:     owedBy,
			AmountOwed: *sr.AmountOwed,
			Status:     models.SplitPending,
		})
	}

	if err := s.store.CreateBillSplits(c.Context(), splits); err != nil {
		return fail(c, err)
	}

	slog.Info("bill split", "bill_id", bill.ID, "splits", len(splits))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Bill split successfully"})
}

// UpdateSplit applies a partial update to a split.
func (s *BillService) UpdateSplit(c *fiber.Ctx) error {
	split, err := s.store.GetBillSplit(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	var req splitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.PaidBy != "" {
		paidBy, err := s.resolveUser(c, req.PaidBy)
		if err != nil {
			return badRequest(c, fmt.Sprintf("no user with email %s", req.PaidBy))
		}
		split.PaidBy = paidBy
	}
	if req.OwedBy != "" {
		owedBy, err := s.resolveUser(c, req.OwedBy)
		if err != nil {
			return badRequest(c, fmt.Sprintf("no user with email %s", req.OwedBy))
		}
		split.OwedBy = owedBy
	}
	if req.AmountPaid != nil {
		split.AmountPaid = *req.AmountPaid
	}
	if req.AmountOwed != nil {
		split.AmountOwed = *req.AmountOwed
	}

	if err := s.store.UpdateBillSplit(c.Context(), split); err != nil {
		return fail(c, err)
	}
	return c.JSON(splitResponse(split))
}

// DeleteSplit removes a split.
func (s *BillService) DeleteSplit(c *fiber.Ctx) error {
	if err := s.store.DeleteBillSplit(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SettleSplit marks a split paid. No amount validation, no partial
// settlement: the status just flips.
func (s *BillService) SettleSplit(c *fiber.Ctx) error {
	split, err := s.store.GetBillSplit(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	split.Status = models.SplitPaid
	if err := s.store.UpdateBillSplit(c.Context(), split); err != nil {
		return fail(c, err)
	}

	slog.Info("split settled", "split_id", split.ID, "bill_id", split.BillID)
	return c.JSON(fiber.Map{"message": "Split settled successfully"})
}
