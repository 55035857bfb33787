package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolflow_backend/internals/features/fees/receipts/dto"
	"schoolflow_backend/internals/features/fees/receipts/service"
	helper "schoolflow_backend/internals/helpers"
	"schoolflow_backend/internals/middlewares/auth"
)

type ReceiptController struct {
	DB       *gorm.DB
	Renderer service.Renderer
}

func NewReceiptController(db *gorm.DB, renderer service.Renderer) *ReceiptController {
	return &ReceiptController{DB: db, Renderer: renderer}
}

// GET /receipts/:id
func (h *ReceiptController) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid id")
	}
	rec, err := service.GetReceipt(c.Context(), h.DB, id)
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	return helper.JsonOK(c, "", dto.FromModel(rec))
}

// POST /receipts/reissue/:payment_id
//
// Retry path for captured-but-receiptless payments (render failed or the
// process died between commit and issuance). Idempotent: an existing receipt
// is simply returned.
func (h *ReceiptController) Reissue(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("payment_id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payment_id")
	}
	rec, err := service.IssueReceipt(c.Context(), h.DB, h.Renderer, paymentID, auth.UserIDFromLocals(c))
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	return helper.JsonOK(c, "receipt issued", dto.FromModel(rec))
}
