package controller

import (
	"encoding/json"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"schoolflow_backend/internals/features/fees/payments/dto"
	"schoolflow_backend/internals/features/fees/payments/model"
	"schoolflow_backend/internals/features/fees/payments/service"
	receiptSvc "schoolflow_backend/internals/features/fees/receipts/service"
	helper "schoolflow_backend/internals/helpers"
	"schoolflow_backend/internals/helpers/errs"
	"schoolflow_backend/internals/middlewares/auth"
)

type PaymentController struct {
	DB        *gorm.DB
	Validator *validator.Validate
	Gateways  map[string]service.Gateway
	Renderer  receiptSvc.Renderer
}

func NewPaymentController(db *gorm.DB, gateways map[string]service.Gateway, renderer receiptSvc.Renderer) *PaymentController {
	return &PaymentController{
		DB:        db,
		Validator: validator.New(),
		Gateways:  gateways,
		Renderer:  renderer,
	}
}

func (h *PaymentController) gateway(name string) (service.Gateway, bool) {
	gw, ok := h.Gateways[name]
	return gw, ok
}

/* =========================================================
   POST /payments/create-order/:invoice_id
========================================================= */

func (h *PaymentController) CreateOrder(c *fiber.Ctx) error {
	invoiceID, err := uuid.Parse(c.Params("invoice_id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid invoice_id")
	}

	provider := c.Query("provider", model.PaymentProviderRazorpay)
	gw, ok := h.gateway(provider)
	if !ok {
		return helper.JsonError(c, fiber.StatusBadRequest, "unknown payment provider: "+provider)
	}

	payment, order, err := service.CreateOrder(c.Context(), h.DB, gw, invoiceID)
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	return helper.JsonCreated(c, "order created", dto.NewCreateOrderResponse(payment, order))
}

/* =========================================================
   POST /payments/webhook
========================================================= */

// Webhook ingests capture notifications. Every delivery is recorded in
// payment_gateway_events before anything else, so even rejected or unmatched
// deliveries leave an audit row. Duplicate deliveries answer 200 with the
// already-recorded outcome.
func (h *PaymentController) Webhook(c *fiber.Ctx) error {
	raw := c.Body()
	provider := c.Query("provider", model.PaymentProviderRazorpay)

	signature := c.Get("X-Razorpay-Signature")
	if signature == "" {
		signature = c.Get("X-Signature")
	}

	event := h.logEvent(c, provider, raw, signature)

	gw, ok := h.gateway(provider)
	if !ok {
		h.failEvent(c, event, "unknown provider")
		return helper.JsonError(c, fiber.StatusBadRequest, "unknown payment provider: "+provider)
	}
	if !gw.VerifyWebhook(raw, signature) {
		h.failEvent(c, event, "signature verification failed")
		return helper.JsonError(c, fiber.StatusUnauthorized, "invalid webhook signature")
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.failEvent(c, event, "invalid json: "+err.Error())
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&payload); err != nil {
		h.failEvent(c, event, err.Error())
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	invoiceID := payload.ResolveInvoiceID()
	if invoiceID == nil {
		h.failEvent(c, event, "invoice_id is required")
		return helper.JsonError(c, fiber.StatusBadRequest, "invoice_id is required")
	}
	if event != nil {
		event.GatewayEventInvoiceID = invoiceID
		event.GatewayEventExternalID = &payload.ProviderTxnID
		if payload.OrderID != "" {
			ref := payload.OrderID
			event.GatewayEventExternalRef = &ref
		}
	}

	switch model.NormalizePaymentStatus(payload.Status) {
	case model.PaymentStatusFailed:
		if err := h.markOrderFailed(c, provider, payload.OrderID); err != nil {
			h.failEvent(c, event, err.Error())
			return helper.JsonFromError(c, err)
		}
		h.processEvent(c, event, nil)
		return helper.JsonOK(c, "payment failure recorded", fiber.Map{
			"invoice_id": invoiceID,
			"order_id":   payload.OrderID,
			"status":     model.PaymentStatusFailed,
		})
	case model.PaymentStatusInitiated:
		// Order-created style notifications carry no money; ack only.
		h.processEvent(c, event, nil)
		return helper.JsonOK(c, "event acknowledged", fiber.Map{
			"invoice_id": invoiceID,
			"order_id":   payload.OrderID,
		})
	}

	ev := service.CaptureEvent{
		InvoiceID:      *invoiceID,
		Provider:       provider,
		ProviderTxnID:  payload.ProviderTxnID,
		OrderRef:       payload.OrderID,
		Amount:         payload.Amount,
		IdempotencyKey: payload.IdempotencyKey,
	}

	res, err := service.HandlePaymentEvent(c.Context(), h.DB, h.Renderer, ev, auth.UserIDFromLocals(c))
	if err != nil {
		h.failEvent(c, event, err.Error())
		if errs.IsNotFound(err) {
			// Unmatched deliveries are logged and acknowledged; the provider
			// should not retry an event we can never match.
			log.Printf("[WARN] webhook for unknown invoice %s (provider=%s txn=%s)",
				invoiceID, provider, payload.ProviderTxnID)
			return helper.JsonOK(c, "event recorded; no matching invoice", fiber.Map{
				"invoice_id": invoiceID,
			})
		}
		return helper.JsonFromError(c, err)
	}

	h.processEvent(c, event, &res.PaymentID)
	msg := "payment reconciled"
	if res.Replay {
		msg = "duplicate delivery; already reconciled"
	}
	return helper.JsonOK(c, msg, res)
}

/* =========================================================
   Gateway event audit trail
========================================================= */

// logEvent writes the received row. Audit logging must never take the webhook
// down, so failures are logged and swallowed.
func (h *PaymentController) logEvent(c *fiber.Ctx, provider string, raw []byte, signature string) *model.PaymentGatewayEvent {
	event := &model.PaymentGatewayEvent{
		GatewayEventProvider: provider,
		GatewayEventStatus:   model.GatewayEventStatusReceived,
	}
	if signature != "" {
		event.GatewayEventSignature = &signature
	}
	if json.Valid(raw) {
		event.GatewayEventPayload = datatypes.JSON(raw)
	}
	if hb, err := json.Marshal(c.GetReqHeaders()); err == nil {
		event.GatewayEventHeaders = datatypes.JSON(hb)
	}
	if err := h.DB.WithContext(c.Context()).Create(event).Error; err != nil {
		log.Printf("[ERROR] record gateway event: %v", err)
		return nil
	}
	return event
}

func (h *PaymentController) processEvent(c *fiber.Ctx, event *model.PaymentGatewayEvent, paymentID *uuid.UUID) {
	if event == nil {
		return
	}
	now := time.Now()
	event.GatewayEventStatus = model.GatewayEventStatusProcessed
	event.GatewayEventProcessedAt = &now
	event.GatewayEventPaymentID = paymentID
	if err := h.DB.WithContext(c.Context()).Save(event).Error; err != nil {
		log.Printf("[ERROR] update gateway event %s: %v", event.GatewayEventID, err)
	}
}

func (h *PaymentController) failEvent(c *fiber.Ctx, event *model.PaymentGatewayEvent, reason string) {
	if event == nil {
		return
	}
	now := time.Now()
	event.GatewayEventStatus = model.GatewayEventStatusFailed
	event.GatewayEventError = &reason
	event.GatewayEventProcessedAt = &now
	if err := h.DB.WithContext(c.Context()).Save(event).Error; err != nil {
		log.Printf("[ERROR] update gateway event %s: %v", event.GatewayEventID, err)
	}
}

// markOrderFailed flips the matching initiated row to failed. A failure for an
// order we never opened, or one already captured, is a no-op.
func (h *PaymentController) markOrderFailed(c *fiber.Ctx, provider, orderRef string) error {
	if orderRef == "" {
		return nil
	}
	now := time.Now()
	return h.DB.WithContext(c.Context()).
		Model(&model.Payment{}).
		Where("payment_provider = ? AND payment_order_ref = ? AND payment_status = ?",
			provider, orderRef, model.PaymentStatusInitiated).
		Updates(map[string]any{
			"payment_status":     model.PaymentStatusFailed,
			"payment_failed_at":  &now,
			"payment_updated_at": now,
		}).Error
}
