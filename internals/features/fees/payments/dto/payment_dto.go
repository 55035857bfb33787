package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolflow_backend/internals/features/fees/payments/model"
	"schoolflow_backend/internals/features/fees/payments/service"
)

/* =========================================================
   Requests
========================================================= */

// WebhookPayload is the normalized capture notification body. Providers and
// older integrations disagree on the invoice field name, so both are accepted.
type WebhookPayload struct {
	InvoiceID    *uuid.UUID `json:"invoice_id"`
	FeeInvoiceID *uuid.UUID `json:"fee_invoice_id"`

	OrderID        string          `json:"order_id"`
	ProviderTxnID  string          `json:"provider_txn_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	IdempotencyKey *string         `json:"idempotency_key"`
}

// ResolveInvoiceID prefers the canonical field over the legacy one.
func (p *WebhookPayload) ResolveInvoiceID() *uuid.UUID {
	if p.InvoiceID != nil {
		return p.InvoiceID
	}
	return p.FeeInvoiceID
}

/* =========================================================
   Responses
========================================================= */

type CreateOrderResponse struct {
	PaymentID   uuid.UUID       `json:"payment_id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Provider    string          `json:"provider"`
	OrderRef    string          `json:"order_ref"`
	Amount      decimal.Decimal `json:"amount"`
	AmountMinor int64           `json:"amount_minor"`
	Currency    string          `json:"currency"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	Token       string          `json:"token,omitempty"`
	Status      string          `json:"status"`
}

func NewCreateOrderResponse(p *model.Payment, o service.Order) CreateOrderResponse {
	return CreateOrderResponse{
		PaymentID:   p.PaymentID,
		InvoiceID:   p.PaymentInvoiceID,
		Provider:    p.PaymentProvider,
		OrderRef:    o.OrderRef,
		Amount:      p.PaymentAmount,
		AmountMinor: o.AmountMinor,
		Currency:    o.Currency,
		CheckoutURL: o.CheckoutURL,
		Token:       o.Token,
		Status:      p.PaymentStatus,
	}
}
