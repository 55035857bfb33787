package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */

const (
	PaymentStatusInitiated = "initiated"
	PaymentStatusCaptured  = "captured"
	PaymentStatusFailed    = "failed"
)

const (
	PaymentProviderRazorpay = "razorpay"
	PaymentProviderMidtrans = "midtrans"
	PaymentProviderManual   = "manual"
)

// NormalizePaymentStatus folds provider vocabulary ("created", "paid",
// "settlement", legacy "completed") into the internal enum.
func NormalizePaymentStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "created", "pending", PaymentStatusInitiated:
		return PaymentStatusInitiated
	case "paid", "settlement", "capture", "completed", PaymentStatusCaptured:
		return PaymentStatusCaptured
	case "deny", "failure", PaymentStatusFailed:
		return PaymentStatusFailed
	}
	return PaymentStatusInitiated
}

/* ===================== Model ===================== */

// Payment is append-only: a row is never mutated after creation except for the
// initiated → captured|failed status transition. The unique indexes on
// (provider, provider_txn_id) and on the idempotency key are the last line of
// defense against duplicate webhook deliveries racing past the pre-check.
type Payment struct {
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;primaryKey" json:"payment_id"`

	PaymentInvoiceID uuid.UUID `gorm:"column:payment_invoice_id;type:uuid;not null;index" json:"payment_invoice_id"`

	PaymentProvider      string  `gorm:"column:payment_provider;type:varchar(50);not null;uniqueIndex:uq_payment_provider_txn,priority:1" json:"payment_provider"`
	PaymentProviderTxnID *string `gorm:"column:payment_provider_txn_id;type:varchar(255);uniqueIndex:uq_payment_provider_txn,priority:2" json:"payment_provider_txn_id,omitempty"`

	// Order reference handed out at order-creation time (pre-capture); the
	// capture webhook uses it to find the initiated row to promote.
	PaymentOrderRef *string `gorm:"column:payment_order_ref;type:varchar(255);index" json:"payment_order_ref,omitempty"`

	// Canonical representation: major currency units (rupees), two decimals.
	PaymentAmount decimal.Decimal `gorm:"column:payment_amount;type:numeric(10,2);not null" json:"payment_amount"`

	PaymentStatus         string  `gorm:"column:payment_status;type:varchar(20);not null;default:'initiated'" json:"payment_status"`
	PaymentIdempotencyKey *string `gorm:"column:payment_idempotency_key;type:varchar(255);uniqueIndex:uq_payment_idempotency_key" json:"payment_idempotency_key,omitempty"`

	PaymentPaidAt   *time.Time `gorm:"column:payment_paid_at" json:"payment_paid_at,omitempty"`
	PaymentFailedAt *time.Time `gorm:"column:payment_failed_at" json:"payment_failed_at,omitempty"`

	PaymentCreatedAt time.Time `gorm:"column:payment_created_at;not null;autoCreateTime" json:"payment_created_at"`
	PaymentUpdatedAt time.Time `gorm:"column:payment_updated_at;not null;autoUpdateTime" json:"payment_updated_at"`
}

func (Payment) TableName() string { return "payments" }

func (m *Payment) BeforeCreate(tx *gorm.DB) error {
	if m.PaymentID == uuid.Nil {
		m.PaymentID = uuid.New()
	}
	if m.PaymentStatus == "" {
		m.PaymentStatus = PaymentStatusInitiated
	}
	return nil
}

func (m *Payment) IsCaptured() bool { return m.PaymentStatus == PaymentStatusCaptured }

func (m *Payment) IsOpen() bool { return m.PaymentStatus == PaymentStatusInitiated }
