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
	InvoiceStatusPending = "pending"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
)

// NormalizeInvoiceStatus folds the legacy status strings still seen in old
// data exports ("unpaid", "completed") into the canonical enum. Raw provider
// strings never reach the ledger state machine.
func NormalizeInvoiceStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unpaid", InvoiceStatusPending:
		return InvoiceStatusPending
	case "completed", InvoiceStatusPaid:
		return InvoiceStatusPaid
	case InvoiceStatusPartial:
		return InvoiceStatusPartial
	}
	return InvoiceStatusPending
}

/* ===================== Model ===================== */

// FeeInvoice is immutable after creation except for its status; amount_due is
// snapshotted at creation time and never recomputed from the plan.
type FeeInvoice struct {
	FeeInvoiceID uuid.UUID `gorm:"column:fee_invoice_id;type:uuid;primaryKey" json:"fee_invoice_id"`

	FeeInvoiceNo        string    `gorm:"column:fee_invoice_no;type:varchar(64);not null;uniqueIndex:uq_fee_invoice_no" json:"fee_invoice_no"`
	FeeInvoiceStudentID uuid.UUID `gorm:"column:fee_invoice_student_id;type:uuid;not null;uniqueIndex:uq_invoice_student_period,priority:1" json:"fee_invoice_student_id"`
	FeeInvoicePeriod    string    `gorm:"column:fee_invoice_period;type:varchar(64);not null;uniqueIndex:uq_invoice_student_period,priority:2" json:"fee_invoice_period"`

	FeeInvoiceAmountDue decimal.Decimal `gorm:"column:fee_invoice_amount_due;type:numeric(10,2);not null" json:"fee_invoice_amount_due"`
	FeeInvoiceDueDate   time.Time       `gorm:"column:fee_invoice_due_date;not null" json:"fee_invoice_due_date"`
	FeeInvoiceStatus    string          `gorm:"column:fee_invoice_status;type:varchar(20);not null;default:'pending'" json:"fee_invoice_status"`

	FeeInvoiceCreatedAt time.Time `gorm:"column:fee_invoice_created_at;not null;autoCreateTime" json:"fee_invoice_created_at"`
	FeeInvoiceUpdatedAt time.Time `gorm:"column:fee_invoice_updated_at;not null;autoUpdateTime" json:"fee_invoice_updated_at"`
}

func (FeeInvoice) TableName() string { return "fee_invoices" }

func (m *FeeInvoice) BeforeCreate(tx *gorm.DB) error {
	if m.FeeInvoiceID == uuid.Nil {
		m.FeeInvoiceID = uuid.New()
	}
	if m.FeeInvoiceStatus == "" {
		m.FeeInvoiceStatus = InvoiceStatusPending
	}
	return nil
}

func (m *FeeInvoice) IsPaid() bool { return m.FeeInvoiceStatus == InvoiceStatusPaid }
