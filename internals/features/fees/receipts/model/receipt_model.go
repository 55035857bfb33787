package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Receipt rows are immutable and never deleted; they are the financial audit
// trail. Exactly one receipt may exist per captured payment, enforced by the
// unique index on receipt_payment_id.
type Receipt struct {
	ReceiptID uuid.UUID `gorm:"column:receipt_id;type:uuid;primaryKey" json:"receipt_id"`

	ReceiptPaymentID uuid.UUID `gorm:"column:receipt_payment_id;type:uuid;not null;uniqueIndex:uq_receipt_payment" json:"receipt_payment_id"`
	ReceiptNo        string    `gorm:"column:receipt_no;type:varchar(64);not null;uniqueIndex:uq_receipt_no" json:"receipt_no"`
	ReceiptPDFPath   string    `gorm:"column:receipt_pdf_path;type:varchar(1024);not null" json:"receipt_pdf_path"`

	ReceiptCreatedBy *uuid.UUID `gorm:"column:receipt_created_by;type:uuid" json:"receipt_created_by,omitempty"`
	ReceiptCreatedAt time.Time  `gorm:"column:receipt_created_at;not null;autoCreateTime" json:"receipt_created_at"`
}

func (Receipt) TableName() string { return "receipts" }

func (m *Receipt) BeforeCreate(tx *gorm.DB) error {
	if m.ReceiptID == uuid.Nil {
		m.ReceiptID = uuid.New()
	}
	return nil
}
