package dto

import (
	"time"

	"github.com/google/uuid"

	"schoolflow_backend/internals/features/fees/receipts/model"
)

type ReceiptResponse struct {
	ReceiptID uuid.UUID  `json:"receipt_id"`
	PaymentID uuid.UUID  `json:"payment_id"`
	ReceiptNo string     `json:"receipt_no"`
	PDFPath   string     `json:"pdf_path"`
	IssuedBy  *uuid.UUID `json:"issued_by,omitempty"`
	IssuedAt  time.Time  `json:"issued_at"`
}

func FromModel(m *model.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ReceiptID: m.ReceiptID,
		PaymentID: m.ReceiptPaymentID,
		ReceiptNo: m.ReceiptNo,
		PDFPath:   m.ReceiptPDFPath,
		IssuedBy:  m.ReceiptCreatedBy,
		IssuedAt:  m.ReceiptCreatedAt,
	}
}
