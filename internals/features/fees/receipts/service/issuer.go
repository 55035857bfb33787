package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	invoiceModel "schoolflow_backend/internals/features/fees/invoices/model"
	paymentModel "schoolflow_backend/internals/features/fees/payments/model"
	"schoolflow_backend/internals/features/fees/receipts/model"
	"schoolflow_backend/internals/helpers/errs"
)

// RenderTimeout bounds the render call; a slow renderer must not hold a
// webhook request hostage. The payment stays captured either way.
const RenderTimeout = 10 * time.Second

// NewReceiptNo allocates a collision-resistant receipt number,
// e.g. REC-3F9A01BC42. The unique index on receipt_no is the real guarantee.
func NewReceiptNo() string {
	b := make([]byte, 5)
	_, _ = rand.Read(b)
	return "REC-" + strings.ToUpper(hex.EncodeToString(b))
}

// IssueReceipt issues the receipt for a captured payment. Idempotent: an
// already-issued receipt is returned as-is. If rendering fails no receipt row
// is written: the payment stays captured and receiptless, and issuance can be
// retried on its own.
func IssueReceipt(ctx context.Context, db *gorm.DB, renderer Renderer, paymentID uuid.UUID, issuedBy *uuid.UUID) (*model.Receipt, error) {
	var payment paymentModel.Payment
	if err := db.WithContext(ctx).First(&payment, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("payment %s not found", paymentID)
		}
		return nil, err
	}
	if !payment.IsCaptured() {
		return nil, errs.Validation("payment %s is not captured", paymentID)
	}

	if existing, err := GetByPaymentID(ctx, db, paymentID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	var invoice invoiceModel.FeeInvoice
	if err := db.WithContext(ctx).First(&invoice, "fee_invoice_id = ?", payment.PaymentInvoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Invariant("captured payment references missing invoice", err)
		}
		return nil, err
	}

	receiptNo := NewReceiptNo()
	paidAt := payment.PaymentCreatedAt
	if payment.PaymentPaidAt != nil {
		paidAt = *payment.PaymentPaidAt
	}

	renderCtx, cancel := context.WithTimeout(ctx, RenderTimeout)
	defer cancel()
	pdfPath, err := renderer.Render(renderCtx, ReceiptDocument{
		ReceiptNo: receiptNo,
		InvoiceNo: invoice.FeeInvoiceNo,
		StudentID: invoice.FeeInvoiceStudentID,
		Amount:    payment.PaymentAmount,
		PaidAt:    paidAt,
		Provider:  payment.PaymentProvider,
	})
	if err != nil {
		return nil, errs.Render("receipt render failed", err)
	}

	rec := &model.Receipt{
		ReceiptPaymentID: paymentID,
		ReceiptNo:        receiptNo,
		ReceiptPDFPath:   pdfPath,
		ReceiptCreatedBy: issuedBy,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if errs.IsUniqueViolation(err) {
			// A concurrent issuance won; its receipt is the one that counts.
			existing, ferr := GetByPaymentID(ctx, db, paymentID)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return rec, nil
}

func GetByPaymentID(ctx context.Context, db *gorm.DB, paymentID uuid.UUID) (*model.Receipt, error) {
	var rec model.Receipt
	err := db.WithContext(ctx).First(&rec, "receipt_payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func GetReceipt(ctx context.Context, db *gorm.DB, receiptID uuid.UUID) (*model.Receipt, error) {
	var rec model.Receipt
	if err := db.WithContext(ctx).First(&rec, "receipt_id = ?", receiptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("receipt %s not found", receiptID)
		}
		return nil, err
	}
	return &rec, nil
}
