package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	invoiceModel "schoolflow_backend/internals/features/fees/invoices/model"
	invoiceSvc "schoolflow_backend/internals/features/fees/invoices/service"
	receiptSvc "schoolflow_backend/internals/features/fees/receipts/service"
	"schoolflow_backend/internals/helpers/errs"
)

type ReconciliationResult struct {
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	InvoiceStatus string     `json:"invoice_status"`
	PaymentID     uuid.UUID  `json:"payment_id"`
	ReceiptID     *uuid.UUID `json:"receipt_id,omitempty"`
	ReceiptNo     *string    `json:"receipt_no,omitempty"`
	// Replay means the delivery matched an already-recorded capture.
	Replay bool `json:"replay"`
	// ReceiptPending means the payment is committed but rendering failed;
	// issuance alone can be retried later.
	ReceiptPending bool `json:"receipt_pending"`
}

// HandlePaymentEvent is the single entry point for capture notifications:
// intake de-duplication and the ledger status update commit as one
// transaction; receipt issuance runs after the commit so a slow or failing
// renderer can never roll back recorded money. Replaying the same event after
// a partial failure re-issues only what is missing.
func HandlePaymentEvent(ctx context.Context, db *gorm.DB, renderer receiptSvc.Renderer, ev CaptureEvent, issuedBy *uuid.UUID) (ReconciliationResult, error) {
	var res ReconciliationResult

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the invoice up front; a concurrent capture for the same
		// invoice waits here and then sees the committed paid total.
		q := tx.WithContext(ctx)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var inv invoiceModel.FeeInvoice
		if err := q.First(&inv, "fee_invoice_id = ?", ev.InvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("invoice %s not found", ev.InvoiceID)
			}
			return err
		}

		payment, replay, err := IngestCapture(ctx, tx, ev)
		if err != nil {
			return err
		}
		res.InvoiceID = inv.FeeInvoiceID
		res.PaymentID = payment.PaymentID
		res.Replay = replay

		if replay {
			res.InvoiceStatus = inv.FeeInvoiceStatus
			return nil
		}

		status, err := invoiceSvc.ApplyCapturedPayment(ctx, tx, inv.FeeInvoiceID)
		if err != nil {
			return err
		}
		res.InvoiceStatus = status
		return nil
	})
	if err != nil {
		return ReconciliationResult{}, err
	}

	// Receipt issuance is deliberately outside the transaction and idempotent:
	// a replayed delivery that finds a captured-but-receiptless payment (crash
	// between commit and render) retries exactly this step.
	rec, err := receiptSvc.IssueReceipt(ctx, db, renderer, res.PaymentID, issuedBy)
	if err != nil {
		if errs.IsRender(err) {
			log.Printf("[WARN] receipt pending for payment %s: %v", res.PaymentID, err)
			res.ReceiptPending = true
			return res, nil
		}
		return res, err
	}
	res.ReceiptID = &rec.ReceiptID
	res.ReceiptNo = &rec.ReceiptNo
	return res, nil
}
