package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	invoiceSvc "schoolflow_backend/internals/features/fees/invoices/service"
	"schoolflow_backend/internals/features/fees/payments/model"
	"schoolflow_backend/internals/helpers/errs"
)

/* =========================================================
   Order creation (pre-capture)
========================================================= */

// CreateOrder persists an initiated payment for the invoice's outstanding
// balance and asks the gateway for an order reference. The payment row is
// promoted to captured later, when the webhook for the same order arrives.
func CreateOrder(ctx context.Context, db *gorm.DB, gw Gateway, invoiceID uuid.UUID) (*model.Payment, Order, error) {
	bal, err := invoiceSvc.ComputeBalance(ctx, db, invoiceID)
	if err != nil {
		return nil, Order{}, err
	}
	outstanding := bal.Balance
	if !outstanding.IsPositive() {
		return nil, Order{}, errs.Conflict("invoice is already settled")
	}

	inv, err := invoiceSvc.GetInvoice(ctx, db, invoiceID)
	if err != nil {
		return nil, Order{}, err
	}

	order, err := gw.CreateOrder(ctx, inv, outstanding)
	if err != nil {
		return nil, Order{}, err
	}

	p := &model.Payment{
		PaymentInvoiceID: invoiceID,
		PaymentProvider:  gw.Provider(),
		PaymentOrderRef:  &order.OrderRef,
		PaymentAmount:    outstanding,
		PaymentStatus:    model.PaymentStatusInitiated,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, Order{}, err
	}
	return p, order, nil
}

/* =========================================================
   Capture intake (webhook)
========================================================= */

// CaptureEvent is the normalized form of a capture notification. Amount is in
// major units already; callers convert minor-unit payloads before building one.
type CaptureEvent struct {
	InvoiceID      uuid.UUID
	Provider       string
	ProviderTxnID  string
	OrderRef       string
	Amount         decimal.Decimal
	IdempotencyKey *string
}

// IngestCapture records a capture exactly once. Lookup order:
//  1. (provider, provider_txn_id) or idempotency key; an already captured row
//     makes the whole delivery a no-op replay;
//  2. an initiated row for the same order ref, promoted in place;
//  3. otherwise a fresh captured row is inserted.
//
// The pre-check is only an optimization: when two deliveries race past it, the
// unique constraints reject the loser and the re-read turns it into a replay.
func IngestCapture(ctx context.Context, tx *gorm.DB, ev CaptureEvent) (p *model.Payment, replay bool, err error) {
	if ev.Provider == "" || ev.ProviderTxnID == "" {
		return nil, false, errs.Validation("provider and provider_txn_id are required")
	}
	if !ev.Amount.IsPositive() {
		return nil, false, errs.Validation("capture amount must be positive")
	}

	if existing, err := findExisting(ctx, tx, ev); err != nil {
		return nil, false, err
	} else if existing != nil {
		if existing.IsCaptured() {
			return existing, true, nil
		}
		if err := promote(ctx, tx, existing, ev); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	// An order created earlier for this delivery? Promote it instead of
	// inserting a second row for the same money.
	if ev.OrderRef != "" {
		var open model.Payment
		err := tx.WithContext(ctx).
			First(&open, "payment_provider = ? AND payment_order_ref = ? AND payment_status = ?",
				ev.Provider, ev.OrderRef, model.PaymentStatusInitiated).Error
		switch {
		case err == nil:
			if err := promote(ctx, tx, &open, ev); err != nil {
				return nil, false, err
			}
			return &open, false, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, false, err
		}
	}

	now := time.Now()
	fresh := &model.Payment{
		PaymentInvoiceID:      ev.InvoiceID,
		PaymentProvider:       ev.Provider,
		PaymentProviderTxnID:  &ev.ProviderTxnID,
		PaymentAmount:         ev.Amount,
		PaymentStatus:         model.PaymentStatusCaptured,
		PaymentIdempotencyKey: ev.IdempotencyKey,
		PaymentPaidAt:         &now,
	}
	if ev.OrderRef != "" {
		fresh.PaymentOrderRef = &ev.OrderRef
	}
	if err := tx.WithContext(ctx).Create(fresh).Error; err != nil {
		if errs.IsUniqueViolation(err) {
			// Lost the race; the winner's row is the truth.
			existing, ferr := findExisting(ctx, tx, ev)
			if ferr != nil {
				return nil, false, ferr
			}
			if existing == nil {
				return nil, false, errs.Invariant("unique violation without a matching payment row", err)
			}
			return existing, true, nil
		}
		return nil, false, err
	}
	return fresh, false, nil
}

func findExisting(ctx context.Context, tx *gorm.DB, ev CaptureEvent) (*model.Payment, error) {
	var p model.Payment
	q := tx.WithContext(ctx).
		Where("payment_provider = ? AND payment_provider_txn_id = ?", ev.Provider, ev.ProviderTxnID)
	if ev.IdempotencyKey != nil && *ev.IdempotencyKey != "" {
		q = q.Or("payment_idempotency_key = ?", *ev.IdempotencyKey)
	}
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// promote flips an initiated row to captured with the normalized amount and
// the capture identifiers. No duplicate row is created.
func promote(ctx context.Context, tx *gorm.DB, p *model.Payment, ev CaptureEvent) error {
	now := time.Now()
	p.PaymentProviderTxnID = &ev.ProviderTxnID
	p.PaymentAmount = ev.Amount
	p.PaymentStatus = model.PaymentStatusCaptured
	p.PaymentPaidAt = &now
	if p.PaymentIdempotencyKey == nil && ev.IdempotencyKey != nil && *ev.IdempotencyKey != "" {
		p.PaymentIdempotencyKey = ev.IdempotencyKey
	}
	p.PaymentUpdatedAt = now
	if err := tx.WithContext(ctx).Save(p).Error; err != nil {
		if errs.IsUniqueViolation(err) {
			return errs.Conflict("capture already recorded for this transaction")
		}
		return err
	}
	return nil
}
