package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	assignmentSvc "schoolflow_backend/internals/features/fees/assignments/service"
	"schoolflow_backend/internals/features/fees/invoices/model"
	paymentModel "schoolflow_backend/internals/features/fees/payments/model"
	"schoolflow_backend/internals/helpers/errs"
)

/* =========================================================
   Invoice creation
========================================================= */

type CreateInvoiceInput struct {
	StudentID uuid.UUID
	InvoiceNo string
	Period    string
	DueDate   time.Time

	// Plan resolution inputs; optional when Amount is supplied.
	FeePlanID  *uuid.UUID
	Concession decimal.Decimal

	// Extra amount (top-up) added on top of the plan-derived total. When no
	// plan is given this becomes the whole amount_due.
	Amount *decimal.Decimal
}

// CreateInvoice persists a new invoice with amount_due snapshotted from the
// resolved plan lines plus the optional top-up. amount_due never changes
// afterwards.
func CreateInvoice(ctx context.Context, db *gorm.DB, in CreateInvoiceInput) (*model.FeeInvoice, error) {
	if in.InvoiceNo == "" {
		return nil, errs.Validation("invoice_no is required")
	}
	if in.Period == "" {
		return nil, errs.Validation("period is required")
	}
	if in.FeePlanID == nil && in.Amount == nil {
		return nil, errs.Validation("either fee_plan_id or an explicit amount is required")
	}

	due := decimal.Zero
	if in.FeePlanID != nil {
		res, err := assignmentSvc.ResolvePlanLines(ctx, db, *in.FeePlanID, in.Concession)
		if err != nil {
			return nil, err
		}
		due = res.NetDue
	}
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, errs.Validation("amount must not be negative")
		}
		due = due.Add(*in.Amount)
	}

	inv := &model.FeeInvoice{
		FeeInvoiceNo:        in.InvoiceNo,
		FeeInvoiceStudentID: in.StudentID,
		FeeInvoicePeriod:    in.Period,
		FeeInvoiceAmountDue: due,
		FeeInvoiceDueDate:   in.DueDate,
		FeeInvoiceStatus:    model.InvoiceStatusPending,
	}
	if err := db.WithContext(ctx).Create(inv).Error; err != nil {
		if errs.IsUniqueViolation(err) {
			return nil, errs.Conflict("invoice already exists for this invoice_no or student/period")
		}
		return nil, err
	}
	return inv, nil
}

func GetInvoice(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID) (*model.FeeInvoice, error) {
	var inv model.FeeInvoice
	if err := db.WithContext(ctx).
		First(&inv, "fee_invoice_id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("invoice %s not found", invoiceID)
		}
		return nil, err
	}
	return &inv, nil
}

/* =========================================================
   Balance & status
========================================================= */

// Balance is always derived by re-querying captured payments; nothing caches
// paid_amount, so ledger and history cannot drift apart.
type Balance struct {
	AmountDue  decimal.Decimal `json:"amount_due"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	// Balance may go negative on overpayment; it is surfaced exactly, not
	// clamped, so reconciliation reports stay truthful. Display clamping is a
	// DTO concern.
	Balance decimal.Decimal `json:"balance"`
	Status  string          `json:"status"`
}

func ComputeBalance(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID) (Balance, error) {
	inv, err := GetInvoice(ctx, db, invoiceID)
	if err != nil {
		return Balance{}, err
	}
	paid, err := capturedTotal(ctx, db, invoiceID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		AmountDue:  inv.FeeInvoiceAmountDue,
		PaidAmount: paid,
		Balance:    inv.FeeInvoiceAmountDue.Sub(paid),
		Status:     inv.FeeInvoiceStatus,
	}, nil
}

func capturedTotal(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	if err := db.WithContext(ctx).
		Table("payments").
		Select("CAST(COALESCE(SUM(payment_amount), 0) AS TEXT)").
		Where("payment_invoice_id = ? AND payment_status = ?", invoiceID, paymentModel.PaymentStatusCaptured).
		Scan(&raw).Error; err != nil {
		return decimal.Zero, err
	}
	if raw == nil || *raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

func statusFor(due, paid decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(due):
		return model.InvoiceStatusPaid
	case paid.IsPositive():
		return model.InvoiceStatusPartial
	default:
		return model.InvoiceStatusPending
	}
}

// ApplyCapturedPayment recomputes the invoice status from its captured
// payments. It must run inside the same transaction as the payment insert;
// the invoice row is locked (SELECT ... FOR UPDATE on Postgres) so concurrent
// captures for the same invoice serialize instead of racing a stale
// read-then-write. Status is monotonic: once paid, never regressed.
func ApplyCapturedPayment(ctx context.Context, tx *gorm.DB, invoiceID uuid.UUID) (string, error) {
	q := tx.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var inv model.FeeInvoice
	if err := q.First(&inv, "fee_invoice_id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errs.Invariant("captured payment references missing invoice", err)
		}
		return "", err
	}

	paid, err := capturedTotal(ctx, tx, invoiceID)
	if err != nil {
		return "", err
	}

	next := statusFor(inv.FeeInvoiceAmountDue, paid)
	if inv.FeeInvoiceStatus == model.InvoiceStatusPaid {
		next = model.InvoiceStatusPaid
	}
	if next == inv.FeeInvoiceStatus {
		return next, nil
	}

	if err := tx.WithContext(ctx).Model(&model.FeeInvoice{}).
		Where("fee_invoice_id = ?", invoiceID).
		Updates(map[string]any{
			"fee_invoice_status":     next,
			"fee_invoice_updated_at": time.Now(),
		}).Error; err != nil {
		return "", err
	}
	return next, nil
}
