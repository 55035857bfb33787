package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	invoiceModel "schoolflow_backend/internals/features/fees/invoices/model"
	paymentModel "schoolflow_backend/internals/features/fees/payments/model"
	receiptModel "schoolflow_backend/internals/features/fees/receipts/model"
	receiptSvc "schoolflow_backend/internals/features/fees/receipts/service"
	"schoolflow_backend/internals/helpers/errs"
)

type okRenderer struct{}

func (okRenderer) Render(ctx context.Context, doc receiptSvc.ReceiptDocument) (string, error) {
	return "/tmp/receipts/" + doc.ReceiptNo + ".pdf", nil
}

type brokenRenderer struct{}

func (brokenRenderer) Render(ctx context.Context, doc receiptSvc.ReceiptDocument) (string, error) {
	return "", errors.New("render backend unavailable")
}

func receiptCount(t *testing.T, db *gorm.DB, paymentID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&receiptModel.Receipt{}).
		Where("receipt_payment_id = ?", paymentID).Count(&n).Error)
	return n
}

func TestHandlePaymentEvent_FullFlow(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")

	res, err := HandlePaymentEvent(context.Background(), db, okRenderer{},
		captureEvent(inv.FeeInvoiceID, "100", "txn-flow"), nil)
	require.NoError(t, err)

	assert.False(t, res.Replay)
	assert.False(t, res.ReceiptPending)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, res.InvoiceStatus)
	require.NotNil(t, res.ReceiptNo)
	assert.True(t, strings.HasPrefix(*res.ReceiptNo, "REC-"))
	assert.Equal(t, int64(1), receiptCount(t, db, res.PaymentID))
}

func TestHandlePaymentEvent_PartialCapture(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "5000")

	res, err := HandlePaymentEvent(context.Background(), db, okRenderer{},
		captureEvent(inv.FeeInvoiceID, "2000", "txn-part"), nil)
	require.NoError(t, err)
	assert.Equal(t, invoiceModel.InvoiceStatusPartial, res.InvoiceStatus)

	res, err = HandlePaymentEvent(context.Background(), db, okRenderer{},
		captureEvent(inv.FeeInvoiceID, "3000", "txn-rest"), nil)
	require.NoError(t, err)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, res.InvoiceStatus)
}

func TestHandlePaymentEvent_UnknownInvoiceWritesNothing(t *testing.T) {
	db := openTestDB(t)
	ghost := uuid.New()

	_, err := HandlePaymentEvent(context.Background(), db, okRenderer{},
		captureEvent(ghost, "100", "txn-ghost"), nil)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	assert.Equal(t, int64(0), paymentCount(t, db, ghost))
	var n int64
	require.NoError(t, db.Model(&receiptModel.Receipt{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestHandlePaymentEvent_DuplicateDelivery(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")
	ev := captureEvent(inv.FeeInvoiceID, "100", "txn-redeliver")

	first, err := HandlePaymentEvent(context.Background(), db, okRenderer{}, ev, nil)
	require.NoError(t, err)
	require.False(t, first.Replay)

	second, err := HandlePaymentEvent(context.Background(), db, okRenderer{}, ev, nil)
	require.NoError(t, err)

	assert.True(t, second.Replay)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, second.InvoiceStatus)
	assert.Equal(t, int64(1), paymentCount(t, db, inv.FeeInvoiceID))
	assert.Equal(t, int64(1), receiptCount(t, db, first.PaymentID))
	require.NotNil(t, second.ReceiptNo)
	assert.Equal(t, *first.ReceiptNo, *second.ReceiptNo)
}

// Render failure must not lose the money: the payment commits, the ledger
// updates, and only the receipt is left pending for a later retry.
func TestHandlePaymentEvent_RenderFailureLeavesReceiptPending(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")

	res, err := HandlePaymentEvent(context.Background(), db, brokenRenderer{},
		captureEvent(inv.FeeInvoiceID, "100", "txn-pending"), nil)
	require.NoError(t, err)

	assert.True(t, res.ReceiptPending)
	assert.Nil(t, res.ReceiptID)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, res.InvoiceStatus)

	var p paymentModel.Payment
	require.NoError(t, db.First(&p, "payment_id = ?", res.PaymentID).Error)
	assert.Equal(t, paymentModel.PaymentStatusCaptured, p.PaymentStatus)
	assert.Equal(t, int64(0), receiptCount(t, db, res.PaymentID))

	// Retry with a working renderer issues the receipt without new money.
	rec, err := receiptSvc.IssueReceipt(context.Background(), db, okRenderer{}, res.PaymentID, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.ReceiptNo, "REC-"))
	assert.Equal(t, int64(1), paymentCount(t, db, inv.FeeInvoiceID))
	assert.Equal(t, int64(1), receiptCount(t, db, res.PaymentID))
}
