package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	invoiceModel "schoolflow_backend/internals/features/fees/invoices/model"
	paymentModel "schoolflow_backend/internals/features/fees/payments/model"
	receiptModel "schoolflow_backend/internals/features/fees/receipts/model"
	"schoolflow_backend/internals/helpers/errs"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&invoiceModel.FeeInvoice{},
		&paymentModel.Payment{},
		&receiptModel.Receipt{},
	))
	return db
}

func seedInvoice(t *testing.T, db *gorm.DB, due string) *invoiceModel.FeeInvoice {
	t.Helper()
	inv := &invoiceModel.FeeInvoice{
		FeeInvoiceNo:        "INV-" + uuid.New().String()[:8],
		FeeInvoiceStudentID: uuid.New(),
		FeeInvoicePeriod:    "2026-04",
		FeeInvoiceAmountDue: decimal.RequireFromString(due),
		FeeInvoiceDueDate:   time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		FeeInvoiceStatus:    invoiceModel.InvoiceStatusPending,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func paymentCount(t *testing.T, db *gorm.DB, invoiceID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&paymentModel.Payment{}).
		Where("payment_invoice_id = ?", invoiceID).Count(&n).Error)
	return n
}

func captureEvent(invoiceID uuid.UUID, amount, txn string) CaptureEvent {
	return CaptureEvent{
		InvoiceID:     invoiceID,
		Provider:      paymentModel.PaymentProviderRazorpay,
		ProviderTxnID: txn,
		Amount:        decimal.RequireFromString(amount),
	}
}

// stubGateway answers order creation without any provider round-trip.
type stubGateway struct {
	orderRef string
}

func (g *stubGateway) Provider() string { return paymentModel.PaymentProviderRazorpay }

func (g *stubGateway) CreateOrder(ctx context.Context, inv *invoiceModel.FeeInvoice, amount decimal.Decimal) (Order, error) {
	return Order{OrderRef: g.orderRef, AmountMinor: MajorToMinor(amount), Currency: "INR"}, nil
}

func (g *stubGateway) VerifyWebhook(payload []byte, signature string) bool { return true }

/* ===================== Unit normalization ===================== */

func TestMinorToMajor(t *testing.T) {
	assert.True(t, MinorToMajor(10000).Equal(decimal.RequireFromString("100")))
	assert.True(t, MinorToMajor(165050).Equal(decimal.RequireFromString("1650.50")))
	assert.True(t, MinorToMajor(1).Equal(decimal.RequireFromString("0.01")))
}

func TestMajorToMinor(t *testing.T) {
	assert.Equal(t, int64(10000), MajorToMinor(decimal.RequireFromString("100")))
	assert.Equal(t, int64(9999), MajorToMinor(decimal.RequireFromString("99.99")))
	assert.Equal(t, int64(165050), MajorToMinor(decimal.RequireFromString("1650.50")))
}

// An order opened for 10000 paise and a capture reported as 100.00 rupees are
// the same money; both sides must land on the same canonical value.
func TestUnitNormalizationRoundTrip(t *testing.T) {
	orderMinor := int64(10000)
	captureMajor := decimal.RequireFromString("100.00")

	assert.True(t, MinorToMajor(orderMinor).Equal(captureMajor))
	assert.Equal(t, orderMinor, MajorToMinor(captureMajor))
}

/* ===================== Order creation ===================== */

func TestCreateOrder_PersistsInitiatedPayment(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "500")
	gw := &stubGateway{orderRef: "order-test-1"}

	p, order, err := CreateOrder(context.Background(), db, gw, inv.FeeInvoiceID)
	require.NoError(t, err)

	assert.Equal(t, "order-test-1", order.OrderRef)
	assert.Equal(t, int64(50000), order.AmountMinor)
	assert.Equal(t, paymentModel.PaymentStatusInitiated, p.PaymentStatus)
	require.NotNil(t, p.PaymentOrderRef)
	assert.Equal(t, "order-test-1", *p.PaymentOrderRef)
	assert.True(t, p.PaymentAmount.Equal(decimal.NewFromInt(500)))
}

func TestCreateOrder_RefusesSettledInvoice(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")

	_, _, err := IngestCapture(context.Background(), db, captureEvent(inv.FeeInvoiceID, "100", "txn-settled"))
	require.NoError(t, err)

	_, _, err = CreateOrder(context.Background(), db, &stubGateway{orderRef: "order-x"}, inv.FeeInvoiceID)
	assert.True(t, errs.IsConflict(err))
}

func TestCreateOrder_UnknownInvoice(t *testing.T) {
	db := openTestDB(t)

	_, _, err := CreateOrder(context.Background(), db, &stubGateway{orderRef: "order-x"}, uuid.New())
	assert.True(t, errs.IsNotFound(err))
}

/* ===================== Capture intake ===================== */

func TestIngestCapture_Fresh(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")

	p, replay, err := IngestCapture(context.Background(), db, captureEvent(inv.FeeInvoiceID, "100", "txn-1"))
	require.NoError(t, err)

	assert.False(t, replay)
	assert.Equal(t, paymentModel.PaymentStatusCaptured, p.PaymentStatus)
	assert.NotNil(t, p.PaymentPaidAt)
	assert.Equal(t, int64(1), paymentCount(t, db, inv.FeeInvoiceID))
}

func TestIngestCapture_DuplicateTxnIsReplay(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")
	ev := captureEvent(inv.FeeInvoiceID, "100", "txn-dup")

	first, replay, err := IngestCapture(context.Background(), db, ev)
	require.NoError(t, err)
	require.False(t, replay)

	second, replay, err := IngestCapture(context.Background(), db, ev)
	require.NoError(t, err)
	assert.True(t, replay)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, int64(1), paymentCount(t, db, inv.FeeInvoiceID))
}

func TestIngestCapture_IdempotencyKeyReplay(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")
	key := "idem-abc"

	ev := captureEvent(inv.FeeInvoiceID, "100", "txn-k1")
	ev.IdempotencyKey = &key
	first, _, err := IngestCapture(context.Background(), db, ev)
	require.NoError(t, err)

	// Same logical event redelivered with a different provider txn id.
	ev2 := captureEvent(inv.FeeInvoiceID, "100", "txn-k2")
	ev2.IdempotencyKey = &key
	second, replay, err := IngestCapture(context.Background(), db, ev2)
	require.NoError(t, err)

	assert.True(t, replay)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, int64(1), paymentCount(t, db, inv.FeeInvoiceID))
}

func TestIngestCapture_PromotesInitiatedOrder(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "500")

	p, _, err := CreateOrder(context.Background(), db, &stubGateway{orderRef: "order-promote"}, inv.FeeInvoiceID)
	require.NoError(t, err)

	ev := captureEvent(inv.FeeInvoiceID, "500", "txn-promoted")
	ev.OrderRef = "order-promote"
	captured, replay, err := IngestCapture(context.Background(), db, ev)
	require.NoError(t, err)

	assert.False(t, replay)
	assert.Equal(t, p.PaymentID, captured.PaymentID, "promotion must reuse the initiated row")
	assert.Equal(t, paymentModel.PaymentStatusCaptured, captured.PaymentStatus)
	assert.Equal(t, int64(1), paymentCount(t, db, inv.FeeInvoiceID))
}

func TestIngestCapture_Validation(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "100")

	ev := captureEvent(inv.FeeInvoiceID, "100", "")
	_, _, err := IngestCapture(context.Background(), db, ev)
	assert.True(t, errs.IsValidation(err), "missing txn id")

	ev = captureEvent(inv.FeeInvoiceID, "0", "txn-zero")
	_, _, err = IngestCapture(context.Background(), db, ev)
	assert.True(t, errs.IsValidation(err), "zero amount")

	ev = captureEvent(inv.FeeInvoiceID, "-5", "txn-neg")
	_, _, err = IngestCapture(context.Background(), db, ev)
	assert.True(t, errs.IsValidation(err), "negative amount")
}
