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

	catalogModel "schoolflow_backend/internals/features/fees/catalog/model"
	"schoolflow_backend/internals/features/fees/invoices/model"
	paymentModel "schoolflow_backend/internals/features/fees/payments/model"
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
		&catalogModel.FeeComponent{},
		&catalogModel.FeePlan{},
		&catalogModel.FeePlanComponent{},
		&model.FeeInvoice{},
		&paymentModel.Payment{},
	))
	return db
}

func seedPlan(t *testing.T, db *gorm.DB, amounts ...string) uuid.UUID {
	t.Helper()
	plan := catalogModel.FeePlan{
		FeePlanName:         "Plan " + t.Name(),
		FeePlanAcademicYear: "2026-27",
		FeePlanFrequency:    catalogModel.FeePlanFrequencyMonthly,
	}
	require.NoError(t, db.Create(&plan).Error)
	for i, a := range amounts {
		comp := catalogModel.FeeComponent{FeeComponentName: "Component " + a}
		require.NoError(t, db.Create(&comp).Error)
		amount, err := decimal.NewFromString(a)
		require.NoError(t, err)
		require.NoError(t, db.Create(&catalogModel.FeePlanComponent{
			FeePlanComponentPlanID:      plan.FeePlanID,
			FeePlanComponentComponentID: comp.FeeComponentID,
			FeePlanComponentAmount:      amount,
			FeePlanComponentCreatedAt:   time.Date(2026, 4, 1, 9, 0, i, 0, time.UTC),
		}).Error)
	}
	return plan.FeePlanID
}

func mustInvoice(t *testing.T, db *gorm.DB, in CreateInvoiceInput) *model.FeeInvoice {
	t.Helper()
	inv, err := CreateInvoice(context.Background(), db, in)
	require.NoError(t, err)
	return inv
}

func addCaptured(t *testing.T, db *gorm.DB, invoiceID uuid.UUID, amount string) {
	t.Helper()
	a, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	txn := uuid.New().String()
	now := time.Now()
	require.NoError(t, db.Create(&paymentModel.Payment{
		PaymentInvoiceID:     invoiceID,
		PaymentProvider:      paymentModel.PaymentProviderManual,
		PaymentProviderTxnID: &txn,
		PaymentAmount:        a,
		PaymentStatus:        paymentModel.PaymentStatusCaptured,
		PaymentPaidAt:        &now,
	}).Error)
}

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

/* ===================== Creation ===================== */

func TestCreateInvoice_FromPlan(t *testing.T) {
	db := openTestDB(t)
	planID := seedPlan(t, db, "1200", "300", "150")

	inv := mustInvoice(t, db, CreateInvoiceInput{
		StudentID: uuid.New(),
		InvoiceNo: "INV-2026-0001",
		Period:    "2026-04",
		DueDate:   time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		FeePlanID: &planID,
	})

	assert.True(t, inv.FeeInvoiceAmountDue.Equal(decimal.NewFromInt(1650)),
		"amount_due = %s", inv.FeeInvoiceAmountDue)
	assert.Equal(t, model.InvoiceStatusPending, inv.FeeInvoiceStatus)
}

func TestCreateInvoice_TopUpOnPlanTotal(t *testing.T) {
	db := openTestDB(t)
	planID := seedPlan(t, db, "1000")

	inv := mustInvoice(t, db, CreateInvoiceInput{
		StudentID: uuid.New(),
		InvoiceNo: "INV-2026-0002",
		Period:    "2026-04",
		DueDate:   time.Now(),
		FeePlanID: &planID,
		Amount:    amt("250"),
	})
	assert.True(t, inv.FeeInvoiceAmountDue.Equal(decimal.NewFromInt(1250)))
}

func TestCreateInvoice_ExplicitAmountOnly(t *testing.T) {
	db := openTestDB(t)

	inv := mustInvoice(t, db, CreateInvoiceInput{
		StudentID: uuid.New(),
		InvoiceNo: "INV-2026-0003",
		Period:    "2026-04",
		DueDate:   time.Now(),
		Amount:    amt("5000"),
	})
	assert.True(t, inv.FeeInvoiceAmountDue.Equal(decimal.NewFromInt(5000)))
}

func TestCreateInvoice_Validation(t *testing.T) {
	db := openTestDB(t)

	_, err := CreateInvoice(context.Background(), db, CreateInvoiceInput{
		StudentID: uuid.New(),
		Period:    "2026-04",
		Amount:    amt("100"),
	})
	assert.True(t, errs.IsValidation(err), "missing invoice_no")

	_, err = CreateInvoice(context.Background(), db, CreateInvoiceInput{
		StudentID: uuid.New(),
		InvoiceNo: "INV-X",
		Amount:    amt("100"),
	})
	assert.True(t, errs.IsValidation(err), "missing period")

	_, err = CreateInvoice(context.Background(), db, CreateInvoiceInput{
		StudentID: uuid.New(),
		InvoiceNo: "INV-X",
		Period:    "2026-04",
	})
	assert.True(t, errs.IsValidation(err), "neither plan nor amount")

	_, err = CreateInvoice(context.Background(), db, CreateInvoiceInput{
		StudentID: uuid.New(),
		InvoiceNo: "INV-X",
		Period:    "2026-04",
		Amount:    amt("-1"),
	})
	assert.True(t, errs.IsValidation(err), "negative amount")
}

func TestCreateInvoice_DuplicateInvoiceNo(t *testing.T) {
	db := openTestDB(t)
	mustInvoice(t, db, CreateInvoiceInput{
		StudentID: uuid.New(), InvoiceNo: "INV-DUP", Period: "2026-04",
		DueDate: time.Now(), Amount: amt("100"),
	})

	_, err := CreateInvoice(context.Background(), db, CreateInvoiceInput{
		StudentID: uuid.New(), InvoiceNo: "INV-DUP", Period: "2026-05",
		DueDate: time.Now(), Amount: amt("100"),
	})
	assert.True(t, errs.IsConflict(err))
}

func TestCreateInvoice_DuplicateStudentPeriod(t *testing.T) {
	db := openTestDB(t)
	studentID := uuid.New()
	mustInvoice(t, db, CreateInvoiceInput{
		StudentID: studentID, InvoiceNo: "INV-A", Period: "2026-04",
		DueDate: time.Now(), Amount: amt("100"),
	})

	_, err := CreateInvoice(context.Background(), db, CreateInvoiceInput{
		StudentID: studentID, InvoiceNo: "INV-B", Period: "2026-04",
		DueDate: time.Now(), Amount: amt("100"),
	})
	assert.True(t, errs.IsConflict(err), "one invoice per student per period")
}

/* ===================== Balance & status ===================== */

func TestLedger_PartialThenPaid(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := mustInvoice(t, db, CreateInvoiceInput{
		StudentID: uuid.New(), InvoiceNo: "INV-5000", Period: "2026-04",
		DueDate: time.Now(), Amount: amt("5000"),
	})

	addCaptured(t, db, inv.FeeInvoiceID, "2000")
	status, err := ApplyCapturedPayment(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPartial, status)

	bal, err := ComputeBalance(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	assert.True(t, bal.PaidAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(3000)))

	addCaptured(t, db, inv.FeeInvoiceID, "3000")
	status, err = ApplyCapturedPayment(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, status)

	bal, err = ComputeBalance(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.IsZero())
	assert.Equal(t, model.InvoiceStatusPaid, bal.Status)
}

func TestLedger_StatusNeverRegressesFromPaid(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := mustInvoice(t, db, CreateInvoiceInput{
		StudentID: uuid.New(), InvoiceNo: "INV-MONO", Period: "2026-04",
		DueDate: time.Now(), Amount: amt("100"),
	})

	addCaptured(t, db, inv.FeeInvoiceID, "100")
	status, err := ApplyCapturedPayment(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	require.Equal(t, model.InvoiceStatusPaid, status)

	// Even if a captured row disappears out-of-band, the status holds.
	require.NoError(t, db.Exec(
		"DELETE FROM payments WHERE payment_invoice_id = ?", inv.FeeInvoiceID).Error)
	status, err = ApplyCapturedPayment(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, status)
}

func TestLedger_OverpaymentSurfacesNegativeBalance(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := mustInvoice(t, db, CreateInvoiceInput{
		StudentID: uuid.New(), InvoiceNo: "INV-OVER", Period: "2026-04",
		DueDate: time.Now(), Amount: amt("100"),
	})

	addCaptured(t, db, inv.FeeInvoiceID, "150")
	status, err := ApplyCapturedPayment(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, status)

	bal, err := ComputeBalance(ctx, db, inv.FeeInvoiceID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(-50)), "balance = %s", bal.Balance)
}

func TestComputeBalance_UnknownInvoice(t *testing.T) {
	db := openTestDB(t)

	_, err := ComputeBalance(context.Background(), db, uuid.New())
	assert.True(t, errs.IsNotFound(err))
}
