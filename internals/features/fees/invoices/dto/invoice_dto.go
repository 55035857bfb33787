package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	assignmentSvc "schoolflow_backend/internals/features/fees/assignments/service"
	"schoolflow_backend/internals/features/fees/invoices/model"
	"schoolflow_backend/internals/features/fees/invoices/service"
)

/* =========================================================
   REQUEST DTOs
========================================================= */

// CreateInvoiceRequest accepts one of three shapes: an assignment id (plan +
// concession come from the assignment), an explicit plan id, or a bare
// amount. Amount on top of a plan is a top-up.
type CreateInvoiceRequest struct {
	FeeInvoiceStudentID uuid.UUID `json:"fee_invoice_student_id" validate:"required"`
	FeeInvoiceNo        string    `json:"fee_invoice_no" validate:"required,max=64"`
	FeeInvoicePeriod    string    `json:"fee_invoice_period" validate:"required,max=64"`
	FeeInvoiceDueDate   time.Time `json:"fee_invoice_due_date" validate:"required"`

	FeeAssignmentID *uuid.UUID       `json:"fee_assignment_id,omitempty"`
	FeePlanID       *uuid.UUID       `json:"fee_plan_id,omitempty"`
	Concession      *decimal.Decimal `json:"concession,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
}

/* =========================================================
   RESPONSE DTOs
========================================================= */

// InvoiceResponse is the one canonical line-item schema the API serves; the
// legacy UI's items/line_items/components guessing game stops here.
type InvoiceResponse struct {
	FeeInvoiceID        uuid.UUID                `json:"fee_invoice_id"`
	FeeInvoiceNo        string                   `json:"fee_invoice_no"`
	FeeInvoiceStudentID uuid.UUID                `json:"fee_invoice_student_id"`
	FeeInvoicePeriod    string                   `json:"fee_invoice_period"`
	FeeInvoiceAmountDue decimal.Decimal          `json:"fee_invoice_amount_due"`
	FeeInvoiceDueDate   time.Time                `json:"fee_invoice_due_date"`
	FeeInvoiceStatus    string                   `json:"fee_invoice_status"`
	FeeInvoiceCreatedAt time.Time                `json:"fee_invoice_created_at"`
	Items               []assignmentSvc.LineItem `json:"items,omitempty"`

	PaidAmount decimal.Decimal `json:"paid_amount"`
	// Exact balance; negative on overpayment.
	Balance decimal.Decimal `json:"balance"`
	// Display-friendly outstanding amount, floored at zero.
	BalanceDisplay decimal.Decimal `json:"balance_display"`
}

func FromModel(m *model.FeeInvoice, bal service.Balance, items []assignmentSvc.LineItem) InvoiceResponse {
	display := bal.Balance
	if display.IsNegative() {
		display = decimal.Zero
	}
	return InvoiceResponse{
		FeeInvoiceID:        m.FeeInvoiceID,
		FeeInvoiceNo:        m.FeeInvoiceNo,
		FeeInvoiceStudentID: m.FeeInvoiceStudentID,
		FeeInvoicePeriod:    m.FeeInvoicePeriod,
		FeeInvoiceAmountDue: m.FeeInvoiceAmountDue,
		FeeInvoiceDueDate:   m.FeeInvoiceDueDate,
		FeeInvoiceStatus:    m.FeeInvoiceStatus,
		FeeInvoiceCreatedAt: m.FeeInvoiceCreatedAt,
		Items:               items,
		PaidAmount:          bal.PaidAmount,
		Balance:             bal.Balance,
		BalanceDisplay:      display,
	}
}
