package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeeAssignment links a student to a fee plan, with an optional flat
// concession applied at invoice-generation time. The invoice back-reference is
// set once an invoice has been generated from the assignment; after that the
// assignment can no longer be deleted.
type FeeAssignment struct {
	FeeAssignmentID uuid.UUID `gorm:"column:fee_assignment_id;type:uuid;primaryKey" json:"fee_assignment_id"`

	FeeAssignmentStudentID uuid.UUID `gorm:"column:fee_assignment_student_id;type:uuid;not null;index" json:"fee_assignment_student_id"`
	FeeAssignmentPlanID    uuid.UUID `gorm:"column:fee_assignment_plan_id;type:uuid;not null;index" json:"fee_assignment_plan_id"`

	FeeAssignmentConcession decimal.Decimal `gorm:"column:fee_assignment_concession;type:numeric(10,2);not null;default:0" json:"fee_assignment_concession"`
	FeeAssignmentNote       *string         `gorm:"column:fee_assignment_note;type:varchar(255)" json:"fee_assignment_note,omitempty"`

	// Back-reference, set after invoice generation (weak link, not ownership).
	FeeAssignmentInvoiceID *uuid.UUID `gorm:"column:fee_assignment_invoice_id;type:uuid;index" json:"fee_assignment_invoice_id,omitempty"`

	FeeAssignmentCreatedAt time.Time      `gorm:"column:fee_assignment_created_at;not null;autoCreateTime" json:"fee_assignment_created_at"`
	FeeAssignmentUpdatedAt time.Time      `gorm:"column:fee_assignment_updated_at;not null;autoUpdateTime" json:"fee_assignment_updated_at"`
	FeeAssignmentDeletedAt gorm.DeletedAt `gorm:"column:fee_assignment_deleted_at;index" json:"-"`
}

func (FeeAssignment) TableName() string { return "fee_assignments" }

func (m *FeeAssignment) BeforeCreate(tx *gorm.DB) error {
	if m.FeeAssignmentID == uuid.Nil {
		m.FeeAssignmentID = uuid.New()
	}
	return nil
}

func (m *FeeAssignment) IsConsumed() bool {
	return m.FeeAssignmentInvoiceID != nil
}
