package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolflow_backend/internals/features/fees/assignments/model"
)

type CreateAssignmentRequest struct {
	FeeAssignmentStudentID  uuid.UUID        `json:"fee_assignment_student_id" validate:"required"`
	FeeAssignmentPlanID     uuid.UUID        `json:"fee_assignment_plan_id" validate:"required"`
	FeeAssignmentConcession *decimal.Decimal `json:"fee_assignment_concession,omitempty"`
	FeeAssignmentNote       *string          `json:"fee_assignment_note,omitempty" validate:"omitempty,max=255"`
}

func (r *CreateAssignmentRequest) ToModel() *model.FeeAssignment {
	concession := decimal.Zero
	if r.FeeAssignmentConcession != nil {
		concession = *r.FeeAssignmentConcession
	}
	return &model.FeeAssignment{
		FeeAssignmentStudentID:  r.FeeAssignmentStudentID,
		FeeAssignmentPlanID:     r.FeeAssignmentPlanID,
		FeeAssignmentConcession: concession,
		FeeAssignmentNote:       r.FeeAssignmentNote,
	}
}

type UpdateAssignmentRequest struct {
	FeeAssignmentConcession *decimal.Decimal `json:"fee_assignment_concession,omitempty"`
	FeeAssignmentNote       *string          `json:"fee_assignment_note,omitempty" validate:"omitempty,max=255"`
}

func (r *UpdateAssignmentRequest) Apply(m *model.FeeAssignment) {
	if r.FeeAssignmentConcession != nil {
		m.FeeAssignmentConcession = *r.FeeAssignmentConcession
	}
	if r.FeeAssignmentNote != nil {
		m.FeeAssignmentNote = r.FeeAssignmentNote
	}
}
