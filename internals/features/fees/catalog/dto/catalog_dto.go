package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolflow_backend/internals/features/fees/catalog/model"
)

/* =========================================================
   REQUEST DTOs
========================================================= */

type CreateFeeComponentRequest struct {
	FeeComponentName        string  `json:"fee_component_name" validate:"required,max=255"`
	FeeComponentDescription *string `json:"fee_component_description,omitempty" validate:"omitempty,max=512"`
}

func (r *CreateFeeComponentRequest) ToModel() *model.FeeComponent {
	return &model.FeeComponent{
		FeeComponentName:        r.FeeComponentName,
		FeeComponentDescription: r.FeeComponentDescription,
	}
}

type CreateFeePlanRequest struct {
	FeePlanName         string `json:"fee_plan_name" validate:"required,max=255"`
	FeePlanAcademicYear string `json:"fee_plan_academic_year" validate:"required,max=20"`
	FeePlanFrequency    string `json:"fee_plan_frequency" validate:"required,oneof=monthly termly yearly"`
}

func (r *CreateFeePlanRequest) ToModel() *model.FeePlan {
	return &model.FeePlan{
		FeePlanName:         r.FeePlanName,
		FeePlanAcademicYear: r.FeePlanAcademicYear,
		FeePlanFrequency:    r.FeePlanFrequency,
	}
}

type AddPlanComponentRequest struct {
	FeePlanComponentComponentID uuid.UUID       `json:"fee_plan_component_component_id" validate:"required"`
	FeePlanComponentAmount      decimal.Decimal `json:"fee_plan_component_amount" validate:"required"`
}

/* =========================================================
   RESPONSE DTOs
========================================================= */

type FeePlanResponse struct {
	FeePlanID           uuid.UUID                `json:"fee_plan_id"`
	FeePlanName         string                   `json:"fee_plan_name"`
	FeePlanAcademicYear string                   `json:"fee_plan_academic_year"`
	FeePlanFrequency    string                   `json:"fee_plan_frequency"`
	FeePlanCreatedAt    time.Time                `json:"fee_plan_created_at"`
	Components          []model.FeePlanComponent `json:"components,omitempty"`
}

func FromPlanModel(m *model.FeePlan, components []model.FeePlanComponent) FeePlanResponse {
	return FeePlanResponse{
		FeePlanID:           m.FeePlanID,
		FeePlanName:         m.FeePlanName,
		FeePlanAcademicYear: m.FeePlanAcademicYear,
		FeePlanFrequency:    m.FeePlanFrequency,
		FeePlanCreatedAt:    m.FeePlanCreatedAt,
		Components:          components,
	}
}
