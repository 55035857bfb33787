package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeePlanComponent is one priced line of a plan. The (plan, component) pair is
// unique: a component may appear in a plan at most once.
type FeePlanComponent struct {
	FeePlanComponentID uuid.UUID `gorm:"column:fee_plan_component_id;type:uuid;primaryKey" json:"fee_plan_component_id"`

	FeePlanComponentPlanID      uuid.UUID `gorm:"column:fee_plan_component_plan_id;type:uuid;not null;uniqueIndex:uq_plan_component,priority:1" json:"fee_plan_component_plan_id"`
	FeePlanComponentComponentID uuid.UUID `gorm:"column:fee_plan_component_component_id;type:uuid;not null;uniqueIndex:uq_plan_component,priority:2" json:"fee_plan_component_component_id"`

	FeePlanComponentAmount decimal.Decimal `gorm:"column:fee_plan_component_amount;type:numeric(10,2);not null" json:"fee_plan_component_amount"`

	FeePlanComponentCreatedAt time.Time `gorm:"column:fee_plan_component_created_at;not null;autoCreateTime" json:"fee_plan_component_created_at"`
	FeePlanComponentUpdatedAt time.Time `gorm:"column:fee_plan_component_updated_at;not null;autoUpdateTime" json:"fee_plan_component_updated_at"`
}

func (FeePlanComponent) TableName() string { return "fee_plan_components" }

func (m *FeePlanComponent) BeforeCreate(tx *gorm.DB) error {
	if m.FeePlanComponentID == uuid.Nil {
		m.FeePlanComponentID = uuid.New()
	}
	return nil
}
