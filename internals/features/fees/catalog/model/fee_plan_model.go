package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- ENUM fee_plan_frequency -------------------------------------------------

const (
	FeePlanFrequencyMonthly = "monthly"
	FeePlanFrequencyTermly  = "termly"
	FeePlanFrequencyYearly  = "yearly"
)

// FeePlan is a named bundle of priced components for an academic year.
// Logically immutable once any invoice has been generated from it; amendments
// are modeled as a new plan row, never an in-place edit.
type FeePlan struct {
	FeePlanID           uuid.UUID `gorm:"column:fee_plan_id;type:uuid;primaryKey" json:"fee_plan_id"`
	FeePlanName         string    `gorm:"column:fee_plan_name;type:varchar(255);not null" json:"fee_plan_name"`
	FeePlanAcademicYear string    `gorm:"column:fee_plan_academic_year;type:varchar(20);not null" json:"fee_plan_academic_year"`
	FeePlanFrequency    string    `gorm:"column:fee_plan_frequency;type:varchar(20);not null" json:"fee_plan_frequency"`

	FeePlanCreatedAt time.Time      `gorm:"column:fee_plan_created_at;not null;autoCreateTime" json:"fee_plan_created_at"`
	FeePlanUpdatedAt time.Time      `gorm:"column:fee_plan_updated_at;not null;autoUpdateTime" json:"fee_plan_updated_at"`
	FeePlanDeletedAt gorm.DeletedAt `gorm:"column:fee_plan_deleted_at;index" json:"-"`
}

func (FeePlan) TableName() string { return "fee_plans" }

func (m *FeePlan) BeforeCreate(tx *gorm.DB) error {
	if m.FeePlanID == uuid.Nil {
		m.FeePlanID = uuid.New()
	}
	return nil
}
