package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeeComponent is static reference data; immutable once priced into a plan.
type FeeComponent struct {
	FeeComponentID          uuid.UUID `gorm:"column:fee_component_id;type:uuid;primaryKey" json:"fee_component_id"`
	FeeComponentName        string    `gorm:"column:fee_component_name;type:varchar(255);not null" json:"fee_component_name"`
	FeeComponentDescription *string   `gorm:"column:fee_component_description;type:varchar(512)" json:"fee_component_description,omitempty"`

	FeeComponentCreatedAt time.Time      `gorm:"column:fee_component_created_at;not null;autoCreateTime" json:"fee_component_created_at"`
	FeeComponentUpdatedAt time.Time      `gorm:"column:fee_component_updated_at;not null;autoUpdateTime" json:"fee_component_updated_at"`
	FeeComponentDeletedAt gorm.DeletedAt `gorm:"column:fee_component_deleted_at;index" json:"-"`
}

func (FeeComponent) TableName() string { return "fee_components" }

func (m *FeeComponent) BeforeCreate(tx *gorm.DB) error {
	if m.FeeComponentID == uuid.Nil {
		m.FeeComponentID = uuid.New()
	}
	return nil
}
