package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
  payment_gateway_events = webhook/callback audit log.
  - Many rows per payment are possible (one per delivery, retries included).
  - Keeps raw headers and payload for debugging and replay.
*/

const (
	GatewayEventStatusReceived  = "received"
	GatewayEventStatusProcessed = "processed"
	GatewayEventStatusFailed    = "failed"
)

type PaymentGatewayEvent struct {
	GatewayEventID uuid.UUID `gorm:"column:gateway_event_id;type:uuid;primaryKey" json:"gateway_event_id"`

	GatewayEventPaymentID *uuid.UUID `gorm:"column:gateway_event_payment_id;type:uuid;index" json:"gateway_event_payment_id,omitempty"`
	GatewayEventInvoiceID *uuid.UUID `gorm:"column:gateway_event_invoice_id;type:uuid;index" json:"gateway_event_invoice_id,omitempty"`

	GatewayEventProvider    string  `gorm:"column:gateway_event_provider;type:varchar(50);not null" json:"gateway_event_provider"`
	GatewayEventType        *string `gorm:"column:gateway_event_type;type:varchar(64)" json:"gateway_event_type,omitempty"`
	GatewayEventExternalID  *string `gorm:"column:gateway_event_external_id;type:varchar(255);index" json:"gateway_event_external_id,omitempty"`
	GatewayEventExternalRef *string `gorm:"column:gateway_event_external_ref;type:varchar(255)" json:"gateway_event_external_ref,omitempty"`

	GatewayEventHeaders   datatypes.JSON `gorm:"column:gateway_event_headers;type:jsonb" json:"gateway_event_headers,omitempty"`
	GatewayEventPayload   datatypes.JSON `gorm:"column:gateway_event_payload;type:jsonb" json:"gateway_event_payload,omitempty"`
	GatewayEventSignature *string        `gorm:"column:gateway_event_signature;type:varchar(255)" json:"gateway_event_signature,omitempty"`

	GatewayEventStatus string  `gorm:"column:gateway_event_status;type:varchar(20);not null;default:'received'" json:"gateway_event_status"`
	GatewayEventError  *string `gorm:"column:gateway_event_error" json:"gateway_event_error,omitempty"`

	GatewayEventReceivedAt  time.Time  `gorm:"column:gateway_event_received_at;not null;autoCreateTime" json:"gateway_event_received_at"`
	GatewayEventProcessedAt *time.Time `gorm:"column:gateway_event_processed_at" json:"gateway_event_processed_at,omitempty"`
}

func (PaymentGatewayEvent) TableName() string { return "payment_gateway_events" }

func (m *PaymentGatewayEvent) BeforeCreate(tx *gorm.DB) error {
	if m.GatewayEventID == uuid.Nil {
		m.GatewayEventID = uuid.New()
	}
	if m.GatewayEventStatus == "" {
		m.GatewayEventStatus = GatewayEventStatusReceived
	}
	return nil
}
