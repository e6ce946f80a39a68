package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediadesk/mediadesk-backend/pkg/enums"
)

// Message is one entry in a reservation's conversation thread. Append-only;
// creation time is the thread order.
type Message struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReservationID uuid.UUID        `gorm:"column:reservation_id;type:uuid;not null;index" json:"reservationId"`
	SenderType    enums.SenderType `gorm:"column:sender_type;type:text;not null" json:"senderType"`
	SenderName    string           `gorm:"column:sender_name;type:text" json:"senderName,omitempty"`
	SenderEmail   string           `gorm:"column:sender_email;type:text" json:"senderEmail,omitempty"`
	Body          string           `gorm:"column:body;type:text;not null" json:"body"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName pins the table regardless of gorm pluralization rules.
func (Message) TableName() string { return "messages" }
