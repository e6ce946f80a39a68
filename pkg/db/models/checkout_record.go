package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediadesk/mediadesk-backend/pkg/enums"
)

// CheckoutRecord is one physical unit of one item on loan for one window.
// ReservationID is a real foreign key; the free-text provenance column is
// display metadata only and never used for matching.
type CheckoutRecord struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID        uuid.UUID            `gorm:"column:item_id;type:uuid;not null;index" json:"itemId"`
	ReservationID *uuid.UUID           `gorm:"column:reservation_id;type:uuid;index" json:"reservationId,omitempty"`
	Status        enums.CheckoutStatus `gorm:"column:status;type:text;not null;default:'checked_out'" json:"status"`
	FromDate      time.Time            `gorm:"column:from_date;not null" json:"fromDate"`
	DueDate       time.Time            `gorm:"column:due_date;not null" json:"dueDate"`
	CheckedOutAt  time.Time            `gorm:"column:checked_out_at;not null" json:"checkedOutAt"`
	ReturnedAt    *time.Time           `gorm:"column:returned_at" json:"returnedAt,omitempty"`
	Provenance    string               `gorm:"column:provenance;type:text" json:"provenance,omitempty"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`

	Item *EquipmentItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// TableName pins the table regardless of gorm pluralization rules.
func (CheckoutRecord) TableName() string { return "checkout_records" }

// IsActive reports whether the unit is still out.
func (c CheckoutRecord) IsActive() bool {
	return c.Status == enums.CheckoutStatusCheckedOut
}
