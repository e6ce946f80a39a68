package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	"github.com/mediadesk/mediadesk-backend/pkg/types"
)

// Reservation is a requester's batch ask for equipment over date windows,
// plus the triage/milestone state staff drive it through.
type Reservation struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterName  string                  `gorm:"column:requester_name;type:text;not null" json:"requesterName"`
	RequesterEmail string                  `gorm:"column:requester_email;type:text;not null;index" json:"requesterEmail"`
	RequesterPhone string                  `gorm:"column:requester_phone;type:text" json:"requesterPhone,omitempty"`
	Purpose        string                  `gorm:"column:purpose;type:text" json:"purpose,omitempty"`
	ItemLines      types.ItemLines         `gorm:"column:item_lines;type:jsonb;serializer:json" json:"itemLines"`
	Status         enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'unseen'" json:"status"`

	ApprovedBy *string    `gorm:"column:approved_by;type:text" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approvedAt,omitempty"`

	ReadyForPickup bool    `gorm:"column:ready_for_pickup;not null;default:false" json:"readyForPickup"`
	PickupDate     *string `gorm:"column:pickup_date;type:text" json:"pickupDate,omitempty"`
	PickupTime     *string `gorm:"column:pickup_time;type:text" json:"pickupTime,omitempty"`
	PickupLocation *string `gorm:"column:pickup_location;type:text" json:"pickupLocation,omitempty"`

	PickedUp   bool       `gorm:"column:picked_up;not null;default:false" json:"pickedUp"`
	PickedUpAt *time.Time `gorm:"column:picked_up_at" json:"pickedUpAt,omitempty"`

	MessagesLastViewedAt *time.Time `gorm:"column:messages_last_viewed_at" json:"messagesLastViewedAt,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Messages []Message        `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	Records  []CheckoutRecord `gorm:"foreignKey:ReservationID;constraint:OnDelete:SET NULL" json:"records,omitempty"`
}

// TableName pins the table regardless of gorm pluralization rules.
func (Reservation) TableName() string { return "reservations" }

// Fulfilled reports whether either fulfillment milestone has been reached.
func (r Reservation) Fulfilled() bool {
	return r.ReadyForPickup || r.PickedUp
}
