package models

import (
	"time"

	"github.com/google/uuid"
)

// EquipmentItem is one catalog entry with a bounded number of physical units.
type EquipmentItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string     `gorm:"column:name;type:text;not null" json:"name"`
	Description     string     `gorm:"column:description;type:text" json:"description,omitempty"`
	Quantity        int        `gorm:"column:quantity;not null;default:0" json:"quantity"`
	CheckoutEnabled bool       `gorm:"column:checkout_enabled;not null;default:true" json:"checkoutEnabled"`
	LastUsedAt      *time.Time `gorm:"column:last_used_at" json:"lastUsedAt,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName pins the table regardless of gorm pluralization rules.
func (EquipmentItem) TableName() string { return "equipment_items" }
