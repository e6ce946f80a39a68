package inventory

import "github.com/mediadesk/mediadesk-backend/pkg/db/models"

// CreateItemInput captures the fields staff supply for a new catalog entry.
type CreateItemInput struct {
	Name            string
	Description     string
	Quantity        int
	CheckoutEnabled *bool
}

// UpdateItemInput carries partial catalog edits; nil fields are untouched.
type UpdateItemInput struct {
	Name            *string
	Description     *string
	Quantity        *int
	CheckoutEnabled *bool
}

// ItemAvailability pairs a catalog entry with its derived unit counts.
type ItemAvailability struct {
	Item      models.EquipmentItem `json:"item"`
	Active    int                  `json:"active"`
	Available int                  `json:"available"`
}
