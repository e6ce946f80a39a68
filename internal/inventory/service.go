package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/types"
)

// UnitClaimer atomically verifies availability for a claim inside the caller's
// transaction. The item row lock is taken before the active count is read, so
// a claimer that waited on the lock counts records committed by the winner.
type UnitClaimer interface {
	Claim(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) error
}

// Service defines catalog operations and availability reads.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.EquipmentItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.EquipmentItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	GetItem(ctx context.Context, id uuid.UUID) (*ItemAvailability, error)
	ListItems(ctx context.Context) ([]ItemAvailability, error)
	Availability(ctx context.Context, itemID uuid.UUID) (int, error)
	EnsureReservable(ctx context.Context, lines types.ItemLines) error
}

type service struct {
	repo Repository
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.EquipmentItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity cannot be negative")
	}

	enabled := true
	if input.CheckoutEnabled != nil {
		enabled = *input.CheckoutEnabled
	}

	item := &models.EquipmentItem{
		ID:              uuid.New(),
		Name:            name,
		Description:     strings.TrimSpace(input.Description),
		Quantity:        input.Quantity,
		CheckoutEnabled: enabled,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create equipment item")
	}
	return created, nil
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.EquipmentItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity cannot be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.CheckoutEnabled != nil {
		updates["checkout_enabled"] = *input.CheckoutEnabled
	}

	if _, err := s.mustFind(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update equipment item")
		}
	}
	return s.mustFind(ctx, id)
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if _, err := s.mustFind(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete equipment item")
	}
	return nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*ItemAvailability, error) {
	item, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountActive(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active checkouts")
	}
	return &ItemAvailability{
		Item:      *item,
		Active:    int(active),
		Available: availableUnits(item.Quantity, active),
	}, nil
}

func (s *service) ListItems(ctx context.Context) ([]ItemAvailability, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list equipment items")
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	counts, err := s.repo.CountActiveByItem(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active checkouts")
	}

	out := make([]ItemAvailability, 0, len(items))
	for _, item := range items {
		active := counts[item.ID]
		out = append(out, ItemAvailability{
			Item:      item,
			Active:    int(active),
			Available: availableUnits(item.Quantity, active),
		})
	}
	return out, nil
}

func (s *service) Availability(ctx context.Context, itemID uuid.UUID) (int, error) {
	item, err := s.mustFind(ctx, itemID)
	if err != nil {
		return 0, err
	}
	active, err := s.repo.CountActive(ctx, itemID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active checkouts")
	}
	return availableUnits(item.Quantity, active), nil
}

// EnsureReservable verifies every requested line against the current catalog:
// the item must exist, be enabled for checkout, and have enough free units for
// the requested quantity. This is the advisory pre-check; the transactional
// claim re-verifies under the row lock.
func (s *service) EnsureReservable(ctx context.Context, lines types.ItemLines) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item line required")
	}

	wanted := lines.QuantityByItem()
	ids := make([]uuid.UUID, 0, len(wanted))
	for id, qty := range wanted {
		if qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		ids = append(ids, id)
	}

	items, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment items")
	}
	byID := make(map[uuid.UUID]models.EquipmentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	counts, err := s.repo.CountActiveByItem(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active checkouts")
	}

	for id, qty := range wanted {
		item, ok := byID[id]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "equipment item not found")
		}
		if !item.CheckoutEnabled {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("item %q is not available for checkout", item.Name))
		}
		if availableUnits(item.Quantity, counts[id]) < qty {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("not enough units of %q available", item.Name))
		}
	}
	return nil
}

func (s *service) mustFind(ctx context.Context, id uuid.UUID) (*models.EquipmentItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment item")
	}
	return item, nil
}

func availableUnits(quantity int, active int64) int {
	available := quantity - int(active)
	if available < 0 {
		return 0
	}
	return available
}

type unitClaimerImpl struct{}

// NewUnitClaimer exposes the default transactional claim implementation.
func NewUnitClaimer() UnitClaimer {
	return unitClaimerImpl{}
}

func (unitClaimerImpl) Claim(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "claim quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for unit claim")
	}

	// Locking via a plain row update keeps the statement valid on sqlite in
	// tests. Guarding availability inside this statement would not be safe:
	// under read committed a claimer resuming after a lock wait re-checks the
	// WHERE clause against its original snapshot, which cannot see the
	// winner's committed checkout records. The count below runs as a fresh
	// statement under the lock and does.
	lock := tx.WithContext(ctx).Exec(`
		UPDATE equipment_items
		SET updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		  AND checkout_enabled = ?
	`, itemID, true)
	if lock.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, lock.Error, "lock equipment item")
	}
	if lock.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "item is not available for checkout")
	}

	var available int
	count := tx.WithContext(ctx).Raw(`
		SELECT quantity - (
			SELECT COUNT(*) FROM checkout_records
			WHERE checkout_records.item_id = equipment_items.id
			  AND checkout_records.status = 'checked_out'
		)
		FROM equipment_items
		WHERE id = ?
	`, itemID).Scan(&available)
	if count.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, count.Error, "count active checkouts")
	}
	if available < qty {
		return pkgerrors.New(pkgerrors.CodeConflict, "not enough units available")
	}
	return nil
}
