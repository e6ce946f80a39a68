package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/types"
)

type stubInventoryRepo struct {
	items   map[uuid.UUID]*models.EquipmentItem
	active  map[uuid.UUID]int64
	created []*models.EquipmentItem
	deleted []uuid.UUID
}

func newStubInventoryRepo() *stubInventoryRepo {
	return &stubInventoryRepo{
		items:  make(map[uuid.UUID]*models.EquipmentItem),
		active: make(map[uuid.UUID]int64),
	}
}

func (s *stubInventoryRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubInventoryRepo) Create(ctx context.Context, item *models.EquipmentItem) (*models.EquipmentItem, error) {
	s.items[item.ID] = item
	s.created = append(s.created, item)
	return item, nil
}

func (s *stubInventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.EquipmentItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (s *stubInventoryRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.EquipmentItem, error) {
	var out []models.EquipmentItem
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *stubInventoryRepo) List(ctx context.Context) ([]models.EquipmentItem, error) {
	var out []models.EquipmentItem
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *stubInventoryRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	item, ok := s.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := updates["name"].(string); ok {
		item.Name = name
	}
	if qty, ok := updates["quantity"].(int); ok {
		item.Quantity = qty
	}
	if enabled, ok := updates["checkout_enabled"].(bool); ok {
		item.CheckoutEnabled = enabled
	}
	return nil
}

func (s *stubInventoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.items, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubInventoryRepo) CountActive(ctx context.Context, itemID uuid.UUID) (int64, error) {
	return s.active[itemID], nil
}

func (s *stubInventoryRepo) CountActiveByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = s.active[id]
	}
	return out, nil
}

func (s *stubInventoryRepo) TouchLastUsed(ctx context.Context, itemID uuid.UUID, at time.Time) error {
	item, ok := s.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.LastUsedAt = &at
	return nil
}

func (s *stubInventoryRepo) addItem(name string, quantity int, enabled bool) *models.EquipmentItem {
	item := &models.EquipmentItem{
		ID:              uuid.New(),
		Name:            name,
		Quantity:        quantity,
		CheckoutEnabled: enabled,
	}
	s.items[item.ID] = item
	return item
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}

func TestCreateItemValidation(t *testing.T) {
	svc, err := NewService(newStubInventoryRepo())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.CreateItem(context.Background(), CreateItemInput{Name: "  "})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreateItem(context.Background(), CreateItemInput{Name: "Camera", Quantity: -1})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateItemDefaultsEnabled(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	item, err := svc.CreateItem(context.Background(), CreateItemInput{Name: "Camera", Quantity: 3})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if !item.CheckoutEnabled {
		t.Fatal("expected checkout enabled by default")
	}
	if item.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
}

func TestAvailabilityClampsAtZero(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	// quantity lowered after units went out
	item := repo.addItem("Camera", 1, true)
	repo.active[item.ID] = 3

	available, err := svc.Availability(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected availability clamped to 0, got %d", available)
	}
}

func TestAvailabilityUnknownItem(t *testing.T) {
	svc, _ := NewService(newStubInventoryRepo())

	_, err := svc.Availability(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestEnsureReservable(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)
	ctx := context.Background()

	camera := repo.addItem("Camera", 3, true)
	repo.active[camera.ID] = 1

	window := func(days int) (time.Time, time.Time) {
		from := time.Now().UTC()
		return from, from.AddDate(0, 0, days)
	}
	from, to := window(2)

	lines := types.ItemLines{{ItemID: camera.ID, Quantity: 2, FromDate: from, ToDate: to}}
	if err := svc.EnsureReservable(ctx, lines); err != nil {
		t.Fatalf("expected reservable, got %v", err)
	}

	lines = types.ItemLines{{ItemID: camera.ID, Quantity: 3, FromDate: from, ToDate: to}}
	requireCode(t, svc.EnsureReservable(ctx, lines), pkgerrors.CodeConflict)

	lines = types.ItemLines{{ItemID: uuid.New(), Quantity: 1, FromDate: from, ToDate: to}}
	requireCode(t, svc.EnsureReservable(ctx, lines), pkgerrors.CodeNotFound)

	disabled := repo.addItem("Projector", 5, false)
	lines = types.ItemLines{{ItemID: disabled.ID, Quantity: 1, FromDate: from, ToDate: to}}
	requireCode(t, svc.EnsureReservable(ctx, lines), pkgerrors.CodeConflict)

	requireCode(t, svc.EnsureReservable(ctx, nil), pkgerrors.CodeValidation)
}

func TestEnsureReservableSumsLinesPerItem(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	camera := repo.addItem("Camera", 3, true)
	from := time.Now().UTC()
	to := from.AddDate(0, 0, 1)

	// two lines for the same item must be summed before the check
	lines := types.ItemLines{
		{ItemID: camera.ID, Quantity: 2, FromDate: from, ToDate: to},
		{ItemID: camera.ID, Quantity: 2, FromDate: to, ToDate: to.AddDate(0, 0, 1)},
	}
	requireCode(t, svc.EnsureReservable(context.Background(), lines), pkgerrors.CodeConflict)
}
