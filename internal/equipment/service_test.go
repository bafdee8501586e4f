package equipment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skiffworks/sailing-campaign/backend/internal/repository"
	"pgregory.net/rapid"
)

// mockEquipmentRepository implements repository.EquipmentRepository for testing
type mockEquipmentRepository struct {
	items       map[uuid.UUID]*repository.Equipment
	createCalls int
}

func newMockEquipmentRepository() *mockEquipmentRepository {
	return &mockEquipmentRepository{items: make(map[uuid.UUID]*repository.Equipment)}
}

func (m *mockEquipmentRepository) Create(ctx context.Context, e *repository.Equipment) error {
	m.createCalls++
	e.ID = uuid.New()
	e.Active = true
	e.Wear = 0
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	m.items[e.ID] = e
	return nil
}

func (m *mockEquipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*repository.Equipment, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, repository.ErrEquipmentNotFound
	}
	return e, nil
}

func (m *mockEquipmentRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*repository.Equipment, error) {
	var out []*repository.Equipment
	for _, e := range m.items {
		if e.OwnerID != ownerID {
			continue
		}
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEquipmentRepository) Update(ctx context.Context, e *repository.Equipment) error {
	if _, ok := m.items[e.ID]; !ok {
		return repository.ErrEquipmentNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	m.items[e.ID] = e
	return nil
}

func (m *mockEquipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return repository.ErrEquipmentNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockEquipmentRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	e, ok := m.items[id]
	if !ok {
		return repository.ErrEquipmentNotFound
	}
	e.Active = active
	return nil
}

func newTestService() (*Service, *mockEquipmentRepository) {
	repo := newMockEquipmentRepository()
	return NewService(repo, nil, nil), repo
}

func validCreateRequest() CreateEquipmentRequest {
	return CreateEquipmentRequest{
		Name:         "Main 1",
		Type:         repository.TypeMainsail,
		Manufacturer: "North Sails",
		Model:        "M-49",
	}
}

func TestCreateEquipment(t *testing.T) {
	svc, _ := newTestService()
	ownerID := uuid.New()

	resp, fieldErrs, err := svc.Create(context.Background(), ownerID, validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v (%v)", err, fieldErrs)
	}
	if !resp.Active {
		t.Error("new equipment should be active")
	}
	if resp.Wear != 0 {
		t.Errorf("new equipment should have zero wear, got %v", resp.Wear)
	}
	if resp.OwnerID != ownerID.String() {
		t.Errorf("owner mismatch: %s", resp.OwnerID)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateEquipmentRequest)
		message string
	}{
		{
			name:    "empty name",
			mutate:  func(r *CreateEquipmentRequest) { r.Name = "  " },
			message: "Equipment name cannot be empty",
		},
		{
			name:    "unknown type",
			mutate:  func(r *CreateEquipmentRequest) { r.Type = "Anchor" },
			message: "Equipment type must be one of: Mainsail, Jib, Gennaker, Mast, Boom, Rudder, Centerboard, Other",
		},
		{
			name:    "bad purchase date",
			mutate:  func(r *CreateEquipmentRequest) { d := "15-03-2026"; r.PurchaseDate = &d },
			message: "Purchase date must be in YYYY-MM-DD format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			req := validCreateRequest()
			tt.mutate(&req)

			_, fieldErrs, err := svc.Create(context.Background(), uuid.New(), req)
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("expected ErrValidationFailed, got %v", err)
			}
			if repo.createCalls != 0 {
				t.Error("repository should not be called when validation fails")
			}

			found := false
			for _, fe := range fieldErrs {
				if fe.Message == tt.message {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %q, got %v", tt.message, fieldErrs)
			}
		})
	}
}

func TestGetHidesOtherOwnersGear(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()

	resp, _, err := svc.Create(context.Background(), owner, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	equipmentID := uuid.MustParse(resp.ID)

	if _, err := svc.Get(context.Background(), equipmentID, uuid.New()); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("expected ErrEquipmentNotFound for non-owner, got %v", err)
	}
	if _, err := svc.Get(context.Background(), equipmentID, owner); err != nil {
		t.Fatalf("owner should see the gear: %v", err)
	}
}

func TestRetireAndReactivate(t *testing.T) {
	svc, repo := newTestService()
	ownerID := uuid.New()

	resp, _, err := svc.Create(context.Background(), ownerID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	equipmentID := uuid.MustParse(resp.ID)
	repo.items[equipmentID].Wear = 42.5

	retired, err := svc.Retire(context.Background(), equipmentID, ownerID)
	if err != nil {
		t.Fatalf("retire failed: %v", err)
	}
	if retired.Active {
		t.Error("retired equipment should be inactive")
	}
	if retired.Wear != 42.5 {
		t.Errorf("retire must not touch wear: got %v", retired.Wear)
	}

	reactivated, err := svc.Reactivate(context.Background(), equipmentID, ownerID)
	if err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if !reactivated.Active {
		t.Error("reactivated equipment should be active")
	}
	if reactivated.Wear != 42.5 {
		t.Errorf("reactivate must not touch wear: got %v", reactivated.Wear)
	}
}

func TestUpdateDoesNotTouchActiveOrWear(t *testing.T) {
	svc, repo := newTestService()
	ownerID := uuid.New()

	resp, _, err := svc.Create(context.Background(), ownerID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	equipmentID := uuid.MustParse(resp.ID)
	repo.items[equipmentID].Wear = 10
	repo.items[equipmentID].Active = false

	name := "Main 1 recut"
	updated, _, err := svc.Update(context.Background(), equipmentID, ownerID, UpdateEquipmentRequest{Name: &name})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != name {
		t.Errorf("name not updated: %s", updated.Name)
	}
	if updated.Wear != 10 || updated.Active {
		t.Errorf("update must not touch wear or active: wear=%v active=%v", updated.Wear, updated.Active)
	}
}

func TestListActiveOnly(t *testing.T) {
	svc, _ := newTestService()
	ownerID := uuid.New()

	active, _, err := svc.Create(context.Background(), ownerID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	req := validCreateRequest()
	req.Name = "Old jib"
	req.Type = repository.TypeJib
	retired, _, err := svc.Create(context.Background(), ownerID, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Retire(context.Background(), uuid.MustParse(retired.ID), ownerID); err != nil {
		t.Fatalf("retire failed: %v", err)
	}

	items, err := svc.List(context.Background(), ownerID, true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != active.ID {
		t.Errorf("active-only list should contain just the active item, got %d items", len(items))
	}

	all, err := svc.List(context.Background(), ownerID, false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("full list should contain both items, got %d", len(all))
	}
}

func TestStatistics(t *testing.T) {
	svc, repo := newTestService()
	ownerID := uuid.New()

	type gear struct {
		name     string
		gearType string
		date     string
		wear     float64
		active   bool
	}
	fixtures := []gear{
		{"Main 1", repository.TypeMainsail, "2022-01-10", 320, true},
		{"Main 2", repository.TypeMainsail, "2025-06-01", 40, true},
		{"Jib 1", repository.TypeJib, "2023-03-15", 510, false},
	}

	for _, g := range fixtures {
		req := CreateEquipmentRequest{
			Name:         g.name,
			Type:         g.gearType,
			Manufacturer: "North Sails",
			Model:        "X",
			PurchaseDate: &g.date,
		}
		resp, _, err := svc.Create(context.Background(), ownerID, req)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		id := uuid.MustParse(resp.ID)
		repo.items[id].Wear = g.wear
		repo.items[id].Active = g.active
	}

	stats, err := svc.Statistics(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}

	if stats.TotalEquipment != 3 || stats.ActiveEquipment != 2 || stats.RetiredEquipment != 1 {
		t.Errorf("counts wrong: %+v", stats)
	}
	if stats.EquipmentByType[repository.TypeMainsail] != 2 || stats.EquipmentByType[repository.TypeJib] != 1 {
		t.Errorf("by-type counts wrong: %v", stats.EquipmentByType)
	}
	if stats.OldestEquipment == nil || *stats.OldestEquipment != "Main 1" {
		t.Errorf("oldest wrong: %v", stats.OldestEquipment)
	}
	if stats.NewestEquipment == nil || *stats.NewestEquipment != "Main 2" {
		t.Errorf("newest wrong: %v", stats.NewestEquipment)
	}
	if stats.MostWornEquipment == nil || *stats.MostWornEquipment != "Jib 1" {
		t.Errorf("most worn wrong: %v", stats.MostWornEquipment)
	}
}

func TestStatisticsEmpty(t *testing.T) {
	svc, _ := newTestService()

	stats, err := svc.Statistics(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.TotalEquipment != 0 {
		t.Errorf("expected zero equipment, got %d", stats.TotalEquipment)
	}
	if stats.OldestEquipment != nil || stats.NewestEquipment != nil || stats.MostWornEquipment != nil {
		t.Errorf("name fields should be nil when there is no gear: %+v", stats)
	}
}

func TestNeedsReplacementThreshold(t *testing.T) {
	svc, repo := newTestService()
	ownerID := uuid.New()

	resp, _, err := svc.Create(context.Background(), ownerID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := uuid.MustParse(resp.ID)

	repo.items[id].Wear = 500
	got, err := svc.Get(context.Background(), id, ownerID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.NeedsReplacement {
		t.Error("wear at exactly 500 should not flag replacement")
	}

	repo.items[id].Wear = 500.1
	got, err = svc.Get(context.Background(), id, ownerID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.NeedsReplacement {
		t.Error("wear above 500 should flag replacement")
	}
}

func TestIsOldThreshold(t *testing.T) {
	svc, repo := newTestService()
	ownerID := uuid.New()

	resp, _, err := svc.Create(context.Background(), ownerID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := uuid.MustParse(resp.ID)

	recent := time.Now().AddDate(0, 0, -100)
	repo.items[id].PurchaseDate = &recent
	got, err := svc.Get(context.Background(), id, ownerID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.IsOld {
		t.Error("100 day old gear should not be flagged old")
	}

	ancient := time.Now().AddDate(0, 0, -800)
	repo.items[id].PurchaseDate = &ancient
	got, err = svc.Get(context.Background(), id, ownerID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.IsOld {
		t.Error("800 day old gear should be flagged old")
	}
}

// Property: statistics are derived, so repeated calls over unchanged gear
// return identical figures
func TestPropertyStatisticsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, repo := newTestService()
		ownerID := uuid.New()

		n := rapid.IntRange(0, 10).Draw(t, "n")
		for i := 0; i < n; i++ {
			req := validCreateRequest()
			req.Name = fmt.Sprintf("Gear %d", i)
			req.Type = rapid.SampledFrom(repository.EquipmentTypes).Draw(t, fmt.Sprintf("type%d", i))
			resp, _, err := svc.Create(context.Background(), ownerID, req)
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			id := uuid.MustParse(resp.ID)
			repo.items[id].Wear = rapid.Float64Range(0, 600).Draw(t, fmt.Sprintf("wear%d", i))
			repo.items[id].Active = rapid.Bool().Draw(t, fmt.Sprintf("active%d", i))
		}

		first, err := svc.Statistics(context.Background(), ownerID)
		if err != nil {
			t.Fatalf("statistics failed: %v", err)
		}
		second, err := svc.Statistics(context.Background(), ownerID)
		if err != nil {
			t.Fatalf("statistics failed: %v", err)
		}

		if first.TotalEquipment != second.TotalEquipment ||
			first.ActiveEquipment != second.ActiveEquipment ||
			first.RetiredEquipment != second.RetiredEquipment {
			t.Fatalf("statistics not stable: %+v vs %+v", first, second)
		}
		for gearType, count := range first.EquipmentByType {
			if second.EquipmentByType[gearType] != count {
				t.Fatalf("by-type counts not stable for %s", gearType)
			}
		}
	})
}

// Property: retire then reactivate restores the original state with wear intact
func TestPropertyRetireReactivateRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, repo := newTestService()
		ownerID := uuid.New()

		resp, _, err := svc.Create(context.Background(), ownerID, validCreateRequest())
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		id := uuid.MustParse(resp.ID)
		wear := rapid.Float64Range(0, 600).Draw(t, "wear")
		repo.items[id].Wear = wear

		if _, err := svc.Retire(context.Background(), id, ownerID); err != nil {
			t.Fatalf("retire failed: %v", err)
		}
		back, err := svc.Reactivate(context.Background(), id, ownerID)
		if err != nil {
			t.Fatalf("reactivate failed: %v", err)
		}

		if !back.Active || back.Wear != wear {
			t.Fatalf("round trip changed state: active=%v wear=%v (want %v)", back.Active, back.Wear, wear)
		}
	})
}
