package session

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

// Mock implementations for testing

// mockSessionRepository implements repository.SessionRepository for testing
type mockSessionRepository struct {
	sessions    map[uuid.UUID]*repository.SailingSession
	settings    map[uuid.UUID]*repository.EquipmentSettings
	links       map[uuid.UUID]map[uuid.UUID]bool
	wear        map[uuid.UUID]float64
	createCalls int
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{
		sessions: make(map[uuid.UUID]*repository.SailingSession),
		settings: make(map[uuid.UUID]*repository.EquipmentSettings),
		links:    make(map[uuid.UUID]map[uuid.UUID]bool),
		wear:     make(map[uuid.UUID]float64),
	}
}

func (m *mockSessionRepository) Create(ctx context.Context, s *repository.SailingSession) error {
	m.createCalls++
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = s
	m.links[s.ID] = make(map[uuid.UUID]bool)
	for _, id := range s.EquipmentIDs {
		m.links[s.ID][id] = true
		m.wear[id] += s.HoursOnWater
	}
	return nil
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*repository.SailingSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	s.EquipmentIDs = nil
	for eid := range m.links[id] {
		s.EquipmentIDs = append(s.EquipmentIDs, eid)
	}
	return s, nil
}

func (m *mockSessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*repository.SailingSession, error) {
	var out []*repository.SailingSession
	for _, s := range m.sessions {
		if s.CreatedBy == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepository) ListByUserDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*repository.SailingSession, error) {
	var out []*repository.SailingSession
	for _, s := range m.sessions {
		if s.CreatedBy == userID && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepository) Update(ctx context.Context, s *repository.SailingSession, wearDelta float64) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return repository.ErrSessionNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = s
	for eid := range m.links[s.ID] {
		m.wear[eid] += wearDelta
		if m.wear[eid] < 0 {
			m.wear[eid] = 0
		}
	}
	return nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	for eid := range m.links[id] {
		m.wear[eid] -= s.HoursOnWater
		if m.wear[eid] < 0 {
			m.wear[eid] = 0
		}
	}
	delete(m.sessions, id)
	delete(m.links, id)
	delete(m.settings, id)
	return nil
}

func (m *mockSessionRepository) CreateSettings(ctx context.Context, s *repository.EquipmentSettings) error {
	if _, ok := m.settings[s.SessionID]; ok {
		return repository.ErrSettingsExist
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	m.settings[s.SessionID] = s
	return nil
}

func (m *mockSessionRepository) GetSettingsBySession(ctx context.Context, sessionID uuid.UUID) (*repository.EquipmentSettings, error) {
	s, ok := m.settings[sessionID]
	if !ok {
		return nil, repository.ErrSettingsNotFound
	}
	return s, nil
}

func (m *mockSessionRepository) ListEquipment(ctx context.Context, sessionID uuid.UUID) ([]*repository.Equipment, error) {
	return nil, nil
}

func (m *mockSessionRepository) AttachEquipment(ctx context.Context, sessionID uuid.UUID, equipmentIDs []uuid.UUID, wearHours float64) error {
	linkSet, ok := m.links[sessionID]
	if !ok {
		linkSet = make(map[uuid.UUID]bool)
		m.links[sessionID] = linkSet
	}
	for _, id := range equipmentIDs {
		if linkSet[id] {
			continue
		}
		linkSet[id] = true
		m.wear[id] += wearHours
	}
	return nil
}

func (m *mockSessionRepository) DetachEquipment(ctx context.Context, sessionID, equipmentID uuid.UUID, wearHours float64) error {
	linkSet := m.links[sessionID]
	if !linkSet[equipmentID] {
		return repository.ErrEquipmentNotFound
	}
	delete(linkSet, equipmentID)
	m.wear[equipmentID] -= wearHours
	if m.wear[equipmentID] < 0 {
		m.wear[equipmentID] = 0
	}
	return nil
}

// mockEquipmentRepository implements repository.EquipmentRepository for testing
type mockEquipmentRepository struct {
	items map[uuid.UUID]*repository.Equipment
}

func newMockEquipmentRepository() *mockEquipmentRepository {
	return &mockEquipmentRepository{items: make(map[uuid.UUID]*repository.Equipment)}
}

func (m *mockEquipmentRepository) Create(ctx context.Context, e *repository.Equipment) error {
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

func newTestService() (*Service, *mockSessionRepository, *mockEquipmentRepository) {
	sessionRepo := newMockSessionRepository()
	equipmentRepo := newMockEquipmentRepository()
	return NewService(sessionRepo, equipmentRepo, nil, nil), sessionRepo, equipmentRepo
}

func validCreateRequest() CreateSessionRequest {
	return CreateSessionRequest{
		Date:              "2026-03-15",
		Location:          "Weymouth",
		WindSpeedMin:      10,
		WindSpeedMax:      16,
		WaveType:          repository.WaveChoppy,
		WaveDirection:     "SW",
		HoursOnWater:      3.5,
		PerformanceRating: 4,
	}
}

func TestCreateValidSession(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	resp, fieldErrs, err := svc.Create(context.Background(), userID, validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fieldErrs) > 0 {
		t.Fatalf("unexpected field errors: %v", fieldErrs)
	}
	if resp == nil {
		t.Fatal("expected response, got nil")
	}
	if resp.AverageWindSpeed != 13 {
		t.Errorf("average wind speed: expected 13, got %v", resp.AverageWindSpeed)
	}
	if resp.CreatedBy != userID.String() {
		t.Errorf("created_by mismatch: %s", resp.CreatedBy)
	}
}

func TestCreateWindOrderingRejectedBeforeRepository(t *testing.T) {
	svc, sessionRepo, _ := newTestService()

	req := validCreateRequest()
	req.WindSpeedMin = 18
	req.WindSpeedMax = 12

	_, fieldErrs, err := svc.Create(context.Background(), uuid.New(), req)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if sessionRepo.createCalls != 0 {
		t.Error("repository should not be called when validation fails")
	}

	found := false
	for _, fe := range fieldErrs {
		if fe.Message == "Minimum wind speed cannot exceed maximum" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ordering message, got %v", fieldErrs)
	}
}

func TestCreateValidationBounds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateSessionRequest)
		message string
	}{
		{
			name:    "zero hours rejected",
			mutate:  func(r *CreateSessionRequest) { r.HoursOnWater = 0 },
			message: "Hours on water must be between 0 and 12",
		},
		{
			name:    "hours above twelve rejected",
			mutate:  func(r *CreateSessionRequest) { r.HoursOnWater = 12.1 },
			message: "Hours on water must be between 0 and 12",
		},
		{
			name:    "rating zero rejected",
			mutate:  func(r *CreateSessionRequest) { r.PerformanceRating = 0 },
			message: "Performance rating must be between 1 and 5",
		},
		{
			name:    "rating six rejected",
			mutate:  func(r *CreateSessionRequest) { r.PerformanceRating = 6 },
			message: "Performance rating must be between 1 and 5",
		},
		{
			name:    "negative wind rejected",
			mutate:  func(r *CreateSessionRequest) { r.WindSpeedMin = -1 },
			message: "Minimum wind speed cannot be negative",
		},
		{
			name:    "wind above sixty rejected",
			mutate:  func(r *CreateSessionRequest) { r.WindSpeedMax = 61 },
			message: "Wind speed exceeds safe sailing conditions",
		},
		{
			name:    "unknown wave type rejected",
			mutate:  func(r *CreateSessionRequest) { r.WaveType = "Tsunami" },
			message: "Wave type must be one of: Flat, Choppy, Medium, Large",
		},
		{
			name:    "empty location rejected",
			mutate:  func(r *CreateSessionRequest) { r.Location = "  " },
			message: "Location cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			req := validCreateRequest()
			tt.mutate(&req)

			_, fieldErrs, err := svc.Create(context.Background(), uuid.New(), req)
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("expected ErrValidationFailed, got %v", err)
			}

			found := false
			for _, fe := range fieldErrs {
				if fe.Message == tt.message {
					found = true
				}
			}
			if !found {
				t.Errorf("expected message %q, got %v", tt.message, fieldErrs)
			}
		})
	}
}

func TestCreateBoundaryValuesAccepted(t *testing.T) {
	svc, _, _ := newTestService()

	req := validCreateRequest()
	req.HoursOnWater = 12
	req.PerformanceRating = 5
	req.WindSpeedMin = 0
	req.WindSpeedMax = 60

	_, fieldErrs, err := svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("boundary values should be accepted: %v (%v)", err, fieldErrs)
	}
}

func TestGetNonExistentSession(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetHidesOtherUsersSessions(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.New()

	resp, _, err := svc.Create(context.Background(), owner, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sessionID := uuid.MustParse(resp.ID)

	if _, err := svc.Get(context.Background(), sessionID, uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for non-owner, got %v", err)
	}
	if _, err := svc.Get(context.Background(), sessionID, owner); err != nil {
		t.Fatalf("owner should see the session: %v", err)
	}
}

func TestUpdateMergedWindOrderingRejected(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	resp, _, err := svc.Create(context.Background(), userID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sessionID := uuid.MustParse(resp.ID)

	// Stored max is 16; a lone min of 20 breaks the merged ordering
	min := 20.0
	_, fieldErrs, err := svc.Update(context.Background(), sessionID, userID, UpdateSessionRequest{
		WindSpeedMin: &min,
	})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}

	found := false
	for _, fe := range fieldErrs {
		if fe.Message == "Minimum wind speed cannot exceed maximum" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ordering message, got %v", fieldErrs)
	}
}

func TestUpdateHoursAdjustsLinkedWear(t *testing.T) {
	svc, sessionRepo, equipmentRepo := newTestService()
	userID := uuid.New()

	gear := &repository.Equipment{Name: "Main 1", Type: repository.TypeMainsail, Manufacturer: "North", Model: "M-10", OwnerID: userID}
	equipmentRepo.Create(context.Background(), gear)

	req := validCreateRequest()
	req.EquipmentIDs = []string{gear.ID.String()}
	resp, _, err := svc.Create(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sessionID := uuid.MustParse(resp.ID)

	if got := sessionRepo.wear[gear.ID]; got != 3.5 {
		t.Fatalf("wear after create: expected 3.5, got %v", got)
	}

	hours := 5.0
	if _, _, err := svc.Update(context.Background(), sessionID, userID, UpdateSessionRequest{HoursOnWater: &hours}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if got := sessionRepo.wear[gear.ID]; got != 5.0 {
		t.Errorf("wear after hours change: expected 5.0, got %v", got)
	}
}

func TestAttachEquipmentIdempotentWear(t *testing.T) {
	svc, sessionRepo, equipmentRepo := newTestService()
	userID := uuid.New()

	gear := &repository.Equipment{Name: "Jib 2", Type: repository.TypeJib, Manufacturer: "North", Model: "J-2", OwnerID: userID}
	equipmentRepo.Create(context.Background(), gear)

	resp, _, err := svc.Create(context.Background(), userID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sessionID := uuid.MustParse(resp.ID)

	attach := AttachEquipmentRequest{EquipmentIDs: []string{gear.ID.String()}}
	for i := 0; i < 3; i++ {
		if _, err := svc.AttachEquipment(context.Background(), sessionID, userID, attach); err != nil {
			t.Fatalf("attach %d failed: %v", i, err)
		}
	}

	if got := sessionRepo.wear[gear.ID]; got != 3.5 {
		t.Errorf("re-attaching must not accrue wear twice: expected 3.5, got %v", got)
	}
}

func TestDetachEquipmentRollsBackWear(t *testing.T) {
	svc, sessionRepo, equipmentRepo := newTestService()
	userID := uuid.New()

	gear := &repository.Equipment{Name: "Mast 1", Type: repository.TypeMast, Manufacturer: "CST", Model: "C-49", OwnerID: userID}
	equipmentRepo.Create(context.Background(), gear)

	req := validCreateRequest()
	req.EquipmentIDs = []string{gear.ID.String()}
	resp, _, err := svc.Create(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sessionID := uuid.MustParse(resp.ID)

	if err := svc.DetachEquipment(context.Background(), sessionID, userID, gear.ID); err != nil {
		t.Fatalf("detach failed: %v", err)
	}

	if got := sessionRepo.wear[gear.ID]; got != 0 {
		t.Errorf("wear after detach: expected 0, got %v", got)
	}
}

func TestAttachRejectsForeignEquipment(t *testing.T) {
	svc, _, equipmentRepo := newTestService()
	userID := uuid.New()

	foreign := &repository.Equipment{Name: "Boom X", Type: repository.TypeBoom, Manufacturer: "X", Model: "X-1", OwnerID: uuid.New()}
	equipmentRepo.Create(context.Background(), foreign)

	resp, _, err := svc.Create(context.Background(), userID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sessionID := uuid.MustParse(resp.ID)

	_, err = svc.AttachEquipment(context.Background(), sessionID, userID, AttachEquipmentRequest{
		EquipmentIDs: []string{foreign.ID.String()},
	})
	if !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("expected ErrEquipmentNotFound for foreign gear, got %v", err)
	}
}

func TestCreateSettingsDuplicateRejected(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	resp, _, err := svc.Create(context.Background(), userID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sessionID := uuid.MustParse(resp.ID)

	settings := CreateSettingsRequest{
		ForestayTension:   6,
		ShroudTension:     5,
		MastRake:          22,
		JibHalyardTension: repository.TensionMedium,
		Cunningham:        4,
		Outhaul:           5,
		Vang:              6,
		MainTension:       5,
		CapTension:        4,
		CapHole:           3,
		LowersScale:       5,
		MainsScale:        5,
		PreBend:           60,
	}

	if _, _, err := svc.CreateSettings(context.Background(), sessionID, userID, settings); err != nil {
		t.Fatalf("first settings create failed: %v", err)
	}

	_, _, err = svc.CreateSettings(context.Background(), sessionID, userID, settings)
	if !errors.Is(err, ErrSettingsExist) {
		t.Fatalf("expected ErrSettingsExist, got %v", err)
	}
}

func TestGetSettingsMissing(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	resp, _, err := svc.Create(context.Background(), userID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.GetSettings(context.Background(), uuid.MustParse(resp.ID), userID)
	if !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}
}

func TestDeleteSessionRollsBackWear(t *testing.T) {
	svc, sessionRepo, equipmentRepo := newTestService()
	userID := uuid.New()

	gear := &repository.Equipment{Name: "Gennaker 1", Type: repository.TypeGennaker, Manufacturer: "North", Model: "G-1", OwnerID: userID}
	equipmentRepo.Create(context.Background(), gear)

	req := validCreateRequest()
	req.EquipmentIDs = []string{gear.ID.String()}
	resp, _, err := svc.Create(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Delete(context.Background(), uuid.MustParse(resp.ID), userID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if got := sessionRepo.wear[gear.ID]; got != 0 {
		t.Errorf("wear after session delete: expected 0, got %v", got)
	}
}

func TestPerformanceAnalyticsAverage(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	for i, rating := range []int{3, 4, 5} {
		req := validCreateRequest()
		req.Date = fmt.Sprintf("2026-03-%02d", 10+i)
		req.PerformanceRating = rating
		if _, _, err := svc.Create(context.Background(), userID, req); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	analytics, err := svc.PerformanceAnalytics(context.Background(), userID, nil, nil)
	if err != nil {
		t.Fatalf("analytics failed: %v", err)
	}

	if analytics.TotalSessions != 3 {
		t.Errorf("total sessions: expected 3, got %d", analytics.TotalSessions)
	}
	if analytics.AveragePerformance != 4 {
		t.Errorf("average performance: expected 4, got %v", analytics.AveragePerformance)
	}
	if analytics.TotalHours != 10.5 {
		t.Errorf("total hours: expected 10.5, got %v", analytics.TotalHours)
	}
	if analytics.SessionsByLocation["Weymouth"] != 3 {
		t.Errorf("sessions by location: %v", analytics.SessionsByLocation)
	}
}

func TestPerformanceAnalyticsConditionBuckets(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	// Heavy: avg wind 25
	heavy := validCreateRequest()
	heavy.Date = "2026-04-01"
	heavy.WindSpeedMin = 20
	heavy.WindSpeedMax = 30
	heavy.WaveType = repository.WaveLarge
	heavy.PerformanceRating = 2

	// Light: avg wind 5 on flat water
	light := validCreateRequest()
	light.Date = "2026-04-02"
	light.WindSpeedMin = 4
	light.WindSpeedMax = 6
	light.WaveType = repository.WaveFlat
	light.PerformanceRating = 5

	// Medium: avg wind 13, choppy
	medium := validCreateRequest()
	medium.Date = "2026-04-03"
	medium.PerformanceRating = 3

	for _, req := range []CreateSessionRequest{heavy, light, medium} {
		if _, _, err := svc.Create(context.Background(), userID, req); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	analytics, err := svc.PerformanceAnalytics(context.Background(), userID, nil, nil)
	if err != nil {
		t.Fatalf("analytics failed: %v", err)
	}

	want := map[string]float64{"heavy": 2, "light": 5, "medium": 3}
	for bucket, expected := range want {
		if got := analytics.PerformanceByConditions[bucket]; got != expected {
			t.Errorf("%s bucket: expected %v, got %v", bucket, expected, got)
		}
	}
}

func TestPerformanceAnalyticsEmpty(t *testing.T) {
	svc, _, _ := newTestService()

	analytics, err := svc.PerformanceAnalytics(context.Background(), uuid.New(), nil, nil)
	if err != nil {
		t.Fatalf("analytics failed: %v", err)
	}
	if analytics.TotalSessions != 0 || analytics.TotalHours != 0 || analytics.AveragePerformance != 0 {
		t.Errorf("empty analytics should be zero valued: %+v", analytics)
	}
}

// Property: any session with min > max is rejected before the repository is
// touched, with the ordering message
func TestPropertyWindOrderingAlwaysRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, sessionRepo, _ := newTestService()

		max := rapid.Float64Range(0, 59).Draw(t, "max")
		min := rapid.Float64Range(max+0.1, 60).Draw(t, "min")

		req := validCreateRequest()
		req.WindSpeedMin = min
		req.WindSpeedMax = max

		_, fieldErrs, err := svc.Create(context.Background(), uuid.New(), req)
		if !errors.Is(err, ErrValidationFailed) {
			t.Fatalf("min %v > max %v must fail validation, got %v", min, max, err)
		}
		if sessionRepo.createCalls != 0 {
			t.Fatal("repository must not be called on validation failure")
		}

		found := false
		for _, fe := range fieldErrs {
			if fe.Message == "Minimum wind speed cannot exceed maximum" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected ordering message, got %v", fieldErrs)
		}
	})
}

// Property: any rating in [1,5] passes, anything outside is rejected
func TestPropertyRatingBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, _, _ := newTestService()

		rating := rapid.IntRange(-10, 20).Draw(t, "rating")
		req := validCreateRequest()
		req.PerformanceRating = rating

		_, fieldErrs, err := svc.Create(context.Background(), uuid.New(), req)

		if rating >= 1 && rating <= 5 {
			if err != nil {
				t.Fatalf("rating %d should be accepted: %v (%v)", rating, err, fieldErrs)
			}
		} else {
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("rating %d should be rejected, got %v", rating, err)
			}
		}
	})
}

// Property: analytics are derived, so repeated calls over unchanged data
// return identical figures
func TestPropertyAnalyticsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, _, _ := newTestService()
		userID := uuid.New()

		n := rapid.IntRange(1, 8).Draw(t, "n")
		for i := 0; i < n; i++ {
			req := validCreateRequest()
			req.Date = fmt.Sprintf("2026-05-%02d", i+1)
			req.PerformanceRating = rapid.IntRange(1, 5).Draw(t, fmt.Sprintf("rating%d", i))
			req.HoursOnWater = rapid.Float64Range(0.5, 12).Draw(t, fmt.Sprintf("hours%d", i))
			if _, _, err := svc.Create(context.Background(), userID, req); err != nil {
				t.Fatalf("create failed: %v", err)
			}
		}

		first, err := svc.PerformanceAnalytics(context.Background(), userID, nil, nil)
		if err != nil {
			t.Fatalf("analytics failed: %v", err)
		}
		second, err := svc.PerformanceAnalytics(context.Background(), userID, nil, nil)
		if err != nil {
			t.Fatalf("analytics failed: %v", err)
		}

		if first.TotalSessions != second.TotalSessions ||
			first.TotalHours != second.TotalHours ||
			first.AveragePerformance != second.AveragePerformance {
			t.Fatalf("analytics not stable: %+v vs %+v", first, second)
		}
	})
}
