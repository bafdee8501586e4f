package equipment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/skiffworks/sailing-campaign/backend/internal/metrics"
	"github.com/skiffworks/sailing-campaign/backend/internal/repository"
	"github.com/skiffworks/sailing-campaign/backend/internal/sanitizer"
)

// DateFormat is the wire format for purchase dates
const DateFormat = "2006-01-02"

// Service errors
var (
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrValidationFailed  = errors.New("validation failed")
)

// Error codes for API responses
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeEquipmentNotFound = "EQUIPMENT_NOT_FOUND"
)

// CreateEquipmentRequest represents the request to register a piece of gear
type CreateEquipmentRequest struct {
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Manufacturer string  `json:"manufacturer" validate:"required"`
	Model        string  `json:"model" validate:"required"`
	PurchaseDate *string `json:"purchase_date,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// UpdateEquipmentRequest represents a partial equipment update; absent
// fields keep their stored values
type UpdateEquipmentRequest struct {
	Name         *string `json:"name,omitempty"`
	Type         *string `json:"type,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	Model        *string `json:"model,omitempty"`
	PurchaseDate *string `json:"purchase_date,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// EquipmentResponse represents a piece of equipment on the wire
type EquipmentResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Manufacturer     string    `json:"manufacturer"`
	Model            string    `json:"model"`
	PurchaseDate     *string   `json:"purchase_date,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	Active           bool      `json:"active"`
	Wear             float64   `json:"wear"`
	AgeInDays        *int      `json:"age_in_days,omitempty"`
	IsOld            bool      `json:"is_old"`
	NeedsReplacement bool      `json:"needs_replacement"`
	OwnerID          string    `json:"owner_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EquipmentStatistics represents derived figures over the caller's gear.
// The figures are computed on every call; nothing is stored.
type EquipmentStatistics struct {
	TotalEquipment    int            `json:"total_equipment"`
	ActiveEquipment   int            `json:"active_equipment"`
	RetiredEquipment  int            `json:"retired_equipment"`
	EquipmentByType   map[string]int `json:"equipment_by_type"`
	OldestEquipment   *string        `json:"oldest_equipment"`
	NewestEquipment   *string        `json:"newest_equipment"`
	MostWornEquipment *string        `json:"most_worn_equipment"`
}

// Service handles equipment business logic
type Service struct {
	repo   repository.EquipmentRepository
	notes  *sanitizer.NotesSanitizer
	logger *slog.Logger
}

// NewService creates a new equipment Service instance
func NewService(repo repository.EquipmentRepository, notes *sanitizer.NotesSanitizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if notes == nil {
		notes = sanitizer.NewNotesSanitizer()
	}
	return &Service{repo: repo, notes: notes, logger: logger}
}

// Create validates and registers a new piece of equipment, active with
// zero wear
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req CreateEquipmentRequest) (*EquipmentResponse, []FieldError, error) {
	fieldErrs := validateEquipmentFields(&req.Name, &req.Type, &req.Manufacturer, &req.Model)

	purchaseDate, dateErrs := parsePurchaseDate(req.PurchaseDate)
	fieldErrs = append(fieldErrs, dateErrs...)

	if len(fieldErrs) > 0 {
		return nil, fieldErrs, ErrValidationFailed
	}

	equipment := &repository.Equipment{
		Name:         req.Name,
		Type:         req.Type,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		PurchaseDate: purchaseDate,
		Notes:        s.notes.SanitizePtr(req.Notes),
		OwnerID:      ownerID,
	}

	if err := s.repo.Create(ctx, equipment); err != nil {
		return nil, nil, fmt.Errorf("failed to create equipment: %w", err)
	}

	metrics.EquipmentRegistered.Inc()
	s.logger.Info("Equipment registered",
		"equipment_id", equipment.ID,
		"owner_id", ownerID,
		"type", equipment.Type,
	)

	resp := toEquipmentResponse(equipment)
	return &resp, nil, nil
}

// List retrieves the caller's equipment, optionally active only
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]EquipmentResponse, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}

	responses := make([]EquipmentResponse, 0, len(items))
	for _, e := range items {
		responses = append(responses, toEquipmentResponse(e))
	}
	return responses, nil
}

// Get retrieves one piece of the caller's equipment
func (s *Service) Get(ctx context.Context, equipmentID, ownerID uuid.UUID) (*EquipmentResponse, error) {
	equipment, err := s.getOwned(ctx, equipmentID, ownerID)
	if err != nil {
		return nil, err
	}

	resp := toEquipmentResponse(equipment)
	return &resp, nil
}

// Update applies a partial update to one piece of the caller's equipment.
// The active flag and wear are not touched here; retirement has its own
// actions and wear follows session links.
func (s *Service) Update(ctx context.Context, equipmentID, ownerID uuid.UUID, req UpdateEquipmentRequest) (*EquipmentResponse, []FieldError, error) {
	equipment, err := s.getOwned(ctx, equipmentID, ownerID)
	if err != nil {
		return nil, nil, err
	}

	fieldErrs := validateEquipmentFields(req.Name, req.Type, req.Manufacturer, req.Model)

	purchaseDate, dateErrs := parsePurchaseDate(req.PurchaseDate)
	fieldErrs = append(fieldErrs, dateErrs...)

	if len(fieldErrs) > 0 {
		return nil, fieldErrs, ErrValidationFailed
	}

	if req.Name != nil {
		equipment.Name = *req.Name
	}
	if req.Type != nil {
		equipment.Type = *req.Type
	}
	if req.Manufacturer != nil {
		equipment.Manufacturer = *req.Manufacturer
	}
	if req.Model != nil {
		equipment.Model = *req.Model
	}
	if req.PurchaseDate != nil {
		equipment.PurchaseDate = purchaseDate
	}
	if req.Notes != nil {
		equipment.Notes = s.notes.SanitizePtr(req.Notes)
	}

	if err := s.repo.Update(ctx, equipment); err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return nil, nil, ErrEquipmentNotFound
		}
		return nil, nil, fmt.Errorf("failed to update equipment: %w", err)
	}

	resp := toEquipmentResponse(equipment)
	return &resp, nil, nil
}

// Delete removes one piece of the caller's equipment and its session links
func (s *Service) Delete(ctx context.Context, equipmentID, ownerID uuid.UUID) error {
	if _, err := s.getOwned(ctx, equipmentID, ownerID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, equipmentID); err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return ErrEquipmentNotFound
		}
		return fmt.Errorf("failed to delete equipment: %w", err)
	}

	s.logger.Info("Equipment deleted", "equipment_id", equipmentID, "owner_id", ownerID)
	return nil
}

// Retire marks equipment as no longer in use. Only the active flag changes;
// wear, history and session links are preserved.
func (s *Service) Retire(ctx context.Context, equipmentID, ownerID uuid.UUID) (*EquipmentResponse, error) {
	return s.setActive(ctx, equipmentID, ownerID, false)
}

// Reactivate puts retired equipment back into use
func (s *Service) Reactivate(ctx context.Context, equipmentID, ownerID uuid.UUID) (*EquipmentResponse, error) {
	return s.setActive(ctx, equipmentID, ownerID, true)
}

func (s *Service) setActive(ctx context.Context, equipmentID, ownerID uuid.UUID, active bool) (*EquipmentResponse, error) {
	equipment, err := s.getOwned(ctx, equipmentID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, equipmentID, active); err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, fmt.Errorf("failed to update equipment state: %w", err)
	}

	equipment.Active = active
	resp := toEquipmentResponse(equipment)
	return &resp, nil
}

// Statistics computes summary figures over all of the caller's equipment,
// retired gear included
func (s *Service) Statistics(ctx context.Context, ownerID uuid.UUID) (*EquipmentStatistics, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}

	stats := &EquipmentStatistics{
		EquipmentByType: map[string]int{},
	}

	var oldest, newest, mostWorn *repository.Equipment
	for _, e := range items {
		stats.TotalEquipment++
		if e.Active {
			stats.ActiveEquipment++
		} else {
			stats.RetiredEquipment++
		}
		stats.EquipmentByType[e.Type]++

		if e.PurchaseDate != nil {
			if oldest == nil || e.PurchaseDate.Before(*oldest.PurchaseDate) {
				oldest = e
			}
			if newest == nil || e.PurchaseDate.After(*newest.PurchaseDate) {
				newest = e
			}
		}
		if mostWorn == nil || e.Wear > mostWorn.Wear {
			mostWorn = e
		}
	}

	if oldest != nil {
		stats.OldestEquipment = &oldest.Name
	}
	if newest != nil {
		stats.NewestEquipment = &newest.Name
	}
	if mostWorn != nil {
		stats.MostWornEquipment = &mostWorn.Name
	}

	return stats, nil
}

// getOwned loads equipment and hides its existence from non-owners
func (s *Service) getOwned(ctx context.Context, equipmentID, ownerID uuid.UUID) (*repository.Equipment, error) {
	equipment, err := s.repo.GetByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	if equipment.OwnerID != ownerID {
		return nil, ErrEquipmentNotFound
	}
	return equipment, nil
}

func parsePurchaseDate(raw *string) (*time.Time, []FieldError) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	date, err := time.Parse(DateFormat, *raw)
	if err != nil {
		return nil, []FieldError{{"purchase_date", "Purchase date must be in YYYY-MM-DD format"}}
	}
	return &date, nil
}

func toEquipmentResponse(e *repository.Equipment) EquipmentResponse {
	var purchaseDate *string
	if e.PurchaseDate != nil {
		formatted := e.PurchaseDate.Format(DateFormat)
		purchaseDate = &formatted
	}

	return EquipmentResponse{
		ID:               e.ID.String(),
		Name:             e.Name,
		Type:             e.Type,
		Manufacturer:     e.Manufacturer,
		Model:            e.Model,
		PurchaseDate:     purchaseDate,
		Notes:            e.Notes,
		Active:           e.Active,
		Wear:             e.Wear,
		AgeInDays:        e.AgeInDays(),
		IsOld:            e.IsOld(repository.OldEquipmentThresholdDays),
		NeedsReplacement: e.NeedsReplacement(repository.WearReplacementThreshold),
		OwnerID:          e.OwnerID.String(),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
