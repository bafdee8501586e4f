package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/skiffworks/sailing-campaign/backend/internal/metrics"
	"github.com/skiffworks/sailing-campaign/backend/internal/repository"
	"github.com/skiffworks/sailing-campaign/backend/internal/sanitizer"
)

// DateFormat is the wire format for session dates
const DateFormat = "2006-01-02"

// Service errors
var (
	ErrSessionNotFound   = errors.New("sailing session not found")
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrSettingsNotFound  = errors.New("equipment settings not found for this session")
	ErrSettingsExist     = errors.New("equipment settings already exist for this session")
	ErrValidationFailed  = errors.New("validation failed")
)

// Error codes for API responses
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeEquipmentNotFound = "EQUIPMENT_NOT_FOUND"
	CodeSettingsNotFound  = "SETTINGS_NOT_FOUND"
	CodeSettingsExist     = "SETTINGS_EXIST"
)

// CreateSessionRequest represents the request to log a sailing session
type CreateSessionRequest struct {
	Date              string   `json:"date" validate:"required"`
	Location          string   `json:"location" validate:"required"`
	WindSpeedMin      float64  `json:"wind_speed_min"`
	WindSpeedMax      float64  `json:"wind_speed_max"`
	WaveType          string   `json:"wave_type" validate:"required"`
	WaveDirection     string   `json:"wave_direction" validate:"required"`
	HoursOnWater      float64  `json:"hours_on_water"`
	PerformanceRating int      `json:"performance_rating"`
	Notes             *string  `json:"notes,omitempty"`
	EquipmentIDs      []string `json:"equipment_ids,omitempty" validate:"omitempty,dive,uuid"`
}

// UpdateSessionRequest represents a partial session update; absent fields
// keep their stored values
type UpdateSessionRequest struct {
	Date              *string  `json:"date,omitempty"`
	Location          *string  `json:"location,omitempty"`
	WindSpeedMin      *float64 `json:"wind_speed_min,omitempty"`
	WindSpeedMax      *float64 `json:"wind_speed_max,omitempty"`
	WaveType          *string  `json:"wave_type,omitempty"`
	WaveDirection     *string  `json:"wave_direction,omitempty"`
	HoursOnWater      *float64 `json:"hours_on_water,omitempty"`
	PerformanceRating *int     `json:"performance_rating,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
}

// CreateSettingsRequest represents the rig settings recorded for a session
type CreateSettingsRequest struct {
	ForestayTension   float64 `json:"forestay_tension"`
	ShroudTension     float64 `json:"shroud_tension"`
	MastRake          float64 `json:"mast_rake"`
	JibHalyardTension string  `json:"jib_halyard_tension" validate:"required"`
	Cunningham        float64 `json:"cunningham"`
	Outhaul           float64 `json:"outhaul"`
	Vang              float64 `json:"vang"`
	MainTension       float64 `json:"main_tension"`
	CapTension        float64 `json:"cap_tension"`
	CapHole           float64 `json:"cap_hole"`
	LowersScale       float64 `json:"lowers_scale"`
	MainsScale        float64 `json:"mains_scale"`
	PreBend           float64 `json:"pre_bend"`
}

// AttachEquipmentRequest represents the request to link equipment to a session
type AttachEquipmentRequest struct {
	EquipmentIDs []string `json:"equipment_ids" validate:"required,min=1,dive,uuid"`
}

// SessionResponse represents a sailing session on the wire
type SessionResponse struct {
	ID                string    `json:"id"`
	Date              string    `json:"date"`
	Location          string    `json:"location"`
	WindSpeedMin      float64   `json:"wind_speed_min"`
	WindSpeedMax      float64   `json:"wind_speed_max"`
	AverageWindSpeed  float64   `json:"average_wind_speed"`
	WindRange         float64   `json:"wind_range"`
	WaveType          string    `json:"wave_type"`
	WaveDirection     string    `json:"wave_direction"`
	HoursOnWater      float64   `json:"hours_on_water"`
	PerformanceRating int       `json:"performance_rating"`
	Notes             *string   `json:"notes,omitempty"`
	EquipmentIDs      []string  `json:"equipment_ids"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SettingsResponse represents rig settings on the wire
type SettingsResponse struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	ForestayTension   float64   `json:"forestay_tension"`
	ShroudTension     float64   `json:"shroud_tension"`
	MastRake          float64   `json:"mast_rake"`
	JibHalyardTension string    `json:"jib_halyard_tension"`
	Cunningham        float64   `json:"cunningham"`
	Outhaul           float64   `json:"outhaul"`
	Vang              float64   `json:"vang"`
	MainTension       float64   `json:"main_tension"`
	CapTension        float64   `json:"cap_tension"`
	CapHole           float64   `json:"cap_hole"`
	LowersScale       float64   `json:"lowers_scale"`
	MainsScale        float64   `json:"mains_scale"`
	PreBend           float64   `json:"pre_bend"`
	HeavyWeatherSetup bool      `json:"heavy_weather_setup"`
	LightWeatherSetup bool      `json:"light_weather_setup"`
	CreatedAt         time.Time `json:"created_at"`
}

// SessionWithSettingsResponse bundles a session with its rig settings
type SessionWithSettingsResponse struct {
	SessionResponse
	EquipmentSettings *SettingsResponse `json:"equipment_settings,omitempty"`
}

// SessionEquipmentResponse represents one piece of linked equipment
type SessionEquipmentResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Manufacturer string  `json:"manufacturer"`
	Model        string  `json:"model"`
	Active       bool    `json:"active"`
	Wear         float64 `json:"wear"`
}

// PerformanceAnalytics represents derived performance figures over a set of sessions
type PerformanceAnalytics struct {
	TotalSessions           int                `json:"total_sessions"`
	TotalHours              float64            `json:"total_hours"`
	AveragePerformance      float64            `json:"average_performance"`
	PerformanceByConditions map[string]float64 `json:"performance_by_conditions"`
	SessionsByLocation      map[string]int     `json:"sessions_by_location"`
}

// Service handles sailing session business logic
type Service struct {
	sessionRepo   repository.SessionRepository
	equipmentRepo repository.EquipmentRepository
	notes         *sanitizer.NotesSanitizer
	logger        *slog.Logger
}

// NewService creates a new session Service instance
func NewService(sessionRepo repository.SessionRepository, equipmentRepo repository.EquipmentRepository, notes *sanitizer.NotesSanitizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if notes == nil {
		notes = sanitizer.NewNotesSanitizer()
	}
	return &Service{
		sessionRepo:   sessionRepo,
		equipmentRepo: equipmentRepo,
		notes:         notes,
		logger:        logger,
	}
}

// Create validates and stores a new sailing session. Validation failures are
// returned before the repository is touched.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateSessionRequest) (*SessionResponse, []FieldError, error) {
	fieldErrs := validateSessionFields(
		&req.Location,
		&req.WindSpeedMin, &req.WindSpeedMax,
		&req.WaveType, &req.WaveDirection,
		&req.HoursOnWater, &req.PerformanceRating,
	)

	date, err := time.Parse(DateFormat, req.Date)
	if err != nil {
		fieldErrs = append(fieldErrs, FieldError{"date", "Date must be in YYYY-MM-DD format"})
	}

	equipmentIDs, idErrs := parseEquipmentIDs(req.EquipmentIDs)
	fieldErrs = append(fieldErrs, idErrs...)

	if len(fieldErrs) > 0 {
		return nil, fieldErrs, ErrValidationFailed
	}

	// Only the caller's own active gear can be linked
	for _, equipmentID := range equipmentIDs {
		if err := s.checkEquipmentOwnership(ctx, equipmentID, userID); err != nil {
			return nil, nil, err
		}
	}

	sess := &repository.SailingSession{
		Date:              date,
		Location:          req.Location,
		WindSpeedMin:      req.WindSpeedMin,
		WindSpeedMax:      req.WindSpeedMax,
		WaveType:          req.WaveType,
		WaveDirection:     req.WaveDirection,
		HoursOnWater:      req.HoursOnWater,
		PerformanceRating: req.PerformanceRating,
		Notes:             s.notes.SanitizePtr(req.Notes),
		EquipmentIDs:      equipmentIDs,
		CreatedBy:         userID,
	}

	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.SessionsLogged.Inc()
	s.logger.Info("Session logged",
		"session_id", sess.ID,
		"user_id", userID,
		"location", sess.Location,
		"equipment_count", len(equipmentIDs),
	)

	resp := toSessionResponse(sess)
	return &resp, nil, nil
}

// List retrieves the caller's sessions, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, skip, limit int) ([]SessionResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	sessions, err := s.sessionRepo.ListByUser(ctx, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		responses = append(responses, toSessionResponse(sess))
	}
	return responses, nil
}

// Get retrieves one of the caller's sessions together with its rig settings
func (s *Service) Get(ctx context.Context, sessionID, userID uuid.UUID) (*SessionWithSettingsResponse, error) {
	sess, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	resp := &SessionWithSettingsResponse{SessionResponse: toSessionResponse(sess)}

	settings, err := s.sessionRepo.GetSettingsBySession(ctx, sessionID)
	switch {
	case err == nil:
		sr := toSettingsResponse(settings)
		resp.EquipmentSettings = &sr
	case errors.Is(err, repository.ErrSettingsNotFound):
		// No settings recorded for this session
	default:
		return nil, err
	}

	return resp, nil
}

// Update applies a partial update to one of the caller's sessions. Only the
// fields present in the payload are validated and changed.
func (s *Service) Update(ctx context.Context, sessionID, userID uuid.UUID, req UpdateSessionRequest) (*SessionResponse, []FieldError, error) {
	sess, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}

	fieldErrs := validateSessionFields(
		req.Location,
		req.WindSpeedMin, req.WindSpeedMax,
		req.WaveType, req.WaveDirection,
		req.HoursOnWater, req.PerformanceRating,
	)

	// The ordering invariant must hold for the merged values even when only
	// one side of the range is in the payload
	mergedMin, mergedMax := sess.WindSpeedMin, sess.WindSpeedMax
	if req.WindSpeedMin != nil {
		mergedMin = *req.WindSpeedMin
	}
	if req.WindSpeedMax != nil {
		mergedMax = *req.WindSpeedMax
	}
	if (req.WindSpeedMin != nil) != (req.WindSpeedMax != nil) && mergedMin > mergedMax {
		fieldErrs = append(fieldErrs, FieldError{"wind_speed_min", "Minimum wind speed cannot exceed maximum"})
	}

	var date time.Time
	if req.Date != nil {
		date, err = time.Parse(DateFormat, *req.Date)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{"date", "Date must be in YYYY-MM-DD format"})
		}
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs, ErrValidationFailed
	}

	previousHours := sess.HoursOnWater

	if req.Date != nil {
		sess.Date = date
	}
	if req.Location != nil {
		sess.Location = *req.Location
	}
	sess.WindSpeedMin = mergedMin
	sess.WindSpeedMax = mergedMax
	if req.WaveType != nil {
		sess.WaveType = *req.WaveType
	}
	if req.WaveDirection != nil {
		sess.WaveDirection = *req.WaveDirection
	}
	if req.HoursOnWater != nil {
		sess.HoursOnWater = *req.HoursOnWater
	}
	if req.PerformanceRating != nil {
		sess.PerformanceRating = *req.PerformanceRating
	}
	if req.Notes != nil {
		sess.Notes = s.notes.SanitizePtr(req.Notes)
	}

	// Linked equipment wear moves with the hours, in the same transaction
	// as the session row
	wearDelta := sess.HoursOnWater - previousHours
	if err := s.sessionRepo.Update(ctx, sess, wearDelta); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to update session: %w", err)
	}

	resp := toSessionResponse(sess)
	return &resp, nil, nil
}

// Delete removes one of the caller's sessions
func (s *Service) Delete(ctx context.Context, sessionID, userID uuid.UUID) error {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return err
	}

	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("Session deleted", "session_id", sessionID, "user_id", userID)
	return nil
}

// CreateSettings records the rig settings for one of the caller's sessions.
// A session holds at most one set of settings.
func (s *Service) CreateSettings(ctx context.Context, sessionID, userID uuid.UUID, req CreateSettingsRequest) (*SettingsResponse, []FieldError, error) {
	if fieldErrs := validateSettings(req); len(fieldErrs) > 0 {
		return nil, fieldErrs, ErrValidationFailed
	}

	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return nil, nil, err
	}

	if _, err := s.sessionRepo.GetSettingsBySession(ctx, sessionID); err == nil {
		return nil, nil, ErrSettingsExist
	} else if !errors.Is(err, repository.ErrSettingsNotFound) {
		return nil, nil, err
	}

	settings := &repository.EquipmentSettings{
		SessionID:         sessionID,
		ForestayTension:   req.ForestayTension,
		ShroudTension:     req.ShroudTension,
		MastRake:          req.MastRake,
		JibHalyardTension: req.JibHalyardTension,
		Cunningham:        req.Cunningham,
		Outhaul:           req.Outhaul,
		Vang:              req.Vang,
		MainTension:       req.MainTension,
		CapTension:        req.CapTension,
		CapHole:           req.CapHole,
		LowersScale:       req.LowersScale,
		MainsScale:        req.MainsScale,
		PreBend:           req.PreBend,
	}

	if err := s.sessionRepo.CreateSettings(ctx, settings); err != nil {
		if errors.Is(err, repository.ErrSettingsExist) {
			return nil, nil, ErrSettingsExist
		}
		return nil, nil, fmt.Errorf("failed to create settings: %w", err)
	}

	resp := toSettingsResponse(settings)
	return &resp, nil, nil
}

// GetSettings retrieves the rig settings for one of the caller's sessions
func (s *Service) GetSettings(ctx context.Context, sessionID, userID uuid.UUID) (*SettingsResponse, error) {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	settings, err := s.sessionRepo.GetSettingsBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}

	resp := toSettingsResponse(settings)
	return &resp, nil
}

// ListEquipment retrieves the equipment used in one of the caller's sessions
func (s *Service) ListEquipment(ctx context.Context, sessionID, userID uuid.UUID) ([]SessionEquipmentResponse, error) {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	items, err := s.sessionRepo.ListEquipment(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session equipment: %w", err)
	}

	responses := make([]SessionEquipmentResponse, 0, len(items))
	for _, e := range items {
		responses = append(responses, SessionEquipmentResponse{
			ID:           e.ID.String(),
			Name:         e.Name,
			Type:         e.Type,
			Manufacturer: e.Manufacturer,
			Model:        e.Model,
			Active:       e.Active,
			Wear:         e.Wear,
		})
	}
	return responses, nil
}

// AttachEquipment links the caller's equipment to a session; each newly
// linked item accrues the session's hours as wear
func (s *Service) AttachEquipment(ctx context.Context, sessionID, userID uuid.UUID, req AttachEquipmentRequest) ([]FieldError, error) {
	equipmentIDs, idErrs := parseEquipmentIDs(req.EquipmentIDs)
	if len(idErrs) > 0 {
		return idErrs, ErrValidationFailed
	}
	if len(equipmentIDs) == 0 {
		return []FieldError{{"equipment_ids", "At least one equipment ID is required"}}, ErrValidationFailed
	}

	sess, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	for _, equipmentID := range equipmentIDs {
		if err := s.checkEquipmentOwnership(ctx, equipmentID, userID); err != nil {
			return nil, err
		}
	}

	if err := s.sessionRepo.AttachEquipment(ctx, sessionID, equipmentIDs, sess.HoursOnWater); err != nil {
		return nil, fmt.Errorf("failed to attach equipment: %w", err)
	}

	return nil, nil
}

// DetachEquipment unlinks a piece of equipment from a session and rolls the
// session's hours back out of its wear
func (s *Service) DetachEquipment(ctx context.Context, sessionID, userID, equipmentID uuid.UUID) error {
	sess, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return err
	}

	err = s.sessionRepo.DetachEquipment(ctx, sessionID, equipmentID, sess.HoursOnWater)
	if err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return ErrEquipmentNotFound
		}
		return fmt.Errorf("failed to detach equipment: %w", err)
	}

	return nil
}

// PerformanceAnalytics computes performance figures over the caller's
// sessions, optionally restricted to a date range. The figures are derived
// on every call; nothing is stored.
func (s *Service) PerformanceAnalytics(ctx context.Context, userID uuid.UUID, from, to *time.Time) (*PerformanceAnalytics, error) {
	var (
		sessions []*repository.SailingSession
		err      error
	)
	if from != nil && to != nil {
		sessions, err = s.sessionRepo.ListByUserDateRange(ctx, userID, *from, *to)
	} else {
		sessions, err = s.sessionRepo.ListByUser(ctx, userID, 0, 10000)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	analytics := &PerformanceAnalytics{
		PerformanceByConditions: map[string]float64{},
		SessionsByLocation:      map[string]int{},
	}
	if len(sessions) == 0 {
		return analytics, nil
	}

	var totalHours, totalRating float64
	conditionRatings := map[string][]int{}
	for _, sess := range sessions {
		totalHours += sess.HoursOnWater
		totalRating += float64(sess.PerformanceRating)
		bucket := conditionBucket(sess)
		conditionRatings[bucket] = append(conditionRatings[bucket], sess.PerformanceRating)
		analytics.SessionsByLocation[sess.Location]++
	}

	analytics.TotalSessions = len(sessions)
	analytics.TotalHours = round1(totalHours)
	analytics.AveragePerformance = round2(totalRating / float64(len(sessions)))

	for bucket, ratings := range conditionRatings {
		var sum int
		for _, rating := range ratings {
			sum += rating
		}
		analytics.PerformanceByConditions[bucket] = round2(float64(sum) / float64(len(ratings)))
	}

	return analytics, nil
}

// getOwned loads a session and hides its existence from non-owners
func (s *Service) getOwned(ctx context.Context, sessionID, userID uuid.UUID) (*repository.SailingSession, error) {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.CreatedBy != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) checkEquipmentOwnership(ctx context.Context, equipmentID, userID uuid.UUID) error {
	equipment, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return ErrEquipmentNotFound
		}
		return err
	}
	if equipment.OwnerID != userID {
		return ErrEquipmentNotFound
	}
	return nil
}

// conditionBucket classifies a session as heavy, light or medium weather
func conditionBucket(sess *repository.SailingSession) string {
	switch {
	case sess.IsHeavyWeather():
		return "heavy"
	case sess.IsLightWeather():
		return "light"
	default:
		return "medium"
	}
}

func parseEquipmentIDs(raw []string) ([]uuid.UUID, []FieldError) {
	var ids []uuid.UUID
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, []FieldError{{"equipment_ids", "Invalid equipment ID: " + value}}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toSessionResponse(sess *repository.SailingSession) SessionResponse {
	equipmentIDs := make([]string, 0, len(sess.EquipmentIDs))
	for _, id := range sess.EquipmentIDs {
		equipmentIDs = append(equipmentIDs, id.String())
	}

	return SessionResponse{
		ID:                sess.ID.String(),
		Date:              sess.Date.Format(DateFormat),
		Location:          sess.Location,
		WindSpeedMin:      sess.WindSpeedMin,
		WindSpeedMax:      sess.WindSpeedMax,
		AverageWindSpeed:  sess.AverageWindSpeed(),
		WindRange:         sess.WindRange(),
		WaveType:          sess.WaveType,
		WaveDirection:     sess.WaveDirection,
		HoursOnWater:      sess.HoursOnWater,
		PerformanceRating: sess.PerformanceRating,
		Notes:             sess.Notes,
		EquipmentIDs:      equipmentIDs,
		CreatedBy:         sess.CreatedBy.String(),
		CreatedAt:         sess.CreatedAt,
		UpdatedAt:         sess.UpdatedAt,
	}
}

func toSettingsResponse(settings *repository.EquipmentSettings) SettingsResponse {
	return SettingsResponse{
		ID:                settings.ID.String(),
		SessionID:         settings.SessionID.String(),
		ForestayTension:   settings.ForestayTension,
		ShroudTension:     settings.ShroudTension,
		MastRake:          settings.MastRake,
		JibHalyardTension: settings.JibHalyardTension,
		Cunningham:        settings.Cunningham,
		Outhaul:           settings.Outhaul,
		Vang:              settings.Vang,
		MainTension:       settings.MainTension,
		CapTension:        settings.CapTension,
		CapHole:           settings.CapHole,
		LowersScale:       settings.LowersScale,
		MainsScale:        settings.MainsScale,
		PreBend:           settings.PreBend,
		HeavyWeatherSetup: settings.IsHeavyWeatherSetup(),
		LightWeatherSetup: settings.IsLightWeatherSetup(),
		CreatedAt:         settings.CreatedAt,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
