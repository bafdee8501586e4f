package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appctx "github.com/skiffworks/sailing-campaign/backend/internal/context"
)

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// Handler handles HTTP requests for sailing session endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new session Handler instance
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles logging a new sailing session
// POST /api/v1/sessions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}
	if err := GetValidator().Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", nil)
		return
	}

	response, fieldErrs, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err, fieldErrs)
		return
	}

	h.writeSuccess(w, http.StatusCreated, response)
}

// List handles listing the caller's sessions
// GET /api/v1/sessions?skip=0&limit=100
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	responses, err := h.service.List(r.Context(), userID, skip, limit)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"sessions": responses,
		"count":    len(responses),
	})
}

// Get handles retrieving one session with its rig settings
// GET /api/v1/sessions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	response, err := h.service.Get(r.Context(), sessionID, userID)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// Update handles a partial session update
// PUT /api/v1/sessions/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, fieldErrs, err := h.service.Update(r.Context(), sessionID, userID, req)
	if err != nil {
		h.writeServiceError(w, err, fieldErrs)
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// Delete handles removing a session
// DELETE /api/v1/sessions/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), sessionID, userID); err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Session deleted successfully",
	})
}

// CreateSettings handles recording rig settings for a session
// POST /api/v1/sessions/{id}/settings
func (h *Handler) CreateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req CreateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, fieldErrs, err := h.service.CreateSettings(r.Context(), sessionID, userID, req)
	if err != nil {
		h.writeServiceError(w, err, fieldErrs)
		return
	}

	h.writeSuccess(w, http.StatusCreated, response)
}

// GetSettings handles retrieving the rig settings for a session
// GET /api/v1/sessions/{id}/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	response, err := h.service.GetSettings(r.Context(), sessionID, userID)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// ListEquipment handles listing the equipment used in a session
// GET /api/v1/sessions/{id}/equipment
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	responses, err := h.service.ListEquipment(r.Context(), sessionID, userID)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"equipment": responses,
		"count":     len(responses),
	})
}

// AttachEquipment handles linking equipment to a session
// POST /api/v1/sessions/{id}/equipment
func (h *Handler) AttachEquipment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req AttachEquipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	fieldErrs, err := h.service.AttachEquipment(r.Context(), sessionID, userID, req)
	if err != nil {
		h.writeServiceError(w, err, fieldErrs)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Equipment attached successfully",
	})
}

// DetachEquipment handles unlinking equipment from a session
// DELETE /api/v1/sessions/{id}/equipment/{equipmentId}
func (h *Handler) DetachEquipment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	equipmentID, err := uuid.Parse(chi.URLParam(r, "equipmentId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid equipment ID", nil)
		return
	}

	if err := h.service.DetachEquipment(r.Context(), sessionID, userID, equipmentID); err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Equipment detached successfully",
	})
}

// PerformanceAnalytics handles the derived performance report
// GET /api/v1/sessions/analytics/performance?start_date=&end_date=
func (h *Handler) PerformanceAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var from, to *time.Time
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		t, err := time.Parse(DateFormat, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, CodeValidationError, "start_date must be in YYYY-MM-DD format", nil)
			return
		}
		from = &t
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		t, err := time.Parse(DateFormat, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, CodeValidationError, "end_date must be in YYYY-MM-DD format", nil)
			return
		}
		to = &t
	}

	analytics, err := h.service.PerformanceAnalytics(r.Context(), userID, from, to)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, analytics)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid session ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors to HTTP responses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fieldErrs []FieldError) {
	switch {
	case errors.Is(err, ErrValidationFailed):
		details := make(map[string][]string)
		for _, fe := range fieldErrs {
			details[fe.Field] = append(details[fe.Field], fe.Message)
		}
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
	case errors.Is(err, ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, CodeSessionNotFound, "Sailing session not found", nil)
	case errors.Is(err, ErrEquipmentNotFound):
		h.writeError(w, http.StatusNotFound, CodeEquipmentNotFound, "Equipment not found", nil)
	case errors.Is(err, ErrSettingsNotFound):
		h.writeError(w, http.StatusNotFound, CodeSettingsNotFound, "Equipment settings not found for this session", nil)
	case errors.Is(err, ErrSettingsExist):
		h.writeError(w, http.StatusConflict, CodeSettingsExist, "Equipment settings already exist for this session", nil)
	default:
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

func (h *Handler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
	})
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(APIResponse{
			Success: false,
			Error: &APIError{
				Code:    "AUTH_TOKEN_INVALID",
				Message: "Invalid or expired token",
			},
			Timestamp: time.Now().UTC(),
		})
		return uuid.Nil, false
	}
	return userID, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
