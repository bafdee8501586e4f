package equipment

import (
	"encoding/json"
	"errors"
	"net/http"
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

// Handler handles HTTP requests for equipment endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new equipment Handler instance
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles registering a new piece of equipment
// POST /api/v1/equipment
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req CreateEquipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, fieldErrs, err := h.service.Create(r.Context(), ownerID, req)
	if err != nil {
		h.writeServiceError(w, err, fieldErrs)
		return
	}

	h.writeSuccess(w, http.StatusCreated, response)
}

// List handles listing the caller's equipment
// GET /api/v1/equipment?active_only=true
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("active_only") == "true"

	responses, err := h.service.List(r.Context(), ownerID, activeOnly)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"equipment": responses,
		"count":     len(responses),
	})
}

// Get handles retrieving one piece of equipment
// GET /api/v1/equipment/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	equipmentID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	response, err := h.service.Get(r.Context(), equipmentID, ownerID)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// Update handles a partial equipment update
// PUT /api/v1/equipment/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	equipmentID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateEquipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, fieldErrs, err := h.service.Update(r.Context(), equipmentID, ownerID, req)
	if err != nil {
		h.writeServiceError(w, err, fieldErrs)
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// Delete handles removing a piece of equipment
// DELETE /api/v1/equipment/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	equipmentID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), equipmentID, ownerID); err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Equipment deleted successfully",
	})
}

// Retire handles marking equipment as retired
// POST /api/v1/equipment/{id}/retire
func (h *Handler) Retire(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	equipmentID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	response, err := h.service.Retire(r.Context(), equipmentID, ownerID)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// Reactivate handles putting retired equipment back into use
// POST /api/v1/equipment/{id}/reactivate
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	equipmentID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	response, err := h.service.Reactivate(r.Context(), equipmentID, ownerID)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// Statistics handles the derived equipment summary
// GET /api/v1/equipment/analytics/stats
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Statistics(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, err, nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, stats)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid equipment ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "AUTH_TOKEN_INVALID", "Invalid or expired token", nil)
		return uuid.Nil, false
	}
	return userID, true
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
	case errors.Is(err, ErrEquipmentNotFound):
		h.writeError(w, http.StatusNotFound, CodeEquipmentNotFound, "Equipment not found", nil)
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
