package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appctx "github.com/skiffworks/sailing-campaign/backend/internal/context"
)

// injectUser returns middleware that places a fixed user into the request
// context, standing in for JWT authentication
func injectUser(userID uuid.UUID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), appctx.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(userID uuid.UUID) (*chi.Mux, *mockSessionRepository) {
	svc, sessionRepo, _ := newTestService()
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc), injectUser(userID))
	return r, sessionRepo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var envelope APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return envelope
}

func TestHandlerCreateSession(t *testing.T) {
	router, _ := newTestRouter(uuid.New())

	rec := doJSON(t, router, http.MethodPost, "/sessions", validCreateRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	if !envelope.Success {
		t.Errorf("expected success envelope: %s", rec.Body.String())
	}
}

func TestHandlerCreateValidationError(t *testing.T) {
	router, _ := newTestRouter(uuid.New())

	req := validCreateRequest()
	req.WindSpeedMin = 20
	req.WindSpeedMax = 10

	rec := doJSON(t, router, http.MethodPost, "/sessions", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != CodeValidationError {
		t.Fatalf("expected validation error envelope: %s", rec.Body.String())
	}

	found := false
	for _, messages := range envelope.Error.Details {
		for _, message := range messages {
			if message == "Minimum wind speed cannot exceed maximum" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("ordering message missing from details: %s", rec.Body.String())
	}
}

func TestHandlerGetUnknownSession(t *testing.T) {
	router, _ := newTestRouter(uuid.New())

	rec := doJSON(t, router, http.MethodGet, "/sessions/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != CodeSessionNotFound {
		t.Errorf("expected SESSION_NOT_FOUND, got %s", rec.Body.String())
	}
}

func TestHandlerInvalidSessionID(t *testing.T) {
	router, _ := newTestRouter(uuid.New())

	rec := doJSON(t, router, http.MethodGet, "/sessions/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerListSessions(t *testing.T) {
	router, _ := newTestRouter(uuid.New())

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, router, http.MethodPost, "/sessions", validCreateRequest()); rec.Code != http.StatusCreated {
			t.Fatalf("create failed: %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Count != 2 {
		t.Errorf("expected 2 sessions, got %d", envelope.Data.Count)
	}
}

func TestHandlerDuplicateSettingsConflict(t *testing.T) {
	router, _ := newTestRouter(uuid.New())

	created := doJSON(t, router, http.MethodPost, "/sessions", validCreateRequest())
	if created.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", created.Code)
	}
	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}

	settings := CreateSettingsRequest{
		ForestayTension:   6,
		ShroudTension:     5,
		MastRake:          22,
		JibHalyardTension: "Medium",
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

	path := "/sessions/" + envelope.Data.ID + "/settings"
	if rec := doJSON(t, router, http.MethodPost, path, settings); rec.Code != http.StatusCreated {
		t.Fatalf("first settings create failed: %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, router, http.MethodPost, path, settings); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate settings, got %d", rec.Code)
	}
}

func TestHandlerAnalyticsBadDate(t *testing.T) {
	router, _ := newTestRouter(uuid.New())

	rec := doJSON(t, router, http.MethodGet, "/sessions/analytics/performance?start_date=03-2026", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerMissingUserContext(t *testing.T) {
	svc, _, _ := newTestService()
	r := chi.NewRouter()
	passthrough := func(next http.Handler) http.Handler { return next }
	RegisterRoutes(r, NewHandler(svc), passthrough)

	rec := doJSON(t, r, http.MethodGet, "/sessions", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context, got %d", rec.Code)
	}
}
