package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatus struct{ state string }

func (s stubStatus) CurrentState() string { return s.state }

// stubResumer stands in for *fsm.Engine: calling Resume both clears the
// surface's pause flag and records that the real effect-re-entry path was
// reached, the way fsm.Engine.Resume does.
type stubResumer struct {
	surface *Surface
	calls   int
}

func (s *stubResumer) Resume(ctx context.Context) error {
	s.calls++
	s.surface.Resume()
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHTTPAPI_PauseResume(t *testing.T) {
	surface := NewSurface(0)
	resumer := &stubResumer{surface: surface}
	router := NewRouter(surface, stubStatus{state: "STEP_RUNNING"}, resumer)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pause", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, surface.IsPaused())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/resume", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, surface.IsPaused())
	assert.Equal(t, 1, resumer.calls)
}

func TestHTTPAPI_SetMaxSteps(t *testing.T) {
	surface := NewSurface(0)
	router := NewRouter(surface, stubStatus{state: "IDLE"}, &stubResumer{surface: surface})

	body, _ := json.Marshal(map[string]int{"n": 3})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/max-steps", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, surface.MaxSteps())
}

func TestHTTPAPI_SetMaxSteps_RejectsNegative(t *testing.T) {
	surface := NewSurface(0)
	router := NewRouter(surface, stubStatus{state: "IDLE"}, &stubResumer{surface: surface})

	body, _ := json.Marshal(map[string]int{"n": -1})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/max-steps", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPAPI_Status(t *testing.T) {
	surface := NewSurface(5)
	surface.IncrementStep()
	router := NewRouter(surface, stubStatus{state: "BEHAVIOR_RUNNING"}, &stubResumer{surface: surface})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BEHAVIOR_RUNNING", body["state"])
	assert.EqualValues(t, 1, body["step_counter"])
}
