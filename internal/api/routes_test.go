package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/prasasta/revoice/adapters/filestore"
	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/internal/auth"
	"github.com/prasasta/revoice/internal/registry"
)

func newTestServer(t *testing.T) (*Server, *echo.Echo, *registry.Registry) {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	reg := registry.New(filestore.NewTaskRepository(store), logger)
	srv := NewServer(reg, nil, nil, nil, nil, nil, nil, auth.NewManager("test-secret"), logger)

	e := echo.New()
	srv.InitRoutes(e)
	return srv, e, reg
}

func TestHealthEndpoint(t *testing.T) {
	_, e, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestIssueToken(t *testing.T) {
	_, e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		strings.NewReader(`{"user_id":"caller-1","service":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["token"])

	claims, err := auth.NewManager("test-secret").ValidateToken(body["token"])
	require.NoError(t, err)
	assert.Equal(t, "caller-1", claims.UserID)
	assert.Equal(t, "service", claims.Role)
}

func TestIssueToken_MissingUserID(t *testing.T) {
	_, e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTask(t *testing.T) {
	_, e, reg := newTestServer(t)

	task, err := reg.Create(httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		entities.TaskKindSynthesis, "voice-1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+task.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, task.ID, body.TaskID)
	assert.Equal(t, entities.TaskStatusPending, body.Status)
}

func TestGetTask_NotFound(t *testing.T) {
	_, e, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/tts_0_missing", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error)
}

func TestCancelTask_NoWorker(t *testing.T) {
	_, e, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tasks/tts_0_missing/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	_, e, reg := newTestServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	_, err := reg.Create(ctx, entities.TaskKindSynthesis, "voice-1")
	require.NoError(t, err)
	_, err = reg.Create(ctx, entities.TaskKindTranscription, "asset-1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		TotalTasks int                       `json:"total_tasks"`
		Tasks      map[string]map[string]int `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.TotalTasks)
	assert.Equal(t, 1, body.Tasks["tts"]["pending"])
	assert.Equal(t, 1, body.Tasks["transcribe"]["pending"])
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err       error
		wantCode  int
		wantLabel string
	}{
		{entities.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("task x: %w", entities.ErrNotFound), http.StatusNotFound, "not_found"},
		{entities.ErrPrerequisiteNotReady, http.StatusConflict, "prerequisite_not_ready"},
		{entities.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("%w: bad header", entities.ErrMediaUnreadable), http.StatusUnprocessableEntity, "media_unreadable"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		code, label := statusOf(tc.err)
		assert.Equal(t, tc.wantCode, code, tc.err.Error())
		assert.Equal(t, tc.wantLabel, label, tc.err.Error())
	}
}

func TestSynthesisRequestBody_Params(t *testing.T) {
	defaults := SynthesisRequestBody{}.Params()
	assert.Equal(t, 1.0, defaults.Speed)
	assert.Equal(t, 0.0, defaults.Pitch)
	assert.Equal(t, 1.0, defaults.Energy)

	custom := SynthesisRequestBody{Speed: 1.5, Pitch: 0.2, Emotion: "happy"}.Params()
	assert.Equal(t, 1.5, custom.Speed)
	assert.Equal(t, 0.2, custom.Pitch)
	assert.Equal(t, "happy", custom.Emotion)

	// Out-of-range values are clamped, not rejected.
	wild := SynthesisRequestBody{Speed: 99, Pitch: -5, Energy: 0.01}.Params()
	assert.Equal(t, entities.MaxSpeed, wild.Speed)
	assert.Equal(t, entities.MinPitch, wild.Pitch)
	assert.Equal(t, entities.MinEnergy, wild.Energy)
}
