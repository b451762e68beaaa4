package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitenkr2030/VisualVerse-sub004/internal/api/handler"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/api/router"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/engine"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/renderer"
)

func newTestRouter(t *testing.T, render renderer.RenderFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e, err := engine.New(engine.Config{
		Logger:            logger,
		Renderer:          render,
		MaxConcurrentJobs: 2,
		PollInterval:      5 * time.Millisecond,
		WaitPollInterval:  5 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Stop)

	return router.SetupRouter(&handler.Dependencies{
		Logger: logger,
		Engine: e,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "render-service")
}

func TestSubmitWaitAndStatusRoundTrip(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/render/jobs", map[string]any{
		"scene_config":       map[string]any{"title": "T"},
		"priority":           1,
		"estimated_duration": 60,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	submitted := decode[map[string]string](t, w)
	jobID := submitted["job_id"]
	require.NotEmpty(t, jobID)
	assert.Equal(t, "PENDING", submitted["status"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/"+jobID+"/wait?timeout=5s", nil)
	require.Equal(t, http.StatusOK, w.Code)
	waited := decode[map[string]string](t, w)
	assert.Equal(t, "COMPLETED", waited["status"])
	assert.Equal(t, "/tmp/out.mp4", waited["result_path"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[map[string]any](t, w)
	assert.Equal(t, "COMPLETED", job["status"])
	assert.Equal(t, "/tmp/out.mp4", job["result_path"])
	assert.Equal(t, float64(60), job["estimated_duration"])
}

func TestSubmitRejectsMissingSceneConfig(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/render/jobs", map[string]any{
		"priority": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetJobNotFound(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	w := doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/no-such-job", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelJobConflictWhenFinished(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/render/jobs", map[string]any{
		"scene_config": map[string]any{"title": "T"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := decode[map[string]string](t, w)["job_id"]

	w = doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/"+jobID+"/wait?timeout=5s", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/render/jobs/"+jobID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/render/jobs/no-such-job/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWaitTimeoutResponse(t *testing.T) {
	gate := make(chan struct{})

	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		<-gate
		return "/tmp/out.mp4", nil
	})
	// Registered after newTestRouter so the gate opens before engine Stop.
	t.Cleanup(func() { close(gate) })

	w := doJSON(t, r, http.MethodPost, "/api/v1/render/jobs", map[string]any{
		"scene_config": map[string]any{"title": "slow"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := decode[map[string]string](t, w)["job_id"]

	w = doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/"+jobID+"/wait?timeout=50ms", nil)
	assert.Equal(t, http.StatusRequestTimeout, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/"+jobID+"/wait?timeout=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueStatusEndpoint(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	w := doJSON(t, r, http.MethodGet, "/api/v1/render/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	stats := decode[map[string]int](t, w)
	assert.Equal(t, 2, stats["max_concurrent_jobs"])
	assert.Equal(t, 0, stats["pending"])
}

func TestCleanupEndpoint(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/render/jobs", map[string]any{
		"scene_config": map[string]any{"title": "T"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := decode[map[string]string](t, w)["job_id"]

	w = doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/"+jobID+"/wait?timeout=5s", nil)
	require.Equal(t, http.StatusOK, w.Code)

	time.Sleep(20 * time.Millisecond)

	w = doJSON(t, r, http.MethodPost, "/api/v1/render/cleanup", map[string]any{
		"max_age": "10ms",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["removed"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/render/jobs/"+jobID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/render/cleanup", map[string]any{
		"max_age": "not-a-duration",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenderSyncEndpoint(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/sync.mp4", nil
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/render/sync", map[string]any{
		"scene_config": map[string]any{"title": "T"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/tmp/sync.mp4", decode[map[string]string](t, w)["output_path"])

	// Synchronous renders never show up in queue accounting.
	w = doJSON(t, r, http.MethodGet, "/api/v1/render/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]int](t, w)
	assert.Equal(t, 0, stats["pending"]+stats["active"]+stats["completed"])
}

func TestListJobsEndpoint(t *testing.T) {
	r := newTestRouter(t, func(ctx context.Context, sceneConfig map[string]any) (string, error) {
		return "/tmp/out.mp4", nil
	})

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/v1/render/jobs", map[string]any{
			"scene_config": map[string]any{"index": i},
		})
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	require.Eventually(t, func() bool {
		w := doJSON(t, r, http.MethodGet, "/api/v1/render/jobs?status=COMPLETED", nil)
		if w.Code != http.StatusOK {
			return false
		}
		var resp struct {
			Jobs []map[string]any `json:"jobs"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		return len(resp.Jobs) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
