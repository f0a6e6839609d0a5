package batch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/pkg/models"
)

func (f *fixture) idle() bool {
	if f.runner.busy.TryLock() {
		f.runner.busy.Unlock()
		return true
	}
	return false
}

func TestHandler_StartAndInspect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t, 2, Options{})

	r := gin.New()
	NewHandler(context.Background(), f.runner, f.runner.runs).RegisterRoutes(r.Group("/runs"), r.Group("/admin/runs"))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/admin/runs", `{"mode":"all"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var run models.ScrapeRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, models.RunRunning, run.Status)

	require.Eventually(t, f.idle, 5*time.Second, 10*time.Millisecond)

	rec = do(http.MethodGet, "/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, models.RunCompleted, run.Status)
	assert.Equal(t, 2, run.Processed)

	rec = do(http.MethodGet, "/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), run.ID)

	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/admin/runs/"+run.ID+"/resume", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodPost, "/admin/runs/nope/resume", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/runs/nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/admin/runs", `{"mode":"id-range","start_id":3}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/admin/runs", `{}`).Code)
}

func TestScheduler(t *testing.T) {
	f := newFixture(t, 1, Options{})

	_, err := NewScheduler(context.Background(), f.runner, "not a cron line", nil)
	assert.Error(t, err)

	s, err := NewScheduler(context.Background(), f.runner, "@every 1h", nil)
	require.NoError(t, err)
	s.Start()
	s.Stop()

	// a refresh that finds a run in progress is skipped
	require.True(t, f.runner.busy.TryLock())
	s.refresh(context.Background())
	f.runner.busy.Unlock()

	s.refresh(context.Background())
	runs, err := f.runner.runs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, string(ModeAll), runs[0].Mode)
}
