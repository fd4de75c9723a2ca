package api

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

	"github.com/homekey/stage-tracker/internal/cache"
	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/internal/store"
	"github.com/homekey/stage-tracker/internal/store/storetest"
	"github.com/homekey/stage-tracker/pkg/observability"
)

type testEnv struct {
	store   *storetest.Server
	client  *store.Client
	server  *Server
	metrics *observability.Metrics
}

func setupTestServer(t *testing.T, opts ...func(*storetest.Server, *store.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := storetest.NewServer(t)
	cfg := store.DefaultConfig()
	cfg.URL = srv.URL
	for _, opt := range opts {
		opt(srv, &cfg)
	}
	client, err := store.NewClient(cfg)
	require.NoError(t, err)
	require.NoError(t, client.Authenticate(context.Background()))

	metrics := observability.NewMetrics("test")
	server := NewServer(DefaultConfig(), Dependencies{
		Stages:   repository.NewStageRepository(client),
		Tasks:    repository.NewTaskRepository(client),
		Features: repository.NewFeatureRepository(client, cache.NewMemoryCache(8, time.Minute), time.Minute, nil, metrics),
		Store:    client,
		Metrics:  metrics,
	})
	return &testEnv{store: srv, client: client, server: server, metrics: metrics}
}

func (e *testEnv) do(method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestListStages_FilterByType(t *testing.T) {
	env := setupTestServer(t)
	env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Define Goals"})
	env.store.Seed("stages", map[string]interface{}{"type": "seller", "title": "Prep & Repairs"})
	env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Mortgage Shopping"})

	w := env.do(http.MethodGet, "/api/stages?type=buyer", "")
	require.Equal(t, http.StatusOK, w.Code)

	stages := decode[[]models.Stage](t, w)
	require.Len(t, stages, 2)
	for _, s := range stages {
		assert.Equal(t, models.StageTypeBuyer, s.Type)
	}
	assert.Equal(t, "Define Goals", stages[0].Title)
}

func TestListStages_EmptyIsArray(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(http.MethodGet, "/api/stages?type=seller", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListStages_StoreDown(t *testing.T) {
	env := setupTestServer(t)
	env.store.SetUnavailable(true)

	w := env.do(http.MethodGet, "/api/stages", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgInternal, decode[ErrorResponse](t, w).Error)
}

func TestStore_RejectedReauthenticationIs500(t *testing.T) {
	env := setupTestServer(t, func(srv *storetest.Server, cfg *store.Config) {
		srv.RequireAuth("api@homekey.test", "secret")
		srv.SetTokenTTL(30 * time.Second)
		cfg.Identity = "api@homekey.test"
		cfg.Password = "secret"
		cfg.TokenRefreshMargin = time.Minute
	})
	id := env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Appraisal"})

	// Password rotated on the store: every request must re-authenticate and fails.
	env.store.RequireAuth("api@homekey.test", "rotated")

	requests := []struct{ method, path, body string }{
		{http.MethodGet, "/api/stages?type=buyer", ""},
		{http.MethodGet, "/api/stages/" + id, ""},
		{http.MethodGet, "/api/tasks", ""},
		{http.MethodPost, "/api/stages", `{"type":"buyer","title":"Closing"}`},
		{http.MethodPatch, "/api/stages/" + id, `{"isCompleted":"true"}`},
	}
	for _, r := range requests {
		w := env.do(r.method, r.path, r.body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, "%s %s", r.method, r.path)
		assert.Equal(t, msgInternal, decode[ErrorResponse](t, w).Error)
	}
}

func TestListStages_FractionalDurations(t *testing.T) {
	env := setupTestServer(t)
	env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Appraisal", "duration": 2.5, "traditionalDuration": 7})

	w := env.do(http.MethodGet, "/api/stages?type=buyer", "")
	require.Equal(t, http.StatusOK, w.Code)
	stages := decode[[]models.Stage](t, w)
	require.Len(t, stages, 1)
	assert.Equal(t, 2.5, stages[0].Duration)
}

func TestGetStage(t *testing.T) {
	env := setupTestServer(t)
	id := env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Appraisal", "duration": 3, "traditionalDuration": 10})

	t.Run("Found", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/stages/"+id, "")
		require.Equal(t, http.StatusOK, w.Code)
		stage := decode[models.Stage](t, w)
		assert.Equal(t, id, stage.ID)
		assert.Equal(t, 10.0, stage.TraditionalDuration)
	})

	t.Run("Missing is 404 not 500", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/stages/doesnotexist", "")
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Stage not found", decode[ErrorResponse](t, w).Error)
	})

	t.Run("Store down is 500", func(t *testing.T) {
		env.store.SetUnavailable(true)
		defer env.store.SetUnavailable(false)

		w := env.do(http.MethodGet, "/api/stages/"+id, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCreateStage(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(http.MethodPost, "/api/stages", `{"type":"buyer","title":"Home Inspection","duration":2,"traditionalDuration":7}`)
	require.Equal(t, http.StatusCreated, w.Code)
	stage := decode[models.Stage](t, w)
	assert.NotEmpty(t, stage.ID)
	assert.Equal(t, 1, env.store.Count("stages"))

	t.Run("Rejected by store", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/stages", `{"type":"buyer"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, msgInvalidRequest, resp.Error)
		assert.Contains(t, resp.Fields, "title")
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/stages", `{"title":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgInvalidJSON, decode[ErrorResponse](t, w).Error)
	})
}

func TestToggleStage_RoundTrip(t *testing.T) {
	env := setupTestServer(t)
	id := env.store.Seed("stages", map[string]interface{}{"type": "seller", "title": "MLS Listing", "isCompleted": false})

	w := env.do(http.MethodPatch, "/api/stages/"+id, `{"isCompleted":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/stages/"+id, "")
	assert.True(t, decode[models.Stage](t, w).IsCompleted)

	w = env.do(http.MethodPatch, "/api/stages/"+id, `{"isCompleted":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/stages/"+id, "")
	assert.False(t, decode[models.Stage](t, w).IsCompleted)
}

func TestUpdate_CoercesStringBooleans(t *testing.T) {
	env := setupTestServer(t)
	stageID := env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Appraisal", "isCompleted": false})
	taskID := env.store.Seed("tasks", map[string]interface{}{"title": "Order appraisal", "isCompleted": false, "field": []interface{}{stageID}})

	w := env.do(http.MethodPatch, "/api/stages/"+stageID, `{"isCompleted":"true"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Stage](t, w).IsCompleted)
	assert.Equal(t, true, env.store.Record("stages", stageID)["isCompleted"])

	w = env.do(http.MethodPatch, "/api/tasks/"+taskID, `{"isCompleted":"TRUE"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Task](t, w).IsCompleted)
}

func TestUpdateStage_Missing(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(http.MethodPatch, "/api/stages/nope", `{"isCompleted":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteStage(t *testing.T) {
	env := setupTestServer(t)
	id := env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Closing & Funding"})

	w := env.do(http.MethodDelete, "/api/stages/"+id, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Nil(t, env.store.Record("stages", id))

	w = env.do(http.MethodDelete, "/api/stages/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasks(t *testing.T) {
	env := setupTestServer(t)
	s1 := env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Define Goals"})
	s2 := env.store.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Appraisal"})
	env.store.Seed("tasks", map[string]interface{}{"title": "Set budget", "field": []interface{}{s1}})
	env.store.Seed("tasks", map[string]interface{}{"title": "Order appraisal", "field": []interface{}{s2}})

	t.Run("List by stage", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/tasks?stageId="+s1, "")
		require.Equal(t, http.StatusOK, w.Code)
		tasks := decode[[]models.Task](t, w)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Set budget", tasks[0].Title)
	})

	t.Run("List all", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/tasks", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]models.Task](t, w), 2)
	})

	t.Run("Create and get", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/tasks", `{"title":"Compare lenders","isCompleted":false,"field":["`+s1+`"]}`)
		require.Equal(t, http.StatusCreated, w.Code)
		created := decode[models.Task](t, w)
		assert.Equal(t, []string{s1}, created.StageIDs)

		w = env.do(http.MethodGet, "/api/tasks/"+created.ID, "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Empty relation is kept", func(t *testing.T) {
		id := env.store.Seed("tasks", map[string]interface{}{"title": "Unassigned", "field": []interface{}{}})
		w := env.do(http.MethodGet, "/api/tasks/"+id, "")
		require.Equal(t, http.StatusOK, w.Code)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		assert.JSONEq(t, "[]", string(raw["field"]))
	})

	t.Run("Missing", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/tasks/nope", "")
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Task not found", decode[ErrorResponse](t, w).Error)
	})
}

func TestListFeatures(t *testing.T) {
	env := setupTestServer(t)
	env.store.Seed("features", map[string]interface{}{"type": "buyer", "title": "Smart search", "icon": "search"})
	env.store.Seed("features", map[string]interface{}{"type": "seller", "title": "AI pricing", "icon": "tag"})

	w := env.do(http.MethodGet, "/api/features?role=seller", "")
	require.Equal(t, http.StatusOK, w.Code)
	features := decode[[]models.Feature](t, w)
	require.Len(t, features, 1)
	assert.Equal(t, "AI pricing", features[0].Title)

	env.do(http.MethodGet, "/api/features?role=seller", "")
	assert.Equal(t, 1, env.store.Requests("GET features"))

	w = env.do(http.MethodGet, "/api/features?role=agent", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "closed", resp.Components["store_breaker"])

	env.store.SetUnavailable(true)
	w = env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode[HealthResponse](t, w).Components["store"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.do(http.MethodGet, "/api/stages", "")

	w := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `test_api_requests_total{method="GET",route="/api/stages",status="200"} 1`), body)
}
