package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/application/cardgen"
	"brand-card-studio/internal/application/dataset"
	"brand-card-studio/internal/application/influencer"
	"brand-card-studio/internal/application/onboarding"
	"brand-card-studio/internal/application/publishing"
	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/config"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore/sqlstoretest"
	"brand-card-studio/internal/interfaces/http/handler"
	"brand-card-studio/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOnboarder struct {
	store *sqlstoretest.Store
}

func (f *fakeOnboarder) Onboard(ctx context.Context, in onboarding.Input) (*onboarding.Result, error) {
	brand := entity.NewBrand(in.Name, in.Domain, in.Description)
	if err := f.store.Brands.Create(ctx, brand); err != nil {
		return nil, err
	}
	return &onboarding.Result{
		Brand:    brand,
		Personas: []*entity.Persona{entity.NewPersona(brand.ID, "Remote worker", "", nil)},
	}, nil
}

type fakeGenerator struct {
	result *cardgen.GenerateResult
	err    error
	queued []string
}

func (f *fakeGenerator) Generate(context.Context, string) (*cardgen.GenerateResult, error) {
	return f.result, f.err
}

func (f *fakeGenerator) GenerateAsync(_ context.Context, brandID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.queued = append(f.queued, brandID)
	return "1-0", nil
}

type fakeProvisioner struct{}

func (fakeProvisioner) Provision(_ context.Context, d influencer.Draft) (*entity.Influencer, error) {
	return entity.NewInfluencer(d.Name, d.Domain, d.Bio), nil
}

func (fakeProvisioner) FindNew(_ context.Context, count int) ([]*entity.Influencer, error) {
	out := make([]*entity.Influencer, count)
	for i := range out {
		out[i] = entity.NewInfluencer("Pool", "", "")
	}
	return out, nil
}

func (fakeProvisioner) ProvisionImagery(context.Context, string) (*entity.Influencer, error) {
	return nil, errors.ErrServiceUnavailable.WithDetail("image api key missing")
}

func (fakeProvisioner) SetEnabled(context.Context, string, bool) (*entity.Influencer, error) {
	return nil, errors.ErrInfluencerNotFound
}

func (fakeProvisioner) UpdateProfile(_ context.Context, _ string, patch influencer.ProfilePatch) (*entity.Influencer, error) {
	if patch.Name != nil && *patch.Name == "ava" {
		return nil, errors.ErrConflict.WithDetail("influencer name already exists")
	}
	return nil, errors.ErrInfluencerNotFound
}

type denyAll struct{ keys []string }

func (d *denyAll) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	d.keys = append(d.keys, key)
	return false, nil
}

type testEnv struct {
	engine    *gin.Engine
	store     *sqlstoretest.Store
	generator *fakeGenerator
}

func newTestEnv(t *testing.T, limiter *denyAll) *testEnv {
	t.Helper()
	store := sqlstoretest.New(t)
	tracker := runtrack.NewTracker(store.Runs)
	generator := &fakeGenerator{result: &cardgen.GenerateResult{TotalGenerated: 2, TotalCombinations: 2}}

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Storage.Backend = config.StorageBackendLocal
	cfg.Storage.Local.Dir = t.TempDir()
	cfg.Storage.Local.URLPrefix = "/media"
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute}

	h := &Handlers{
		Health:       handler.NewHealthHandler("test", store.Client, map[string]handler.HealthChecker{"redis": nil}),
		Brand:        handler.NewBrandHandler(store.Brands, &fakeOnboarder{store: store}, nil),
		Persona:      handler.NewPersonaHandler(store.Brands, store.Personas, store.Environments),
		Influencer:   handler.NewInfluencerHandler(store.Influencers, fakeProvisioner{}),
		Card:         handler.NewCardHandler(store.Cards, generator, publishing.NewService(store.Cards, tracker, 5), nil),
		Run:          handler.NewRunHandler(store.Runs),
		Dataset:      handler.NewDatasetHandler(dataset.NewRenderer(store.Brands, store.Cards, store.Influencers)),
		RateLimitKey: func(ip, endpoint string) string { return endpoint + ":" + ip },
	}
	if limiter != nil {
		h.RateLimiter = limiter
	}
	return &testEnv{engine: New(cfg, h).Engine(), store: store, generator: generator}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Data
}

func (e *testEnv) seedBrand(t *testing.T) *entity.Brand {
	t.Helper()
	brand := entity.NewBrand("FlowForm", "flowform.io", "")
	require.NoError(t, e.store.Brands.Create(context.Background(), brand))
	return brand
}

func (e *testEnv) seedCard(t *testing.T, brandID string, published bool) *entity.Card {
	t.Helper()
	card := entity.NewDraftCard(brandID, "inf-1", "", "")
	card.Query = "How tall should my desk be?"
	card.Response = "Elbows at ninety degrees."
	if published {
		card.Publish(time.Now())
	}
	require.NoError(t, e.store.Cards.Create(context.Background(), card))
	return card
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/live", nil).Code)

	w := env.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":{"status":"disabled"}`)
}

func TestOnboardBrand(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/v1/brands", map[string]any{
		"name":            "FlowForm",
		"content_sources": []string{"https://flowform.io"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[map[string]any](t, w)
	brand := res["brand"].(map[string]any)
	assert.Equal(t, "flowform", brand["url_slug"])
	assert.Equal(t, "/dataset/flowform", brand["dataset_url"])

	w = env.do(http.MethodPost, "/v1/brands", map[string]any{"name": "NoSources"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBrandNotFoundCarriesErrorCode(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/v1/brands/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"3001"`)
}

func TestPersonaLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	brand := env.seedBrand(t)

	w := env.do(http.MethodPost, "/v1/brands/"+brand.ID+"/personas", map[string]any{"label": "Night owl coder", "tags": []string{"dev", "Dev"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, []any{"dev"}, created["tags"])

	w = env.do(http.MethodGet, "/v1/brands/"+brand.ID+"/personas", nil)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	id := created["id"].(string)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/v1/personas/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/v1/personas/"+id, nil).Code)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/v1/brands/missing/environments", map[string]any{"label": "Office"}).Code)
}

func TestGenerateCards(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/v1/brands/b1/cards/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[cardgen.GenerateResult](t, w).TotalGenerated)

	w = env.do(http.MethodPost, "/v1/brands/b1/cards/generate?async=true", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"b1"}, env.generator.queued)

	env.generator.err = errors.ErrServiceUnavailable.WithDetail("image api key missing")
	w = env.do(http.MethodPost, "/v1/brands/b1/cards/generate", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "image api key missing")
}

func TestGenerateIsRateLimited(t *testing.T) {
	limiter := &denyAll{}
	env := newTestEnv(t, limiter)

	w := env.do(http.MethodPost, "/v1/brands/b1/cards/generate", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Contains(t, limiter.keys[0], "/v1/brands/:id/cards/generate")

	// 非生成接口不限流
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/v1/influencers", nil).Code)
}

func TestPublishScenario(t *testing.T) {
	env := newTestEnv(t, nil)
	brand := env.seedBrand(t)
	draft := env.seedCard(t, brand.ID, false)
	published := env.seedCard(t, brand.ID, true)

	w := env.do(http.MethodPost, "/v1/cards/publish", map[string]any{
		"card_ids": []string{draft.ID, published.ID, "missing"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[publishing.PublishResult](t, w)
	assert.Equal(t, 1, res.PublishedCount)
	assert.Equal(t, 2, res.InvalidCount)
	assert.Equal(t, 0, res.FailedCount)

	w = env.do(http.MethodPost, "/v1/cards/unpublish", map[string]any{"card_ids": []string{draft.ID}})
	assert.Equal(t, int64(1), decode[publishing.BulkResult](t, w).AffectedCount)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/cards/publish", map[string]any{}).Code)
}

func TestCardCounters(t *testing.T) {
	env := newTestEnv(t, nil)
	brand := env.seedBrand(t)
	card := env.seedCard(t, brand.ID, true)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/v1/cards/"+card.ID+"/view", nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/v1/cards/"+card.ID+"/share", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/v1/cards/missing/view", nil).Code)

	got := decode[map[string]any](t, env.do(http.MethodGet, "/v1/cards/"+card.ID, nil))
	assert.EqualValues(t, 1, got["view_count"])
	assert.EqualValues(t, 1, got["share_count"])

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/v1/cards/"+card.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/v1/cards/"+card.ID, nil).Code)
}

func TestInfluencerErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/v1/influencers/abc/retry", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(http.MethodPost, "/v1/influencers/abc/enabled", map[string]any{"enabled": false})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/v1/influencers/abc/enabled", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/v1/influencers/abc", map[string]any{"name": "ava"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPut, "/v1/influencers/abc", map[string]any{"bio": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/v1/influencers/find-new", map[string]any{"count": 3})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, decode[map[string][]any](t, w)["influencers"], 3)
}

func TestDatasetPage(t *testing.T) {
	env := newTestEnv(t, nil)
	brand := env.seedBrand(t)
	env.seedCard(t, brand.ID, true)

	w := env.do(http.MethodGet, "/dataset/"+brand.URLSlug, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "How tall should my desk be?")

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/dataset/missing", nil).Code)
}

func TestRunsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	brand := env.seedBrand(t)
	draft := env.seedCard(t, brand.ID, false)
	env.do(http.MethodPost, "/v1/cards/publish", map[string]any{"card_ids": []string{draft.ID}})

	w := env.do(http.MethodGet, "/v1/runs?workflow="+entity.WorkflowCardPublish, nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[map[string][]map[string]any](t, w)["runs"]
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0]["status"])

	id := runs[0]["id"].(string)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/v1/runs/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/v1/runs/missing", nil).Code)
}
