package cardgen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/config"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore/sqlstoretest"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/errors"
)

type fakeQuery struct {
	ask func(combo port.Combination) (string, error)
}

func (f fakeQuery) Ask(_ context.Context, combo port.Combination) (string, error) {
	if f.ask != nil {
		return f.ask(combo)
	}
	return fmt.Sprintf("How does %s use it as %s in %s?", combo.Influencer.Name, combo.Persona.Label, combo.Environment.Label), nil
}

type fakeAnswer struct{}

func (fakeAnswer) Answer(_ context.Context, combo port.Combination, query string) (string, error) {
	return "I love " + combo.Brand.Name + ". " + query, nil
}

type fakeSafety struct {
	review func(query, response string) (*port.SafetyVerdict, error)
}

func (f fakeSafety) Review(_ context.Context, query, response string) (*port.SafetyVerdict, error) {
	if f.review != nil {
		return f.review(query, response)
	}
	return &port.SafetyVerdict{Approved: true, Recommendation: port.RecommendationApprove}, nil
}

type fakeBrief struct {
	brief func(combo port.Combination) (*port.ImageBrief, error)
}

func (f fakeBrief) Brief(_ context.Context, combo port.Combination, _, _ string) (*port.ImageBrief, error) {
	if f.brief != nil {
		return f.brief(combo)
	}
	return &port.ImageBrief{Prompt: "photo of " + combo.Influencer.Name}, nil
}

type fakeImages struct {
	mu         sync.Mutex
	requests   []port.ImageRequest
	generate   func(req port.ImageRequest) (*port.ImageResult, error)
	configured bool
}

func (f *fakeImages) Configured() bool { return f.configured }

func (f *fakeImages) Generate(_ context.Context, req port.ImageRequest) (*port.ImageResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.generate != nil {
		return f.generate(req)
	}
	return &port.ImageResult{Success: true, ImageURL: "https://img/card.png"}, nil
}

type fixture struct {
	store    *sqlstoretest.Store
	images   *fakeImages
	agents   Agents
	cfg      config.GenerationFeature
	brand    *entity.Brand
	personas []*entity.Persona
	envs     []*entity.Environment
	infs     []*entity.Influencer
}

func newFixture(t *testing.T, personas, envs, influencers int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:  sqlstoretest.New(t),
		images: &fakeImages{configured: true},
		agents: Agents{Query: fakeQuery{}, Answer: fakeAnswer{}, Safety: fakeSafety{}, Brief: fakeBrief{}},
		cfg: config.GenerationFeature{
			Concurrency:            2,
			MaxCombinations:        200,
			FallbackAllInfluencers: true,
		},
	}

	f.brand = entity.NewBrand("FlowForm", "flowform.io", "Ergonomic standing desks")
	f.brand.ProductImages = []string{"https://cdn/flowform-desk.png"}
	require.NoError(t, f.store.Brands.Create(ctx, f.brand))

	for i := 0; i < personas; i++ {
		p := entity.NewPersona(f.brand.ID, fmt.Sprintf("Persona %d", i+1), "", nil)
		require.NoError(t, f.store.Personas.Create(ctx, p))
		f.personas = append(f.personas, p)
	}
	for i := 0; i < envs; i++ {
		e := entity.NewEnvironment(f.brand.ID, fmt.Sprintf("Env %d", i+1), "", nil)
		require.NoError(t, f.store.Environments.Create(ctx, e))
		f.envs = append(f.envs, e)
	}
	for i := 0; i < influencers; i++ {
		inf := entity.NewInfluencer(fmt.Sprintf("Influencer %d", i+1), "fitness", "")
		inf.MarkReady(fmt.Sprintf("https://img/head-%d.png", i+1), []string{"a", "b"})
		require.NoError(t, f.store.Influencers.Create(ctx, inf))
		f.infs = append(f.infs, inf)
	}
	return f
}

func (f *fixture) pipeline(opts ...Option) *Pipeline {
	return NewPipeline(Deps{
		Brands:       f.store.Brands,
		Personas:     f.store.Personas,
		Environments: f.store.Environments,
		Influencers:  f.store.Influencers,
		Cards:        f.store.Cards,
		Agents:       f.agents,
		Images:       f.images,
		Tracker:      runtrack.NewTracker(f.store.Runs),
	}, f.cfg, opts...)
}

func (f *fixture) cards(t *testing.T) []*entity.Card {
	t.Helper()
	res, err := f.store.Cards.ListByBrand(context.Background(), f.brand.ID, nil, repository.NewPagination(1, 100))
	require.NoError(t, err)
	return res.Items
}

func (f *fixture) lastRun(t *testing.T) *entity.WorkflowRun {
	t.Helper()
	res, err := f.store.Runs.List(context.Background(), &repository.RunFilter{WorkflowName: entity.WorkflowCardGeneration}, repository.NewPagination(1, 1))
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	return res.Items[0]
}

func TestGenerateFlowFormWithOneSafetyRejection(t *testing.T) {
	f := newFixture(t, 1, 1, 2)
	rejected := f.infs[1].Name
	f.agents.Safety = fakeSafety{review: func(query, _ string) (*port.SafetyVerdict, error) {
		if strings.Contains(query, rejected) {
			return &port.SafetyVerdict{Approved: true, Recommendation: port.RecommendationReject, Issues: []string{"unsafe claim"}}, nil
		}
		return &port.SafetyVerdict{Approved: true, Recommendation: port.RecommendationApprove}, nil
	}}

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalCombinations)
	assert.Equal(t, 1, res.TotalGenerated)
	assert.Equal(t, 1, res.TotalSkipped)
	assert.Len(t, res.CardIDs, 1)

	cards := f.cards(t)
	require.Len(t, cards, 1)
	assert.Equal(t, entity.CardStatusDraft, cards[0].Status)
	assert.Equal(t, f.infs[0].ID, cards[0].InfluencerID)
	assert.Equal(t, res.CardIDs[0], cards[0].ID)

	run := f.lastRun(t)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
	assert.Contains(t, string(run.Output), `"total_skipped":1`)
}

func TestGenerateFansOutEveryCombination(t *testing.T) {
	f := newFixture(t, 2, 3, 2)

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, res.TotalCombinations)
	assert.Equal(t, 12, res.TotalGenerated)

	seen := map[string]struct{}{}
	for _, c := range f.cards(t) {
		require.NotNil(t, c.PersonaID)
		require.NotNil(t, c.EnvironmentID)
		seen[*c.PersonaID+"/"+*c.EnvironmentID+"/"+c.InfluencerID] = struct{}{}
	}
	assert.Len(t, seen, 12)
}

func TestGenerateImageFailureStillPersistsCard(t *testing.T) {
	f := newFixture(t, 1, 1, 2)
	f.images.generate = func(req port.ImageRequest) (*port.ImageResult, error) {
		if strings.Contains(req.Prompt, f.infs[0].Name) {
			return &port.ImageResult{Success: false, Error: "provider timeout"}, nil
		}
		return &port.ImageResult{Success: true, ImageURL: "https://img/ok.png"}, nil
	}

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalGenerated)
	assert.Equal(t, 1, res.TotalImageFailures)

	byInfluencer := map[string]string{}
	for _, c := range f.cards(t) {
		byInfluencer[c.InfluencerID] = c.ImageURL
	}
	assert.Equal(t, "", byInfluencer[f.infs[0].ID])
	assert.Equal(t, "https://img/ok.png", byInfluencer[f.infs[1].ID])
}

func TestGenerateImageReferences(t *testing.T) {
	f := newFixture(t, 1, 1, 1)

	_, err := f.pipeline(WithImageSize("1K")).Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)

	require.Len(t, f.images.requests, 1)
	req := f.images.requests[0]
	assert.Equal(t, []string{f.infs[0].ImageURL, "https://cdn/flowform-desk.png"}, req.ReferenceImageURLs)
	assert.Equal(t, "1K", req.ImageSize)
}

func TestGenerateHardFailuresRecordFailedRun(t *testing.T) {
	f := newFixture(t, 0, 1, 1)
	p := f.pipeline()

	_, err := p.Generate(context.Background(), f.brand.ID)
	assert.ErrorIs(t, err, errors.ErrNoPersonas)
	assert.Equal(t, entity.RunStatusFailed, f.lastRun(t).Status)

	_, err = p.Generate(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrBrandNotFound)
}

func TestGenerateFailsFastWithoutImageService(t *testing.T) {
	f := newFixture(t, 1, 1, 1)
	f.images.configured = false

	_, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	assert.ErrorIs(t, err, errors.ErrServiceUnavailable)
	assert.Empty(t, f.cards(t))
}

func TestGenerateInfluencerFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 1, 2)
	for _, inf := range f.infs {
		_, err := f.store.Influencers.SetEnabled(ctx, inf.ID, false)
		require.NoError(t, err)
	}

	res, err := f.pipeline().Generate(ctx, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalGenerated)

	f.cfg.FallbackAllInfluencers = false
	_, err = f.pipeline().Generate(ctx, f.brand.ID)
	assert.ErrorIs(t, err, errors.ErrNoInfluencers)
}

func TestGenerateCapsCombinations(t *testing.T) {
	f := newFixture(t, 2, 2, 1)
	f.cfg.MaxCombinations = 3

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCombinations)
	assert.True(t, res.Truncated)
	assert.Contains(t, res.Message, "capped at 3 of 4")
}

func TestGenerateDedupsWithinAndAcrossRuns(t *testing.T) {
	f := newFixture(t, 1, 1, 3)
	f.agents.Query = fakeQuery{ask: func(port.Combination) (string, error) {
		return "  Is the desk   stable? ", nil
	}}
	p := f.pipeline()

	res, err := p.Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalGenerated)
	assert.Equal(t, 2, res.TotalDuplicates)

	f.agents.Query = fakeQuery{ask: func(port.Combination) (string, error) {
		return "is the desk stable", nil
	}}
	res, err = f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalGenerated)
	assert.Equal(t, 3, res.TotalDuplicates)
	assert.Len(t, f.cards(t), 1)
}

type fakeIndex struct {
	mu    sync.Mutex
	added []string
	score float32
}

func (x *fakeIndex) Similarity(context.Context, string, string) (float32, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.added) == 0 {
		return 0, nil
	}
	return x.score, nil
}

func (x *fakeIndex) Add(_ context.Context, cardID, _, _ string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.added = append(x.added, cardID)
	return nil
}

func (x *fakeIndex) Remove(context.Context, []string) error { return nil }

func TestGenerateSemanticDedup(t *testing.T) {
	f := newFixture(t, 1, 1, 3)
	f.cfg.SemanticDedup = true
	f.cfg.Concurrency = 1
	index := &fakeIndex{score: 0.97}

	res, err := f.pipeline(WithQueryIndex(index, 0.92)).Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalGenerated)
	assert.Equal(t, 2, res.TotalDuplicates)
	assert.Len(t, index.added, 1)
}

func TestGenerateSafetyParsingFailsClosed(t *testing.T) {
	f := newFixture(t, 1, 1, 1)
	f.agents.Safety = fakeSafety{review: func(string, string) (*port.SafetyVerdict, error) {
		return nil, fmt.Errorf("%w: not json", port.ErrMalformedOutput)
	}}

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalGenerated)
	assert.Equal(t, 1, res.TotalSkipped)

	f.cfg.SafetyFailOpen = true
	res, err = f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalGenerated)
}

func TestGenerateBriefFallbackAndAgentFailure(t *testing.T) {
	f := newFixture(t, 1, 1, 2)
	f.agents.Brief = fakeBrief{brief: func(port.Combination) (*port.ImageBrief, error) {
		return nil, fmt.Errorf("%w: empty prompt", port.ErrMalformedOutput)
	}}
	f.agents.Answer = failingAnswer{name: f.infs[1].Name}

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalGenerated)
	assert.Equal(t, 1, res.TotalFailed)

	require.Len(t, f.images.requests, 1)
	assert.Contains(t, f.images.requests[0].Prompt, f.infs[0].Name)
	assert.Contains(t, f.images.requests[0].Prompt, "FlowForm")
	assert.Contains(t, f.images.requests[0].Prompt, "Env 1")
}

type failingAnswer struct{ name string }

func (a failingAnswer) Answer(_ context.Context, combo port.Combination, query string) (string, error) {
	if combo.Influencer.Name == a.name {
		return "", errors.ErrLLMCallFailed
	}
	return "answer", nil
}

// flakyAnswer 仅第一次调用失败
type flakyAnswer struct{ calls atomic.Int32 }

func (a *flakyAnswer) Answer(_ context.Context, _ port.Combination, query string) (string, error) {
	if a.calls.Add(1) == 1 {
		return "", errors.ErrLLMCallFailed
	}
	return "answer to " + query, nil
}

func TestGenerateReleasesQueryAfterFailedCombination(t *testing.T) {
	f := newFixture(t, 1, 1, 2)
	f.cfg.Concurrency = 1
	f.agents.Query = fakeQuery{ask: func(port.Combination) (string, error) {
		return "Is the desk stable?", nil
	}}
	f.agents.Answer = &flakyAnswer{}

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalGenerated)
	assert.Equal(t, 1, res.TotalFailed)
	assert.Equal(t, 0, res.TotalDuplicates)

	cards := f.cards(t)
	require.Len(t, cards, 1)
	assert.Equal(t, "Is the desk stable?", cards[0].Query)
}

// inflightQuery 记录同时进行中的调用峰值
type inflightQuery struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (q *inflightQuery) Ask(_ context.Context, combo port.Combination) (string, error) {
	n := q.current.Add(1)
	defer q.current.Add(-1)
	for {
		peak := q.peak.Load()
		if n <= peak || q.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return fmt.Sprintf("Q %s %s %s?", combo.Persona.ID, combo.Environment.ID, combo.Influencer.ID), nil
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	f := newFixture(t, 2, 3, 2)
	query := &inflightQuery{}
	f.agents.Query = query

	res, err := f.pipeline().Generate(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, res.TotalGenerated)
	assert.LessOrEqual(t, query.peak.Load(), int32(f.cfg.Concurrency))
	assert.Equal(t, int32(2), query.peak.Load())
}

type fakeJobs struct{ brandIDs []string }

func (q *fakeJobs) PublishCardGeneration(_ context.Context, brandID string) (string, error) {
	q.brandIDs = append(q.brandIDs, brandID)
	return "1-0", nil
}

func TestGenerateAsync(t *testing.T) {
	f := newFixture(t, 1, 1, 1)

	_, err := f.pipeline().GenerateAsync(context.Background(), f.brand.ID)
	assert.ErrorIs(t, err, errors.ErrServiceUnavailable)

	jobs := &fakeJobs{}
	id, err := f.pipeline(WithJobQueue(jobs)).GenerateAsync(context.Background(), f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, "1-0", id)
	assert.Equal(t, []string{f.brand.ID}, jobs.brandIDs)

	_, err = f.pipeline(WithJobQueue(jobs)).GenerateAsync(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrBrandNotFound)
}

type fixedScore float32

func (s fixedScore) Similarity(context.Context, string, string) (float32, error) { return float32(s), nil }
func (fixedScore) Add(context.Context, string, string, string) error             { return nil }
func (fixedScore) Remove(context.Context, []string) error                        { return nil }

func TestDeduperSemanticThresholdIsExclusive(t *testing.T) {
	ctx := context.Background()

	d := newDeduper(nil, fixedScore(0.92), 0.92)
	assert.True(t, d.claim(ctx, "b1", "Is it quiet?"), "score equal to threshold is kept")

	d = newDeduper(nil, fixedScore(0.93), 0.92)
	assert.False(t, d.claim(ctx, "b1", "Is it quiet?"))

	d = newDeduper([]string{"Is it quiet?"}, nil, 0)
	assert.False(t, d.claim(ctx, "b1", "is it quiet"))
	d.release("IS IT QUIET")
	assert.True(t, d.claim(ctx, "b1", "is it quiet"))
}
