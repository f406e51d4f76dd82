package onboarding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore/sqlstoretest"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/errors"
)

type fakeFetcher struct {
	fetchAll func(sources []string) ([]string, error)
}

func (f fakeFetcher) FetchAll(_ context.Context, sources []string) ([]string, error) {
	if f.fetchAll != nil {
		return f.fetchAll(sources)
	}
	return sources, nil
}

type fakeAnalyzer struct {
	analysis *port.Analysis
	err      error
	got      []string
}

func (a *fakeAnalyzer) Analyze(_ context.Context, sources []string) (*port.Analysis, error) {
	a.got = sources
	return a.analysis, a.err
}

func items(prefix string, n int) []port.AnalyzedItem {
	out := make([]port.AnalyzedItem, n)
	for i := range out {
		out[i] = port.AnalyzedItem{Label: fmt.Sprintf("%s %d", prefix, i+1), Tags: []string{"t"}}
	}
	return out
}

func newService(t *testing.T, fetcher ContentFetcher, analyzer port.ContentAnalyzer) (*Service, *sqlstoretest.Store) {
	t.Helper()
	store := sqlstoretest.New(t)
	return NewService(store.Brands, store.Personas, store.Environments, store.Tx, fetcher, analyzer, runtrack.NewTracker(store.Runs)), store
}

func TestOnboardCreatesBrandWithUniqueSlug(t *testing.T) {
	ctx := context.Background()
	analyzer := &fakeAnalyzer{analysis: &port.Analysis{Personas: items("Persona", 3), Environments: items("Env", 4)}}
	svc, store := newService(t, fakeFetcher{}, analyzer)

	in := Input{
		Name:           "FlowForm",
		Domain:         "flowform.io",
		ContentSources: []string{"Standing desks for small offices", " "},
		ProductImages:  []string{"https://cdn/desk.png"},
	}

	var slugs []string
	for i := 0; i < 3; i++ {
		res, err := svc.Onboard(ctx, in)
		require.NoError(t, err)
		slugs = append(slugs, res.Brand.URLSlug)
		assert.Len(t, res.Personas, 3)
		assert.Len(t, res.Environments, 4)
	}
	assert.Equal(t, []string{"flowform", "flowform-2", "flowform-3"}, slugs)
	assert.Equal(t, []string{"Standing desks for small offices"}, analyzer.got)

	brand, err := store.Brands.GetBySlug(ctx, "flowform-2")
	require.NoError(t, err)
	require.NotNil(t, brand)
	assert.Equal(t, []string{"https://cdn/desk.png"}, brand.ProductImages)

	personas, err := store.Personas.ListByBrand(ctx, brand.ID)
	require.NoError(t, err)
	assert.Len(t, personas, 3)
}

func TestOnboardInsufficientAnalysisCreatesNothing(t *testing.T) {
	ctx := context.Background()
	analyzer := &fakeAnalyzer{err: errors.ErrInsufficientAnalysis.WithDetail("2 personas")}
	svc, store := newService(t, fakeFetcher{}, analyzer)

	_, err := svc.Onboard(ctx, Input{Name: "Thin", ContentSources: []string{"text"}})
	assert.ErrorIs(t, err, errors.ErrInsufficientAnalysis)

	list, err := store.Brands.List(ctx, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	runs, err := store.Runs.List(ctx, &repository.RunFilter{WorkflowName: entity.WorkflowBrandOnboarding}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, runs.Items, 1)
	assert.Equal(t, entity.RunStatusFailed, runs.Items[0].Status)
}

func TestOnboardValidatesInput(t *testing.T) {
	svc, _ := newService(t, fakeFetcher{}, &fakeAnalyzer{})

	_, err := svc.Onboard(context.Background(), Input{ContentSources: []string{"x"}})
	assert.ErrorIs(t, err, errors.ErrInvalidParam)

	_, err = svc.Onboard(context.Background(), Input{Name: "NoSources"})
	assert.ErrorIs(t, err, errors.ErrInvalidParam)
}

func TestOnboardFetchFailure(t *testing.T) {
	fetcher := fakeFetcher{fetchAll: func([]string) ([]string, error) {
		return nil, errors.ErrContentFetchFailed
	}}
	svc, _ := newService(t, fetcher, &fakeAnalyzer{})

	_, err := svc.Onboard(context.Background(), Input{Name: "Down", ContentSources: []string{"https://down.example"}})
	assert.ErrorIs(t, err, errors.ErrContentFetchFailed)
}

// staleSlugCheck 模拟另一接入在检查之后抢先写入同一 slug
type staleSlugCheck struct {
	repository.BrandRepository
}

func (staleSlugCheck) SlugExists(context.Context, string) (bool, error) { return false, nil }

func TestOnboardRetriesSlugOnUniqueViolation(t *testing.T) {
	ctx := context.Background()
	store := sqlstoretest.New(t)
	require.NoError(t, store.Brands.Create(ctx, entity.NewBrand("FlowForm", "", "")))

	analyzer := &fakeAnalyzer{analysis: &port.Analysis{Personas: items("Persona", 1), Environments: items("Env", 1)}}
	svc := NewService(staleSlugCheck{store.Brands}, store.Personas, store.Environments, store.Tx,
		fakeFetcher{}, analyzer, runtrack.NewTracker(store.Runs))

	res, err := svc.Onboard(ctx, Input{Name: "FlowForm", ContentSources: []string{"desks"}})
	require.NoError(t, err)
	assert.Equal(t, "flowform-2", res.Brand.URLSlug)

	personas, err := store.Personas.ListByBrand(ctx, res.Brand.ID)
	require.NoError(t, err)
	assert.Len(t, personas, 1)
}
