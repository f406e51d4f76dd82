package publishing

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore/sqlstoretest"
	"brand-card-studio/pkg/errors"
)

type fakeCache struct {
	invalidated []string
	err         error
}

func (c *fakeCache) Invalidate(_ context.Context, brandIDs ...string) error {
	c.invalidated = append(c.invalidated, brandIDs...)
	return c.err
}

type fakeIndex struct{ removed []string }

func (x *fakeIndex) Similarity(context.Context, string, string) (float32, error) { return 0, nil }
func (x *fakeIndex) Add(context.Context, string, string, string) error         { return nil }
func (x *fakeIndex) Remove(_ context.Context, ids []string) error {
	x.removed = append(x.removed, ids...)
	return nil
}

func newService(t *testing.T, opts ...Option) (*Service, *sqlstoretest.Store, *entity.Brand) {
	t.Helper()
	store := sqlstoretest.New(t)
	brand := entity.NewBrand("FlowForm", "flowform.io", "")
	require.NoError(t, store.Brands.Create(context.Background(), brand))
	return NewService(store.Cards, runtrack.NewTracker(store.Runs), 5, opts...), store, brand
}

func seedCard(t *testing.T, store *sqlstoretest.Store, brandID string, status entity.CardStatus) *entity.Card {
	t.Helper()
	card := entity.NewDraftCard(brandID, "inf-1", "", "")
	card.Query = fmt.Sprintf("query %s", card.ID)
	card.Response = "answer"
	if status == entity.CardStatusPublished {
		card.Publish(time.Now())
	}
	require.NoError(t, store.Cards.Create(context.Background(), card))
	return card
}

func TestPublishThreeIDsOnePublishedOneMissing(t *testing.T) {
	ctx := context.Background()
	cache := &fakeCache{}
	svc, store, brand := newService(t, WithPageCache(cache))

	draft := seedCard(t, store, brand.ID, entity.CardStatusDraft)
	published := seedCard(t, store, brand.ID, entity.CardStatusPublished)

	res, err := svc.Publish(ctx, []string{draft.ID, published.ID, "missing"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.PublishedCount)
	assert.Equal(t, 2, res.InvalidCount)
	assert.Equal(t, 0, res.FailedCount)
	assert.Equal(t, []string{draft.ID}, res.PublishedCardIDs)
	assert.ElementsMatch(t, []Invalid{
		{CardID: published.ID, Reason: ReasonWrongStatus, CurrentStatus: entity.CardStatusPublished},
		{CardID: "missing", Reason: ReasonNotFound},
	}, res.Invalid)

	got, err := store.Cards.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CardStatusPublished, got.Status)
	assert.NotNil(t, got.PublishedAt)

	assert.Equal(t, []string{brand.ID}, cache.invalidated)

	runs, err := store.Runs.List(ctx, &repository.RunFilter{WorkflowName: entity.WorkflowCardPublish}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, runs.Items, 1)
	assert.Equal(t, entity.RunStatusCompleted, runs.Items[0].Status)
}

func TestPublishRejectsEmptyInput(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Publish(context.Background(), []string{" ", ""})
	assert.ErrorIs(t, err, errors.ErrInvalidParam)
}

func TestPublishDuplicateIDsCountOnce(t *testing.T) {
	svc, store, brand := newService(t)
	draft := seedCard(t, store, brand.ID, entity.CardStatusDraft)

	res, err := svc.Publish(context.Background(), []string{draft.ID, draft.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.PublishedCount)
	assert.Equal(t, 0, res.InvalidCount)
}

func TestUnpublishIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cache := &fakeCache{err: fmt.Errorf("redis down")}
	svc, store, brand := newService(t, WithPageCache(cache))

	published := seedCard(t, store, brand.ID, entity.CardStatusPublished)
	draft := seedCard(t, store, brand.ID, entity.CardStatusDraft)

	_, err := svc.Unpublish(ctx, []string{published.ID, draft.ID})
	require.NoError(t, err)
	_, err = svc.Unpublish(ctx, []string{published.ID, draft.ID})
	require.NoError(t, err)

	for _, id := range []string{published.ID, draft.ID} {
		got, err := store.Cards.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.CardStatusDraft, got.Status)
		assert.Nil(t, got.PublishedAt)
	}
	assert.Contains(t, cache.invalidated, brand.ID)
}

func TestDeleteRemovesCardsAndIndex(t *testing.T) {
	ctx := context.Background()
	index := &fakeIndex{}
	svc, store, brand := newService(t, WithQueryIndex(index))

	a := seedCard(t, store, brand.ID, entity.CardStatusDraft)
	b := seedCard(t, store, brand.ID, entity.CardStatusPublished)

	res, err := svc.Delete(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.AffectedCount)
	assert.Equal(t, []string{a.ID, b.ID, "missing"}, index.removed)

	got, err := store.Cards.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// countingCards 记录 PublishIfDraft 的并发峰值
type countingCards struct {
	repository.CardRepository
	current atomic.Int32
	peak    atomic.Int32
}

func (c *countingCards) PublishIfDraft(ctx context.Context, id string, at time.Time) (bool, error) {
	n := c.current.Add(1)
	defer c.current.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return c.CardRepository.PublishIfDraft(ctx, id, at)
}

func TestPublishBoundsConcurrency(t *testing.T) {
	ctx := context.Background()
	store := sqlstoretest.New(t)
	brand := entity.NewBrand("FlowForm", "flowform.io", "")
	require.NoError(t, store.Brands.Create(ctx, brand))

	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, seedCard(t, store, brand.ID, entity.CardStatusDraft).ID)
	}

	cards := &countingCards{CardRepository: store.Cards}
	svc := NewService(cards, runtrack.NewTracker(store.Runs), 5)

	res, err := svc.Publish(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 12, res.PublishedCount)
	assert.LessOrEqual(t, cards.peak.Load(), int32(5))
	assert.Greater(t, cards.peak.Load(), int32(1))
}
