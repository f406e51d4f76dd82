package runtrack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"brand-card-studio/internal/config"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore"
)

func newTracker(t *testing.T) (*Tracker, *sqlstore.WorkflowRunRepository) {
	t.Helper()
	client, err := sqlstore.NewClient(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}, sqlstore.WithLogLevel(gormlogger.Silent))
	require.NoError(t, err)
	require.NoError(t, client.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	runs := sqlstore.NewWorkflowRunRepository(client)
	return NewTracker(runs), runs
}

// assertRunInvariant running 时无结束时间，终态时结束时间与耗时都存在
func assertRunInvariant(t *testing.T, run *entity.WorkflowRun) {
	t.Helper()
	if run.Status == entity.RunStatusRunning {
		assert.Nil(t, run.CompletedAt)
		assert.Nil(t, run.DurationMs)
		return
	}
	require.NotNil(t, run.CompletedAt)
	require.NotNil(t, run.DurationMs)
	assert.GreaterOrEqual(t, *run.DurationMs, int64(0))
}

func TestTrackerStartComplete(t *testing.T) {
	ctx := context.Background()
	tracker, runs := newTracker(t)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := start
	tracker.now = func() time.Time { return clock }

	runID, err := tracker.Start(ctx, entity.WorkflowCardGeneration, "brand-1", map[string]string{"brandId": "brand-1"})
	require.NoError(t, err)

	run, err := runs.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusRunning, run.Status)
	assertRunInvariant(t, run)

	clock = start.Add(2500 * time.Millisecond)
	require.NoError(t, tracker.Complete(ctx, runID, map[string]int{"totalGenerated": 1}))

	run, err = runs.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
	assertRunInvariant(t, run)
	assert.Equal(t, int64(2500), *run.DurationMs)
	assert.JSONEq(t, `{"totalGenerated":1}`, string(run.Output))
	assert.JSONEq(t, `{"brandId":"brand-1"}`, string(run.Input))

	assert.Error(t, tracker.Fail(ctx, runID, "late"), "a run is terminally updated exactly once")
	run, err = runs.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
}

func TestTrackHelperRecordsFailure(t *testing.T) {
	ctx := context.Background()
	tracker, runs := newTracker(t)

	boom := errors.New("brand not found")
	_, err := Track(ctx, tracker, entity.WorkflowCardGeneration, "", nil, func(ctx context.Context, runID string) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	page, err := runs.List(ctx, &repository.RunFilter{Status: entity.RunStatusFailed}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "brand not found", page.Items[0].Error)
	assert.Nil(t, page.Items[0].BrandID)
	assertRunInvariant(t, page.Items[0])
}

func TestTrackHelperRecordsOutput(t *testing.T) {
	ctx := context.Background()
	tracker, runs := newTracker(t)

	var seenRunID string
	out, err := Track(ctx, tracker, entity.WorkflowCardPublish, "b1", []string{"c1"}, func(ctx context.Context, runID string) (string, error) {
		seenRunID = runID
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	run, err := runs.GetByID(ctx, seenRunID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
	assert.JSONEq(t, `"done"`, string(run.Output))
	assertRunInvariant(t, run)
}

func TestCompleteUnknownRun(t *testing.T) {
	tracker, _ := newTracker(t)
	assert.Error(t, tracker.Complete(context.Background(), "missing", nil))
}
