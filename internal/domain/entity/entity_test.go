package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "flowform", Slugify("FlowForm"))
	assert.Equal(t, "flow-form-co", Slugify("  Flow Form & Co. "))
	assert.Equal(t, "brand", Slugify("!!!"))
}

func TestNewPersonaNormalizesTags(t *testing.T) {
	p := NewPersona("b1", " Runner ", "", []string{"fitness", " Fitness", "", "outdoor"})
	assert.Equal(t, "Runner", p.Label)
	assert.Equal(t, []string{"fitness", "outdoor"}, p.Tags)
	assert.NotEmpty(t, p.ID)
}

func TestInfluencerTransitions(t *testing.T) {
	inf := NewInfluencer("Ava Reyes", "fitness", "")
	assert.Equal(t, InfluencerStatusPending, inf.Status)
	assert.True(t, inf.Enabled)
	assert.False(t, inf.Usable())

	inf.MarkReady("https://img/head.png", []string{"a", "b"})
	assert.True(t, inf.Usable())
	assert.Equal(t, "https://img/head.png", inf.ImageURL)

	inf.Enabled = false
	assert.False(t, inf.Usable())
	assert.True(t, inf.IsReady())

	inf.MarkFailed("quota exceeded")
	assert.Equal(t, InfluencerStatusFailed, inf.Status)
	assert.Empty(t, inf.ImageURL)
	assert.Equal(t, "quota exceeded", inf.ErrorMessage)
}

func TestCardPublishLifecycle(t *testing.T) {
	c := NewDraftCard("b1", "i1", "p1", "")
	require.NotNil(t, c.PersonaID)
	assert.Nil(t, c.EnvironmentID)
	assert.Equal(t, CardStatusDraft, c.Status)
	assert.Nil(t, c.PublishedAt)

	now := time.Now()
	c.Publish(now)
	assert.Equal(t, CardStatusPublished, c.Status)
	require.NotNil(t, c.PublishedAt)

	c.Unpublish()
	assert.Equal(t, CardStatusDraft, c.Status)
	assert.Nil(t, c.PublishedAt)
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "how do i clean it", NormalizeQuery("  How do I   clean it?? "))
	assert.Equal(t, NormalizeQuery("What is FlowForm?"), NormalizeQuery("what is flowform"))
}

func TestWorkflowRunTerminalTransitions(t *testing.T) {
	run := NewWorkflowRun(WorkflowCardGeneration, "b1", json.RawMessage(`{"brandId":"b1"}`))
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)
	assert.Nil(t, run.DurationMs)

	at := run.StartedAt.Add(1500 * time.Millisecond)
	run.Complete(json.RawMessage(`{"ok":true}`), at)
	assert.True(t, run.IsTerminal())
	require.NotNil(t, run.CompletedAt)
	require.NotNil(t, run.DurationMs)
	assert.Equal(t, int64(1500), *run.DurationMs)

	failed := NewWorkflowRun(WorkflowCardPublish, "", nil)
	assert.Nil(t, failed.BrandID)
	failed.Fail("boom", failed.StartedAt.Add(-time.Second))
	assert.Equal(t, RunStatusFailed, failed.Status)
	assert.Equal(t, int64(0), *failed.DurationMs)
	assert.Equal(t, "boom", failed.Error)
}
