package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"family-os/internal/database"
	"family-os/internal/logger"
	"family-os/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestRecordAndUsage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordMeta(ctx, shared.AgentMeta{
		AgentName: "WeekPlanner",
		Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 50, Model: "gpt-4o"},
		Latency:   2 * time.Second,
	}))
	require.NoError(t, s.RecordMeta(ctx, shared.AgentMeta{
		AgentName: "RecipeWriter",
		Usage:     shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5, Model: "gpt-4o"},
	}))
	// No usage, nothing recorded.
	require.NoError(t, s.RecordMeta(ctx, shared.AgentMeta{AgentName: "MealPlanner"}))

	daily, err := s.GetDailyUsage(ctx, 7)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 110, daily[0].TotalPrompt)
	assert.Equal(t, 55, daily[0].TotalCompletion)
	assert.Equal(t, 2, daily[0].TotalExecution)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), daily[0].Date)

	agents, err := s.GetAgentUsage(ctx, 7)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "RecipeWriter", agents[0].AgentName)
	assert.Equal(t, 150, agents[1].TotalTokens)
	assert.Equal(t, int64(2000), agents[1].AvgLatencyMS)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Record(ctx, ExecutionMetric{AgentName: "Old", Model: "m", PromptTokens: 1, Timestamp: time.Now().AddDate(0, 0, -40)}))
	require.NoError(t, s.Record(ctx, ExecutionMetric{AgentName: "New", Model: "m", PromptTokens: 1}))

	n, err := s.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	agents, err := s.GetAgentUsage(ctx, 365)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "New", agents[0].AgentName)
}

func TestGetSysHealth(t *testing.T) {
	h := GetSysHealth(t.TempDir())
	assert.NotEmpty(t, h.Alloc)
	assert.Equal(t, "0 B", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)
}
