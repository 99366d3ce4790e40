package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndSummarize(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Record{
		SessionID: "alice", Mode: "grounded", TopScore: 0.91,
		PromptTokens: 100, CompletionTokens: 20, LatencyMs: 250,
	}))
	require.NoError(t, l.Record(ctx, Record{
		SessionID: "bob", Mode: "general",
		PromptTokens: 40, CompletionTokens: 10, LatencyMs: 150,
	}))
	require.NoError(t, l.Record(ctx, Record{SessionID: "carol", Mode: "error"}))

	summary, err := l.Summarize(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalRequests)
	assert.Equal(t, int64(1), summary.ByMode["grounded"])
	assert.Equal(t, int64(1), summary.ByMode["general"])
	assert.Equal(t, int64(1), summary.ByMode["error"])
	assert.Equal(t, int64(140), summary.PromptTokens)
	assert.Equal(t, int64(30), summary.CompletionTokens)
}

func TestSummarizeEmptyLog(t *testing.T) {
	l := openTestLog(t)

	summary, err := l.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalRequests)
	assert.Empty(t, summary.ByMode)
}

func TestPrune(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Record{
		SessionID: "old", Mode: "general",
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}))
	require.NoError(t, l.Record(ctx, Record{SessionID: "new", Mode: "general"}))

	pruned, err := l.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	summary, err := l.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalRequests)
}
