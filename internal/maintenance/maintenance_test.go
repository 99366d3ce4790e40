package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounder/internal/audit"
	"grounder/internal/sessions"
)

func TestSweepEvictsAndPrunes(t *testing.T) {
	sessionStore := sessions.NewStore(4)
	sessionStore.Append("active", "q", "a")

	auditLog, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer auditLog.Close()

	require.NoError(t, auditLog.Record(context.Background(), audit.Record{
		SessionID: "ancient", Mode: "general",
		CreatedAt: time.Now().UTC().Add(-72 * time.Hour),
	}))

	s := New(Config{
		SessionIdleTTL: time.Hour,
		AuditRetention: 24 * time.Hour,
	}, sessionStore, auditLog, nil)

	s.sweep()

	// Active session survives, stale audit rows are gone.
	assert.Equal(t, 1, sessionStore.Len())
	summary, err := auditLog.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalRequests)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(Config{Schedule: "not a cron spec"}, sessions.NewStore(4), nil, nil)
	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := New(Config{Schedule: "@every 1h"}, sessions.NewStore(4), nil, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
