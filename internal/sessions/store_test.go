package sessions

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndHistory(t *testing.T) {
	s := NewStore(6)

	s.Append("alice", "hello", "hi there")

	history := s.History("alice")
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "hi there", history[1].Content)
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	s := NewStore(6)
	history := s.History("nobody")
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestWindowCapRetainsNewest(t *testing.T) {
	s := NewStore(6)

	for i := 1; i <= 6; i++ {
		s.Append("alice", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	history := s.History("alice")
	require.Len(t, history, 6, "history never exceeds the window")

	// Oldest turns dropped first: only turns 4..6 remain.
	assert.Equal(t, "q4", history[0].Content)
	assert.Equal(t, "a6", history[5].Content)
}

func TestWindowNormalization(t *testing.T) {
	assert.Equal(t, 2, NewStore(0).Window())
	assert.Equal(t, 2, NewStore(-4).Window())
	// Odd windows are rounded up to keep user+assistant pairs intact.
	assert.Equal(t, 6, NewStore(5).Window())
}

func TestSessionsAreIndependent(t *testing.T) {
	s := NewStore(4)

	s.Append("alice", "qa", "aa")
	s.Append("bob", "qb", "ab")

	assert.Len(t, s.History("alice"), 2)
	assert.Len(t, s.History("bob"), 2)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "qa", snap["alice"][0].Content)
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	s := NewStore(8)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append("shared", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()

	history := s.History("shared")
	require.Len(t, history, 8)

	// Pairs stay adjacent even under contention.
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, RoleUser, history[i].Role)
		assert.Equal(t, RoleAssistant, history[i+1].Role)
		assert.Equal(t, history[i].Content[1:], history[i+1].Content[1:])
	}
}

func TestEvictIdle(t *testing.T) {
	s := NewStore(4)

	s.Append("stale", "q", "a")
	s.sessions["stale"].lastActivity = time.Now().UTC().Add(-2 * time.Hour)
	s.Append("fresh", "q", "a")

	evicted := s.EvictIdle(time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Empty(t, s.History("stale"))
	assert.Len(t, s.History("fresh"), 2)
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewStore(4)
	s.Append("alice", "q", "a")

	history := s.History("alice")
	history[0].Content = "mutated"

	assert.Equal(t, "q", s.History("alice")[0].Content)
}
