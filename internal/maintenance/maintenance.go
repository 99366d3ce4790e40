// Package maintenance runs the background housekeeping jobs: idle-session
// eviction, audit-log pruning, and rate limiter bucket cleanup. Jobs are
// cron-scheduled and strictly best-effort; a failed run logs and waits for
// the next tick.
package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"grounder/internal/audit"
	"grounder/internal/ratelimit"
	"grounder/internal/sessions"
)

// Config controls the housekeeping cadence and retention windows.
type Config struct {
	Schedule       string        // cron spec, e.g. "@every 10m"
	SessionIdleTTL time.Duration // evict sessions idle longer than this
	AuditRetention time.Duration // prune audit rows older than this; 0 keeps forever
}

// Scheduler owns the cron runner and the stores it sweeps.
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	sessions *sessions.Store
	auditLog *audit.Log               // optional
	limiter  *ratelimit.SlidingWindow // optional
}

// New creates a maintenance scheduler. auditLog and limiter may be nil when
// those subsystems are disabled.
func New(cfg Config, sessionStore *sessions.Store, auditLog *audit.Log, limiter *ratelimit.SlidingWindow) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 10m"
	}
	if cfg.SessionIdleTTL <= 0 {
		cfg.SessionIdleTTL = time.Hour
	}
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		sessions: sessionStore,
		auditLog: auditLog,
		limiter:  limiter,
	}
}

// Start registers the sweep job and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("Maintenance scheduler started (schedule: %s)", s.cfg.Schedule)
	return nil
}

// Stop stops the cron runner and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweep runs all housekeeping tasks once.
func (s *Scheduler) sweep() {
	if evicted := s.sessions.EvictIdle(s.cfg.SessionIdleTTL); evicted > 0 {
		log.Printf("Maintenance: evicted %d idle session(s)", evicted)
	}

	if s.limiter != nil {
		s.limiter.PruneIdle(s.cfg.SessionIdleTTL)
	}

	if s.auditLog != nil && s.cfg.AuditRetention > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pruned, err := s.auditLog.Prune(ctx, s.cfg.AuditRetention)
		if err != nil {
			log.Printf("WARNING: audit prune failed: %v", err)
		} else if pruned > 0 {
			log.Printf("Maintenance: pruned %d audit record(s)", pruned)
		}
	}
}
