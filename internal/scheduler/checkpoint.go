// Package scheduler implements the periodic checkpoint autosave (spec
// §6.3 supplement): a cron job, independent of FSM transition boundaries,
// that serializes the engine's current state and saves it to the Redis
// blob store. Grounded on the teacher's CronScheduler
// (internal/application/trigger/cron_scheduler.go): a small wrapper
// around *cron.Cron with second precision (on cron's default local-time
// clock), entries tracked by run ID so a run's schedule can be replaced
// or removed.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/smilemakc/noteflow/internal/logger"
)

// Snapshotter is the narrow read the checkpoint scheduler needs from the
// FSM Core. Declared here and satisfied by *fsm.Engine so this package
// never imports internal/fsm directly — the same "narrow interface,
// declared by the consumer" shape internal/control and internal/action
// use for their own FSM-adjacent dependencies.
type Snapshotter interface {
	CheckpointJSON() ([]byte, error)
}

// BlobSaver is the narrow write the scheduler needs from
// internal/persistence.BlobStore.
type BlobSaver interface {
	Save(ctx context.Context, runID string, blob []byte) error
}

// CheckpointScheduler runs one cron job per run ID, each periodically
// snapshotting and saving that run's engine state.
type CheckpointScheduler struct {
	cron   *cron.Cron
	store  BlobSaver
	logger *logger.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewCheckpointScheduler returns a scheduler backed by store, not yet
// started.
func NewCheckpointScheduler(store BlobSaver, log *logger.Logger) *CheckpointScheduler {
	return &CheckpointScheduler{
		cron:    cron.New(cron.WithSeconds()),
		store:   store,
		logger:  log,
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins running scheduled jobs.
func (c *CheckpointScheduler) Start() {
	c.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (c *CheckpointScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// AddRun schedules periodic checkpointing of runID at the given cron
// spec (e.g. "*/30 * * * * *" for every 30 seconds, matching
// config.SchedulerConfig.CheckpointCron's default). Replaces any existing
// schedule for the same run.
func (c *CheckpointScheduler) AddRun(runID string, cronSpec string, snap Snapshotter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entryID, ok := c.entries[runID]; ok {
		c.cron.Remove(entryID)
		delete(c.entries, runID)
	}

	entryID, err := c.cron.AddFunc(cronSpec, func() { c.checkpoint(runID, snap) })
	if err != nil {
		return fmt.Errorf("failed to schedule checkpoint for run %q: %w", runID, err)
	}
	c.entries[runID] = entryID
	return nil
}

// RemoveRun stops checkpointing runID, e.g. once it reaches a terminal
// FSM state.
func (c *CheckpointScheduler) RemoveRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entryID, ok := c.entries[runID]; ok {
		c.cron.Remove(entryID)
		delete(c.entries, runID)
	}
}

func (c *CheckpointScheduler) checkpoint(runID string, snap Snapshotter) {
	blob, err := snap.CheckpointJSON()
	if err != nil {
		if c.logger != nil {
			c.logger.Error("checkpoint snapshot failed", "run_id", runID, "error", err)
		}
		return
	}

	if err := c.store.Save(context.Background(), runID, blob); err != nil {
		if c.logger != nil {
			c.logger.Error("checkpoint save failed", "run_id", runID, "error", err)
		}
	}
}
