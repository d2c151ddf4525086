package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	mu    sync.Mutex
	calls int
	blob  []byte
	err   error
}

func (f *fakeSnapshotter) CheckpointJSON() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.blob, nil
}

func (f *fakeSnapshotter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBlobSaver struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newFakeBlobSaver() *fakeBlobSaver {
	return &fakeBlobSaver{saved: make(map[string][]byte)}
}

func (f *fakeBlobSaver) Save(_ context.Context, runID string, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[runID] = blob
	return nil
}

func (f *fakeBlobSaver) get(runID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.saved[runID]
	return b, ok
}

func TestCheckpointScheduler_PeriodicallySavesSnapshot(t *testing.T) {
	saver := newFakeBlobSaver()
	sched := NewCheckpointScheduler(saver, nil)
	snap := &fakeSnapshotter{blob: []byte(`{"state":"STEP_RUNNING"}`)}

	require.NoError(t, sched.AddRun("run-1", "*/1 * * * * *", snap))
	sched.Start()
	defer sched.Stop()

	time.Sleep(1300 * time.Millisecond)

	assert.GreaterOrEqual(t, snap.Calls(), 1)
	blob, ok := saver.get("run-1")
	require.True(t, ok)
	assert.Equal(t, `{"state":"STEP_RUNNING"}`, string(blob))
}

func TestCheckpointScheduler_RemoveRun_StopsFurtherSaves(t *testing.T) {
	saver := newFakeBlobSaver()
	sched := NewCheckpointScheduler(saver, nil)
	snap := &fakeSnapshotter{blob: []byte(`{}`)}

	require.NoError(t, sched.AddRun("run-2", "*/1 * * * * *", snap))
	sched.Start()
	time.Sleep(1300 * time.Millisecond)
	sched.RemoveRun("run-2")
	callsAtRemoval := snap.Calls()

	time.Sleep(1300 * time.Millisecond)
	sched.Stop()

	assert.Equal(t, callsAtRemoval, snap.Calls())
}

func TestCheckpointScheduler_InvalidCronSpec_Errors(t *testing.T) {
	sched := NewCheckpointScheduler(newFakeBlobSaver(), nil)
	err := sched.AddRun("run-3", "not-a-cron-spec", &fakeSnapshotter{})
	assert.Error(t, err)
}
