package action

import (
	"context"
	"sync"

	"github.com/smilemakc/noteflow/internal/store"
	"github.com/smilemakc/noteflow/pkg/models"
)

// CodeExecutor is the narrow interface the exec action needs from the Code
// Executor Client (spec §4.5). Declared here, satisfied by
// internal/executor.Client, so this package never imports it directly.
type CodeExecutor interface {
	Execute(ctx context.Context, code string) ([]models.Output, error)
}

// ScriptStore is the facade action handlers mutate: a thin layer over the
// Cell, Context, and Pipeline stores plus the chapter/section counters and
// thinking-cell bookkeeping the add/new_chapter/new_section/is_thinking
// family of actions needs (spec §4.4).
type ScriptStore struct {
	mu sync.Mutex

	Cells    *store.CellStore
	Context  *store.ContextStore
	Pipeline *store.PipelineStore
	Executor CodeExecutor

	chapterCount       int
	sectionCount       int
	lastThinkingCellID string
}

// NewScriptStore wires the facade over the engine's three stores and the
// Code Executor Client.
func NewScriptStore(cells *store.CellStore, ctxStore *store.ContextStore, pipeline *store.PipelineStore, executor CodeExecutor) *ScriptStore {
	return &ScriptStore{
		Cells:    cells,
		Context:  ctxStore,
		Pipeline: pipeline,
		Executor: executor,
	}
}

func (ss *ScriptStore) nextChapter() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.chapterCount++
	ss.sectionCount = 0
	return ss.chapterCount
}

func (ss *ScriptStore) nextSection() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sectionCount++
	return ss.sectionCount
}

func (ss *ScriptStore) setLastThinkingCell(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.lastThinkingCellID = id
}

func (ss *ScriptStore) getLastThinkingCell() string {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.lastThinkingCellID
}
