// Package store holds the engine's three stateful stores: the Cell Store,
// the Context Store, and the Pipeline Store.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/smilemakc/noteflow/pkg/models"
)

// cellSnapshot is the {content-hash, outputs-count, metadata-hash} triple
// recorded on add/clear_dirty, used to detect whether a later mutation
// actually changed the cell. Content is hashed, not just length-compared,
// so an equal-length replacement (e.g. "hello" -> "world") still registers
// as a change.
type cellSnapshot struct {
	contentHash string
	outputCount int
	metaHash    string
}

// CellStore holds notebook cells in insertion order, indexed by ID, with
// per-cell dirty tracking (spec §4.1).
type CellStore struct {
	mu        sync.RWMutex
	notebook  *models.Notebook
	snapshots map[string]cellSnapshot
	dirty     map[string]struct{}
}

// NewCellStore returns an empty Cell Store backing a fresh notebook.
func NewCellStore() *CellStore {
	return &CellStore{
		notebook:  models.NewNotebook(),
		snapshots: make(map[string]cellSnapshot),
		dirty:     make(map[string]struct{}),
	}
}

// Add appends a new cell, generating an ID if none was supplied. The new
// cell is marked dirty and snapshotted.
func (s *CellStore) Add(cell *models.Cell) *models.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cell.ID == "" {
		cell.ID = uuid.NewString()
	}
	cell.Dirty = true
	s.notebook.Cells = append(s.notebook.Cells, cell)
	s.snapshots[cell.ID] = snapshotOf(cell)
	s.dirty[cell.ID] = struct{}{}
	return cell
}

// UpdateContent replaces a cell's content, marking it dirty only if the
// content actually changed.
func (s *CellStore) UpdateContent(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.findLocked(id)
	if cell == nil {
		return fmt.Errorf("cell %q not found", id)
	}
	if cell.Content == text {
		return nil
	}
	cell.Content = text
	s.markDirtyLocked(cell)
	return nil
}

// AppendOutputs appends outputs to a cell, marking it dirty iff any output
// was added.
func (s *CellStore) AppendOutputs(id string, outputs []models.Output) error {
	if len(outputs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.findLocked(id)
	if cell == nil {
		return fmt.Errorf("cell %q not found", id)
	}
	cell.Outputs = append(cell.Outputs, outputs...)
	s.markDirtyLocked(cell)
	return nil
}

// ClearOutputs empties a cell's outputs, marking it dirty iff it had any.
func (s *CellStore) ClearOutputs(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.findLocked(id)
	if cell == nil {
		return fmt.Errorf("cell %q not found", id)
	}
	if len(cell.Outputs) == 0 {
		return nil
	}
	cell.Outputs = nil
	s.markDirtyLocked(cell)
	return nil
}

// UpdateMetadata merges patch into a cell's metadata, marking it dirty iff
// any key actually changed.
func (s *CellStore) UpdateMetadata(id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.findLocked(id)
	if cell == nil {
		return fmt.Errorf("cell %q not found", id)
	}
	changed := false
	if cell.Metadata == nil {
		cell.Metadata = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		if existing, ok := cell.Metadata[k]; !ok || fmt.Sprint(existing) != fmt.Sprint(v) {
			cell.Metadata[k] = v
			changed = true
		}
	}
	if changed {
		s.markDirtyLocked(cell)
	}
	return nil
}

// Get returns the cell with the given ID, or nil.
func (s *CellStore) Get(id string) *models.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

// DirtyIDs returns the set of cell IDs touched since the last ClearDirty.
func (s *CellStore) DirtyIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.dirty))
	for id := range s.dirty {
		out[id] = struct{}{}
	}
	return out
}

// ClearDirty re-snapshots every cell and clears the dirty set.
func (s *CellStore) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cell := range s.notebook.Cells {
		cell.Dirty = false
		s.snapshots[cell.ID] = snapshotOf(cell)
	}
	s.dirty = make(map[string]struct{})
}

// ToDict serializes the notebook's cells in order. When includeDirtyFlag is
// true, each cell carries a boolean isUpdate reflecting its dirty state.
func (s *CellStore) ToDict(includeDirtyFlag bool) []models.CellPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CellPayload, 0, len(s.notebook.Cells))
	for _, cell := range s.notebook.Cells {
		payload := models.CellPayload{
			ID:      cell.ID,
			Type:    cell.Kind,
			Content: cell.Content,
			Outputs: cell.Outputs,
		}
		if includeDirtyFlag {
			isUpdate := cell.Dirty
			payload.IsUpdate = &isUpdate
		}
		out = append(out, payload)
	}
	return out
}

// Notebook returns the underlying notebook. Callers must not mutate cells
// directly; all mutation goes through the store's methods.
func (s *CellStore) Notebook() *models.Notebook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notebook
}

// SetTitle sets the notebook title.
func (s *CellStore) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notebook.Title = title
}

// IncrementExecutionCount increments the notebook's execution counter and
// returns the new value.
func (s *CellStore) IncrementExecutionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notebook.ExecutionCount++
	return s.notebook.ExecutionCount
}

// LastCell returns the most recently appended cell, or nil.
func (s *CellStore) LastCell() *models.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notebook.LastCell()
}

func (s *CellStore) findLocked(id string) *models.Cell {
	return s.notebook.CellByID(id)
}

func (s *CellStore) markDirtyLocked(cell *models.Cell) {
	snap := snapshotOf(cell)
	if snap == s.snapshots[cell.ID] {
		return
	}
	cell.Dirty = true
	s.snapshots[cell.ID] = snap
	s.dirty[cell.ID] = struct{}{}
}

func snapshotOf(cell *models.Cell) cellSnapshot {
	contentHash := sha256.Sum256([]byte(cell.Content))

	h := sha256.New()
	for k, v := range cell.Metadata {
		h.Write([]byte(k))
		h.Write([]byte(fmt.Sprint(v)))
	}
	return cellSnapshot{
		contentHash: hex.EncodeToString(contentHash[:]),
		outputCount: len(cell.Outputs),
		metaHash:    hex.EncodeToString(h.Sum(nil)),
	}
}
