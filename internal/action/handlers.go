package action

import (
	"context"
	"fmt"

	"github.com/smilemakc/noteflow/pkg/models"
)

const lastAddedCellIDVar = "lastAddedCellId"

// RegisterDefaults installs the eleven built-in action handlers of spec
// §4.4 onto reg. Tests may call reg.Register again beforehand or afterward
// to override any of them.
func RegisterDefaults(reg *Registry) {
	reg.Register(models.ActionAdd, handleAdd)
	reg.Register(models.ActionExec, handleExec)
	reg.Register(models.ActionIsThinking, handleIsThinking)
	reg.Register(models.ActionFinishThinking, handleFinishThinking)
	reg.Register(models.ActionNewChapter, handleNewChapter)
	reg.Register(models.ActionNewSection, handleNewSection)
	reg.Register(models.ActionUpdateTitle, handleUpdateTitle)
	reg.Register(models.ActionUpdateWorkflow, handleUpdateWorkflow)
	reg.Register(models.ActionUpdateStageSteps, handleUpdateStageSteps)
	reg.Register(models.ActionEndPhase, handleNoop)
	reg.Register(models.ActionNextEvent, handleNoop)
}

// handleAdd appends a markdown cell for dialogue/observation shot types,
// otherwise a code cell, and records its ID as lastAddedCellId.
func handleAdd(_ context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	kind := models.CellKindCode
	if act.ShotType == "dialogue" || act.ShotType == "observation" {
		kind = models.CellKindMarkdown
	}
	cell := ss.Cells.Add(&models.Cell{Kind: kind, Content: act.Content})
	ss.Context.SetVariable(lastAddedCellIDVar, cell.ID)
	return Result{}, nil
}

// handleExec resolves codecell_id (literal or lastAddedCellId), clears
// prior outputs, executes the cell's content, and records the outputs on
// the cell and in the effect log.
func handleExec(ctx context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	cellID := act.CodecellID
	if cellID == lastAddedCellIDVar {
		v, ok := ss.Context.GetVariable(lastAddedCellIDVar)
		if !ok {
			return Result{}, fmt.Errorf("exec: %s has no value", lastAddedCellIDVar)
		}
		id, ok := v.(string)
		if !ok {
			return Result{}, fmt.Errorf("exec: %s is not a string", lastAddedCellIDVar)
		}
		cellID = id
	}

	cell := ss.Cells.Get(cellID)
	if cell == nil {
		return Result{}, fmt.Errorf("exec: cell %q not found", cellID)
	}

	if err := ss.Cells.ClearOutputs(cellID); err != nil {
		return Result{}, fmt.Errorf("exec: clear outputs: %w", err)
	}

	outputs, err := ss.Executor.Execute(ctx, cell.Content)
	if err != nil {
		return Result{}, fmt.Errorf("exec: %w", err)
	}

	if err := ss.Cells.AppendOutputs(cellID, outputs); err != nil {
		return Result{}, fmt.Errorf("exec: append outputs: %w", err)
	}

	for _, out := range outputs {
		ss.Context.AppendEffect(out.Content)
	}
	ss.Cells.IncrementExecutionCount()

	return Result{}, nil
}

// handleIsThinking appends a thinking cell and stashes its ID so a later
// finish_thinking can locate it.
func handleIsThinking(_ context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	metadata := map[string]any{"finished": false}
	if act.AgentName != "" {
		metadata["agent_name"] = act.AgentName
	}
	cell := ss.Cells.Add(&models.Cell{
		Kind:     models.CellKindThinking,
		Content:  act.ThinkingText,
		Metadata: metadata,
	})
	ss.setLastThinkingCell(cell.ID)
	return Result{}, nil
}

// handleFinishThinking marks the most recently started thinking cell as
// finished.
func handleFinishThinking(_ context.Context, ss *ScriptStore, _ models.Action) (Result, error) {
	id := ss.getLastThinkingCell()
	if id == "" {
		return Result{}, fmt.Errorf("finish_thinking: no thinking cell in progress")
	}
	return Result{}, ss.Cells.UpdateMetadata(id, map[string]any{"finished": true})
}

// handleNewChapter appends a "## " markdown cell and bumps the chapter
// counter (resetting the section counter beneath it).
func handleNewChapter(_ context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	n := ss.nextChapter()
	ss.Cells.Add(&models.Cell{
		Kind:     models.CellKindMarkdown,
		Content:  "## " + act.Content,
		Metadata: map[string]any{"chapter_index": n},
	})
	return Result{}, nil
}

// handleNewSection appends a "### " markdown cell, bumps the section
// counter, and writes a section_id in the cell's metadata.
func handleNewSection(_ context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	n := ss.nextSection()
	ss.Cells.Add(&models.Cell{
		Kind:     models.CellKindMarkdown,
		Content:  "### " + act.Content,
		Metadata: map[string]any{"section_id": fmt.Sprintf("section_%d", n)},
	})
	return Result{}, nil
}

// handleUpdateTitle sets the notebook title.
func handleUpdateTitle(_ context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	ss.Cells.SetTitle(act.Title)
	return Result{}, nil
}

// handleUpdateWorkflow never mutates the template in place: it returns the
// pending sentinel so the FSM can transition to WORKFLOW_UPDATE_PENDING
// and await an explicit confirmation (spec §4.4, P10).
func handleUpdateWorkflow(_ context.Context, _ *ScriptStore, act models.Action) (Result, error) {
	return Result{WorkflowUpdatePending: true, Template: act.UpdatedWorkflow}, nil
}

// handleUpdateStageSteps is safe to apply in place: it replaces the named
// stage's step sequence immediately.
func handleUpdateStageSteps(_ context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	if !ss.Pipeline.ReplaceStageSteps(act.StageID, act.UpdatedSteps) {
		return Result{}, fmt.Errorf("update_stage_steps: stage %q not found", act.StageID)
	}
	return Result{}, nil
}

// handleNoop backs end_phase and next_event: reserved action types that
// must be registered to avoid "unknown action" warnings but currently do
// nothing.
func handleNoop(_ context.Context, _ *ScriptStore, _ models.Action) (Result, error) {
	return Result{}, nil
}
