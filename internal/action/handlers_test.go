package action

import (
	"context"
	"testing"

	"github.com/smilemakc/noteflow/internal/logger"
	"github.com/smilemakc/noteflow/internal/store"
	"github.com/smilemakc/noteflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	outputs []models.Output
	err     error
	calls   []string
}

func (f *fakeExecutor) Execute(_ context.Context, code string) ([]models.Output, error) {
	f.calls = append(f.calls, code)
	return f.outputs, f.err
}

func newTestFacade(exec CodeExecutor) *ScriptStore {
	return NewScriptStore(store.NewCellStore(), store.NewContextStore(), store.NewPipelineStore(store.InitDescriptor{}), exec)
}

func newTestRegistry() *Registry {
	reg := NewRegistry(logger.Default())
	RegisterDefaults(reg)
	return reg
}

func TestAdd_MarkdownForDialogue(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()

	_, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionAdd, Content: "hi", ShotType: "dialogue"})
	require.NoError(t, err)

	cell := ss.Cells.LastCell()
	require.NotNil(t, cell)
	assert.Equal(t, models.CellKindMarkdown, cell.Kind)

	v, ok := ss.Context.GetVariable(lastAddedCellIDVar)
	require.True(t, ok)
	assert.Equal(t, cell.ID, v)
}

func TestAdd_CodeForOtherShotTypes(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()

	_, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionAdd, Content: "print(1)"})
	require.NoError(t, err)

	cell := ss.Cells.LastCell()
	require.NotNil(t, cell)
	assert.Equal(t, models.CellKindCode, cell.Kind)
}

func TestExec_ResolvesLastAddedCellID(t *testing.T) {
	exec := &fakeExecutor{outputs: []models.Output{{Type: models.OutputKindText, Content: "hi\n"}}}
	ss := newTestFacade(exec)
	reg := newTestRegistry()
	ctx := context.Background()

	_, err := reg.Dispatch(ctx, ss, models.Action{Type: models.ActionAdd, Content: "print('hi')"})
	require.NoError(t, err)

	_, err = reg.Dispatch(ctx, ss, models.Action{Type: models.ActionExec, CodecellID: lastAddedCellIDVar})
	require.NoError(t, err)

	cell := ss.Cells.LastCell()
	require.Len(t, cell.Outputs, 1)
	assert.Equal(t, "hi\n", cell.Outputs[0].Content)

	effects := ss.Context.Effects()
	assert.Equal(t, []string{"hi\n"}, effects.Current)
	assert.Equal(t, []string{cell.Content}, exec.calls)
	assert.Equal(t, 1, ss.Cells.Notebook().ExecutionCount)
}

func TestExec_ClearsPriorOutputs(t *testing.T) {
	exec := &fakeExecutor{outputs: []models.Output{{Type: models.OutputKindText, Content: "second"}}}
	ss := newTestFacade(exec)
	cell := ss.Cells.Add(&models.Cell{Kind: models.CellKindCode, Content: "x"})
	require.NoError(t, ss.Cells.AppendOutputs(cell.ID, []models.Output{{Type: models.OutputKindText, Content: "first"}}))

	reg := newTestRegistry()
	_, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionExec, CodecellID: cell.ID})
	require.NoError(t, err)

	got := ss.Cells.Get(cell.ID)
	require.Len(t, got.Outputs, 1)
	assert.Equal(t, "second", got.Outputs[0].Content)
}

func TestIsThinkingAndFinishThinking(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()
	ctx := context.Background()

	_, err := reg.Dispatch(ctx, ss, models.Action{Type: models.ActionIsThinking, ThinkingText: "pondering", AgentName: "planner"})
	require.NoError(t, err)

	cell := ss.Cells.LastCell()
	assert.Equal(t, models.CellKindThinking, cell.Kind)
	assert.Equal(t, false, cell.Metadata["finished"])

	_, err = reg.Dispatch(ctx, ss, models.Action{Type: models.ActionFinishThinking})
	require.NoError(t, err)

	got := ss.Cells.Get(cell.ID)
	assert.Equal(t, true, got.Metadata["finished"])
}

func TestNewChapterAndSection(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()
	ctx := context.Background()

	_, err := reg.Dispatch(ctx, ss, models.Action{Type: models.ActionNewChapter, Content: "Intro"})
	require.NoError(t, err)
	chapterCell := ss.Cells.LastCell()
	assert.Equal(t, "## Intro", chapterCell.Content)

	_, err = reg.Dispatch(ctx, ss, models.Action{Type: models.ActionNewSection, Content: "Background"})
	require.NoError(t, err)
	sectionCell := ss.Cells.LastCell()
	assert.Equal(t, "### Background", sectionCell.Content)
	assert.Equal(t, "section_1", sectionCell.Metadata["section_id"])
}

func TestUpdateWorkflow_ReturnsPendingSentinel(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()
	tpl := &models.WorkflowTemplate{Stages: []models.Stage{{ID: "s2"}}}

	result, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionUpdateWorkflow, UpdatedWorkflow: tpl})
	require.NoError(t, err)
	assert.True(t, result.WorkflowUpdatePending)
	assert.Same(t, tpl, result.Template)

	// Template must not be mutated in-place.
	assert.Empty(t, ss.Pipeline.Template().Stages)
}

func TestUpdateStageSteps_AppliesInPlace(t *testing.T) {
	tpl := &models.WorkflowTemplate{Stages: []models.Stage{{ID: "s1", Steps: []models.Step{{ID: "t1"}}}}}
	ss := NewScriptStore(store.NewCellStore(), store.NewContextStore(), store.NewPipelineStore(store.InitDescriptor{Template: tpl}), &fakeExecutor{})
	reg := newTestRegistry()

	newSteps := []models.Step{{ID: "t1"}, {ID: "t2"}}
	_, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionUpdateStageSteps, StageID: "s1", UpdatedSteps: newSteps})
	require.NoError(t, err)

	stage := ss.Pipeline.StageByID("s1")
	require.NotNil(t, stage)
	assert.Len(t, stage.Steps, 2)
}

func TestUnknownActionType_SkipsWithoutError(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()

	result, err := reg.Dispatch(context.Background(), ss, models.Action{Type: "totally_unknown"})
	require.NoError(t, err)
	assert.False(t, result.WorkflowUpdatePending)
}

func TestEndPhaseAndNextEvent_Registered(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()

	_, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionEndPhase})
	assert.NoError(t, err)
	_, err = reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionNextEvent})
	assert.NoError(t, err)
}

func TestHooks_RunInOrderAndSurvivePanic(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()

	var preOrder, postOrder []string
	reg.AddPreHook(func(_ context.Context, _ models.Action) { preOrder = append(preOrder, "a") })
	reg.AddPreHook(func(_ context.Context, _ models.Action) { panic("boom") })
	reg.AddPreHook(func(_ context.Context, _ models.Action) { preOrder = append(preOrder, "b") })
	reg.AddPostHook(func(_ context.Context, _ models.Action) { postOrder = append(postOrder, "post") })

	_, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionEndPhase})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, preOrder)
	assert.Equal(t, []string{"post"}, postOrder)
}

func TestDispatchCount(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()

	_, _ = reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionEndPhase})
	_, _ = reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionEndPhase})
	assert.Equal(t, 2, reg.DispatchCount(models.ActionEndPhase))
}

func TestRegister_ReplacesExistingHandler(t *testing.T) {
	ss := newTestFacade(&fakeExecutor{})
	reg := newTestRegistry()

	called := false
	reg.Register(models.ActionEndPhase, func(_ context.Context, _ *ScriptStore, _ models.Action) (Result, error) {
		called = true
		return Result{}, nil
	})
	_, err := reg.Dispatch(context.Background(), ss, models.Action{Type: models.ActionEndPhase})
	require.NoError(t, err)
	assert.True(t, called)
}
