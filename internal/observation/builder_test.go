package observation

import (
	"testing"

	"github.com/smilemakc/noteflow/internal/store"
	"github.com/smilemakc/noteflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_AssemblesLocationAndContext(t *testing.T) {
	cells := store.NewCellStore()
	ctx := store.NewContextStore()
	ctx.SetVariable("k", 1)
	ctx.AppendEffect("ran")
	cells.Add(&models.Cell{Kind: models.CellKindMarkdown, Content: "hi"})

	req, err := Build(BuildParams{
		Location: LocationSnapshot{
			CurrentStageID:  "s1",
			CurrentStepID:   "t1",
			StagesRemaining: []string{"s2"},
		},
		Cells:   cells,
		Context: ctx,
		Stream:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "s1", req.Observation.Location.Current.StageID)
	assert.Equal(t, "t1", req.Observation.Location.Current.StepID)
	assert.Equal(t, []string{"s2"}, req.Observation.Location.Progress.Stages.Remaining)
	assert.Equal(t, 1, req.Observation.Context.Variables["k"])
	assert.Equal(t, []string{"ran"}, req.Observation.Context.Effects.Current)
	assert.Equal(t, 1, req.Observation.Context.Notebook.CellCount)
	assert.True(t, req.Options.Stream)
}

func TestBuild_ClearsDirtyExactlyOnce(t *testing.T) {
	cells := store.NewCellStore()
	ctx := store.NewContextStore()
	cell := cells.Add(&models.Cell{Kind: models.CellKindCode, Content: "x"})

	_, err := Build(BuildParams{Location: LocationSnapshot{CurrentStageID: "s1", CurrentStepID: "t1"}, Cells: cells, Context: ctx})
	require.NoError(t, err)

	assert.Empty(t, cells.DirtyIDs())
	_ = cell
}

func TestBuild_NotebookCellsCarryDirtyFlag(t *testing.T) {
	cells := store.NewCellStore()
	ctx := store.NewContextStore()
	cells.Add(&models.Cell{Kind: models.CellKindCode, Content: "x"})

	req, err := Build(BuildParams{Location: LocationSnapshot{CurrentStageID: "s1", CurrentStepID: "t1"}, Cells: cells, Context: ctx})
	require.NoError(t, err)
	require.Len(t, req.Observation.Context.Notebook.Cells, 1)
	require.NotNil(t, req.Observation.Context.Notebook.Cells[0].IsUpdate)
	assert.True(t, *req.Observation.Context.Notebook.Cells[0].IsUpdate)
}

func TestBuild_BehaviorFeedbackAttached(t *testing.T) {
	cells := store.NewCellStore()
	ctx := store.NewContextStore()

	req, err := Build(BuildParams{
		Location: LocationSnapshot{CurrentStageID: "s1", CurrentStepID: "t1"},
		Cells:    cells,
		Context:  ctx,
		BehaviorFeedback: &BehaviorFeedbackInput{
			BehaviorID:       "behavior_001",
			ActionsExecuted:  2,
			ActionsSucceeded: 2,
			LastActionResult: "success",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, req.BehaviorFeedback)
	assert.Equal(t, "behavior_001", req.BehaviorFeedback.BehaviorID)
	assert.Equal(t, 2, req.BehaviorFeedback.ActionsExecuted)
}

func TestBuild_RequireProgressInfo_MissingStageCurrent(t *testing.T) {
	cells := store.NewCellStore()
	ctx := store.NewContextStore()

	_, err := Build(BuildParams{
		Location:            LocationSnapshot{CurrentStepID: "t1"},
		Cells:               cells,
		Context:             ctx,
		RequireProgressInfo: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProgressInfoMissing)
}

func TestBuild_RequireProgressInfo_Satisfied(t *testing.T) {
	cells := store.NewCellStore()
	ctx := store.NewContextStore()

	_, err := Build(BuildParams{
		Location:            LocationSnapshot{CurrentStageID: "s1", CurrentStepID: "t1"},
		Cells:               cells,
		Context:             ctx,
		RequireProgressInfo: true,
	})
	require.NoError(t, err)
}

func TestBuild_LastCellSummary(t *testing.T) {
	cells := store.NewCellStore()
	ctx := store.NewContextStore()
	cell := cells.Add(&models.Cell{Kind: models.CellKindCode, Content: "x"})
	require.NoError(t, cells.AppendOutputs(cell.ID, []models.Output{{Type: models.OutputKindText, Content: "42"}}))

	req, err := Build(BuildParams{Location: LocationSnapshot{CurrentStageID: "s1", CurrentStepID: "t1"}, Cells: cells, Context: ctx})
	require.NoError(t, err)
	assert.Equal(t, string(models.CellKindCode), req.Observation.Context.Notebook.LastCellType)
	assert.Equal(t, "42", req.Observation.Context.Notebook.LastOutput)
}
