package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalize_SuccessIgnoresWarnings(t *testing.T) {
	r := NewImportResult()
	r.MergeStage(StageUsers, 5, 2, nil)
	r.AddWarning(StageScores, "student not found", nil)
	r.Finalize()

	require.True(t, r.Success)
	require.Equal(t, 0, r.TotalErrors())
}

func TestFinalize_AnyErrorFlipsSuccess(t *testing.T) {
	r := NewImportResult()
	r.MergeStage(StageUsers, 5, 0, nil)
	r.MergeStage(StageClasses, 0, 0, []ImportError{
		{Stage: StageClasses, Operation: "create", Message: "deadlock"},
	})
	r.Finalize()

	require.False(t, r.Success)
	require.Equal(t, 1, r.TotalErrors())
	require.Equal(t, 1, r.Summary[StageClasses].Errors)
}

func TestFinalize_SystemErrorsCount(t *testing.T) {
	r := NewImportResult()
	r.AddError(StageSystem, "import", "unexpected failure", nil)
	r.Finalize()

	require.False(t, r.Success, "system-level errors have no stage summary but still fail the run")
	require.Equal(t, 1, r.TotalErrors())
}

func TestNewImportResult_InitializesAllStages(t *testing.T) {
	r := NewImportResult()
	for _, stage := range Stages {
		require.NotNil(t, r.Summary[stage])
	}
	require.NotNil(t, r.Errors)
	require.NotNil(t, r.Warnings)
}
