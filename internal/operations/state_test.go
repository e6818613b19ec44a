package operations_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"acidentes/internal/operations"
)

func TestStepState_Transitions(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	tests := []struct {
		name       string
		transition func(*operations.StepState)
		wantStatus string
		wantRows   int
		wantError  string
		duration   string
	}{
		{
			name: "complete",
			transition: func(s *operations.StepState) {
				s.Start(start)
				s.Complete(end, 42)
			},
			wantStatus: "completed",
			wantRows:   42,
			duration:   "1.5s",
		},
		{
			name: "fail",
			transition: func(s *operations.StepState) {
				s.Start(start)
				s.Fail(end, errors.New("bad row"))
			},
			wantStatus: "failed",
			wantError:  "bad row",
			duration:   "1.5s",
		},
		{
			name: "skip",
			transition: func(s *operations.StepState) {
				s.Skip("step load failed")
			},
			wantStatus: "skipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := operations.NewStepState("clean", "Cleaning")
			tt.transition(state)

			snap := state.Snapshot()
			assert.Equal(t, "clean", snap.StageID)
			assert.Equal(t, "Cleaning", snap.StageName)
			assert.Equal(t, tt.wantStatus, snap.Status)
			assert.Equal(t, tt.wantRows, snap.Rows)
			assert.Equal(t, tt.wantError, snap.Error)
			assert.Equal(t, tt.duration, snap.Duration)
		})
	}
}

func TestRunState_StepsKeepRegistrationOrder(t *testing.T) {
	state := operations.NewRunState("run", nil)
	for _, id := range []string{"load", "consolidate", "clean"} {
		state.AddStep(operations.NewStepState(id, id))
	}
	// Re-registering does not move a step.
	state.AddStep(operations.NewStepState("load", "again"))

	var ids []string
	for _, s := range state.Steps() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"load", "consolidate", "clean"}, ids)
	assert.Equal(t, "again", state.GetStep("load").Name)
	assert.False(t, state.HasFailures())

	state.GetStep("clean").Fail(time.Now(), errors.New("x"))
	assert.True(t, state.HasFailures())
	assert.Zero(t, state.TableRows())
}

func TestRunState_Duration(t *testing.T) {
	state := operations.NewRunState("run", nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	state.Start(start)
	assert.Zero(t, state.Duration())

	state.Finish(start.Add(time.Minute), operations.RunStatusCompleted)
	assert.Equal(t, time.Minute, state.Duration())
	assert.Equal(t, operations.RunStatusCompleted, state.Status)
}
