package operations

import (
	"context"
	"sync"
	"time"
)

// Step represents a single step of a pipeline run
type Step interface {
	// ID returns the unique identifier for this Step
	ID() string

	// Name returns the human-readable name for this Step
	Name() string

	// Execute runs the Step, reading its input from state and storing its
	// output back into it
	Execute(ctx context.Context, state *RunState) error
}

// StepStatus represents the current status of a Step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a Step
type StepState struct {
	mu        sync.RWMutex
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	// Rows is the row count of the step output, when it produces a table.
	Rows    int    `json:"rows,omitempty"`
	Message string `json:"message,omitempty"`
	Error   error  `json:"-"`
}

// NewStepState creates a new Step state with default values
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:     id,
		Name:   name,
		Status: StepStatusPending,
	}
}

// Start marks the Step as active and sets the start time
func (s *StepState) Start(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the Step as completed and sets the end time
func (s *StepState) Complete(now time.Time, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.EndTime = &now
	s.Status = StepStatusCompleted
	s.Rows = rows
}

// Fail marks the Step as failed with the given error
func (s *StepState) Fail(now time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Error = err
	if err != nil {
		s.Message = err.Error()
	}
}

// Skip marks the Step as skipped with the given reason
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Status = StepStatusSkipped
	s.Message = reason
}

// Duration returns the duration of the Step execution
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil || s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(*s.StartTime)
}

// Snapshot returns the step state as a manifest entry
func (s *StepState) Snapshot() StageExecution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec := StageExecution{
		StageID:   s.ID,
		StageName: s.Name,
		Status:    string(s.Status),
		Rows:      s.Rows,
		Error:     s.Message,
	}
	if s.StartTime != nil {
		exec.StartTime = *s.StartTime
	}
	if s.EndTime != nil {
		exec.EndTime = *s.EndTime
	}
	if s.StartTime != nil && s.EndTime != nil {
		exec.Duration = s.EndTime.Sub(*s.StartTime).String()
	}
	if s.Status != StepStatusFailed {
		exec.Error = ""
	}
	return exec
}

// BaseStage provides common functionality for Step implementations
type BaseStage struct {
	id   string
	name string
}

// NewBaseStage creates a new base Step
func NewBaseStage(id, name string) BaseStage {
	return BaseStage{id: id, name: name}
}

// ID returns the Step ID
func (b *BaseStage) ID() string {
	return b.id
}

// Name returns the Step name
func (b *BaseStage) Name() string {
	return b.name
}
