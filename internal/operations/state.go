package operations

import (
	"sync"
	"time"

	"acidentes/internal/dataprocessing"
	"acidentes/internal/exporter"
)

// RunStatus represents the overall status of a run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState carries the data handed from one step to the next. Each step
// replaces Table with the table it produced; earlier tables are never
// modified.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   time.Time

	Sources      []dataprocessing.Source
	Loaded       []dataprocessing.SourceTable
	Consolidated *dataprocessing.Table
	Table        *dataprocessing.Table

	SourceSummaries []dataprocessing.SourceSummary
	Cleaning        *dataprocessing.CleaningReport
	Derivation      *dataprocessing.DerivationReport
	Aggregations    []*dataprocessing.FrequencyTable
	Outputs         []exporter.FileResult

	steps map[string]*StepState
	order []string
}

// NewRunState creates a new run state with default values
func NewRunState(id string, sources []dataprocessing.Source) *RunState {
	return &RunState{
		ID:      id,
		Status:  RunStatusPending,
		Sources: sources,
		steps:   make(map[string]*StepState),
	}
}

// Start marks the run as running
func (s *RunState) Start(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = RunStatusRunning
	s.StartTime = now
}

// Finish records the final status of the run
func (s *RunState) Finish(now time.Time, status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.EndTime = now
}

// Duration returns the duration of the run
func (s *RunState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// AddStep registers the state of a step, keeping registration order
func (s *RunState) AddStep(step *StepState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.steps[step.ID]; !ok {
		s.order = append(s.order, step.ID)
	}
	s.steps[step.ID] = step
}

// GetStep returns the state of a step
func (s *RunState) GetStep(id string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[id]
}

// Steps returns the step states in registration order
func (s *RunState) Steps() []*StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StepState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.steps[id])
	}
	return out
}

// HasFailures reports whether any step failed
func (s *RunState) HasFailures() bool {
	for _, step := range s.Steps() {
		if step.Status == StepStatusFailed {
			return true
		}
	}
	return false
}

// AddOutput records a file written by the run
func (s *RunState) AddOutput(result exporter.FileResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Outputs = append(s.Outputs, result)
}

// TableRows returns the row count of the current table, 0 when there is none
func (s *RunState) TableRows() int {
	if s.Table == nil {
		return 0
	}
	return s.Table.Len()
}
