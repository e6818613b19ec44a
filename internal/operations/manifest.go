package operations

import (
	"time"

	"acidentes/internal/dataprocessing"
	"acidentes/internal/exporter"
	"acidentes/pkg/contracts"
)

// RunManifest is the machine-readable record of a run, written next to the
// exported table. It is the only place where timestamps and review findings
// are persisted; the exported table itself stays byte-identical across runs.
type RunManifest struct {
	FormatVersion string                `json:"format_version"`
	RunID         string                `json:"run_id"`
	Build         contracts.VersionInfo `json:"build"`
	Status        RunStatus             `json:"status"`
	StartTime     time.Time             `json:"start_time"`
	EndTime       time.Time             `json:"end_time"`
	Duration      string                `json:"duration"`
	// ReferenceDate is the "today" the future-date check compared against.
	ReferenceDate string `json:"reference_date"`

	Rows    int                   `json:"rows"`
	Columns []string              `json:"columns,omitempty"`
	Stages  []StageExecution      `json:"stages"`
	Report  RunReport             `json:"report"`
	Outputs []exporter.FileResult `json:"outputs"`
	Error   *OperationError       `json:"error,omitempty"`
}

// RunReport aggregates the recoverable conditions found by the stages. None
// of them stops a run; they are surfaced here for review.
type RunReport struct {
	Sources      []dataprocessing.SourceSummary   `json:"sources"`
	Cleaning     *dataprocessing.CleaningReport   `json:"cleaning,omitempty"`
	Derivation   *dataprocessing.DerivationReport `json:"derivation,omitempty"`
	Aggregations []*dataprocessing.FrequencyTable `json:"aggregations,omitempty"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	StageID   string    `json:"stage_id"`
	StageName string    `json:"stage_name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Rows      int       `json:"rows,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewRunManifest builds the manifest from the final run state.
func NewRunManifest(state *RunState, referenceDate string, runErr error) *RunManifest {
	m := &RunManifest{
		FormatVersion: contracts.ManifestFormatVersion,
		RunID:         state.ID,
		Build:         contracts.GetVersionInfo(),
		Status:        state.Status,
		StartTime:     state.StartTime,
		EndTime:       state.EndTime,
		Duration:      state.Duration().String(),
		ReferenceDate: referenceDate,
		Rows:          state.TableRows(),
		Outputs:       append([]exporter.FileResult(nil), state.Outputs...),
		Error:         WrapError(runErr, ""),
	}
	m.Report = RunReport{
		Sources:      state.SourceSummaries,
		Cleaning:     state.Cleaning,
		Derivation:   state.Derivation,
		Aggregations: state.Aggregations,
	}
	if state.Table != nil {
		m.Columns = state.Table.Columns()
	}
	for _, step := range state.Steps() {
		m.Stages = append(m.Stages, step.Snapshot())
	}
	return m
}

// Output returns the recorded output whose path is path
func (m *RunManifest) Output(path string) (exporter.FileResult, bool) {
	for _, o := range m.Outputs {
		if o.Path == path {
			return o, true
		}
	}
	return exporter.FileResult{}, false
}
