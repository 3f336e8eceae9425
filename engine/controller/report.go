package controller

import (
	"time"

	"github.com/s2p-automation/rfxcore/engine/ledger"
	"github.com/s2p-automation/rfxcore/engine/stage"
	"github.com/s2p-automation/rfxcore/engine/validation"
)

// WorkflowStatus is the terminal status of a workflow run.
type WorkflowStatus string

const (
	// StatusSuccess means every stage succeeded and no exceptions were recorded.
	StatusSuccess WorkflowStatus = "success"
	// StatusSuccessWithWarnings means every stage succeeded but validation
	// recorded at least one exception.
	StatusSuccessWithWarnings WorkflowStatus = "success_with_warnings"
	// StatusPartialSuccess means the run completed with a mix of stage
	// outcomes.
	StatusPartialSuccess WorkflowStatus = "partial_success"
	// StatusError means the run aborted before completing all stages.
	StatusError WorkflowStatus = "error"
)

// StageRecord pairs a stage's result with its validation outcome.
// Outcome is nil for stages that have no validation gate.
type StageRecord struct {
	StageName string              `json:"stage_name"`
	Result    *stage.Result       `json:"result"`
	Outcome   *validation.Outcome `json:"validation,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"-"`

	DurationMS int `json:"duration_ms"`
}

// WorkflowReport is the consolidated result of one workflow run.
type WorkflowReport struct {
	RunID               string                      `json:"run_id"`
	Workflow            string                      `json:"workflow"`
	Status              WorkflowStatus              `json:"status"`
	Message             string                      `json:"message"`
	CorrelationID       string                      `json:"correlation_id,omitempty"`
	StageResults        []StageRecord               `json:"stage_results"`
	Exceptions          []ledger.ExceptionRecord    `json:"exceptions"`
	StakeholderRequests []ledger.StakeholderRequest `json:"stakeholder_requests"`
	MissingInputs       []string                    `json:"missing_inputs,omitempty"`
	StartedAt           time.Time                   `json:"started_at"`
	CompletedAt         time.Time                   `json:"completed_at"`
	DurationMS          int                         `json:"duration_ms"`
}

// Succeeded reports whether the run reached the fully-successful terminal
// status. Warning runs are not counted as succeeded.
func (r *WorkflowReport) Succeeded() bool {
	return r.Status == StatusSuccess
}

// StageStatus returns the result status for a named stage, or empty string
// if the stage never ran.
func (r *WorkflowReport) StageStatus(stageName string) stage.Status {
	for _, rec := range r.StageResults {
		if rec.StageName == stageName {
			return rec.Result.Status
		}
	}
	return ""
}
