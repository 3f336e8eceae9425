// Package stage defines the stage contract for the Issue-RFX workflow.
//
// A stage is one unit of the four-step workflow (template selection, content
// drafting, distribution, audit logging). Stages read their inputs from the
// handoff store, write their outputs back to it, and return exactly one
// Result. Failures inside a stage are converted to an error Result at the
// stage boundary; they never escape to the controller as a fault.
package stage

import (
	"context"
	"fmt"
	"strings"
)

// Status represents the outcome status of a stage execution.
type Status string

const (
	// StatusSuccess indicates the stage completed and committed its output.
	StatusSuccess Status = "success"
	// StatusError indicates the stage failed; its output must not be used.
	StatusError Status = "error"
)

// StatusFromString parses a status string.
func StatusFromString(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "success":
		return StatusSuccess, nil
	case "error":
		return StatusError, nil
	default:
		return "", fmt.Errorf("invalid stage status '%s'. Must be one of: success, error", value)
	}
}

// Result is the single output of a stage execution.
//
// RFXID carries the workflow correlation id. It is set by the first
// successful stage and propagated unchanged by every later stage.
// A Result is immutable once returned.
type Result struct {
	Status  Status         `json:"status"`
	RFXID   string         `json:"rfx_id,omitempty"`
	Message string         `json:"message"`
	Payload map[string]any `json:"data,omitempty"`
}

// Success builds a success Result.
func Success(rfxID, message string, payload map[string]any) *Result {
	return &Result{
		Status:  StatusSuccess,
		RFXID:   rfxID,
		Message: message,
		Payload: payload,
	}
}

// Errorf builds an error Result with a formatted message.
func Errorf(format string, args ...any) *Result {
	return &Result{
		Status:  StatusError,
		Message: fmt.Sprintf(format, args...),
	}
}

// Stage is a unit of work in the pipeline.
//
// Execute is invoked with no controller-supplied arguments beyond the
// context; the stage reads its own inputs from the handoff store it was
// constructed with. On success the stage has already written its payload to
// its designated handoff location before returning. A stage must never
// mutate another stage's prior output.
type Stage interface {
	Name() string
	Execute(ctx context.Context) *Result
}

// Logger is the interface for logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
