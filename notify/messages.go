// Package notify provides the in-process notification bus for workflow
// lifecycle events.
//
// The controller publishes events as the pipeline advances; subscribers
// (console output, telemetry, compliance sinks) consume them. Events are
// fire-and-forget with fan-out to every subscriber.
package notify

// MessageCategory represents message routing categories.
type MessageCategory string

const (
	// MessageCategoryEvent represents fire-and-forget fan-out messages.
	MessageCategoryEvent MessageCategory = "event"
)

// Message is the protocol for all bus messages.
type Message interface {
	// Category returns the message category.
	Category() string
}

// StageStarted is emitted when a stage begins executing.
type StageStarted struct {
	RunID     string `json:"run_id"`
	StageName string `json:"stage_name"`
	StageSeq  int    `json:"stage_seq"`
}

// Category implements the Message interface.
func (m *StageStarted) Category() string { return string(MessageCategoryEvent) }

// StageCompleted is emitted when a stage finishes.
type StageCompleted struct {
	RunID      string `json:"run_id"`
	StageName  string `json:"stage_name"`
	Status     string `json:"status"` // "success", "error"
	Message    string `json:"message"`
	DurationMS int    `json:"duration_ms"`
}

// Category implements the Message interface.
func (m *StageCompleted) Category() string { return string(MessageCategoryEvent) }

// ValidationFlagged is emitted when a validation gate rejects a stage's
// output. The pipeline still proceeds; the event records the issues.
type ValidationFlagged struct {
	RunID     string   `json:"run_id"`
	StageName string   `json:"stage_name"`
	Issues    []string `json:"issues"`
	Escalated bool     `json:"escalated"`
}

// Category implements the Message interface.
func (m *ValidationFlagged) Category() string { return string(MessageCategoryEvent) }

// StakeholderRequested is emitted when an escalation enqueues a stakeholder
// clarification request.
type StakeholderRequested struct {
	RunID     string   `json:"run_id"`
	RequestID string   `json:"request_id"`
	StageName string   `json:"stage_name"`
	Issues    []string `json:"issues"`
}

// Category implements the Message interface.
func (m *StakeholderRequested) Category() string { return string(MessageCategoryEvent) }

// WorkflowCompleted is emitted once per run, after the terminal state is
// reached.
type WorkflowCompleted struct {
	RunID         string `json:"run_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	Exceptions    int    `json:"exceptions"`
	DurationMS    int    `json:"duration_ms"`
}

// Category implements the Message interface.
func (m *WorkflowCompleted) Category() string { return string(MessageCategoryEvent) }
