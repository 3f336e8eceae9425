// Package controller owns the workflow run loop.
//
// The Controller:
//   - Runs preflight checks over the required input artifacts
//   - Executes the pipeline stages strictly in order
//   - Applies the validation gate after each stage
//   - Records exceptions and escalations without blocking
//   - Aggregates everything into one WorkflowReport
//
// Stages have no control over sequencing: the controller decides what runs
// next and when the run terminates.
package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/s2p-automation/rfxcore/engine/config"
	"github.com/s2p-automation/rfxcore/engine/handoff"
	"github.com/s2p-automation/rfxcore/engine/ledger"
	"github.com/s2p-automation/rfxcore/engine/observability"
	"github.com/s2p-automation/rfxcore/engine/stage"
	"github.com/s2p-automation/rfxcore/engine/stages"
	"github.com/s2p-automation/rfxcore/engine/validation"
	"github.com/s2p-automation/rfxcore/notify"
)

// State is the controller's position in the run lifecycle.
type State string

const (
	StatePreflight State = "preflight"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// handoffEdge copies a stage's output artifact to the next stage's input
// artifact after the producing stage succeeds.
type handoffEdge struct {
	afterStage string
	from       string
	to         string
}

// Controller executes one workflow run end to end.
//
// A Controller is single-use: create one per run. The ledger, correlation
// id, and report all belong to that run.
type Controller struct {
	cfg    *config.WorkflowConfig
	store  handoff.Store
	stages []stage.Stage
	gate   *validation.Gate
	ledger *ledger.Ledger
	bus    *notify.InMemoryBus
	logger stage.Logger
	tracer trace.Tracer

	edges []handoffEdge

	state         State
	runID         string
	correlationID string
}

// Option configures a Controller.
type Option func(*Controller)

// WithBus attaches a notification bus for lifecycle events.
func WithBus(bus *notify.InMemoryBus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithLedger replaces the run's exception ledger, for tests that need an
// injected clock.
func WithLedger(l *ledger.Ledger) Option {
	return func(c *Controller) { c.ledger = l }
}

// New creates a Controller for one run over the given stages.
// Stages execute in the order given.
func New(cfg *config.WorkflowConfig, store handoff.Store, stages []stage.Stage, logger stage.Logger, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		store:  store,
		stages: stages,
		gate:   validation.NewGate(cfg.MandatoryHeaderFields),
		ledger: ledger.New(),
		logger: logger,
		tracer: otel.Tracer("rfxcore/controller"),
		edges: []handoffEdge{
			{afterStage: stage.NameTemplateSelection, from: handoff.ArtifactCustomizedTemplate, to: handoff.ArtifactDraftingTemplateInput},
			{afterStage: stage.NameContentDrafting, from: handoff.ArtifactDraftedDocument, to: handoff.ArtifactDistributionDocInput},
		},
		state: StatePreflight,
		runID: "run_" + uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunID returns the unique id assigned to this run.
func (c *Controller) RunID() string { return c.runID }

// State returns the controller's current lifecycle state.
func (c *Controller) State() State { return c.state }

// Run executes the workflow: preflight, the stage loop, and terminal
// aggregation. It always returns a report, never an error; failures are
// expressed through the report's status.
func (c *Controller) Run(ctx context.Context) *WorkflowReport {
	startedAt := time.Now().UTC()

	ctx, span := c.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("workflow.name", c.cfg.Name),
			attribute.String("workflow.run_id", c.runID),
		))
	defer span.End()

	report := &WorkflowReport{
		RunID:     c.runID,
		Workflow:  c.cfg.Name,
		StartedAt: startedAt,
	}

	c.logger.Info("workflow_started",
		"run_id", c.runID,
		"workflow", c.cfg.Name,
		"stage_count", len(c.stages),
	)

	// Preflight: verify every required input artifact exists before any
	// stage runs. Read-only, so repeating it cannot change the result.
	missing := c.preflight(ctx)
	if len(missing) > 0 {
		c.state = StateAborted
		report.MissingInputs = missing
		c.finalize(ctx, report, StatusError,
			fmt.Sprintf("Preflight failed: missing required inputs: %s", strings.Join(missing, ", ")))
		return report
	}

	c.state = StateRunning

	for seq, s := range c.stages {
		record, aborted := c.runStage(ctx, seq, s)
		report.StageResults = append(report.StageResults, record)

		if aborted {
			c.state = StateAborted
			c.finalize(ctx, report, StatusError,
				fmt.Sprintf("Workflow aborted at stage %s: %s", s.Name(), record.Result.Message))
			return report
		}
	}

	c.state = StateCompleted
	status, message := c.aggregate(report)
	c.finalize(ctx, report, status, message)
	return report
}

// preflight checks the configured required inputs against the handoff
// store and returns the keys that are absent, in configuration order.
func (c *Controller) preflight(ctx context.Context) []string {
	_, span := c.tracer.Start(ctx, "workflow.preflight")
	defer span.End()

	var missing []string
	for _, key := range c.cfg.RequiredInputs {
		if !c.store.Exists(key) {
			missing = append(missing, key)
			c.logger.Warn("preflight_input_missing", "artifact", key)
		}
	}

	if len(missing) == 0 {
		c.logger.Info("preflight_passed", "inputs_checked", len(c.cfg.RequiredInputs))
	}
	return missing
}

// runStage executes one stage with panic recovery, validates its result,
// and records any exceptions. The returned flag reports whether the run
// must abort.
func (c *Controller) runStage(ctx context.Context, seq int, s stage.Stage) (StageRecord, bool) {
	stageName := s.Name()
	stageStart := time.Now().UTC()

	stageCtx, span := c.tracer.Start(ctx, "stage."+stageName,
		trace.WithAttributes(attribute.Int("stage.seq", seq)))
	defer span.End()

	if c.cfg.StageTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, time.Duration(c.cfg.StageTimeoutSeconds)*time.Second)
		defer cancel()
	}

	c.publish(stageCtx, &notify.StageStarted{RunID: c.runID, StageName: stageName, StageSeq: seq})

	result := stage.Run(stageCtx, c.logger, s)
	duration := time.Since(stageStart)
	durationMS := int(duration.Milliseconds())

	observability.RecordStageExecution(stageName, string(result.Status), durationMS)
	span.SetAttributes(attribute.String("stage.status", string(result.Status)))

	c.publish(stageCtx, &notify.StageCompleted{
		RunID:      c.runID,
		StageName:  stageName,
		Status:     string(result.Status),
		Message:    result.Message,
		DurationMS: durationMS,
	})

	// The first stage to report an RFX id pins the run's correlation id.
	// Later stages carry it along but never replace it.
	if c.correlationID == "" && result.RFXID != "" {
		c.correlationID = result.RFXID
		c.logger.Info("correlation_id_assigned", "rfx_id", c.correlationID)
	}

	record := StageRecord{
		StageName:  stageName,
		Result:     result,
		StartedAt:  stageStart,
		Duration:   duration,
		DurationMS: durationMS,
	}

	if outcome, gated := c.gate.Validate(stageName, result); gated {
		record.Outcome = &outcome
		if !outcome.Valid {
			c.recordValidationFailure(stageCtx, stageName, result, outcome)
		}
	}

	if result.Status != stage.StatusSuccess {
		c.logger.Error("stage_failed",
			"stage", stageName,
			"message", result.Message,
		)
		return record, true
	}

	c.logger.Info("stage_completed",
		"stage", stageName,
		"rfx_id", result.RFXID,
		"duration_ms", durationMS,
	)

	// Propagate the stage's output artifact to the downstream stage.
	for _, edge := range c.edges {
		if edge.afterStage != stageName {
			continue
		}
		if err := c.store.Copy(edge.from, edge.to); err != nil {
			record.Result = stage.Errorf("handoff from %s failed: %v", stageName, err)
			c.logger.Error("handoff_copy_failed",
				"stage", stageName,
				"from", edge.from,
				"to", edge.to,
				"error", err.Error(),
			)
			return record, true
		}
	}

	return record, false
}

// recordValidationFailure appends the failure to the exception ledger and
// emits the advisory events. Escalations enqueue a stakeholder request but
// never block the run.
func (c *Controller) recordValidationFailure(ctx context.Context, stageName string, result *stage.Result, outcome validation.Outcome) {
	message := result.Message
	if message == "" {
		message = fmt.Sprintf("Validation failed for stage %s", stageName)
	}

	record := c.ledger.RecordException(stageName, message, outcome)
	observability.RecordValidationIssues(stageName, len(outcome.Issues), outcome.RequiresEscalation)

	c.logger.Warn("validation_failed",
		"stage", stageName,
		"issues", strings.Join(outcome.Issues, "; "),
		"escalated", outcome.RequiresEscalation,
	)

	c.publish(ctx, &notify.ValidationFlagged{
		RunID:     c.runID,
		StageName: stageName,
		Issues:    outcome.Issues,
		Escalated: outcome.RequiresEscalation,
	})

	if outcome.RequiresEscalation {
		observability.RecordStakeholderRequest(stageName)
		c.publish(ctx, &notify.StakeholderRequested{
			RunID:     c.runID,
			RequestID: record.StakeholderRequestID,
			StageName: stageName,
			Issues:    outcome.Issues,
		})
	}
}

// aggregate derives the terminal status for a run whose stage loop
// completed.
func (c *Controller) aggregate(report *WorkflowReport) (WorkflowStatus, string) {
	succeeded := 0
	for _, rec := range report.StageResults {
		if rec.Result.Status == stage.StatusSuccess {
			succeeded++
		}
	}

	if succeeded == len(report.StageResults) {
		if c.ledger.HasExceptions() {
			return StatusSuccessWithWarnings,
				fmt.Sprintf("Workflow completed with %d exception(s)", len(c.ledger.Exceptions()))
		}
		return StatusSuccess, "Workflow completed successfully"
	}

	// A mixed outcome can only arise if a future stage contract allows
	// non-aborting errors; the abort path currently prevents it.
	return StatusPartialSuccess,
		fmt.Sprintf("Workflow completed with %d of %d stages successful", succeeded, len(report.StageResults))
}

// finalize stamps the report with the terminal status, ledger contents,
// and timing, then emits the closing telemetry.
func (c *Controller) finalize(ctx context.Context, report *WorkflowReport, status WorkflowStatus, message string) {
	report.Status = status
	report.Message = message
	report.CorrelationID = c.correlationID
	report.Exceptions = c.ledger.Exceptions()
	report.StakeholderRequests = c.ledger.StakeholderRequests()
	report.CompletedAt = time.Now().UTC()
	report.DurationMS = int(report.CompletedAt.Sub(report.StartedAt).Milliseconds())

	if report.Exceptions == nil {
		report.Exceptions = []ledger.ExceptionRecord{}
	}
	if report.StakeholderRequests == nil {
		report.StakeholderRequests = []ledger.StakeholderRequest{}
	}

	observability.RecordWorkflowExecution(c.cfg.Name, string(status), report.DurationMS)

	c.publish(ctx, &notify.WorkflowCompleted{
		RunID:         c.runID,
		CorrelationID: c.correlationID,
		Status:        string(status),
		Message:       message,
		Exceptions:    len(report.Exceptions),
		DurationMS:    report.DurationMS,
	})

	logFn := c.logger.Info
	if status == StatusError {
		logFn = c.logger.Error
	}
	logFn("workflow_finished",
		"run_id", c.runID,
		"status", string(status),
		"message", message,
		"exceptions", len(report.Exceptions),
		"stakeholder_requests", len(report.StakeholderRequests),
		"duration_ms", report.DurationMS,
	)
}

// publish sends a lifecycle event when a bus is attached.
func (c *Controller) publish(ctx context.Context, msg notify.Message) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, msg); err != nil {
		c.logger.Warn("notify_publish_failed", "event", notify.GetMessageType(msg), "error", err.Error())
	}
}

// DefaultStages builds the standard four-stage pipeline over a store.
func DefaultStages(store handoff.Store, logger stage.Logger) []stage.Stage {
	return []stage.Stage{
		stages.NewTemplateSelection(store, logger),
		stages.NewContentDrafting(store, logger),
		stages.NewDistribution(store, logger),
		stages.NewAuditLogging(store, logger),
	}
}
