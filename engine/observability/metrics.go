// Package observability provides Prometheus metrics instrumentation for the
// workflow engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workflowExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfx_workflow_executions_total",
			Help: "Total number of workflow executions",
		},
		[]string{"workflow", "status"}, // status: success, success_with_warnings, partial_success, error
	)

	workflowDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfx_workflow_duration_seconds",
			Help:    "Workflow execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"workflow"},
	)
)

var (
	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfx_stage_executions_total",
			Help: "Total number of stage executions",
		},
		[]string{"stage", "status"}, // status: success, error
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfx_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)
)

var (
	validationIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfx_validation_issues_total",
			Help: "Total number of validation gate issues",
		},
		[]string{"stage", "escalated"}, // escalated: true, false
	)

	stakeholderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfx_stakeholder_requests_total",
			Help: "Total number of stakeholder clarification requests",
		},
		[]string{"stage"},
	)
)

// RecordWorkflowExecution records workflow execution metrics. Called after a
// run completes or aborts.
func RecordWorkflowExecution(workflow string, status string, durationMS int) {
	workflowExecutionsTotal.WithLabelValues(workflow, status).Inc()
	workflowDurationSeconds.WithLabelValues(workflow).Observe(float64(durationMS) / 1000.0)
}

// RecordStageExecution records stage execution metrics.
func RecordStageExecution(stage string, status string, durationMS int) {
	stageExecutionsTotal.WithLabelValues(stage, status).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(float64(durationMS) / 1000.0)
}

// RecordValidationIssues records validation gate failures for a stage.
func RecordValidationIssues(stage string, issueCount int, escalated bool) {
	label := "false"
	if escalated {
		label = "true"
	}
	validationIssuesTotal.WithLabelValues(stage, label).Add(float64(issueCount))
}

// RecordStakeholderRequest records a stakeholder escalation.
func RecordStakeholderRequest(stage string) {
	stakeholderRequestsTotal.WithLabelValues(stage).Inc()
}
