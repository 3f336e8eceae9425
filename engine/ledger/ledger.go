// Package ledger provides the exception ledger and stakeholder request
// queue for one workflow run.
//
// Every validation failure is appended to the ledger. Failures that require
// escalation additionally enqueue a stakeholder clarification request and
// link it to the exception record. Escalation is advisory-only: it records
// the need for human input but never blocks the pipeline, which proceeds
// with the stage's output as-is.
package ledger

import (
	"fmt"
	"time"

	"github.com/s2p-automation/rfxcore/engine/validation"
)

// ResolutionStatus tracks how a recorded exception is being resolved.
type ResolutionStatus string

const (
	// ResolutionAutoResolved marks issues handled without human input.
	ResolutionAutoResolved ResolutionStatus = "auto_resolved"
	// ResolutionAwaitingStakeholder marks issues pending clarification.
	ResolutionAwaitingStakeholder ResolutionStatus = "awaiting_stakeholder"
)

// RequestStatus is the lifecycle status of a stakeholder request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusResolved RequestStatus = "resolved"
)

// ExceptionRecord is one validation failure and its resolution path.
// Append-only; nothing mutates a record after creation within a run.
type ExceptionRecord struct {
	Timestamp        time.Time        `json:"timestamp"`
	StageID          string           `json:"stage_id"`
	Message          string           `json:"message"`
	Issues           []string         `json:"issues"`
	ResolutionStatus ResolutionStatus `json:"resolution_status"`
	// StakeholderRequestID links the escalation request, when one exists.
	StakeholderRequestID string `json:"stakeholder_request_id,omitempty"`
}

// StakeholderRequest is an escalation awaiting human clarification.
type StakeholderRequest struct {
	RequestID  string        `json:"request_id"`
	Timestamp  time.Time     `json:"timestamp"`
	StageID    string        `json:"stage_id"`
	Issues     []string      `json:"issues"`
	Status     RequestStatus `json:"status"`
	Resolution *string       `json:"resolution"`
}

// Ledger accumulates exceptions and stakeholder requests for a single run.
// Created fresh per run; not safe for concurrent use and not shared across
// runs.
type Ledger struct {
	exceptions []ExceptionRecord
	requests   []StakeholderRequest
	seq        int
	now        func() time.Time
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{now: time.Now}
}

// NewWithClock creates a Ledger with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

// RecordException appends an exception record for a failed validation
// outcome. When the outcome requires escalation, a stakeholder request is
// created, linked to the record, and the record is marked
// awaiting_stakeholder; otherwise the record is auto-resolved immediately.
func (l *Ledger) RecordException(stageID, message string, outcome validation.Outcome) ExceptionRecord {
	record := ExceptionRecord{
		Timestamp: l.now().UTC(),
		StageID:   stageID,
		Message:   message,
		Issues:    outcome.Issues,
	}

	if outcome.RequiresEscalation {
		request := l.enqueueRequest(stageID, outcome.Issues)
		record.ResolutionStatus = ResolutionAwaitingStakeholder
		record.StakeholderRequestID = request.RequestID
	} else {
		record.ResolutionStatus = ResolutionAutoResolved
	}

	l.exceptions = append(l.exceptions, record)
	return record
}

// enqueueRequest creates a stakeholder request with a per-run unique,
// creation-order sortable id.
func (l *Ledger) enqueueRequest(stageID string, issues []string) StakeholderRequest {
	l.seq++
	ts := l.now().UTC()
	request := StakeholderRequest{
		RequestID: fmt.Sprintf("REQ-%s-%03d", ts.Format("20060102150405"), l.seq),
		Timestamp: ts,
		StageID:   stageID,
		Issues:    issues,
		Status:    RequestStatusPending,
	}
	l.requests = append(l.requests, request)
	return request
}

// Exceptions returns the recorded exceptions in creation order.
func (l *Ledger) Exceptions() []ExceptionRecord {
	return l.exceptions
}

// StakeholderRequests returns the enqueued requests in creation order.
func (l *Ledger) StakeholderRequests() []StakeholderRequest {
	return l.requests
}

// HasExceptions reports whether any validation failure was recorded.
func (l *Ledger) HasExceptions() bool {
	return len(l.exceptions) > 0
}
