// Package validation provides the per-stage validation gate.
//
// One validator exists per stage type, each a pure function from a stage
// Result to an Outcome. Validators never fail themselves: a Result with
// missing or malformed nested fields degrades to an issue in the Outcome,
// not a panic. Outcomes carry no side effects; recording and escalation are
// the controller's job.
package validation

import (
	"fmt"

	"github.com/s2p-automation/rfxcore/engine/stage"
	"github.com/s2p-automation/rfxcore/engine/typeutil"
)

// Outcome is the result of validating one stage Result.
type Outcome struct {
	Valid bool `json:"valid"`
	// Issues lists rule violations in evaluation order.
	Issues []string `json:"issues"`
	// RequiresEscalation marks issues that need stakeholder clarification
	// rather than automatic resolution.
	RequiresEscalation bool `json:"requires_escalation"`
}

// Validator inspects a stage Result against stage-specific business rules.
type Validator func(*stage.Result) Outcome

// Gate holds the validator set for the pipeline.
type Gate struct {
	validators map[string]Validator
}

// NewGate builds the gate for the Issue-RFX pipeline.
//
// mandatoryHeaderFields are the drafted-document header fields the content
// drafting validator requires (BUKRS, EKORG, EKGRP, BSART by default).
// The audit logging stage is informational and has no validator.
func NewGate(mandatoryHeaderFields []string) *Gate {
	return &Gate{
		validators: map[string]Validator{
			stage.NameTemplateSelection: validateTemplateSelection,
			stage.NameContentDrafting:   contentDraftingValidator(mandatoryHeaderFields),
			stage.NameDistribution:      validateDistribution,
		},
	}
}

// Validate runs the validator for stageName. ok is false when the stage has
// no validation gate.
func (g *Gate) Validate(stageName string, result *stage.Result) (Outcome, bool) {
	v, ok := g.validators[stageName]
	if !ok {
		return Outcome{Valid: true}, false
	}
	return v(result), true
}

// validateTemplateSelection flags a failed selection, a missing correlation
// id, or a template without a non-empty section list. Any issue escalates.
func validateTemplateSelection(result *stage.Result) Outcome {
	var issues []string

	if result.Status != stage.StatusSuccess {
		issues = append(issues, "Template selection failed")
	}
	if result.RFXID == "" {
		issues = append(issues, "Missing RFX ID")
	}
	if typeutil.CollectionLen(payloadField(result, "sections")) == 0 {
		issues = append(issues, "Missing mandatory sections in template")
	}

	return Outcome{
		Valid:              len(issues) == 0,
		Issues:             issues,
		RequiresEscalation: len(issues) > 0,
	}
}

func contentDraftingValidator(mandatoryFields []string) Validator {
	return func(result *stage.Result) Outcome {
		var issues []string

		if result.Status != stage.StatusSuccess {
			issues = append(issues, "Content drafting failed")
		}

		header := typeutil.SafeMapStringAnyDefault(payloadField(result, "header"), map[string]any{})
		for _, field := range mandatoryFields {
			if !headerFieldPresent(header, field) {
				issues = append(issues, fmt.Sprintf("Missing mandatory SAP field: %s", field))
			}
		}

		if typeutil.CollectionLen(payloadField(result, "items")) == 0 {
			issues = append(issues, "No line items generated")
		}
		if typeutil.CollectionLen(payloadField(result, "sections")) == 0 {
			issues = append(issues, "Missing content sections")
		}

		return Outcome{
			Valid:              len(issues) == 0,
			Issues:             issues,
			RequiresEscalation: len(issues) > 0,
		}
	}
}

// validateDistribution flags an empty recipient list or a delivery
// shortfall. Distribution issues never escalate - shortfalls are logged and
// handled automatically.
func validateDistribution(result *stage.Result) Outcome {
	var issues []string

	if result.Status != stage.StatusSuccess {
		issues = append(issues, "Distribution failed")
	}

	total := typeutil.SafeIntDefault(payloadField(result, "total_suppliers"), 0)
	delivered := typeutil.SafeIntDefault(payloadField(result, "successfully_delivered"), 0)

	if total == 0 {
		issues = append(issues, "No suppliers in distribution list")
	}
	if delivered != total {
		issues = append(issues, "Some deliveries failed")
	}

	return Outcome{
		Valid:              len(issues) == 0,
		Issues:             issues,
		RequiresEscalation: false,
	}
}

func payloadField(result *stage.Result, key string) any {
	if result == nil || result.Payload == nil {
		return nil
	}
	return result.Payload[key]
}

func headerFieldPresent(header map[string]any, field string) bool {
	v, ok := header[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := typeutil.SafeString(v); isStr {
		return s != ""
	}
	return true
}
