// Package handoff provides the handoff store - the boundary through which
// one stage's output becomes the next stage's input.
//
// Artifacts are addressed by logical key. Presence of an artifact is the sole
// input-availability signal: the producing stage always commits its output
// before the controller triggers the copy to the consuming stage's input
// location, so no polling or locking is needed. The discipline is
// single-writer-per-key - only the producing stage writes its outputs, only
// the controller copies across handoff edges.
package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Canonical artifact keys for the Issue-RFX workflow.
const (
	// Upstream inputs checked by preflight.
	ArtifactCompanyProfile  = "company_profile"
	ArtifactFieldDictionary = "sap_field_dictionary"
	ArtifactRequirements    = "procurement_requirements"
	ArtifactTemplateIndex   = "historical_template_index"
	ArtifactSupplierMaster  = "supplier_master_data"

	// Stage inputs and outputs.
	ArtifactSupplierShortlist     = "supplier_shortlist"
	ArtifactCustomizedTemplate    = "customized_template"
	ArtifactDraftingTemplateInput = "drafting_template_input"
	ArtifactDraftedDocument       = "drafted_document"
	ArtifactDistributionDocInput  = "distribution_document_input"
	ArtifactDistributionStatus    = "distribution_status"
	ArtifactAuditTrail            = "audit_trail"
)

// ErrNotFound is returned when an artifact does not exist in the store.
var ErrNotFound = errors.New("artifact not found")

// Store is the handoff store protocol.
type Store interface {
	// Put writes an artifact, replacing any previous value.
	Put(key string, data []byte) error
	// Get reads an artifact. Returns ErrNotFound if it does not exist.
	Get(key string) ([]byte, error)
	// Exists reports whether an artifact is present.
	Exists(key string) bool
	// Copy duplicates the artifact at src into dst.
	Copy(src, dst string) error
}

// PutJSON marshals value and writes it under key.
func PutJSON(s Store, key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(key, data)
}

// GetJSON reads the artifact at key and unmarshals it into a map.
func GetJSON(s Store, key string) (map[string]any, error) {
	data, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	var value map[string]any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return value, nil
}
