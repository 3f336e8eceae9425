// Package config provides workflow orchestration configuration.
//
// This module contains only configuration relevant to orchestration:
// artifact locations, required inputs, validation knobs, and limits.
// Credential and delivery-channel configuration belongs to the external
// collaborators and is out of scope here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/s2p-automation/rfxcore/engine/handoff"
)

// WorkflowConfig holds configuration for one Issue-RFX workflow run.
type WorkflowConfig struct {
	// Name identifies the workflow for logging and metrics.
	Name string `yaml:"name" json:"name"`

	// DataRoot is the workflow-data directory backing the handoff store.
	DataRoot string `yaml:"data_root" json:"data_root"`

	// ReportPath is where the execution report is persisted. Overwritten on
	// each run.
	ReportPath string `yaml:"report_path" json:"report_path"`

	// RequiredInputs are the handoff artifact keys that must exist before
	// any stage runs. Preflight aborts the run if any is missing.
	RequiredInputs []string `yaml:"required_inputs" json:"required_inputs"`

	// MandatoryHeaderFields are the drafted-document header fields the
	// content validation gate requires to be present and non-empty.
	MandatoryHeaderFields []string `yaml:"mandatory_header_fields" json:"mandatory_header_fields"`

	// StageTimeoutSeconds bounds a single stage execution. Zero disables
	// the per-stage deadline.
	StageTimeoutSeconds int `yaml:"stage_timeout_seconds" json:"stage_timeout_seconds"`

	// LogLevel controls log verbosity in the CLI.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultWorkflowConfig returns a WorkflowConfig with default values.
func DefaultWorkflowConfig() *WorkflowConfig {
	return &WorkflowConfig{
		Name:       "issue-rfx",
		DataRoot:   "Issue_RFX_Workflow_Data",
		ReportPath: "Issue_RFX_Workflow_Data/execution_report.json",
		RequiredInputs: []string{
			handoff.ArtifactCompanyProfile,
			handoff.ArtifactFieldDictionary,
			handoff.ArtifactRequirements,
			handoff.ArtifactTemplateIndex,
			handoff.ArtifactSupplierMaster,
		},
		MandatoryHeaderFields: []string{"BUKRS", "EKORG", "EKGRP", "BSART"},
		StageTimeoutSeconds:   0,
		LogLevel:              "INFO",
	}
}

// Validate validates the workflow configuration.
func (c *WorkflowConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("WorkflowConfig.Name is required")
	}
	if c.DataRoot == "" {
		return fmt.Errorf("WorkflowConfig.DataRoot is required")
	}
	if len(c.RequiredInputs) == 0 {
		return fmt.Errorf("workflow '%s' has no required inputs configured", c.Name)
	}
	if len(c.MandatoryHeaderFields) == 0 {
		return fmt.Errorf("workflow '%s' has no mandatory header fields configured", c.Name)
	}
	if c.StageTimeoutSeconds < 0 {
		return fmt.Errorf("workflow '%s' stage_timeout_seconds must be >= 0", c.Name)
	}
	return nil
}

// LoadFile reads a YAML workflow configuration, overlaying defaults.
func LoadFile(path string) (*WorkflowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow config: %w", err)
	}

	cfg := DefaultWorkflowConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse workflow config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
