package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/s2p-automation/rfxcore/engine/handoff"
	"github.com/s2p-automation/rfxcore/engine/stage"
	"github.com/s2p-automation/rfxcore/engine/typeutil"
)

// ContentDrafting populates the customized template into a complete RFX
// document: SAP header fields, line items, and content sections.
type ContentDrafting struct {
	store  handoff.Store
	logger stage.Logger
	now    func() time.Time
}

// NewContentDrafting creates the content drafting stage.
func NewContentDrafting(store handoff.Store, logger stage.Logger) *ContentDrafting {
	return &ContentDrafting{store: store, logger: logger, now: time.Now}
}

// Name implements stage.Stage.
func (s *ContentDrafting) Name() string { return stage.NameContentDrafting }

// Execute implements stage.Stage.
func (s *ContentDrafting) Execute(ctx context.Context) *stage.Result {
	// The company profile and field dictionary are preflight-checked inputs;
	// the customized template is the previous stage's handoff.
	if _, err := handoff.GetJSON(s.store, handoff.ArtifactCompanyProfile); err != nil {
		return stage.Errorf("content drafting failed: missing dependency: %v", err)
	}
	if _, err := handoff.GetJSON(s.store, handoff.ArtifactFieldDictionary); err != nil {
		return stage.Errorf("content drafting failed: missing dependency: %v", err)
	}

	template, err := handoff.GetJSON(s.store, handoff.ArtifactDraftingTemplateInput)
	if err != nil {
		return stage.Errorf("content drafting failed: missing dependency: %v", err)
	}

	rfxID := typeutil.SafeStringDefault(template["rfx_id"], "")
	requirements := typeutil.SafeMapStringAnyDefault(template["requirements"], map[string]any{})

	document := map[string]any{
		"rfx_id":              rfxID,
		"header":              s.buildHeader(rfxID),
		"items":               s.buildItems(requirements),
		"sections":            s.buildSections(requirements),
		"requirements":        requirements,
		"generated_timestamp": s.now().UTC().Format(time.RFC3339),
	}

	if err := handoff.PutJSON(s.store, handoff.ArtifactDraftedDocument, document); err != nil {
		return stage.Errorf("content drafting failed: commit output: %v", err)
	}

	s.logger.Info("rfx_document_drafted",
		"rfx_id", rfxID,
		"line_items", typeutil.CollectionLen(document["items"]),
		"sections", typeutil.CollectionLen(document["sections"]),
	)

	return stage.Success(rfxID, "RFX document drafted successfully", document)
}

// buildHeader produces the SAP document header. Field values follow the
// purchasing organization's RFP conventions.
func (s *ContentDrafting) buildHeader(rfxID string) map[string]any {
	return map[string]any{
		"BUKRS":  "2000", // company code
		"EKORG":  "PG01", // purchasing organization
		"EKGRP":  "CHE",  // purchasing group
		"BSART":  "AN",   // document type (RFP)
		"WAERS":  "USD",
		"rfx_id": rfxID,
	}
}

func (s *ContentDrafting) buildItems(requirements map[string]any) []map[string]any {
	plants, _ := typeutil.SafeStringSlice(requirements["plants"])
	plant := "US01"
	if len(plants) > 0 {
		plant = plants[0]
	}

	annualVolume := typeutil.SafeFloat64Default(requirements["annual_volume_mt"], 6000)

	return []map[string]any{
		{
			"item_number": "00010",
			"MATNR":       typeutil.SafeStringDefault(requirements["MATNR"], "GLYC-USP-001"),
			"description": fmt.Sprintf("%s - %s",
				typeutil.SafeStringDefault(requirements["material"], "Material"),
				typeutil.SafeStringDefault(requirements["grade"], "Grade")),
			"MENGE":          fmt.Sprintf("%.1f", annualVolume/12),
			"MEINS":          "MT",
			"delivery_plant": plant,
			"INCO1":          "DDP",
			"INCO2":          "Cincinnati",
		},
	}
}

func (s *ContentDrafting) buildSections(requirements map[string]any) map[string]any {
	compliance, _ := typeutil.SafeStringSlice(requirements["compliance"])

	return map[string]any{
		"Scope of Work": fmt.Sprintf("Supply of %s as per specifications.",
			typeutil.SafeStringDefault(requirements["material"], "Material")),
		"Technical Specifications": fmt.Sprintf("Grade: %s, Purity: %v%%",
			typeutil.SafeStringDefault(requirements["grade"], "N/A"),
			requirements["purity"]),
		"Quality & Compliance": fmt.Sprintf("Must comply with: %s",
			strings.Join(compliance, ", ")),
		"Delivery Terms":    typeutil.SafeStringDefault(requirements["delivery_schedule"], "As per contract"),
		"Pricing Structure": "Please provide unit pricing in USD per MT",
		"Payment Terms":     "Net 60 days from invoice date",
	}
}
