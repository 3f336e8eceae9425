// Package stages provides the four concrete stages of the Issue-RFX
// pipeline. Each stage is a deterministic data transformation over handoff
// artifacts, constructed with its dependencies injected; any failure inside
// a stage body is caught locally and returned as an error Result.
package stages

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/s2p-automation/rfxcore/engine/handoff"
	"github.com/s2p-automation/rfxcore/engine/stage"
	"github.com/s2p-automation/rfxcore/engine/typeutil"
)

// TemplateSelection selects the best historical RFX template for the
// procurement requirements, customizes it, and commits the customized
// template to the handoff store.
type TemplateSelection struct {
	store  handoff.Store
	logger stage.Logger
	now    func() time.Time
	seq    func() int
}

// NewTemplateSelection creates the template selection stage.
func NewTemplateSelection(store handoff.Store, logger stage.Logger) *TemplateSelection {
	return &TemplateSelection{
		store:  store,
		logger: logger,
		now:    time.Now,
		seq:    func() int { return 100 + rand.Intn(900) },
	}
}

// Name implements stage.Stage.
func (s *TemplateSelection) Name() string { return stage.NameTemplateSelection }

// Execute implements stage.Stage.
func (s *TemplateSelection) Execute(ctx context.Context) *stage.Result {
	requirements, err := handoff.GetJSON(s.store, handoff.ArtifactRequirements)
	if err != nil {
		return stage.Errorf("template selection failed: missing dependency: %v", err)
	}

	index, err := handoff.GetJSON(s.store, handoff.ArtifactTemplateIndex)
	if err != nil {
		return stage.Errorf("template selection failed: missing dependency: %v", err)
	}

	templates, _ := typeutil.SafeSlice(index["templates"])
	selected := selectTemplate(templates, requirements)
	if selected == nil {
		return stage.Errorf("template selection failed: no suitable template found")
	}

	rfxID := s.generateRFXID(requirements)

	customized := map[string]any{
		"rfx_id":                  rfxID,
		"template_id":             selected["template_id"],
		"title":                   selected["title"],
		"category":                selected["category"],
		"sections":                selected["mandatory_sections"],
		"requirements":            requirements,
		"customization_timestamp": s.now().UTC().Format(time.RFC3339),
	}

	if err := handoff.PutJSON(s.store, handoff.ArtifactCustomizedTemplate, customized); err != nil {
		return stage.Errorf("template selection failed: commit output: %v", err)
	}

	s.logger.Info("template_selected",
		"rfx_id", rfxID,
		"template_id", customized["template_id"],
		"title", customized["title"],
	)

	return stage.Success(rfxID, "Template customized successfully", customized)
}

// selectTemplate picks the first template whose category contains the
// requirement category and whose title contains the material. Falls back to
// the first template in the index.
func selectTemplate(templates []any, requirements map[string]any) map[string]any {
	category := typeutil.SafeStringDefault(requirements["category"], "Chemical")
	material := strings.ToLower(typeutil.SafeStringDefault(requirements["material"], ""))

	var fallback map[string]any
	for _, entry := range templates {
		template, ok := typeutil.SafeMapStringAny(entry)
		if !ok {
			continue
		}
		if fallback == nil {
			fallback = template
		}

		title := strings.ToLower(typeutil.SafeStringDefault(template["title"], ""))
		templateCategory := typeutil.SafeStringDefault(template["category"], "")

		if strings.Contains(templateCategory, category) && strings.Contains(title, material) {
			return template
		}
	}
	return fallback
}

// generateRFXID builds the correlation id:
// <company>-<material prefix>-<year>-RFP-<seq>.
func (s *TemplateSelection) generateRFXID(requirements map[string]any) string {
	material := strings.ToUpper(typeutil.SafeStringDefault(requirements["MATNR"], "GLYC"))
	if len(material) > 4 {
		material = material[:4]
	}
	return fmt.Sprintf("2000-%s-%d-RFP-%d", material, s.now().Year(), s.seq())
}
