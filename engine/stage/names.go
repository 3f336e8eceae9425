package stage

// Canonical stage names, in pipeline order.
const (
	NameTemplateSelection = "template_selection"
	NameContentDrafting   = "content_drafting"
	NameDistribution      = "distribution"
	NameAuditLogging      = "audit_logging"
)

// Order is the fixed execution order of the Issue-RFX pipeline. Each stage's
// input is the previous stage's committed output, so the sequence is a hard
// data dependency chain.
var Order = []string{
	NameTemplateSelection,
	NameContentDrafting,
	NameDistribution,
	NameAuditLogging,
}
