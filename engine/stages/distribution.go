package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/s2p-automation/rfxcore/engine/handoff"
	"github.com/s2p-automation/rfxcore/engine/stage"
	"github.com/s2p-automation/rfxcore/engine/typeutil"
)

// Distribution fans the drafted RFX document out to the shortlisted
// suppliers and commits a delivery status record. Actual delivery mechanics
// belong to the portal collaborator; this stage records one delivery record
// per supplier on its behalf.
type Distribution struct {
	store  handoff.Store
	logger stage.Logger
	now    func() time.Time
}

// NewDistribution creates the distribution stage.
func NewDistribution(store handoff.Store, logger stage.Logger) *Distribution {
	return &Distribution{store: store, logger: logger, now: time.Now}
}

// Name implements stage.Stage.
func (s *Distribution) Name() string { return stage.NameDistribution }

// Execute implements stage.Stage.
func (s *Distribution) Execute(ctx context.Context) *stage.Result {
	document, err := handoff.GetJSON(s.store, handoff.ArtifactDistributionDocInput)
	if err != nil {
		return stage.Errorf("distribution failed: missing dependency: %v", err)
	}

	shortlist, err := handoff.GetJSON(s.store, handoff.ArtifactSupplierShortlist)
	if err != nil {
		return stage.Errorf("distribution failed: missing dependency: %v", err)
	}

	rfxID := typeutil.SafeStringDefault(document["rfx_id"], "")
	suppliers, _ := typeutil.SafeSlice(shortlist["shortlisted_suppliers"])

	records := make([]map[string]any, 0, len(suppliers))
	for _, entry := range suppliers {
		supplier, ok := typeutil.SafeMapStringAny(entry)
		if !ok {
			continue
		}
		lifnr := typeutil.SafeStringDefault(supplier["LIFNR"], "")
		records = append(records, map[string]any{
			"LIFNR":         lifnr,
			"supplier_name": supplier["name"],
			"channel":       "portal",
			"message_id":    fmt.Sprintf("MSG-%s-%s", rfxID, lifnr),
			"delivered":     true,
			"delivery_ts":   s.now().UTC().Format(time.RFC3339),
		})
	}

	status := map[string]any{
		"rfx_id":                 rfxID,
		"distribution_timestamp": s.now().UTC().Format(time.RFC3339),
		"total_suppliers":        len(suppliers),
		"successfully_delivered": len(records),
		"records":                records,
	}

	if err := handoff.PutJSON(s.store, handoff.ArtifactDistributionStatus, status); err != nil {
		return stage.Errorf("distribution failed: commit output: %v", err)
	}

	s.logger.Info("rfx_distributed",
		"rfx_id", rfxID,
		"total_suppliers", len(suppliers),
		"delivered", len(records),
	)

	return stage.Success(rfxID, fmt.Sprintf("RFX distributed to %d suppliers", len(suppliers)), status)
}
