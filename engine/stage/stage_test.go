package stage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromString_Valid(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
	}{
		{"success", StatusSuccess},
		{"SUCCESS", StatusSuccess},
		{"  success  ", StatusSuccess},
		{"error", StatusError},
		{"Error", StatusError},
	}

	for _, tt := range tests {
		status, err := StatusFromString(tt.input)
		assert.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, status)
	}
}

func TestStatusFromString_Invalid(t *testing.T) {
	for _, input := range []string{"", "pending", "ok", "failed"} {
		_, err := StatusFromString(input)
		assert.Error(t, err, "input %q", input)
		assert.Contains(t, err.Error(), "invalid stage status")
	}
}

func TestSuccess_BuildsResult(t *testing.T) {
	payload := map[string]any{"total_suppliers": 5}
	result := Success("2000-GLYC-2026-RFP-101", "done", payload)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "2000-GLYC-2026-RFP-101", result.RFXID)
	assert.Equal(t, "done", result.Message)
	assert.Equal(t, payload, result.Payload)
}

func TestErrorf_BuildsResult(t *testing.T) {
	result := Errorf("distribution failed: %s", "no shortlist")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "distribution failed: no shortlist", result.Message)
	assert.Empty(t, result.RFXID)
	assert.Nil(t, result.Payload)
}

func TestResult_JSONRoundTrip(t *testing.T) {
	original := Success("2000-GLYC-2026-RFP-101", "Template customized successfully",
		map[string]any{"template_id": "TPL-001"})

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.Status, decoded.Status)
	assert.Equal(t, original.RFXID, decoded.RFXID)
	assert.Equal(t, original.Message, decoded.Message)
	assert.Equal(t, "TPL-001", decoded.Payload["template_id"])
}

func TestResult_ErrorJSONOmitsOptionalFields(t *testing.T) {
	data, err := json.Marshal(Errorf("boom"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "error", raw["status"])
	assert.NotContains(t, raw, "rfx_id")
	assert.NotContains(t, raw, "data")
}

func TestOrder_MatchesStageNames(t *testing.T) {
	assert.Equal(t, []string{
		NameTemplateSelection,
		NameContentDrafting,
		NameDistribution,
		NameAuditLogging,
	}, Order)
}
