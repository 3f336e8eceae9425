package controller

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s2p-automation/rfxcore/engine/config"
	"github.com/s2p-automation/rfxcore/engine/handoff"
	"github.com/s2p-automation/rfxcore/engine/ledger"
	"github.com/s2p-automation/rfxcore/engine/stage"
	"github.com/s2p-automation/rfxcore/notify"
)

type testLogger struct {
	logs []string
	mu   sync.Mutex
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.record("DEBUG: " + msg) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.record("INFO: " + msg) }
func (l *testLogger) Warn(msg string, keysAndValues ...any)  { l.record("WARN: " + msg) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.record("ERROR: " + msg) }

func (l *testLogger) record(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, entry)
}

// fakeStage lets tests drive the controller with scripted results.
type fakeStage struct {
	name    string
	execute func(ctx context.Context) *stage.Result
}

func (s *fakeStage) Name() string { return s.name }

func (s *fakeStage) Execute(ctx context.Context) *stage.Result { return s.execute(ctx) }

// seedWorkflowData populates the store with every artifact a full run needs.
func seedWorkflowData(t *testing.T, store handoff.Store) {
	t.Helper()

	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactCompanyProfile, map[string]any{
		"BUKRS": "2000", "name": "Premier Goods Inc",
	}))
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactFieldDictionary, map[string]any{
		"BSART": map[string]any{"AN": "RFP"},
	}))
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactRequirements, map[string]any{
		"category":         "Chemical",
		"material":         "Glycerine",
		"MATNR":            "GLYC-USP-001",
		"grade":            "USP",
		"purity":           99.7,
		"annual_volume_mt": 6000,
		"plants":           []any{"US01"},
		"compliance":       []any{"REACH"},
	}))
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactTemplateIndex, map[string]any{
		"templates": []any{
			map[string]any{
				"template_id": "TPL-001",
				"title":       "RFP for Glycerine USP Grade",
				"category":    "Chemical Procurement",
				"mandatory_sections": []any{
					"Scope of Work", "Technical Specifications", "Quality & Compliance",
					"Delivery Terms", "Pricing Structure", "Payment Terms",
				},
			},
		},
	}))
	require.NoError(t, store.Put(handoff.ArtifactSupplierMaster,
		[]byte("LIFNR,name\n100001,Apex Chemical Corp\n100002,Brent Specialty Inc\n")))
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactSupplierShortlist, map[string]any{
		"shortlisted_suppliers": []any{
			map[string]any{"LIFNR": "100001", "name": "Apex Chemical Corp"},
			map[string]any{"LIFNR": "100002", "name": "Brent Specialty Inc"},
		},
	}))
}

func TestRun_AllStagesSucceed(t *testing.T) {
	store := handoff.NewMemStore()
	seedWorkflowData(t, store)
	logger := &testLogger{}
	cfg := config.DefaultWorkflowConfig()

	ctrl := New(cfg, store, DefaultStages(store, logger), logger)
	report := ctrl.Run(context.Background())

	assert.Equal(t, StatusSuccess, report.Status)
	assert.True(t, report.Succeeded())
	assert.Equal(t, StateCompleted, ctrl.State())
	assert.True(t, strings.HasPrefix(report.RunID, "run_"))

	// Stage results in pipeline order, all successful.
	require.Len(t, report.StageResults, 4)
	for i, name := range stage.Order {
		assert.Equal(t, name, report.StageResults[i].StageName)
		assert.Equal(t, stage.StatusSuccess, report.StageResults[i].Result.Status)
	}

	// Correlation id pinned by the first stage and carried by the rest.
	require.NotEmpty(t, report.CorrelationID)
	for _, rec := range report.StageResults {
		assert.Equal(t, report.CorrelationID, rec.Result.RFXID, "stage %s", rec.StageName)
	}

	assert.Empty(t, report.Exceptions)
	assert.Empty(t, report.StakeholderRequests)
	assert.Empty(t, report.MissingInputs)

	// Every handoff artifact committed.
	for _, key := range []string{
		handoff.ArtifactCustomizedTemplate,
		handoff.ArtifactDraftingTemplateInput,
		handoff.ArtifactDraftedDocument,
		handoff.ArtifactDistributionDocInput,
		handoff.ArtifactDistributionStatus,
		handoff.ArtifactAuditTrail,
	} {
		assert.True(t, store.Exists(key), "expected artifact %s", key)
	}
}

func TestRun_PreflightMissingInput(t *testing.T) {
	store := handoff.NewMemStore()
	seedWorkflowData(t, store)
	logger := &testLogger{}
	cfg := config.DefaultWorkflowConfig()

	// Remove one required input by rebuilding the store without it.
	bare := handoff.NewMemStore()
	for _, key := range store.Keys() {
		if key == handoff.ArtifactSupplierMaster {
			continue
		}
		data, err := store.Get(key)
		require.NoError(t, err)
		require.NoError(t, bare.Put(key, data))
	}

	ctrl := New(cfg, bare, DefaultStages(bare, logger), logger)
	report := ctrl.Run(context.Background())

	assert.Equal(t, StatusError, report.Status)
	assert.Equal(t, StateAborted, ctrl.State())
	assert.Empty(t, report.StageResults, "no stage may run when preflight fails")
	assert.Equal(t, []string{handoff.ArtifactSupplierMaster}, report.MissingInputs)
	assert.Contains(t, report.Message, "Preflight failed")
	assert.Contains(t, report.Message, handoff.ArtifactSupplierMaster)

	// Preflight is read-only: a second run over the same store reports the
	// same result.
	again := New(cfg, bare, DefaultStages(bare, logger), logger).Run(context.Background())
	assert.Equal(t, report.Status, again.Status)
	assert.Equal(t, report.MissingInputs, again.MissingInputs)
}

func TestRun_AbortsAtFailingStage(t *testing.T) {
	store := handoff.NewMemStore()
	seedWorkflowData(t, store)
	logger := &testLogger{}

	// Drop the shortlist: stages 1 and 2 succeed, distribution errors.
	bare := handoff.NewMemStore()
	for _, key := range store.Keys() {
		if key == handoff.ArtifactSupplierShortlist {
			continue
		}
		data, err := store.Get(key)
		require.NoError(t, err)
		require.NoError(t, bare.Put(key, data))
	}

	ctrl := New(config.DefaultWorkflowConfig(), bare, DefaultStages(bare, logger), logger)
	report := ctrl.Run(context.Background())

	assert.Equal(t, StatusError, report.Status)
	assert.Contains(t, report.Message, stage.NameDistribution)

	// Exactly the stages that ran, in order; the last one failed.
	require.Len(t, report.StageResults, 3)
	assert.Equal(t, stage.StatusSuccess, report.StageResults[0].Result.Status)
	assert.Equal(t, stage.StatusSuccess, report.StageResults[1].Result.Status)
	assert.Equal(t, stage.StatusError, report.StageResults[2].Result.Status)

	// The distribution validator flagged the failed result; distribution
	// issues never escalate.
	require.Len(t, report.Exceptions, 1)
	assert.Equal(t, ledger.ResolutionAutoResolved, report.Exceptions[0].ResolutionStatus)
	assert.Empty(t, report.StakeholderRequests)

	// Correlation id survives from the stages that did succeed.
	assert.NotEmpty(t, report.CorrelationID)
}

func TestRun_EmptyShortlistCompletesWithWarnings(t *testing.T) {
	store := handoff.NewMemStore()
	seedWorkflowData(t, store)
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactSupplierShortlist, map[string]any{
		"shortlisted_suppliers": []any{},
	}))
	logger := &testLogger{}

	ctrl := New(config.DefaultWorkflowConfig(), store, DefaultStages(store, logger), logger)
	report := ctrl.Run(context.Background())

	assert.Equal(t, StatusSuccessWithWarnings, report.Status)
	assert.False(t, report.Succeeded())
	require.Len(t, report.StageResults, 4)

	require.Len(t, report.Exceptions, 1)
	assert.Equal(t, stage.NameDistribution, report.Exceptions[0].StageID)
	assert.Contains(t, report.Exceptions[0].Issues, "No suppliers in distribution list")
	assert.Empty(t, report.StakeholderRequests)
}

func TestRun_EscalationCreatesLinkedRequest(t *testing.T) {
	store := handoff.NewMemStore()
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactCompanyProfile, map[string]any{}))
	// The escalating stage must still commit its handoff output so the edge
	// copy after it succeeds.
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactDraftedDocument, map[string]any{"rfx_id": "RFX-1"}))

	cfg := config.DefaultWorkflowConfig()
	cfg.RequiredInputs = []string{handoff.ArtifactCompanyProfile}

	// A drafting result with a complete document except one header field.
	drafting := &fakeStage{
		name: stage.NameContentDrafting,
		execute: func(ctx context.Context) *stage.Result {
			return stage.Success("RFX-1", "RFX document drafted successfully", map[string]any{
				"header":   map[string]any{"BUKRS": "2000", "EKORG": "PG01", "BSART": "AN"},
				"items":    []any{map[string]any{"item_number": "00010"}},
				"sections": map[string]any{"Scope of Work": "..."},
			})
		},
	}

	logger := &testLogger{}
	ctrl := New(cfg, store, []stage.Stage{drafting}, logger)
	report := ctrl.Run(context.Background())

	assert.Equal(t, StatusSuccessWithWarnings, report.Status)

	require.Len(t, report.Exceptions, 1)
	exception := report.Exceptions[0]
	assert.Equal(t, stage.NameContentDrafting, exception.StageID)
	assert.Equal(t, []string{"Missing mandatory SAP field: EKGRP"}, exception.Issues)
	assert.Equal(t, ledger.ResolutionAwaitingStakeholder, exception.ResolutionStatus)

	require.Len(t, report.StakeholderRequests, 1)
	request := report.StakeholderRequests[0]
	assert.Equal(t, exception.StakeholderRequestID, request.RequestID)
	assert.Equal(t, ledger.RequestStatusPending, request.Status)
	assert.True(t, strings.HasPrefix(request.RequestID, "REQ-"))
}

func TestRun_PanicInStageAbortsWithErrorReport(t *testing.T) {
	store := handoff.NewMemStore()
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactCompanyProfile, map[string]any{}))

	cfg := config.DefaultWorkflowConfig()
	cfg.RequiredInputs = []string{handoff.ArtifactCompanyProfile}

	boom := &fakeStage{
		name: stage.NameAuditLogging,
		execute: func(ctx context.Context) *stage.Result {
			panic("index out of range")
		},
	}

	logger := &testLogger{}
	ctrl := New(cfg, store, []stage.Stage{boom}, logger)
	report := ctrl.Run(context.Background())

	assert.Equal(t, StatusError, report.Status)
	assert.Equal(t, StateAborted, ctrl.State())
	require.Len(t, report.StageResults, 1)
	assert.Equal(t, stage.StatusError, report.StageResults[0].Result.Status)
	assert.Contains(t, report.StageResults[0].Result.Message, "internal fault")
}

func TestRun_CorrelationIDPinnedByFirstStage(t *testing.T) {
	store := handoff.NewMemStore()
	require.NoError(t, handoff.PutJSON(store, handoff.ArtifactCompanyProfile, map[string]any{}))

	cfg := config.DefaultWorkflowConfig()
	cfg.RequiredInputs = []string{handoff.ArtifactCompanyProfile}

	first := &fakeStage{
		name: "stage_one",
		execute: func(ctx context.Context) *stage.Result {
			return stage.Success("RFX-A", "ok", nil)
		},
	}
	second := &fakeStage{
		name: "stage_two",
		execute: func(ctx context.Context) *stage.Result {
			return stage.Success("RFX-B", "ok", nil)
		},
	}

	logger := &testLogger{}
	ctrl := New(cfg, store, []stage.Stage{first, second}, logger)
	report := ctrl.Run(context.Background())

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, "RFX-A", report.CorrelationID)
}

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	store := handoff.NewMemStore()
	seedWorkflowData(t, store)
	logger := &testLogger{}

	bus := notify.NewInMemoryBus()
	var mu sync.Mutex
	started := 0
	var completed *notify.WorkflowCompleted
	bus.Subscribe("StageStarted", func(ctx context.Context, msg notify.Message) error {
		mu.Lock()
		defer mu.Unlock()
		started++
		return nil
	})
	bus.Subscribe("WorkflowCompleted", func(ctx context.Context, msg notify.Message) error {
		mu.Lock()
		defer mu.Unlock()
		completed = msg.(*notify.WorkflowCompleted)
		return nil
	})

	ctrl := New(config.DefaultWorkflowConfig(), store, DefaultStages(store, logger), logger,
		WithBus(bus))
	report := ctrl.Run(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, started)
	require.NotNil(t, completed)
	assert.Equal(t, string(StatusSuccess), completed.Status)
	assert.Equal(t, report.RunID, completed.RunID)
	assert.Equal(t, report.CorrelationID, completed.CorrelationID)
}

func TestRun_ReportSerialization(t *testing.T) {
	store := handoff.NewMemStore()
	seedWorkflowData(t, store)
	logger := &testLogger{}

	ctrl := New(config.DefaultWorkflowConfig(), store, DefaultStages(store, logger), logger)
	report := ctrl.Run(context.Background())

	// An all-success report serializes with empty rather than null
	// collections for the ledger fields.
	assert.NotNil(t, report.Exceptions)
	assert.NotNil(t, report.StakeholderRequests)
	assert.Equal(t, stage.StatusSuccess, report.StageStatus(stage.NameAuditLogging))
	assert.Empty(t, report.StageStatus("never_ran"))
}
