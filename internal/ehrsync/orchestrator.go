package ehrsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinic-portal-server/internal/ehr"
	"clinic-portal-server/internal/models"
)

// Sentinel errors the HTTP layer maps to client-fault responses.
var (
	ErrNoActiveIntegration = errors.New("no active EHR integration configured")
	ErrMissingPatientID    = errors.New("patient id is required")
)

// Orchestrator drives one EHR sync end to end: load the active integration
// config, validate the request, fetch the patient's clinical data (degrading
// to mock data when the live fetch fails), reconcile every resource type,
// apply side effects, and record the outcome in the sync history. There is
// no retry loop; retries are an operator decision.
type Orchestrator struct {
	store       PatientRecordStore
	reconciler  *Reconciler
	mock        *ehr.MockProvider
	httpTimeout time.Duration
	logger      zerolog.Logger
}

// NewOrchestrator creates an Orchestrator over the given store. httpTimeout
// bounds each individual EHR API call.
func NewOrchestrator(store PatientRecordStore, httpTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:       store,
		reconciler:  NewReconciler(store, logger),
		mock:        ehr.NewMockProvider(),
		httpTimeout: httpTimeout,
		logger:      logger,
	}
}

// Mock exposes the mock provider for callers that degrade individual
// operations (OTP issuance, login) rather than a whole sync.
func (o *Orchestrator) Mock() *ehr.MockProvider {
	return o.mock
}

// ActiveClient builds an EHR client from the active integration config.
// Returns ErrNoActiveIntegration when no config is active.
func (o *Orchestrator) ActiveClient(ctx context.Context) (*ehr.Client, error) {
	integration, err := o.store.ActiveIntegration(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoActiveIntegration, err)
	}
	if integration == nil {
		return nil, ErrNoActiveIntegration
	}
	return ehr.NewClient(integration.APIEndpoint, integration.APIKey, o.httpTimeout, o.logger), nil
}

// SyncRequest identifies the patient to sync. PatientID is the local profile
// id; PatientEhrID is the external system's id for the same patient and
// falls back to PatientID when absent.
type SyncRequest struct {
	PatientID    string
	PatientEhrID string
}

// SyncResult summarizes a completed sync for the caller.
type SyncResult struct {
	Counts         ReconcileCounts `json:"counts"`
	UsingMockData  bool            `json:"usingMockData"`
	FallbackReason string          `json:"fallbackReason,omitempty"`
}

// syncDetails is the structured payload stored in the history's details
// column.
type syncDetails struct {
	ReconcileCounts
	UsingMockData  bool   `json:"usingMockData,omitempty"`
	FallbackReason string `json:"fallbackReason,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Sync runs one sync attempt. Configuration and validation failures return
// the sentinel errors above; anything failing later returns a wrapped error
// after a failed history record is written. Every invocation produces
// exactly one terminal history row.
func (o *Orchestrator) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	// Best-effort progress marker, not a rollback point
	o.recordHistory(ctx, models.SyncStatusInProgress, "EHR sync started", patientRef(req.PatientID), "")

	integration, err := o.store.ActiveIntegration(ctx)
	if err != nil {
		o.recordHistory(ctx, models.SyncStatusFailed, "Failed to load EHR integration config", patientRef(req.PatientID), errDetails(err))
		return nil, fmt.Errorf("%w: %v", ErrNoActiveIntegration, err)
	}
	if integration == nil {
		o.recordHistory(ctx, models.SyncStatusFailed, "No active EHR integration configured", patientRef(req.PatientID), "")
		return nil, ErrNoActiveIntegration
	}

	if req.PatientID == "" {
		o.recordHistory(ctx, models.SyncStatusFailed, "Patient id is required", nil, "")
		return nil, ErrMissingPatientID
	}

	ehrPatientID := req.PatientEhrID
	if ehrPatientID == "" {
		ehrPatientID = req.PatientID
	}

	client := ehr.NewClient(integration.APIEndpoint, integration.APIKey, o.httpTimeout, o.logger)
	outcome := client.FetchPatientData(ctx, ehrPatientID, o.mock)
	if outcome.Degraded {
		o.logger.Warn().
			Str("patientId", req.PatientID).
			Str("reason", outcome.Reason).
			Msg("sync proceeding with mock data")
	}

	counts := o.reconciler.ReconcileBundle(ctx, req.PatientID, outcome.Bundle)

	// Remember the external patient id on the local profile once a sync has
	// used it
	if req.PatientEhrID != "" {
		if err := o.store.SetHospitalID(ctx, req.PatientID, req.PatientEhrID); err != nil {
			return nil, o.failSync(ctx, req.PatientID, "Failed to store EHR patient id on profile", err)
		}
	}

	if err := o.store.MarkSynced(ctx, integration.ID, time.Now()); err != nil {
		return nil, o.failSync(ctx, req.PatientID, "Failed to update last sync time", err)
	}

	details := syncDetails{
		ReconcileCounts: counts,
		UsingMockData:   outcome.Degraded,
		FallbackReason:  outcome.Reason,
	}
	message := "EHR sync completed"
	if outcome.Degraded {
		message = "EHR sync completed with mock data"
	}
	o.recordHistory(ctx, models.SyncStatusSuccess, message, patientRef(req.PatientID), marshalDetails(details))

	return &SyncResult{
		Counts:         counts,
		UsingMockData:  outcome.Degraded,
		FallbackReason: outcome.Reason,
	}, nil
}

// ConnectionTestResult reports EHR reachability for a candidate config. A
// failed test is a diagnostic result, not an application error.
type ConnectionTestResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DoctorCount int    `json:"doctorCount,omitempty"`
}

// TestConnection issues one cheap listDoctors call against the candidate
// endpoint and credential. No stored patient data is touched; only a
// history row (with no patient id) records the attempt.
func (o *Orchestrator) TestConnection(ctx context.Context, endpoint, apiKey string) ConnectionTestResult {
	client := ehr.NewClient(endpoint, apiKey, o.httpTimeout, o.logger)

	doctors, err := client.ListDoctors(ctx, "", "")
	if err != nil {
		result := ConnectionTestResult{
			Success: false,
			Message: "Failed to connect to EHR API: " + err.Error(),
		}
		o.recordHistory(ctx, models.SyncStatusFailed, "EHR connection test failed", nil, errDetails(err))
		return result
	}

	result := ConnectionTestResult{
		Success:     true,
		Message:     fmt.Sprintf("Connected to EHR API, %d doctors available", len(doctors)),
		DoctorCount: len(doctors),
	}
	o.recordHistory(ctx, models.SyncStatusSuccess, "EHR connection test succeeded", nil, "")
	return result
}

// failSync records a terminal failure and returns the wrapped cause.
func (o *Orchestrator) failSync(ctx context.Context, patientID, message string, cause error) error {
	o.recordHistory(ctx, models.SyncStatusFailed, message, patientRef(patientID), errDetails(cause))
	return fmt.Errorf("%s: %w", message, cause)
}

// recordHistory appends a sync history row. History writes are best-effort:
// losing an audit row must not take a sync down with it.
func (o *Orchestrator) recordHistory(ctx context.Context, status models.SyncStatus, message string, patientID *string, details string) {
	entry := &models.EhrSyncHistory{
		Status:    status,
		Message:   message,
		PatientID: patientID,
		Details:   details,
	}
	if err := o.store.AppendHistory(ctx, entry); err != nil {
		o.logger.Error().Err(err).Str("status", string(status)).Msg("failed to append sync history")
	}
}

func patientRef(patientID string) *string {
	if patientID == "" {
		return nil
	}
	return &patientID
}

func errDetails(err error) string {
	return marshalDetails(syncDetails{Error: err.Error()})
}

func marshalDetails(details syncDetails) string {
	payload, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(payload)
}
