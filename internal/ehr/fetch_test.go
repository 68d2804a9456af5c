package ehr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fetchServer serves a three-visit patient where per-visit responses can be
// failed selectively to exercise the fan-out's fault isolation.
func fetchServer(t *testing.T, failLabsForVisit string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/fetchPatientDemographics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/fetchPatientVisits", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"visits": []map[string]any{
				{"id": "V-1", "date": "2026-01-05", "doctor": "Dr. Rao", "department": "General Medicine", "diagnosis": "Pharyngitis", "notes": "Rest and fluids"},
				{"id": "V-2", "date": "2026-02-10", "doctor": "Dr. Osei", "department": "Cardiology", "diagnosis": "Hypertension", "notes": "Started medication"},
				{"id": "V-3", "date": "2026-03-15", "doctor": "Dr. Fischer", "department": "Pediatrics", "diagnosis": "Checkup", "notes": "All clear"},
			},
		})
	})
	mux.HandleFunc("/fetchPatientLabReports", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["visitId"] == failLabsForVisit {
			http.Error(w, "transient upstream failure", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"labReports": []map[string]any{{"id": "LAB-" + req["visitId"], "date": "2026-01-05", "testType": "CBC"}},
		})
	})
	mux.HandleFunc("/fetchPatientMedications", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"medications": []map[string]any{{"id": "MED-" + req["visitId"], "name": "Amoxicillin"}},
		})
	})
	mux.HandleFunc("/fetchAppointments", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"appointments": []map[string]any{{"id": "APT-1", "date": "2026-04-01", "time": "10:00"}},
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestFetchPatientData_LiveBundle(t *testing.T) {
	ts := fetchServer(t, "")
	c := newTestClient(ts.URL)

	outcome := c.FetchPatientData(context.Background(), "P1", NewMockProvider())

	assert.False(t, outcome.Degraded)
	assert.Empty(t, outcome.Reason)
	assert.Len(t, outcome.Bundle.LabReports, 3)
	assert.Len(t, outcome.Bundle.Medications, 3)
	assert.Len(t, outcome.Bundle.Appointments, 1)
	assert.Len(t, outcome.Bundle.MedicalSummaries, 3)
}

func TestFetchPatientData_OneVisitFailureKeepsTheRest(t *testing.T) {
	ts := fetchServer(t, "V-2")
	c := newTestClient(ts.URL)

	outcome := c.FetchPatientData(context.Background(), "P1", NewMockProvider())

	require.False(t, outcome.Degraded)

	refs := make([]string, 0, len(outcome.Bundle.LabReports))
	for _, r := range outcome.Bundle.LabReports {
		refs = append(refs, r.EhrReferenceID)
	}
	assert.ElementsMatch(t, []string{"LAB-V-1", "LAB-V-3"}, refs)

	// The failed visit only loses its lab reports, not its medications
	assert.Len(t, outcome.Bundle.Medications, 3)
}

func TestFetchPatientData_SummariesDeriveFromVisits(t *testing.T) {
	ts := fetchServer(t, "")
	c := newTestClient(ts.URL)

	outcome := c.FetchPatientData(context.Background(), "P1", NewMockProvider())

	require.Len(t, outcome.Bundle.MedicalSummaries, 3)
	first := outcome.Bundle.MedicalSummaries[0]
	assert.Equal(t, "V-1", first.EhrReferenceID)
	assert.Equal(t, "Pharyngitis", first.Diagnosis)
	assert.Equal(t, "Rest and fluids", first.Summary)
}

func TestFetchPatientData_UnknownPatientFallsBackToMock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fetchPatientDemographics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newTestClient(ts.URL)
	outcome := c.FetchPatientData(context.Background(), "P-GHOST", NewMockProvider())

	assert.True(t, outcome.Degraded)
	assert.Contains(t, outcome.Reason, "patient not found")
	assert.NotEmpty(t, outcome.Bundle.LabReports)
	assert.NotEmpty(t, outcome.Bundle.Medications)
	assert.NotEmpty(t, outcome.Bundle.Appointments)
	assert.NotEmpty(t, outcome.Bundle.MedicalSummaries)
}

func TestFetchPatientData_VisitFetchFailureFallsBackToMock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fetchPatientDemographics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/fetchPatientVisits", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newTestClient(ts.URL)
	outcome := c.FetchPatientData(context.Background(), "P1", NewMockProvider())

	assert.True(t, outcome.Degraded)
	assert.Contains(t, outcome.Reason, "fetchPatientVisits")
}

func TestMockProvider_BundleCoversEveryResourceType(t *testing.T) {
	bundle := NewMockProvider().PatientBundle()

	assert.NotEmpty(t, bundle.LabReports)
	assert.NotEmpty(t, bundle.Medications)
	assert.NotEmpty(t, bundle.Appointments)
	assert.NotEmpty(t, bundle.MedicalSummaries)

	for _, r := range bundle.LabReports {
		assert.Contains(t, r.EhrReferenceID, "MOCK-LAB-")
	}

	// Reference ids are randomized per call so repeated fallbacks do not
	// collide on the reconciliation key
	other := NewMockProvider().PatientBundle()
	assert.NotEqual(t, bundle.LabReports[0].EhrReferenceID, other.LabReports[0].EhrReferenceID)
}
