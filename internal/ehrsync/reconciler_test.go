package ehrsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-portal-server/internal/ehr"
	"clinic-portal-server/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestReconcileBundle_InsertsAllResourceTypes(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler(store, testLogger())

	bundle := ehr.Bundle{
		LabReports: []ehr.LabReport{
			{EhrReferenceID: "LAB-1", Date: "2026-01-05", TestType: "CBC", DoctorName: "Dr. Rao", Status: "completed", Results: "normal"},
			{EhrReferenceID: "LAB-2", Date: "2026-02-10", TestType: "Lipid Profile", Status: "completed"},
		},
		Medications: []ehr.Medication{
			{EhrReferenceID: "MED-1", Name: "Amoxicillin", Dosage: "500mg", Frequency: "tid"},
		},
		Appointments: []ehr.Appointment{
			{EhrReferenceID: "APT-1", Date: "2026-03-01", Time: "10:00", DoctorName: "Dr. Osei", Status: "confirmed"},
		},
		MedicalSummaries: []ehr.MedicalSummary{
			{EhrReferenceID: "V-1", Date: "2026-01-05", Diagnosis: "Pharyngitis", Summary: "Rest and fluids"},
		},
	}

	counts := r.ReconcileBundle(context.Background(), "P1", bundle)

	assert.Equal(t, 2, counts.LabReports)
	assert.Equal(t, 1, counts.Medications)
	assert.Equal(t, 1, counts.Appointments)
	assert.Equal(t, 1, counts.MedicalSummaries)
	assert.Equal(t, 0, counts.Skipped)

	saved, err := store.FindLabReport(context.Background(), "P1", "LAB-1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "CBC", saved.TestType)
	assert.Equal(t, "P1", saved.PatientID)
}

func TestReconcileBundle_IsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler(store, testLogger())

	bundle := ehr.Bundle{
		LabReports: []ehr.LabReport{
			{EhrReferenceID: "LAB-1", Date: "2026-01-05", TestType: "CBC", Results: "normal"},
		},
		Medications: []ehr.Medication{
			{EhrReferenceID: "MED-1", Name: "Amoxicillin", Dosage: "500mg"},
		},
	}

	first := r.ReconcileBundle(context.Background(), "P1", bundle)
	require.Equal(t, 1, first.LabReports)

	// Second run with identical input must update in place, not duplicate
	bundle.LabReports[0].Results = "LDL slightly elevated"
	second := r.ReconcileBundle(context.Background(), "P1", bundle)
	assert.Equal(t, 1, second.LabReports)

	assert.Len(t, store.labReports, 1)
	assert.Len(t, store.medications, 1)

	updated, err := store.FindLabReport(context.Background(), "P1", "LAB-1")
	require.NoError(t, err)
	assert.Equal(t, "LDL slightly elevated", updated.Results)
}

func TestReconcileBundle_UpdateOverwritesAllPayloadFields(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler(store, testLogger())

	r.ReconcileBundle(context.Background(), "P1", ehr.Bundle{
		LabReports: []ehr.LabReport{
			{EhrReferenceID: "LAB-1", Date: "2026-01-05", TestType: "CBC", DoctorName: "Dr. Rao", Status: "pending", Results: "awaiting"},
		},
	})

	// Upstream cleared the doctor field; the local row must follow suit
	r.ReconcileBundle(context.Background(), "P1", ehr.Bundle{
		LabReports: []ehr.LabReport{
			{EhrReferenceID: "LAB-1", Date: "2026-01-05", TestType: "CBC", Status: "completed"},
		},
	})

	row, err := store.FindLabReport(context.Background(), "P1", "LAB-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", row.Status)
	assert.Empty(t, row.DoctorName)
	assert.Empty(t, row.Results)
}

func TestReconcile_SkipsMalformedRecordOnly(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler(store, testLogger())

	bundle := ehr.Bundle{
		LabReports: []ehr.LabReport{
			{EhrReferenceID: "LAB-1", Date: "2026-01-05", TestType: "CBC"},
			{EhrReferenceID: "LAB-2"}, // no date, no test type
			{EhrReferenceID: "LAB-3", Date: "2026-01-07", TestType: "HbA1c"},
		},
		Medications: []ehr.Medication{
			{EhrReferenceID: "MED-1"}, // no name
			{EhrReferenceID: "MED-2", Name: "Atorvastatin"},
		},
	}

	counts := r.ReconcileBundle(context.Background(), "P1", bundle)

	assert.Equal(t, 2, counts.LabReports)
	assert.Equal(t, 1, counts.Medications)
	assert.Equal(t, 2, counts.Skipped)
	assert.Len(t, store.labReports, 2)
	assert.Len(t, store.medications, 1)
}

func TestReconcile_SynthesizesMissingReferenceID(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler(store, testLogger())

	counts := r.ReconcileBundle(context.Background(), "P1", ehr.Bundle{
		LabReports: []ehr.LabReport{
			{Date: "2026-01-05", TestType: "CBC"}, // upstream forgot the id
		},
	})

	require.Equal(t, 1, counts.LabReports)
	require.Len(t, store.labReports, 1)
	for k := range store.labReports {
		ref := strings.TrimPrefix(k, "P1/")
		assert.True(t, strings.HasPrefix(ref, "syn-"), "expected synthesized reference id, got %q", ref)
	}
}

func TestReconcile_WriteFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	store.saveLabErr = func(rec *models.LabReport) error {
		if rec.EhrReferenceID == "LAB-2" {
			return errors.New("constraint violation")
		}
		return nil
	}
	r := NewReconciler(store, testLogger())

	counts := r.ReconcileBundle(context.Background(), "P1", ehr.Bundle{
		LabReports: []ehr.LabReport{
			{EhrReferenceID: "LAB-1", Date: "2026-01-05", TestType: "CBC"},
			{EhrReferenceID: "LAB-2", Date: "2026-01-06", TestType: "Lipid Profile"},
			{EhrReferenceID: "LAB-3", Date: "2026-01-07", TestType: "HbA1c"},
		},
	})

	assert.Equal(t, 2, counts.LabReports)
	assert.Equal(t, 1, counts.Skipped)
	assert.Len(t, store.labReports, 2)
}
