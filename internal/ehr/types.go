package ehr

import (
	"errors"
	"fmt"
)

// Wire types for the external clinic EHR API. All upstream JSON is decoded
// into these at the client boundary; nothing downstream touches raw maps.
// The upstream "id" field is the record's stable reference id and is the
// reconciliation key for synced resources.

// Doctor is a doctor listed by the EHR
type Doctor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Speciality string `json:"speciality"`
	Location   string `json:"location"`
}

// Slot is an open appointment slot for a doctor on a given date
type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

// Visit is a patient visit. Visits are not persisted locally; they only
// enumerate which lab reports and medications to fetch and are the source
// for derived medical summaries.
type Visit struct {
	EhrReferenceID string `json:"id"`
	Date           string `json:"date"`
	DoctorName     string `json:"doctor"`
	Department     string `json:"department"`
	Diagnosis      string `json:"diagnosis"`
	Notes          string `json:"notes"`
}

// LabReport is a laboratory report as sent by the EHR
type LabReport struct {
	EhrReferenceID string `json:"id"`
	Date           string `json:"date"`
	TestType       string `json:"testType"`
	DoctorName     string `json:"doctor"`
	Status         string `json:"status"`
	Results        string `json:"results"`
}

// Medication is a prescribed medication as sent by the EHR
type Medication struct {
	EhrReferenceID string `json:"id"`
	Name           string `json:"name"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	PrescribedBy   string `json:"prescribedBy"`
}

// Appointment is a scheduled appointment as sent by the EHR
type Appointment struct {
	EhrReferenceID string `json:"id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	DoctorName     string `json:"doctor"`
	Department     string `json:"department"`
	Status         string `json:"status"`
	Reason         string `json:"reason"`
}

// MedicalSummary is a per-visit summary. The EHR does not expose summaries
// as a separate resource, so they are derived from visits.
type MedicalSummary struct {
	EhrReferenceID string `json:"id"`
	Date           string `json:"date"`
	DoctorName     string `json:"doctor"`
	Department     string `json:"department"`
	Diagnosis      string `json:"diagnosis"`
	Summary        string `json:"summary"`
}

// Bundle is the full set of clinical resources fetched for one patient.
type Bundle struct {
	LabReports       []LabReport
	Medications      []Medication
	Appointments     []Appointment
	MedicalSummaries []MedicalSummary
}

// OTPResult is the outcome of requesting a login OTP from the EHR.
type OTPResult struct {
	Success       bool   `json:"success"`
	OTPReference  string `json:"otpReference"`
	UsingMockData bool   `json:"usingMockData,omitempty"`
}

// LoginResult is the outcome of an OTP-based patient login against the EHR.
type LoginResult struct {
	Success       bool   `json:"success"`
	PatientID     string `json:"patientId"`
	Token         string `json:"token"`
	UsingMockData bool   `json:"usingMockData,omitempty"`
}

// FetchOutcome is the result of the patient fetch stage. Live data carries
// Degraded=false; when the fetch pipeline failed anywhere (patient unknown,
// network down, bad config) the bundle holds mock data and Reason records
// why, so callers can log and surface degraded syncs explicitly.
type FetchOutcome struct {
	Bundle   Bundle
	Degraded bool
	Reason   string
}

// ErrPatientNotFound indicates the demographics existence check failed.
var ErrPatientNotFound = errors.New("patient not found in EHR")

// UpstreamError describes a failed call to the EHR API. The response body is
// kept for diagnostics when the upstream answered with a non-2xx status.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ehr %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ehr %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
