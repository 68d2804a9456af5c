package models

// The four clinical resource tables below are populated by the EHR sync
// pipeline and read by the patient portal. Each row is keyed for
// reconciliation by (patient_id, ehr_reference_id): the sync upserts by that
// pair, so re-running a sync with identical upstream data never duplicates
// rows. Payload fields are overwritten wholesale on update; the upstream EHR
// owns their meaning and dates are stored as the strings it sends.

// LabReport represents a synced laboratory report for a patient
type LabReport struct {
	BaseModel
	PatientID      string `gorm:"size:36;not null;uniqueIndex:idx_lab_reports_patient_ref,priority:1" json:"patientId"`
	EhrReferenceID string `gorm:"size:64;not null;uniqueIndex:idx_lab_reports_patient_ref,priority:2" json:"ehrReferenceId"`
	ReportDate     string `gorm:"size:32" json:"date"`
	TestType       string `gorm:"size:100" json:"testType"`
	DoctorName     string `gorm:"size:100" json:"doctor"`
	Status         string `gorm:"size:32" json:"status"`
	Results        string `gorm:"type:text" json:"results"`
}

// Medication represents a synced medication prescribed to a patient
type Medication struct {
	BaseModel
	PatientID      string `gorm:"size:36;not null;uniqueIndex:idx_medications_patient_ref,priority:1" json:"patientId"`
	EhrReferenceID string `gorm:"size:64;not null;uniqueIndex:idx_medications_patient_ref,priority:2" json:"ehrReferenceId"`
	Name           string `gorm:"size:150" json:"name"`
	Dosage         string `gorm:"size:64" json:"dosage"`
	Frequency      string `gorm:"size:64" json:"frequency"`
	StartDate      string `gorm:"size:32" json:"startDate"`
	EndDate        string `gorm:"size:32" json:"endDate"`
	PrescribedBy   string `gorm:"size:100" json:"prescribedBy"`
}

// Appointment represents an appointment row. Synced rows come from the EHR
// with their external reference id; portal booking requests are stored in the
// same table with a locally generated reference id so the unique key holds.
type Appointment struct {
	BaseModel
	PatientID       string `gorm:"size:36;not null;uniqueIndex:idx_appointments_patient_ref,priority:1" json:"patientId"`
	EhrReferenceID  string `gorm:"size:64;not null;uniqueIndex:idx_appointments_patient_ref,priority:2" json:"ehrReferenceId"`
	AppointmentDate string `gorm:"size:32" json:"date"`
	AppointmentTime string `gorm:"size:32" json:"time"`
	DoctorName      string `gorm:"size:100" json:"doctor"`
	Department      string `gorm:"size:100" json:"department"`
	Status          string `gorm:"size:32" json:"status"`
	Reason          string `gorm:"size:255" json:"reason"`
}

// MedicalSummary represents a synced visit summary for a patient
type MedicalSummary struct {
	BaseModel
	PatientID      string `gorm:"size:36;not null;uniqueIndex:idx_medical_summaries_patient_ref,priority:1" json:"patientId"`
	EhrReferenceID string `gorm:"size:64;not null;uniqueIndex:idx_medical_summaries_patient_ref,priority:2" json:"ehrReferenceId"`
	SummaryDate    string `gorm:"size:32" json:"date"`
	DoctorName     string `gorm:"size:100" json:"doctor"`
	Department     string `gorm:"size:100" json:"department"`
	Diagnosis      string `gorm:"size:255" json:"diagnosis"`
	Summary        string `gorm:"type:text" json:"summary"`
}
