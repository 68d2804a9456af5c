package ehr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider produces substitute payloads for every EHR client operation.
// It is used when the live API is unreachable or no integration is active,
// so downstream code always receives well-shaped data. The shapes mirror the
// live wire types exactly; only the values are synthetic. Reference ids are
// randomized per call, everything else is fixed.
type MockProvider struct{}

// NewMockProvider creates a MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func mockRef(prefix string) string {
	return fmt.Sprintf("MOCK-%s-%s", prefix, uuid.New().String()[:8])
}

// LoginOTP substitutes a getLoginOTP response.
func (p *MockProvider) LoginOTP() OTPResult {
	return OTPResult{
		Success:       true,
		OTPReference:  mockRef("OTP"),
		UsingMockData: true,
	}
}

// PatientLogin substitutes a patientLogin response.
func (p *MockProvider) PatientLogin() LoginResult {
	return LoginResult{
		Success:       true,
		PatientID:     mockRef("PAT"),
		Token:         mockRef("TOK"),
		UsingMockData: true,
	}
}

// Doctors substitutes a listDoctors response.
func (p *MockProvider) Doctors() []Doctor {
	return []Doctor{
		{ID: mockRef("DOC"), Name: "Dr. Anita Rao", Speciality: "General Medicine", Location: "Main Clinic"},
		{ID: mockRef("DOC"), Name: "Dr. Samuel Osei", Speciality: "Cardiology", Location: "Main Clinic"},
		{ID: mockRef("DOC"), Name: "Dr. Lena Fischer", Speciality: "Pediatrics", Location: "North Branch"},
	}
}

// DoctorSlots substitutes a getDoctorSlots response for the given date.
func (p *MockProvider) DoctorSlots(date string) []Slot {
	return []Slot{
		{StartTime: "09:00", EndTime: "09:30", Available: true},
		{StartTime: "09:30", EndTime: "10:00", Available: true},
		{StartTime: "10:00", EndTime: "10:30", Available: false},
		{StartTime: "11:00", EndTime: "11:30", Available: true},
	}
}

// PatientBundle substitutes the full clinical fetch for a patient. Every
// resource type is populated so the fallback path never leaves a consumer
// with a partial or nil set.
func (p *MockProvider) PatientBundle() Bundle {
	today := time.Now().Format("2006-01-02")
	lastMonth := time.Now().AddDate(0, -1, 0).Format("2006-01-02")

	return Bundle{
		LabReports: []LabReport{
			{
				EhrReferenceID: mockRef("LAB"),
				Date:           lastMonth,
				TestType:       "Complete Blood Count",
				DoctorName:     "Dr. Anita Rao",
				Status:         "completed",
				Results:        "All values within normal range.",
			},
			{
				EhrReferenceID: mockRef("LAB"),
				Date:           today,
				TestType:       "Lipid Profile",
				DoctorName:     "Dr. Samuel Osei",
				Status:         "completed",
				Results:        "LDL slightly elevated; recheck in 3 months.",
			},
		},
		Medications: []Medication{
			{
				EhrReferenceID: mockRef("MED"),
				Name:           "Amoxicillin",
				Dosage:         "500mg",
				Frequency:      "Three times daily",
				StartDate:      lastMonth,
				EndDate:        today,
				PrescribedBy:   "Dr. Anita Rao",
			},
			{
				EhrReferenceID: mockRef("MED"),
				Name:           "Atorvastatin",
				Dosage:         "10mg",
				Frequency:      "Once daily at night",
				StartDate:      today,
				PrescribedBy:   "Dr. Samuel Osei",
			},
		},
		Appointments: []Appointment{
			{
				EhrReferenceID: mockRef("APT"),
				Date:           time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
				Time:           "10:00",
				DoctorName:     "Dr. Samuel Osei",
				Department:     "Cardiology",
				Status:         "confirmed",
				Reason:         "Follow-up consultation",
			},
		},
		MedicalSummaries: []MedicalSummary{
			{
				EhrReferenceID: mockRef("SUM"),
				Date:           lastMonth,
				DoctorName:     "Dr. Anita Rao",
				Department:     "General Medicine",
				Diagnosis:      "Acute pharyngitis",
				Summary:        "Patient presented with sore throat and fever. Prescribed antibiotics, advised rest and fluids.",
			},
		},
	}
}
