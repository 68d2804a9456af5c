package models

import (
	"time"
)

// VitalType represents the kind of vital sign being recorded
type VitalType string

const (
	VitalBloodPressure VitalType = "blood_pressure"
	VitalHeartRate     VitalType = "heart_rate"
	VitalTemperature   VitalType = "temperature"
	VitalBloodSugar    VitalType = "blood_sugar"
	VitalWeight        VitalType = "weight"
	VitalOxygen        VitalType = "oxygen_saturation"
)

// VitalSign is a patient-recorded measurement shown on the portal's vitals
// page. These are entered locally and are not part of the EHR sync.
type VitalSign struct {
	BaseModel
	PatientID  string    `gorm:"size:36;index" json:"patientId"`
	Type       VitalType `gorm:"size:32;not null" json:"type"`
	Value      string    `gorm:"size:64;not null" json:"value"`
	Unit       string    `gorm:"size:32" json:"unit"`
	Notes      string    `gorm:"size:255" json:"notes,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
}
