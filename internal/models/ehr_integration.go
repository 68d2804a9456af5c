package models

import (
	"time"
)

// EhrIntegration holds the connection settings for the external clinic EHR
// API. Only one row is expected to be active at a time; every sync attempt
// reads the active row and refuses to run without one.
type EhrIntegration struct {
	BaseModel
	APIEndpoint  string     `gorm:"size:255;not null" json:"apiEndpoint"`
	APIKey       string     `gorm:"size:255;not null" json:"-"` // Credential, never serialized
	IsActive     bool       `gorm:"default:false;index" json:"isActive"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}

// SyncStatus represents the outcome of a sync attempt
type SyncStatus string

const (
	SyncStatusSuccess    SyncStatus = "success"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusInProgress SyncStatus = "in_progress"
)

// EhrSyncHistory is an append-only audit record of sync attempts. Rows are
// never updated after creation; a sync writes an optional in_progress row at
// the start and exactly one terminal row (success or failed) at the end.
// PatientID is nil for connection tests, which are not patient-scoped.
type EhrSyncHistory struct {
	BaseModel
	Status    SyncStatus `gorm:"size:20;index" json:"status"`
	Message   string     `gorm:"size:500" json:"message"`
	PatientID *string    `gorm:"size:36;index" json:"patientId,omitempty"`
	Details   string     `gorm:"type:text" json:"details,omitempty"`
}
