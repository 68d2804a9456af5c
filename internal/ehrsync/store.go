package ehrsync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"clinic-portal-server/internal/models"
)

// PatientRecordStore is the narrow persistence contract the sync pipeline
// runs against. The reconciler and orchestrator only ever touch storage
// through it, which keeps them testable against an in-memory fake. Find
// methods return (nil, nil) when no row matches.
type PatientRecordStore interface {
	ActiveIntegration(ctx context.Context) (*models.EhrIntegration, error)
	MarkSynced(ctx context.Context, integrationID string, at time.Time) error
	AppendHistory(ctx context.Context, entry *models.EhrSyncHistory) error
	SetHospitalID(ctx context.Context, patientID, hospitalID string) error

	FindLabReport(ctx context.Context, patientID, ehrRef string) (*models.LabReport, error)
	SaveLabReport(ctx context.Context, record *models.LabReport) error
	FindMedication(ctx context.Context, patientID, ehrRef string) (*models.Medication, error)
	SaveMedication(ctx context.Context, record *models.Medication) error
	FindAppointment(ctx context.Context, patientID, ehrRef string) (*models.Appointment, error)
	SaveAppointment(ctx context.Context, record *models.Appointment) error
	FindMedicalSummary(ctx context.Context, patientID, ehrRef string) (*models.MedicalSummary, error)
	SaveMedicalSummary(ctx context.Context, record *models.MedicalSummary) error
}

// GormStore implements PatientRecordStore on the application database.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore creates a PatientRecordStore backed by the given connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// ActiveIntegration returns the active EHR integration config, or (nil, nil)
// when none is active.
func (s *GormStore) ActiveIntegration(ctx context.Context) (*models.EhrIntegration, error) {
	var integration models.EhrIntegration
	err := s.DB.WithContext(ctx).Where("is_active = ?", true).First(&integration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// MarkSynced updates the integration's last sync timestamp. Called only on
// successful syncs; failures leave the previous timestamp in place.
func (s *GormStore) MarkSynced(ctx context.Context, integrationID string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.EhrIntegration{}).
		Where("id = ?", integrationID).
		Update("last_sync_time", at).Error
}

// AppendHistory writes one sync history row. History is append-only.
func (s *GormStore) AppendHistory(ctx context.Context, entry *models.EhrSyncHistory) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}

// SetHospitalID stores the external EHR patient identifier on the patient's
// profile.
func (s *GormStore) SetHospitalID(ctx context.Context, patientID, hospitalID string) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", patientID).
		Update("hospital_id", hospitalID).Error
}

func (s *GormStore) FindLabReport(ctx context.Context, patientID, ehrRef string) (*models.LabReport, error) {
	var record models.LabReport
	err := s.DB.WithContext(ctx).
		Where("patient_id = ? AND ehr_reference_id = ?", patientID, ehrRef).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) SaveLabReport(ctx context.Context, record *models.LabReport) error {
	return s.DB.WithContext(ctx).Save(record).Error
}

func (s *GormStore) FindMedication(ctx context.Context, patientID, ehrRef string) (*models.Medication, error) {
	var record models.Medication
	err := s.DB.WithContext(ctx).
		Where("patient_id = ? AND ehr_reference_id = ?", patientID, ehrRef).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) SaveMedication(ctx context.Context, record *models.Medication) error {
	return s.DB.WithContext(ctx).Save(record).Error
}

func (s *GormStore) FindAppointment(ctx context.Context, patientID, ehrRef string) (*models.Appointment, error) {
	var record models.Appointment
	err := s.DB.WithContext(ctx).
		Where("patient_id = ? AND ehr_reference_id = ?", patientID, ehrRef).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) SaveAppointment(ctx context.Context, record *models.Appointment) error {
	return s.DB.WithContext(ctx).Save(record).Error
}

func (s *GormStore) FindMedicalSummary(ctx context.Context, patientID, ehrRef string) (*models.MedicalSummary, error) {
	var record models.MedicalSummary
	err := s.DB.WithContext(ctx).
		Where("patient_id = ? AND ehr_reference_id = ?", patientID, ehrRef).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) SaveMedicalSummary(ctx context.Context, record *models.MedicalSummary) error {
	return s.DB.WithContext(ctx).Save(record).Error
}
