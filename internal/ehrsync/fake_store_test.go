package ehrsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinic-portal-server/internal/models"
)

// fakeStore is an in-memory PatientRecordStore used to exercise the
// reconciler and orchestrator without a database. Per-method error hooks
// simulate write failures.
type fakeStore struct {
	mu sync.Mutex

	integration *models.EhrIntegration
	history     []models.EhrSyncHistory
	hospitalIDs map[string]string

	labReports  map[string]*models.LabReport
	medications map[string]*models.Medication
	appts       map[string]*models.Appointment
	summaries   map[string]*models.MedicalSummary

	activeErr     error
	saveLabErr    func(rec *models.LabReport) error
	saveMedErr    func(rec *models.Medication) error
	markSyncedErr error
	hospitalIDErr error
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hospitalIDs: make(map[string]string),
		labReports:  make(map[string]*models.LabReport),
		medications: make(map[string]*models.Medication),
		appts:       make(map[string]*models.Appointment),
		summaries:   make(map[string]*models.MedicalSummary),
	}
}

func key(patientID, ehrRef string) string {
	return patientID + "/" + ehrRef
}

func (s *fakeStore) ActiveIntegration(ctx context.Context) (*models.EhrIntegration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	if s.integration == nil || !s.integration.IsActive {
		return nil, nil
	}
	copied := *s.integration
	return &copied, nil
}

func (s *fakeStore) MarkSynced(ctx context.Context, integrationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markSyncedErr != nil {
		return s.markSyncedErr
	}
	if s.integration == nil || s.integration.ID != integrationID {
		return errors.New("integration not found")
	}
	s.integration.LastSyncTime = &at
	return nil
}

func (s *fakeStore) AppendHistory(ctx context.Context, entry *models.EhrSyncHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *entry)
	return nil
}

func (s *fakeStore) SetHospitalID(ctx context.Context, patientID, hospitalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hospitalIDErr != nil {
		return s.hospitalIDErr
	}
	s.hospitalIDs[patientID] = hospitalID
	return nil
}

func (s *fakeStore) FindLabReport(ctx context.Context, patientID, ehrRef string) (*models.LabReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.labReports[key(patientID, ehrRef)]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveLabReport(ctx context.Context, record *models.LabReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveLabErr != nil {
		if err := s.saveLabErr(record); err != nil {
			return err
		}
	}
	s.assignID(&record.ID)
	copied := *record
	s.labReports[key(record.PatientID, record.EhrReferenceID)] = &copied
	return nil
}

func (s *fakeStore) FindMedication(ctx context.Context, patientID, ehrRef string) (*models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.medications[key(patientID, ehrRef)]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveMedication(ctx context.Context, record *models.Medication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveMedErr != nil {
		if err := s.saveMedErr(record); err != nil {
			return err
		}
	}
	s.assignID(&record.ID)
	copied := *record
	s.medications[key(record.PatientID, record.EhrReferenceID)] = &copied
	return nil
}

func (s *fakeStore) FindAppointment(ctx context.Context, patientID, ehrRef string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.appts[key(patientID, ehrRef)]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveAppointment(ctx context.Context, record *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignID(&record.ID)
	copied := *record
	s.appts[key(record.PatientID, record.EhrReferenceID)] = &copied
	return nil
}

func (s *fakeStore) FindMedicalSummary(ctx context.Context, patientID, ehrRef string) (*models.MedicalSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.summaries[key(patientID, ehrRef)]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveMedicalSummary(ctx context.Context, record *models.MedicalSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignID(&record.ID)
	copied := *record
	s.summaries[key(record.PatientID, record.EhrReferenceID)] = &copied
	return nil
}

func (s *fakeStore) assignID(id *string) {
	if *id == "" {
		s.nextID++
		*id = fmt.Sprintf("row-%d", s.nextID)
	}
}

// terminalHistory returns history rows excluding in_progress markers.
func (s *fakeStore) terminalHistory() []models.EhrSyncHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var terminal []models.EhrSyncHistory
	for _, h := range s.history {
		if h.Status != models.SyncStatusInProgress {
			terminal = append(terminal, h)
		}
	}
	return terminal
}
