package ehr

import (
	"context"
	"sync"
)

// FetchPatientData runs the whole fetch stage for one patient and never
// fails: if the live pipeline errors anywhere (unknown patient, network
// down, bad credentials) the outcome degrades to a full mock bundle with
// the reason recorded, so a sync can proceed in demo environments and the
// caller can still tell live data from substitute data.
func (c *Client) FetchPatientData(ctx context.Context, patientID string, mock *MockProvider) FetchOutcome {
	bundle, err := c.fetchPatientBundle(ctx, patientID)
	if err != nil {
		c.logger.Warn().Err(err).Str("patientId", patientID).Msg("live EHR fetch failed, substituting mock data")
		return FetchOutcome{
			Bundle:   mock.PatientBundle(),
			Degraded: true,
			Reason:   err.Error(),
		}
	}
	return FetchOutcome{Bundle: bundle}
}

// fetchPatientBundle fetches all four resource types from the live EHR.
// Visits gate the fan-out: each visit's lab reports and medications are
// fetched concurrently, and the patient-scoped appointment fetch runs
// alongside them. Per-visit failures surface as empty lists inside the
// client calls, so the join below only ever sees partial data, never errors.
func (c *Client) fetchPatientBundle(ctx context.Context, patientID string) (Bundle, error) {
	if !c.CheckPatientExists(ctx, patientID) {
		return Bundle{}, ErrPatientNotFound
	}

	visits, err := c.FetchVisits(ctx, patientID)
	if err != nil {
		return Bundle{}, err
	}

	var (
		bundle Bundle
		mu     sync.Mutex
		wg     sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		appointments := c.FetchAppointments(ctx, patientID)
		mu.Lock()
		bundle.Appointments = appointments
		mu.Unlock()
	}()

	for _, visit := range visits {
		visitID := visit.EhrReferenceID

		wg.Add(1)
		go func() {
			defer wg.Done()
			reports := c.FetchLabReports(ctx, visitID, false)
			mu.Lock()
			bundle.LabReports = append(bundle.LabReports, reports...)
			mu.Unlock()
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			medications := c.FetchPatientMedications(ctx, visitID)
			mu.Lock()
			bundle.Medications = append(bundle.Medications, medications...)
			mu.Unlock()
		}()
	}

	wg.Wait()

	bundle.MedicalSummaries = summariesFromVisits(visits)
	return bundle, nil
}

// summariesFromVisits derives one medical summary per visit. The EHR has no
// standalone summary resource, so the visit itself is the source of record.
func summariesFromVisits(visits []Visit) []MedicalSummary {
	if len(visits) == 0 {
		return nil
	}
	summaries := make([]MedicalSummary, 0, len(visits))
	for _, v := range visits {
		summaries = append(summaries, MedicalSummary{
			EhrReferenceID: v.EhrReferenceID,
			Date:           v.Date,
			DoctorName:     v.DoctorName,
			Department:     v.Department,
			Diagnosis:      v.Diagnosis,
			Summary:        v.Notes,
		})
	}
	return summaries
}
