package ehr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 15 * time.Second

// Operation paths on the EHR API. Each operation is one request to
// {endpoint}/{operation} with the credential in the "token" header.
const (
	opGetLoginOTP       = "getLoginOTP"
	opPatientLogin      = "patientLogin"
	opListDoctors       = "listDoctors"
	opGetDoctorSlots    = "getDoctorSlots"
	opFetchVisits       = "fetchPatientVisits"
	opFetchLabReports   = "fetchPatientLabReports"
	opFetchMedications  = "fetchPatientMedications"
	opFetchAppointments = "fetchAppointments"
	opFetchDemographics = "fetchPatientDemographics"
)

// Client issues authenticated requests to the external clinic EHR API.
// It holds no state beyond the connection settings; one client is built
// per sync attempt from the active integration config.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates an EHR API client for the given endpoint and credential.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// do performs one EHR API call and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, op string, query url.Values, body interface{}, out interface{}) error {
	reqURL := c.endpoint + "/" + op
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &UpstreamError{Op: op, Err: err}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("token", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Keep the body text so the sync history can show what the EHR said
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &UpstreamError{Op: op, Err: err}
		}
	}
	return nil
}

// GetLoginOTP requests a login OTP for the given phone number. Failures
// propagate to the caller; the handler decides whether to fall back to mock.
func (c *Client) GetLoginOTP(ctx context.Context, phone, countryCode string) (OTPResult, error) {
	var result OTPResult
	payload := map[string]string{"phone": phone, "countryCode": countryCode}
	if err := c.do(ctx, http.MethodPost, opGetLoginOTP, nil, payload, &result); err != nil {
		return OTPResult{}, err
	}
	return result, nil
}

// PatientLogin performs an OTP-based login against the EHR.
func (c *Client) PatientLogin(ctx context.Context, phone, otp, otpReference string) (LoginResult, error) {
	var result LoginResult
	payload := map[string]string{"phone": phone, "otp": otp, "otpReference": otpReference}
	if err := c.do(ctx, http.MethodPost, opPatientLogin, nil, payload, &result); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// ListDoctors returns the EHR's doctor directory, optionally filtered by
// speciality and location.
func (c *Client) ListDoctors(ctx context.Context, speciality, location string) ([]Doctor, error) {
	query := url.Values{}
	if speciality != "" {
		query.Set("speciality", speciality)
	}
	if location != "" {
		query.Set("location", location)
	}

	var result struct {
		Success bool     `json:"success"`
		Doctors []Doctor `json:"doctors"`
	}
	if err := c.do(ctx, http.MethodGet, opListDoctors, query, nil, &result); err != nil {
		return nil, err
	}
	return result.Doctors, nil
}

// GetDoctorSlots returns a doctor's open slots for a date.
func (c *Client) GetDoctorSlots(ctx context.Context, doctorID, date string) ([]Slot, error) {
	var result struct {
		Success bool   `json:"success"`
		Slots   []Slot `json:"slots"`
	}
	payload := map[string]string{"doctorId": doctorID, "date": date}
	if err := c.do(ctx, http.MethodPost, opGetDoctorSlots, nil, payload, &result); err != nil {
		return nil, err
	}
	return result.Slots, nil
}

// FetchVisits returns the patient's visits. A failure here aborts the fetch
// stage (there is nothing to fan out over), so the error propagates.
func (c *Client) FetchVisits(ctx context.Context, patientID string) ([]Visit, error) {
	var result struct {
		Success bool    `json:"success"`
		Visits  []Visit `json:"visits"`
	}
	payload := map[string]string{"patientId": patientID}
	if err := c.do(ctx, http.MethodPost, opFetchVisits, nil, payload, &result); err != nil {
		return nil, err
	}
	return result.Visits, nil
}

// FetchLabReports returns lab reports keyed either by visit or directly by
// patient. This call runs inside the per-visit fan-out, so any failure is
// absorbed into an empty list: one bad visit must not abort the others.
func (c *Client) FetchLabReports(ctx context.Context, id string, byPatient bool) []LabReport {
	var result struct {
		Success bool        `json:"success"`
		Reports []LabReport `json:"labReports"`
	}
	payload := map[string]string{"visitId": id}
	if byPatient {
		payload = map[string]string{"patientId": id}
	}
	if err := c.do(ctx, http.MethodPost, opFetchLabReports, nil, payload, &result); err != nil {
		c.logger.Warn().Err(err).Str("id", id).Bool("byPatient", byPatient).Msg("lab report fetch failed, continuing with empty list")
		return nil
	}
	return result.Reports
}

// FetchPatientMedications returns medications for one visit. Same
// empty-list-on-failure contract as FetchLabReports.
func (c *Client) FetchPatientMedications(ctx context.Context, visitID string) []Medication {
	var result struct {
		Success     bool         `json:"success"`
		Medications []Medication `json:"medications"`
	}
	payload := map[string]string{"visitId": visitID}
	if err := c.do(ctx, http.MethodPost, opFetchMedications, nil, payload, &result); err != nil {
		c.logger.Warn().Err(err).Str("visitId", visitID).Msg("medication fetch failed, continuing with empty list")
		return nil
	}
	return result.Medications
}

// FetchAppointments returns the patient's appointments. Empty list on
// failure; appointments are one resource type among four and must not take
// the others down with them.
func (c *Client) FetchAppointments(ctx context.Context, patientID string) []Appointment {
	var result struct {
		Success      bool          `json:"success"`
		Appointments []Appointment `json:"appointments"`
	}
	payload := map[string]string{"patientId": patientID}
	if err := c.do(ctx, http.MethodPost, opFetchAppointments, nil, payload, &result); err != nil {
		c.logger.Warn().Err(err).Str("patientId", patientID).Msg("appointment fetch failed, continuing with empty list")
		return nil
	}
	return result.Appointments
}

// CheckPatientExists verifies the patient is known to the EHR via the
// demographics endpoint. Any failure, including timeouts, reads as "not
// found": syncing data for a patient that cannot be confirmed is unsafe.
func (c *Client) CheckPatientExists(ctx context.Context, patientID string) bool {
	var result struct {
		Success bool `json:"success"`
	}
	payload := map[string]string{"patientId": patientID}
	if err := c.do(ctx, http.MethodPost, opFetchDemographics, nil, payload, &result); err != nil {
		c.logger.Warn().Err(err).Str("patientId", patientID).Msg("demographics check failed")
		return false
	}
	return result.Success
}
