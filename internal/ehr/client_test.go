package ehr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url, "test-key", 5*time.Second, zerolog.Nop())
}

func TestClient_SendsCredentialHeader(t *testing.T) {
	var gotToken string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("token")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "visits": []any{}})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.FetchVisits(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotToken)
}

func TestClient_NonOKStatusKeepsResponseBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.FetchVisits(context.Background(), "P1")
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "invalid credentials")
	assert.Equal(t, "fetchPatientVisits", upstream.Op)
}

func TestClient_FetchVisits(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "P1", req["patientId"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"visits": []map[string]any{
				{"id": "V-1", "date": "2026-01-05", "doctor": "Dr. Rao", "diagnosis": "Pharyngitis"},
			},
		})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	visits, err := c.FetchVisits(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "V-1", visits[0].EhrReferenceID)
	assert.Equal(t, "Pharyngitis", visits[0].Diagnosis)
}

func TestClient_FetchLabReportsReturnsEmptyOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	assert.Empty(t, c.FetchLabReports(context.Background(), "V-1", false))
	assert.Empty(t, c.FetchPatientMedications(context.Background(), "V-1"))
	assert.Empty(t, c.FetchAppointments(context.Background(), "P1"))
}

func TestClient_FetchLabReportsByPatient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "P1", req["patientId"])
		assert.Empty(t, req["visitId"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"labReports": []map[string]any{{"id": "LAB-1", "testType": "CBC"}},
		})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	reports := c.FetchLabReports(context.Background(), "P1", true)
	require.Len(t, reports, 1)
	assert.Equal(t, "LAB-1", reports[0].EhrReferenceID)
}

func TestClient_ListDoctorsPassesFilters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Cardiology", r.URL.Query().Get("speciality"))
		assert.Equal(t, "Main Clinic", r.URL.Query().Get("location"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"doctors": []map[string]any{{"id": "DOC-1", "name": "Dr. Osei", "speciality": "Cardiology"}},
		})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	doctors, err := c.ListDoctors(context.Background(), "Cardiology", "Main Clinic")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Osei", doctors[0].Name)
}

func TestClient_CheckPatientExists(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "known patient",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
			},
			want: true,
		},
		{
			name: "unknown patient",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
			},
			want: false,
		},
		{
			name: "upstream error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			c := newTestClient(ts.URL)
			assert.Equal(t, tt.want, c.CheckPatientExists(context.Background(), "P1"))
		})
	}
}

func TestClient_GetLoginOTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "5551234", req["phone"])
		assert.Equal(t, "+1", req["countryCode"])
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "otpReference": "OTP-REF-1"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	result, err := c.GetLoginOTP(context.Background(), "5551234", "+1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "OTP-REF-1", result.OTPReference)
	assert.False(t, result.UsingMockData)
}

func TestClient_PatientLogin(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "123456", req["otp"])
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "patientId": "EHR-9", "token": "tok"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	result, err := c.PatientLogin(context.Background(), "5551234", "123456", "OTP-REF-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "EHR-9", result.PatientID)
}

func TestClient_TrimsTrailingSlashFromEndpoint(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "visits": []any{}})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/")
	_, err := c.FetchVisits(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "/fetchPatientVisits", gotPath)
}
