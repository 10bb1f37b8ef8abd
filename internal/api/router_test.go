package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/analytics"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/doctor"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/profile"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/report"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

type emptySource struct{}

func (emptySource) Counts(context.Context, string) (analytics.Counts, error) {
	return analytics.Counts{}, nil
}

func (emptySource) AppointmentDatesSince(context.Context, string) ([]string, error) {
	return nil, nil
}

func (emptySource) BillingRows(context.Context, time.Time) ([]analytics.BillingRow, error) {
	return nil, nil
}

func (emptySource) ActivePatientConditions(context.Context) ([][]string, error) {
	return nil, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	handler  http.Handler
	verifier *identity.Verifier
	services Services

	receptionist identity.Identity
	doctorUser   identity.Identity
	admin        identity.Identity
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	codec, err := fieldcodec.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	rec := audit.NewRecorder(audit.NewMemoryRepository(), zerolog.Nop())
	log := zerolog.Nop()

	svc := Services{
		Appointments:  appointment.NewService(appointment.NewMemoryRepository(), redisclient.NewLocalLocker(), codec, rec, log),
		Patients:      patient.NewService(patient.NewMemoryRepository(), codec, rec, log),
		Doctors:       doctor.NewService(doctor.NewMemoryRepository(), rec, log),
		Profiles:      profile.NewService(profile.NewMemoryRepository(), codec, rec, log),
		Prescriptions: prescription.NewService(prescription.NewMemoryRepository(), codec, rec, log),
		Records:       medrecord.NewService(medrecord.NewMemoryRepository(), codec, rec, log),
		Reports:       report.NewService(report.NewMemoryRepository(), storage.NewMemoryStore("http://files.test"), codec, rec, log, 0),
		Billing:       billing.NewService(billing.NewMemoryRepository(), codec, rec, log),
		Analytics:     analytics.NewService(emptySource{}, rec, log),
	}
	verifier := identity.NewVerifier([]byte("test-secret"), "")

	return &testServer{
		handler: NewRouter(RouterConfig{
			Services: svc,
			Verifier: verifier,
			Health:   NewHealthHandler(fakePinger{}, nil, "test", "v0"),
			Logger:   log,
		}),
		verifier:     verifier,
		services:     svc,
		receptionist: identity.Identity{UserID: uuid.New(), Role: identity.RoleReceptionist},
		doctorUser:   identity.Identity{UserID: uuid.New(), Role: identity.RoleDoctor},
		admin:        identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin},
	}
}

func (s *testServer) do(t *testing.T, as identity.Identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	s.authorize(t, req, as)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) authorize(t *testing.T, req *http.Request, as identity.Identity) {
	t.Helper()
	if as.IsZero() {
		return
	}
	token, err := s.verifier.Sign(as, time.Minute)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

// registerPatient creates a patient chart owned by a new patient-role user.
func (s *testServer) registerPatient(t *testing.T) (identity.Identity, *patient.Patient) {
	t.Helper()
	user := identity.Identity{UserID: uuid.New(), Role: identity.RolePatient}
	p, err := s.services.Patients.Create(context.Background(), s.receptionist, patient.CreateRequest{ProfileID: user.UserID})
	require.NoError(t, err)
	return user, p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func booking(patientID, doctorID uuid.UUID, start, end string) map[string]any {
	body := map[string]any{
		"doctor_id":        doctorID,
		"appointment_date": "2030-01-15",
		"start_time":       start,
		"end_time":         end,
		"appointment_type": "consultation",
	}
	if patientID != uuid.Nil {
		body["patient_id"] = patientID
	}
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, identity.Identity{}, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, identity.Identity{}, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "disabled", ready.Dependencies["redis"])

	down := NewHealthHandler(fakePinger{err: errors.New("connection refused")}, fakePinger{}, "test", "v0")
	rec = httptest.NewRecorder()
	down.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	degraded := NewHealthHandler(fakePinger{}, fakePinger{err: errors.New("timeout")}, "test", "v0")
	rec = httptest.NewRecorder()
	degraded.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode[ReadinessResponse](t, rec).Status)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, identity.Identity{}, http.MethodGet, "/api/doctors", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, s.doctorUser, http.MethodGet, "/api/doctors", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, p := s.registerPatient(t)
	doctorID := uuid.New()

	rec := s.do(t, s.receptionist, http.MethodPost, "/api/appointments", booking(p.ID, doctorID, "09:00", "09:30"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[appointment.Appointment](t, rec)
	assert.Equal(t, appointment.StatusScheduled, first.Status)
	assert.Equal(t, s.receptionist.UserID, first.CreatedBy)

	rec = s.do(t, s.receptionist, http.MethodPost, "/api/appointments", booking(p.ID, doctorID, "09:15", "09:45"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_conflict", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, s.receptionist, http.MethodPost, "/api/appointments", booking(p.ID, doctorID, "09:30", "10:00"))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, s.receptionist, http.MethodGet,
		"/api/appointments/conflicts?doctor_id="+doctorID.String()+"&date=2030-01-15&start_time=09:10&end_time=09:20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[ConflictResponse](t, rec).Conflict)

	rec = s.do(t, s.receptionist, http.MethodGet,
		"/api/appointments/conflicts?doctor_id="+doctorID.String()+"&date=2030-01-15&start_time=09:10&end_time=09:20&exclude_id="+first.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[ConflictResponse](t, rec).Conflict)

	rec = s.do(t, s.doctorUser, http.MethodPost, "/api/appointments/"+first.ID.String()+"/status", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, s.doctorUser, http.MethodPost, "/api/appointments/"+first.ID.String()+"/status", map[string]any{"status": "scheduled"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_status_transition", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, s.receptionist, http.MethodGet, "/api/appointments?doctor_id="+doctorID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]appointment.AppointmentDetail](t, rec), 2)

	rec = s.do(t, s.receptionist, http.MethodDelete, "/api/appointments/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, s.admin, http.MethodDelete, "/api/appointments/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, s.admin, http.MethodGet, "/api/appointments/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingValidation(t *testing.T) {
	s := newTestServer(t)
	_, p := s.registerPatient(t)

	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewBufferString("{not json"))
	s.authorize(t, req, s.receptionist)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := booking(p.ID, uuid.New(), "09:00", "09:30")
	delete(body, "doctor_id")
	rec = s.do(t, s.receptionist, http.MethodPost, "/api/appointments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "doctor_id")

	rec = s.do(t, s.receptionist, http.MethodPost, "/api/appointments", booking(p.ID, uuid.New(), "10:00", "09:00"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, s.receptionist, http.MethodPost, "/api/appointments", booking(p.ID, uuid.New(), "25:00", "26:00"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, s.receptionist, http.MethodPost, "/api/appointments", booking(uuid.Nil, uuid.New(), "09:00", "09:30"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "staff must name the patient")
}

func TestPatientOwnership(t *testing.T) {
	s := newTestServer(t)
	alice, aliceChart := s.registerPatient(t)
	_, bobChart := s.registerPatient(t)
	doctorID := uuid.New()

	rec := s.do(t, alice, http.MethodPost, "/api/appointments", booking(uuid.Nil, doctorID, "11:00", "11:30"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	own := decode[appointment.Appointment](t, rec)
	assert.Equal(t, aliceChart.ID, own.PatientID)

	rec = s.do(t, alice, http.MethodPost, "/api/appointments", booking(bobChart.ID, doctorID, "12:00", "12:30"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	bobAppt, err := s.services.Appointments.BookAppointment(context.Background(), s.receptionist, appointment.BookRequest{
		PatientID: bobChart.ID, DoctorID: doctorID, Date: "2030-01-15",
		StartTime: appointment.MustClock("13:00"), EndTime: appointment.MustClock("13:30"), Type: "follow_up",
	})
	require.NoError(t, err)

	rec = s.do(t, alice, http.MethodGet, "/api/appointments/"+bobAppt.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, alice, http.MethodGet, "/api/appointments?patient_id="+bobChart.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, alice, http.MethodGet, "/api/appointments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]appointment.AppointmentDetail](t, rec), 1)

	rec = s.do(t, alice, http.MethodPost, "/api/appointments/"+own.ID.String()+"/status", map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, alice, http.MethodPost, "/api/appointments/"+own.ID.String()+"/status", map[string]any{"status": "cancelled"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, alice, http.MethodGet, "/api/patients/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, aliceChart.ID, decode[patient.Patient](t, rec).ID)

	rec = s.do(t, alice, http.MethodGet, "/api/patients", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, alice, http.MethodGet, "/api/appointments/upcoming", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	_, p := s.registerPatient(t)

	rec := s.do(t, s.receptionist, http.MethodGet, "/api/admin/audit-logs", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, s.admin, http.MethodGet, "/api/admin/audit-logs?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]audit.Entry](t, rec)
	require.NotEmpty(t, entries)
	assert.Equal(t, p.ID.String(), entries[0].RecordID)

	rec = s.do(t, s.admin, http.MethodGet, "/api/admin/analytics/dashboard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, s.admin, http.MethodGet, "/api/admin/analytics/revenue?months=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	user, p := s.registerPatient(t)

	rec := s.do(t, s.receptionist, http.MethodPost, "/api/billing", map[string]any{
		"patient_id": p.ID,
		"amount":     "100.00",
		"tax_amount": "8.50",
		"due_date":   "2030-02-01",
		"services":   []map[string]any{{"code": "CONSULT", "price": 100}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode[billing.Invoice](t, rec)
	assert.Equal(t, "108.5", inv.TotalAmount.String())
	assert.Regexp(t, `^INV-\d{6}-00001$`, inv.InvoiceNumber)

	rec = s.do(t, s.receptionist, http.MethodPost, "/api/billing/"+inv.ID.String()+"/status", map[string]any{"status": "paid", "payment_method": "card"})
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decode[billing.Invoice](t, rec)
	assert.NotNil(t, paid.PaidAt)

	rec = s.do(t, user, http.MethodGet, "/api/billing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]billing.Invoice](t, rec), 1)

	rec = s.do(t, user, http.MethodPost, "/api/billing/"+inv.ID.String()+"/status", map[string]any{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportUploadOverHTTP(t *testing.T) {
	s := newTestServer(t)
	user, p := s.registerPatient(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("patient_id", p.ID.String()))
	require.NoError(t, mw.WriteField("report_type", "lab"))
	require.NoError(t, mw.WriteField("report_date", "2030-01-10"))
	require.NoError(t, mw.WriteField("title", "Lipid panel"))
	require.NoError(t, mw.WriteField("findings", "LDL 160 mg/dL"))
	part, err := mw.CreateFormFile("file", "lipids.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.authorize(t, req, s.doctorUser)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploaded := decode[report.Report](t, rec)
	require.NotNil(t, uploaded.FileName)
	assert.Equal(t, "lipids.pdf", *uploaded.FileName)

	rec = s.do(t, user, http.MethodGet, "/api/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]report.Report](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "LDL 160 mg/dL", *list[0].Findings)

	rec = s.do(t, user, http.MethodGet, "/api/reports/"+uploaded.ID.String()+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[DownloadURLResponse](t, rec).URL, "http://files.test/")

	rec = s.do(t, s.doctorUser, http.MethodPost, "/api/reports/"+uploaded.ID.String()+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[report.Report](t, rec).IsReviewed)
}
