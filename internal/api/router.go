package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/analytics"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/doctor"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/profile"
	"github.com/hackgods/clinic-scheduling/internal/report"
)

// Services bundles the domain services the HTTP layer exposes.
type Services struct {
	Appointments  *appointment.Service
	Patients      *patient.Service
	Doctors       *doctor.Service
	Profiles      *profile.Service
	Prescriptions *prescription.Service
	Records       *medrecord.Service
	Reports       *report.Service
	Billing       *billing.Service
	Analytics     *analytics.Service
}

type RouterConfig struct {
	Services Services
	Verifier *identity.Verifier
	Health   *HealthHandler
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	svc := cfg.Services
	own := ownership{patients: svc.Patients}

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier))
		r.Use(AuditMetaMiddleware)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", bookAppointmentHandler(svc.Appointments, own))
			r.Get("/", listAppointmentsHandler(svc.Appointments, own))
			r.With(RequireRole(identity.Staff...)).Get("/upcoming", upcomingAppointmentsHandler(svc.Appointments))
			r.Get("/conflicts", checkConflictHandler(svc.Appointments))
			r.Get("/{id}", getAppointmentHandler(svc.Appointments, own))
			r.Patch("/{id}", updateAppointmentHandler(svc.Appointments, own))
			r.Delete("/{id}", deleteAppointmentHandler(svc.Appointments))
			r.Post("/{id}/status", transitionStatusHandler(svc.Appointments, own))
			r.Post("/{id}/reschedule", rescheduleHandler(svc.Appointments, own))
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", createProfileHandler(svc.Profiles))
			r.Get("/{id}", getProfileHandler(svc.Profiles))
		})

		r.Route("/patients", func(r chi.Router) {
			r.With(RequireRole(identity.Staff...)).Post("/", createPatientHandler(svc.Patients))
			r.With(RequireRole(identity.Staff...)).Get("/", listPatientsHandler(svc.Patients))
			r.With(RequireRole(identity.RolePatient)).Get("/me", myPatientHandler(svc.Patients))
			r.Get("/{id}", getPatientHandler(svc.Patients, own))
			r.With(RequireRole(identity.Staff...)).Patch("/{id}", updatePatientHandler(svc.Patients))
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Post("/", createDoctorHandler(svc.Doctors))
			r.Get("/", listDoctorsHandler(svc.Doctors))
			r.Get("/{id}", getDoctorHandler(svc.Doctors))
			r.Patch("/{id}", updateDoctorHandler(svc.Doctors))
		})

		r.Route("/prescriptions", func(r chi.Router) {
			r.Post("/", createPrescriptionHandler(svc.Prescriptions))
			r.Get("/", listPrescriptionsHandler(svc.Prescriptions, own))
			r.Get("/{id}", getPrescriptionHandler(svc.Prescriptions, own))
			r.Patch("/{id}", updatePrescriptionHandler(svc.Prescriptions))
		})

		r.Route("/medical-records", func(r chi.Router) {
			r.Post("/", createRecordHandler(svc.Records))
			r.Get("/", listRecordsHandler(svc.Records, own))
			r.Get("/{id}", getRecordHandler(svc.Records, own))
			r.Patch("/{id}", updateRecordHandler(svc.Records))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", uploadReportHandler(svc.Reports))
			r.Get("/", listReportsHandler(svc.Reports, own))
			r.Get("/{id}", getReportHandler(svc.Reports, own))
			r.Get("/{id}/download", downloadReportHandler(svc.Reports, own))
			r.Patch("/{id}", updateReportHandler(svc.Reports))
			r.Post("/{id}/review", reviewReportHandler(svc.Reports))
			r.Delete("/{id}", deleteReportHandler(svc.Reports))
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/", createInvoiceHandler(svc.Billing))
			r.Get("/", listInvoicesHandler(svc.Billing, own))
			r.With(RequireRole(identity.Staff...)).Get("/pending", pendingInvoicesHandler(svc.Billing))
			r.Get("/{id}", getInvoiceHandler(svc.Billing, own))
			r.Patch("/{id}", updateInvoiceHandler(svc.Billing))
			r.Post("/{id}/status", invoiceStatusHandler(svc.Billing))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(identity.RoleAdmin))
			r.Get("/analytics/dashboard", dashboardStatsHandler(svc.Analytics))
			r.Get("/analytics/appointments-last-week", appointmentsLastWeekHandler(svc.Analytics))
			r.Get("/analytics/revenue", revenueByMonthHandler(svc.Analytics))
			r.Get("/analytics/conditions", patientsByConditionHandler(svc.Analytics))
			r.Get("/audit-logs", auditLogsHandler(svc.Analytics))
		})
	})

	return r
}
