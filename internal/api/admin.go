package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/analytics"
)

func dashboardStatsHandler(svc *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.DashboardStats(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func appointmentsLastWeekHandler(svc *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := svc.AppointmentsLastWeek(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, days)
	}
}

func revenueByMonthHandler(svc *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months, err := queryInt(r, "months", analytics.DefaultRevenueMonths)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		revenue, err := svc.RevenueByMonth(r.Context(), months)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, revenue)
	}
}

func patientsByConditionHandler(svc *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions, err := svc.PatientsByCondition(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, conditions)
	}
}

func auditLogsHandler(svc *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", analytics.DefaultAuditLimit)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		entries, err := svc.RecentAuditLogs(r.Context(), limit)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
