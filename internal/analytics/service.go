package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
)

const (
	DefaultRevenueMonths  = 6
	DefaultConditionLimit = 10
	DefaultAuditLimit     = 50
	lastWeekDays          = 7
)

type DashboardStats struct {
	TotalPatients         int             `json:"total_patients"`
	TotalAppointments     int             `json:"total_appointments"`
	UpcomingAppointments  int             `json:"upcoming_appointments"`
	CompletedAppointments int             `json:"completed_appointments"`
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	PendingBills          decimal.Decimal `json:"pending_bills"`
}

type Service struct {
	source Source
	audit  *audit.Recorder
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(source Source, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		source: source,
		audit:  rec,
		logger: logger.With().Str("component", "analytics").Logger(),
		now:    time.Now,
	}
}

func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	today := s.now().Format("2006-01-02")

	counts, err := s.source.Counts(ctx, today)
	if err != nil {
		return nil, apperr.Persistence("count dashboard totals", err)
	}
	rows, err := s.source.BillingRows(ctx, time.Time{})
	if err != nil {
		return nil, apperr.Persistence("load billing rows", err)
	}

	return &DashboardStats{
		TotalPatients:         counts.ActivePatients,
		TotalAppointments:     counts.Appointments,
		UpcomingAppointments:  counts.UpcomingAppointments,
		CompletedAppointments: counts.CompletedAppointments,
		TotalRevenue:          SumPaid(rows),
		PendingBills:          SumPending(rows),
	}, nil
}

// AppointmentsLastWeek counts appointments per day from seven days ago
// through today.
func (s *Service) AppointmentsLastWeek(ctx context.Context) ([]DayCount, error) {
	now := s.now()
	from := now.AddDate(0, 0, -lastWeekDays).Format("2006-01-02")
	to := now.Format("2006-01-02")

	dates, err := s.source.AppointmentDatesSince(ctx, from)
	if err != nil {
		return nil, apperr.Persistence("load appointment dates", err)
	}
	return CountByDay(dates, from, to), nil
}

func (s *Service) RevenueByMonth(ctx context.Context, months int) ([]MonthRevenue, error) {
	if months <= 0 {
		months = DefaultRevenueMonths
	}
	now := s.now()
	rows, err := s.source.BillingRows(ctx, now.AddDate(0, -months, 0))
	if err != nil {
		return nil, apperr.Persistence("load billing rows", err)
	}
	return SumRevenueByMonth(rows, months, now), nil
}

func (s *Service) PatientsByCondition(ctx context.Context) ([]ConditionCount, error) {
	conds, err := s.source.ActivePatientConditions(ctx)
	if err != nil {
		return nil, apperr.Persistence("load patient conditions", err)
	}
	return TopConditions(conds, DefaultConditionLimit), nil
}

func (s *Service) RecentAuditLogs(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	entries, err := s.audit.Recent(ctx, limit)
	if err != nil {
		return nil, apperr.Persistence("list audit logs", err)
	}
	return entries, nil
}
