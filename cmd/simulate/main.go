package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	StatusRatio     float64
	RescheduleRatio float64
	ReadRatio       float64
	DoctorLimit     int
	PatientLimit    int
	Days            int
}

func (c *SimConfig) normalize() error {
	if c.Workers <= 0 {
		return errors.New("--workers must be > 0")
	}
	if c.Duration <= 0 {
		return errors.New("--duration must be > 0")
	}
	if c.Days <= 0 {
		return errors.New("--days must be > 0")
	}
	total := c.BookingRatio + c.StatusRatio + c.RescheduleRatio + c.ReadRatio
	if total <= 0 {
		return errors.New("operation ratios must add up to more than zero")
	}
	c.BookingRatio /= total
	c.StatusRatio /= total
	c.RescheduleRatio /= total
	c.ReadRatio /= total
	return nil
}

func main() {
	cfg := SimConfig{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a concurrent booking storm against the API and check for double bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.normalize(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.APIBaseURL, "api", "http://localhost:8080", "API base URL")
	f.DurationVar(&cfg.Duration, "duration", 30*time.Second, "how long to run")
	f.IntVar(&cfg.Workers, "workers", 10, "concurrent workers")
	f.Float64Var(&cfg.BookingRatio, "booking-ratio", 0.5, "share of booking requests")
	f.Float64Var(&cfg.StatusRatio, "status-ratio", 0.15, "share of status changes")
	f.Float64Var(&cfg.RescheduleRatio, "reschedule-ratio", 0.05, "share of reschedules")
	f.Float64Var(&cfg.ReadRatio, "read-ratio", 0.3, "share of reads")
	f.IntVar(&cfg.DoctorLimit, "doctors", 5, "doctors to book against; fewer means more contention")
	f.IntVar(&cfg.PatientLimit, "patients", 500, "patients to book for")
	f.IntVar(&cfg.Days, "days", 3, "calendar days ahead to spread bookings over")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg SimConfig) error {
	base, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(base.Env, base.LogLevel, "simulate")

	pool, err := db.ConnectPostgres(ctx, base.PostgresDSN, db.DefaultPoolOptions)
	if err != nil {
		return err
	}
	defer pool.Close()

	data, err := loadDataPool(ctx, pool, cfg)
	if err != nil {
		return fmt.Errorf("load data pool: %w", err)
	}
	logger.Info().Int("doctors", len(data.Doctors)).Int("patients", len(data.Patients)).Msg("data pool loaded")

	// The simulator acts as front desk staff.
	actor := identity.Identity{UserID: uuid.New(), Role: identity.RoleReceptionist}
	token, err := identity.NewVerifier([]byte(base.JWTSecret), base.JWTAudience).Sign(actor, cfg.Duration+time.Hour)
	if err != nil {
		return err
	}

	sim := &Simulator{
		config: cfg,
		pool:   data,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	logger.Info().Dur("duration", cfg.Duration).Int("workers", cfg.Workers).Msg("starting simulation")
	sim.Run(ctx)
	logger.Info().Msg("simulation complete")

	overlaps, err := countOverlaps(ctx, pool, data.Doctors)
	if err != nil {
		return fmt.Errorf("overlap check: %w", err)
	}
	sim.metrics.WriteReport(os.Stdout, cfg, overlaps)

	if overlaps > 0 {
		return fmt.Errorf("found %d overlapping appointment pairs", overlaps)
	}
	return nil
}
