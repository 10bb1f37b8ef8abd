package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/doctor"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/profile"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var conditions = []string{"Hypertension", "Diabetes", "Asthma", "Arthritis", "Migraine", "COPD"}

var bloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

type seedOptions struct {
	doctors      int
	patients     int
	appointments int
	seed         int64
}

type seeder struct {
	admin        identity.Identity
	profiles     *profile.Service
	doctors      *doctor.Service
	patients     *patient.Service
	appointments *appointment.Service
	billing      *billing.Service
	logger       zerolog.Logger
}

func main() {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with synthetic clinic data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.doctors, "doctors", 20, "number of doctors")
	cmd.Flags().IntVar(&opts.patients, "patients", 500, "number of patients")
	cmd.Flags().IntVar(&opts.appointments, "appointments", 1000, "booking attempts to make")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "faker seed, 0 picks one from the clock")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Env, cfg.LogLevel, "seed")

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(connCtx, cfg.PostgresDSN, db.DefaultPoolOptions)
	cancel()
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	codec, err := fieldcodec.New(cfg.FieldCodec, cfg.FieldEncryptionKey, pool)
	if err != nil {
		return err
	}

	if opts.seed == 0 {
		opts.seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(uint64(opts.seed))

	rec := audit.NewRecorder(audit.NewPgRepository(pool), logger)
	s := &seeder{
		admin:        identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin},
		profiles:     profile.NewService(profile.NewPgRepository(pool), codec, rec, logger),
		doctors:      doctor.NewService(doctor.NewPgRepository(pool), rec, logger),
		patients:     patient.NewService(patient.NewPgRepository(pool), codec, rec, logger),
		appointments: appointment.NewService(appointment.NewPgRepository(pool), redisclient.NewLocalLocker(), codec, rec, logger),
		billing:      billing.NewService(billing.NewPgRepository(pool), codec, rec, logger),
		logger:       logger,
	}

	if _, err := s.profiles.Create(ctx, s.admin, profile.CreateRequest{
		ID:        s.admin.UserID,
		Role:      identity.RoleAdmin,
		FirstName: "Clinic",
		LastName:  "Admin",
		Email:     fmt.Sprintf("admin+%d@clinic.test", opts.seed),
	}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	doctorIDs, err := s.seedDoctors(ctx, faker, opts.doctors)
	if err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	patientIDs, err := s.seedPatients(ctx, faker, opts.patients, doctorIDs)
	if err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	if err := s.seedAppointments(ctx, faker, opts.appointments, doctorIDs, patientIDs); err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}

	token, err := identity.NewVerifier([]byte(cfg.JWTSecret), cfg.JWTAudience).Sign(s.admin, 24*time.Hour)
	if err != nil {
		return err
	}
	logger.Info().Str("admin_id", s.admin.UserID.String()).Msg("seed complete")
	fmt.Println(token)
	return nil
}

func (s *seeder) seedDoctors(ctx context.Context, faker *gofakeit.Faker, count int) ([]uuid.UUID, error) {
	s.logger.Info().Int("count", count).Msg("seeding doctors")

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		p, err := s.profiles.Create(ctx, s.admin, profile.CreateRequest{
			Role:      identity.RoleDoctor,
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Email:     faker.Email(),
			Phone:     ptr(faker.Phone()),
		})
		if err != nil {
			return nil, err
		}

		fee := decimal.NewFromInt(int64(faker.Number(50, 300)))
		d, err := s.doctors.Create(ctx, s.admin, doctor.CreateRequest{
			ProfileID:       p.ID,
			LicenseNumber:   fmt.Sprintf("LIC-%s", faker.DigitN(8)),
			Specialization:  []string{faker.RandomString(specialties)},
			Department:      ptr(faker.RandomString(specialties)),
			ConsultationFee: &fee,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *seeder) seedPatients(ctx context.Context, faker *gofakeit.Faker, count int, doctorIDs []uuid.UUID) ([]uuid.UUID, error) {
	s.logger.Info().Int("count", count).Msg("seeding patients")

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		dob := faker.DateRange(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-1, 0, 0)).Format("2006-01-02")
		p, err := s.profiles.Create(ctx, s.admin, profile.CreateRequest{
			Role:        identity.RolePatient,
			FirstName:   faker.FirstName(),
			LastName:    faker.LastName(),
			Email:       faker.Email(),
			DateOfBirth: &dob,
			Phone:       ptr(faker.Phone()),
			Address:     ptr(faker.Address().Address),
		})
		if err != nil {
			return nil, err
		}

		var chronic []string
		if faker.Bool() {
			chronic = []string{faker.RandomString(conditions)}
		}
		req := patient.CreateRequest{
			ProfileID:         p.ID,
			BloodGroup:        ptr(faker.RandomString(bloodGroups)),
			ChronicConditions: chronic,
			InsuranceProvider: ptr(faker.Company()),
			SSN:               ptr(faker.SSN()),
			EmergencyContact:  ptr(faker.Name() + " " + faker.Phone()),
		}
		if len(doctorIDs) > 0 {
			req.PrimaryDoctorID = &doctorIDs[faker.Number(0, len(doctorIDs)-1)]
		}
		pt, err := s.patients.Create(ctx, s.admin, req)
		if err != nil {
			return nil, err
		}
		ids = append(ids, pt.ID)

		if (i+1)%100 == 0 {
			s.logger.Info().Int("done", i+1).Int("total", count).Msg("patients seeded")
		}
	}
	return ids, nil
}

// seedAppointments books random half hour visits over the next two weeks.
// Attempts that collide with an existing booking are skipped; one in five
// bookings gets an invoice.
func (s *seeder) seedAppointments(ctx context.Context, faker *gofakeit.Faker, attempts int, doctorIDs, patientIDs []uuid.UUID) error {
	if len(doctorIDs) == 0 || len(patientIDs) == 0 {
		return nil
	}
	s.logger.Info().Int("attempts", attempts).Msg("seeding appointments")

	booked, conflicts := 0, 0
	for i := 0; i < attempts; i++ {
		date := time.Now().AddDate(0, 0, faker.Number(0, 13)).Format("2006-01-02")
		start := appointment.Clock((8*60 + faker.Number(0, 17)*30) * 60)
		end := start + 30*60

		a, err := s.appointments.BookAppointment(ctx, s.admin, appointment.BookRequest{
			PatientID: patientIDs[faker.Number(0, len(patientIDs)-1)],
			DoctorID:  doctorIDs[faker.Number(0, len(doctorIDs)-1)],
			Date:      date,
			StartTime: start,
			EndTime:   end,
			Type:      faker.RandomString([]string{"consultation", "follow_up", "checkup"}),
			Reason:    ptr(faker.RandomString(conditions)),
		})
		if err != nil {
			if errors.Is(err, appointment.ErrSlotConflict) {
				conflicts++
				continue
			}
			return err
		}
		booked++

		if faker.Number(1, 5) == 1 {
			amount := decimal.NewFromInt(int64(faker.Number(40, 400)))
			_, err := s.billing.Create(ctx, s.admin, billing.CreateRequest{
				PatientID:     a.PatientID,
				AppointmentID: &a.ID,
				Amount:        amount,
				TaxAmount:     amount.Mul(decimal.NewFromFloat(0.1)).Round(2),
				Services:      json.RawMessage(fmt.Sprintf(`{"consultation": %q}`, amount.String())),
				DueDate:       time.Now().AddDate(0, 0, faker.Number(-10, 30)).Format("2006-01-02"),
			})
			if err != nil {
				return err
			}
		}
	}

	s.logger.Info().Int("booked", booked).Int("conflicts", conflicts).Msg("appointments seeded")
	return nil
}

func ptr[T any](v T) *T { return &v }
