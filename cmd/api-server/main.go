package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/analytics"
	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/doctor"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/profile"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/report"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "api-server",
		Short: "Clinic scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Env, cfg.LogLevel, "migrate")

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.DefaultPoolOptions)
			if err != nil {
				return err
			}
			defer pool.Close()

			return migrate(ctx, pool, logger)
		},
	}
}

func migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	ran, err := db.Migrate(ctx, pool)
	for _, m := range ran {
		logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("migration applied")
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(ran) == 0 {
		logger.Info().Msg("schema up to date")
	}
	return nil
}

func runServer(skipMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Env, cfg.LogLevel, "api-server")
	logger.Info().Str("env", cfg.Env).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 25, MinConns: 2})
	cancelPg()
	if err != nil {
		return fmt.Errorf("postgres connection: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to postgres")

	if !skipMigrate {
		if err := migrate(rootCtx, pool, logger); err != nil {
			return err
		}
	}

	var (
		locker   redisclient.Locker
		rdb      *redis.Client
		redisPng api.Pinger
	)
	switch cfg.LockBackend {
	case "redis":
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis connection: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
		redisPng = api.RedisPinger{Client: rdb}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	default:
		locker = redisclient.NewLocalLocker()
		logger.Warn().Msg("schedule locks are process local; run a single replica")
	}

	codec, err := fieldcodec.New(cfg.FieldCodec, cfg.FieldEncryptionKey, pool)
	if err != nil {
		return err
	}

	store, err := newReportStore(cfg)
	if err != nil {
		return err
	}

	rec := audit.NewRecorder(audit.NewPgRepository(pool), logger)

	services := api.Services{
		Appointments:  appointment.NewService(appointment.NewPgRepository(pool), locker, codec, rec, logger),
		Patients:      patient.NewService(patient.NewPgRepository(pool), codec, rec, logger),
		Doctors:       doctor.NewService(doctor.NewPgRepository(pool), rec, logger),
		Profiles:      profile.NewService(profile.NewPgRepository(pool), codec, rec, logger),
		Prescriptions: prescription.NewService(prescription.NewPgRepository(pool), codec, rec, logger),
		Records:       medrecord.NewService(medrecord.NewPgRepository(pool), codec, rec, logger),
		Reports:       report.NewService(report.NewPgRepository(pool), store, codec, rec, logger, cfg.ReportURLTTL),
		Billing:       billing.NewService(billing.NewPgRepository(pool), codec, rec, logger),
		Analytics:     analytics.NewService(analytics.NewPgSource(pool), rec, logger),
	}

	handler := api.NewRouter(api.RouterConfig{
		Services: services,
		Verifier: identity.NewVerifier([]byte(cfg.JWTSecret), cfg.JWTAudience),
		Health:   api.NewHealthHandler(pool, redisPng, cfg.Env, version),
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-rootCtx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	logger.Info().Msg("api-server stopped")
	return nil
}

func newReportStore(cfg config.Config) (storage.Store, error) {
	if cfg.ReportStore != "s3" {
		return storage.NewMemoryStore("http://localhost:" + cfg.HTTPPort + "/_objects"), nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.S3Region)})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return storage.NewS3(sess, cfg.S3Bucket, cfg.S3Prefix), nil
}
