package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medhub/medhub/internal/config"
	"github.com/medhub/medhub/internal/domain/account"
	"github.com/medhub/medhub/internal/domain/department"
	"github.com/medhub/medhub/internal/domain/doctor"
	"github.com/medhub/medhub/internal/domain/lab"
	"github.com/medhub/medhub/internal/domain/patient"
	"github.com/medhub/medhub/internal/domain/prescription"
	"github.com/medhub/medhub/internal/domain/scheduling"
	"github.com/medhub/medhub/internal/domain/support"
	"github.com/medhub/medhub/internal/platform/auth"
	"github.com/medhub/medhub/internal/platform/db"
	"github.com/medhub/medhub/internal/platform/metrics"
	"github.com/medhub/medhub/internal/platform/middleware"
	"github.com/medhub/medhub/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.Env)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	issuer := auth.NewTokenIssuer(cfg.Secret(), time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	hub := websocket.NewHub(logger)
	collector := metrics.NewCollector("hms")

	// Services. The doctor and scheduling services reference each other, so
	// the appointment source is wired in after both exist.
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	accountSvc := account.NewService(account.NewRepoPG(pool), patientSvc, issuer)
	deptSvc := department.NewService(department.NewRepoPG(pool))
	doctorSvc := doctor.NewService(doctor.NewRepoPG(pool), nil)
	schedSvc := scheduling.NewService(scheduling.NewRepoPG(pool), doctorSvc, hub)
	doctorSvc.SetAppointmentSource(schedSvc)
	prescriptionSvc := prescription.NewService(prescription.NewRepoPG(pool))
	labSvc := lab.NewService(lab.NewRepoPG(pool))
	supportSvc := support.NewService(support.NewContactRepoPG(pool), support.NewChatRepoPG(pool), hub)

	patientSvc.SetMetrics(collector)
	schedSvc.SetMetrics(collector)
	prescriptionSvc.SetMetrics(collector)
	labSvc.SetMetrics(collector)

	// Websocket subscriptions go through the same participation rules the
	// chat REST handlers enforce.
	hub.SetAuthorizer(support.NewChatAuthorizer(supportSvc, accountSvc))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(collector.Middleware())

	e.GET("/health", db.HealthHandler(pool))
	metricsHandler := echo.WrapHandler(collector.Handler())
	e.GET("/metrics", func(c echo.Context) error {
		// Pool stats are refreshed per scrape rather than on a timer.
		collector.DBConnections.Set(float64(pool.Stat().TotalConns()))
		return metricsHandler(c)
	})

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	api := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	authed := api.Group("", auth.Middleware(issuer))

	// The account service doubles as the identity resolver that maps an
	// authenticated account to its patient or doctor record.
	account.NewHandler(accountSvc).RegisterRoutes(api, authed)
	patient.NewHandler(patientSvc, accountSvc).RegisterRoutes(authed)
	department.NewHandler(deptSvc).RegisterRoutes(authed)
	doctor.NewHandler(doctorSvc).RegisterRoutes(authed)
	scheduling.NewHandler(schedSvc, accountSvc).RegisterRoutes(authed)
	prescription.NewHandler(prescriptionSvc, accountSvc).RegisterRoutes(authed)
	lab.NewHandler(labSvc, accountSvc).RegisterRoutes(authed)
	support.NewHandler(supportSvc, accountSvc).RegisterRoutes(api, authed)
	websocket.NewHandler(hub).RegisterRoutes(authed.Group("/chat"))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				if dir == "" {
					dir = cfg.MigrationsDir
				}
				migrator := db.NewMigrator(pool, dir)
				count, err := migrator.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s)\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				if dir == "" {
					dir = cfg.MigrationsDir
				}
				migrator := db.NewMigrator(pool, dir)
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")

	cmd.AddCommand(upCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a default admin account and demo departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("admin-email")
			password, _ := cmd.Flags().GetString("admin-password")

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				issuer := auth.NewTokenIssuer(cfg.Secret(), time.Duration(cfg.TokenTTLMinutes)*time.Minute)
				patientSvc := patient.NewService(patient.NewRepoPG(pool))
				accountSvc := account.NewService(account.NewRepoPG(pool), patientSvc, issuer)

				admin, err := accountSvc.CreateStaff(ctx, account.CreateStaffRequest{
					Email:    email,
					Password: password,
					Role:     auth.RoleAdmin,
				})
				if err != nil {
					return fmt.Errorf("create admin account: %w", err)
				}
				fmt.Printf("Created admin account %s (%s)\n", admin.Email, admin.ID)

				deptSvc := department.NewService(department.NewRepoPG(pool))
				for _, name := range []string{"Cardiology", "Pediatrics", "Orthopedics", "General Medicine"} {
					d := &department.Department{Name: name}
					if err := deptSvc.Create(ctx, d); err != nil {
						return fmt.Errorf("create department %s: %w", name, err)
					}
					fmt.Printf("Created department %s (%s)\n", d.Name, d.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("admin-email", "admin@medhub.local", "admin account email")
	cmd.Flags().String("admin-password", "change-me-now", "admin account password")
	return cmd
}

func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}
