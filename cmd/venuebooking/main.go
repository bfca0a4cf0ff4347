package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"venuebooking/config"
	"venuebooking/internal/adapters/auth"
	"venuebooking/internal/adapters/email"
	"venuebooking/internal/adapters/ical"
	"venuebooking/internal/adapters/metrics"
	"venuebooking/internal/adapters/notify"
	"venuebooking/internal/adapters/ratelimit"
	deliveryhttp "venuebooking/internal/delivery/http"
	"venuebooking/internal/delivery/http/controllers"
	"venuebooking/internal/domain"
	"venuebooking/internal/repository/postgres"
	"venuebooking/internal/services"

	_ "github.com/lib/pq"
	flag "github.com/spf13/pflag"
)

// @title Venue Booking API
// @version 1.0
// @description Booking requests, confirmation workflow and calendar for a single venue.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type flags struct {
	envFile    string
	settings   string
	issueToken string
	roles      []string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("venuebooking", flag.ContinueOnError)
	fs.StringVar(&f.envFile, "env-file", "", "Env file to load outside production (default .env)")
	fs.StringVar(&f.settings, "settings", "", "YAML admin settings file (overrides SETTINGS_FILE)")
	fs.StringVar(&f.issueToken, "issue-token", "", "Print a bearer token for this email and exit")
	fs.StringSliceVar(&f.roles, "roles", nil, "Roles for --issue-token, e.g. admin")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(f); err != nil {
		slog.Error("venuebooking exited", "err", err)
		os.Exit(1)
	}
}

func loadConfig(f flags) (*config.Config, error) {
	var envFiles []string
	if f.envFile != "" {
		envFiles = append(envFiles, f.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if f.settings != "" {
		cfg.SettingsFile = f.settings
	}
	if cfg.SettingsFile != "" {
		s, err := config.LoadSettingsFile(cfg.SettingsFile)
		if err != nil {
			return nil, err
		}
		cfg.ApplySettings(s)
	}
	return cfg, nil
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	tokens := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	if f.issueToken != "" {
		token, err := tokens.Issue(domain.Principal{Email: f.issueToken, Roles: f.roles})
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	requestRepo := postgres.NewEventRequestRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	blockRepo := postgres.NewTemporaryBlockRepository(db)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		MailerSend: email.MailerSendConfig{APIKey: cfg.Email.MailerSendAPIKey},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	sinks := []domain.NotificationSink{email.NewMailSink(mailer, logger)}
	if cfg.NATSURL != "" {
		natsSink, err := notify.NewNATSSink(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return err
		}
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
		logger.Info("publishing notifications to NATS", "subject", cfg.NATSSubject)
	}

	var limiter domain.SubmissionLimiter
	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(ctx, cfg.RedisURL, cfg.SubmissionLimit, cfg.SubmissionWindow)
		if err != nil {
			return err
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
	} else {
		logger.Warn("REDIS_URL not set, submission rate limit disabled")
	}

	recorder := metrics.NewRecorder()
	loc := cfg.Location()

	blocker := services.NewBlockerReconciler(blockRepo, requestRepo, loc, logger, cfg.StoreTimeout)
	lifecycle := services.NewRequestLifecycleService(
		requestRepo,
		eventRepo,
		blocker,
		notify.NewFanout(sinks...),
		email.NewTemplateRenderer(loc),
		domain.NotificationSettings{
			NotificationsEnabled: cfg.NotificationsEnabled,
			AdminRecipients:      cfg.AdminEmails,
		},
		limiter,
		recorder,
		loc,
		logger,
		cfg.StoreTimeout,
	)
	calendar := services.NewCalendarService(eventRepo, blockRepo, logger, cfg.StoreTimeout)

	if cfg.BlockerSweepCron != "" {
		sweeper, err := startSweep(cfg.BlockerSweepCron, blocker, recorder, logger)
		if err != nil {
			return err
		}
		defer func() { <-sweeper.Stop().Done() }()
	}

	router := deliveryhttp.NewRouter(deliveryhttp.RouterDeps{
		Logger:         logger,
		Verifier:       tokens,
		Requests:       controllers.NewRequestController(logger, lifecycle, loc),
		Calendar:       controllers.NewCalendarController(logger, calendar, ical.NewExporter(cfg.ICSCalendarName), loc),
		Admin:          controllers.NewAdminController(logger, blocker),
		Metrics:        recorder.Handler(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + strings.TrimPrefix(cfg.Port, ":"),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment, "admins", len(cfg.AdminEmails))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
