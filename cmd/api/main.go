package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/app"
	"github.com/Igor-hub-it/schedule-bot/internal/clock"
	"github.com/Igor-hub-it/schedule-bot/internal/config"
	"github.com/Igor-hub-it/schedule-bot/internal/membership"
	"github.com/Igor-hub-it/schedule-bot/internal/notify"
	"github.com/Igor-hub-it/schedule-bot/internal/storage/postgres"
	transporthttp "github.com/Igor-hub-it/schedule-bot/internal/transport/http"
	"github.com/Igor-hub-it/schedule-bot/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	loadEnvFile(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.AllowedGroupID != 0 && cfg.MembershipBaseURL == "" {
		logger.Printf("WARN: ALLOWED_GROUP_ID set without MEMBERSHIP_BASE_URL, all probes will fail closed")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var notifier notify.Notifier
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("connect to amqp: %v", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	} else {
		logger.Printf("WARN: AMQP_URL not set, notifications go to the log only")
		notifier = notify.NewLog(logger)
	}

	clk := clock.NewSystem()
	runtime := config.NewRuntime(cfg.AllowedGroupID)
	checker := membership.NewHTTPChecker(cfg.MembershipBaseURL, nil)

	userRepo := postgres.NewUserRepository(pool)
	slotRepo := postgres.NewSlotRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)

	eligibility := app.NewEligibilityService(userRepo, checker, runtime, clk, cfg.ProbeTimeout, logger)
	userSvc := app.NewUserService(userRepo, eligibility, clk)
	slotSvc := app.NewSlotService(slotRepo, clk, notifier, logger)
	bookingSvc := app.NewBookingService(bookingRepo, slotRepo, clk,
		app.WithMinLeadTime(cfg.MinLeadTime),
		app.WithCancelFloor(cfg.CancelFloor),
		app.WithNotifier(notifier, logger),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/register", transporthttp.HandleRegister(userSvc))
	mux.Handle("/me", transporthttp.HandleMe(userSvc))
	mux.Handle("/slots", transporthttp.HandleSlots(eligibility, bookingSvc))
	mux.Handle("/bookings", transporthttp.HandleBookings(eligibility, bookingSvc))
	mux.Handle("/bookings/", transporthttp.HandleCancelBooking(eligibility, bookingSvc))
	mux.Handle("/admin/slots", transporthttp.HandleAdminSlots(userSvc, slotSvc))
	mux.Handle("/admin/slots/", transporthttp.HandleAdminSlot(userSvc, slotSvc))
	mux.Handle("/admin/users", transporthttp.HandleAdminUsers(userSvc, userSvc))
	mux.Handle("/admin/users/", transporthttp.HandleAdminUser(userSvc, userSvc))
	mux.Handle("/admin/stats", transporthttp.HandleAdminStats(userSvc, userSvc))
	mux.Handle("/admin/bookings", transporthttp.HandleAdminBookings(userSvc, bookingSvc))
	mux.Handle("/admin/group", transporthttp.HandleAdminGroup(userSvc, runtime))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(logger, transporthttp.CORS(cfg.CORSOrigins, mux))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := app.NewReconciler(userRepo, eligibility, cfg.ReconcileInterval, logger)
	go reconciler.Run(stopCtx)

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

func loadEnvFile(logger *log.Logger) {
	path, err := findEnvFile()
	if err != nil {
		logger.Printf("WARN: failed to locate .env: %v", err)
		return
	}
	if path == "" {
		logger.Printf("WARN: .env not found in current or parent directories")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Printf("WARN: failed to open %s: %v", path, err)
		return
	}
	if err := parseEnvFile(logger, file); err != nil {
		logger.Printf("WARN: failed to load %s: %v", path, err)
	} else {
		logger.Printf("loaded env from %s", path)
	}
	_ = file.Close()
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(logger *log.Logger, file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		value = trimQuotes(value)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Printf("WARN: failed to set %s from env file", key)
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
