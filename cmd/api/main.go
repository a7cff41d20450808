package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/blueriver/escalation-service/internal/api/http"
	"github.com/blueriver/escalation-service/internal/api/http/handlers"
	"github.com/blueriver/escalation-service/internal/auth"
	"github.com/blueriver/escalation-service/internal/config"
	"github.com/blueriver/escalation-service/internal/domain"
	"github.com/blueriver/escalation-service/internal/escalation"
	"github.com/blueriver/escalation-service/internal/events"
	"github.com/blueriver/escalation-service/internal/mail"
	"github.com/blueriver/escalation-service/internal/observability"
	"github.com/blueriver/escalation-service/internal/persistence"
	"github.com/blueriver/escalation-service/internal/repository"
	"github.com/blueriver/escalation-service/internal/service"
	"github.com/blueriver/escalation-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewEscalationHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	classifier := escalation.NewClassifier()
	policy := escalation.NewPolicyTable()
	ladder := escalation.NewLadder(escalation.LadderConfig{
		PriorityDwell: map[domain.TicketPriority]time.Duration{
			domain.TicketPriorityLow:      cfg.Escalation.LowDwell,
			domain.TicketPriorityMedium:   cfg.Escalation.MediumDwell,
			domain.TicketPriorityHigh:     cfg.Escalation.HighDwell,
			domain.TicketPriorityCritical: cfg.Escalation.CriticalDwell,
		},
		ZoneDwell: map[domain.Zone]time.Duration{
			domain.ZoneA: cfg.Escalation.ZoneADwell,
			domain.ZoneB: cfg.Escalation.ZoneBDwell,
			domain.ZoneC: cfg.Escalation.ZoneCDwell,
		},
		CriticalStepDwell: cfg.Escalation.CriticalStepDwell,
	})

	engine := escalation.NewEngine(ticketRepo, historyRepo, ladder, dispatcher, logger, escalation.EngineConfig{
		UnassignedAfter: cfg.Escalation.UnassignedAfter,
	})
	runner := escalation.NewRunner(engine, ticketRepo, logger, metrics)

	mailer := mail.NewSMTPMailer(cfg.SMTP)
	notifications := service.NewNotificationService(dispatcher, redis, mailer, logger, cfg.Escalation, cfg.SMTP)
	worker.StartNotificationWorker(notifications)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Classifier:  classifier,
		Policy:      policy,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	escalationWorker, err := worker.NewEscalationWorker(runner, ticketRepo, logger, cfg.Escalation)
	if err != nil {
		logger.Fatal("failed to build escalation worker", zap.Error(err))
	}
	escalationWorker.Start()
	defer escalationWorker.Stop()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Escalations:    handlers.NewEscalationsHandler(engine, runner, ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
