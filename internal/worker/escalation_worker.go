package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/config"
	"github.com/blueriver/escalation-service/internal/escalation"
	"github.com/blueriver/escalation-service/internal/service"
)

// RunLocker guards the escalation pass against concurrent replicas.
type RunLocker interface {
	AcquireRunLock(ctx context.Context) (bool, error)
	ReleaseRunLock(ctx context.Context) error
}

// EscalationWorker drives the runner on a fixed cadence. A fatal pass
// failure is retried a bounded number of times with a fixed backoff;
// per-ticket failures are already isolated inside the runner.
type EscalationWorker struct {
	runner      *escalation.Runner
	locks       RunLocker
	logger      *zap.Logger
	cron        *cron.Cron
	maxAttempts int
	backoff     time.Duration
}

// NewEscalationWorker builds the worker and registers its schedule.
func NewEscalationWorker(runner *escalation.Runner, locks RunLocker, logger *zap.Logger, cfg config.EscalationConfig) (*EscalationWorker, error) {
	w := &EscalationWorker{
		runner:      runner,
		locks:       locks,
		logger:      logger,
		cron:        cron.New(),
		maxAttempts: cfg.RunnerMaxAttempts,
		backoff:     cfg.RunnerRetryBackoff,
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = 3
	}

	if _, err := w.cron.AddFunc(cfg.CronSpec, w.pass); err != nil {
		return nil, err
	}
	return w, nil
}

// Start begins the schedule.
func (w *EscalationWorker) Start() {
	w.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish.
func (w *EscalationWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

func (w *EscalationWorker) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if w.locks != nil {
		ok, err := w.locks.AcquireRunLock(ctx)
		if err != nil {
			w.logger.Error("escalation pass lock error", zap.Error(err))
			return
		}
		if !ok {
			w.logger.Info("escalation pass already running elsewhere")
			return
		}
		defer func() { _ = w.locks.ReleaseRunLock(context.Background()) }()
	}

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		_, err := w.runner.Run(ctx)
		if err == nil {
			return
		}
		w.logger.Error("escalation pass failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", w.maxAttempts),
			zap.Error(err))
		if attempt < w.maxAttempts {
			select {
			case <-time.After(w.backoff):
			case <-ctx.Done():
				return
			}
		}
	}
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
