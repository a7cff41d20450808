package escalation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/observability"
)

// RunReport summarizes one batch evaluation pass.
type RunReport struct {
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
	Evaluated          int           `json:"evaluated"`
	Escalated          int           `json:"escalated"`
	Conflicts          int           `json:"conflicts"`
	UnassignedNotified int           `json:"unassigned_notified"`
	Failures           int           `json:"failures"`
}

// Runner drives the state machine over every actionable ticket. It is invoked
// on a fixed cadence by the host scheduler; repeated passes are idempotent
// because the engine's transition primitive is atomic.
type Runner struct {
	engine  *Engine
	store   TicketStore
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRunner constructs a runner.
func NewRunner(engine *Engine, store TicketStore, logger *zap.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		engine:  engine,
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run enumerates open and in-progress tickets and evaluates each one.
// Per-ticket failures are isolated and counted; only an enumeration failure
// is fatal for the pass and left for the host scheduler's retry envelope.
func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{StartedAt: r.now()}
	r.logger.Info("auto-escalation pass started", zap.Time("at", report.StartedAt))

	tickets, err := r.store.ListActionable(ctx)
	if err != nil {
		return report, fmt.Errorf("list actionable tickets: %w", err)
	}

	for _, ticket := range tickets {
		// EvaluateTicket re-fetches the latest persisted state, so a long
		// enumeration cannot make the engine act on stale tiers.
		eval, err := r.engine.EvaluateTicket(ctx, ticket.ID)
		if err != nil {
			report.Failures++
			r.logger.Warn("ticket evaluation failed; will retry next pass",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}

		report.Evaluated++
		if eval.UnassignedNotified {
			report.UnassignedNotified++
		}
		switch eval.Outcome {
		case OutcomeEscalated:
			report.Escalated++
		case OutcomeConflict:
			report.Conflicts++
		}
	}

	report.Duration = time.Since(report.StartedAt)
	r.metrics.RecordRunnerPass(report.Escalated, report.Conflicts, report.Failures)
	r.logger.Info("auto-escalation pass finished",
		zap.Int("evaluated", report.Evaluated),
		zap.Int("escalated", report.Escalated),
		zap.Int("conflicts", report.Conflicts),
		zap.Int("unassigned_notified", report.UnassignedNotified),
		zap.Int("failures", report.Failures),
		zap.Duration("duration", report.Duration))
	return report, nil
}
