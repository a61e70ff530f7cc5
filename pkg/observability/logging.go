package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/roboflow/pkg/domain"
)

// LoggingHooks logs state transitions and run outcomes.
// Transitions log at info level as "next state"; actions and guards log at debug.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.InfoContext(ctx, "next state",
				"run_id", e.RunID,
				"state_id", e.StateID,
				"name", e.StateName,
			)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action call",
				"run_id", e.RunID,
				"state_id", e.StateID,
				"action", e.Action,
				"input", e.Input,
			)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			if e.IsError {
				logger.WarnContext(ctx, "action failed",
					"run_id", e.RunID,
					"action", e.Action,
					"err", e.Error,
				)
			}
		},
		OnGuard: func(ctx context.Context, e *domain.GuardEvent) {
			logger.DebugContext(ctx, "guard",
				"run_id", e.RunID,
				"from", e.From,
				"candidate", e.Candidate,
				"passed", e.Passed,
			)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			r := e.Report
			attrs := []any{"run_id", r.RunID, "scenario", r.Scenario, "steps", r.Steps, "duration", r.Duration()}
			switch r.Outcome {
			case domain.OutcomeSuccess:
				logger.InfoContext(ctx, "success", attrs...)
			case domain.OutcomeFailed:
				logger.InfoContext(ctx, "failed", attrs...)
			default:
				logger.ErrorContext(ctx, "aborted", append(attrs, "kind", r.ErrorKind, "err", r.Error)...)
			}
		},
	}
}
