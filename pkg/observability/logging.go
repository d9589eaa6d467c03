package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/certwizard/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per transition.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_start", "step", e.Step, "method", e.Method)
		},
		OnStepDone: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_done",
				"step", e.Step,
				"status", e.Status,
				"duration", e.Duration,
			)
		},
		OnStepFailed: func(ctx context.Context, e *domain.StepEvent) {
			logger.WarnContext(ctx, "step_failed",
				"step", e.Step,
				"status", e.Status,
				"error", e.Err,
			)
		},
	}
}
