package runner

import "log/slog"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithPrompter makes the run interactive.
func WithPrompter(p Prompter) Option {
	return func(r *Runner) {
		r.prompter = p
	}
}

// WithRoster sets the roster posted by the roster step; the prompter is not asked for it.
func WithRoster(csv string) Option {
	return func(r *Runner) {
		r.roster = csv
	}
}

// WithRetries lets a non-interactive run re-fire a failed step n more times.
func WithRetries(n int) Option {
	return func(r *Runner) {
		r.retries = n
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}
