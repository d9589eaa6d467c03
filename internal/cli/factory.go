package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/certwizard"
	"github.com/aretw0/certwizard/internal/config"
	"github.com/aretw0/certwizard/internal/logging"
	"github.com/aretw0/certwizard/pkg/adapters/memory"
	"github.com/aretw0/certwizard/pkg/adapters/redis"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/ports"
)

// WizardOptions carries the collaborators a command plugs into the wizard.
type WizardOptions struct {
	Views  []ports.View
	Hooks  []domain.LifecycleHooks
	Logger *slog.Logger
	Debug  bool
}

// NewWizard builds a wizard from the configuration with standard CLI conventions.
// The in-flight guard is redis when an address is configured and in-memory otherwise.
// The returned cleanup closes the redis guard when one is configured.
func NewWizard(ctx context.Context, cfg config.Config, opts WizardOptions) (*certwizard.Wizard, func(), error) {
	cleanup := func() {}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	wizardOpts := []certwizard.Option{
		certwizard.WithLogger(opts.Logger),
		certwizard.WithTimeout(cfg.Timeout),
		certwizard.WithExplorerURL(cfg.ExplorerURL),
	}
	if len(cfg.Steps) > 0 {
		wizardOpts = append(wizardOpts, certwizard.WithSteps(cfg.Steps))
	}
	for _, v := range opts.Views {
		wizardOpts = append(wizardOpts, certwizard.WithView(v))
	}
	for _, h := range opts.Hooks {
		wizardOpts = append(wizardOpts, certwizard.WithLifecycleHooks(h))
	}
	if opts.Debug {
		wizardOpts = append(wizardOpts, certwizard.WithLifecycleHooks(createDebugHooks(opts.Logger)))
	}

	if cfg.Redis.Addr != "" {
		guard := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := guard.Ping(pingCtx); err != nil {
			_ = guard.Close()
			return nil, cleanup, fmt.Errorf("redis guard unavailable at %s: %w", cfg.Redis.Addr, err)
		}
		opts.Logger.Debug("Using redis in-flight guard", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)

		wizardOpts = append(wizardOpts, certwizard.WithGuard(guard, cfg.LockTTL))
		cleanup = func() { _ = guard.Close() }
	} else {
		opts.Logger.Debug("Using in-memory in-flight guard")
		wizardOpts = append(wizardOpts, certwizard.WithGuard(memory.NewGuard(), cfg.LockTTL))
	}

	w, err := certwizard.New(cfg.Endpoint, wizardOpts...)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("error initializing wizard: %w", err)
	}
	return w, cleanup, nil
}
