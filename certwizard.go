package certwizard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/certwizard/internal/logging"
	"github.com/aretw0/certwizard/internal/runtime"
	httpAdapter "github.com/aretw0/certwizard/pkg/adapters/http"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/ports"
)

// Version is the release of the certwizard module.
var Version = "0.3.0"

// Wizard is the high-level entry point for the certwizard library.
// It wraps the internal orchestrator and exposes one method per step.
type Wizard struct {
	runtime   *runtime.Orchestrator
	endpoint  string
	transport ports.Transport
	views     ports.MultiView
	guard     ports.Guard
	guardTTL  time.Duration
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	timeout   time.Duration
	explorer  string
	steps     []domain.Step
}

// Call is the handle of an in-flight step.
type Call = runtime.Call

// Option defines a functional option for configuring the Wizard.
type Option func(*Wizard)

// WithView adds a UI surface; several views may be registered.
func WithView(v ports.View) Option {
	return func(w *Wizard) {
		w.views = append(w.views, v)
	}
}

// WithTransport injects a custom transport, bypassing the default HTTP client.
func WithTransport(t ports.Transport) Option {
	return func(w *Wizard) {
		w.transport = t
	}
}

// WithHTTPClient configures the default transport's client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Wizard) {
		w.transport = httpAdapter.NewClient(httpAdapter.WithHTTPClient(c))
	}
}

// WithGuard enables the cross-process in-flight guard.
func WithGuard(g ports.Guard, ttl time.Duration) Option {
	return func(w *Wizard) {
		w.guard = g
		w.guardTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Wizard) {
		w.hooks = w.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// WithTimeout bounds each step's request. Zero keeps the default of no timeout.
func WithTimeout(d time.Duration) Option {
	return func(w *Wizard) {
		w.timeout = d
	}
}

// WithExplorerURL sets the block explorer template used for the issuer link.
func WithExplorerURL(tmpl string) Option {
	return func(w *Wizard) {
		w.explorer = tmpl
	}
}

// WithSteps replaces the default five-step table.
func WithSteps(steps []domain.Step) Option {
	return func(w *Wizard) {
		w.steps = steps
	}
}

// New creates a Wizard driving the given endpoint.
func New(endpoint string, opts ...Option) (*Wizard, error) {
	w := &Wizard{endpoint: endpoint}
	for _, opt := range opts {
		opt(w)
	}

	if w.transport == nil {
		if err := httpAdapter.ValidateEndpoint(endpoint); err != nil {
			return nil, err
		}
		w.transport = httpAdapter.NewClient(httpAdapter.WithUserAgent("certwizard/" + Version))
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	w.logger = w.logger.With("endpoint", endpoint)

	runtimeOpts := []runtime.Option{
		runtime.WithView(w.views),
		runtime.WithHooks(w.hooks),
		runtime.WithLogger(w.logger),
		runtime.WithTimeout(w.timeout),
	}
	if w.guard != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithGuard(w.guard))
		if w.guardTTL > 0 {
			runtimeOpts = append(runtimeOpts, runtime.WithGuardTTL(w.guardTTL))
		}
	}
	if w.explorer != "" {
		runtimeOpts = append(runtimeOpts, runtime.WithExplorerURL(w.explorer))
	}
	if w.steps != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithSteps(w.steps))
	}

	rt, err := runtime.New(endpoint, w.transport, runtimeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wizard: %w", err)
	}
	w.runtime = rt
	return w, nil
}

// Endpoint returns the URL the wizard talks to.
func (w *Wizard) Endpoint() string {
	return w.endpoint
}

// Prepare sends the warm-up ping that opens the wizard.
func (w *Wizard) Prepare(ctx context.Context) (domain.Outcome, error) {
	return w.runtime.Run(ctx, domain.StepPrepare, "")
}

// Template fetches the certificate template.
func (w *Wizard) Template(ctx context.Context) (domain.Outcome, error) {
	return w.runtime.Run(ctx, domain.StepTemplate, "")
}

// Roster posts the recipient roster as CSV.
func (w *Wizard) Roster(ctx context.Context, csv string) (domain.Outcome, error) {
	return w.runtime.Run(ctx, domain.StepRoster, csv)
}

// Certificate builds the unsigned certificates.
func (w *Wizard) Certificate(ctx context.Context) (domain.Outcome, error) {
	return w.runtime.Run(ctx, domain.StepCertificate, "")
}

// Issuer issues the certificates; it can only succeed once.
func (w *Wizard) Issuer(ctx context.Context) (domain.Outcome, error) {
	return w.runtime.Run(ctx, domain.StepIssuer, "")
}

// Run fires any step by name and waits for it.
func (w *Wizard) Run(ctx context.Context, name domain.StepName, input string) (domain.Outcome, error) {
	return w.runtime.Run(ctx, name, input)
}

// Start fires a step by name and returns its in-flight handle.
func (w *Wizard) Start(ctx context.Context, name domain.StepName, input string) (*Call, error) {
	return w.runtime.Start(ctx, name, input)
}

// Sequence runs all steps in order with csv as the roster.
func (w *Wizard) Sequence(ctx context.Context, csv string) ([]domain.Outcome, error) {
	return w.runtime.Sequence(ctx, csv)
}

// Snapshot returns the state of every step.
func (w *Wizard) Snapshot() domain.Snapshot {
	return w.runtime.Snapshot()
}

// Steps returns the step table in wizard order.
func (w *Wizard) Steps() []domain.Step {
	return w.runtime.Steps()
}
