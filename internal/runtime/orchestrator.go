package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/certwizard/internal/logging"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/ports"
)

// DefaultGuardTTL bounds how long an in-flight guard survives a crashed holder.
const DefaultGuardTTL = 5 * time.Minute

// Orchestrator drives the wizard steps against the endpoint.
// Each step follows idle -> pending -> done, or pending -> failed on error.
type Orchestrator struct {
	endpoint  string
	explorer  string
	timeout   time.Duration
	guardTTL  time.Duration
	transport ports.Transport
	view      ports.View
	guard     ports.Guard
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time

	steps []domain.Step
	index map[domain.StepName]int

	mu     sync.Mutex
	states map[domain.StepName]*domain.StepState

	// View mutations are queued under mu and applied in that order,
	// so the view never runs behind a newer state change.
	vmu      sync.Mutex
	ops      []func(ports.View)
	draining bool
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithView sets the UI surface mutated by the steps.
func WithView(v ports.View) Option {
	return func(o *Orchestrator) {
		o.view = v
	}
}

// WithGuard enables the cross-process in-flight guard.
func WithGuard(g ports.Guard) Option {
	return func(o *Orchestrator) {
		o.guard = g
	}
}

// WithGuardTTL sets the lifetime of a guard claim.
func WithGuardTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.guardTTL = ttl
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = o.hooks.Merge(h)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithExplorerURL sets the block explorer template for the issuer link.
func WithExplorerURL(tmpl string) Option {
	return func(o *Orchestrator) {
		o.explorer = tmpl
	}
}

// WithSteps replaces the default step table.
func WithSteps(steps []domain.Step) Option {
	return func(o *Orchestrator) {
		o.steps = steps
	}
}

// New creates an orchestrator and puts the view in its initial state:
// only the first step's trigger is enabled.
func New(endpoint string, transport ports.Transport, opts ...Option) (*Orchestrator, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	o := &Orchestrator{
		endpoint:  endpoint,
		explorer:  domain.DefaultExplorerURL,
		guardTTL:  DefaultGuardTTL,
		transport: transport,
		logger:    logging.NewNop(),
		now:       time.Now,
		steps:     domain.DefaultSteps(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.view == nil {
		o.view = ports.MultiView{}
	}
	if err := o.compile(); err != nil {
		return nil, err
	}
	for i, s := range o.steps {
		o.view.SetEnabled(s.Trigger, i == 0)
	}
	return o, nil
}

func (o *Orchestrator) compile() error {
	if len(o.steps) == 0 {
		return errors.New("no steps configured")
	}
	o.index = make(map[domain.StepName]int, len(o.steps))
	o.states = make(map[domain.StepName]*domain.StepState, len(o.steps))
	for i, s := range o.steps {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := o.index[s.Name]; dup {
			return fmt.Errorf("duplicate step %q", s.Name)
		}
		o.index[s.Name] = i
		o.states[s.Name] = &domain.StepState{
			Name:    s.Name,
			Phase:   domain.PhaseIdle,
			Enabled: i == 0,
		}
	}
	for _, s := range o.steps {
		if s.Next == "" {
			continue
		}
		if _, ok := o.index[s.Next]; !ok {
			return fmt.Errorf("step %q unlocks unknown step %q", s.Name, s.Next)
		}
	}
	return nil
}

// Steps returns the step table in wizard order.
func (o *Orchestrator) Steps() []domain.Step {
	out := make([]domain.Step, len(o.steps))
	copy(out, o.steps)
	return out
}

// Step looks up a step by name.
func (o *Orchestrator) Step(name domain.StepName) (domain.Step, error) {
	i, ok := o.index[name]
	if !ok {
		return domain.Step{}, fmt.Errorf("%w: %q", domain.ErrUnknownStep, name)
	}
	return o.steps[i], nil
}

// Snapshot returns the state of every step in wizard order.
func (o *Orchestrator) Snapshot() domain.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := domain.Snapshot{
		Steps: make([]domain.StepState, 0, len(o.steps)),
		Taken: o.now(),
	}
	for _, s := range o.steps {
		snap.Steps = append(snap.Steps, *o.states[s.Name])
	}
	return snap
}

// Start fires a step and returns as soon as its request is under way.
// The trigger is disabled before any network activity; a disabled trigger
// yields domain.ErrTriggerDisabled and no request.
func (o *Orchestrator) Start(ctx context.Context, name domain.StepName, input string) (*Call, error) {
	step, err := o.Step(name)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	st := o.states[name]
	if !st.Enabled {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrTriggerDisabled, name)
	}
	st.Enabled = false
	st.Phase = domain.PhasePending
	st.Text = step.Placeholder
	st.Link = ""
	o.enqueue(func(v ports.View) { v.SetEnabled(step.Trigger, false) })
	o.mu.Unlock()
	o.flush()

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if o.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, o.timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	call := &Call{
		step:   name,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	release := ports.ReleaseFunc(func(context.Context) error { return nil })
	if o.guard != nil {
		r, err := o.guard.Acquire(reqCtx, guardKey(o.endpoint, name), o.guardTTL)
		if err != nil {
			go o.finish(reqCtx, call, step, o.now(), false, domain.Response{}, fmt.Errorf("guard %s: %w", name, err), release)
			return call, nil
		}
		release = r
	}

	o.mu.Lock()
	o.enqueue(func(v ports.View) { v.SetText(step.Display, step.Placeholder) })
	o.mu.Unlock()
	o.flush()

	started := o.now()
	o.emit(reqCtx, o.hooks.OnStepStart, &domain.StepEvent{
		Timestamp: started,
		Type:      domain.EventStepStart,
		Step:      name,
		Method:    step.Method,
	})
	o.logger.Debug("Step started", "step", name, "method", step.Method)

	req := domain.BuildRequest(o.endpoint, step, input)
	go func() {
		resp, err := o.transport.Do(reqCtx, req)
		o.finish(reqCtx, call, step, started, true, resp, err, release)
	}()
	return call, nil
}

// guardKey scopes a step to its endpoint so wizards on different endpoints never contend.
func guardKey(endpoint string, name domain.StepName) string {
	return endpoint + "#" + string(name)
}

// Run fires a step and waits for its single completion.
func (o *Orchestrator) Run(ctx context.Context, name domain.StepName, input string) (domain.Outcome, error) {
	call, err := o.Start(ctx, name, input)
	if err != nil {
		return domain.Outcome{Step: name, Err: err}, err
	}
	<-call.Done()
	out := call.Outcome()
	return out, out.Err
}

// Sequence runs every step in wizard order, stopping at the first failure.
// input is handed to the steps that post a form field.
func (o *Orchestrator) Sequence(ctx context.Context, input string) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, 0, len(o.steps))
	for _, s := range o.steps {
		var in string
		if s.Method == domain.MethodPost {
			in = input
		}
		out, err := o.Run(ctx, s.Name, in)
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

func (o *Orchestrator) finish(ctx context.Context, call *Call, step domain.Step, started time.Time, issued bool, resp domain.Response, err error, release ports.ReleaseFunc) {
	defer call.cancel()

	if err == nil && resp.StatusCode != http.StatusOK {
		err = &domain.StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var text, link string
	if err == nil {
		text, link, err = o.present(step, resp.Body)
	}

	// Release on a fresh context: reqCtx may already be done.
	if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
		o.logger.Warn("Failed to release in-flight guard (will expire via TTL)", "step", step.Name, "err", rerr)
	}

	out := domain.Outcome{
		Step:     step.Name,
		Status:   resp.StatusCode,
		Duration: o.now().Sub(started),
	}
	event := &domain.StepEvent{
		Timestamp: o.now(),
		Step:      step.Name,
		Method:    step.Method,
		Status:    resp.StatusCode,
		Duration:  out.Duration,
		Issued:    issued,
	}

	if err != nil {
		out.Phase = domain.PhaseFailed
		out.Text = "Error: " + err.Error()
		out.Err = err
		o.fail(step, out.Text)

		event.Type = domain.EventStepFailed
		event.Err = err
		o.emit(ctx, o.hooks.OnStepFailed, event)
		o.logger.Warn("Step failed", "step", step.Name, "status", resp.StatusCode, "err", err)
	} else {
		out.Phase = domain.PhaseDone
		out.Text = text
		out.Link = link
		o.complete(step, text, link)

		event.Type = domain.EventStepDone
		o.emit(ctx, o.hooks.OnStepDone, event)
		o.logger.Info("Step done", "step", step.Name, "status", resp.StatusCode, "duration", out.Duration)
	}

	call.outcome = out
	close(call.done)
}

// present turns a successful body into display text and an optional link.
func (o *Orchestrator) present(step domain.Step, body []byte) (string, string, error) {
	switch step.Response {
	case domain.ResponseIgnored:
		return "", "", nil
	case domain.ResponseReceipt:
		r, err := domain.ParseIssuerReceipt(body)
		if err != nil {
			return "", "", err
		}
		return r.Lines, domain.ExplorerLink(o.explorer, r.Tx), nil
	default:
		return string(body), "", nil
	}
}

func (o *Orchestrator) complete(step domain.Step, text, link string) {
	var next *domain.Step
	o.mu.Lock()
	st := o.states[step.Name]
	st.Phase = domain.PhaseDone
	st.Enabled = !step.Terminal
	st.Revealed = true
	st.Text = text
	st.Link = link
	if step.Next != "" {
		n := o.steps[o.index[step.Next]]
		next = &n
		o.states[n.Name].Enabled = true
	}
	o.enqueue(func(v ports.View) {
		if !step.Terminal {
			v.SetEnabled(step.Trigger, true)
		}
		v.SetText(step.Display, text)
		if link != "" {
			v.SetLink(step.Display, link)
		}
		v.Reveal(step.Panel)
	})
	if next != nil {
		o.enqueue(func(v ports.View) { v.SetEnabled(next.Trigger, true) })
	}
	o.mu.Unlock()
	o.flush()
}

func (o *Orchestrator) fail(step domain.Step, msg string) {
	o.mu.Lock()
	st := o.states[step.Name]
	st.Phase = domain.PhaseFailed
	st.Enabled = true
	st.Text = msg
	o.enqueue(func(v ports.View) {
		v.SetEnabled(step.Trigger, true)
		v.SetText(step.Display, msg)
	})
	o.mu.Unlock()
	o.flush()
}

// enqueue must be called with mu held.
func (o *Orchestrator) enqueue(op func(ports.View)) {
	o.vmu.Lock()
	o.ops = append(o.ops, op)
	o.vmu.Unlock()
}

// flush applies queued view mutations. A view that fires another step from
// inside a mutation only queues more work: the outer flush applies it next.
func (o *Orchestrator) flush() {
	o.vmu.Lock()
	if o.draining {
		o.vmu.Unlock()
		return
	}
	o.draining = true
	for len(o.ops) > 0 {
		op := o.ops[0]
		o.ops = o.ops[1:]
		o.vmu.Unlock()
		op(o.view)
		o.vmu.Lock()
	}
	o.draining = false
	o.vmu.Unlock()
}

func (o *Orchestrator) emit(ctx context.Context, fn func(context.Context, *domain.StepEvent), e *domain.StepEvent) {
	if fn != nil {
		fn(ctx, e)
	}
}
