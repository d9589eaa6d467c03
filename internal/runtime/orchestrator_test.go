package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/certwizard/pkg/adapters/memory"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "http://wizard.test/issue.php"

// fakeEndpoint answers by selector and records every request.
type fakeEndpoint struct {
	mu       sync.Mutex
	requests []domain.Request
	bodies   map[string]string
	status   map[string]int
	gate     chan struct{} // when set, requests block until it is closed
	onDo     func(domain.Request)
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		bodies: map[string]string{
			"prepare":     "ready",
			"template":    "template body",
			"roster":      "roster accepted",
			"certificate": "certificate body",
			"issuer":      `{"lines":"abc","tx":"deadbeef"}`,
		},
		status: map[string]int{},
	}
}

func (f *fakeEndpoint) Do(ctx context.Context, req domain.Request) (domain.Response, error) {
	if f.onDo != nil {
		f.onDo(req)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Response{}, ctx.Err()
		}
	}

	sel := req.URL[strings.LastIndex(req.URL, "?")+1:]
	code := f.status[sel]
	if code == 0 {
		code = 200
	}
	return domain.Response{StatusCode: code, Status: "", Body: []byte(f.bodies[sel])}, nil
}

func (f *fakeEndpoint) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeEndpoint) last() domain.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestOrchestrator(t *testing.T, ep *fakeEndpoint, opts ...Option) (*Orchestrator, *memory.View) {
	t.Helper()
	view := memory.NewView()
	opts = append([]Option{WithView(view)}, opts...)
	o, err := New(testEndpoint, ep, opts...)
	require.NoError(t, err)
	return o, view
}

// advanceTo runs every step before target.
func advanceTo(t *testing.T, o *Orchestrator, target domain.StepName) {
	t.Helper()
	for _, s := range o.Steps() {
		if s.Name == target {
			return
		}
		_, err := o.Run(context.Background(), s.Name, "a,b,c")
		require.NoError(t, err, "advancing through %s", s.Name)
	}
}

func TestNew_InitialState(t *testing.T) {
	o, view := newTestOrchestrator(t, newFakeEndpoint())

	assert.True(t, view.Enabled(domain.ControlLoad))
	for _, s := range o.Steps()[1:] {
		assert.False(t, view.Enabled(s.Trigger), s.Trigger)
	}

	snap := o.Snapshot()
	require.Len(t, snap.Steps, 5)
	for _, st := range snap.Steps {
		assert.Equal(t, domain.PhaseIdle, st.Phase)
		assert.False(t, st.Revealed)
	}
}

func TestNew_RejectsBrokenTables(t *testing.T) {
	ep := newFakeEndpoint()

	_, err := New(testEndpoint, nil)
	assert.Error(t, err)

	_, err = New(testEndpoint, ep, WithSteps(nil))
	assert.Error(t, err)

	steps := domain.DefaultSteps()
	steps[1].Next = "nowhere"
	_, err = New(testEndpoint, ep, WithSteps(steps))
	assert.ErrorContains(t, err, "unknown step")

	steps = domain.DefaultSteps()
	steps = append(steps, steps[0])
	_, err = New(testEndpoint, ep, WithSteps(steps))
	assert.ErrorContains(t, err, "duplicate")
}

func TestRun_DisablesTriggerBeforeNetwork(t *testing.T) {
	ep := newFakeEndpoint()
	var view *memory.View
	disabledAtRequest := map[domain.StepName]bool{}
	var o *Orchestrator
	ep.onDo = func(req domain.Request) {
		s, _ := o.Step(req.Step)
		disabledAtRequest[req.Step] = !view.Enabled(s.Trigger)
	}
	o, view = newTestOrchestrator(t, ep)

	_, err := o.Sequence(context.Background(), "a,b,c")
	require.NoError(t, err)

	require.Len(t, disabledAtRequest, 5)
	for name, disabled := range disabledAtRequest {
		assert.True(t, disabled, "trigger of %s must be disabled before the request", name)
	}
}

func TestRun_PlaceholderWhilePending(t *testing.T) {
	ep := newFakeEndpoint()
	ep.gate = make(chan struct{})
	o, view := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepPrepare)

	call, err := o.Start(context.Background(), domain.StepPrepare, "")
	require.NoError(t, err)

	assert.Equal(t, domain.PlaceholderDefault, view.Text("prepare-output"))
	st, _ := o.Snapshot().Step(domain.StepPrepare)
	assert.Equal(t, domain.PhasePending, st.Phase)
	assert.Equal(t, domain.PhasePending, call.Outcome().Phase)

	close(ep.gate)
	<-call.Done()
	assert.Equal(t, domain.PhaseDone, call.Outcome().Phase)
}

func TestRun_SuccessWritesOnceAndRevealsOnce(t *testing.T) {
	for _, step := range domain.DefaultSteps() {
		t.Run(string(step.Name), func(t *testing.T) {
			ep := newFakeEndpoint()
			o, view := newTestOrchestrator(t, ep)
			advanceTo(t, o, step.Name)

			ep.gate = make(chan struct{})
			call, err := o.Start(context.Background(), step.Name, "a,b,c")
			require.NoError(t, err)
			view.Reset()
			close(ep.gate)
			<-call.Done()
			require.NoError(t, call.Outcome().Err)

			assert.Equal(t, 1, view.Count(memory.MutationText, step.Display))
			assert.Equal(t, 1, view.Count(memory.MutationReveal, step.Panel))
			assert.True(t, view.Revealed(step.Panel))
		})
	}
}

func TestRun_TextStepsRenderVerbatim(t *testing.T) {
	ep := newFakeEndpoint()
	ep.bodies["template"] = "<b>raw</b>\n  body "
	o, view := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepTemplate)

	out, err := o.Run(context.Background(), domain.StepTemplate, "")
	require.NoError(t, err)
	assert.Equal(t, "<b>raw</b>\n  body ", out.Text)
	assert.Equal(t, "<b>raw</b>\n  body ", view.Text("template-output"))
	assert.True(t, view.Enabled("template-button"), "non-terminal trigger is re-enabled")
	assert.True(t, view.Enabled("roster-button"), "successor is unlocked")
}

func TestRun_PrepareIgnoresBody(t *testing.T) {
	ep := newFakeEndpoint()
	ep.bodies["prepare"] = "this is never shown"
	o, view := newTestOrchestrator(t, ep)

	out, err := o.Run(context.Background(), domain.StepPrepare, "")
	require.NoError(t, err)
	assert.Empty(t, out.Text)
	assert.Empty(t, view.Text("prepare-output"))
	assert.True(t, view.Revealed("intro-panel"))
	assert.True(t, view.Enabled("template-button"))
}

func TestRun_IssuerReceiptAndLink(t *testing.T) {
	ep := newFakeEndpoint()
	o, view := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepIssuer)

	out, err := o.Run(context.Background(), domain.StepIssuer, "")
	require.NoError(t, err)

	assert.Equal(t, "abc", view.Text("issuer-output"))
	assert.True(t, strings.HasSuffix(view.Link("issuer-output"), "/btc-testnet/tx/deadbeef"))
	assert.Equal(t, out.Link, view.Link("issuer-output"))
}

func TestRun_IssuerIsTerminal(t *testing.T) {
	ep := newFakeEndpoint()
	o, view := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepIssuer)

	_, err := o.Run(context.Background(), domain.StepIssuer, "")
	require.NoError(t, err)

	assert.False(t, view.Enabled("issuer-button"))
	assert.Equal(t, 1, view.Count(memory.MutationEnable, "issuer-button"), "only the unlock by certificate enables it")

	_, err = o.Run(context.Background(), domain.StepIssuer, "")
	assert.ErrorIs(t, err, domain.ErrTriggerDisabled)
}

func TestRun_RosterPostsFormBody(t *testing.T) {
	ep := newFakeEndpoint()
	o, _ := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepRoster)

	_, err := o.Run(context.Background(), domain.StepRoster, "a,b,c")
	require.NoError(t, err)

	req := ep.last()
	assert.Equal(t, domain.MethodPost, req.Method)
	assert.Equal(t, "csv=a,b,c", req.Body)
	assert.Equal(t, domain.ContentTypeForm, req.ContentType)
	assert.Equal(t, testEndpoint+"?roster", req.URL)
}

func TestRun_GetStepsUseSelector(t *testing.T) {
	ep := newFakeEndpoint()
	o, _ := newTestOrchestrator(t, ep)

	_, err := o.Sequence(context.Background(), "x")
	require.NoError(t, err)

	want := []string{"prepare", "template", "roster", "certificate", "issuer"}
	require.Equal(t, len(want), ep.count())
	for i, sel := range want {
		assert.Equal(t, testEndpoint+"?"+sel, ep.requests[i].URL)
		if sel != "roster" {
			assert.Equal(t, domain.MethodGet, ep.requests[i].Method)
			assert.Empty(t, ep.requests[i].Body)
		}
	}
}

func TestRun_SingleInFlight(t *testing.T) {
	ep := newFakeEndpoint()
	o, _ := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepTemplate)
	before := ep.count()

	ep.gate = make(chan struct{})
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		rejected atomic.Int32
		calls    = make(chan *Call, 50)
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			call, err := o.Start(context.Background(), domain.StepTemplate, "")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrTriggerDisabled)
				rejected.Add(1)
				return
			}
			accepted.Add(1)
			calls <- call
		}()
	}
	wg.Wait()
	close(ep.gate)
	close(calls)
	for c := range calls {
		<-c.Done()
	}

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(49), rejected.Load())
	assert.Equal(t, before+1, ep.count())
}

func TestRun_OutOfOrderIsRejected(t *testing.T) {
	ep := newFakeEndpoint()
	o, _ := newTestOrchestrator(t, ep)

	_, err := o.Run(context.Background(), domain.StepCertificate, "")
	assert.ErrorIs(t, err, domain.ErrTriggerDisabled)
	assert.Zero(t, ep.count())

	_, err = o.Run(context.Background(), "bogus", "")
	assert.ErrorIs(t, err, domain.ErrUnknownStep)
}

func TestRun_NonOKStatusFails(t *testing.T) {
	ep := newFakeEndpoint()
	ep.status["template"] = 500
	o, view := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepTemplate)

	out, err := o.Run(context.Background(), domain.StepTemplate, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnexpectedStatus)

	var se *domain.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.Code)

	assert.Equal(t, domain.PhaseFailed, out.Phase)
	assert.True(t, strings.HasPrefix(view.Text("template-output"), "Error: "))
	assert.True(t, view.Enabled("template-button"), "failed step can be retried")
	assert.False(t, view.Revealed("template-panel"))
	assert.False(t, view.Enabled("roster-button"), "successor stays locked")

	ep.status["template"] = 200
	_, err = o.Run(context.Background(), domain.StepTemplate, "")
	require.NoError(t, err)
	assert.True(t, view.Revealed("template-panel"))
}

func TestRun_MalformedReceiptFails(t *testing.T) {
	ep := newFakeEndpoint()
	ep.bodies["issuer"] = "not json"
	o, view := newTestOrchestrator(t, ep)
	advanceTo(t, o, domain.StepIssuer)

	_, err := o.Run(context.Background(), domain.StepIssuer, "")
	assert.ErrorIs(t, err, domain.ErrMalformedReceipt)
	assert.True(t, view.Enabled("issuer-button"), "issuer only stays disabled after success")
	assert.Empty(t, view.Link("issuer-output"))
}

func TestRun_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	o, err := New(testEndpoint, ports.TransportFunc(func(ctx context.Context, req domain.Request) (domain.Response, error) {
		return domain.Response{}, boom
	}))
	require.NoError(t, err)

	out, err := o.Run(context.Background(), domain.StepPrepare, "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Error: connection refused", out.Text)

	st, _ := o.Snapshot().Step(domain.StepPrepare)
	assert.Equal(t, domain.PhaseFailed, st.Phase)
	assert.True(t, st.Enabled)
}

func TestRun_Timeout(t *testing.T) {
	ep := newFakeEndpoint()
	ep.gate = make(chan struct{})
	defer close(ep.gate)
	o, view := newTestOrchestrator(t, ep, WithTimeout(20*time.Millisecond))

	_, err := o.Run(context.Background(), domain.StepPrepare, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, view.Enabled(domain.ControlLoad))
}

func TestCall_CancelAndWait(t *testing.T) {
	ep := newFakeEndpoint()
	ep.gate = make(chan struct{})
	defer close(ep.gate)
	o, _ := newTestOrchestrator(t, ep)

	call, err := o.Start(context.Background(), domain.StepPrepare, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPrepare, call.Step())

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	out, err := call.Wait(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.PhasePending, out.Phase, "abandoning does not cancel")

	call.Cancel()
	out, err = call.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.PhaseFailed, out.Phase)
}

func TestRun_GuardHeldElsewhere(t *testing.T) {
	ep := newFakeEndpoint()
	guard := memory.NewGuard()
	o, view := newTestOrchestrator(t, ep, WithGuard(guard))

	release, err := guard.Acquire(context.Background(), guardKey(testEndpoint, domain.StepPrepare), time.Minute)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), domain.StepPrepare, "")
	assert.ErrorIs(t, err, domain.ErrStepInFlight)
	assert.Zero(t, ep.count())
	assert.True(t, view.Enabled(domain.ControlLoad))

	require.NoError(t, release(context.Background()))
	_, err = o.Run(context.Background(), domain.StepPrepare, "")
	require.NoError(t, err)
	assert.False(t, guard.Held(guardKey(testEndpoint, domain.StepPrepare)), "guard is released after completion")
}

func TestRun_HooksFire(t *testing.T) {
	ep := newFakeEndpoint()
	ep.status["template"] = 404

	var mu sync.Mutex
	var events []domain.EventType
	record := func(_ context.Context, e *domain.StepEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
	}
	o, _ := newTestOrchestrator(t, ep, WithHooks(domain.LifecycleHooks{
		OnStepStart:  record,
		OnStepDone:   record,
		OnStepFailed: record,
	}))

	_, err := o.Sequence(context.Background(), "")
	require.Error(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventStepStart, domain.EventStepDone,
		domain.EventStepStart, domain.EventStepFailed,
	}, events)
}

func TestSequence_StopsAtFirstFailure(t *testing.T) {
	ep := newFakeEndpoint()
	ep.status["certificate"] = 502
	o, _ := newTestOrchestrator(t, ep)

	outs, err := o.Sequence(context.Background(), "a,b,c")
	require.Error(t, err)
	require.Len(t, outs, 4)
	assert.Equal(t, domain.PhaseFailed, outs[3].Phase)
	assert.Equal(t, 4, ep.count())
}

func TestRun_ViewFollowsStateWhenStepFiredFromView(t *testing.T) {
	tests := []struct {
		name    string
		run     domain.StepName
		fire    domain.StepName
		trigger string
		status  int
	}{
		{"Successor unlocked", domain.StepPrepare, domain.StepTemplate, "template-button", 0},
		{"Failed step re-enabled", domain.StepTemplate, domain.StepTemplate, "template-button", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := newFakeEndpoint()
			o, view := newTestOrchestrator(t, ep)
			advanceTo(t, o, tt.run)
			if tt.status != 0 {
				ep.status[string(tt.run)] = tt.status
			}

			gate := make(chan struct{})
			var fired *Call
			view.OnMutation(func(m memory.Mutation) {
				if fired != nil || m.Kind != memory.MutationEnable || m.Target != tt.trigger {
					return
				}
				ep.mu.Lock()
				ep.gate = gate
				delete(ep.status, string(tt.fire))
				ep.mu.Unlock()

				call, err := o.Start(context.Background(), tt.fire, "")
				require.NoError(t, err)
				fired = call
			})

			_, _ = o.Run(context.Background(), tt.run, "")
			require.NotNil(t, fired)

			st, ok := o.Snapshot().Step(tt.fire)
			require.True(t, ok)
			assert.Equal(t, domain.PhasePending, st.Phase)
			assert.False(t, st.Enabled)
			assert.False(t, view.Enabled(tt.trigger), "view must not show a pending step as enabled")
			assert.Equal(t, domain.PlaceholderDefault, view.Text("template-output"))

			close(gate)
			<-fired.Done()
			assert.True(t, view.Enabled(tt.trigger))
		})
	}
}
