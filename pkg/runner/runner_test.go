package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/certwizard/internal/runtime"
	"github.com/aretw0/certwizard/internal/testutils"
	httpAdapter "github.com/aretw0/certwizard/pkg/adapters/http"
	"github.com/aretw0/certwizard/pkg/adapters/memory"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWizard fails each step as many times as listed in failures.
type stubWizard struct {
	steps    []domain.Step
	done     map[domain.StepName]bool
	failures map[domain.StepName]int
	calls    []domain.StepName
	inputs   map[domain.StepName]string
}

func newStubWizard() *stubWizard {
	return &stubWizard{
		steps:    domain.DefaultSteps(),
		done:     map[domain.StepName]bool{},
		failures: map[domain.StepName]int{},
		inputs:   map[domain.StepName]string{},
	}
}

func (w *stubWizard) Steps() []domain.Step { return w.steps }

func (w *stubWizard) Snapshot() domain.Snapshot {
	var snap domain.Snapshot
	for _, s := range w.steps {
		phase := domain.PhaseIdle
		if w.done[s.Name] {
			phase = domain.PhaseDone
		}
		snap.Steps = append(snap.Steps, domain.StepState{Name: s.Name, Phase: phase})
	}
	return snap
}

func (w *stubWizard) Run(ctx context.Context, name domain.StepName, input string) (domain.Outcome, error) {
	w.calls = append(w.calls, name)
	w.inputs[name] = input
	if w.failures[name] > 0 {
		w.failures[name]--
		err := &domain.StatusError{Code: 500, Status: "500 Internal Server Error"}
		return domain.Outcome{Step: name, Phase: domain.PhaseFailed, Err: err}, err
	}
	w.done[name] = true
	return domain.Outcome{Step: name, Phase: domain.PhaseDone}, nil
}

func TestRunner_Headless(t *testing.T) {
	w := newStubWizard()
	r := NewRunner(w, WithRoster("alice,alice@example.com\r\nbob,bob@example.com\r\n"))

	outcomes, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, outcomes, 5)
	assert.Equal(t, []domain.StepName{
		domain.StepPrepare, domain.StepTemplate, domain.StepRoster, domain.StepCertificate, domain.StepIssuer,
	}, w.calls)
	assert.Equal(t, "alice,alice@example.com\nbob,bob@example.com", w.inputs[domain.StepRoster])
	assert.Empty(t, w.inputs[domain.StepTemplate])
}

func TestRunner_SkipsCompletedSteps(t *testing.T) {
	w := newStubWizard()
	w.done[domain.StepPrepare] = true
	w.done[domain.StepTemplate] = true

	outcomes, err := NewRunner(w, WithRoster("a,b,c")).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, outcomes, 3)
	assert.Equal(t, domain.StepRoster, w.calls[0])
}

func TestRunner_HeadlessFailureStops(t *testing.T) {
	w := newStubWizard()
	w.failures[domain.StepCertificate] = 1

	outcomes, err := NewRunner(w, WithRoster("a,b,c")).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnexpectedStatus)
	assert.Len(t, outcomes, 4)
	assert.Equal(t, domain.PhaseFailed, outcomes[3].Phase)
	assert.NotContains(t, w.calls, domain.StepIssuer)
}

func TestRunner_HeadlessRetries(t *testing.T) {
	w := newStubWizard()
	w.failures[domain.StepTemplate] = 2

	_, err := NewRunner(w, WithRoster("a,b,c"), WithRetries(2)).Run(context.Background())
	require.NoError(t, err)

	count := 0
	for _, c := range w.calls {
		if c == domain.StepTemplate {
			count++
		}
	}
	assert.Equal(t, 3, count)
}

func TestRunner_EmptyRoster(t *testing.T) {
	w := newStubWizard()

	_, err := NewRunner(w).Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyRoster)
	assert.NotContains(t, w.calls, domain.StepRoster)
}

func TestRunner_Interactive(t *testing.T) {
	t.Run("Prompts for roster and confirms steps", func(t *testing.T) {
		w := newStubWizard()
		p := &ScriptedPrompter{
			Confirms: []bool{true, true, true, true},
			Rosters:  []string{"carol,carol@example.com"},
		}

		outcomes, err := NewRunner(w, WithPrompter(p)).Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, outcomes, 5)
		assert.Equal(t, "carol,carol@example.com", w.inputs[domain.StepRoster])
		assert.Empty(t, p.Confirms)
	})

	t.Run("Declining aborts", func(t *testing.T) {
		w := newStubWizard()
		p := &ScriptedPrompter{Confirms: []bool{true, false}}

		_, err := NewRunner(w, WithPrompter(p), WithRoster("a,b,c")).Run(context.Background())
		assert.ErrorIs(t, err, ErrAborted)
		assert.Equal(t, []domain.StepName{domain.StepPrepare, domain.StepTemplate}, w.calls)
	})

	t.Run("Retry after failure", func(t *testing.T) {
		w := newStubWizard()
		w.failures[domain.StepIssuer] = 1
		// template, roster, certificate, issuer, retry issuer
		p := &ScriptedPrompter{Confirms: []bool{true, true, true, true, true}}

		outcomes, err := NewRunner(w, WithPrompter(p), WithRoster("a,b,c")).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseDone, outcomes[len(outcomes)-1].Phase)
	})

	t.Run("Refusing retry returns the failure", func(t *testing.T) {
		w := newStubWizard()
		w.failures[domain.StepTemplate] = 1
		p := &ScriptedPrompter{Confirms: []bool{true, false}}

		_, err := NewRunner(w, WithPrompter(p), WithRoster("a,b,c")).Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrUnexpectedStatus)
	})
}

func TestRunner_CancelledContext(t *testing.T) {
	w := newStubWizard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(w, WithRoster("a,b,c")).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, w.calls)
}

func TestRunner_AgainstEndpoint(t *testing.T) {
	endpoint := testutils.NewEndpoint(t)
	view := memory.NewView()

	orch, err := runtime.New(endpoint.URL(), httpAdapter.NewClient(), runtime.WithView(view))
	require.NoError(t, err)

	outcomes, err := NewRunner(orch, WithRoster("a,b,c")).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	assert.Equal(t, "issued 3 certificates", view.Text("issuer-output"))
	assert.Equal(t, "https://live.blockcypher.com/btc-testnet/tx/deadbeef", view.Link("issuer-output"))

	reqs := endpoint.Requests()
	require.Len(t, reqs, 5)
	assert.Equal(t, "csv=a,b,c", reqs[2].Body)
}
