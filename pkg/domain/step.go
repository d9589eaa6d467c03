package domain

import "fmt"

// StepName identifies one stage of the wizard.
type StepName string

const (
	StepPrepare     StepName = "prepare"
	StepTemplate    StepName = "template"
	StepRoster      StepName = "roster"
	StepCertificate StepName = "certificate"
	StepIssuer      StepName = "issuer"
)

// Method is the HTTP verb a step uses.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// ResponseKind selects how a successful body is presented.
type ResponseKind string

const (
	// ResponseIgnored means the body is never read (warm-up ping).
	ResponseIgnored ResponseKind = "ignored"
	// ResponseText renders the body verbatim.
	ResponseText ResponseKind = "text"
	// ResponseReceipt parses the body as an IssuerReceipt.
	ResponseReceipt ResponseKind = "receipt"
)

// Step describes one stage of the wizard and the UI elements bound to it.
type Step struct {
	Name StepName `json:"name" yaml:"name"`

	// Selector is the query key appended to the endpoint ("endpoint?selector").
	Selector string `json:"selector" yaml:"selector"`
	Method   Method `json:"method" yaml:"method"`

	// Field is the form field carrying the caller input for POST steps.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`

	Trigger string `json:"trigger" yaml:"trigger"`
	Display string `json:"display" yaml:"display"`
	Panel   string `json:"panel" yaml:"panel"`

	// Next is the step whose trigger is enabled after this one succeeds.
	Next StepName `json:"next,omitempty" yaml:"next,omitempty"`

	Placeholder string       `json:"placeholder" yaml:"placeholder"`
	Response    ResponseKind `json:"response" yaml:"response"`

	// Terminal steps keep their trigger disabled after success.
	Terminal bool `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// Validate checks the step is usable by the orchestrator.
func (s Step) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("step has no name")
	}
	if s.Selector == "" {
		return fmt.Errorf("step %q has no selector", s.Name)
	}
	if s.Trigger == "" {
		return fmt.Errorf("step %q has no trigger control", s.Name)
	}
	switch s.Method {
	case MethodGet:
	case MethodPost:
		if s.Field == "" {
			return fmt.Errorf("step %q posts without a form field", s.Name)
		}
	default:
		return fmt.Errorf("step %q has unsupported method %q", s.Name, s.Method)
	}
	switch s.Response {
	case ResponseIgnored, ResponseText, ResponseReceipt:
	default:
		return fmt.Errorf("step %q has unsupported response kind %q", s.Name, s.Response)
	}
	if s.Terminal && s.Next != "" {
		return fmt.Errorf("terminal step %q cannot unlock %q", s.Name, s.Next)
	}
	return nil
}

// DefaultSteps returns the five-stage certificate issuing wizard in order.
func DefaultSteps() []Step {
	return []Step{
		{
			Name:        StepPrepare,
			Selector:    "prepare",
			Method:      MethodGet,
			Trigger:     ControlLoad,
			Display:     "prepare-output",
			Panel:       "intro-panel",
			Next:        StepTemplate,
			Placeholder: PlaceholderDefault,
			Response:    ResponseIgnored,
		},
		{
			Name:        StepTemplate,
			Selector:    "template",
			Method:      MethodGet,
			Trigger:     "template-button",
			Display:     "template-output",
			Panel:       "template-panel",
			Next:        StepRoster,
			Placeholder: PlaceholderDefault,
			Response:    ResponseText,
		},
		{
			Name:        StepRoster,
			Selector:    "roster",
			Method:      MethodPost,
			Field:       FieldCSV,
			Trigger:     "roster-button",
			Display:     "roster-output",
			Panel:       "roster-panel",
			Next:        StepCertificate,
			Placeholder: PlaceholderSlow,
			Response:    ResponseText,
		},
		{
			Name:        StepCertificate,
			Selector:    "certificate",
			Method:      MethodGet,
			Trigger:     "certificate-button",
			Display:     "certificate-output",
			Panel:       "certificate-panel",
			Next:        StepIssuer,
			Placeholder: PlaceholderSlow,
			Response:    ResponseText,
		},
		{
			Name:        StepIssuer,
			Selector:    "issuer",
			Method:      MethodGet,
			Trigger:     "issuer-button",
			Display:     "issuer-output",
			Panel:       "issuer-panel",
			Placeholder: PlaceholderDefault,
			Response:    ResponseReceipt,
			Terminal:    true,
		},
	}
}
