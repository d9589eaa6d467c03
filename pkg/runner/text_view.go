package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/muesli/termenv"
)

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// TextView implements ports.View for a terminal.
// Display areas and panels are labelled with the step they belong to.
type TextView struct {
	mu       sync.Mutex
	out      *termenv.Output
	labels   map[string]domain.StepName
	renderer ContentRenderer
	verbose  bool
	receipts map[string]bool
}

// TextViewOption defines configuration for TextView.
type TextViewOption func(*TextView)

// WithTextViewRenderer renders issuer receipts through r (e.g. glamour).
func WithTextViewRenderer(r ContentRenderer) TextViewOption {
	return func(v *TextView) {
		v.renderer = r
	}
}

// WithVerbose also prints control enable/disable changes.
func WithVerbose(verbose bool) TextViewOption {
	return func(v *TextView) {
		v.verbose = verbose
	}
}

// WithColorProfile forces a termenv profile (termenv.Ascii disables colors).
func WithColorProfile(p termenv.Profile) TextViewOption {
	return func(v *TextView) {
		v.out = termenv.NewOutput(v.out.Writer(), termenv.WithProfile(p))
	}
}

// NewTextView creates a view writing to w.
func NewTextView(w io.Writer, steps []domain.Step, opts ...TextViewOption) *TextView {
	if w == nil {
		w = os.Stdout
	}
	v := &TextView{
		out:      termenv.NewOutput(w),
		labels:   make(map[string]domain.StepName),
		receipts: make(map[string]bool),
	}
	for _, s := range steps {
		v.labels[s.Trigger] = s.Name
		v.labels[s.Display] = s.Name
		v.labels[s.Panel] = s.Name
		if s.Response == domain.ResponseReceipt {
			v.receipts[s.Display] = true
		}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *TextView) label(target string) string {
	if name, ok := v.labels[target]; ok {
		return string(name)
	}
	return target
}

func (v *TextView) tag(target, color string) string {
	return v.out.String("[" + v.label(target) + "]").Foreground(v.out.Color(color)).Bold().String()
}

func (v *TextView) SetEnabled(control string, enabled bool) {
	if !v.verbose {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(v.out, "%s %s\n", v.tag(control, "#6b7280"), state)
}

func (v *TextView) SetText(area, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if text == "" {
		return
	}
	if strings.HasPrefix(text, "Error: ") {
		fmt.Fprintf(v.out, "%s %s\n", v.tag(area, "#ef4444"), text)
		return
	}
	if text == domain.PlaceholderDefault || text == domain.PlaceholderSlow {
		fmt.Fprintf(v.out, "%s %s\n", v.tag(area, "#a78bfa"), v.out.String(text).Faint())
		return
	}

	if v.receipts[area] && v.renderer != nil {
		if rendered, err := v.renderer(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintf(v.out, "%s\n%s\n", v.tag(area, "#22c55e"), strings.TrimRight(text, "\n"))
}

func (v *TextView) SetLink(area, url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	link := url
	if v.out.Profile != termenv.Ascii {
		link = v.out.Hyperlink(url, url)
	}
	fmt.Fprintf(v.out, "%s verify: %s\n", v.tag(area, "#38bdf8"), link)
}

func (v *TextView) Reveal(panel string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "%s %s\n", v.tag(panel, "#22c55e"), v.out.String("done").Bold())
}
