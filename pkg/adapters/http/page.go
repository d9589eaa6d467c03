package http

import (
	"html/template"
	"io"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/microcosm-cc/bluemonday"
)

// Page renders the wizard form from a snapshot.
// Step text is escaped and shown verbatim. Only receipt lines are treated as
// markup, and those pass through a sanitizing policy first.
type Page struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
	title  string
}

type pageStep struct {
	domain.Step
	State   domain.StepState
	Output  template.HTML
	Pending bool
	Visible bool
}

type pageData struct {
	Title   string
	Steps   []pageStep
	Pending bool
}

// NewPage creates the page renderer.
func NewPage(title string) *Page {
	return &Page{
		tmpl:   template.Must(template.New("page").Parse(pageHTML)),
		policy: bluemonday.UGCPolicy(),
		title:  title,
	}
}

// Sanitize strips anything unsafe from endpoint-provided markup.
func (p *Page) Sanitize(text string) string {
	return p.policy.Sanitize(text)
}

// Render writes the page for the given steps and snapshot.
func (p *Page) Render(w io.Writer, steps []domain.Step, snap domain.Snapshot) error {
	data := pageData{Title: p.title}
	for _, s := range steps {
		st, _ := snap.Step(s.Name)
		ps := pageStep{
			Step:    s,
			State:   st,
			Output:  p.output(s, st),
			Pending: st.Phase == domain.PhasePending,
			Visible: st.Revealed,
		}
		if ps.Pending {
			data.Pending = true
		}
		data.Steps = append(data.Steps, ps)
	}
	return p.tmpl.Execute(w, data)
}

func (p *Page) output(s domain.Step, st domain.StepState) template.HTML {
	if s.Response == domain.ResponseReceipt && st.Phase == domain.PhaseDone {
		return template.HTML(p.Sanitize(st.Text))
	}
	return template.HTML(template.HTMLEscapeString(st.Text))
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
{{if .Pending}}<meta http-equiv="refresh" content="2" />{{end}}
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.output { white-space: pre-wrap; border: 1px solid #ccc; padding: .5rem; min-height: 1.5rem; }
.hidden { display: none; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Steps}}
<h2>{{.Name}}</h2>
<div id="{{.Display}}" class="output">{{.Output}}</div>
<section id="{{.Panel}}"{{if not .Visible}} class="hidden"{{end}}>
{{if .State.Link}}<p><a href="{{.State.Link}}" target="_blank" rel="noopener">Verify transaction</a></p>{{end}}
</section>
{{if ne .Trigger "load"}}
<form method="post" action="/steps/{{.Name}}">
{{if .Field}}<textarea name="{{.Field}}" rows="6" cols="60"></textarea><br />{{end}}
<button id="{{.Trigger}}" type="submit"{{if not .State.Enabled}} disabled{{end}}>{{.Name}}</button>
</form>
{{end}}
{{end}}
</body>
</html>
`
