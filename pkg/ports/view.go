package ports

// View is the UI surface the orchestrator mutates.
// Implementations must be safe for concurrent use.
type View interface {
	// SetEnabled enables or disables a trigger control.
	SetEnabled(control string, enabled bool)

	// SetText replaces the content of a display area.
	SetText(area, text string)

	// SetLink points the verification link of a display area at url.
	SetLink(area, url string)

	// Reveal makes a hidden panel visible.
	Reveal(panel string)
}

// MultiView fans every mutation out to several views.
type MultiView []View

func (m MultiView) SetEnabled(control string, enabled bool) {
	for _, v := range m {
		v.SetEnabled(control, enabled)
	}
}

func (m MultiView) SetText(area, text string) {
	for _, v := range m {
		v.SetText(area, text)
	}
}

func (m MultiView) SetLink(area, url string) {
	for _, v := range m {
		v.SetLink(area, url)
	}
}

func (m MultiView) Reveal(panel string) {
	for _, v := range m {
		v.Reveal(panel)
	}
}
