package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the certwizard banner followed by the endpoint in use.
func PrintBanner(w io.Writer, endpoint string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`                 _              _                  _ `, "#818cf8"},
		{`  ___ ___ _ _ __| |_ __ __ _(_)___ __ _ _ _ __| |`, "#a78bfa"},
		{` / _/ -_) '_|  _\ V  V / |_ / _' | '_/ _' |`, "#c084fc"},
		{` \__\___|_|  \__|\_/\_/|_/__\__,_|_| \__,_|`, "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
	if endpoint != "" {
		fmt.Fprintln(w, out.String("  endpoint: "+endpoint).Faint())
		fmt.Fprintln(w)
	}
}
