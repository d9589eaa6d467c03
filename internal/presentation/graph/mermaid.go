package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/certwizard/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of the step table.
// Shapes:
// - Load-triggered step: ((Circle))
// - Step posting a form field: [/Parallelogram/]
// - Terminal step: [[Subroutine]]
// - Default: [Rectangle]
// When snap is not nil each step is styled by its phase.
func GenerateMermaid(steps []domain.Step, snap *domain.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, s := range steps {
		id := sanitizeMermaidID(string(s.Name))

		opener, closer := "[", "]"
		switch {
		case s.Trigger == domain.ControlLoad:
			opener, closer = "((", "))"
		case s.Field != "":
			opener, closer = "[/", "/]"
		case s.Terminal:
			opener, closer = "[[", "]]"
		}

		label := fmt.Sprintf("%s <br/> %s ?%s", s.Name, s.Method, s.Selector)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		if s.Next != "" {
			fmt.Fprintf(&sb, "    %s --> %s\n", id, sanitizeMermaidID(string(s.Next)))
		}
	}

	if snap != nil {
		sb.WriteString("\n    %% Phase Styles\n")
		sb.WriteString("    classDef pending fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:2px,color:#000;\n")

		for _, st := range snap.Steps {
			if st.Phase == domain.PhaseIdle {
				continue
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(string(st.Name)), st.Phase)
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
