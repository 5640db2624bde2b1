// Package render turns a runner.View into terminal text. Rendering is a
// pure function of the view.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/scriptrunner/internal/runner"
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
)

// Text writes the list view followed by the editor state.
func Text(w io.Writer, v runner.View) error {
	if err := List(w, v); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return Editor(w, v.Session)
}

// List writes one line per script: id, title and option tags.
func List(w io.Writer, v runner.View) error {
	var b strings.Builder

	switch {
	case strings.TrimSpace(v.Query) != "":
		fmt.Fprintf(&b, "Scripts matching %q (%d of %d)\n", v.Query, len(v.Scripts), v.Total)
	default:
		fmt.Fprintf(&b, "Scripts (%d)\n", len(v.Scripts))
	}
	if len(v.Scripts) == 0 {
		b.WriteString("  (none)\n")
	}

	width := 0
	for _, s := range v.Scripts {
		width = max(width, len(s.ID))
	}
	for _, s := range v.Scripts {
		marker := " "
		if v.Session.Mode == session.Open && v.Session.SelectedID == s.ID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-*s  %s%s\n", marker, width, s.ID, displayTitle(s.Title), tags(s.Options))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Editor writes the editor state and, when open, the draft.
func Editor(w io.Writer, st session.State) error {
	var b strings.Builder

	switch {
	case st.Mode != session.Open:
		b.WriteString("Editor: closed\n")
	case st.SelectedID == "":
		b.WriteString("Editor: open (new script)\n")
	default:
		fmt.Fprintf(&b, "Editor: open (editing %s)\n", st.SelectedID)
	}

	if st.Mode == session.Open {
		fmt.Fprintf(&b, "Title:   %s\n", displayTitle(st.Draft.Title))
		fmt.Fprintf(&b, "Options: requiresJQuery=%t\n", st.Draft.Options.RequiresJQuery)
		b.WriteString("Code:\n")
		if st.Draft.Code == "" {
			b.WriteString("  (empty)\n")
		} else {
			for _, line := range strings.Split(st.Draft.Code, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func tags(opts script.Options) string {
	if opts.RequiresJQuery {
		return "  [jquery]"
	}
	return ""
}
