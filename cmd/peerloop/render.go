package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"peerloop/internal/engine"
	"peerloop/internal/resource"
)

// =============================================================================
// OUTPUT RENDERING
// =============================================================================

var (
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	nameStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	delayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	flagStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	attachStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	suppressedSt = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// renderResult prints a scheduled batch. The delay column shows when each
// reply would surface relative to its predecessor; the attachment marker is
// parsed out and shown as a card line, the way a real client would render it.
func renderResult(w io.Writer, res engine.Result) {
	fmt.Fprintln(w, phaseStyle.Render(fmt.Sprintf("phase: %s  request: %s", res.Phase, res.RequestID)))

	if res.Flagged {
		fmt.Fprintln(w, flagStyle.Render("⚠ flagged for human review (risk language detected)"))
	}

	for _, r := range res.Replies {
		delay := time.Duration(r.DelayMillis) * time.Millisecond
		body, resourceID, hasAttachment := resource.ParseMarker(r.Text)

		fmt.Fprintf(w, "\n%s %s\n", nameStyle.Render(r.PersonaName+":"),
			delayStyle.Render(fmt.Sprintf("(+%s)", delay)))
		fmt.Fprintln(w, body)
		if hasAttachment {
			fmt.Fprintln(w, attachStyle.Render(fmt.Sprintf("📎 attachment: %s", resourceID)))
		}
	}

	if len(res.Replies) == 0 {
		fmt.Fprintln(w, suppressedSt.Render("(no replies scheduled)"))
	}
}

// renderSuppressed prints the outcome of a deduplicated nudge.
func renderSuppressed(w io.Writer, res engine.Result) {
	fmt.Fprintln(w, suppressedSt.Render(
		fmt.Sprintf("%s suppressed: already sent inside the dedupe window", res.Phase)))
}
