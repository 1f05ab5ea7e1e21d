package main

import (
	"bytes"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wave-testlib/verdict"
)

type styles struct {
	title    lipgloss.Style
	kind     lipgloss.Style
	value    lipgloss.Style
	index    lipgloss.Style
	accepted lipgloss.Style
	rejected lipgloss.Style
	fault    lipgloss.Style
	help     lipgloss.Style
	box      lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			title: plain, kind: plain, value: plain, index: plain,
			accepted: plain, rejected: plain, fault: plain, help: plain,
			box: plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		kind:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		value:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		index:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		accepted: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82")),
		rejected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		fault:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1),
	}
}

// verdictWriter colors verdict lines by their prefix. The reporter writes
// each line in a single call.
type verdictWriter struct {
	w      io.Writer
	styles styles
}

func (v *verdictWriter) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")
	var st lipgloss.Style
	switch {
	case bytes.HasPrefix(line, []byte(verdict.PrefixAccepted)), bytes.HasPrefix(line, []byte(verdict.PrefixAcceptedMsg)):
		st = v.styles.accepted
	case bytes.HasPrefix(line, []byte(verdict.PrefixRejected)):
		st = v.styles.rejected
	case bytes.HasPrefix(line, []byte(verdict.PrefixFault)):
		st = v.styles.fault
	default:
		return v.w.Write(p)
	}
	if _, err := io.WriteString(v.w, st.Render(string(line))+"\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}
