package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wippyai/wave-testlib/contract"
	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/floatcmp"
	"github.com/wippyai/wave-testlib/tokenized"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Step through a file token by token, the way a checker reads it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !isTerminal(a.stdout) || !isTerminal(a.stdin) {
				return errors.InvalidInput(errors.PhaseConfig, "inspect needs an interactive terminal")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "open "+args[0])
			}
			defer f.Close()

			m := newInspectModel(args[0], f, a.cfg.Tolerance, newStyles(a.cfg.Color))
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(a.stdin), tea.WithOutput(a.stdout))
			_, err = p.Run()
			return err
		},
	}
}

type inspectState int

const (
	stateBrowse inspectState = iota
	stateExpect
)

// Header and footer rows around the viewport.
const (
	headerRows = 2
	footerRows = 6
)

type readEntry struct {
	kind  string
	value string
}

type inspectModel struct {
	filename  string
	src       *tokenized.Reader
	tolerance float64
	styles    styles

	entries []readEntry
	eof     bool
	err     error

	state  inspectState
	input  textinput.Model
	view   viewport.Model
	ready  bool
	result string
	match  bool
}

func newInspectModel(filename string, r io.Reader, tolerance float64, st styles) *inspectModel {
	ti := textinput.New()
	ti.Prompt = "expect: "
	ti.Placeholder = "value to compare with the last read"
	ti.Width = 40
	return &inspectModel{
		filename:  filename,
		src:       tokenized.NewReader(r),
		tolerance: tolerance,
		styles:    st,
		input:     ti,
	}
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-headerRows-footerRows, 1)
		if !m.ready {
			m.view = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = height
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.state == stateExpect {
			return m.updateExpect(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "t", " ", "enter":
			m.read("token", m.src.ReadToken)
			return m, nil
		case "l":
			m.read("line", m.src.ReadLine)
			return m, nil
		case "e":
			if len(m.entries) == 0 {
				return m, nil
			}
			m.state = stateExpect
			m.input.Reset()
			return m, m.input.Focus()
		}
	}

	if m.ready {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *inspectModel) updateExpect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateBrowse
		m.input.Blur()
		return m, nil
	case "enter":
		last := m.entries[len(m.entries)-1]
		m.result, m.match = compareValue(last.value, m.input.Value(), m.tolerance)
		m.state = stateBrowse
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inspectModel) read(kind string, next func() (string, error)) {
	if m.eof || m.err != nil {
		return
	}
	m.result = ""
	s, err := next()
	switch {
	case stderrors.Is(err, io.EOF):
		m.eof = true
	case err != nil:
		m.err = err
	default:
		m.entries = append(m.entries, readEntry{kind: kind, value: s})
	}
	m.refresh()
}

func (m *inspectModel) refresh() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for i, e := range m.entries {
		fmt.Fprintf(&b, "%s %s %s\n",
			m.styles.index.Render(fmt.Sprintf("%5d", i+1)),
			m.styles.kind.Render(fmt.Sprintf("%-5s", e.kind)),
			m.styles.value.Render(fmt.Sprintf("%q", e.value)))
	}
	if m.eof {
		b.WriteString(m.styles.help.Render("      <EOF>"))
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m *inspectModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render("wave inspect"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	fmt.Fprintf(&b, "  %d read", len(m.entries))
	b.WriteString("\n\n")

	b.WriteString(m.view.View())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.fault.Render(fmt.Sprintf("Fault: %v", m.err)))
	case m.state == stateExpect:
		b.WriteString(m.input.View())
	case m.result != "":
		st := m.styles.rejected
		if m.match {
			st = m.styles.accepted
		}
		b.WriteString(m.styles.box.Render(st.Render(m.result)))
	}
	b.WriteString("\n")

	if m.state == stateExpect {
		b.WriteString(m.styles.help.Render("enter compare • esc back"))
	} else {
		b.WriteString(m.styles.help.Render("t/space token • l line • e expect • ↑/↓ scroll • q quit"))
	}
	return b.String()
}

// compareValue compares a read value with an expected one the way the expect
// operations would: as floats under tolerance when both parse, else as exact
// strings.
func compareValue(actual, expected string, tolerance float64) (string, bool) {
	a, errA := contract.Parse[float64](actual)
	e, errE := contract.Parse[float64](expected)
	if errA == nil && errE == nil {
		ord := floatcmp.Compare(a, e, tolerance)
		return fmt.Sprintf("%s vs %s: %s (tolerance %g)", actual, expected, ord, tolerance), ord == floatcmp.Equal
	}
	ord := floatcmp.CompareStrings(actual, expected)
	return fmt.Sprintf("%q vs %q: %s", actual, expected, ord), ord == floatcmp.Equal
}
