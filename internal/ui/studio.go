package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
)

// StudioParam is one input with its inferred hint.
type StudioParam struct {
	Name    string
	Type    string
	Label   string
	Example string
}

// StudioEntry is one navigable function.
type StudioEntry struct {
	Name        string
	Selector    string
	Sig         string
	IsWrite     bool
	Dangerous   bool
	Payable     bool
	Inputs      []StudioParam
	OutputTypes []string
}

// StudioModel is the Bubble Tea model for the function navigator. Reads are
// listed before writes; Enter exits with the selected entry.
type StudioModel struct {
	ContractName string
	Address      string
	Network      string
	ProxyLine    string
	Score        int

	Entries []StudioEntry

	navItems []int
	cursor   int

	Selected *StudioEntry
	Quitting bool
}

// NewStudioModel builds the navigator for a loaded session.
func NewStudioModel(sess *studio.Session) StudioModel {
	m := StudioModel{
		Address: sess.Address,
		Network: sess.Chain.Name,
		Score:   sess.Audit.Score,
	}
	if sess.Descriptor != nil {
		m.ContractName = sess.Descriptor.Name
	}
	if m.ContractName == "" {
		m.ContractName = TruncateAddr(sess.Address)
	}
	if sess.Proxy.IsProxy {
		m.ProxyLine = fmt.Sprintf("%s proxy → %s", sess.Proxy.Pattern, sess.Proxy.Implementation)
	}
	for _, f := range sess.Functions.Read {
		m.Entries = append(m.Entries, entryFor(sess, f, false))
	}
	for _, f := range sess.Functions.Write {
		m.Entries = append(m.Entries, entryFor(sess, f, true))
	}
	m.buildNav()
	return m
}

func entryFor(sess *studio.Session, f contract.ParsedFunction, write bool) StudioEntry {
	e := StudioEntry{
		Name:      f.Entry.Name,
		Selector:  f.Selector,
		Sig:       f.Signature,
		IsWrite:   write,
		Dangerous: f.Dangerous,
		Payable:   f.Entry.IsPayable(),
	}
	hints := sess.Hints[f.Signature]
	for i, in := range f.Entry.Inputs {
		p := StudioParam{Name: in.Name, Type: in.CanonicalType()}
		if i < len(hints) {
			p.Label = hints[i].Label
			p.Example = hints[i].Example
		}
		e.Inputs = append(e.Inputs, p)
	}
	for _, out := range f.Entry.Outputs {
		e.OutputTypes = append(e.OutputTypes, out.CanonicalType())
	}
	return e
}

func (m *StudioModel) buildNav() {
	m.navItems = m.navItems[:0]
	for i, e := range m.Entries {
		if !e.IsWrite {
			m.navItems = append(m.navItems, i)
		}
	}
	for i, e := range m.Entries {
		if e.IsWrite {
			m.navItems = append(m.navItems, i)
		}
	}
}

func (m StudioModel) Init() tea.Cmd { return nil }

func (m StudioModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.navItems)-1 {
				m.cursor++
			}
		case "enter", " ":
			if len(m.navItems) > 0 {
				e := m.Entries[m.navItems[m.cursor]]
				m.Selected = &e
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

const sepWidth = 72

func section(title string, n int) string {
	hdr := fmt.Sprintf("  ── %s (%d) ", title, n)
	fill := sepWidth - len(hdr) - 2
	if fill < 0 {
		fill = 0
	}
	return StyleHeader.Render(hdr) + StyleMeta.Render(strings.Repeat("─", fill)) + "\n"
}

func (m StudioModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(fmt.Sprintf("  Contract Studio  ·  %s  ·  %s", m.ContractName, m.Network)) + "\n\n")
	sb.WriteString(fmt.Sprintf("  %-10s %s\n", StyleMeta.Render("Address"), StyleAddress.Render(m.Address)))
	if m.ProxyLine != "" {
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", StyleMeta.Render("Proxy"), StyleInfo.Render(m.ProxyLine)))
	}
	sb.WriteString(fmt.Sprintf("  %-10s %s\n\n", StyleMeta.Render("Score"), scoreStyle(m.Score).Render(fmt.Sprintf("%d/100", m.Score))))

	var reads, writes int
	for _, e := range m.Entries {
		if e.IsWrite {
			writes++
		} else {
			reads++
		}
	}

	for pos, idx := range m.navItems {
		e := m.Entries[idx]
		switch {
		case pos == 0 && !e.IsWrite:
			sb.WriteString(section("Read", reads))
		case e.IsWrite && (pos == 0 || !m.Entries[m.navItems[pos-1]].IsWrite):
			if pos > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(section("Write", writes))
		}

		prefix := "    "
		if pos == m.cursor {
			prefix = "  ▸ "
		}
		name := StyleValue.Render(e.Name)
		switch {
		case e.Dangerous:
			name = StyleError.Render("⚠ " + e.Name)
		case e.IsWrite:
			name = StyleWarning.Render(e.Name)
		}
		line := fmt.Sprintf("%s%s  %s(%s)", prefix, StyleMeta.Render(e.Selector), name, StyleMeta.Render(studioParamSig(e.Inputs)))
		if len(e.OutputTypes) > 0 && !e.IsWrite {
			line += StyleMeta.Render("  →  " + strings.Join(e.OutputTypes, ", "))
		}
		if e.Payable {
			line += StyleInfo.Render("  payable")
		}
		if pos == m.cursor {
			sb.WriteString(StyleSelected.Render(line) + "\n")
		} else {
			sb.WriteString(line + "\n")
		}
	}

	ruler := StyleMeta.Render(strings.Repeat("─", sepWidth))
	sb.WriteString("\n" + ruler + "\n")
	if len(m.navItems) > 0 {
		sb.WriteString(m.describe(m.Entries[m.navItems[m.cursor]]))
	}
	sb.WriteString(ruler + "\n\n")

	sb.WriteString(
		StyleMeta.Render("  [ ↑↓ / jk ]") + " navigate   " +
			StyleInfo.Render("[ Enter ]") + " select   " +
			StyleMeta.Render("[ q ]") + " quit\n")

	return sb.String()
}

// describe renders the parameter hints of e.
func (m StudioModel) describe(e StudioEntry) string {
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("  "+e.Sig) + "\n")
	for _, p := range e.Inputs {
		label := p.Label
		if label == "" {
			label = p.Type
		}
		sb.WriteString(fmt.Sprintf("    %-14s %s", p.Name, StyleInfo.Render(label)))
		if p.Example != "" {
			sb.WriteString(StyleMeta.Render("  e.g. " + p.Example))
		}
		sb.WriteString("\n")
	}
	if e.Dangerous {
		sb.WriteString(StyleError.Render("    privileged: sending requires typing "+studio.ConfirmationToken) + "\n")
	}
	return sb.String()
}

// RunStudio launches the navigator with altscreen and returns the selected
// entry, or nil if the user quit.
func RunStudio(m StudioModel) (*StudioEntry, error) {
	m.buildNav()
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("studio: %w", err)
	}
	fm := final.(StudioModel)
	if fm.Quitting || fm.Selected == nil {
		return nil, nil
	}
	return fm.Selected, nil
}

// studioParamSig formats params as "type name, type name".
func studioParamSig(params []StudioParam) string {
	parts := make([]string, len(params))
	for i, p := range params {
		if p.Name != "" {
			parts[i] = p.Type + " " + p.Name
		} else {
			parts[i] = p.Type
		}
	}
	return strings.Join(parts, ", ")
}
