package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/wallet"
)

// PickerItem is one choice. Value is what PickItem returns.
type PickerItem struct {
	Label    string
	SubLabel string
	Value    string
}

func (p PickerItem) matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Label), q) ||
		strings.Contains(strings.ToLower(p.SubLabel), q) ||
		strings.Contains(strings.ToLower(p.Value), q)
}

// pickerModel narrows the list as the user types; arrows move within the
// visible matches.
type pickerModel struct {
	title    string
	items    []PickerItem
	query    string
	visible  []int
	cursor   int
	selected *PickerItem
	quitting bool
}

func newPicker(title string, items []PickerItem) pickerModel {
	m := pickerModel{title: title, items: items}
	m.filter()
	return m
}

func (m *pickerModel) filter() {
	m.visible = m.visible[:0]
	for i, it := range m.items {
		if it.matches(m.query) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if len(m.visible) > 0 {
			item := m.items[m.visible[m.cursor]]
			m.selected = &item
			return m, tea.Quit
		}
	case tea.KeyBackspace:
		if m.query != "" {
			m.query = m.query[:len(m.query)-1]
			m.filter()
		}
	case tea.KeyRunes:
		m.query += string(key.Runes)
		m.filter()
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n" + StyleTitle.Render("  "+m.title) + "\n")
	sb.WriteString("  " + StyleMeta.Render("filter: ") + StyleValue.Render(m.query) + "\n\n")

	if len(m.visible) == 0 {
		sb.WriteString(StyleMeta.Render("    no matches") + "\n")
	}
	for pos, idx := range m.visible {
		item := m.items[idx]
		line := "    " + StyleValue.Render(item.Label)
		if pos == m.cursor {
			line = "  ▸ " + StyleValue.Render(item.Label)
		}
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}
		if pos == m.cursor {
			line = StyleSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n" + StyleMeta.Render("  type to filter   [ ↑↓ ] move   [ Enter ] select   [ Esc ] cancel") + "\n")
	return sb.String()
}

var errNothingToPick = errors.New("no items to pick from")

// PickItem runs the picker and returns the chosen Value, or "" when the user
// cancels.
func PickItem(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", errNothingToPick
	}
	final, err := tea.NewProgram(newPicker(title, items), tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	fm := final.(pickerModel)
	if fm.quitting || fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}

// ChainItems lists chains for the picker, valued by slug.
func ChainItems(ds []chain.Descriptor) []PickerItem {
	items := make([]PickerItem, 0, len(ds))
	for _, d := range ds {
		sub := fmt.Sprintf("chain %d", d.ChainID)
		if d.Testnet {
			sub += " · testnet"
		}
		items = append(items, PickerItem{Label: d.Name, SubLabel: sub, Value: d.Slug})
	}
	return items
}

// AccountItems lists wallet accounts for the picker, valued by name.
func AccountItems(accounts []*wallet.Account) []PickerItem {
	items := make([]PickerItem, 0, len(accounts))
	for _, a := range accounts {
		sub := a.Address
		if a.IsDefault {
			sub += " · default"
		}
		items = append(items, PickerItem{Label: a.Name, SubLabel: sub, Value: a.Name})
	}
	return items
}
