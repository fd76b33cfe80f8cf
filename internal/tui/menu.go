package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type menuAction int

const (
	actionNone menuAction = iota
	actionAdd
	actionSearch
	actionTestNotify
	actionExport
	actionHelp
	actionQuit
)

type item struct {
	title, desc string
	action      menuAction
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

// MenuModel is the command popup opened with "m" on the home screen.
type MenuModel struct {
	list   list.Model
	active bool
}

func NewMenuModel() MenuModel {
	items := []list.Item{
		item{title: "Add medication", desc: "Open an empty form", action: actionAdd},
		item{title: "Search catalog", desc: "Prefill a new entry from the catalog", action: actionSearch},
		item{title: "Test notification", desc: "Send one now and one shortly after", action: actionTestNotify},
		item{title: "Export", desc: "Write medications and catalog to xlsx", action: actionExport},
		item{title: "Help", desc: "Keys and usage", action: actionHelp},
		item{title: "Quit", desc: "Exit Dosely", action: actionQuit},
	}

	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = lipgloss.NewStyle().Foreground(Accent).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(Accent).PaddingLeft(1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.Foreground(Muted)

	l := list.New(items, d, 44, 16)
	l.Title = "Commands"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = lipgloss.NewStyle().Foreground(Accent).Bold(true).MarginLeft(2)

	return MenuModel{list: l}
}

// Update returns the chosen action when enter is pressed.
func (m MenuModel) Update(msg tea.Msg) (MenuModel, menuAction, tea.Cmd) {
	if !m.active {
		return m, actionNone, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc", "m":
			m.active = false
			return m, actionNone, nil
		case "enter":
			m.active = false
			if it, ok := m.list.SelectedItem().(item); ok {
				return m, it.action, nil
			}
			return m, actionNone, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, actionNone, cmd
}

func (m MenuModel) View() string {
	if !m.active {
		return ""
	}
	return BoxStyle.Render(m.list.View())
}
