package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeanpaul/dosely/internal/form"
	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/jeanpaul/dosely/internal/reminder"
)

const statusTTL = 5 * time.Second

type screen int

const (
	screenHome screen = iota
	screenSearch
	screenForm
	screenHelp
)

// Store is what the UI reads. Writes go through the form controller.
type Store interface {
	Dir() string
	LoadUserList() []meds.MedicationRecord
	LoadCatalog() []meds.CatalogEntry
	Record(index int) (meds.MedicationRecord, error)
	SearchCatalog(query string) []meds.CatalogEntry
}

// ExportFunc writes the medication list and catalog to path.
type ExportFunc func(path string, records []meds.MedicationRecord, catalog []meds.CatalogEntry) error

type Deps struct {
	Store       Store
	Form        *form.Controller
	Armed       func() []int
	Export      ExportFunc
	TestDelay   time.Duration
	DefaultUnit meds.Unit
	AppName     string
}

// ReminderFiredMsg is sent into the program by the scheduler's OnFire hook.
type ReminderFiredMsg reminder.Firing

// RemindersRestoredMsg reports the startup re-arming of stored reminders.
type RemindersRestoredMsg struct {
	Armed int
	Err   error
}

type clearStatusMsg struct{ id int }

type Model struct {
	deps   Deps
	width  int
	height int
	screen screen

	records  []meds.MedicationRecord
	table    table.Model
	search   searchModel
	form     formModel
	help     viewport.Model
	menu     MenuModel
	status   string
	statusOK bool
	statusID int
}

func NewModel(deps Deps) Model {
	if deps.Armed == nil {
		deps.Armed = func() []int { return nil }
	}
	if deps.AppName == "" {
		deps.AppName = "Dosely"
	}
	if deps.DefaultUnit == "" {
		deps.DefaultUnit = meds.UnitHours
	}

	t := table.New(
		table.WithColumns(homeColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(Muted).BorderBottom(true).Bold(true)
	ts.Selected = ts.Selected.Foreground(Black).Background(Accent).Bold(false)
	t.SetStyles(ts)

	m := Model{
		deps:   deps,
		table:  t,
		search: newSearchModel(),
		form:   newFormModel(deps.DefaultUnit),
		help:   viewport.New(80, 20),
		menu:   NewMenuModel(),
	}
	m.refresh()
	return m
}

func homeColumns(width int) []table.Column {
	name := width - 4 - 10 - 18 - 4 - 14 - 6 - 12
	if name < 16 {
		name = 16
	}
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Name", Width: name},
		{Title: "Dose", Width: 10},
		{Title: "Substance", Width: 18},
		{Title: "Rx", Width: 4},
		{Title: "Every", Width: 14},
		{Title: "On", Width: 6},
	}
}

// refresh reloads the records and rebuilds the home table.
func (m *Model) refresh() {
	m.records = m.deps.Store.LoadUserList()
	armed := map[int]bool{}
	for _, i := range m.deps.Armed() {
		armed[i] = true
	}

	rows := make([]table.Row, 0, len(m.records))
	for i, r := range m.records {
		every, on, rx := "", "", ""
		if r.Reminder != nil && r.Reminder.Interval > 0 {
			every = r.Reminder.Every()
		}
		if armed[i] {
			on = "●"
		}
		if r.RequiresPrescription {
			rx = "Rx"
		}
		dose := meds.FormatDose(r.DoseMg)
		if dose != "" {
			dose += " mg"
		}
		rows = append(rows, table.Row{fmt.Sprint(i + 1), r.Name, dose, r.Substance, rx, every, on})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m *Model) setStatus(text string, ok bool) tea.Cmd {
	m.statusID++
	m.status, m.statusOK = text, ok
	id := m.statusID
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{id: id} })
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(homeColumns(msg.Width))
		m.table.SetHeight(max(msg.Height-14, 4))
		m.help.Width = msg.Width - 2
		m.help.Height = max(msg.Height-4, 4)
		if m.screen == screenHelp {
			m.help.SetContent(RenderMarkdown(HelpMarkdown, m.help.Width))
		}
		return m, nil

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case ReminderFiredMsg:
		if msg.Err != nil {
			cmd := m.setStatus(fmt.Sprintf("%s (notification failed: %v)", msg.Message, msg.Err), false)
			return m, cmd
		}
		m.refresh()
		cmd := m.setStatus("⏰ "+msg.Message, true)
		return m, cmd

	case RemindersRestoredMsg:
		m.refresh()
		if msg.Err != nil {
			cmd := m.setStatus("Some reminders could not be armed: "+msg.Err.Error(), false)
			return m, cmd
		}
		cmd := m.setStatus(fmt.Sprintf("%d reminder(s) armed", msg.Armed), true)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.menu.active {
			var (
				action menuAction
				cmd    tea.Cmd
			)
			m.menu, action, cmd = m.menu.Update(msg)
			if action != actionNone {
				return m.runAction(action)
			}
			return m, cmd
		}

		switch m.screen {
		case screenHome:
			return m.updateHome(msg)
		case screenSearch:
			return m.updateSearch(msg)
		case screenForm:
			return m.updateForm(msg)
		case screenHelp:
			return m.updateHelp(msg)
		}
	}
	return m, nil
}

func (m Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "a":
		return m.runAction(actionAdd)
	case "/", "s":
		return m.runAction(actionSearch)
	case "t":
		return m.runAction(actionTestNotify)
	case "x":
		return m.runAction(actionExport)
	case "?":
		return m.runAction(actionHelp)
	case "m":
		m.menu.active = true
		return m, nil
	case "enter", "e":
		return m.openEdit(m.table.Cursor())
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) runAction(a menuAction) (tea.Model, tea.Cmd) {
	switch a {
	case actionAdd:
		m.form = newFormModel(m.deps.DefaultUnit)
		m.screen = screenForm
		cmd := m.form.focusField(fieldName)
		return m, cmd

	case actionSearch:
		m.search.input.SetValue("")
		m.search.cursor = 0
		m.search.setResults(m.deps.Store.SearchCatalog(""))
		m.screen = screenSearch
		cmd := m.search.input.Focus()
		return m, cmd

	case actionTestNotify:
		msg, err := m.deps.Form.TestNotification(m.deps.TestDelay)
		if err != nil {
			cmd := m.setStatus(err.Error(), false)
			return m, cmd
		}
		cmd := m.setStatus(msg, true)
		return m, cmd

	case actionExport:
		if m.deps.Export == nil {
			cmd := m.setStatus("Export is not available", false)
			return m, cmd
		}
		path := filepath.Join(m.deps.Store.Dir(), "dosely-export.xlsx")
		if err := m.deps.Export(path, m.deps.Store.LoadUserList(), m.deps.Store.LoadCatalog()); err != nil {
			cmd := m.setStatus("Export failed: "+err.Error(), false)
			return m, cmd
		}
		cmd := m.setStatus("Exported to "+path, true)
		return m, cmd

	case actionHelp:
		m.help.SetContent(RenderMarkdown(HelpMarkdown, m.help.Width))
		m.help.GotoTop()
		m.screen = screenHelp
		return m, nil

	case actionQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) openEdit(index int) (tea.Model, tea.Cmd) {
	rec, err := m.deps.Store.Record(index)
	if err != nil {
		cmd := m.setStatus("No medication selected", false)
		return m, cmd
	}
	m.form = newFormModel(m.deps.DefaultUnit)
	m.form.load(m.deps.Form.FieldsFromRecord(rec))
	m.form.editIndex = &index
	m.screen = screenForm
	cmd := m.form.focusField(fieldName)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenHome
		m.search.input.Blur()
		return m, nil
	case "enter":
		entry, ok := m.search.selected()
		if !ok {
			return m, nil
		}
		m.search.input.Blur()
		m.form = newFormModel(m.deps.DefaultUnit)
		m.form.load(m.deps.Form.Prefill(entry))
		m.form.back = screenSearch
		m.screen = screenForm
		// The interval is the one thing a catalog entry cannot provide.
		cmd := m.form.focusField(fieldInterval)
		return m, cmd
	}

	var (
		changed bool
		cmd     tea.Cmd
	)
	m.search, changed, cmd = m.search.update(msg)
	if changed {
		m.search.cursor = 0
		m.search.setResults(m.deps.Store.SearchCatalog(m.search.input.Value()))
	}
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = m.form.back
		if m.screen == screenSearch {
			cmd := m.search.input.Focus()
			return m, cmd
		}
		return m, nil

	case "ctrl+s":
		return m.save()

	case "enter":
		if m.form.focus == fieldCount-1 {
			return m.save()
		}
		cmd := m.form.focusField(m.form.focus + 1)
		return m, cmd

	case "ctrl+r":
		text, err := m.deps.Form.ScheduleAdHoc(m.form.fields())
		if err != nil {
			cmd := tea.Batch(m.setStatus(form.UserMessage(err), false), m.focusError(err))
			return m, cmd
		}
		cmd := m.setStatus(text, true)
		return m, cmd
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) save() (tea.Model, tea.Cmd) {
	out, err := m.deps.Form.Save(m.form.fields(), m.form.editIndex)
	if err != nil {
		cmd := tea.Batch(m.setStatus(form.UserMessage(err), false), m.focusError(err))
		return m, cmd
	}

	m.screen = screenHome
	m.refresh()
	m.table.SetCursor(out.Index)
	cmd := m.setStatus(out.Message, !out.Degraded)
	return m, cmd
}

func (m *Model) focusError(err error) tea.Cmd {
	if ve, ok := err.(*form.ValidationError); ok {
		return m.form.focusFieldNamed(ve.Field)
	}
	return nil
}

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.screen = screenHome
		return m, nil
	}
	var cmd tea.Cmd
	m.help, cmd = m.help.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		BannerStyle.Render(m.deps.AppName),
		SubtitleStyle.Render(fmt.Sprintf("  %d medication(s) · %d reminder(s) armed", len(m.records), len(m.deps.Armed()))),
	)

	var body, keys string
	switch m.screen {
	case screenHome:
		if len(m.records) == 0 {
			body = BoxStyle.Render(SubtitleStyle.Render("No medications yet. Press a to add one or / to search the catalog."))
		} else {
			body = BoxStyle.Render(m.table.View())
		}
		keys = "a: add  •  /: search  •  enter: edit  •  t: test  •  x: export  •  m: menu  •  ?: help  •  q: quit"
	case screenSearch:
		body = m.search.view()
		keys = "type to filter  •  ↑/↓: move  •  enter: use entry  •  esc: back"
	case screenForm:
		body = m.form.view()
		keys = "tab: next  •  space: toggle  •  ctrl+s: save  •  ctrl+r: remind without saving  •  esc: back"
	case screenHelp:
		body = m.help.View()
		keys = "↑/↓: scroll  •  esc: back"
	}

	parts := []string{header, body}
	if m.menu.active {
		parts = append(parts, m.menu.View())
	}
	if m.status != "" {
		style := StatusBarStyle
		if !m.statusOK {
			style = StatusErrStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	parts = append(parts, HelpStyle.Render(keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
