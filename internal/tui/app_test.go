package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/dosely/internal/form"
	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/jeanpaul/dosely/internal/notify"
	"github.com/jeanpaul/dosely/internal/reminder"
	"github.com/jeanpaul/dosely/internal/store"
)

type harness struct {
	store *store.Store
	sched *reminder.Scheduler
	sent  *[]string
	model Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.New("/storage", store.WithFs(afero.NewMemMapFs()))
	var sent []string
	sched := reminder.New(notify.Func(func(title, message string) error {
		sent = append(sent, message)
		return nil
	}))
	t.Cleanup(sched.Stop)

	m := NewModel(Deps{
		Store:     st,
		Form:      form.New(st, sched),
		Armed:     sched.Active,
		TestDelay: time.Hour,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &harness{store: st, sched: sched, sent: &sent, model: updated.(Model)}
}

func (h *harness) send(msg tea.Msg) {
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
}

func (h *harness) keys(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) key(t tea.KeyType) {
	h.send(tea.KeyMsg{Type: t})
}

func TestHomeEmpty(t *testing.T) {
	h := newHarness(t)
	view := h.model.View()
	assert.Contains(t, view, "Dosely")
	assert.Contains(t, view, "No medications yet")
}

func TestAddMedication(t *testing.T) {
	h := newHarness(t)

	h.keys("a")
	require.Equal(t, screenForm, h.model.screen)

	h.keys("Aspirina")
	h.key(tea.KeyTab) // substance
	h.key(tea.KeyTab) // dose
	h.keys("100")
	h.key(tea.KeyTab) // notes
	h.key(tea.KeyTab) // interval
	h.keys("8")
	h.key(tea.KeyCtrlS)

	assert.Equal(t, screenHome, h.model.screen)
	assert.Equal(t, "Medication saved. Reminder every 8 hours", h.model.status)
	assert.True(t, h.model.statusOK)

	list := h.store.LoadUserList()
	require.Len(t, list, 1)
	assert.Equal(t, "Aspirina", list[0].Name)
	assert.Equal(t, float64(100), *list[0].DoseMg)
	assert.Equal(t, []int{0}, h.sched.Active())

	assert.Contains(t, h.model.View(), "Aspirina")
}

func TestAddMedication_ValidationKeepsForm(t *testing.T) {
	h := newHarness(t)

	h.keys("a")
	h.keys("Omeprazol")
	h.key(tea.KeyCtrlS)

	assert.Equal(t, screenForm, h.model.screen)
	assert.Equal(t, "Must specify repeat interval", h.model.status)
	assert.False(t, h.model.statusOK)
	assert.Equal(t, fieldInterval, h.model.form.focus)
	assert.Equal(t, "Omeprazol", h.model.form.inputs[fieldName].Value())
	assert.Empty(t, h.store.LoadUserList())
}

func TestFormToggles(t *testing.T) {
	h := newHarness(t)
	h.keys("a")

	for i := 0; i < fieldUnit; i++ {
		h.key(tea.KeyTab)
	}
	h.key(tea.KeySpace)
	assert.Equal(t, meds.UnitDays, h.model.form.unit)

	h.key(tea.KeyTab)
	h.key(tea.KeySpace)
	assert.True(t, h.model.form.rx)

	h.key(tea.KeyShiftTab)
	h.key(tea.KeySpace)
	assert.Equal(t, meds.UnitHours, h.model.form.unit)
}

func TestSearchPrefillsForm(t *testing.T) {
	h := newHarness(t)

	h.keys("/")
	require.Equal(t, screenSearch, h.model.screen)
	assert.Len(t, h.model.search.results, 10)

	h.keys("ibupro")
	require.Len(t, h.model.search.results, 1)
	view := h.model.View()
	assert.Contains(t, view, "Ibuprofeno")
	assert.NotContains(t, view, "Paracetamol")

	h.key(tea.KeyEnter)
	require.Equal(t, screenForm, h.model.screen)
	assert.Equal(t, "Ibuprofeno", h.model.form.inputs[fieldName].Value())
	assert.Equal(t, "400", h.model.form.inputs[fieldDose].Value())
	assert.Equal(t, fieldInterval, h.model.form.focus)

	h.key(tea.KeyEsc)
	assert.Equal(t, screenSearch, h.model.screen)
}

func TestSearchNoMatch(t *testing.T) {
	h := newHarness(t)
	h.keys("/zzz")
	assert.Empty(t, h.model.search.results)
	assert.Contains(t, h.model.View(), "No matches")

	h.key(tea.KeyEnter)
	assert.Equal(t, screenSearch, h.model.screen)
}

func TestEditMedication(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.AppendRecord(meds.MedicationRecord{
		Name:     "Metformina",
		DoseMg:   meds.Dose(850),
		Reminder: &meds.Reminder{Interval: 12, Unit: meds.UnitHours, Repeat: true},
	})
	require.NoError(t, err)
	h.send(ReminderFiredMsg{Message: "refresh"})

	h.key(tea.KeyEnter)
	require.Equal(t, screenForm, h.model.screen)
	require.NotNil(t, h.model.form.editIndex)
	assert.Equal(t, "12", h.model.form.inputs[fieldInterval].Value())

	for i := 0; i < fieldInterval; i++ {
		h.key(tea.KeyTab)
	}
	h.key(tea.KeyBackspace)
	h.key(tea.KeyBackspace)
	h.keys("24")
	h.key(tea.KeyCtrlS)

	assert.Equal(t, "Medication updated. Reminder every 24 hours", h.model.status)
	rec, err := h.store.Record(0)
	require.NoError(t, err)
	assert.Equal(t, float64(24), rec.Reminder.Interval)
	assert.Len(t, h.store.LoadUserList(), 1)
}

func TestReminderFiredShowsStatus(t *testing.T) {
	h := newHarness(t)

	h.send(ReminderFiredMsg{Index: 0, Message: "Reminder: Aspirina"})
	assert.Contains(t, h.model.status, "Reminder: Aspirina")
	assert.True(t, h.model.statusOK)

	h.send(ReminderFiredMsg{Index: 0, Message: "Reminder: Aspirina", Err: errors.New("no dbus")})
	assert.Contains(t, h.model.status, "no dbus")
	assert.False(t, h.model.statusOK)
}

func TestRemindersRestoredRefreshesTable(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.AppendRecord(meds.MedicationRecord{
		Name:     "Omeprazol",
		Reminder: &meds.Reminder{Interval: 24, Unit: meds.UnitHours, Message: "Reminder: Omeprazol", Repeat: true},
	})
	require.NoError(t, err)
	n, err := h.model.deps.Form.RestoreReminders()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h.send(RemindersRestoredMsg{Armed: n})
	assert.Equal(t, "1 reminder(s) armed", h.model.status)
	require.Len(t, h.model.records, 1)
	assert.Equal(t, "●", h.model.table.Rows()[0][6])

	h.send(RemindersRestoredMsg{Err: errors.New("schedule reminder 3: no notifier configured")})
	assert.False(t, h.model.statusOK)
	assert.Contains(t, h.model.status, "no notifier configured")
}

func TestStatusExpires(t *testing.T) {
	h := newHarness(t)
	h.send(ReminderFiredMsg{Message: "first"})
	stale := h.model.statusID
	h.send(ReminderFiredMsg{Message: "second"})

	h.send(clearStatusMsg{id: stale})
	assert.Contains(t, h.model.status, "second")

	h.send(clearStatusMsg{id: h.model.statusID})
	assert.Empty(t, h.model.status)
}

func TestTestNotification(t *testing.T) {
	h := newHarness(t)
	h.keys("t")
	assert.Equal(t, "Notifications sent", h.model.status)
	assert.Len(t, *h.sent, 1)
	assert.Len(t, h.sched.Active(), 1)
}

func TestMenu(t *testing.T) {
	h := newHarness(t)

	h.keys("m")
	require.True(t, h.model.menu.active)
	assert.Contains(t, h.model.View(), "Search catalog")

	h.key(tea.KeyEnter) // first item: Add medication
	assert.False(t, h.model.menu.active)
	assert.Equal(t, screenForm, h.model.screen)
}

func TestHelpScreen(t *testing.T) {
	h := newHarness(t)
	h.keys("?")
	assert.Equal(t, screenHelp, h.model.screen)
	assert.NotEmpty(t, strings.TrimSpace(h.model.help.View()))

	h.key(tea.KeyEsc)
	assert.Equal(t, screenHome, h.model.screen)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	var gotPath string
	h.model.deps.Export = func(path string, records []meds.MedicationRecord, catalog []meds.CatalogEntry) error {
		gotPath = path
		assert.Len(t, catalog, 10)
		return nil
	}

	h.keys("x")
	assert.Equal(t, "/storage/dosely-export.xlsx", gotPath)
	assert.Contains(t, h.model.status, "Exported to")
}
