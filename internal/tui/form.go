package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeanpaul/dosely/internal/form"
	"github.com/jeanpaul/dosely/internal/meds"
)

// Focus order of the form. Inputs first, then the two toggles.
const (
	fieldName = iota
	fieldSubstance
	fieldDose
	fieldNotes
	fieldInterval
	fieldUnit
	fieldRx
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Substance", "Dose (mg)", "Notes", "Every", "Unit", "Prescription"}

const inputCount = fieldInterval + 1

type formModel struct {
	inputs    [inputCount]textinput.Model
	unit      meds.Unit
	rx        bool
	focus     int
	editIndex *int
	// back is the screen esc returns to.
	back screen
}

func newFormModel(unit meds.Unit) formModel {
	var f formModel
	placeholders := [inputCount]string{"Paracetamol", "Paracetamol", "500", "after meals", "8"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 120
		ti.Width = 40
		ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(MidGray)
		f.inputs[i] = ti
	}
	f.unit = unit
	f.back = screenHome
	f.focusField(fieldName)
	return f
}

// load fills the form from fields produced by the form controller.
func (f *formModel) load(v form.Fields) {
	f.inputs[fieldName].SetValue(v.Name)
	f.inputs[fieldSubstance].SetValue(v.Substance)
	f.inputs[fieldDose].SetValue(v.Dose)
	f.inputs[fieldNotes].SetValue(v.Notes)
	f.inputs[fieldInterval].SetValue(v.Interval)
	if v.Unit != "" {
		f.unit = meds.ParseUnit(v.Unit)
	}
	f.rx = v.RequiresPrescription
}

func (f formModel) fields() form.Fields {
	return form.Fields{
		Name:                 f.inputs[fieldName].Value(),
		Substance:            f.inputs[fieldSubstance].Value(),
		Dose:                 f.inputs[fieldDose].Value(),
		Notes:                f.inputs[fieldNotes].Value(),
		Interval:             f.inputs[fieldInterval].Value(),
		Unit:                 f.unit.String(),
		RequiresPrescription: f.rx,
	}
}

func (f *formModel) focusField(i int) tea.Cmd {
	f.focus = (i + fieldCount) % fieldCount
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

// focusFieldNamed moves focus to the field a validation error points at.
func (f *formModel) focusFieldNamed(name string) tea.Cmd {
	switch name {
	case "name":
		return f.focusField(fieldName)
	case "dose":
		return f.focusField(fieldDose)
	case "interval":
		return f.focusField(fieldInterval)
	}
	return nil
}

func (f formModel) update(msg tea.KeyMsg) (formModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return f, f.focusField(f.focus + 1)
	case "shift+tab", "up":
		return f, f.focusField(f.focus - 1)
	case " ", "left", "right":
		switch f.focus {
		case fieldUnit:
			if f.unit == meds.UnitDays {
				f.unit = meds.UnitHours
			} else {
				f.unit = meds.UnitDays
			}
			return f, nil
		case fieldRx:
			f.rx = !f.rx
			return f, nil
		}
	}

	if f.focus < inputCount {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return f, cmd
	}
	return f, nil
}

func (f formModel) title() string {
	if f.editIndex != nil {
		return "Edit medication"
	}
	return "New medication"
}

func (f formModel) view() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(f.title()) + "\n\n")

	for i := 0; i < fieldCount; i++ {
		label := LabelStyle.Render(fieldLabels[i])
		if i == f.focus {
			label = FocusedLabel.Render("› " + fieldLabels[i])
		}

		var value string
		switch {
		case i < inputCount:
			value = f.inputs[i].View()
		case i == fieldUnit:
			value = toggle(f.unit == meds.UnitHours, "hours") + "  " + toggle(f.unit == meds.UnitDays, "days")
		case i == fieldRx:
			value = toggle(f.rx, "requires prescription")
		}
		b.WriteString(label + " " + value + "\n")
	}
	return BoxStyle.Render(b.String())
}

func toggle(on bool, label string) string {
	if on {
		return ToggleOnStyle.Render("[x] " + label)
	}
	return ToggleOffStyle.Render("[ ] " + label)
}
