package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeanpaul/dosely/internal/meds"
)

const maxResults = 12

type searchModel struct {
	input   textinput.Model
	results []meds.CatalogEntry
	cursor  int
}

func newSearchModel() searchModel {
	ti := textinput.New()
	ti.Prompt = "Search: "
	ti.Placeholder = "name or substance"
	ti.CharLimit = 80
	ti.Width = 40
	return searchModel{input: ti}
}

func (s *searchModel) setResults(r []meds.CatalogEntry) {
	s.results = r
	if s.cursor >= len(r) {
		s.cursor = 0
	}
}

func (s searchModel) selected() (meds.CatalogEntry, bool) {
	if s.cursor < 0 || s.cursor >= len(s.results) {
		return meds.CatalogEntry{}, false
	}
	return s.results[s.cursor], true
}

// update returns whether the query changed.
func (s searchModel) update(msg tea.KeyMsg) (searchModel, bool, tea.Cmd) {
	switch msg.String() {
	case "up", "ctrl+p":
		if s.cursor > 0 {
			s.cursor--
		}
		return s, false, nil
	case "down", "ctrl+n":
		if s.cursor < len(s.results)-1 {
			s.cursor++
		}
		return s, false, nil
	}

	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, s.input.Value() != before, cmd
}

func (s searchModel) view() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Catalog") + "\n\n")
	b.WriteString(s.input.View() + "\n\n")

	if len(s.results) == 0 {
		b.WriteString(SubtitleStyle.Render("No matches") + "\n")
		return BoxStyle.Render(b.String())
	}

	// Keep the cursor inside the visible window.
	start := 0
	if s.cursor >= maxResults {
		start = s.cursor - maxResults + 1
	}
	end := start + maxResults
	if end > len(s.results) {
		end = len(s.results)
	}

	for i := start; i < end; i++ {
		e := s.results[i]
		line := e.Title()
		if e.Substance != "" && e.Substance != e.Name {
			line += " · " + e.Substance
		}
		if e.RequiresPrescription {
			line += " · Rx"
		}
		if i == s.cursor {
			b.WriteString(SelectedStyle.Render("› "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	if len(s.results) > maxResults {
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d of %d", s.cursor+1, len(s.results))) + "\n")
	}
	return BoxStyle.Render(b.String())
}
