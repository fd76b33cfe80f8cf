package tui

import (
	"github.com/charmbracelet/glamour"
)

// HelpMarkdown is shown by the help screen and by `dosely help`.
const HelpMarkdown = `# Dosely

Track the medicines you take and get a reminder every few hours or days.

## Home

| Key | Action |
|---|---|
| a | add a medication |
| / or s | search the catalog |
| enter or e | edit the selected medication |
| t | send a test notification |
| x | export to a spreadsheet |
| m | command menu |
| ? | this help |
| q | quit |

## Form

| Key | Action |
|---|---|
| tab / shift+tab | next / previous field |
| space | toggle unit or prescription |
| ctrl+s | save and arm the reminder |
| ctrl+r | schedule a reminder without saving |
| esc | back |

Intervals accept a comma as decimal separator (` + "`1,5`" + `). A reminder
repeats until the medication is edited or the app exits.

## Files

Medications are stored in ` + "`medicamentos.json`" + ` and the catalog in
` + "`catalogo.json`" + ` inside the storage directory.
`

// RenderMarkdown renders md for a terminal of the given width. It falls back
// to the raw text if rendering fails.
func RenderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
