// Package sheet exports the medication list to xlsx and imports catalogs
// from spreadsheets.
package sheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/xuri/excelize/v2"
)

const (
	SheetMedications = "Medications"
	SheetCatalog     = "Catalog"
)

var ErrNoMatch = errors.New("no spreadsheet matches the pattern")

var (
	medicationHeader = []any{"Name", "Substance", "Dose (mg)", "Requires prescription", "Notes", "Every", "Unit", "Repeat"}
	catalogHeader    = []any{"Name", "Substance", "Dose (mg)", "Requires prescription"}
)

// Export writes records to the Medications sheet and, when catalog is not
// nil, the catalog to a second sheet.
func Export(path string, records []meds.MedicationRecord, catalog []meds.CatalogEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetMedications); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(records)+1)
	rows = append(rows, medicationHeader)
	for _, r := range records {
		every, unit, repeat := "", "", ""
		if r.Reminder != nil {
			every = meds.FormatNumber(r.Reminder.Interval)
			unit = r.Reminder.Unit.String()
			repeat = yesNo(r.Reminder.Repeat)
		}
		rows = append(rows, []any{r.Name, r.Substance, doseCell(r.DoseMg), yesNo(r.RequiresPrescription), r.Notes, every, unit, repeat})
	}
	if err := writeRows(f, SheetMedications, rows, bold); err != nil {
		return err
	}

	if catalog != nil {
		if _, err := f.NewSheet(SheetCatalog); err != nil {
			return err
		}
		rows = rows[:0]
		rows = append(rows, catalogHeader)
		for _, e := range catalog {
			rows = append(rows, []any{e.Name, e.Substance, doseCell(e.DoseMg), yesNo(e.RequiresPrescription)})
		}
		if err := writeRows(f, SheetCatalog, rows, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

// ImportCatalog reads catalog rows from path: the Catalog sheet if present,
// otherwise the first sheet. Columns are name, substance, dose, prescription.
// A header row and rows without a name are skipped.
func ImportCatalog(path string) ([]meds.CatalogEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if s == SheetCatalog {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	entries := []meds.CatalogEntry{}
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		name := strings.TrimSpace(cellAt(row, 0))
		if name == "" {
			continue
		}
		e := meds.CatalogEntry{
			Name:                 name,
			Substance:            strings.TrimSpace(cellAt(row, 1)),
			RequiresPrescription: parseFlag(cellAt(row, 3)),
		}
		if d := strings.TrimSpace(cellAt(row, 2)); d != "" {
			v, err := meds.ParseNumber(d)
			if err != nil {
				return nil, fmt.Errorf("%s: %s row %d: dose %q: %w", path, sheet, i+1, d, err)
			}
			e.DoseMg = meds.Dose(meds.NormalizeNumber(v))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ImportCatalogGlob imports every workbook matching pattern, which may use
// ** to cross directories. Files are read in lexical order and their entries
// concatenated.
func ImportCatalogGlob(pattern string) ([]meds.CatalogEntry, []string, error) {
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	sort.Strings(files)

	var all []meds.CatalogEntry
	for _, file := range files {
		entries, err := ImportCatalog(file)
		if err != nil {
			return nil, files, err
		}
		all = append(all, entries...)
	}
	return all, files, nil
}

func isHeader(row []string) bool {
	switch strings.ToLower(strings.TrimSpace(cellAt(row, 0))) {
	case "name", "nombre":
		return true
	}
	return false
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "si", "sí", "1", "x":
		return true
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func doseCell(mg *float64) any {
	if mg == nil {
		return ""
	}
	return *mg
}
