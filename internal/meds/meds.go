package meds

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Unit is the time unit of a reminder interval.
type Unit string

const (
	UnitHours Unit = "hours"
	UnitDays  Unit = "days"
)

const (
	secondsPerHour = 3600
	secondsPerDay  = 86400
)

// ParseUnit normalizes a free-text unit label. Anything that starts with the
// word for "day" (dia, día, day) is days, everything else is hours.
func ParseUnit(label string) Unit {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, prefix := range []string{"dia", "día", "day"} {
		if strings.HasPrefix(l, prefix) {
			return UnitDays
		}
	}
	return UnitHours
}

// Seconds returns how many seconds one unit lasts.
func (u Unit) Seconds() float64 {
	if u == UnitDays {
		return secondsPerDay
	}
	return secondsPerHour
}

// Label is the localized label stored next to the canonical unit.
func (u Unit) Label() string {
	if u == UnitDays {
		return "dias"
	}
	return "horas"
}

func (u Unit) String() string {
	if u == UnitDays {
		return string(UnitDays)
	}
	return string(UnitHours)
}

// Reminder is owned by a MedicationRecord and persisted nested inside it.
type Reminder struct {
	Interval float64
	Unit     Unit
	Message  string
	Repeat   bool
}

// IntervalSeconds is Interval expressed in seconds, never negative.
func (r Reminder) IntervalSeconds() float64 {
	s := r.Interval * r.Unit.Seconds()
	if s < 0 {
		return 0
	}
	return s
}

// IntervalHours is kept in the JSON document for older readers.
func (r Reminder) IntervalHours() float64 {
	if r.Unit == UnitDays {
		return r.Interval * 24
	}
	return r.Interval
}

// Delay converts the interval into a timer duration, saturating at the
// largest representable duration.
func (r Reminder) Delay() time.Duration {
	if r.Overflows() {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(r.IntervalSeconds() * float64(time.Second))
}

// Overflows reports whether the interval is too long for a timer.
func (r Reminder) Overflows() bool {
	return r.IntervalSeconds()*float64(time.Second) >= math.MaxInt64
}

// Every renders the interval for confirmations, e.g. "8 hours".
func (r Reminder) Every() string {
	return fmt.Sprintf("%s %s", FormatNumber(r.Interval), r.Unit)
}

type reminderJSON struct {
	Interval      float64 `json:"intervalo"`
	Label         string  `json:"unidad"`
	Unit          string  `json:"unidad_en,omitempty"`
	IntervalHours float64 `json:"intervalo_horas"`
	Message       string  `json:"mensaje"`
	Repeat        bool    `json:"repetir"`
}

func (r Reminder) MarshalJSON() ([]byte, error) {
	unit := ParseUnit(string(r.Unit))
	return json.Marshal(reminderJSON{
		Interval:      NormalizeNumber(r.Interval),
		Label:         unit.Label(),
		Unit:          unit.String(),
		IntervalHours: NormalizeNumber(Reminder{Interval: r.Interval, Unit: unit}.IntervalHours()),
		Message:       r.Message,
		Repeat:        r.Repeat,
	})
}

func (r *Reminder) UnmarshalJSON(data []byte) error {
	var raw reminderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	unit := raw.Unit
	if unit == "" {
		unit = raw.Label
	}
	*r = Reminder{
		Interval: raw.Interval,
		Unit:     ParseUnit(unit),
		Message:  raw.Message,
		Repeat:   raw.Repeat,
	}
	return nil
}

// MedicationRecord is one entry of the user's list. It has no id: its
// identity is its position in the stored list.
type MedicationRecord struct {
	Name                 string    `json:"nombre"`
	Substance            string    `json:"sustancia"`
	DoseMg               *float64  `json:"mg"`
	RequiresPrescription bool      `json:"requiere_receta"`
	Notes                string    `json:"notas"`
	Reminder             *Reminder `json:"recordatorio,omitempty"`
}

// Title is the primary line shown in lists: name and dose.
func (m MedicationRecord) Title() string {
	if m.Name == "" {
		return "Unknown"
	}
	return joinNonEmpty(" ", m.Name, doseText(m.DoseMg))
}

// Subtitle carries substance, prescription flag and reminder interval.
func (m MedicationRecord) Subtitle() string {
	var b strings.Builder
	b.WriteString(m.Substance)
	if m.RequiresPrescription {
		b.WriteString(" • Requires prescription")
	}
	if m.Reminder != nil && m.Reminder.Interval > 0 {
		b.WriteString(" • Every " + m.Reminder.Every())
	}
	return strings.TrimSpace(strings.TrimPrefix(b.String(), " • "))
}

// CatalogEntry is a read-only reference item used to prefill new records.
type CatalogEntry struct {
	Name                 string   `json:"nombre"`
	Substance            string   `json:"sustancia"`
	DoseMg               *float64 `json:"mg"`
	RequiresPrescription bool     `json:"requiere_receta"`
}

func (c CatalogEntry) Title() string {
	return joinNonEmpty(" ", c.Name, doseText(c.DoseMg))
}

// Dose returns a pointer to v, for literals.
func Dose(v float64) *float64 {
	return &v
}

func doseText(mg *float64) string {
	if s := FormatDose(mg); s != "" {
		return s + " mg"
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
