package form

import (
	"errors"
	"strings"

	"github.com/jeanpaul/dosely/internal/meds"
)

var (
	ErrIntervalRequired    = errors.New("must specify repeat interval")
	ErrIntervalInvalid     = errors.New("invalid numeric value")
	ErrIntervalNotPositive = errors.New("must be greater than 0")
	ErrIntervalTooLarge    = errors.New("interval is too large")
	ErrNameRequired        = errors.New("name is required")
	ErrDoseInvalid         = errors.New("invalid numeric value for dose")
)

// ValidationError rejects user input. The form keeps its values so the user
// can correct them.
type ValidationError struct {
	Field  string
	Reason error
}

func (e *ValidationError) Error() string { return e.Reason.Error() }

func (e *ValidationError) Unwrap() error { return e.Reason }

// Fields holds the raw form values as typed by the user.
type Fields struct {
	Name                 string
	Substance            string
	Dose                 string
	RequiresPrescription bool
	Notes                string
	Interval             string
	Unit                 string
}

// Validate turns raw fields into a record. Checks run in a fixed order and
// the first failure wins: interval presence, interval number, interval range,
// name, dose.
func Validate(f Fields) (meds.MedicationRecord, error) {
	unit := meds.ParseUnit(f.Unit)
	interval, err := parseInterval(f.Interval, unit)
	if err != nil {
		return meds.MedicationRecord{}, err
	}

	name := strings.TrimSpace(f.Name)
	if name == "" {
		return meds.MedicationRecord{}, &ValidationError{Field: "name", Reason: ErrNameRequired}
	}

	var dose *float64
	if strings.TrimSpace(f.Dose) != "" {
		v, err := meds.ParseNumber(f.Dose)
		if err != nil {
			return meds.MedicationRecord{}, &ValidationError{Field: "dose", Reason: ErrDoseInvalid}
		}
		dose = meds.Dose(meds.NormalizeNumber(v))
	}

	return meds.MedicationRecord{
		Name:                 name,
		Substance:            strings.TrimSpace(f.Substance),
		DoseMg:               dose,
		RequiresPrescription: f.RequiresPrescription,
		Notes:                strings.TrimSpace(f.Notes),
		Reminder: &meds.Reminder{
			Interval: interval,
			Unit:     unit,
			Message:  reminderMessage(name),
			Repeat:   true,
		},
	}, nil
}

func parseInterval(raw string, unit meds.Unit) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, &ValidationError{Field: "interval", Reason: ErrIntervalRequired}
	}
	v, err := meds.ParseNumber(raw)
	if err != nil {
		return 0, &ValidationError{Field: "interval", Reason: ErrIntervalInvalid}
	}
	if v <= 0 {
		return 0, &ValidationError{Field: "interval", Reason: ErrIntervalNotPositive}
	}
	v = meds.NormalizeNumber(v)
	if (meds.Reminder{Interval: v, Unit: unit}).Overflows() {
		return 0, &ValidationError{Field: "interval", Reason: ErrIntervalTooLarge}
	}
	return v, nil
}

func reminderMessage(name string) string {
	if name == "" {
		return "Medication reminder"
	}
	return "Reminder: " + name
}
