// Package form validates the add/edit form and drives the store and the
// reminder scheduler from it.
package form

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeanpaul/dosely/internal/logger"
	"github.com/jeanpaul/dosely/internal/meds"
	"golang.org/x/exp/slog"
)

var (
	ErrNoEditTarget = errors.New("no medication selected for editing")
	ErrUnexpected   = errors.New("unexpected error")
	ErrNoScheduler  = errors.New("reminders are disabled")
)

const testNotification = "This is a test reminder"

type Store interface {
	LoadUserList() []meds.MedicationRecord
	AppendRecord(rec meds.MedicationRecord) (int, error)
	UpdateRecord(index int, rec meds.MedicationRecord) error
}

type Scheduler interface {
	ScheduleReminder(index int, r meds.Reminder) error
	ScheduleAdHoc(delay time.Duration, message string, repeat bool) (int, error)
	Notify(message string) error
}

// Outcome is the result of a save that reached the store.
type Outcome struct {
	Index   int
	Record  meds.MedicationRecord
	Message string
	// Degraded is set when the record was saved but its reminder could not
	// be armed. SchedErr carries the reason.
	Degraded bool
	SchedErr error
}

type Controller struct {
	store       Store
	sched       Scheduler
	log         *slog.Logger
	defaultUnit meds.Unit
}

type Option func(*Controller)

func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithDefaultUnit sets the unit proposed by Prefill.
func WithDefaultUnit(u meds.Unit) Option {
	return func(c *Controller) { c.defaultUnit = u }
}

func New(store Store, sched Scheduler, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		sched:       sched,
		log:         logger.Discard(),
		defaultUnit: meds.UnitHours,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With(slog.String("component", "form"))
	return c
}

// Save validates f and persists it, appending when editIndex is nil and
// replacing the record at *editIndex otherwise. The reminder for the saved
// index is then re-armed. A scheduling failure does not undo the save.
func (c *Controller) Save(f Fields, editIndex *int) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("save panicked", slog.Any("panic", r))
			out, err = Outcome{}, fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
	}()

	rec, err := Validate(f)
	if err != nil {
		return Outcome{}, err
	}

	verb := "saved"
	index := -1
	if editIndex != nil {
		index = *editIndex
		if index < 0 {
			return Outcome{}, ErrNoEditTarget
		}
		if err := c.store.UpdateRecord(index, rec); err != nil {
			return Outcome{}, err
		}
		verb = "updated"
	} else {
		index, err = c.store.AppendRecord(rec)
		if err != nil {
			return Outcome{}, err
		}
	}

	out = Outcome{Index: index, Record: rec}
	if err := c.arm(index, *rec.Reminder); err != nil {
		c.log.Warn("reminder not armed", slog.Int("index", index), slog.String("error", err.Error()))
		out.Degraded = true
		out.SchedErr = err
		out.Message = "Saved, but the reminder failed: " + err.Error()
		return out, nil
	}

	out.Message = fmt.Sprintf("Medication %s. Reminder every %s", verb, rec.Reminder.Every())
	c.log.Info("medication "+verb, slog.Int("index", index), slog.String("name", rec.Name))
	return out, nil
}

func (c *Controller) arm(index int, r meds.Reminder) error {
	if c.sched == nil {
		return ErrNoScheduler
	}
	return c.sched.ScheduleReminder(index, r)
}

// UserMessage renders an error returned by this package for display.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return capitalize(ve.Reason.Error())
	case errors.Is(err, ErrNoEditTarget):
		return capitalize(ErrNoEditTarget.Error())
	case errors.Is(err, ErrUnexpected):
		return "Save failed: unexpected error"
	default:
		return "Save failed: " + err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Prefill builds form values from a catalog entry. The interval is left for
// the user.
func (c *Controller) Prefill(e meds.CatalogEntry) Fields {
	return Fields{
		Name:                 e.Name,
		Substance:            e.Substance,
		Dose:                 meds.FormatDose(e.DoseMg),
		RequiresPrescription: e.RequiresPrescription,
		Unit:                 c.defaultUnit.String(),
	}
}

// FieldsFromRecord builds form values for editing a stored record.
func (c *Controller) FieldsFromRecord(rec meds.MedicationRecord) Fields {
	f := Fields{
		Name:                 rec.Name,
		Substance:            rec.Substance,
		Dose:                 meds.FormatDose(rec.DoseMg),
		RequiresPrescription: rec.RequiresPrescription,
		Notes:                rec.Notes,
		Unit:                 c.defaultUnit.String(),
	}
	if rec.Reminder != nil {
		if rec.Reminder.Interval > 0 {
			f.Interval = meds.FormatNumber(rec.Reminder.Interval)
		}
		f.Unit = rec.Reminder.Unit.String()
	}
	return f
}

// RestoreReminders arms the reminder of every stored record that has one.
// It returns how many were armed and the joined errors of the rest.
func (c *Controller) RestoreReminders() (int, error) {
	if c.sched == nil {
		return 0, ErrNoScheduler
	}

	var (
		armed int
		errs  []error
	)
	for i, rec := range c.store.LoadUserList() {
		if rec.Reminder == nil || rec.Reminder.IntervalSeconds() <= 0 {
			continue
		}
		r := *rec.Reminder
		if r.Message == "" {
			r.Message = reminderMessage(rec.Name)
		}
		if err := c.sched.ScheduleReminder(i, r); err != nil {
			errs = append(errs, err)
			continue
		}
		armed++
	}
	c.log.Info("reminders restored", slog.Int("armed", armed), slog.Int("failed", len(errs)))
	return armed, errors.Join(errs...)
}

// ScheduleAdHoc arms a repeating reminder from the form's interval without
// saving anything. The name is optional here.
func (c *Controller) ScheduleAdHoc(f Fields) (string, error) {
	unit := meds.ParseUnit(f.Unit)
	interval, err := parseInterval(f.Interval, unit)
	if err != nil {
		return "", err
	}
	if c.sched == nil {
		return "", ErrNoScheduler
	}

	r := meds.Reminder{
		Interval: interval,
		Unit:     unit,
		Message:  reminderMessage(strings.TrimSpace(f.Name)),
		Repeat:   true,
	}
	if _, err := c.sched.ScheduleAdHoc(r.Delay(), r.Message, r.Repeat); err != nil {
		return "", err
	}
	return "Reminder scheduled every " + r.Every(), nil
}

// TestNotification sends one notification now and schedules a second one
// after delay.
func (c *Controller) TestNotification(delay time.Duration) (string, error) {
	if c.sched == nil {
		return "", ErrNoScheduler
	}
	if err := c.sched.Notify(testNotification); err != nil {
		return "", fmt.Errorf("could not send notification: %w", err)
	}
	msg := fmt.Sprintf("Scheduled reminder (%s)", delay.Round(time.Millisecond))
	if _, err := c.sched.ScheduleAdHoc(delay, msg, false); err != nil {
		return "", fmt.Errorf("could not schedule notification: %w", err)
	}
	return "Notifications sent", nil
}
