package form

import (
	"errors"
	"testing"
	"time"

	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/jeanpaul/dosely/internal/notify"
	"github.com/jeanpaul/dosely/internal/reminder"
	"github.com/jeanpaul/dosely/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	armed   map[int]meds.Reminder
	adhoc   []string
	sent    []string
	failFor map[int]error
	notErr  error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: map[int]meds.Reminder{}, failFor: map[int]error{}}
}

func (f *fakeScheduler) ScheduleReminder(index int, r meds.Reminder) error {
	if err := f.failFor[index]; err != nil {
		return err
	}
	f.armed[index] = r
	return nil
}

func (f *fakeScheduler) ScheduleAdHoc(delay time.Duration, message string, repeat bool) (int, error) {
	f.adhoc = append(f.adhoc, message)
	return -len(f.adhoc), nil
}

func (f *fakeScheduler) Notify(message string) error {
	f.sent = append(f.sent, message)
	return f.notErr
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New("/storage", store.WithFs(afero.NewMemMapFs()))
}

func TestValidate_Order(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   error
		field  string
	}{
		{"empty interval", Fields{Name: "A", Interval: ""}, ErrIntervalRequired, "interval"},
		{"blank interval", Fields{Name: "A", Interval: "   "}, ErrIntervalRequired, "interval"},
		{"non numeric interval", Fields{Name: "A", Interval: "abc"}, ErrIntervalInvalid, "interval"},
		{"zero interval", Fields{Name: "A", Interval: "0"}, ErrIntervalNotPositive, "interval"},
		{"negative interval", Fields{Name: "A", Interval: "-2"}, ErrIntervalNotPositive, "interval"},
		{"interval checked before name", Fields{Name: "", Interval: "x"}, ErrIntervalInvalid, "interval"},
		{"missing name", Fields{Name: "  ", Interval: "8"}, ErrNameRequired, "name"},
		{"bad dose", Fields{Name: "A", Interval: "8", Dose: "five"}, ErrDoseInvalid, "dose"},
		{"name checked before dose", Fields{Interval: "8", Dose: "five"}, ErrNameRequired, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.fields)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_DistinctIntervalReasons(t *testing.T) {
	reasons := map[string]bool{}
	for _, in := range []string{"", "abc", "0"} {
		_, err := Validate(Fields{Name: "A", Interval: in})
		require.Error(t, err)
		reasons[err.Error()] = true
	}
	assert.Len(t, reasons, 3)
}

func TestValidate_DoseNormalization(t *testing.T) {
	tests := []struct {
		dose string
		want *float64
	}{
		{"500", meds.Dose(500)},
		{"500.0", meds.Dose(500)},
		{"500,0", meds.Dose(500)},
		{"500.5", meds.Dose(500.5)},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.dose, func(t *testing.T) {
			rec, err := Validate(Fields{Name: "A", Interval: "8", Dose: tt.dose})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.DoseMg)
		})
	}
}

func TestValidate_BuildsRecord(t *testing.T) {
	rec, err := Validate(Fields{
		Name:                 " Aspirina ",
		Substance:            " Ácido acetilsalicílico",
		Dose:                 "100",
		RequiresPrescription: true,
		Notes:                " con agua ",
		Interval:             "1,5",
		Unit:                 "Días",
	})
	require.NoError(t, err)

	assert.Equal(t, "Aspirina", rec.Name)
	assert.Equal(t, "Ácido acetilsalicílico", rec.Substance)
	assert.Equal(t, "con agua", rec.Notes)
	assert.True(t, rec.RequiresPrescription)
	require.NotNil(t, rec.Reminder)
	assert.Equal(t, meds.Reminder{Interval: 1.5, Unit: meds.UnitDays, Message: "Reminder: Aspirina", Repeat: true}, *rec.Reminder)
}

func TestSave_AppendArmsReminder(t *testing.T) {
	st := newStore(t)
	sched := newFakeScheduler()
	c := New(st, sched)

	out, err := c.Save(Fields{Name: "Aspirina", Interval: "8", Unit: "hours"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Index)
	assert.False(t, out.Degraded)
	assert.Equal(t, "Medication saved. Reminder every 8 hours", out.Message)

	r, ok := sched.armed[0]
	require.True(t, ok)
	assert.Equal(t, 8*time.Hour, r.Delay())
	assert.True(t, r.Repeat)

	list := st.LoadUserList()
	require.Len(t, list, 1)
	assert.Equal(t, out.Record, list[0])
}

func TestSave_Edit(t *testing.T) {
	st := newStore(t)
	sched := newFakeScheduler()
	c := New(st, sched)

	_, err := c.Save(Fields{Name: "Omeprazol", Interval: "24"}, nil)
	require.NoError(t, err)

	idx := 0
	out, err := c.Save(Fields{Name: "Omeprazol", Dose: "20", Interval: "2", Unit: "dias"}, &idx)
	require.NoError(t, err)
	assert.Equal(t, "Medication updated. Reminder every 2 days", out.Message)
	assert.Equal(t, meds.UnitDays, sched.armed[0].Unit)
	assert.Len(t, st.LoadUserList(), 1)

	missing := 7
	_, err = c.Save(Fields{Name: "X", Interval: "1"}, &missing)
	assert.ErrorIs(t, err, store.ErrNoSuchIndex)
	assert.Contains(t, UserMessage(err), "Save failed: ")

	negative := -1
	_, err = c.Save(Fields{Name: "X", Interval: "1"}, &negative)
	assert.ErrorIs(t, err, ErrNoEditTarget)
}

func TestSave_SchedulingFailureKeepsRecord(t *testing.T) {
	st := newStore(t)
	sched := newFakeScheduler()
	sched.failFor[0] = errors.New("notifier unavailable")
	c := New(st, sched)

	out, err := c.Save(Fields{Name: "Metformina", Interval: "12"}, nil)
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.EqualError(t, out.SchedErr, "notifier unavailable")
	assert.Equal(t, "Saved, but the reminder failed: notifier unavailable", out.Message)
	assert.Len(t, st.LoadUserList(), 1)
}

func TestSave_NoScheduler(t *testing.T) {
	c := New(newStore(t), nil)
	out, err := c.Save(Fields{Name: "A", Interval: "1"}, nil)
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.ErrorIs(t, out.SchedErr, ErrNoScheduler)
}

func TestSave_ValidationLeavesStoreUntouched(t *testing.T) {
	st := newStore(t)
	c := New(st, newFakeScheduler())

	_, err := c.Save(Fields{Name: "A", Interval: "0"}, nil)
	require.Error(t, err)
	assert.Equal(t, "Must be greater than 0", UserMessage(err))
	assert.Empty(t, st.LoadUserList())
}

type panickyStore struct{ Store }

func (panickyStore) AppendRecord(meds.MedicationRecord) (int, error) { panic("disk on fire") }

func TestSave_RecoversPanic(t *testing.T) {
	c := New(panickyStore{}, newFakeScheduler())
	_, err := c.Save(Fields{Name: "A", Interval: "1"}, nil)
	assert.ErrorIs(t, err, ErrUnexpected)
	assert.Equal(t, "Save failed: unexpected error", UserMessage(err))
}

func TestSave_WithRealScheduler(t *testing.T) {
	st := newStore(t)
	sched := reminder.New(notify.Nop{})
	defer sched.Stop()
	c := New(st, sched)

	out, err := c.Save(Fields{Name: "Aspirina", Interval: "8", Unit: "hours"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{out.Index}, sched.Active())

	// Saving the same index again replaces its timer.
	_, err = c.Save(Fields{Name: "Aspirina", Interval: "6"}, &out.Index)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sched.Active())
}

func TestSave_EditToTinyIntervalDisarmsOldReminder(t *testing.T) {
	st := newStore(t)
	sched := reminder.New(notify.Nop{})
	defer sched.Stop()
	c := New(st, sched)

	out, err := c.Save(Fields{Name: "Aspirina", Interval: "8"}, nil)
	require.NoError(t, err)
	require.Equal(t, []int{0}, sched.Active())

	out, err = c.Save(Fields{Name: "Aspirina", Interval: "0.0000000001"}, &out.Index)
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.ErrorIs(t, out.SchedErr, reminder.ErrInvalidDelay)
	assert.Empty(t, sched.Active())

	rec, err := st.Record(0)
	require.NoError(t, err)
	require.NotNil(t, rec.Reminder)
	assert.Greater(t, rec.Reminder.Interval, 0.0)
	assert.Equal(t, 1e-10, rec.Reminder.Interval)
}

func TestSave_EditToOverflowingIntervalIsRejected(t *testing.T) {
	st := newStore(t)
	sched := reminder.New(notify.Nop{})
	defer sched.Stop()
	c := New(st, sched)

	out, err := c.Save(Fields{Name: "Aspirina", Interval: "8"}, nil)
	require.NoError(t, err)

	_, err = c.Save(Fields{Name: "Aspirina", Interval: "3000000"}, &out.Index)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "interval", ve.Field)
	assert.ErrorIs(t, err, ErrIntervalTooLarge)
	assert.Equal(t, "Interval is too large", UserMessage(err))

	// Rejected input changes nothing: the stored record and its timer stay.
	rec, err := st.Record(0)
	require.NoError(t, err)
	assert.Equal(t, float64(8), rec.Reminder.Interval)
	assert.Equal(t, []int{0}, sched.Active())

	_, err = c.ScheduleAdHoc(Fields{Interval: "200000", Unit: "days"})
	assert.ErrorIs(t, err, ErrIntervalTooLarge)
}

func TestPrefillAndFieldsFromRecord(t *testing.T) {
	c := New(newStore(t), nil, WithDefaultUnit(meds.UnitDays))

	f := c.Prefill(meds.CatalogEntry{Name: "Ibuprofeno", Substance: "Ibuprofeno", DoseMg: meds.Dose(400)})
	assert.Equal(t, Fields{Name: "Ibuprofeno", Substance: "Ibuprofeno", Dose: "400", Unit: "days"}, f)

	f = c.FieldsFromRecord(meds.MedicationRecord{
		Name:     "Amoxicilina",
		DoseMg:   meds.Dose(500.5),
		Notes:    "n",
		Reminder: &meds.Reminder{Interval: 8, Unit: meds.UnitHours},
	})
	assert.Equal(t, "500.5", f.Dose)
	assert.Equal(t, "8", f.Interval)
	assert.Equal(t, "hours", f.Unit)
	assert.Equal(t, "n", f.Notes)
}

func TestRestoreReminders(t *testing.T) {
	st := newStore(t)
	for _, rec := range []meds.MedicationRecord{
		{Name: "A", Reminder: &meds.Reminder{Interval: 8, Unit: meds.UnitHours, Repeat: true}},
		{Name: "B"},
		{Name: "C", Reminder: &meds.Reminder{Interval: 1, Unit: meds.UnitDays, Message: "custom", Repeat: true}},
		{Name: "D", Reminder: &meds.Reminder{Interval: 0}},
	} {
		_, err := st.AppendRecord(rec)
		require.NoError(t, err)
	}

	sched := newFakeScheduler()
	sched.failFor[2] = errors.New("boom")
	n, err := New(st, sched).RestoreReminders()
	assert.Equal(t, 1, n)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "Reminder: A", sched.armed[0].Message)

	delete(sched.failFor, 2)
	n, err = New(st, sched).RestoreReminders()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "custom", sched.armed[2].Message)
}

func TestScheduleAdHoc(t *testing.T) {
	sched := newFakeScheduler()
	c := New(newStore(t), sched)

	msg, err := c.ScheduleAdHoc(Fields{Interval: "0,5", Unit: "hours"})
	require.NoError(t, err)
	assert.Equal(t, "Reminder scheduled every 0.5 hours", msg)
	assert.Equal(t, []string{"Medication reminder"}, sched.adhoc)

	_, err = c.ScheduleAdHoc(Fields{Name: "A", Interval: ""})
	assert.ErrorIs(t, err, ErrIntervalRequired)
}

func TestTestNotification(t *testing.T) {
	sched := newFakeScheduler()
	c := New(newStore(t), sched)

	msg, err := c.TestNotification(7200 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Notifications sent", msg)
	assert.Equal(t, []string{testNotification}, sched.sent)
	assert.Equal(t, []string{"Scheduled reminder (7.2s)"}, sched.adhoc)

	sched.notErr = errors.New("no display")
	_, err = c.TestNotification(time.Second)
	assert.ErrorContains(t, err, "no display")
}
