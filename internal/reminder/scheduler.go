// Package reminder arms delayed, optionally repeating notifications keyed by
// the index of the medication record they belong to.
package reminder

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jeanpaul/dosely/internal/logger"
	"github.com/jeanpaul/dosely/internal/meds"
	"golang.org/x/exp/slog"
)

// Notifier is the dispatch side of a reminder.
type Notifier interface {
	Send(title, message string) error
}

var (
	ErrInvalidDelay = errors.New("reminder delay must be at least 1ms")
	ErrNoNotifier   = errors.New("no notifier configured")
	ErrStopped      = errors.New("scheduler stopped")
)

// SchedulingError is returned when a reminder could not be armed.
type SchedulingError struct {
	Index int
	Err   error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule reminder %d: %v", e.Index, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// Firing describes one dispatched reminder. Err is the dispatch error, if any.
type Firing struct {
	Index   int
	Message string
	At      time.Time
	Err     error
}

type entry struct {
	token   uuid.UUID
	timer   *time.Timer
	delay   time.Duration
	message string
	repeat  bool
}

// Scheduler owns every armed reminder. At most one timer is live per index.
type Scheduler struct {
	mu       sync.Mutex
	armed    map[int]*entry
	stopped  bool
	adhoc    int
	notifier Notifier
	title    string
	log      *slog.Logger
	onFire   func(Firing)
}

type Option func(*Scheduler)

// WithTitle sets the notification title. Defaults to "Dosely".
func WithTitle(title string) Option {
	return func(s *Scheduler) { s.title = title }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// OnFire registers a callback run after every dispatch, from the timer's
// goroutine.
func OnFire(fn func(Firing)) Option {
	return func(s *Scheduler) { s.onFire = fn }
}

func New(n Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		armed:    make(map[int]*entry),
		notifier: n,
		title:    "Dosely",
		log:      logger.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(slog.String("component", "scheduler"))
	return s
}

// MinDelay is the shortest delay Schedule accepts.
const MinDelay = time.Millisecond

// Schedule arms a reminder for index, replacing any reminder already armed
// for it. The previous reminder is cancelled even when the new one is
// rejected. With repeat set the same delay is re-armed after every firing.
func (s *Scheduler) Schedule(index int, delay time.Duration, message string, repeat bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return &SchedulingError{Index: index, Err: ErrStopped}
	}
	s.cancelLocked(index)

	if s.notifier == nil {
		return &SchedulingError{Index: index, Err: ErrNoNotifier}
	}
	if delay < MinDelay {
		return &SchedulingError{Index: index, Err: ErrInvalidDelay}
	}

	e := &entry{token: uuid.New(), delay: delay, message: message, repeat: repeat}
	s.armed[index] = e
	s.armLocked(index, e)

	s.log.Debug("reminder armed",
		slog.Int("index", index),
		slog.Duration("delay", delay),
		slog.Bool("repeat", repeat),
		slog.String("token", e.token.String()))
	return nil
}

// ScheduleReminder arms r for the record at index.
func (s *Scheduler) ScheduleReminder(index int, r meds.Reminder) error {
	return s.Schedule(index, r.Delay(), r.Message, r.Repeat)
}

// ScheduleAdHoc arms a reminder that belongs to no stored record. It gets a
// negative key so it never collides with a record index.
func (s *Scheduler) ScheduleAdHoc(delay time.Duration, message string, repeat bool) (int, error) {
	s.mu.Lock()
	s.adhoc--
	key := s.adhoc
	s.mu.Unlock()

	if err := s.Schedule(key, delay, message, repeat); err != nil {
		return 0, err
	}
	return key, nil
}

// Notify sends message right away.
func (s *Scheduler) Notify(message string) error {
	if s.notifier == nil {
		return ErrNoNotifier
	}
	return s.notifier.Send(s.title, message)
}

// Cancel disarms index and reports whether something was armed.
func (s *Scheduler) Cancel(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(index)
}

func (s *Scheduler) IsArmed(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[index]
	return ok
}

// Active returns the armed indices in ascending order.
func (s *Scheduler) Active() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, 0, len(s.armed))
	for idx := range s.armed {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Stop cancels everything. Later calls to Schedule fail with ErrStopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx := range s.armed {
		s.cancelLocked(idx)
	}
	s.stopped = true
}

func (s *Scheduler) cancelLocked(index int) bool {
	e, ok := s.armed[index]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.armed, index)
	s.log.Debug("reminder cancelled", slog.Int("index", index), slog.String("token", e.token.String()))
	return true
}

func (s *Scheduler) armLocked(index int, e *entry) {
	token := e.token
	e.timer = time.AfterFunc(e.delay, func() { s.fire(index, token) })
}

func (s *Scheduler) fire(index int, token uuid.UUID) {
	s.mu.Lock()
	e, ok := s.armed[index]
	if !ok || e.token != token {
		// Cancelled or replaced after the timer went off.
		s.mu.Unlock()
		return
	}
	if e.repeat {
		s.armLocked(index, e)
	} else {
		delete(s.armed, index)
	}
	message := e.message
	onFire := s.onFire
	s.mu.Unlock()

	err := s.notifier.Send(s.title, message)
	if err != nil {
		// A repeating series keeps its timer; the next attempt is the next interval.
		s.log.Warn("notification failed",
			slog.Int("index", index),
			slog.String("message", message),
			slog.String("error", err.Error()))
	} else {
		s.log.Info("notification sent", slog.Int("index", index), slog.String("message", message))
	}

	if onFire != nil {
		onFire(Firing{Index: index, Message: message, At: time.Now(), Err: err})
	}
}
