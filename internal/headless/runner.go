// Package headless keeps reminders running without the terminal UI.
package headless

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jeanpaul/dosely/internal/reminder"
)

// Restorer re-arms the stored reminders.
type Restorer interface {
	RestoreReminders() (int, error)
}

// Run restores reminders, prints every firing to out, and blocks until ctx
// is cancelled. The scheduler is stopped on return.
func Run(ctx context.Context, r Restorer, sched *reminder.Scheduler, firings <-chan reminder.Firing, out io.Writer) error {
	defer sched.Stop()

	n, err := r.RestoreReminders()
	if err != nil {
		fmt.Fprintf(out, "some reminders could not be armed: %v\n", err)
	}
	fmt.Fprintf(out, "%d reminder(s) armed, waiting (Ctrl+C to stop)\n", n)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "stopping")
			return nil
		case f := <-firings:
			stamp := f.At.Format(time.Kitchen)
			if f.Err != nil {
				fmt.Fprintf(out, "[%s] %s (delivery failed: %v)\n", stamp, f.Message, f.Err)
				continue
			}
			fmt.Fprintf(out, "[%s] %s\n", stamp, f.Message)
		}
	}
}
