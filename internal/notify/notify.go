// Package notify delivers reminder notifications to the host.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/exp/slog"
)

// Notifier is fire-and-forget from the caller's point of view: an error only
// means the platform reported a failure.
type Notifier interface {
	Send(title, message string) error
}

// Func adapts a plain function to Notifier.
type Func func(title, message string) error

func (f Func) Send(title, message string) error { return f(title, message) }

// Desktop shows a system notification through the platform's command line
// helper: notify-send, osascript or PowerShell.
type Desktop struct {
	AppName string
	goos    string
	run     func(name string, args ...string) error
}

func NewDesktop(appName string) *Desktop {
	return &Desktop{AppName: appName, goos: runtime.GOOS, run: runCommand}
}

func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (d *Desktop) Send(title, message string) error {
	name, args, err := d.command(title, message)
	if err != nil {
		return err
	}
	return d.run(name, args...)
}

func (d *Desktop) command(title, message string) (string, []string, error) {
	switch d.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		args := []string{}
		if d.AppName != "" {
			args = append(args, "--app-name="+d.AppName)
		}
		return "notify-send", append(args, title, message), nil
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, appleScriptQuote(message), appleScriptQuote(title))
		return "osascript", []string{"-e", script}, nil
	case "windows":
		script := fmt.Sprintf(
			`[System.Reflection.Assembly]::LoadWithPartialName('System.Windows.Forms') | Out-Null; [System.Windows.Forms.MessageBox]::Show('%s', '%s') | Out-Null`,
			powerShellQuote(message), powerShellQuote(title))
		return "powershell", []string{"-NoProfile", "-Command", script}, nil
	default:
		return "", nil, fmt.Errorf("desktop notifications are not supported on %s", d.goos)
	}
}

// Available reports whether the helper binary for this platform is on PATH.
func (d *Desktop) Available() error {
	name, _, err := d.command("", "")
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	return nil
}

func appleScriptQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func powerShellQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Log writes notifications to the logger instead of the desktop.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Send(title, message string) error {
	l.log.Info("notification", slog.String("title", title), slog.String("message", message))
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Send(string, string) error { return nil }

// New picks a backend by name: desktop, log or none.
func New(kind, appName string, log *slog.Logger) (Notifier, error) {
	switch kind {
	case "desktop", "":
		return NewDesktop(appName), nil
	case "log":
		return NewLog(log), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", kind)
	}
}
