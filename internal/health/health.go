// Package health implements the checks behind `dosely doctor`.
package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeanpaul/dosely/internal/store"
	"github.com/spf13/afero"
)

type Status struct {
	Name    string
	OK      bool
	Detail  string
	Error   string
	Latency time.Duration
}

// Prober is implemented by notifiers that can tell whether they will work.
type Prober interface {
	Available() error
}

type Options struct {
	Fs         afero.Fs
	StorageDir string
	ConfigPath string
	Notifier   any
}

// Check runs every check in order and stops early if ctx is done.
func Check(ctx context.Context, opts Options) []Status {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	checks := []func() Status{
		func() Status { return CheckStorage(opts.Fs, opts.StorageDir) },
		func() Status { return CheckDocuments(opts.Fs, opts.StorageDir) },
		func() Status { return CheckNotifier(opts.Notifier) },
		func() Status { return CheckConfig(opts.Fs, opts.ConfigPath) },
	}

	out := make([]Status, 0, len(checks))
	for _, run := range checks {
		if err := ctx.Err(); err != nil {
			out = append(out, Status{Name: "doctor", Error: err.Error()})
			break
		}
		start := time.Now()
		s := run()
		s.Latency = time.Since(start)
		out = append(out, s)
	}
	return out
}

// CheckStorage verifies dir exists (or can be created) and accepts writes.
func CheckStorage(fs afero.Fs, dir string) Status {
	s := Status{Name: "storage", Detail: dir}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		s.Error = fmt.Sprintf("cannot create %s: %s", dir, friendlyError(err))
		return s
	}
	probe, err := afero.TempFile(fs, dir, ".doctor-*")
	if err != nil {
		s.Error = fmt.Sprintf("%s is not writable: %s", dir, friendlyError(err))
		return s
	}
	name := probe.Name()
	probe.Close()
	fs.Remove(name)
	s.OK = true
	return s
}

// CheckDocuments reports how many records and catalog entries load.
func CheckDocuments(fs afero.Fs, dir string) Status {
	s := Status{Name: "documents"}
	st := store.New(dir, store.WithFs(fs))
	records := st.LoadUserList()
	catalog := st.LoadCatalog()
	s.OK = true
	s.Detail = fmt.Sprintf("%d medications, %d catalog entries", len(records), len(catalog))
	return s
}

// CheckNotifier asks the notifier whether it can deliver.
func CheckNotifier(n any) Status {
	s := Status{Name: "notifier"}
	if n == nil {
		s.Error = "no notifier configured"
		return s
	}
	s.Detail = strings.TrimPrefix(fmt.Sprintf("%T", n), "*")
	if p, ok := n.(Prober); ok {
		if err := p.Available(); err != nil {
			s.Error = err.Error()
			return s
		}
	}
	s.OK = true
	return s
}

// CheckConfig reports which config file is used. A missing file is fine.
func CheckConfig(fs afero.Fs, path string) Status {
	s := Status{Name: "config", OK: true}
	if path == "" {
		s.Detail = "defaults"
		return s
	}
	if _, err := fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			s.Detail = fmt.Sprintf("defaults (%s not found, run `dosely config init`)", filepath.Base(path))
			return s
		}
		s.OK = false
		s.Error = friendlyError(err)
		return s
	}
	s.Detail = path
	return s
}

func friendlyError(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted") {
		return "permission denied"
	}
	if strings.Contains(msg, "read-only file system") {
		return "read-only file system"
	}
	return msg
}
