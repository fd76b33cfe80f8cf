package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/exp/slog"

	"github.com/jeanpaul/dosely/internal/config"
	"github.com/jeanpaul/dosely/internal/form"
	"github.com/jeanpaul/dosely/internal/headless"
	"github.com/jeanpaul/dosely/internal/health"
	"github.com/jeanpaul/dosely/internal/logger"
	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/jeanpaul/dosely/internal/notify"
	"github.com/jeanpaul/dosely/internal/reminder"
	"github.com/jeanpaul/dosely/internal/sheet"
	"github.com/jeanpaul/dosely/internal/store"
	"github.com/jeanpaul/dosely/internal/tui"
	"github.com/jeanpaul/dosely/pkg/version"
)

// app bundles what every command needs.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *store.Store
	notifier notify.Notifier
	logFile  io.Closer
}

func main() {
	storageFlag := flag.String("storage", "", "Storage directory (overrides config)")
	notifierFlag := flag.String("notifier", "", "Notification backend: desktop, log or none")
	versionFlag := flag.Bool("version", false, "Print version")
	helpFlag := flag.Bool("help", false, "Show help")
	flag.BoolVar(helpFlag, "h", false, "Show help")

	flag.Usage = showHelp
	flag.Parse()

	if *helpFlag {
		showHelp()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("dosely %s (%s)\n", version.Version, version.Commit)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("config error: %s", err)
	}
	if *storageFlag != "" {
		cfg.StorageDir = *storageFlag
	}
	if *notifierFlag != "" {
		cfg.Notifier = *notifierFlag
		if err := cfg.Validate(); err != nil {
			fatal("%s", err)
		}
	}
	tui.SetTheme(cfg.Theme)

	args := flag.Args()
	if len(args) == 0 {
		launchTUI(cfg)
		return
	}

	switch args[0] {
	case "run":
		cmdRun(cfg)
	case "list":
		cmdList(cfg)
	case "search":
		cmdSearch(cfg, strings.Join(args[1:], " "))
	case "add":
		cmdAdd(cfg, args[1:])
	case "export":
		if len(args) < 2 {
			fatal("usage: dosely export <file.xlsx>")
		}
		cmdExport(cfg, args[1])
	case "import-catalog":
		if len(args) < 2 {
			fatal("usage: dosely import-catalog <file.xlsx|glob>")
		}
		cmdImportCatalog(cfg, args[1])
	case "test-notify":
		cmdTestNotify(cfg)
	case "doctor":
		cmdDoctor(cfg)
	case "config":
		if len(args) < 2 || args[1] != "init" {
			fatal("usage: dosely config init")
		}
		cmdConfigInit()
	case "help":
		cmdHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		showHelp()
		os.Exit(2)
	}
}

// newApp builds the shared pieces. Logs go to w.
func newApp(cfg *config.Config, w io.Writer) *app {
	log := logger.NewWithWriter(cfg.Env, w)
	st := store.New(cfg.StorageDir, store.WithLogger(log))
	if err := st.EnsureStorage(); err != nil {
		log.Warn("storage not ready", slog.String("error", err.Error()))
	}
	n, err := notify.New(cfg.Notifier, cfg.AppName, log)
	if err != nil {
		fatal("%s", err)
	}
	return &app{cfg: cfg, log: log, store: st, notifier: n}
}

func (a *app) close() {
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func (a *app) scheduler(opts ...reminder.Option) *reminder.Scheduler {
	opts = append([]reminder.Option{
		reminder.WithTitle(a.cfg.AppName),
		reminder.WithLogger(a.log),
	}, opts...)
	return reminder.New(a.notifier, opts...)
}

func (a *app) controller(sched *reminder.Scheduler) *form.Controller {
	return form.New(a.store, sched,
		form.WithLogger(a.log),
		form.WithDefaultUnit(meds.ParseUnit(a.cfg.DefaultUnit)))
}

func launchTUI(cfg *config.Config) {
	// The screen belongs to the UI, so logs go to a file.
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(cfg.StorageDir, "dosely.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fatal("cannot create %s: %s", filepath.Dir(logPath), err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fatal("cannot open log file: %s", err)
	}
	a := newApp(cfg, f)
	a.logFile = f
	defer a.close()

	// Timers may fire before the program exists and from their own goroutines.
	var prog atomic.Pointer[tea.Program]
	sched := a.scheduler(reminder.OnFire(func(fr reminder.Firing) {
		if p := prog.Load(); p != nil {
			p.Send(tui.ReminderFiredMsg(fr))
		}
	}))
	defer sched.Stop()

	ctrl := a.controller(sched)
	m := tui.NewModel(tui.Deps{
		Store:       a.store,
		Form:        ctrl,
		Armed:       sched.Active,
		Export:      sheet.Export,
		TestDelay:   seconds(cfg.TestDelaySeconds),
		DefaultUnit: meds.ParseUnit(cfg.DefaultUnit),
		AppName:     cfg.AppName,
	})

	var opts []tea.ProgramOption
	if isTerminal() {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)
	prog.Store(p)

	n, err := ctrl.RestoreReminders()
	if err != nil {
		a.log.Warn("restore reminders", slog.String("error", err.Error()))
	}
	// Send blocks until the program loop is running.
	go p.Send(tui.RemindersRestoredMsg{Armed: n, Err: err})

	if _, err := p.Run(); err != nil {
		fatal("TUI error: %s", err)
	}
}

func cmdRun(cfg *config.Config) {
	a := newApp(cfg, os.Stderr)
	defer a.close()

	firings := make(chan reminder.Firing, 16)
	sched := a.scheduler(reminder.OnFire(func(f reminder.Firing) {
		select {
		case firings <- f:
		default:
			a.log.Warn("firing dropped", slog.Int("index", f.Index))
		}
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := headless.Run(ctx, a.controller(sched), sched, firings, os.Stdout); err != nil {
		fatal("%s", err)
	}
}

func cmdList(cfg *config.Config) {
	a := newApp(cfg, os.Stderr)
	defer a.close()

	records := a.store.LoadUserList()
	if len(records) == 0 {
		fmt.Println(tui.HelpStyle.Render("No medications yet. Add one with: dosely add --name <name> --every <n>"))
		return
	}
	for i, r := range records {
		fmt.Printf("  %s %s\n", tui.TitleStyle.Render(fmt.Sprintf("%2d.", i+1)), r.Title())
		if sub := r.Subtitle(); sub != "" {
			fmt.Printf("      %s\n", tui.SubtitleStyle.Render(sub))
		}
		if r.Notes != "" {
			fmt.Printf("      %s\n", tui.HelpStyle.Render(r.Notes))
		}
	}
}

func cmdSearch(cfg *config.Config, query string) {
	a := newApp(cfg, os.Stderr)
	defer a.close()

	results := a.store.SearchCatalog(query)
	if len(results) == 0 {
		fmt.Println(tui.HelpStyle.Render("No matches for " + query))
		return
	}
	for _, e := range results {
		line := e.Title()
		if e.Substance != "" && e.Substance != e.Name {
			line += tui.SubtitleStyle.Render(" · " + e.Substance)
		}
		if e.RequiresPrescription {
			line += tui.SubtitleStyle.Render(" · Rx")
		}
		fmt.Println("  " + line)
	}
}

func cmdAdd(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "Medication name")
	substance := fs.String("substance", "", "Active substance")
	dose := fs.String("dose", "", "Dose in mg")
	notes := fs.String("notes", "", "Notes")
	every := fs.String("every", "", "Reminder interval")
	unit := fs.String("unit", cfg.DefaultUnit, "Interval unit: hours or days")
	rx := fs.Bool("rx", false, "Requires prescription")
	edit := fs.Int("edit", 0, "Replace the medication with this number (as shown by list)")
	from := fs.String("from", "", "Prefill from the first catalog match of this query")
	fs.Parse(args)

	a := newApp(cfg, os.Stderr)
	defer a.close()
	sched := a.scheduler()
	defer sched.Stop()
	ctrl := a.controller(sched)

	fields := form.Fields{}
	if *from != "" {
		matches := a.store.SearchCatalog(*from)
		if len(matches) == 0 {
			fatal("no catalog entry matches %q", *from)
		}
		fields = ctrl.Prefill(matches[0])
	}
	// Explicit flags win over the catalog.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			fields.Name = *name
		case "substance":
			fields.Substance = *substance
		case "dose":
			fields.Dose = *dose
		case "notes":
			fields.Notes = *notes
		case "rx":
			fields.RequiresPrescription = *rx
		}
	})
	fields.Interval = *every
	fields.Unit = *unit

	editIndex, err := editIndexFlag(fs, *edit)
	if err != nil {
		fatal("%s", err)
	}

	out, err := ctrl.Save(fields, editIndex)
	if err != nil {
		fatal("%s", form.UserMessage(err))
	}
	if out.Degraded {
		fmt.Println(tui.ErrorStyle.Render(out.Message))
		return
	}
	fmt.Println(tui.SuccessStyle.Render(out.Message))
	fmt.Println(tui.HelpStyle.Render("Reminders fire while `dosely` or `dosely run` is running."))
}

func cmdExport(cfg *config.Config, path string) {
	a := newApp(cfg, os.Stderr)
	defer a.close()

	records := a.store.LoadUserList()
	if err := sheet.Export(path, records, a.store.LoadCatalog()); err != nil {
		fatal("export failed: %s", err)
	}
	fmt.Println(tui.SuccessStyle.Render(fmt.Sprintf("Exported %d medication(s) to %s", len(records), path)))
}

func cmdImportCatalog(cfg *config.Config, pattern string) {
	a := newApp(cfg, os.Stderr)
	defer a.close()

	entries, files, err := sheet.ImportCatalogGlob(pattern)
	if err != nil {
		fatal("import failed: %s", err)
	}
	if len(entries) == 0 {
		fatal("no catalog rows found in %s", strings.Join(files, ", "))
	}
	if err := a.store.ReplaceCatalog(entries); err != nil {
		fatal("import failed: %s", err)
	}
	fmt.Println(tui.SuccessStyle.Render(fmt.Sprintf("Imported %d catalog entries from %d file(s)", len(entries), len(files))))
}

func cmdTestNotify(cfg *config.Config) {
	a := newApp(cfg, os.Stderr)
	defer a.close()

	fired := make(chan reminder.Firing, 1)
	sched := a.scheduler(reminder.OnFire(func(f reminder.Firing) { fired <- f }))
	defer sched.Stop()

	delay := seconds(cfg.TestDelaySeconds)
	msg, err := a.controller(sched).TestNotification(delay)
	if err != nil {
		fatal("%s", err)
	}
	fmt.Println(tui.SuccessStyle.Render(msg))
	fmt.Println(tui.HelpStyle.Render(fmt.Sprintf("Waiting %s for the scheduled one...", delay.Round(time.Millisecond))))

	select {
	case f := <-fired:
		if f.Err != nil {
			fatal("scheduled notification failed: %s", f.Err)
		}
		fmt.Println(tui.SuccessStyle.Render("Scheduled notification delivered"))
	case <-time.After(delay + 5*time.Second):
		fatal("scheduled notification did not fire")
	}
}

func cmdDoctor(cfg *config.Config) {
	a := newApp(cfg, io.Discard)
	defer a.close()

	fmt.Println(tui.BannerStyle.Render(tui.Banner))
	fmt.Println(tui.BannerStyle.Render("  Health Check"))
	fmt.Println()

	configPath := ""
	for _, p := range []string{"config.yaml", config.Path()} {
		if _, err := os.Stat(p); err == nil {
			configPath = p
			break
		}
	}
	if configPath == "" {
		configPath = config.Path()
	}

	failed := 0
	for _, s := range health.Check(context.Background(), health.Options{
		StorageDir: cfg.StorageDir,
		ConfigPath: configPath,
		Notifier:   a.notifier,
	}) {
		fmt.Printf("  %s %-10s ... ", tui.SubtitleStyle.Render("●"), tui.TitleStyle.Render(s.Name))
		if s.OK {
			fmt.Printf("%s %s\n", tui.SuccessStyle.Render("✓ "+s.Detail), tui.HelpStyle.Render(s.Latency.Round(time.Microsecond).String()))
			continue
		}
		failed++
		fmt.Println(tui.ErrorStyle.Render("✗ " + s.Error))
	}

	fmt.Println()
	if failed > 0 {
		fmt.Println(tui.ErrorStyle.Render(fmt.Sprintf("  %d check(s) failed.", failed)))
		if cfg.Notifier == config.NotifierDesktop {
			fmt.Println(tui.HelpStyle.Render("  Without a desktop notifier, try: dosely --notifier log run"))
		}
		os.Exit(1)
	}
	fmt.Println(tui.SuccessStyle.Render("  All checks passed!"))
}

func cmdConfigInit() {
	path, created, err := config.WriteDefault(config.Path())
	if err != nil {
		fatal("%s", err)
	}
	if !created {
		fmt.Println(tui.HelpStyle.Render("Config already exists: " + path))
		return
	}
	fmt.Println(tui.SuccessStyle.Render("Wrote " + path))
}

func cmdHelp() {
	showHelp()
	fmt.Print(tui.RenderMarkdown(tui.HelpMarkdown, 80))
}

// editIndexFlag converts the 1-based --edit value into a record index. It
// returns nil when the flag was not given.
func editIndexFlag(fs *flag.FlagSet, n int) (*int, error) {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "edit" {
			set = true
		}
	})
	if !set {
		return nil, nil
	}
	if n < 1 {
		return nil, fmt.Errorf("--edit must be 1 or greater, got %d", n)
	}
	i := n - 1
	return &i, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// isTerminal checks if stdin is a terminal
func isTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, tui.ErrorStyle.Render("error: "+msg))
	os.Exit(1)
}

func showHelp() {
	help := `
` + tui.BannerStyle.Render("Dosely") + ` - medication tracker with reminders

` + tui.TitleStyle.Render("USAGE:") + `
  dosely [flags]                  Start the interactive app
  dosely [flags] <command> [args] Run a command

` + tui.TitleStyle.Render("COMMANDS:") + `
  run                             Keep reminders running without the UI
  list                            List saved medications
  search <query>                  Search the catalog by name or substance
  add --name N --every 8 [--unit hours|days] [--dose 500] [--rx] [--from query] [--edit n]
                                  Save a medication
  export <file.xlsx>              Export medications and catalog
  import-catalog <file.xlsx|glob> Replace the catalog (e.g. 'catalogs/**/*.xlsx')
  test-notify                     Send a test notification
  doctor                          Check storage, notifier and config
  config init                     Write a default config file
  help                            Show this help

` + tui.TitleStyle.Render("FLAGS:") + `
  --storage <dir>                 Storage directory
  --notifier desktop|log|none     Notification backend
  --version                       Show version
  --help, -h                      Show this help

` + tui.TitleStyle.Render("ENVIRONMENT:") + `
  DOSELY_STORAGE_DIR, DOSELY_NOTIFIER, DOSELY_ENV, ... override config.yaml
`
	fmt.Println(help)
}
