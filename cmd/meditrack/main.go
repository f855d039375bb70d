package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"meditrack/internal/adherence"
	"meditrack/internal/apperr"
	"meditrack/internal/config"
	"meditrack/internal/medication"
	"meditrack/internal/metrics"
	"meditrack/internal/persist"
	"meditrack/internal/reminders"
	"meditrack/internal/tracker"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			printHelp()
			return
		case "version", "--version", "-v":
			fmt.Printf("meditrack version %s\n", version)
			return
		}
	}

	args := os.Args[1:]
	command := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}
	flag.CommandLine.Parse(args)

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "meditrack: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	switch command {
	case "", "list":
		app.list()
	case "add":
		app.add(flag.CommandLine.Args())
	case "take":
		app.take(flag.CommandLine.Args())
	case "delete":
		app.delete(flag.CommandLine.Args())
	case "next":
		app.next(flag.CommandLine.Args())
	case "stats":
		app.stats()
	case "seed":
		app.seed()
	case "metrics":
		fmt.Print(metrics.Prometheus())
	case "remind":
		app.remind()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *persist.Store
	notifier *reminders.CronNotifier
	tracker  *tracker.Tracker
}

func newApp() (*app, error) {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load env files: %v\n", err)
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	store, err := persist.Open(cfg.Storage.SQLitePath, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	notifier := reminders.NewCronNotifier(printReminder, logger)

	var opts []reminders.Option
	if !cfg.Policy.ExpiredStopsReminders {
		opts = append(opts, reminders.WithExpiredMedications())
	}
	scheduler := reminders.NewScheduler(notifier, logger, opts...)

	policy := adherence.Policy{FreezeExpectedAtEnd: cfg.Policy.ExpiredStopsExpected}
	tr := tracker.New(store, scheduler, logger, tracker.WithPolicy(policy))
	if cfg.Reminders.Enabled {
		tr.RequestPermission(context.Background())
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		notifier: notifier,
		tracker:  tr,
	}, nil
}

func (a *app) Close() {
	a.notifier.Stop()
	a.store.Close()
	a.logger.Sync()
}

// add expects: NAME DOSAGE FREQUENCY HH:MM[,HH:MM...] [CONDITION] [NOTES]
func (a *app) add(args []string) {
	if len(args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: meditrack add NAME DOSAGE FREQUENCY HH:MM[,HH:MM...] [CONDITION] [NOTES]")
		os.Exit(1)
	}

	frequency, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad frequency %q\n", args[2])
		os.Exit(1)
	}

	var times []medication.Time
	for _, spec := range strings.Split(args[3], ",") {
		t, err := parseTime(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad time %q: %v\n", spec, err)
			os.Exit(1)
		}
		times = append(times, t)
	}

	params := medication.Params{
		Name:      args[0],
		Dosage:    args[1],
		Frequency: frequency,
		Times:     times,
	}
	if len(args) > 4 {
		params.Condition = medication.IntakeCondition(args[4])
	}
	if len(args) > 5 {
		params.Notes = strings.Join(args[5:], " ")
	}

	med, err := a.tracker.AddMedication(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rejected: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("added %s (%s) id=%s\n", med.Name, med.Dosage, med.ID)
}

func (a *app) list() {
	state := a.tracker.State()
	if len(state.Medications) == 0 {
		fmt.Println("no medications")
		return
	}
	for _, m := range state.Medications {
		var slots []string
		for _, t := range m.Times {
			slots = append(slots, fmt.Sprintf("%02d:%02d", t.Hour, t.Minute))
		}
		fmt.Printf("%s  %s %s  %dx/day at %s  (%s)\n",
			m.ID, m.Name, m.Dosage, m.Frequency, strings.Join(slots, ", "), m.Condition.Label())
	}
}

func (a *app) take(args []string) {
	id := a.parseID(args)
	a.tracker.MarkDoseTaken(id)
	fmt.Println("dose recorded")
}

func (a *app) delete(args []string) {
	id := a.parseID(args)
	a.tracker.DeleteMedication(id)
	fmt.Println("deleted")
}

func (a *app) next(args []string) {
	id := a.parseID(args)
	next, err := a.tracker.NextDose(id)
	if err == nil {
		fmt.Printf("next dose at %s\n", next.Format("15:04"))
		return
	}
	switch apperr.GetCode(err) {
	case apperr.ErrNoDoseRemaining.Code:
		fmt.Println("no dose remaining today")
	case apperr.ErrMedicationNotFound.Code:
		fmt.Println("medication not found")
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) stats() {
	state := a.tracker.State()
	fmt.Printf("medications:       %d\n", len(state.Medications))
	fmt.Printf("today:             %d\n", len(state.TodaysMedications))
	fmt.Printf("overall adherence: %.0f%%\n", state.OverallAdherence)
	fmt.Printf("daily progress:    %.0f%%\n", state.DailyProgress*100)
}

// seed adds the demo medication when the store is empty.
func (a *app) seed() {
	if len(a.tracker.State().Medications) > 0 {
		fmt.Println("store is not empty, nothing seeded")
		return
	}
	med, err := a.tracker.AddMedication(medication.SampleParams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %s (%s) id=%s\n", med.Name, med.Dosage, med.ID)
}

// remind runs in the foreground, printing reminders as they fire.
func (a *app) remind() {
	if !a.cfg.Reminders.Enabled {
		fmt.Fprintln(os.Stderr, "reminders are disabled in the config")
		os.Exit(1)
	}

	a.notifier.Start()
	a.logger.Info("reminder loop running",
		zap.Int("registrations", a.notifier.Pending()))
	fmt.Println("waiting for reminders, Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func (a *app) parseID(args []string) uuid.UUID {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: meditrack <command> MEDICATION_ID")
		os.Exit(1)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad medication id %q\n", args[0])
		os.Exit(1)
	}
	return id
}

func parseTime(spec string) (medication.Time, error) {
	parsed, err := time.Parse("15:04", spec)
	if err != nil {
		return medication.Time{}, err
	}
	return medication.NewTime(parsed.Hour(), parsed.Minute())
}

func printReminder(title, body string) {
	fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04"), title, body)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func printHelp() {
	fmt.Println(`meditrack - medication schedule and adherence tracker

Usage:
  meditrack add NAME DOSAGE FREQUENCY HH:MM[,HH:MM...] [CONDITION] [NOTES]
  meditrack list
  meditrack take MEDICATION_ID
  meditrack delete MEDICATION_ID
  meditrack next MEDICATION_ID
  meditrack stats
  meditrack seed
  meditrack metrics
  meditrack remind
  meditrack version

Conditions: before_meal, after_meal, with_meal, no_restriction

Flags:
  -config PATH  path to config file
  -data PATH    path to data directory`)
}
