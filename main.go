package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/drewfead/tasksched/internal/app"
	"github.com/drewfead/tasksched/internal/auth"
	"github.com/drewfead/tasksched/internal/calendar"
	"github.com/drewfead/tasksched/internal/config"
	"github.com/drewfead/tasksched/internal/mirror"
	"github.com/drewfead/tasksched/internal/reconcile"
	"github.com/drewfead/tasksched/internal/task"
	"github.com/urfave/cli/v3"
)

const upcomingCount = 5

// taskService wires configuration, credentials and the calendar together.
// Authentication happens only when a command first needs the calendar.
type taskService struct {
	cfg      *config.Config
	provider auth.SessionProvider
	client   *calendar.Client
	ctrl     *app.Controller
	stdout   io.Writer
}

func newTaskService(cfg *config.Config) *taskService {
	return &taskService{cfg: cfg, stdout: os.Stdout}
}

// ensureProvider resolves the session provider on first use.
func (s *taskService) ensureProvider(ctx context.Context) (auth.SessionProvider, error) {
	if s.provider != nil {
		return s.provider, nil
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	provider, err := auth.NewSessionProvider(ctx, s.cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("Google Calendar integration failed: %w\n\nGoogle Calendar credentials are required.\n\nOption 1: Service Account (set auth.service_account_file)\nOption 2: OAuth Client (place credentials.json in ~/.config/tasksched)", err)
	}
	if _, ok := provider.(*auth.ServiceAccountProvider); ok {
		slog.Info("using service account authentication", "mode", "automated")
	} else {
		slog.Info("using OAuth user authentication", "mode", "interactive")
	}

	s.provider = provider
	return provider, nil
}

func (s *taskService) newClient(ctx context.Context, calendarID string) (*calendar.Client, error) {
	provider, err := s.ensureProvider(ctx)
	if err != nil {
		return nil, err
	}
	httpClient, err := provider.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	client, err := calendar.NewClient(ctx, httpClient, calendarID, s.cfg.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return client.WithDefaultZone(s.cfg.TimeZone), nil
}

// ensureInitialized lazily builds the calendar client for the configured calendar.
func (s *taskService) ensureInitialized(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	client, err := s.newClient(ctx, s.cfg.CalendarID)
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

func (s *taskService) reconciler(ctx context.Context) (*reconcile.Reconciler, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return reconcile.New(s.client, reconcile.WithMaxResults(s.cfg.MaxResults)), nil
}

func (s *taskService) mirror() *mirror.Mirror {
	return mirror.New(s.cfg.DataFile, s.cfg.Location())
}

// controller returns the controller with the task file loaded.
func (s *taskService) controller(ctx context.Context) (*app.Controller, error) {
	if s.ctrl != nil {
		return s.ctrl, nil
	}
	r, err := s.reconciler(ctx)
	if err != nil {
		return nil, err
	}
	ctrl := app.NewController(r, s.mirror(), s.cfg.Location())
	if err := ctrl.Load(); err != nil {
		return nil, err
	}
	s.ctrl = ctrl
	return ctrl, nil
}

func (s *taskService) Close() error {
	if c, ok := s.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *taskService) upcoming(ctx context.Context, _ *cli.Command) error {
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}
	events, err := s.client.Upcoming(ctx, time.Now(), upcomingCount)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(s.stdout, "No upcoming events found.")
		return nil
	}
	fmt.Fprintln(s.stdout, "Upcoming events:")
	for _, e := range events {
		start := ""
		if e.Start != nil {
			start = e.Start.DateTime
			if start == "" {
				start = e.Start.Date
			}
		}
		fmt.Fprintf(s.stdout, "%s %s\n", start, e.Summary)
	}
	return nil
}

func (s *taskService) add(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := s.controller(ctx)
	if err != nil {
		return err
	}

	form := task.Form{
		Month:       cmd.String("month"),
		Day:         cmd.String("day"),
		Year:        cmd.String("year"),
		Hour:        cmd.String("hour"),
		Minute:      cmd.String("minute"),
		Period:      cmd.String("period"),
		Duration:    cmd.String("duration"),
		Task:        cmd.String("task"),
		Description: cmd.String("description"),
	}
	entry, report, err := ctrl.Submit(ctx, form)
	if errors.Is(err, task.ErrInvalidDate) || errors.Is(err, task.ErrInvalidTime) ||
		errors.Is(err, task.ErrInvalidDuration) || errors.Is(err, task.ErrMissingTask) {
		return cli.Exit(err.Error(), 2)
	}
	if err != nil {
		return fmt.Errorf("failed to add task %q: %w", form.Task, err)
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintf(s.stdout, "Task %q saved; it is already on the calendar.\n", entry.Record.Title)
	} else {
		fmt.Fprintf(s.stdout, "Task %q added to Google Calendar.\n", entry.Record.Title)
	}
	return nil
}

func (s *taskService) list(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("remote") {
		ctrl := app.NewController(nil, s.mirror(), s.cfg.Location())
		if err := ctrl.Load(); err != nil {
			return err
		}
		return ctrl.Render(s.stdout)
	}

	ctrl, err := s.controller(ctx)
	if err != nil {
		return err
	}
	if _, err := ctrl.Refresh(ctx); err != nil {
		return err
	}
	return ctrl.Render(s.stdout)
}

func (s *taskService) done(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return cli.Exit("usage: tasksched done N [N...]", 2)
	}
	indexes := make([]int, 0, cmd.NArg())
	for _, arg := range cmd.Args().Slice() {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return cli.Exit(fmt.Sprintf("not a task number: %q", arg), 2)
		}
		indexes = append(indexes, n)
	}

	ctrl, err := s.controller(ctx)
	if err != nil {
		return err
	}
	if err := ctrl.MarkDoneByIndex(indexes...); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	report, err := ctrl.ClearCompleted(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.stdout, "Cleared %d task(s): %d deleted from calendar, %d not found.\n",
		len(report.Deleted)+len(report.NotFound)+len(report.Failures), len(report.Deleted), len(report.NotFound))
	return report.Err()
}

func (s *taskService) delete(ctx context.Context, cmd *cli.Command) error {
	r, err := s.reconciler(ctx)
	if err != nil {
		return err
	}
	outcome, err := r.Delete(ctx, cmd.String("title"), cmd.String("start"))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.stdout, "%s: %s\n", cmd.String("title"), outcome)
	return nil
}

func (s *taskService) sync(ctx context.Context, _ *cli.Command) error {
	ctrl, err := s.controller(ctx)
	if err != nil {
		return err
	}
	report, err := ctrl.Sync(ctx)
	if report != nil {
		fmt.Fprintf(s.stdout, "Created %d, skipped %d, invalid %d, failed %d.\n",
			len(report.Created), len(report.Skipped), report.Invalid, len(report.Failures))
	}
	return err
}

func (s *taskService) backup(ctx context.Context, _ *cli.Command) error {
	ctrl, err := s.controller(ctx)
	if err != nil {
		return err
	}
	n, err := ctrl.Backup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.stdout, "Backed up %d task(s) to %s.\n", n, s.cfg.DataFile)
	return nil
}

func (s *taskService) watch(ctx context.Context, _ *cli.Command) error {
	ctrl, err := s.controller(ctx)
	if err != nil {
		return err
	}
	return ctrl.Watch(ctx, s.cfg.Refresh, func(entries []app.Entry) {
		fmt.Fprintf(s.stdout, "\n%s\n", time.Now().Format(time.Kitchen))
		if err := app.RenderEntries(s.stdout, entries); err != nil {
			slog.Warn("failed to render tasks", "error", err)
		}
	})
}

func (s *taskService) exportICS(_ context.Context, cmd *cli.Command) error {
	records, err := s.mirror().Load()
	if err != nil {
		return err
	}

	path := cmd.String("out")
	if path == "" || path == "-" {
		return mirror.ExportICS(s.stdout, records, time.Now())
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if err := mirror.ExportICS(f, records, time.Now()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	return nil
}

func (s *taskService) authorize(ctx context.Context, _ *cli.Command) error {
	provider, err := s.ensureProvider(ctx)
	if err != nil {
		return err
	}
	oauth, ok := provider.(*auth.OAuthProvider)
	if !ok {
		fmt.Fprintln(s.stdout, "Service account credentials need no authorization.")
		return nil
	}
	if _, err := oauth.Login(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.stdout, "Authorization complete; token stored.")
	return nil
}

func newRootCommand(svc *taskService) *cli.Command {
	return &cli.Command{
		Name:  "tasksched",
		Usage: "schedule tasks on Google Calendar and keep a local copy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file (YAML or TOML)",
				Sources: cli.EnvVars("TASKSCHED_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "data-file",
				Usage:   "local task file",
				Sources: cli.EnvVars("TASKSCHED_DATA_FILE"),
			},
			&cli.StringFlag{
				Name:    "calendar",
				Usage:   "calendar ID",
				Sources: cli.EnvVars("TASKSCHED_CALENDAR_ID"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return ctx, fmt.Errorf("failed to load config: %w", err)
			}
			if v := cmd.String("data-file"); v != "" {
				cfg.DataFile = v
			}
			if v := cmd.String("calendar"); v != "" {
				cfg.CalendarID = v
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))
			svc.cfg = cfg
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			return svc.Close()
		},
		Commands: []*cli.Command{
			{
				Name:   "upcoming",
				Usage:  "print the next events on the configured calendar",
				Action: svc.upcoming,
			},
			{
				Name:  "add",
				Usage: "add a task and create its calendar event",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "month", Required: true, Usage: "1-12"},
					&cli.StringFlag{Name: "day", Required: true, Usage: "1-31"},
					&cli.StringFlag{Name: "year", Usage: "defaults to the current year"},
					&cli.StringFlag{Name: "hour", Usage: "1-12, omit for an untimed task"},
					&cli.StringFlag{Name: "minute", Usage: "00-59"},
					&cli.StringFlag{Name: "period", Value: "AM", Usage: "AM or PM"},
					&cli.StringFlag{Name: "duration", Usage: "hours, e.g. 0.5"},
					&cli.StringFlag{Name: "task", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "description"},
				},
				Action: svc.add,
			},
			{
				Name:  "list",
				Usage: "show the task list",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "remote", Usage: "refresh from the calendar first"},
				},
				Action: svc.list,
			},
			{
				Name:      "done",
				Usage:     "complete tasks by number and remove them from the calendar",
				ArgsUsage: "N [N...]",
				Action:    svc.done,
			},
			{
				Name:  "delete",
				Usage: "delete the first event matching a title and start minute",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "start", Required: true, Usage: "e.g. 2025-04-20T09:00"},
				},
				Action: svc.delete,
			},
			{
				Name:   "sync",
				Usage:  "create calendar events for tasks in the task file",
				Action: svc.sync,
			},
			{
				Name:   "backup",
				Usage:  "write the calendar's events to the task file",
				Action: svc.backup,
			},
			{
				Name:   "watch",
				Usage:  "poll the calendar and print the list when it changes",
				Action: svc.watch,
			},
			{
				Name:  "export-ics",
				Usage: "write the task file as an iCalendar feed",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "-", Usage: "output file, - for stdout"},
				},
				Action: svc.exportICS,
			},
			{
				Name:   "auth",
				Usage:  "run the OAuth consent flow and store the token",
				Action: svc.authorize,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := newTaskService(config.Default())
	if err := newRootCommand(svc).Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
