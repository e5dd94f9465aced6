// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/opsdesk/lib/cadence"
	"github.com/bureau-foundation/opsdesk/lib/clock"
	"github.com/bureau-foundation/opsdesk/lib/config"
	"github.com/bureau-foundation/opsdesk/lib/cron"
	"github.com/bureau-foundation/opsdesk/lib/instancelock"
	"github.com/bureau-foundation/opsdesk/lib/keylock"
	"github.com/bureau-foundation/opsdesk/lib/lifecycle"
	"github.com/bureau-foundation/opsdesk/lib/notify"
	"github.com/bureau-foundation/opsdesk/lib/overdue"
	"github.com/bureau-foundation/opsdesk/lib/service"
	"github.com/bureau-foundation/opsdesk/lib/taskstore"
	"github.com/bureau-foundation/opsdesk/lib/throttle"
	"github.com/bureau-foundation/opsdesk/lib/timer"
	"github.com/bureau-foundation/opsdesk/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		socketPath string
		debug      bool
		showVer    bool
	)

	flags := pflag.NewFlagSet("opsdesk-compliance-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to opsdesk.yaml (default: $OPSDESK_CONFIG)")
	flags.StringVar(&socketPath, "socket", "", "override paths.socket from the config file")
	flags.BoolVar(&debug, "debug", false, "log at debug level")
	flags.BoolVar(&showVer, "version", false, "print version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVer {
		fmt.Printf("opsdesk-compliance-service %s\n", version.Full())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if socketPath != "" {
		cfg.Paths.Socket = socketPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// One service per database.
	lock, err := instancelock.Acquire(cfg.Store.Path + ".lock")
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := taskstore.Open(taskstore.Config{
		Path:     cfg.Store.Path,
		PoolSize: cfg.Store.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("task store open", "path", cfg.Store.Path)

	notifier, closeNotifier, err := openNotifier(cfg.Notify, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	clk := clock.Real()
	complianceService, err := newComplianceService(serviceConfig{
		Store:     store,
		Clock:     clk,
		Scheduler: cadence.Calculator{GraceDays: cfg.Schedule.GraceDays},
		Notifier:  notifier,
		Overdue:   cfg.Overdue,
		Throttle:  cfg.Throttle,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	socketServer := service.NewSocketServer(cfg.Paths.Socket, logger)
	complianceService.registerActions(socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	go complianceService.pruneThrottle(ctx)

	if cfg.Overdue.Enabled {
		go func() {
			if err := complianceService.sweeper.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("overdue sweep stopped", "error", err)
			}
		}()
	}

	logger.Info("compliance service running",
		"version", version.Info(),
		"socket", cfg.Paths.Socket,
		"environment", cfg.Environment,
		"overdue_sweep", cfg.Overdue.Enabled,
		"notify", cfg.Notify.URL != "",
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	return nil
}

// openNotifier connects to NATS behind a bounded queue when a URL is
// configured. The returned close function drains the queue and the
// connection.
func openNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Dispatcher, func(), error) {
	if cfg.URL == "" {
		logger.Info("notifications disabled: notify.url not set")
		return notify.Discard{}, func() {}, nil
	}

	conn, err := notify.Connect(cfg.URL, cfg.ClientName, logger)
	if err != nil {
		return nil, nil, err
	}
	queue := notify.NewQueue(notify.NewNATSDispatcher(conn, cfg.SubjectPrefix, logger), cfg.QueueSize, logger)
	logger.Info("publishing notifications", "url", cfg.URL, "prefix", cfg.SubjectPrefix)

	return queue, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.Close(drainCtx); err != nil {
			logger.Warn("notification queue not drained", "error", err, "dropped", queue.Dropped())
		}
		if err := conn.Drain(); err != nil {
			logger.Warn("draining nats connection", "error", err)
		}
	}, nil
}

// serviceConfig holds everything newComplianceService wires together.
type serviceConfig struct {
	Store     *taskstore.Store
	Clock     clock.Clock
	Scheduler lifecycle.Scheduler
	Notifier  notify.Dispatcher
	Overdue   config.OverdueConfig
	Throttle  config.ThrottleConfig
	Logger    *slog.Logger
}

// ComplianceService holds the engine components behind the socket.
type ComplianceService struct {
	lifecycle *lifecycle.Controller
	timers    *timer.Tracker
	sweeper   *overdue.Sweeper
	scheduler lifecycle.Scheduler
	notifier  notify.Dispatcher
	clock     clock.Clock

	limiter        throttle.Limiter
	throttleLimit  int
	throttleWindow time.Duration

	startedAt time.Time
	logger    *slog.Logger
}

// pruneThrottle drops idle actors from the limiter once per throttle
// window until ctx is cancelled. Actors are caller-supplied, so without
// this the limiter's key set only grows.
func (cs *ComplianceService) pruneThrottle(ctx context.Context) {
	if cs.throttleWindow <= 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-cs.clock.After(cs.throttleWindow):
			remaining := cs.limiter.Prune(cs.throttleWindow)
			cs.logger.Debug("throttle pruned", "actors", remaining)
		}
	}
}

func newComplianceService(cfg serviceConfig) (*ComplianceService, error) {
	locks := &keylock.Set{}

	controller, err := lifecycle.New(lifecycle.Config{
		Store:     cfg.Store,
		Clock:     cfg.Clock,
		Locks:     locks,
		Scheduler: cfg.Scheduler,
		Notifier:  cfg.Notifier,
		Logger:    cfg.Logger.With("component", "lifecycle"),
	})
	if err != nil {
		return nil, err
	}

	tracker, err := timer.New(timer.Config{
		Store:    cfg.Store,
		Clock:    cfg.Clock,
		Locks:    locks,
		Notifier: cfg.Notifier,
		Logger:   cfg.Logger.With("component", "timer"),
	})
	if err != nil {
		return nil, err
	}

	// The sweeper also backs the on-demand overdue action, so it is
	// built even when the scheduled sweep is disabled.
	schedule, err := cron.Parse(cfg.Overdue.Cron)
	if err != nil {
		cfg.Logger.Warn("unusable overdue cron, falling back to daily", "cron", cfg.Overdue.Cron, "error", err)
		schedule = cron.MustParse("@daily")
	}
	sweeper, err := overdue.New(overdue.Config{
		Source:   controller,
		Clock:    cfg.Clock,
		Schedule: schedule,
		Notifier: cfg.Notifier,
		Logger:   cfg.Logger.With("component", "overdue"),
		Limit:    cfg.Overdue.Limit,
	})
	if err != nil {
		return nil, err
	}

	window, err := cfg.Throttle.WindowDuration()
	if err != nil {
		return nil, fmt.Errorf("throttle window: %w", err)
	}

	return &ComplianceService{
		lifecycle:      controller,
		timers:         tracker,
		sweeper:        sweeper,
		scheduler:      cfg.Scheduler,
		notifier:       cfg.Notifier,
		clock:          cfg.Clock,
		limiter:        throttle.NewWindow(cfg.Clock),
		throttleLimit:  cfg.Throttle.Limit,
		throttleWindow: window,
		startedAt:      cfg.Clock.Now(),
		logger:         cfg.Logger,
	}, nil
}
