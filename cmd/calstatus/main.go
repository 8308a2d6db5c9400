package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"calstatus/internal/config"
	"calstatus/internal/ics"
	appLog "calstatus/internal/log"
	"calstatus/internal/presence"
	"calstatus/internal/task"
)

type flagConfig struct {
	configPath string
	once       bool
	dryRun     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	defer appLog.Sync()

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if err := conf.Validate(!flags.dryRun); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		return 1
	}

	appLog.Info("calstatus starting",
		"user", conf.User,
		"schedule", conf.Schedule,
		"exclude_organizers", len(conf.ExcludeOrganizers),
		"cache", conf.CacheDir != "",
		"once", flags.once,
		"dry_run", flags.dryRun,
	)

	var publisher task.Publisher = presence.LogPublisher{}
	if !flags.dryRun {
		publisher = presence.NewSlackPublisher(conf.SlackToken)
	}

	t, err := task.New(conf, ics.NewFetcher(conf.CacheDir, conf.FetchTimeout), publisher)
	if err != nil {
		appLog.Error("failed to build task", err)
		return 1
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		ack, err := t.Run(ctx, nil)
		if err != nil {
			appLog.Error("run failed", err)
			return 1
		}
		appLog.Info("run finished", "result", ack)
		return 0
	}

	return schedule(ctx, conf.Schedule, t)
}

// schedule runs t immediately and then on every tick of spec until ctx is
// canceled. A failed run is logged; the next tick is the retry.
func schedule(ctx context.Context, spec string, t *task.Task) int {
	runOnce := func() {
		ack, err := t.Run(ctx, nil)
		if err != nil {
			appLog.Error("scheduled run failed", err)
			return
		}
		appLog.Info("scheduled run finished", "result", ack)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, runOnce); err != nil {
		appLog.Error("invalid schedule", err, "schedule", spec)
		return 1
	}

	runOnce()
	c.Start()

	<-ctx.Done()
	appLog.Info("signal received, shutting down")
	<-c.Stop().Done()
	appLog.Info("calstatus exiting")
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to YAML config file (optional; env vars override it)")
	flag.BoolVar(&cfg.once, "once", false, "Run a single fetch+publish pass and exit")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Log the derived status instead of publishing it")

	flag.Parse()

	return cfg
}
