package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/config"
	"github.com/dgnsrekt/options-harvester/internal/ingest"
	"github.com/dgnsrekt/options-harvester/internal/notify"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load daemon config
	daemonCfg := LoadDaemonConfig()

	logger.Info("daemon configuration loaded",
		zap.Int("scheduleHour", daemonCfg.ScheduleHour),
		zap.Int("scheduleMinute", daemonCfg.ScheduleMinute),
		zap.String("timezone", daemonCfg.Timezone),
		zap.String("configPath", daemonCfg.ConfigPath),
		zap.String("stateFile", daemonCfg.StateFile),
		zap.Bool("runOnStartup", daemonCfg.RunOnStartup),
		zap.Bool("enrichAfter", daemonCfg.EnrichAfter),
	)

	// Load harvester config
	cfg, err := config.Load(daemonCfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load harvester config", zap.Error(err))
		return 1
	}

	logger.Info("harvester configuration loaded",
		zap.String("storeDir", cfg.Store.Directory),
		zap.Int("concurrency", cfg.Ingest.Concurrency),
		zap.Int("batchSize", cfg.Ingest.BatchSize),
	)

	// Load notification config
	notifyCfg := notify.LoadConfig()
	if err := notifyCfg.Validate(); err != nil {
		logger.Error("invalid notification config", zap.Error(err))
		return 1
	}
	notifier := notify.New(notifyCfg, logger)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Create scheduler and tracker
	scheduler := NewScheduler(daemonCfg.ScheduleHour, daemonCfg.ScheduleMinute, daemonCfg.Timezone)
	tracker := NewHarvestTracker(daemonCfg.StateFile)

	logger.Info("daemon started",
		zap.String("schedule", fmt.Sprintf("%02d:%02d %s", daemonCfg.ScheduleHour, daemonCfg.ScheduleMinute, daemonCfg.Timezone)),
	)

	// Check on startup if enabled
	if daemonCfg.RunOnStartup {
		logger.Info("checking for missed harvest on startup")
		if shouldHarvest(scheduler, tracker, logger) {
			runHarvest(ctx, cfg, daemonCfg, scheduler, tracker, notifier, logger)
		}
	}

	// Main loop - check every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
			return 0

		case <-ticker.C:
			if shouldHarvest(scheduler, tracker, logger) {
				runHarvest(ctx, cfg, daemonCfg, scheduler, tracker, notifier, logger)
			}

		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			return 0
		}
	}
}

// shouldHarvest checks if conditions are met for triggering a harvest
func shouldHarvest(scheduler *Scheduler, tracker *HarvestTracker, logger *zap.Logger) bool {
	today := scheduler.TodayDate()

	// Check if already harvested today
	if tracker.AlreadyHarvested(today) {
		return false
	}

	// Check if it's a market day
	if !scheduler.IsMarketDay(today) {
		logger.Debug("not a market day", zap.String("date", today))
		return false
	}

	// Check if it's the scheduled time
	if !scheduler.IsScheduledTime() {
		return false
	}

	logger.Info("harvest conditions met",
		zap.String("date", today),
		zap.String("time", time.Now().In(scheduler.Location()).Format("15:04:05")),
	)

	return true
}

// runHarvest executes the pipeline, sends the summary and updates the tracker
func runHarvest(ctx context.Context, cfg *config.Config, daemonCfg *DaemonConfig, scheduler *Scheduler, tracker *HarvestTracker, notifier notify.Notifier, logger *zap.Logger) {
	today := scheduler.TodayDate()

	logger.Info("starting scheduled harvest", zap.String("date", today))
	start := time.Now()

	result, err := executeHarvest(ctx, cfg, logger)
	duration := time.Since(start)

	if err != nil {
		logger.Error("harvest failed", zap.Error(err), zap.String("date", today))
		if result == nil {
			result = &ingest.Result{}
		}
		if nErr := notifier.SendFailure(ctx, result, today, duration, err); nErr != nil {
			logger.Warn("failed to send failure notification", zap.Error(nErr))
		}
		return
	}

	logger.Info("harvest succeeded",
		zap.String("date", today),
		zap.Duration("duration", duration),
		zap.Int("persisted", result.Persisted),
	)

	if daemonCfg.EnrichAfter {
		if err := executeEnrich(ctx, cfg, logger); err != nil {
			logger.Warn("enrichment failed", zap.Error(err))
		}
	}

	if err := notifier.SendSuccess(ctx, result, today, duration); err != nil {
		logger.Warn("failed to send success notification", zap.Error(err))
	}

	// Update tracker to prevent re-harvest
	if err := tracker.SetLastHarvestDate(today); err != nil {
		logger.Error("failed to update tracker", zap.Error(err))
	}
}
