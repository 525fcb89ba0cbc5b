package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/coinforge/coindw/app/pipeline"
)

// The scheduler triggers one pipeline run per cron tick. An in-process guard
// skips a tick while the previous run is still going; overlap across
// processes is handled by the jobs' named locks.
func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := pipeline.Initialize(ctx)
	if err != nil {
		panic(err)
	}
	defer app.Close()

	pipeCfg, err := app.Config.Pipeline(ctx)
	if err != nil {
		app.Logger.Fatal("Unable to load scheduler configuration", zap.Error(err))
	}

	var running atomic.Bool
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err = c.AddFunc(pipeCfg.CronSpec, func() {
		if !running.CompareAndSwap(false, true) {
			app.Logger.Warn("Previous pipeline run still active, skipping tick")
			return
		}
		defer running.Store(false)

		pipe, buildErr := app.NewPipeline(ctx, true)
		if buildErr != nil {
			app.Logger.Error("Unable to assemble pipeline", zap.Error(buildErr))
			return
		}

		summary := pipe.Run(ctx)
		app.Logger.Info("Scheduled run finished\n" + summary.String())
	})
	if err != nil {
		app.Logger.Fatal("Invalid cron spec",
			zap.String("spec", pipeCfg.CronSpec), zap.Error(err))
	}

	app.Logger.Info("Scheduler started", zap.String("spec", pipeCfg.CronSpec))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	app.Logger.Info("Scheduler stopped")
}
