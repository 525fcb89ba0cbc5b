package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/coinforge/coindw/app/pipeline"
)

func main() {
	continueOnError := flag.Bool("continue-on-error", false,
		"run all stages even after a failure")
	flag.Parse()

	// Optional .env with the control-store connection target.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := pipeline.Initialize(ctx)
	if err != nil {
		panic(err)
	}
	defer app.Close()

	pipe, err := app.NewPipeline(ctx, !*continueOnError)
	if err != nil {
		app.Logger.Fatal("Unable to assemble pipeline", zap.Error(err))
	}

	summary := pipe.Run(ctx)
	app.Logger.Info("Pipeline finished\n" + summary.String())

	if !summary.OK() {
		os.Exit(1)
	}
}
