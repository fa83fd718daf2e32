package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"alttag/internal/config"
	"alttag/internal/daemon"
	"alttag/internal/images"
	"alttag/internal/logging"
	"alttag/internal/processor"
	"alttag/internal/queue"
	"alttag/internal/services/captioner"
	"alttag/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger.Info("alttagd starting",
		logging.Bool("require_review", cfg.Processing.RequireReview),
		logging.Bool("direct_upload", cfg.Provider.DirectUpload),
		logging.Float64("min_confidence", cfg.Processing.MinConfidence))

	db, err := storage.Open(cfg)
	if err != nil {
		logger.Error("open database", logging.Error(err))
		return
	}
	defer db.Close()

	queueStore := queue.NewStore(db, time.Duration(cfg.Processing.StaleLockMinutes)*time.Minute)
	imageStore := images.NewStore(db)
	client := captioner.NewClient(
		cfg.Provider.EndpointURL,
		cfg.Provider.AuthToken,
		captioner.WithTimeout(time.Duration(cfg.Provider.RequestTimeout)*time.Second),
		captioner.WithDirectUpload(cfg.Provider.DirectUpload),
	)
	proc := processor.New(cfg, queueStore, imageStore, client, logger)

	d, err := daemon.New(cfg, queueStore, proc, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Stop()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("alttagd shutting down")
}
