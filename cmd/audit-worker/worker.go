package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kompaudit/audit-planner/internal/judge"
	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"github.com/kompaudit/audit-planner/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Claim and evaluate relation tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		j, err := judge.New(cfg.Judge)
		if err != nil {
			return err
		}

		readers := reader.NewRegistry()
		fileReader := reader.NewFileReader(cfg.Pipeline.MaxContextChars)
		readers.Register(model.ArtifactKindCode, fileReader)
		readers.Register(model.ArtifactKindConfig, fileReader)
		if cfg.ObjectStore.Endpoint != "" {
			objectReader, err := reader.NewObjectReader(cfg.ObjectStore, cfg.Pipeline.MaxContextChars)
			if err != nil {
				return err
			}
			readers.Register(model.ArtifactKindDocument, objectReader)
		} else {
			readers.Register(model.ArtifactKindDocument, fileReader)
		}

		w := worker.New(s, readers, j, cfg.Pipeline)
		zap.S().Infow("Starting worker", "worker_id", w.ID(), "concurrency", cfg.Pipeline.WorkerConcurrency)
		defer zap.S().Info("Worker stopped")

		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
