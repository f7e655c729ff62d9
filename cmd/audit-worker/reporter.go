package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kompaudit/audit-planner/internal/reporter"
)

var reporterCmd = &cobra.Command{
	Use:   "reporter",
	Short: "Generate reports for finished scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		var uploader reporter.Uploader
		if cfg.ObjectStore.Endpoint != "" {
			u, err := reporter.NewObjectUploader(cfg.ObjectStore)
			if err != nil {
				return err
			}
			uploader = u
		}

		zap.S().Info("Starting reporter")
		defer zap.S().Info("Reporter stopped")

		r := reporter.New(s, uploader, cfg.Pipeline)
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
