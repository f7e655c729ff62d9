package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kompaudit/audit-planner/internal/dispatcher"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Fan queued scans out into relation tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		zap.S().Info("Starting dispatcher")
		defer zap.S().Info("Dispatcher stopped")

		d := dispatcher.New(s, cfg.Pipeline)
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
