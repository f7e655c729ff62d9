package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "audit-worker",
	Short: "Audit pipeline processes: dispatcher, worker, reporter",
}

func init() {
	rootCmd.AddCommand(dispatcherCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(reporterCmd)
}

// setup loads configuration, installs the global logger, and opens the
// store. The returned cleanup restores logging state and closes the store.
func setup() (*config.Config, store.Store, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, nil, err
	}

	logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
	if err != nil {
		logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger := log.InitLog(logLvl)
	undo := zap.ReplaceGlobals(logger)

	db, err := store.InitDB(cfg)
	if err != nil {
		undo()
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	s := store.NewStore(db)
	cleanup := func() {
		_ = s.Close()
		undo()
		_ = logger.Sync()
	}
	return cfg, s, cleanup, nil
}
