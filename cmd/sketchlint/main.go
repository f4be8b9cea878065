// sketchlint checks Arduino sketches for hardware misuse before they ever
// reach a board: pin conflicts, protocol mistakes, ISR hazards, and memory
// budgets, from the same analysis core that backs the language server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sketchlint/sketchlint/internal/config"
	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/logger"
	"go.uber.org/zap"
)

const version = "0.3.0"

var (
	flagConfigDir string
	flagLogLevel  string
	flagBoard     string
)

func main() {
	root := &cobra.Command{
		Use:           "sketchlint",
		Short:         "Static analysis for Arduino sketches",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfigDir, "config", "c", ".",
		"directory containing sketchlint.json")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVarP(&flagBoard, "board", "b", "",
		"target board id (overrides config)")

	root.AddCommand(newLintCmd(), newWatchCmd(), newLSPCmd(), newBoardsCmd(), newInitCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger and descriptor store
// shared by every subcommand.
func setup() (*config.Config, *zap.SugaredLogger, *hardware.Store, error) {
	cfg, err := config.Load(flagConfigDir)
	if err != nil {
		return nil, nil, nil, err
	}
	if flagBoard != "" {
		cfg.Board = flagBoard
	}

	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := logger.New(level, false)
	if err != nil {
		return nil, nil, nil, err
	}

	store := hardware.NewStore(log)
	if err := store.Initialize(); err != nil {
		return nil, nil, nil, err
	}
	if cfg.DescriptorDir != "" {
		store.LoadDir(cfg.DescriptorDir)
	}
	if cfg.Board != "" {
		if err := store.LoadBoard(cfg.Board); err != nil {
			return nil, nil, nil, err
		}
	}
	return cfg, log, store, nil
}
