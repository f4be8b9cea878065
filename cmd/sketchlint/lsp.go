package main

import (
	"github.com/spf13/cobra"

	"github.com/sketchlint/sketchlint/internal/analyzer"
	"github.com/sketchlint/sketchlint/internal/lsp"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server over stdio",
		Long: `lsp speaks the language server protocol on stdin/stdout. Diagnostics
are pushed on open and after each (debounced) change; the host can switch
the target board with the workspace command "sketchlint.setBoard".

All logging goes to stderr; stdout carries only the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, store, err := setup()
			if err != nil {
				return err
			}

			session := analyzer.NewSession(analyzer.New(store, log, cfg.Lint.Rules), store, log)
			handler := lsp.NewHandler(session, log, cfg.Debounce())
			return handler.RunStdio("sketchlint", version)
		},
	}
}
