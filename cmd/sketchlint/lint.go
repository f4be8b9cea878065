package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/analyzer"
	"github.com/sketchlint/sketchlint/internal/config"
	"github.com/sketchlint/sketchlint/internal/policy"
	"github.com/sketchlint/sketchlint/internal/report"
	"github.com/sketchlint/sketchlint/internal/rules"
	"github.com/sketchlint/sketchlint/internal/source"
)

func newLintCmd() *cobra.Command {
	var (
		jsonOutput bool
		checkJSON  bool
		noColor    bool
		policyDir  string
	)

	cmd := &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Lint sketch files or directories",
		Long: `Lint analyzes the given sketch files (or every sketch file under the
given directories) and reports diagnostics, pin conflicts, and memory use.
The exit code is 1 when any error-severity finding is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, store, err := setup()
			if err != nil {
				return err
			}

			if policyDir == "" {
				policyDir = cfg.PolicyDir
			}

			paths, err := collectFiles(cfg, args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no sketch files found")
			}

			an := analyzer.New(store, log, cfg.Lint.Rules)
			runner := &lintRunner{
				analyzer: an,
				log:      log,
				printer:  report.NewPrinter(os.Stdout, !noColor && !jsonOutput),
			}
			runner.policy, err = loadPolicy(policyDir, log)
			if err != nil {
				return err
			}

			results, policyErrs, err := runner.run(cmd.Context(), paths, !jsonOutput)
			if err != nil {
				return err
			}

			var diagErrs int
			if jsonOutput {
				if err := report.WriteJSON(os.Stdout, results, checkJSON); err != nil {
					return err
				}
				diagErrs = countErrors(results)
			} else {
				diagErrs = runner.printer.Summary(len(paths), results)
			}

			if diagErrs+policyErrs > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit results as a JSON array")
	cmd.Flags().BoolVar(&checkJSON, "check", false, "validate JSON output against the result schema")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&policyDir, "policy", "", "directory of .rego policy packs (overrides config)")
	return cmd
}

type lintRunner struct {
	analyzer *analyzer.Analyzer
	policy   *policy.Engine
	log      *zap.SugaredLogger
	printer  *report.Printer
}

// run lints each file once. Policy error counts are returned separately so
// the caller can fold them into the exit code.
func (lr *lintRunner) run(ctx context.Context, paths []string, print bool) ([]*analyzer.Result, int, error) {
	results := make([]*analyzer.Result, 0, len(paths))
	policyErrs := 0

	for _, path := range paths {
		r, err := lr.lintFile(ctx, path)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, r)
		if print {
			lr.printer.Print(path, r)
		}

		if lr.policy == nil {
			continue
		}
		pres, err := lr.policy.Evaluate(ctx, policy.FromResult(r))
		if err != nil {
			return nil, 0, errors.Wrapf(err, "evaluating policy for %s", path)
		}
		policyErrs += pres.Summary.Errors
		if print {
			lr.printer.PrintPolicy(path, pres)
		}
	}
	return results, policyErrs, nil
}

func (lr *lintRunner) lintFile(ctx context.Context, path string) (*analyzer.Result, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return lr.analyzer.Analyze(ctx, source.Snapshot{
		URI:     "file://" + filepath.ToSlash(abs),
		Version: 1,
		Text:    string(text),
	})
}

// loadPolicy builds the policy engine when dir exists. A configured but
// missing directory is not an error; `sketchlint init` may not have run yet.
func loadPolicy(dir string, log *zap.SugaredLogger) (*policy.Engine, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Debugw("policy directory not found, skipping", "dir", dir)
		return nil, nil
	}
	return policy.New(dir)
}

func collectFiles(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", arg)
		}
		if info.IsDir() {
			files, err := cfg.SketchFiles(arg)
			if err != nil {
				return nil, err
			}
			paths = append(paths, files...)
			continue
		}
		if !config.IsSketchFile(arg) {
			return nil, errors.Newf("%s is not a sketch file", arg)
		}
		paths = append(paths, arg)
	}
	return paths, nil
}

func countErrors(results []*analyzer.Result) int {
	n := 0
	for _, r := range results {
		for _, d := range r.Diagnostics {
			if d.Severity == rules.SeverityError {
				n++
			}
		}
	}
	return n
}
