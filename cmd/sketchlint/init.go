package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sketchlint/sketchlint/internal/config"
	"github.com/sketchlint/sketchlint/internal/policy"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a starter sketchlint.json and sample policy pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := filepath.Join(flagConfigDir, "sketchlint.json")

			if _, err := os.Stat(configPath); err == nil {
				fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
				var response string
				fmt.Scanln(&response)
				if response != "y" && response != "Y" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			if err := os.WriteFile(configPath, config.Starter(), 0o644); err != nil {
				return errors.Wrap(err, "writing config")
			}
			fmt.Printf("Created %s\n", configPath)

			policyDir := filepath.Join(flagConfigDir, "policy")
			if err := os.MkdirAll(policyDir, 0o755); err != nil {
				return errors.Wrap(err, "creating policy directory")
			}
			policyPath := filepath.Join(policyDir, "sketch.rego")
			if _, err := os.Stat(policyPath); os.IsNotExist(err) {
				if err := os.WriteFile(policyPath, []byte(policy.SamplePolicy), 0o644); err != nil {
					return errors.Wrap(err, "writing sample policy")
				}
				fmt.Printf("Created %s\n", policyPath)
			}

			fmt.Println("\nEdit sketchlint.json to configure:")
			fmt.Println("  - The default target board")
			fmt.Println("  - Rule severities and ignore patterns")
			fmt.Println("  - Extra descriptor and policy directories")
			return nil
		},
	}
}
