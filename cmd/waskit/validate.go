package main

import (
	"fmt"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/config"
)

func newValidateCmd() *cobra.Command {
	var (
		manifestPath string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the deployment manifest",
		Long: `Validate parses the manifest and checks the resource graph: duplicate
identifiers, references to undeclared resources and dependency cycles.

Examples:
    waskit validate
    waskit validate -m deploy.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if manifestPath != "" {
					c.Manifest = manifestPath
				}
			})
			if err != nil {
				return err
			}
			return runValidate(cfg, asJSON)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (default: from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")

	return cmd
}

func runValidate(cfg config.Config, asJSON bool) error {
	m, err := loadManifest(cfg)
	if err != nil {
		if asJSON {
			_ = printJSON(waskit.ValidateResult{Success: false, Errors: errStrings(err)})
		}
		return err
	}

	if asJSON {
		return printJSON(waskit.ValidateResult{Success: true, Resources: len(m.Resources)})
	}

	fmt.Printf("Manifest %q is valid: %d resources.\n", m.Name, len(m.Resources))
	return nil
}
