package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waskit/waskit/internal/config"
	"github.com/waskit/waskit/internal/resolve"
	"github.com/waskit/waskit/internal/state"
)

func newOutputsCmd() *cobra.Command {
	var (
		stateDir string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Show the outputs of the applied deployment",
		Long: `Outputs resolves the invocation URL and function name from applied
state. It reads state only; nothing is contacted or changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if stateDir != "" {
					c.StateDir = stateDir
				}
			})
			if err != nil {
				return err
			}
			return runOutputs(cfg, asJSON)
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "State directory (default: from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the outputs as JSON")

	return cmd
}

func runOutputs(cfg config.Config, asJSON bool) error {
	store, err := state.Open(cfg.StateDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	st, err := store.Load()
	if err != nil {
		return err
	}

	out, err := resolve.Outputs(st)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(out)
	}
	fmt.Printf("Function: %s\n", out.FunctionName)
	fmt.Printf("Invoke:   %s\n", out.InvokeURL)
	return nil
}
