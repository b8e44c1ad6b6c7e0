package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/config"
	"github.com/waskit/waskit/internal/provisioner"
	"github.com/waskit/waskit/internal/state"
)

func newDestroyCmd() *cobra.Command {
	var (
		stateDir string
		region   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down every resource recorded in state",
		Long: `Destroy deletes all applied resources in reverse dependency order and
clears the state record. Destroying an empty deployment is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if stateDir != "" {
					c.StateDir = stateDir
				}
				if region != "" {
					c.Region = region
				}
			})
			if err != nil {
				return err
			}
			return runDestroy(cmd, cfg, asJSON)
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "State directory (default: from config)")
	cmd.Flags().StringVar(&region, "region", "", "Provider region (default: from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")

	return cmd
}

func runDestroy(cmd *cobra.Command, cfg config.Config, asJSON bool) error {
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

	if st.Empty() {
		logger.Info("nothing to destroy")
		if asJSON {
			return printJSON(waskit.ApplyResult{Success: true, Applied: 0})
		}
		return nil
	}

	region := st.Region
	if cfg.Region != "" {
		region = cfg.Region
	}
	prov := &provisioner.Provisioner{
		Provider: &provisioner.StubProvider{Region: region},
		Logger:   logger,
	}

	cs := provisioner.DestroyPlan(st)
	applied, applyErr := prov.Apply(cmd.Context(), cs, st)
	if err := store.Save(st); err != nil {
		return errors.Join(applyErr, err)
	}
	if applyErr != nil {
		if asJSON {
			_ = printJSON(waskit.ApplyResult{Success: false, Applied: applied, Errors: errStrings(applyErr)})
		}
		return applyErr
	}

	logger.Info("destroy complete", "deleted", applied)
	if asJSON {
		return printJSON(waskit.ApplyResult{Success: true, Applied: applied})
	}
	fmt.Printf("Destroyed %d resources.\n", applied)
	return nil
}
