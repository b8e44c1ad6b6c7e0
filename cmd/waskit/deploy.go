package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/builder"
	"github.com/waskit/waskit/internal/config"
	"github.com/waskit/waskit/internal/planner"
	"github.com/waskit/waskit/internal/provisioner"
	"github.com/waskit/waskit/internal/resolve"
	"github.com/waskit/waskit/internal/state"
)

func newDeployCmd() *cobra.Command {
	var (
		manifestPath string
		stage        string
		region       string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Plan and apply the resource graph",
		Long: `Deploy diffs the declared resource graph against applied state, applies
the resulting operations in dependency order, and prints the invocation URL.

Redeploying without changing the signed artifact or the manifest is a no-op.
A failed apply keeps the state of everything that did commit; rerunning
deploy picks up from there.

Examples:
    waskit deploy
    waskit deploy --stage prod
    waskit deploy --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if manifestPath != "" {
					c.Manifest = manifestPath
				}
				if stage != "" {
					c.Stage = stage
				}
				if region != "" {
					c.Region = region
				}
			})
			if err != nil {
				return err
			}
			return runDeploy(cmd, cfg, asJSON)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (default: from config)")
	cmd.Flags().StringVar(&stage, "stage", "", "Gateway stage (default: from config)")
	cmd.Flags().StringVar(&region, "region", "", "Provider region (default: from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the apply result as JSON")

	return cmd
}

func runDeploy(cmd *cobra.Command, cfg config.Config, asJSON bool) error {
	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	artifact := artifactPath(cfg, m)
	if !fileExists(artifact) {
		return fmt.Errorf("%w: signed artifact %s does not exist (run `waskit build`?)", waskit.ErrSigningFailed, artifact)
	}
	hash, err := builder.HashFile(artifact)
	if err != nil {
		return err
	}

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
	st.Name = m.Name
	st.Stage = m.Stage
	st.Region = m.Region

	cs, err := planner.Plan(m, st, planner.Options{
		ArtifactHash: hash,
		FunctionEnv:  cfg.FunctionEnv,
	})
	if err != nil {
		return err
	}

	if cs.Empty() {
		logger.Info("nothing to apply", "name", m.Name, "stage", m.Stage)
		return reportOutputs(st, 0, asJSON)
	}

	prov := &provisioner.Provisioner{
		Provider: &provisioner.StubProvider{Region: m.Region},
		Logger:   logger,
	}

	applied, applyErr := prov.Apply(cmd.Context(), cs, st)
	// The state record is saved even when apply failed part-way so the next
	// run resumes from what actually exists.
	if err := store.Save(st); err != nil {
		return errors.Join(applyErr, err)
	}
	if applyErr != nil {
		if asJSON {
			_ = printJSON(waskit.ApplyResult{Success: false, Applied: applied, Errors: errStrings(applyErr)})
		}
		return applyErr
	}

	logger.Info("deploy complete", "name", m.Name, "stage", m.Stage, "applied", applied)
	return reportOutputs(st, applied, asJSON)
}

func reportOutputs(st *state.State, applied int, asJSON bool) error {
	out, err := resolve.Outputs(st)
	if err != nil {
		if asJSON {
			_ = printJSON(waskit.ApplyResult{Success: false, Applied: applied, Errors: errStrings(err)})
		}
		return err
	}

	if asJSON {
		return printJSON(waskit.ApplyResult{Success: true, Applied: applied, Outputs: &out})
	}

	fmt.Printf("Function: %s\n", out.FunctionName)
	fmt.Printf("Invoke:   %s\n", out.InvokeURL)
	return nil
}
