package main

import (
	"fmt"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/builder"
	"github.com/waskit/waskit/internal/config"
	"github.com/waskit/waskit/internal/manifest"
	"github.com/waskit/waskit/internal/planner"
	"github.com/waskit/waskit/internal/state"
)

func newPlanCmd() *cobra.Command {
	var (
		manifestPath string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the changes a deploy would apply",
		Long: `Plan diffs the declared resource graph against applied state and prints
the operations a deploy would perform, without applying anything.

Examples:
    waskit plan
    waskit plan --json`,
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
			return runPlan(cfg, asJSON)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (default: from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the plan as JSON")

	return cmd
}

func runPlan(cfg config.Config, asJSON bool) error {
	m, err := loadManifest(cfg)
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

	prior, err := store.Load()
	if err != nil {
		return err
	}

	cs, err := computePlan(cfg, m, prior)
	if err != nil {
		if asJSON {
			_ = printJSON(waskit.PlanResult{Success: false, Errors: errStrings(err)})
		}
		return err
	}

	if asJSON {
		return printJSON(waskit.PlanResult{Success: true, Changes: cs})
	}

	printPlan(cs)
	return nil
}

// computePlan hashes the signed artifact if present and diffs the manifest
// against prior state. A missing artifact plans with an empty hash so that
// plan stays usable before the first build.
func computePlan(cfg config.Config, m *manifest.Manifest, prior *state.State) (waskit.ChangeSet, error) {
	opts := planner.Options{FunctionEnv: cfg.FunctionEnv}
	if path := artifactPath(cfg, m); fileExists(path) {
		hash, err := builder.HashFile(path)
		if err != nil {
			return waskit.ChangeSet{}, err
		}
		opts.ArtifactHash = hash
	}
	return planner.Plan(m, prior, opts)
}

func printPlan(cs waskit.ChangeSet) {
	if cs.Empty() {
		fmt.Println("No changes. Applied state matches the manifest.")
		return
	}

	for _, op := range cs.Operations {
		switch op.Kind {
		case waskit.OpCreate:
			fmt.Printf("  + %s (%s)\n", op.Resource.ID, op.Resource.Type)
		case waskit.OpUpdate:
			fmt.Printf("  ~ %s (%s)\n", op.Resource.ID, op.Resource.Type)
			for _, change := range op.Changes {
				fmt.Printf("      %s\n", change)
			}
		case waskit.OpDelete:
			fmt.Printf("  - %s (%s)\n", op.Resource.ID, op.Resource.Type)
		}
	}

	creates, updates, deletes := cs.Counts()
	fmt.Printf("\nPlan: %d to create, %d to update, %d to delete.\n", creates, updates, deletes)
}
