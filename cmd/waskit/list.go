package main

import (
	"fmt"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/config"
)

func newListCmd() *cobra.Command {
	var (
		manifestPath string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared resources",
		Long: `List shows the resources declared in the manifest with their types and
dependencies.

Examples:
    waskit list
    waskit list --format json`,
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
			return runList(cfg, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (default: from config)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(cfg config.Config, format string) error {
	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	g, err := m.Graph()
	if err != nil {
		return err
	}

	result := waskit.ListResult{
		Resources: make([]waskit.ListResource, 0, g.Len()),
	}
	for _, id := range g.IDs() {
		res, _ := g.Resource(id)
		result.Resources = append(result.Resources, waskit.ListResource{
			ID:        res.ID,
			Type:      res.Type,
			DependsOn: g.Dependencies(id),
		})
	}

	switch format {
	case "json":
		return printJSON(result)

	case "text":
		if len(result.Resources) == 0 {
			fmt.Println("No resources declared.")
			return nil
		}
		fmt.Printf("Declared resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Printf("  %s: %s\n", res.ID, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
