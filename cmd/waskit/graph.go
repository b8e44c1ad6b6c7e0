package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waskit/waskit/internal/config"
	"github.com/waskit/waskit/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		manifestPath string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate a DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph of the declared resource graph.

The output can be rendered with Graphviz:
    waskit graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    waskit graph -f mermaid`,
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
			return runGraph(cfg, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (default: from config)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")

	return cmd
}

func runGraph(cfg config.Config, format string) error {
	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	g, err := m.Graph()
	if err != nil {
		return err
	}

	var graphFormat graph.Format
	switch format {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	return g.Export(os.Stdout, graphFormat)
}
