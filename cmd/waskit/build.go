package main

import (
	"fmt"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/builder"
	"github.com/waskit/waskit/internal/config"
)

func newBuildCmd() *cobra.Command {
	var (
		name      string
		sourceDir string
		caps      []string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the module and sign it with a claims token",
		Long: `Build compiles the actor source to WebAssembly and embeds a signed
capability claims token.

The signed artifact's content hash drives change detection on deploy: an
identical source tree and capability set produce an identical hash.

Examples:
    waskit build
    waskit build --caps awslambda:runtime,wascc:logging
    waskit build --source ./actor --name helloworld`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if name != "" {
					c.Name = name
				}
				if sourceDir != "" {
					c.SourceDir = sourceDir
				}
				if len(caps) > 0 {
					c.Capabilities = caps
				}
			})
			if err != nil {
				return err
			}
			return runBuild(cmd, cfg, asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Module name (default: from config or manifest)")
	cmd.Flags().StringVar(&sourceDir, "source", "", "Source directory (default: from config)")
	cmd.Flags().StringSliceVar(&caps, "caps", nil, "Capabilities to sign into the token")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the build result as JSON")

	return cmd
}

func runBuild(cmd *cobra.Command, cfg config.Config, asJSON bool) error {
	modName, err := moduleName(cfg)
	if err != nil {
		return err
	}

	account, module, err := loadSigningKeys(cfg)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	pipeline := &builder.Pipeline{
		Compiler: &builder.CargoCompiler{Target: cfg.Target},
		Signer:   builder.EmbeddedSigner{},
		Logger:   logger,
	}

	artifact, err := pipeline.Build(cmd.Context(), builder.Options{
		SourceDir:    cfg.SourceDir,
		Name:         modName,
		UnsignedPath: cfg.UnsignedPath(modName),
		SignedPath:   cfg.SignedPath(modName),
		Capabilities: toCapabilities(cfg.Capabilities),
		Account:      account,
		Module:       module,
	})
	if err != nil {
		if asJSON {
			_ = printJSON(waskit.BuildResult{Success: false, Errors: errStrings(err)})
		}
		return err
	}

	if asJSON {
		return printJSON(waskit.BuildResult{Success: true, Artifact: artifact})
	}

	fmt.Printf("Signed %s\n", artifact.SignedPath)
	fmt.Printf("  hash: %s\n", artifact.ContentHash)
	for _, c := range artifact.Capabilities {
		fmt.Printf("  cap:  %s\n", c)
	}
	return nil
}
