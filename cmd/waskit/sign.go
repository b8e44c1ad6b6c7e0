package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/builder"
	"github.com/waskit/waskit/internal/config"
)

func newSignCmd() *cobra.Command {
	var (
		name    string
		input   string
		output  string
		caps    []string
		asJSON  bool
		inspect bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an already-compiled module",
		Long: `Sign embeds a capability claims token into an existing unsigned wasm
binary without recompiling.

With --inspect, instead of signing, the claims of an already-signed binary
are verified and printed.

Examples:
    waskit sign
    waskit sign --input build/actor.wasm --output build/actor_s.wasm
    waskit sign --inspect --input build/actor_s.wasm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if name != "" {
					c.Name = name
				}
				if len(caps) > 0 {
					c.Capabilities = caps
				}
			})
			if err != nil {
				return err
			}
			if inspect {
				return runInspect(cfg, input)
			}
			return runSign(cmd, cfg, input, output, asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Module name (default: from config or manifest)")
	cmd.Flags().StringVar(&input, "input", "", "Unsigned wasm file (default: the build output path)")
	cmd.Flags().StringVar(&output, "output", "", "Signed output file (default: the deploy artifact path)")
	cmd.Flags().StringSliceVar(&caps, "caps", nil, "Capabilities to sign into the token")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "Verify and print the claims of a signed binary")

	return cmd
}

func runSign(cmd *cobra.Command, cfg config.Config, input, output string, asJSON bool) error {
	modName, err := moduleName(cfg)
	if err != nil {
		return err
	}
	if input == "" {
		input = cfg.UnsignedPath(modName)
	}
	if output == "" {
		output = cfg.SignedPath(modName)
	}
	if !fileExists(input) {
		return fmt.Errorf("%w: unsigned module %s does not exist (run `waskit build`?)", waskit.ErrSigningFailed, input)
	}

	account, module, err := loadSigningKeys(cfg)
	if err != nil {
		return err
	}

	pipeline := &builder.Pipeline{
		Signer: builder.EmbeddedSigner{},
		Logger: logger,
	}

	artifact, err := pipeline.Sign(cmd.Context(), builder.Options{
		Name:         modName,
		UnsignedPath: input,
		SignedPath:   output,
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
	return nil
}

func runInspect(cfg config.Config, input string) error {
	if input == "" {
		modName, err := moduleName(cfg)
		if err != nil {
			return err
		}
		input = cfg.SignedPath(modName)
	}

	signed, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	c, err := builder.ExtractClaims(signed)
	if err != nil {
		return err
	}

	return printJSON(c)
}
