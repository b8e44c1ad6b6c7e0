// Command waskit builds, signs and deploys WebAssembly actor modules.
//
// Usage:
//
//	waskit keys-account             Generate or show the account key
//	waskit keys-module              Generate or show the module key
//	waskit build                    Compile and sign the module
//	waskit deploy                   Plan and apply the resource graph
//	waskit destroy                  Tear down everything in state
//	waskit version                  Show version
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
})

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "waskit",
		Short: "Build, sign and deploy WebAssembly actor modules",
		Long: `waskit compiles an actor module to WebAssembly, signs it with a
capability-scoped claims token, and deploys the serverless resources that
serve it.

A deployment is declared in deploy.yaml:

    name: helloworld
    stage: test
    resources:
      - id: HelloFunction
        type: lambda.Function
        ...

Then deployed with:

    waskit deploy`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newKeysAccountCmd(),
		newKeysModuleCmd(),
		newBuildCmd(),
		newSignCmd(),
		newValidateCmd(),
		newListCmd(),
		newGraphCmd(),
		newPlanCmd(),
		newDeployCmd(),
		newDestroyCmd(),
		newOutputsCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(waskit.ExitCode(err))
	}
}
