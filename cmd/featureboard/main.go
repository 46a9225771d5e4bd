// Command featureboard serves the feature request board and manages its archives.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "featureboard",
		Short:         "Feature request board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newSeedCmd(&configPath),
		newArchiveCmd(&configPath),
	)
	return root
}
