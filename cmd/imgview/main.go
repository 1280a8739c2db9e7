// Command imgview opens an interactive image viewport or renders one
// headlessly to a PNG.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	refine     bool
	logLevel   string
	logFormat  string
	logFile    string
}

func newRootCommand() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "imgview",
		Short:         "Interactive image viewport",
		Long:          "imgview displays an image with pan, zoom, fit-to-panel and comparison modes.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging(logOptions{Level: g.logLevel, Format: g.logFormat, File: g.logFile})
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	pf.BoolVar(&g.refine, "refine", false, "use Refine canvas defaults (tighter fit padding)")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "console", "log format: console or json")
	pf.StringVar(&g.logFile, "log-file", "", "also write JSON logs to this rotated file")

	root.AddCommand(newViewCommand(&g))
	root.AddCommand(newRenderCommand(&g))
	return root
}
