// mediagraph evaluates node graphs built from media files.
//
// Usage:
//
//	mediagraph probe FILE...
//	mediagraph render --out frame.png [--opacity 0.5] [--time 1/2] BASE [OVERLAY...]
//	mediagraph dot [--record] BASE [OVERLAY...]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warriorguo/mediagraph/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config   string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "mediagraph",
	Short: "Evaluate media node graphs",
	Long:  "mediagraph probes media files, composites them through a node graph\nand renders single frames or the graph itself.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// cfg is filled before any subcommand runs.
var cfg = config.Default()

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&rootFlags.config, "config", "c", "", "YAML config file")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(dotCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(rootFlags.config)
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		c.Log.Level = rootFlags.logLevel
	}
	if err := c.ApplyLogging(); err != nil {
		return err
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
