// Command bindiffcore is the CLI surface over the matching engine: dump a
// single binary-export artifact, diff two of them, or diff many pairs
// concurrently.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "bindiffcore",
		Short: "Binary-diffing engine: disassembly dump, function/basic-block matching",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "logging verbosity: trace, debug, info, warn, error")

	rootCmd.AddCommand(newDumpCmd(), newDiffCmd(), newDiffBatchCmd())

	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
