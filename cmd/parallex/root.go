package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parallex-go/parallex/internal/obslog"
)

var (
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "parallex",
	Short: "parallex drives and inspects in-process worker pools",
	Long:  `parallex runs data-parallel workloads against the parallex library and records or replays their history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		obslog.Enable(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
