package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parallex-go/parallex/internal/runstore"
	"github.com/parallex-go/parallex/internal/runtimecfg"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := runtimecfg.Current()
		if err := runstore.Open(cfg.History.DBPath); err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer runstore.Close()

		runs, err := runstore.List(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}
		for _, r := range runs {
			status := "ok"
			if r.Err != "" {
				status = "FAILED: " + r.Err
			}
			fmt.Fprintf(os.Stdout, "%s  %-8s items=%-8d workers=%-3d %-8s %s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), r.Operation, r.ItemCount, r.PoolSize, r.Duration, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
}
