package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	parallex "github.com/parallex-go/parallex"
	"github.com/parallex-go/parallex/internal/runstore"
	"github.com/parallex-go/parallex/internal/runtimecfg"
)

var (
	runItems    int
	runThreads  int
	runWorkUnit int
	runOp       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a data-parallel operation against a pool and record the result",
	Long:  `run drives ForEach, AMap, or Reduce over a generated slice of ints and records the outcome to run history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runItems <= 0 {
			return fmt.Errorf("--items must be positive")
		}

		cfg := runtimecfg.Current()
		if cfg.History.Enabled {
			if err := runstore.Open(cfg.History.DBPath); err != nil {
				fmt.Fprintf(os.Stderr, "warning: run history disabled: %v\n", err)
				cfg.History.Enabled = false
			}
		}

		pool := parallex.NewPool(runThreads)
		defer pool.Stop()

		data := make([]int, runItems)
		for i := range data {
			data[i] = i
		}

		var opts []parallex.ForEachOption
		if runWorkUnit > 0 {
			opts = append(opts, parallex.ForEachOption{WorkUnit: runWorkUnit})
		}

		started := time.Now()
		var runErr error
		switch runOp {
		case "foreach":
			runErr = parallex.ForEach(pool, data, func(_ int, v int) error {
				_ = v * v
				return nil
			}, opts...)
		case "amap":
			_, runErr = parallex.AMap(pool, func(v int) (int, error) { return v * v, nil }, data, nil, opts...)
		case "reduce":
			_, runErr = parallex.Reduce(pool, data, nil, func(a, b int) int { return a + b }, opts...)
		default:
			return fmt.Errorf("unknown --op %q (want foreach, amap, or reduce)", runOp)
		}
		finished := time.Now()

		errMsg := ""
		if runErr != nil {
			errMsg = runErr.Error()
		}

		if cfg.History.Enabled {
			rec := &runstore.Run{
				Operation:  runOp,
				PoolSize:   pool.Size(),
				ItemCount:  runItems,
				WorkUnit:   runWorkUnit,
				Duration:   finished.Sub(started),
				Err:        errMsg,
				StartedAt:  started,
				FinishedAt: finished,
			}
			if err := runstore.Save(rec); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to record run: %v\n", err)
			} else {
				fmt.Printf("recorded run %s\n", rec.ID)
			}
		}

		if runErr != nil {
			return runErr
		}
		fmt.Printf("%s over %d items on %d workers took %s\n", runOp, runItems, pool.Size(), finished.Sub(started))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runItems, "items", 100000, "number of elements to process")
	runCmd.Flags().IntVar(&runThreads, "threads", parallex.DefaultPoolThreads(), "worker pool size")
	runCmd.Flags().IntVar(&runWorkUnit, "work-unit", 0, "elements per task; 0 auto-sizes")
	runCmd.Flags().StringVar(&runOp, "op", "foreach", "operation to run: foreach, amap, or reduce")
}
