package main

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/parallex-go/parallex"
)

var (
	benchItems   int
	benchThreads []int
	benchCopy    bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark AMap across a range of pool sizes",
	Long:  `bench runs the same AMap workload at several pool sizes and reports elapsed time for each, to show how throughput scales with worker count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data := make([]int, benchItems)
		for i := range data {
			data[i] = i
		}

		sizes := benchThreads
		if len(sizes) == 0 {
			sizes = []int{0, 1, 2, 4, parallex.TotalCPUs()}
		}

		var report string
		for _, n := range sizes {
			pool := parallex.NewPool(n)
			start := time.Now()
			_, err := parallex.AMap(pool, func(v int) (int, error) { return v * v, nil }, data, nil)
			elapsed := time.Since(start)
			pool.Stop()
			if err != nil {
				return fmt.Errorf("bench at %d workers: %w", n, err)
			}
			line := fmt.Sprintf("workers=%-3d elapsed=%s\n", n, elapsed)
			fmt.Print(line)
			report += line
		}

		if benchCopy {
			if err := clipboard.WriteAll(report); err != nil {
				fmt.Println("warning: could not copy results to clipboard:", err)
			} else {
				fmt.Println("results copied to clipboard")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&benchItems, "items", 2_000_000, "number of elements to map")
	benchCmd.Flags().IntSliceVar(&benchThreads, "threads", nil, "pool sizes to benchmark; defaults to 0,1,2,4,NumCPU")
	benchCmd.Flags().BoolVar(&benchCopy, "copy", false, "copy the results table to the system clipboard")
}
