package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/parallex-go/parallex"
	"github.com/parallex-go/parallex/internal/dashboard"
	"github.com/parallex-go/parallex/internal/runtimecfg"
)

var watchItems int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a continuous AMap workload and watch pool occupancy live",
	Long:  `watch locks a single instance, starts a pool churning through AMap batches, and renders a live Bubble Tea dashboard of worker occupancy until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lockPath := filepath.Join(os.TempDir(), "parallex-watch.lock")
		fl := flock.New(lockPath)
		locked, err := fl.TryLock()
		if err != nil {
			return fmt.Errorf("acquire watch lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another parallex watch is already running (lock: %s)", lockPath)
		}
		defer fl.Unlock()

		pool := parallex.NewPool()
		defer pool.Stop()

		done := make(chan struct{})
		go churn(pool, watchItems, done)
		defer close(done)

		cfg := runtimecfg.Current()
		interval, err := time.ParseDuration(cfg.Dashboard.RefreshInterval)
		if err != nil {
			interval = 200 * time.Millisecond
		}

		poll := func() dashboard.Snapshot {
			stats := pool.Stats()
			workers := make([]dashboard.WorkerStat, len(stats.WorkersBusy))
			for i, busy := range stats.WorkersBusy {
				occ := 0.0
				if busy {
					occ = 1.0
				}
				workers[i] = dashboard.WorkerStat{Index: i + 1, Busy: busy, Occupancy: occ}
			}
			return dashboard.Snapshot{Workers: workers, Queued: stats.Queued, Completed: int(stats.Completed)}
		}

		program := tea.NewProgram(dashboard.New(poll, interval))
		_, err = program.Run()
		return err
	},
}

// churn keeps the pool continuously busy with small AMap batches so the
// dashboard has something to show until the caller interrupts it.
func churn(pool *parallex.Pool, items int, done <-chan struct{}) {
	data := make([]int, items)
	for i := range data {
		data[i] = i
	}
	for {
		select {
		case <-done:
			return
		default:
		}
		_, _ = parallex.AMap(pool, func(v int) (int, error) {
			time.Sleep(time.Millisecond)
			return v * v, nil
		}, data, nil)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchItems, "items", 64, "batch size per AMap round during the demo workload")
}
