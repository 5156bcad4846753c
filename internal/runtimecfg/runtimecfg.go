// Package runtimecfg holds the process-wide defaults the cmd/parallex CLI
// and the dashboard read and edit, grouped into categories the same way
// the original settings screen grouped General/Connections/Chunks/
// Performance.
package runtimecfg

import "sync"

// Pool groups the knobs that size and shape the worker pool a run uses.
type Pool struct {
	Threads         int
	DefaultWorkUnit int
	AsyncBufferSize int
	ThreadPriority  int
}

// History groups the run-history persistence knobs.
type History struct {
	Enabled bool
	DBPath  string
}

// Dashboard groups the live-TUI knobs.
type Dashboard struct {
	RefreshInterval string // duration string, parsed by the dashboard package
	Theme           string
}

// Settings is the full set of process-wide defaults, organized the way the
// teacher's settings screen organized its categories.
type Settings struct {
	Pool      Pool
	History   History
	Dashboard Dashboard
}

// SettingMeta describes one editable field for a generic settings UI.
type SettingMeta struct {
	Key         string
	Label       string
	Description string
	Type        string // "int", "bool", "string", "duration"
}

var (
	mu      sync.RWMutex
	current = Default()
)

// Default returns the built-in defaults: pool threads following
// runtime.NumCPU()-1 (mirrored by parallex.DefaultPoolThreads at call
// time, not baked in here to avoid an import cycle), a modest async
// buffer, and history/dashboard both on.
func Default() Settings {
	return Settings{
		Pool: Pool{
			Threads:         0, // 0 means "defer to parallex.DefaultPoolThreads()"
			DefaultWorkUnit: 0, // 0 means "defer to the algorithm's own heuristic"
			AsyncBufferSize: 64,
			ThreadPriority:  0,
		},
		History: History{
			Enabled: true,
			DBPath:  "parallex-runs.db",
		},
		Dashboard: Dashboard{
			RefreshInterval: "200ms",
			Theme:           "neon",
		},
	}
}

// Current returns a copy of the process-wide settings.
func Current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set replaces the process-wide settings.
func Set(s Settings) {
	mu.Lock()
	current = s
	mu.Unlock()
}

// CategoryOrder is the fixed display order for a settings UI.
func CategoryOrder() []string {
	return []string{"Pool", "History", "Dashboard"}
}

// Metadata describes every editable field, grouped by category, in the
// same key/label/description/type shape the original settings metadata
// used.
func Metadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"Pool": {
			{Key: "threads", Label: "Worker Threads", Description: "Number of pool workers; 0 defers to NumCPU()-1.", Type: "int"},
			{Key: "default_work_unit", Label: "Default Work Unit", Description: "Elements per task for ForEach/AMap/Reduce; 0 auto-sizes.", Type: "int"},
			{Key: "async_buffer_size", Label: "Async Buffer Size", Description: "Elements per AsyncBuf/LazyMap buffer.", Type: "int"},
			{Key: "thread_priority", Label: "Thread Priority", Description: "Best-effort OS thread priority hint for workers.", Type: "int"},
		},
		"History": {
			{Key: "enabled", Label: "Record Runs", Description: "Persist run history to the local database.", Type: "bool"},
			{Key: "db_path", Label: "Database Path", Description: "SQLite file backing run history.", Type: "string"},
		},
		"Dashboard": {
			{Key: "refresh_interval", Label: "Refresh Interval", Description: "How often the live dashboard repaints.", Type: "duration"},
			{Key: "theme", Label: "Theme", Description: "Color theme name.", Type: "string"},
		},
	}
}
