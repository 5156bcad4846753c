//go:build linux

package parallex

import "golang.org/x/sys/unix"

// setCurrentThreadPriority passes priority through to the OS scheduler for
// the calling thread via setpriority(2). The caller must have already
// pinned the goroutine to its OS thread with runtime.LockOSThread, or this
// silently affects whichever thread happens to be running it next.
func setCurrentThreadPriority(priority int) {
	_ = unix.Setpriority(unix.PRIO_PROCESS, 0, priority)
}
