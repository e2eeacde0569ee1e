//go:build unix

package ffmpeg

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// KillTree signals the process group so child helpers spawned by the encoder
// die with it. SIGTERM first, SIGKILL after the grace period if the group is
// still alive.
func KillTree(proc *os.Process, grace time.Duration) error {
	if proc == nil {
		return nil
	}
	pgid, err := unix.Getpgid(proc.Pid)
	if err != nil {
		// Group already gone or never ours; fall back to the process itself.
		return proc.Kill()
	}
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
		return err
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if unix.Kill(-pgid, 0) != nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return unix.Kill(-pgid, unix.SIGKILL)
}
