//go:build unix

package coldstate

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsync commits f per mode: SyncAll does a full fsync (data and
// metadata); SyncData does a data-only fdatasync, skipping the inode
// metadata flush an append-only file rarely needs.
func fsync(f *os.File, mode SyncMode) error {
	if mode == SyncData {
		return unix.Fdatasync(int(f.Fd()))
	}
	return f.Sync()
}
