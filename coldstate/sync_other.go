//go:build !unix

package coldstate

import "os"

// fsync commits f. Non-unix platforms have no portable data-only sync in
// the standard library, so both modes fall back to a full fsync.
func fsync(f *os.File, mode SyncMode) error {
	return f.Sync()
}
