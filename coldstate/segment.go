package coldstate

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// ArchiveLog compresses the bytes of the log at logPath (header included)
// into archivePath with zstd, for operators who want to keep compacted
// history around after Compact truncates the live log, per spec §9
// ("single growing log file, no segmentation" — the live log is never
// split into numbered segments; this is an optional, explicit export of
// its prior contents, not part of the write path).
func ArchiveLog(logPath, archivePath string) (bytesBefore, bytesAfter int64, err error) {
	src, err := os.Open(logPath)
	if err != nil {
		return 0, 0, err
	}
	defer src.Close()

	stat, err := src.Stat()
	if err != nil {
		return 0, 0, err
	}
	bytesBefore = stat.Size()

	dst, err := os.Create(archivePath)
	if err != nil {
		return 0, 0, err
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return 0, 0, err
	}

	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return 0, 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, 0, err
	}

	archStat, err := dst.Stat()
	if err != nil {
		return bytesBefore, 0, err
	}
	return bytesBefore, archStat.Size(), nil
}

// RestoreArchivedLog decompresses a zstd archive produced by ArchiveLog
// back into plain log bytes, for an operator reconstructing history that
// was compacted out of the live log.
func RestoreArchivedLog(archivePath, outPath string) error {
	src, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dec, err := zstd.NewReader(src)
	if err != nil {
		return err
	}
	defer dec.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, dec); err != nil {
		return fmt.Errorf("coldstate: restoring archive %s: %w", archivePath, err)
	}
	return nil
}
