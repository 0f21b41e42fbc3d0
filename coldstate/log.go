package coldstate

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
)

const (
	logMagic      = "SPATIOLG" // 8 bytes
	logVersion    = 1          // 4 bytes
	logHeaderSize = 12
)

// Log is a single, ever-growing append-only file: length-prefixed,
// CRC32-checked records with no segmentation or rotation, per spec §9
// open question ("single growing log file, no segmentation"). Its
// durability model (buffered writer, background fsync goroutine woken by
// a condition variable, waiters blocked on a target offset) follows the
// same group-commit shape as a conventional write-ahead log, adapted
// here to frame spatio-temporal records instead of transactional ones.
type Log struct {
	mu            sync.Mutex
	file          *os.File
	w             *bufio.Writer
	n             int64 // bytes written (including header)
	mode          SyncMode
	syncBatchSize int // flushes (Appends) accumulated before signaling a sync
	pending       int // flushes since the last sync signal

	syncedOffset int64
	syncCond     *sync.Cond
	doneCond     *sync.Cond
	closed       bool
	lastErr      error
	syncerDone   chan struct{}
}

// OpenLog opens or creates the log at path. mode selects how the
// background syncer commits each batch (spec §6 sync_mode); batchSize is
// how many Appends accumulate before a sync is signaled (spec §6
// sync_batch_size). batchSize <= 0 syncs after every Append.
func OpenLog(path string, mode SyncMode, batchSize int) (*Log, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	offset := stat.Size()

	if offset == 0 {
		header := make([]byte, logHeaderSize)
		copy(header[0:8], logMagic)
		binary.LittleEndian.PutUint32(header[8:12], logVersion)
		if _, err := f.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
		offset = logHeaderSize
	} else {
		if offset < logHeaderSize {
			f.Close()
			return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrCorruptLog, offset)
		}
		header := make([]byte, logHeaderSize)
		if _, err := f.ReadAt(header, 0); err != nil {
			f.Close()
			return nil, err
		}
		if string(header[0:8]) != logMagic {
			f.Close()
			return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptLog, header[0:8])
		}
		ver := binary.LittleEndian.Uint32(header[8:12])
		if ver != logVersion {
			f.Close()
			return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptLog, ver)
		}
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}

	l := &Log{
		file:          f,
		w:             bufio.NewWriter(f),
		n:             offset,
		mode:          mode,
		syncBatchSize: batchSize,
		syncedOffset:  offset,
	}
	l.syncCond = sync.NewCond(&l.mu)
	l.doneCond = sync.NewCond(&l.mu)
	l.syncerDone = make(chan struct{})
	go l.runSyncer()

	return l, nil
}

// Size returns the current log size in bytes, including the header.
func (l *Log) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

func (l *Log) runSyncer() {
	defer close(l.syncerDone)
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		for l.n <= l.syncedOffset && !l.closed {
			l.syncCond.Wait()
		}
		if l.closed && l.n <= l.syncedOffset {
			return
		}

		target := l.n
		mode := l.mode
		l.mu.Unlock()
		err := fsync(l.file, mode)
		l.mu.Lock()

		if err != nil {
			l.lastErr = fmt.Errorf("coldstate: log sync failed: %w", err)
			l.doneCond.Broadcast()
			return
		}
		if target > l.syncedOffset {
			l.syncedOffset = target
		}
		l.doneCond.Broadcast()
	}
}

// Append frames rec as [len:u32][payload][crc32:u32] and writes it to the
// buffered writer, per spec §4.2. It signals the background syncer once
// syncBatchSize Appends have accumulated since the last signal; callers
// that need a stronger guarantee than "eventually synced" drive
// durability explicitly via WaitFor/Sync.
func (l *Log) Append(rec LogRecord) (offset int64, err error) {
	payload, err := marshalPayload(rec)
	if err != nil {
		return 0, err
	}
	sum := crc32.ChecksumIEEE(payload)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, os.ErrClosed
	}
	if l.lastErr != nil {
		return 0, l.lastErr
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := l.w.Write(lenBuf[:]); err != nil {
		return 0, err
	}
	if _, err := l.w.Write(payload); err != nil {
		return 0, err
	}
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], sum)
	if _, err := l.w.Write(crcBuf[:]); err != nil {
		return 0, err
	}
	if err := l.w.Flush(); err != nil {
		return 0, err
	}

	l.n += int64(4 + len(payload) + 4)
	offset = l.n

	l.pending++
	if l.pending >= l.syncBatchSize {
		l.pending = 0
		l.syncCond.Signal()
	}
	return offset, nil
}

// WaitFor blocks until the log is durably synced at least up to offset.
func (l *Log) WaitFor(offset int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.syncedOffset < offset && !l.closed && l.lastErr == nil {
		l.doneCond.Wait()
	}
	if l.lastErr != nil {
		return l.lastErr
	}
	if l.closed && l.syncedOffset < offset {
		return os.ErrClosed
	}
	return nil
}

// Sync forces a sync (per the configured SyncMode) of everything
// buffered so far, blocking until the background syncer confirms it,
// used by explicit Flush calls.
func (l *Log) Sync() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return os.ErrClosed
	}
	if err := l.w.Flush(); err != nil {
		l.mu.Unlock()
		return err
	}
	target := l.n
	l.pending = 0
	l.syncCond.Signal()
	for l.syncedOffset < target && !l.closed && l.lastErr == nil {
		l.doneCond.Wait()
	}
	err := l.lastErr
	l.mu.Unlock()
	return err
}

// Close flushes, stops the syncer, and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return os.ErrClosed
	}
	if err := l.w.Flush(); err != nil {
		l.mu.Unlock()
		l.file.Close()
		return err
	}
	l.closed = true
	l.pending = 0
	l.syncCond.Signal()
	l.mu.Unlock()

	<-l.syncerDone
	return l.file.Close()
}

// Truncate truncates the log back to the header, used after a successful
// Compact snapshot has made every prior record redundant.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Truncate(logHeaderSize); err != nil {
		return err
	}
	if _, err := l.file.Seek(logHeaderSize, io.SeekStart); err != nil {
		return err
	}
	l.w = bufio.NewWriter(l.file)
	l.n = logHeaderSize
	l.syncedOffset = logHeaderSize
	return nil
}
