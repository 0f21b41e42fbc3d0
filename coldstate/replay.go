package coldstate

import (
	"encoding/binary"
	"hash/crc32"
	"os"
)

// Replay reads every well-formed record from the log at path in append
// order. A frame that fails its length or CRC check — the signature of a
// torn write left by an unclean shutdown — ends replay at that point
// without error; the file is truncated back to the last good frame
// boundary so a subsequent Open starts clean, per spec §4.4 "Recovery
// protocol" and the resolved open question that a corrupt tail is
// repaired silently rather than surfaced to the caller.
func Replay(path string) (records []LogRecord, truncated bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	size := stat.Size()
	if size == 0 {
		return nil, false, nil
	}
	if size < logHeaderSize {
		return nil, false, ErrCorruptLog
	}

	header := make([]byte, logHeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return nil, false, err
	}
	if string(header[0:8]) != logMagic {
		return nil, false, ErrCorruptLog
	}

	offset := int64(logHeaderSize)
	for offset < size {
		rec, next, ok := readFrame(f, offset, size)
		if !ok {
			truncated = true
			break
		}
		records = append(records, rec)
		offset = next
	}

	if truncated && offset != size {
		if err := f.Truncate(offset); err != nil {
			return records, truncated, err
		}
	}

	return records, truncated, nil
}

// readFrame reads one [len][payload][crc] frame starting at offset. ok is
// false if the frame is incomplete or its CRC doesn't match — either
// case means offset..size is a torn tail, not a mid-log corruption
// (every earlier frame already passed its own CRC check).
func readFrame(f *os.File, offset, size int64) (rec LogRecord, next int64, ok bool) {
	if offset+4 > size {
		return LogRecord{}, offset, false
	}
	var lenBuf [4]byte
	if _, err := f.ReadAt(lenBuf[:], offset); err != nil {
		return LogRecord{}, offset, false
	}
	payloadLen := int64(binary.LittleEndian.Uint32(lenBuf[:]))

	payloadStart := offset + 4
	crcStart := payloadStart + payloadLen
	frameEnd := crcStart + 4
	if payloadLen < 0 || frameEnd > size {
		return LogRecord{}, offset, false
	}

	payload := make([]byte, payloadLen)
	if _, err := f.ReadAt(payload, payloadStart); err != nil {
		return LogRecord{}, offset, false
	}
	var crcBuf [4]byte
	if _, err := f.ReadAt(crcBuf[:], crcStart); err != nil {
		return LogRecord{}, offset, false
	}
	want := binary.LittleEndian.Uint32(crcBuf[:])
	if crc32.ChecksumIEEE(payload) != want {
		return LogRecord{}, offset, false
	}

	r, err := unmarshalPayload(payload)
	if err != nil {
		return LogRecord{}, offset, false
	}
	return r, frameEnd, true
}
