package coldstate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/spatio/core"
)

const (
	snapshotMagic   = "SPATIOSN"
	snapshotVersion = 1
)

// WriteSnapshot persists the entire hot state (every namespace's current
// locations) as an lz4-compressed file tagged with the log offset it was
// taken at. Recovery loads the snapshot and then replays the whole live
// log on top of it; it does not use the recorded offset. Compact
// truncates the log right after writing the snapshot, so that log holds
// only records appended after it.
func WriteSnapshot(path string, logOffset int64, locations []core.CurrentLocation) error {
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	var verBuf [4]byte
	binary.LittleEndian.PutUint32(verBuf[:], snapshotVersion)
	buf.Write(verBuf[:])
	var offBuf [8]byte
	binary.LittleEndian.PutUint64(offBuf[:], uint64(logOffset))
	buf.Write(offBuf[:])
	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(locations)))
	buf.Write(countBuf[:])

	for _, loc := range locations {
		writeString(&buf, string(loc.Namespace))
		writeString(&buf, string(loc.ObjectId))
		writeFloat64(&buf, loc.Point.X)
		writeFloat64(&buf, loc.Point.Y)
		writeFloat64(&buf, loc.Point.Z)
		writeBytes(&buf, loc.Metadata)
		writeInt64(&buf, loc.CreatedAt.UnixNano())
		writeInt64(&buf, loc.UpdatedAt.UnixNano())
		writeInt64(&buf, int64(loc.TTL))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := lz4.NewWriter(f)
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. A missing file
// is not an error: callers fall back to a full log replay.
func ReadSnapshot(path string) (logOffset int64, locations []core.CurrentLocation, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	r := lz4.NewReader(f)
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, fmt.Errorf("coldstate: reading snapshot %s: %w", path, err)
	}

	br := bytes.NewReader(raw)
	magic := make([]byte, 8)
	if _, err := io.ReadFull(br, magic); err != nil || string(magic) != snapshotMagic {
		return 0, nil, fmt.Errorf("coldstate: bad snapshot magic in %s", path)
	}
	var verBuf [4]byte
	if _, err := io.ReadFull(br, verBuf[:]); err != nil {
		return 0, nil, err
	}
	if binary.LittleEndian.Uint32(verBuf[:]) != snapshotVersion {
		return 0, nil, fmt.Errorf("coldstate: unsupported snapshot version in %s", path)
	}
	var offBuf [8]byte
	if _, err := io.ReadFull(br, offBuf[:]); err != nil {
		return 0, nil, err
	}
	logOffset = int64(binary.LittleEndian.Uint64(offBuf[:]))
	var countBuf [8]byte
	if _, err := io.ReadFull(br, countBuf[:]); err != nil {
		return 0, nil, err
	}
	count := binary.LittleEndian.Uint64(countBuf[:])

	locations = make([]core.CurrentLocation, 0, count)
	for i := uint64(0); i < count; i++ {
		ns, err := readString(br)
		if err != nil {
			return 0, nil, err
		}
		id, err := readString(br)
		if err != nil {
			return 0, nil, err
		}
		x, err := readFloat64(br)
		if err != nil {
			return 0, nil, err
		}
		y, err := readFloat64(br)
		if err != nil {
			return 0, nil, err
		}
		z, err := readFloat64(br)
		if err != nil {
			return 0, nil, err
		}
		meta, err := readBytes(br)
		if err != nil {
			return 0, nil, err
		}
		createdAt, err := readInt64(br)
		if err != nil {
			return 0, nil, err
		}
		updatedAt, err := readInt64(br)
		if err != nil {
			return 0, nil, err
		}
		ttl, err := readInt64(br)
		if err != nil {
			return 0, nil, err
		}

		locations = append(locations, core.CurrentLocation{
			Namespace: core.Namespace(ns),
			ObjectId:  core.ObjectId(id),
			Point:     core.Point{X: x, Y: y, Z: z},
			Metadata:  meta,
			CreatedAt: unixNano(createdAt),
			UpdatedAt: unixNano(updatedAt),
			TTL:       durationOf(ttl),
		})
	}

	return logOffset, locations, nil
}
