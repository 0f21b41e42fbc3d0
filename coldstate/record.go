package coldstate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/spatio/core"
)

// recordVersion is the payload encoding version, written into every
// payload; unmarshalPayload rejects a payload carrying any other version.
const recordVersion = 1

// opKind identifies what kind of event a log record carries.
type opKind uint8

const (
	opUpsert opKind = iota
	opDelete
)

// LogRecord is the cold-state log's unit of durability: one upsert or
// delete event, independent of any tombstone bookkeeping in the index —
// per spec §9 "log without tombstones", a delete is simply another
// record kind, not a special marker requiring later compaction to
// interpret.
type LogRecord struct {
	RecordID  core.RecordID
	Op        string // "upsert" or "delete"
	Namespace core.Namespace
	ObjectId  core.ObjectId
	Point     core.Point
	Metadata  []byte
	TTL       time.Duration
	Timestamp time.Time
}

func (r LogRecord) kind() opKind {
	if r.Op == "delete" {
		return opDelete
	}
	return opUpsert
}

// EncodeUpsert builds the log record for an upsert, stamping a fresh
// RecordID.
func EncodeUpsert(ns core.Namespace, id core.ObjectId, p core.Point, metadata []byte, ttl time.Duration, ts time.Time) LogRecord {
	return LogRecord{
		RecordID: core.NewRecordID(), Op: "upsert",
		Namespace: ns, ObjectId: id, Point: p, Metadata: metadata, TTL: ttl, Timestamp: ts,
	}
}

// EncodeDelete builds the log record for a delete, stamping a fresh
// RecordID.
func EncodeDelete(ns core.Namespace, id core.ObjectId, ts time.Time) LogRecord {
	return LogRecord{
		RecordID: core.NewRecordID(), Op: "delete",
		Namespace: ns, ObjectId: id, Timestamp: ts,
	}
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readInt64(r *bytes.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errShortPayload
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func unixNano(ns int64) time.Time { return time.Unix(0, ns) }

func durationOf(ns int64) time.Duration { return time.Duration(ns) }

// marshalPayload encodes r into the record payload (everything between
// the frame's length prefix and its CRC), per spec §4.2's length-
// prefixed, CRC-checked record format.
func marshalPayload(r LogRecord) ([]byte, error) {
	id, err := uuid.Parse(string(r.RecordID))
	if err != nil {
		return nil, fmt.Errorf("coldstate: invalid record id %q: %w", r.RecordID, err)
	}
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersion)
	buf.WriteByte(byte(r.kind()))
	buf.Write(idBytes)
	writeString(&buf, string(r.Namespace))
	writeString(&buf, string(r.ObjectId))

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(r.Timestamp.UnixNano()))
	buf.Write(tsBuf[:])

	if r.kind() == opUpsert {
		writeFloat64(&buf, r.Point.X)
		writeFloat64(&buf, r.Point.Y)
		writeFloat64(&buf, r.Point.Z)
		writeBytes(&buf, r.Metadata)
		var ttlBuf [8]byte
		binary.LittleEndian.PutUint64(ttlBuf[:], uint64(int64(r.TTL)))
		buf.Write(ttlBuf[:])
	}

	return buf.Bytes(), nil
}

// errShortPayload means the payload ended before a fixed-size field could
// be read in full — always a truncated-tail symptom, never a corrupt
// interior frame (earlier frames are protected by their own CRC).
var errShortPayload = fmt.Errorf("coldstate: payload too short")

// unmarshalPayload decodes a record payload produced by marshalPayload.
func unmarshalPayload(data []byte) (LogRecord, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return LogRecord{}, errShortPayload
	}
	if version != recordVersion {
		return LogRecord{}, fmt.Errorf("coldstate: unsupported record version %d", version)
	}

	kindByte, err := r.ReadByte()
	if err != nil {
		return LogRecord{}, errShortPayload
	}

	var idBytes [16]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return LogRecord{}, errShortPayload
	}
	id, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		return LogRecord{}, fmt.Errorf("coldstate: invalid record id bytes: %w", err)
	}

	ns, err := readString(r)
	if err != nil {
		return LogRecord{}, err
	}
	objID, err := readString(r)
	if err != nil {
		return LogRecord{}, err
	}

	var tsBuf [8]byte
	if _, err := io.ReadFull(r, tsBuf[:]); err != nil {
		return LogRecord{}, errShortPayload
	}
	ts := time.Unix(0, int64(binary.LittleEndian.Uint64(tsBuf[:])))

	out := LogRecord{
		RecordID:  core.RecordID(id.String()),
		Namespace: core.Namespace(ns),
		ObjectId:  core.ObjectId(objID),
		Timestamp: ts,
	}

	switch opKind(kindByte) {
	case opUpsert:
		out.Op = "upsert"
		x, err := readFloat64(r)
		if err != nil {
			return LogRecord{}, err
		}
		y, err := readFloat64(r)
		if err != nil {
			return LogRecord{}, err
		}
		z, err := readFloat64(r)
		if err != nil {
			return LogRecord{}, err
		}
		out.Point = core.Point{X: x, Y: y, Z: z}
		meta, err := readBytes(r)
		if err != nil {
			return LogRecord{}, err
		}
		out.Metadata = meta
		var ttlBuf [8]byte
		if _, err := io.ReadFull(r, ttlBuf[:]); err != nil {
			return LogRecord{}, errShortPayload
		}
		out.TTL = time.Duration(int64(binary.LittleEndian.Uint64(ttlBuf[:])))
	case opDelete:
		out.Op = "delete"
	default:
		return LogRecord{}, fmt.Errorf("coldstate: unknown record op %d", kindByte)
	}

	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", errShortPayload
	}
	n := binary.LittleEndian.Uint16(lenBuf[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", errShortPayload
	}
	return string(b), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, errShortPayload
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, errShortPayload
	}
	return b, nil
}

func readFloat64(r *bytes.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errShortPayload
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}
