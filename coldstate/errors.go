package coldstate

import "errors"

var (
	// ErrAlreadyOpen is returned when the database directory's lock file
	// is already held by another process, per spec §6.
	ErrAlreadyOpen = errors.New("coldstate: database already open")

	// ErrCorruptLog is returned when the log's header is missing or
	// unreadable. A bad tail frame is not this error — it is silently
	// truncated during replay, per spec §4.4.
	ErrCorruptLog = errors.New("coldstate: log header is corrupt")

	// ErrBufferFull reports a full buffer, per spec §4.2. Buffer.Push does
	// not return it: a full buffer evicts its oldest record instead, and
	// no function in this package returns this error.
	ErrBufferFull = errors.New("coldstate: write buffer full")
)
