package core

import "github.com/google/uuid"

// RecordID is the unique internal identifier stamped on every trajectory
// record appended to the cold-state log, independent of the caller's
// ObjectId. It lets a record be referenced unambiguously in the log and
// survives an object being deleted and later recreated
// under the same ObjectId, per spec §4.2.
type RecordID string

// NewRecordID generates a fresh, collision-resistant record id.
func NewRecordID() RecordID {
	return RecordID(uuid.NewString())
}
