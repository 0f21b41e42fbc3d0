// Package core defines the entities shared across Spatio's hot and cold
// state: points, object identifiers, namespaces, and the records derived
// from them.
package core

import "time"

// ObjectId is a caller-provided identifier, unique within a Namespace.
// It is opaque to the engine.
type ObjectId string

// Namespace identifies a logical partition. Objects in different
// namespaces are disjoint for every index and query.
type Namespace string

// Point is a geographic coordinate: X is longitude in degrees
// ([-180, 180]), Y is latitude in degrees ([-90, 90]), Z is altitude in
// meters (finite, may be negative).
type Point struct {
	X, Y, Z float64
}

// NewPoint2D builds a Point at sea level (Z=0), the common case for 2D
// callers.
func NewPoint2D(x, y float64) Point {
	return Point{X: x, Y: y}
}

// BoundingBox2D is an axis-aligned rectangle in longitude/latitude space.
type BoundingBox2D struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundingBox3D is a BoundingBox2D extruded along the altitude axis.
type BoundingBox3D struct {
	MinX, MinY, MinZ, MaxX, MaxY, MaxZ float64
}

// CurrentLocation is the Hot State record for a live object.
type CurrentLocation struct {
	Namespace Namespace
	ObjectId  ObjectId
	Point     Point
	Metadata  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
	// TTL is the duration after which this entry is considered expired,
	// measured from UpdatedAt. Zero means "no TTL".
	TTL time.Duration
}

// Expired reports whether the location is expired as of now, per spec
// §3 invariant 5: expired when now > UpdatedAt + TTL.
func (c CurrentLocation) Expired(now time.Time) bool {
	if c.TTL <= 0 {
		return false
	}
	return now.After(c.UpdatedAt.Add(c.TTL))
}

// TrajectoryRecord is an immutable Cold State record written on every
// upsert.
type TrajectoryRecord struct {
	RecordID  RecordID
	Namespace Namespace
	ObjectId  ObjectId
	Point     Point
	Metadata  []byte
	Timestamp time.Time
}

// Result pairs a CurrentLocation with a distance computed by a query,
// shared by every distance-ordered query contract in §4.1.
type Result struct {
	ObjectId ObjectId
	Point    Point
	Metadata []byte
	Distance float64
}
