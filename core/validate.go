package core

import "math"

// ValidPoint reports whether p satisfies spec §3 invariant 3: finite
// coordinates, longitude in [-180, 180], latitude in [-90, 90]. Altitude
// has no range constraint beyond being finite.
func ValidPoint(p Point) bool {
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
		return false
	}
	if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		return false
	}
	if math.IsNaN(p.Z) || math.IsInf(p.Z, 0) {
		return false
	}
	return p.X >= -180 && p.X <= 180 && p.Y >= -90 && p.Y <= 90
}

// ValidObjectId reports whether id satisfies spec §3's "ObjectId ...
// non-empty" invariant.
func ValidObjectId(id ObjectId) bool { return id != "" }

// ValidNamespace reports whether ns is non-empty, per spec §3.
func ValidNamespace(ns Namespace) bool { return ns != "" }

// ValidBoundingBox2D reports whether min <= max on every axis.
func ValidBoundingBox2D(b BoundingBox2D) bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// ValidBoundingBox3D reports whether min <= max on every axis.
func ValidBoundingBox3D(b BoundingBox3D) bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY && b.MinZ <= b.MaxZ
}
