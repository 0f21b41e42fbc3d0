// Package distance implements the metrics Spatio uses for spatial queries
// and for explicit point-to-point distance calls.
//
// Index traversal (radius, sphere, cylinder, KNN) always uses Haversine
// (ground) plus altitude delta for 3D, per spec §4.1. The remaining
// metrics (geodesic, rhumb, planar Euclidean) are exposed for explicit
// "distance between two points" calls, mirroring the original crate's
// distance_between(p1, p2, metric) surface.
package distance

import (
	"fmt"
	"math"

	"github.com/hupe1980/spatio/core"
)

// EarthRadiusMeters is the mean radius of a spherical Earth used by the
// Haversine metric, per spec §4.1.
const EarthRadiusMeters = 6_371_000.0

// Metric identifies a point-to-point distance function.
type Metric int

const (
	// Haversine computes great-circle distance on a sphere of radius
	// EarthRadiusMeters. This is the only metric used inside index
	// traversal.
	Haversine Metric = iota
	// Geodesic approximates the ellipsoidal (WGS84) distance using the
	// Vincenty inverse formula.
	Geodesic
	// Rhumb computes the constant-bearing (loxodromic) distance.
	Rhumb
	// Euclidean computes planar distance treating (x, y) as Cartesian
	// coordinates in degrees. Only meaningful for small, already-projected
	// areas; provided for completeness.
	Euclidean
)

func (m Metric) String() string {
	switch m {
	case Haversine:
		return "haversine"
	case Geodesic:
		return "geodesic"
	case Rhumb:
		return "rhumb"
	case Euclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineMeters returns the great-circle surface distance in meters
// between two (lon, lat) pairs, ignoring altitude.
func HaversineMeters(aX, aY, bX, bY float64) float64 {
	lat1, lat2 := toRad(aY), toRad(bY)
	dLat := toRad(bY - aY)
	dLon := toRad(bX - aX)

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Horizontal3D returns the horizontal (ground) Haversine distance between
// two points, ignoring Z.
func Horizontal3D(a, b core.Point) float64 {
	return HaversineMeters(a.X, a.Y, b.X, b.Y)
}

// Combined3D returns sqrt(horizontal^2 + dz^2), per spec §4.1.
func Combined3D(a, b core.Point) float64 {
	h := Horizontal3D(a, b)
	dz := a.Z - b.Z
	return math.Sqrt(h*h + dz*dz)
}

// euclideanPlanar treats (x, y, z) as Cartesian.
func euclideanPlanar(a, b core.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// rhumbMeters computes the loxodromic (constant bearing) distance.
func rhumbMeters(aX, aY, bX, bY float64) float64 {
	lat1, lat2 := toRad(aY), toRad(bY)
	dPhi := lat2 - lat1
	dLambda := toRad(bX - aX)

	// Take the shorter way around the antimeridian.
	if math.Abs(dLambda) > math.Pi {
		if dLambda > 0 {
			dLambda -= 2 * math.Pi
		} else {
			dLambda += 2 * math.Pi
		}
	}

	dPsi := math.Log(math.Tan(math.Pi/4+lat2/2) / math.Tan(math.Pi/4+lat1/2))
	var q float64
	if math.Abs(dPsi) > 1e-12 {
		q = dPhi / dPsi
	} else {
		q = math.Cos(lat1)
	}

	return math.Sqrt(dPhi*dPhi+q*q*dLambda*dLambda) * EarthRadiusMeters
}

// vincentyGeodesic computes the WGS84 ellipsoidal distance via Vincenty's
// inverse formula, falling back to Haversine if the iteration fails to
// converge (near-antipodal points).
func vincentyGeodesic(aX, aY, bX, bY float64) float64 {
	const (
		a = 6378137.0         // WGS84 semi-major axis
		f = 1 / 298.257223563 // WGS84 flattening
		b = a * (1 - f)
	)

	L := toRad(bX - aX)
	U1 := math.Atan((1 - f) * math.Tan(toRad(aY)))
	U2 := math.Atan((1 - f) * math.Tan(toRad(bY)))
	sinU1, cosU1 := math.Sin(U1), math.Cos(U1)
	sinU2, cosU2 := math.Sin(U2), math.Cos(U2)

	lambda := L
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	converged := false

	for i := 0; i < 200; i++ {
		sinLambda, cosLambda := math.Sin(lambda), math.Cos(lambda)
		t1 := cosU2 * sinLambda
		t2 := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma = math.Sqrt(t1*t1 + t2*t2)
		if sinSigma == 0 {
			return 0 // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		} else {
			cos2SigmaM = 0 // equatorial line
		}
		C := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		lambdaPrev := lambda
		lambda = L + (1-C)*f*sinAlpha*
			(sigma + C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-lambdaPrev) < 1e-12 {
			converged = true
			break
		}
	}

	uSq := cosSqAlpha * (a*a - b*b) / (b * b)
	A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	dist := b * A * (sigma - deltaSigma)
	if !converged || math.IsNaN(dist) {
		return HaversineMeters(aX, aY, bX, bY)
	}
	return dist
}

// DistanceBetween computes the distance between two points using the
// given metric. For Haversine and Geodesic, altitude is folded in via
// sqrt(horizontal^2 + dz^2), exactly as index traversal does for 3D
// queries. Euclidean treats Z as a third Cartesian axis; Rhumb ignores Z,
// since altitude has no rhumb-line meaning.
func DistanceBetween(a, b core.Point, metric Metric) float64 {
	switch metric {
	case Haversine:
		h := HaversineMeters(a.X, a.Y, b.X, b.Y)
		dz := a.Z - b.Z
		return math.Sqrt(h*h + dz*dz)
	case Geodesic:
		h := vincentyGeodesic(a.X, a.Y, b.X, b.Y)
		dz := a.Z - b.Z
		return math.Sqrt(h*h + dz*dz)
	case Rhumb:
		return rhumbMeters(a.X, a.Y, b.X, b.Y)
	case Euclidean:
		return euclideanPlanar(a, b)
	default:
		return HaversineMeters(a.X, a.Y, b.X, b.Y)
	}
}

// BoundingBoxOf returns the smallest BoundingBox3D containing every point
// in pts. Supplements spec.md's polygon/bbox queries with the convenience
// helper the original crate exposed (bounding_box).
func BoundingBoxOf(pts []core.Point) (core.BoundingBox3D, bool) {
	if len(pts) == 0 {
		return core.BoundingBox3D{}, false
	}
	b := core.BoundingBox3D{
		MinX: pts[0].X, MaxX: pts[0].X,
		MinY: pts[0].Y, MaxY: pts[0].Y,
		MinZ: pts[0].Z, MaxZ: pts[0].Z,
	}
	for _, p := range pts[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxY = math.Max(b.MaxY, p.Y)
		b.MinZ = math.Min(b.MinZ, p.Z)
		b.MaxZ = math.Max(b.MaxZ, p.Z)
	}
	return b, true
}

// ConvexHull returns the convex hull of pts projected onto the (x, y)
// plane, computed via the monotone chain algorithm. Altitude is dropped;
// callers needing a 3D hull should project per band of Z themselves. This
// supplements spec.md's polygon containment queries (§4.1) with the
// convex_hull helper the original crate exposed.
func ConvexHull(pts []core.Point) []core.Point {
	if len(pts) < 3 {
		out := make([]core.Point, len(pts))
		copy(out, pts)
		return out
	}

	sorted := make([]core.Point, len(pts))
	copy(sorted, pts)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && less(sorted[j], sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	cross := func(o, a, b core.Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	n := len(sorted)
	hull := make([]core.Point, 0, 2*n)

	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}

func less(a, b core.Point) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}
