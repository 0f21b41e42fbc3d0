package engine

import (
	"iter"
	"math"
	"sort"
	"time"

	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/distance"
	"github.com/hupe1980/spatio/rtree"
)

// Index traversal never takes a caller-chosen distance.Metric: per spec
// §4.1, radius/sphere/cylinder/KNN queries always measure by haversine
// (plus altitude delta for the 3D variants), matching the R*-tree's own
// MINDIST ordering exactly. distance.Metric stays pluggable only for
// distance.DistanceBetween's explicit point-to-point calls.

func boxToRect(box core.BoundingBox2D) rtree.Rect {
	return rtree.Rect{
		MinX: box.MinX, MinY: box.MinY, MinZ: math.Inf(-1),
		MaxX: box.MaxX, MaxY: box.MaxY, MaxZ: math.Inf(1),
	}
}

func box3DToRect(box core.BoundingBox3D) rtree.Rect {
	return rtree.Rect{
		MinX: box.MinX, MinY: box.MinY, MinZ: box.MinZ,
		MaxX: box.MaxX, MaxY: box.MaxY, MaxZ: box.MaxZ,
	}
}

// degreesPerMeter bounds a radius search's candidate rectangle before the
// exact-distance filter runs. It over-approximates (never under-
// approximates) so the AABB prune never discards a true match.
func degreesPerMeter(atLat float64) (dLon, dLat float64) {
	dLat = 1 / 110_574.0
	cos := math.Cos(atLat * math.Pi / 180)
	if cos < 1e-6 {
		cos = 1e-6
	}
	dLon = 1 / (111_320.0 * cos)
	return dLon, dLat
}

// sliceSeq adapts an already-materialized result slice to iter.Seq.
// Query results are computed eagerly, under the namespace lock, so that
// the anchor-relative variants can resolve their anchor and run the
// absolute query atomically (spec §9, "per-object anchor queries");
// holding the lock open across a caller-driven lazy iteration would
// defeat that.
func sliceSeq(results []core.Result) iter.Seq[core.Result] {
	return func(yield func(core.Result) bool) {
		for _, r := range results {
			if !yield(r) {
				return
			}
		}
	}
}

// excludeAndLimit drops id from results (used by the *Near relative
// queries, which never return the anchor itself) and truncates to
// limit. limit <= 0 means unbounded. It reuses results' backing array.
func excludeAndLimit(results []core.Result, id core.ObjectId, limit int) []core.Result {
	out := results[:0]
	for _, r := range results {
		if r.ObjectId == id {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// nearLimit returns how many candidates to fetch for a relative query
// that must exclude its own anchor: one more than requested, so excluding
// the anchor still leaves limit results when the anchor is its own
// nearest match. Callers must have already rejected limit < 0.
func nearLimit(limit int) int {
	if limit > 0 {
		return limit + 1
	}
	return limit
}

// queryRadiusLocked returns every live object within radiusMeters of
// center, ascending by distance, truncated to the first limit. Callers
// must hold s.mu for reading and must have already rejected limit < 0;
// limit == 0 returns nil.
func (s *namespaceState) queryRadiusLocked(center core.Point, radiusMeters float64, limit int, now time.Time) []core.Result {
	if limit == 0 {
		return nil
	}
	dLon, dLat := degreesPerMeter(center.Y)
	box := rtree.Rect{
		MinX: center.X - radiusMeters*dLon, MaxX: center.X + radiusMeters*dLon,
		MinY: center.Y - radiusMeters*dLat, MaxY: center.Y + radiusMeters*dLat,
		MinZ: math.Inf(-1), MaxZ: math.Inf(1),
	}

	var results []core.Result
	for entry := range s.tree.QueryEnvelope(box) {
		loc, ok := s.objs[core.ObjectId(entry.ID)]
		if !ok || loc.Expired(now) {
			continue
		}
		d := distance.Combined3D(center, loc.Point)
		if d > radiusMeters {
			continue
		}
		results = append(results, core.Result{ObjectId: loc.ObjectId, Point: loc.Point, Metadata: loc.Metadata, Distance: d})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// QueryRadius returns the first limit live objects within radiusMeters of
// center, ascending by distance, per spec §4.1 query_radius. limit == 0
// returns an empty sequence without error; limit < 0 is InvalidArgument.
func (e *Engine) QueryRadius(ns core.Namespace, center core.Point, radiusMeters float64, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if !core.ValidPoint(center) {
		return nil, ErrInvalidArgument
	}
	if radiusMeters < 0 || limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	results := s.queryRadiusLocked(center, radiusMeters, limit, now)
	s.mu.RUnlock()
	return sliceSeq(results), nil
}

// QueryRadiusNear is QueryRadius relative to id's current location,
// excluding id itself. The anchor is resolved and the query run under one
// held read lock, per spec §9: two separate locked operations would let
// the anchor move between them.
func (e *Engine) QueryRadiusNear(ns core.Namespace, id core.ObjectId, radiusMeters float64, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if radiusMeters < 0 || limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	anchor, ok := s.live(id)
	if !ok || anchor.Expired(now) {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	results := s.queryRadiusLocked(anchor.Point, radiusMeters, nearLimit(limit), now)
	s.mu.RUnlock()
	return sliceSeq(excludeAndLimit(results, id, limit)), nil
}

// queryRectLocked returns every live object inside rect. Order is
// unspecified but stable; early-stops once limit matches are found, per
// spec §5. Callers must hold s.mu for reading.
func (s *namespaceState) queryRectLocked(rect rtree.Rect, limit int, now time.Time) []core.Result {
	if limit == 0 {
		return nil
	}
	var results []core.Result
	for entry := range s.tree.QueryEnvelope(rect) {
		loc, ok := s.objs[core.ObjectId(entry.ID)]
		if !ok || loc.Expired(now) {
			continue
		}
		results = append(results, core.Result{ObjectId: loc.ObjectId, Point: loc.Point, Metadata: loc.Metadata})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results
}

// QueryBBox returns the first limit live objects inside a 2D bounding box
// (any altitude), per spec §4.1 query_bbox.
func (e *Engine) QueryBBox(ns core.Namespace, box core.BoundingBox2D, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	results := s.queryRectLocked(boxToRect(box), limit, now)
	s.mu.RUnlock()
	return sliceSeq(results), nil
}

// QueryBBoxNear is QueryBBox relative to id's current location: a box of
// total width w and height h centered on the anchor, excluding id itself.
func (e *Engine) QueryBBoxNear(ns core.Namespace, id core.ObjectId, w, h float64, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if w < 0 || h < 0 || limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	anchor, ok := s.live(id)
	if !ok || anchor.Expired(now) {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	dLon, dLat := degreesPerMeter(anchor.Point.Y)
	halfW, halfH := w/2, h/2
	rect := rtree.Rect{
		MinX: anchor.Point.X - halfW*dLon, MaxX: anchor.Point.X + halfW*dLon,
		MinY: anchor.Point.Y - halfH*dLat, MaxY: anchor.Point.Y + halfH*dLat,
		MinZ: math.Inf(-1), MaxZ: math.Inf(1),
	}
	results := s.queryRectLocked(rect, nearLimit(limit), now)
	s.mu.RUnlock()
	return sliceSeq(excludeAndLimit(results, id, limit)), nil
}

// QueryWithinBBox3D returns the first limit live objects inside a 3D
// bounding box, per spec §4.1 query_within_bbox_3d.
func (e *Engine) QueryWithinBBox3D(ns core.Namespace, box core.BoundingBox3D, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	results := s.queryRectLocked(box3DToRect(box), limit, now)
	s.mu.RUnlock()
	return sliceSeq(results), nil
}

// queryCylinderLocked returns every live object whose horizontal distance
// from center.X/Y is within radiusMeters and whose altitude lies in
// [minZ, maxZ], ascending by horizontal distance. Callers must hold s.mu
// for reading.
func (s *namespaceState) queryCylinderLocked(center core.Point, radiusMeters, minZ, maxZ float64, limit int, now time.Time) []core.Result {
	if limit == 0 {
		return nil
	}
	dLon, dLat := degreesPerMeter(center.Y)
	box := rtree.Rect{
		MinX: center.X - radiusMeters*dLon, MaxX: center.X + radiusMeters*dLon,
		MinY: center.Y - radiusMeters*dLat, MaxY: center.Y + radiusMeters*dLat,
		MinZ: minZ, MaxZ: maxZ,
	}

	var results []core.Result
	for entry := range s.tree.QueryEnvelope(box) {
		loc, ok := s.objs[core.ObjectId(entry.ID)]
		if !ok || loc.Expired(now) {
			continue
		}
		if loc.Point.Z < minZ || loc.Point.Z > maxZ {
			continue
		}
		h := distance.Horizontal3D(center, loc.Point)
		if h > radiusMeters {
			continue
		}
		results = append(results, core.Result{ObjectId: loc.ObjectId, Point: loc.Point, Metadata: loc.Metadata, Distance: h})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// QueryWithinCylinder returns the first limit live objects whose
// horizontal distance from center.X/Y is within radiusMeters and whose
// altitude lies in [minZ, maxZ], ascending by horizontal distance, per
// spec §4.1 query_within_cylinder. minZ > maxZ is rejected by the caller
// before this is reached (spec §9 resolved open question), but is also
// checked here for callers that use the engine directly.
func (e *Engine) QueryWithinCylinder(ns core.Namespace, center core.Point, radiusMeters, minZ, maxZ float64, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if minZ > maxZ {
		return nil, ErrInvalidArgument
	}
	if radiusMeters < 0 || limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	results := s.queryCylinderLocked(center, radiusMeters, minZ, maxZ, limit, now)
	s.mu.RUnlock()
	return sliceSeq(results), nil
}

// QueryCylinderNear is QueryWithinCylinder relative to id's current
// location, excluding id itself.
func (e *Engine) QueryCylinderNear(ns core.Namespace, id core.ObjectId, minZ, maxZ, radiusMeters float64, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if minZ > maxZ {
		return nil, ErrInvalidArgument
	}
	if radiusMeters < 0 || limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	anchor, ok := s.live(id)
	if !ok || anchor.Expired(now) {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	results := s.queryCylinderLocked(anchor.Point, radiusMeters, minZ, maxZ, nearLimit(limit), now)
	s.mu.RUnlock()
	return sliceSeq(excludeAndLimit(results, id, limit)), nil
}

// querySphere3DLocked returns every live object within radiusMeters of
// center by combined 3D distance, ascending. Callers must hold s.mu for
// reading.
func (s *namespaceState) querySphere3DLocked(center core.Point, radiusMeters float64, limit int, now time.Time) []core.Result {
	if limit == 0 {
		return nil
	}
	dLon, dLat := degreesPerMeter(center.Y)
	box := rtree.Rect{
		MinX: center.X - radiusMeters*dLon, MaxX: center.X + radiusMeters*dLon,
		MinY: center.Y - radiusMeters*dLat, MaxY: center.Y + radiusMeters*dLat,
		MinZ: center.Z - radiusMeters, MaxZ: center.Z + radiusMeters,
	}

	var results []core.Result
	for entry := range s.tree.QueryEnvelope(box) {
		loc, ok := s.objs[core.ObjectId(entry.ID)]
		if !ok || loc.Expired(now) {
			continue
		}
		d := distance.Combined3D(center, loc.Point)
		if d > radiusMeters {
			continue
		}
		results = append(results, core.Result{ObjectId: loc.ObjectId, Point: loc.Point, Metadata: loc.Metadata, Distance: d})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// QueryWithinSphere3D returns the first limit live objects within
// radiusMeters of center measured by the combined 3D distance (horizontal
// + altitude), ascending, per spec §4.1 query_within_sphere_3d.
func (e *Engine) QueryWithinSphere3D(ns core.Namespace, center core.Point, radiusMeters float64, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if !core.ValidPoint(center) {
		return nil, ErrInvalidArgument
	}
	if radiusMeters < 0 || limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	results := s.querySphere3DLocked(center, radiusMeters, limit, now)
	s.mu.RUnlock()
	return sliceSeq(results), nil
}

// knnLocked returns the k nearest live objects to center by combined 3D
// distance, ascending. This is the tree's native ordering: NearestIter's
// MINDIST is exactly Combined3D, so a bounded best-first traversal that
// stops at k is exact, per spec §4.1's KNN algorithm (a size-k result set
// fed by best-first index order, no overfetch or re-sort required since
// traversal order and result order coincide). Callers must hold s.mu for
// reading.
func (s *namespaceState) knnLocked(center core.Point, k int, now time.Time) []core.Result {
	if k <= 0 {
		return nil
	}
	var results []core.Result
	for entry := range s.tree.NearestIter(center) {
		loc, ok := s.objs[core.ObjectId(entry.ID)]
		if !ok || loc.Expired(now) {
			continue
		}
		d := distance.Combined3D(center, loc.Point)
		results = append(results, core.Result{ObjectId: loc.ObjectId, Point: loc.Point, Metadata: loc.Metadata, Distance: d})
		if len(results) == k {
			break
		}
	}
	return results
}

// KNN returns the k nearest live objects to center, ascending by combined
// 3D distance, per spec §4.1 knn. k <= 0 is rejected (spec §8: "k=0
// rejected"). Index traversal only ever orders by combined 3D distance
// (spec §4.1), so KNN and KNN3D are the same operation under two names
// kept for parity with the spec's operation list.
func (e *Engine) KNN(ns core.Namespace, center core.Point, k int, now time.Time) (iter.Seq[core.Result], error) {
	if !core.ValidPoint(center) {
		return nil, ErrInvalidArgument
	}
	if k <= 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	results := s.knnLocked(center, k, now)
	s.mu.RUnlock()
	return sliceSeq(results), nil
}

// KNNNear is KNN relative to id's current location, excluding id itself.
// The anchor is resolved and the query run under one held read lock, per
// spec §9.
func (e *Engine) KNNNear(ns core.Namespace, id core.ObjectId, k int, now time.Time) (iter.Seq[core.Result], error) {
	if k <= 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	anchor, ok := s.live(id)
	if !ok || anchor.Expired(now) {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	// Fetch one extra candidate so excluding the anchor still leaves k
	// results when the anchor would have been its own nearest neighbor.
	results := s.knnLocked(anchor.Point, k+1, now)
	s.mu.RUnlock()
	return sliceSeq(excludeAndLimit(results, id, k)), nil
}

// KNN3D returns the k nearest live objects to center by combined 3D
// distance, per spec §4.1 knn_3d. See KNN's doc comment: both operations
// coincide now that index traversal is haversine+altitude-only.
func (e *Engine) KNN3D(ns core.Namespace, center core.Point, k int, now time.Time) (iter.Seq[core.Result], error) {
	return e.KNN(ns, center, k, now)
}

// queryPolygonLocked returns every live object whose (x, y) lies inside
// the closed polygon (any altitude). Order is unspecified but stable;
// early-stops once limit matches are found. Callers must hold s.mu for
// reading.
func (s *namespaceState) queryPolygonLocked(polygon []core.Point, limit int, now time.Time) []core.Result {
	if limit == 0 || len(polygon) < 3 {
		return nil
	}
	box, ok := distance.BoundingBoxOf(polygon)
	if !ok {
		return nil
	}

	var results []core.Result
	rect := box3DToRect(box)
	rect.MinZ, rect.MaxZ = math.Inf(-1), math.Inf(1)
	for entry := range s.tree.QueryEnvelope(rect) {
		loc, ok := s.objs[core.ObjectId(entry.ID)]
		if !ok || loc.Expired(now) {
			continue
		}
		if !pointInPolygon(loc.Point, polygon) {
			continue
		}
		results = append(results, core.Result{ObjectId: loc.ObjectId, Point: loc.Point, Metadata: loc.Metadata})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results
}

// QueryWithinPolygon returns the first limit live objects whose (x, y)
// lies inside the closed polygon (any altitude), per spec §4.1
// query_within_polygon. The polygon's bounding box prunes the tree scan;
// point-in-polygon uses a standard ray-casting test on the exact
// candidates.
func (e *Engine) QueryWithinPolygon(ns core.Namespace, polygon []core.Point, limit int, now time.Time) (iter.Seq[core.Result], error) {
	if limit < 0 {
		return nil, ErrInvalidArgument
	}
	s := e.namespace(ns)
	s.mu.RLock()
	results := s.queryPolygonLocked(polygon, limit, now)
	s.mu.RUnlock()
	return sliceSeq(results), nil
}

// pointInPolygon is the standard even-odd ray-casting test against the
// polygon's (x, y) projection.
func pointInPolygon(p core.Point, polygon []core.Point) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := polygon[i], polygon[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xCross := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}
