package distance_test

import (
	"math"
	"testing"

	"github.com/hupe1980/spatio/core"
	"github.com/hupe1980/spatio/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineMeters_SamePoint(t *testing.T) {
	d := distance.HaversineMeters(-74.006, 40.7128, -74.006, 40.7128)
	require.InDelta(t, 0.0, d, 1e-6)
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// NYC -> LA, roughly 3,936 km great-circle distance.
	d := distance.HaversineMeters(-74.006, 40.7128, -118.2437, 34.0522)
	assert.InDelta(t, 3_936_000, d, 50_000)
}

func TestCombined3D_AltitudeOnly(t *testing.T) {
	a := core.Point{X: -74.006, Y: 40.7128, Z: 0}
	b := core.Point{X: -74.006, Y: 40.7128, Z: 100}
	d := distance.Combined3D(a, b)
	assert.InDelta(t, 100.0, d, 1e-6)
}

func TestCombined3D_UsesAbsoluteAltitudeDelta(t *testing.T) {
	a := core.Point{X: 0, Y: 0, Z: 50}
	b := core.Point{X: 0, Y: 0, Z: -50}
	d := distance.Combined3D(a, b)
	assert.InDelta(t, 100.0, d, 1e-6)
}

func TestDistanceBetween_AllMetricsAgreeOnIdenticalPoints(t *testing.T) {
	p := core.Point{X: 10, Y: 20, Z: 5}
	for _, m := range []distance.Metric{distance.Haversine, distance.Geodesic, distance.Rhumb, distance.Euclidean} {
		d := distance.DistanceBetween(p, p, m)
		assert.InDelta(t, 0.0, d, 1e-6, "metric %s", m)
	}
}

func TestDistanceBetween_GeodesicCloseToHaversineForModerateDistance(t *testing.T) {
	a := core.Point{X: -74.006, Y: 40.7128, Z: 0}
	b := core.Point{X: -73.9857, Y: 40.7484, Z: 0}
	hv := distance.DistanceBetween(a, b, distance.Haversine)
	gd := distance.DistanceBetween(a, b, distance.Geodesic)
	// Both approximate the same great circle; should agree within ~1%.
	assert.InDelta(t, hv, gd, hv*0.01+10)
}

func TestMetricString(t *testing.T) {
	assert.Equal(t, "haversine", distance.Haversine.String())
	assert.Equal(t, "geodesic", distance.Geodesic.String())
	assert.Equal(t, "rhumb", distance.Rhumb.String())
	assert.Equal(t, "euclidean", distance.Euclidean.String())
}

func TestBoundingBoxOf(t *testing.T) {
	pts := []core.Point{
		{X: 1, Y: 2, Z: 3},
		{X: -1, Y: 5, Z: -2},
		{X: 4, Y: 0, Z: 1},
	}
	b, ok := distance.BoundingBoxOf(pts)
	require.True(t, ok)
	assert.Equal(t, -1.0, b.MinX)
	assert.Equal(t, 4.0, b.MaxX)
	assert.Equal(t, 0.0, b.MinY)
	assert.Equal(t, 5.0, b.MaxY)
	assert.Equal(t, -2.0, b.MinZ)
	assert.Equal(t, 3.0, b.MaxZ)
}

func TestBoundingBoxOf_Empty(t *testing.T) {
	_, ok := distance.BoundingBoxOf(nil)
	assert.False(t, ok)
}

func TestConvexHull_Square(t *testing.T) {
	pts := []core.Point{
		{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0},
		{X: 5, Y: 5}, // interior point, must not appear in hull
	}
	hull := distance.ConvexHull(pts)
	assert.Len(t, hull, 4)
	for _, p := range hull {
		assert.False(t, p.X == 5 && p.Y == 5)
	}
}

func TestConvexHull_FewerThanThreePoints(t *testing.T) {
	pts := []core.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}
	hull := distance.ConvexHull(pts)
	assert.Len(t, hull, 2)
}

func TestHaversineMeters_Antipodal(t *testing.T) {
	d := distance.HaversineMeters(0, 0, 180, 0)
	assert.InDelta(t, math.Pi*distance.EarthRadiusMeters, d, 1.0)
}
