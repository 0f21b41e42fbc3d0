// Package rtree implements Spatio's spatial index: an R*-tree over 3D
// points with AABB range queries and best-first nearest-neighbor
// traversal. See spec §4.3 for the operation contract this package
// implements.
package rtree
