package engine

import "errors"

// ErrNotFound is returned when an object id has no current location in
// the given namespace.
var ErrNotFound = errors.New("engine: object not found")

// ErrInvalidArgument is returned for points, boxes, or radii that fail
// validation before any state is touched.
var ErrInvalidArgument = errors.New("engine: invalid argument")
