package spatio

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatio/coldstate"
	"github.com/hupe1980/spatio/engine"
)

// Sentinel errors returned by the public API, per spec §7.
var (
	// ErrNotFound is returned when an object id has no current location.
	ErrNotFound = errors.New("spatio: object not found")

	// ErrInvalidArgument is returned for malformed points, bounding boxes,
	// or other caller-supplied arguments that fail validation before any
	// state is touched.
	ErrInvalidArgument = errors.New("spatio: invalid argument")

	// ErrAlreadyOpen is returned by Open when the database directory is
	// already locked by another process or handle.
	ErrAlreadyOpen = errors.New("spatio: database already open")

	// ErrCorruptLog is returned when the cold-state log cannot be read at
	// all (as opposed to a truncated tail, which recovery repairs
	// silently per spec §4.4).
	ErrCorruptLog = errors.New("spatio: log is corrupt")

	// ErrResourceExhausted is what translateError maps
	// coldstate.ErrBufferFull to. The cold-state buffer evicts its oldest
	// record when full instead of rejecting a write, so no write path
	// returns this error.
	ErrResourceExhausted = errors.New("spatio: resource exhausted")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("spatio: database closed")
)

// ErrInvalidPoint reports which coordinate of a point failed validation,
// per spec §3 invariant 1 (finite, lat in [-90,90], lon in [-180,180]).
type ErrInvalidPoint struct {
	Field string
	Value float64
}

func (e *ErrInvalidPoint) Error() string {
	return fmt.Sprintf("spatio: invalid point: %s=%v", e.Field, e.Value)
}

func (e *ErrInvalidPoint) Unwrap() error { return ErrInvalidArgument }

// ErrInvalidBoundingBox reports a bounding box that violates min<=max on
// some axis, per spec §9 (reject cylinder/box with min_z > max_z).
type ErrInvalidBoundingBox struct {
	Axis string
	Min  float64
	Max  float64
}

func (e *ErrInvalidBoundingBox) Error() string {
	return fmt.Sprintf("spatio: invalid bounding box: %s min %v > max %v", e.Axis, e.Min, e.Max)
}

func (e *ErrInvalidBoundingBox) Unwrap() error { return ErrInvalidArgument }

// translateError funnels internal package errors (engine, coldstate) into
// the public sentinel surface so callers only ever need to errors.Is
// against the errors declared in this file.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, engine.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, engine.ErrInvalidArgument):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, coldstate.ErrAlreadyOpen):
		return fmt.Errorf("%w: %w", ErrAlreadyOpen, err)
	case errors.Is(err, coldstate.ErrCorruptLog):
		return fmt.Errorf("%w: %w", ErrCorruptLog, err)
	case errors.Is(err, coldstate.ErrBufferFull):
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	default:
		return err
	}
}
