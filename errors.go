package svgpage

import (
	"errors"
	"fmt"

	"github.com/benoitkugler/svgpage/layout"
	"github.com/benoitkugler/svgpage/pdfdoc"
	"github.com/benoitkugler/svgpage/svgpdf"
	"github.com/benoitkugler/svgpage/svgraster"
)

// SourceParseError is returned when the input is not a valid SVG document.
type SourceParseError struct {
	Err error
}

func (e *SourceParseError) Error() string { return "invalid SVG: " + e.Err.Error() }

func (e *SourceParseError) Unwrap() error { return e.Err }

// InvalidGeometryError is returned when the size of the
// SVG image is not strictly positive.
type InvalidGeometryError struct {
	Width, Height float64 // in source units
}

func (e *InvalidGeometryError) Error() string { return layout.ErrInvalidGeometry.Error() }

func (e *InvalidGeometryError) Is(target error) bool { return target == layout.ErrInvalidGeometry }

// AllocationError is returned when an image is too large to be allocated.
type AllocationError struct {
	Width, Height int // in pixels
}

func (e *AllocationError) Error() string { return svgraster.ErrAllocation.Error() }

func (e *AllocationError) Is(target error) bool { return target == svgraster.ErrAllocation }

// InternalInvariantError denotes a bug in the construction
// of the output document.
type InternalInvariantError struct {
	Err error
}

func (e *InternalInvariantError) Error() string { return "internal error: " + e.Err.Error() }

func (e *InternalInvariantError) Unwrap() error { return e.Err }

// classify maps the errors of the rendering packages
// to the public error types.
func classify(err error) error {
	var (
		invariant pdfdoc.InvariantError
		size      *svgraster.SizeError
	)
	switch {
	case errors.As(err, &invariant):
		return &InternalInvariantError{Err: err}
	case errors.As(err, &size):
		return &AllocationError{Width: size.Width, Height: size.Height}
	case errors.Is(err, svgpdf.ErrEmptyImage):
		return &InvalidGeometryError{}
	}
	return fmt.Errorf("rendering SVG: %w", err)
}
