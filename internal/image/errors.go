package imagepkg

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("image could not be decoded")

	// ErrRenderUnavailable is returned when no drawing surface can be
	// allocated for a target. It is not retried.
	ErrRenderUnavailable = errors.New("render surface unavailable")

	// ErrSuperseded is returned by Session.SetSource when a newer photo
	// was submitted while this one was still decoding.
	ErrSuperseded = errors.New("photo superseded by a newer upload")
)

// DecodeError reports an input that could not be turned into a raster:
// corrupt data, an unsupported format, or a failed fetch.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
