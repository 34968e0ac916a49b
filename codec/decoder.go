package codec

import (
	"github.com/warriorguo/mediagraph/types"
)

// Decoder is a stateful handle bound to exactly one Stream. Open must
// succeed before anything is retrieved; Close releases its resources.
type Decoder interface {
	ID() string

	SetStream(s *Stream)
	Stream() *Stream

	Open() error
	GetRetrieveState(t types.Rational) types.RetrieveState
	/**
	 * RetrieveVideo returns the frame at t with width and height divided by
	 * divider (integer division). divider < 1 is treated as 1.
	 */
	RetrieveVideo(t types.Rational, divider int) (*types.Frame, error)
	Close() error
}

// Prober inspects a file and fills in footage streams. It returns false
// when the backend can not handle the file.
type Prober func(f *Footage) (bool, error)

type Factory func() Decoder
