package codec

import (
	"fmt"

	"github.com/warriorguo/mediagraph/types"
)

type StreamKind int

const (
	StreamUnknown StreamKind = iota
	StreamImage
	StreamVideo
	StreamAudio
)

func (k StreamKind) String() string {
	switch k {
	case StreamImage:
		return "image"
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	}
	return "unknown"
}

// Footage is one media file and the streams probed from it.
type Footage struct {
	Filename  string
	DecoderID string
	Streams   []*Stream
}

func (f *Footage) AddStream(s *Stream) {
	f.Streams = append(f.Streams, s)
}

// Stream is one decodable track of a Footage. Its attributes are set once
// while probing; the owning document assigns ID and Footage.
type Stream struct {
	ID      types.StreamID
	Footage types.FootageID

	Kind               StreamKind
	Index              int
	Width              int
	Height             int
	PremultipliedAlpha bool

	// copied from the footage so decoders never reach back to it
	Filename  string
	DecoderID string
}

func (s *Stream) String() string {
	return fmt.Sprintf("%s::%d", s.Filename, s.Index)
}
