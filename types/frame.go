package types

import "image"

type PixelFormat int

const (
	PixelFormatInvalid PixelFormat = iota
	PixelFormatRGB8
	PixelFormatRGBA8
	PixelFormatRGB16U
	PixelFormatRGBA16U
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatRGB8:
		return "rgb8"
	case PixelFormatRGBA8:
		return "rgba8"
	case PixelFormatRGB16U:
		return "rgb16u"
	case PixelFormatRGBA16U:
		return "rgba16u"
	}
	return "invalid"
}

// Frame is one decoded picture. Image must not be modified once the frame
// has been pushed into a ValueTable; nodes produce new frames instead.
type Frame struct {
	Image     image.Image
	Format    PixelFormat
	Timestamp Rational
	// PremultipliedAlpha mirrors the stream attribute the frame came from.
	PremultipliedAlpha bool
}

func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}
