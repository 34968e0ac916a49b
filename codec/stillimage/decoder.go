// Package stillimage decodes single pictures (png, jpeg, gif, bmp, tiff,
// webp). A still image has one stream that is valid at every time.
package stillimage

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/errors"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/warriorguo/mediagraph/codec"
	"github.com/warriorguo/mediagraph/types"
)

const ID = "image"

var (
	_ codec.Decoder = &Decoder{}

	supportedExtensions = map[string]bool{
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".gif":  true,
		".bmp":  true,
		".tif":  true,
		".tiff": true,
		".webp": true,
	}
)

// Register adds the backend to r.
func Register(r *codec.Registry) error {
	return r.Register(ID, New, Probe)
}

func init() {
	if err := Register(codec.DefaultRegistry); err != nil {
		panic(err)
	}
}

func New() codec.Decoder {
	return &Decoder{}
}

// Probe only looks at files whose extension is known, then reads the
// header to fill in the single stream.
func Probe(f *codec.Footage) (bool, error) {
	if !supportedExtensions[strings.ToLower(filepath.Ext(f.Filename))] {
		return false, nil
	}

	file, err := os.Open(f.Filename)
	if err != nil {
		return false, errors.Trace(err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return false, nil
	}

	f.AddStream(&codec.Stream{
		Kind:   codec.StreamImage,
		Index:  0,
		Width:  cfg.Width,
		Height: cfg.Height,
		// pictures are converted to premultiplied RGBA on open
		PremultipliedAlpha: true,
	})
	return true, nil
}

type Decoder struct {
	mu sync.Mutex

	stream *codec.Stream
	open   bool

	buffer *image.RGBA
	format types.PixelFormat
}

func (d *Decoder) ID() string {
	return ID
}

func (d *Decoder) SetStream(s *codec.Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stream = s
}

func (d *Decoder) Stream() *codec.Stream {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stream
}

func (d *Decoder) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}
	if d.stream == nil {
		return errors.BadRequestf("no stream set")
	}

	file, err := os.Open(d.stream.Filename)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return errors.Annotatef(err, "decode %s", d.stream.Filename)
	}

	d.format = pixelFormatOf(src)

	b := src.Bounds()
	d.buffer = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(d.buffer, d.buffer.Bounds(), src, b.Min, xdraw.Src)

	d.open = true
	return nil
}

func (d *Decoder) GetRetrieveState(t types.Rational) types.RetrieveState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return types.FailedToOpen
	}
	return types.Ready
}

func (d *Decoder) RetrieveVideo(t types.Rational, divider int) (*types.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, errors.NotValidf("decoder not open")
	}
	if divider < 1 {
		divider = 1
	}

	w := d.buffer.Bounds().Dx() / divider
	h := d.buffer.Bounds().Dy() / divider
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if divider == 1 {
		copy(dst.Pix, d.buffer.Pix)
	} else if w > 0 && h > 0 {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), d.buffer, d.buffer.Bounds(), xdraw.Src, nil)
	}

	return &types.Frame{
		Image:              dst,
		Format:             d.format,
		Timestamp:          t,
		PremultipliedAlpha: true,
	}, nil
}

func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buffer = nil
	d.open = false
	return nil
}

func pixelFormatOf(img image.Image) types.PixelFormat {
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		return types.PixelFormatRGBA16U
	case *image.Gray16:
		return types.PixelFormatRGB16U
	case *image.Gray, *image.YCbCr:
		return types.PixelFormatRGB8
	}
	return types.PixelFormatRGBA8
}
