// Package accel provides render.Accelerator implementations.
package accel

import (
	"image"
	"sync"

	"github.com/gogpu/gg"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/graph/nodes"
	"github.com/warriorguo/mediagraph/render"
	"github.com/warriorguo/mediagraph/types"
)

var (
	_ render.Accelerator = &Raster{}
)

/**
 * Raster composites textures through a gg drawing context. gg picks a
 * registered GPU backend when there is one and rasterizes on the CPU
 * otherwise, so Raster works on any machine.
 * Merge and Opacity nodes are supported, everything else falls back.
 */
type Raster struct {
	mu     sync.Mutex
	inits  int
	closed bool
}

func NewRaster() *Raster {
	return &Raster{}
}

func (r *Raster) Name() string {
	if a := gg.Accelerator(); a != nil {
		return "gg/" + a.Name()
	}
	return "gg"
}

func (r *Raster) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.Forbiddenf("%s accelerator already closed", r.Name())
	}
	if r.inits == 0 {
		log.Debugf("%s accelerator ready", r.Name())
	}
	r.inits++
	return nil
}

// Close only marks the accelerator unusable. A GPU backend registered in
// gg is shared with other contexts and stays open.
func (r *Raster) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
}

func (r *Raster) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

func (r *Raster) CanAccelerate(n *graph.Node) bool {
	switch n.Behavior().(type) {
	case *nodes.Merge, *nodes.Opacity:
		return true
	}
	return false
}

func (r *Raster) RunNode(n *graph.Node, tr types.TimeRange, db *types.ValueDatabase, out *types.ValueTable) error {
	if r.isClosed() {
		return errors.Forbiddenf("%s accelerator already closed", r.Name())
	}

	switch n.Behavior().(type) {
	case *nodes.Merge:
		return r.merge(db, out)
	case *nodes.Opacity:
		return r.opacity(db, out)
	}
	return render.ErrFallbackToCPU
}

// merge only handles the case with both sides present, pass-through is
// already what the node produced.
func (r *Raster) merge(db *types.ValueDatabase, out *types.ValueTable) error {
	base, hasBase := nodes.Texture(db, nodes.InputBase)
	blend, hasBlend := nodes.Texture(db, nodes.InputBlend)
	if !hasBase || !hasBlend {
		return render.ErrFallbackToCPU
	}

	img, err := composite(base.Image, layer{img: base.Image, opacity: 1}, layer{img: blend.Image, opacity: 1})
	if err != nil {
		return errors.Trace(err)
	}
	out.Push(types.DataTexture, &types.Frame{
		Image:              img,
		Format:             types.PixelFormatRGBA8,
		Timestamp:          base.Timestamp,
		PremultipliedAlpha: true,
	})
	return nil
}

func (r *Raster) opacity(db *types.ValueDatabase, out *types.ValueTable) error {
	src, exists := nodes.Texture(db, nodes.InputTexture)
	if !exists {
		return render.ErrFallbackToCPU
	}
	amount := nodes.Float(db, nodes.InputOpacity, 1.0)
	if amount >= 1 {
		return render.ErrFallbackToCPU
	}
	if amount <= 0 {
		// gg treats a zero opacity as "unset"
		b := src.Image.Bounds()
		out.Push(types.DataTexture, &types.Frame{
			Image:              image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy())),
			Format:             types.PixelFormatRGBA8,
			Timestamp:          src.Timestamp,
			PremultipliedAlpha: true,
		})
		return nil
	}

	img, err := composite(src.Image, layer{img: src.Image, opacity: amount})
	if err != nil {
		return errors.Trace(err)
	}
	out.Push(types.DataTexture, &types.Frame{
		Image:              img,
		Format:             types.PixelFormatRGBA8,
		Timestamp:          src.Timestamp,
		PremultipliedAlpha: true,
	})
	return nil
}

type layer struct {
	img     image.Image
	opacity float64
}

// composite draws layers in order onto a transparent canvas the size of
// canvas. gg blends straight alpha, frames carry premultiplied alpha, so
// layers go in as NRGBA and the result is converted back.
func composite(canvas image.Image, layers ...layer) (*image.RGBA, error) {
	b := canvas.Bounds()
	if b.Empty() {
		return nil, errors.NotValidf("empty canvas")
	}

	dc := gg.NewContext(b.Dx(), b.Dy())
	defer dc.Close()

	for _, l := range layers {
		dc.DrawImageEx(gg.ImageBufFromImage(toNRGBA(l.img)), gg.DrawImageOptions{
			Interpolation: gg.InterpNearest,
			Opacity:       l.opacity,
			BlendMode:     gg.BlendNormal,
		})
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, errors.NotSupportedf("context image %T", dc.Image())
	}
	straight := &image.NRGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}

	dst := image.NewRGBA(straight.Rect)
	xdraw.Draw(dst, dst.Bounds(), straight, straight.Rect.Min, xdraw.Src)
	return dst, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}
