// Package nodes holds the standard node behaviors. Every behavior is pure:
// it only reads the database it is handed and returns a fresh table.
package nodes

import (
	"image"
	"image/color"

	"github.com/spf13/cast"
	xdraw "golang.org/x/image/draw"

	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/types"
)

const (
	InputFootage = "footage"
	InputTexture = "texture"
	InputBase    = "base"
	InputBlend   = "blend"
	InputOpacity = "opacity"
	InputOffset  = "offset"
	InputA       = "a"
	InputB       = "b"
)

var (
	_ graph.Behavior      = &MediaInput{}
	_ graph.Behavior      = &Opacity{}
	_ graph.Behavior      = &Merge{}
	_ graph.Behavior      = &TimeOffset{}
	_ graph.Behavior      = &Math{}
	_ graph.TimeAdjuster  = &TimeOffset{}
	_ graph.InputDeclarer = &Merge{}
)

// Texture returns the frame the input resolved to, if any.
func Texture(db *types.ValueDatabase, input string) (*types.Frame, bool) {
	t, exists := db.Get(input)
	if !exists {
		return nil, false
	}
	return t.GetFrame(types.DataTexture)
}

// Float returns the float the input resolved to, or def.
func Float(db *types.ValueDatabase, input string, def float64) float64 {
	v, exists := db.Value(input, types.DataFloat, types.DataInt)
	if !exists {
		return def
	}
	return cast.ToFloat64(v)
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

func textureTable(f *types.Frame) *types.ValueTable {
	table := types.NewValueTable()
	if f != nil {
		table.Push(types.DataTexture, f)
	}
	return table
}

// MediaInput exposes the picture of one footage stream. The worker
// attaches the decoded frame to the footage input.
type MediaInput struct{}

func NewMediaInput() *MediaInput {
	return &MediaInput{}
}

// Inputs declares the footage slot; its literal is the StreamID to decode.
func (m *MediaInput) Inputs() []*graph.Input {
	return []*graph.Input{graph.NewInput(InputFootage, types.DataFootage, nil)}
}

func (m *MediaInput) Value(db *types.ValueDatabase) *types.ValueTable {
	f, _ := Texture(db, InputFootage)
	return textureTable(f)
}

// Opacity scales the alpha of a texture.
type Opacity struct{}

func NewOpacity() *Opacity {
	return &Opacity{}
}

func (o *Opacity) Inputs() []*graph.Input {
	return []*graph.Input{
		graph.NewInput(InputTexture, types.DataTexture, nil),
		graph.NewInput(InputOpacity, types.DataFloat, 1.0),
	}
}

func (o *Opacity) Value(db *types.ValueDatabase) *types.ValueTable {
	src, exists := Texture(db, InputTexture)
	if !exists {
		return types.NewValueTable()
	}
	amount := clamp01(Float(db, InputOpacity, 1.0))
	if amount >= 1 {
		return textureTable(src)
	}

	b := src.Image.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	mask := image.NewUniform(alphaOf(amount))
	xdraw.DrawMask(dst, dst.Bounds(), src.Image, b.Min, mask, image.Point{}, xdraw.Over)

	return textureTable(&types.Frame{
		Image:              dst,
		Format:             types.PixelFormatRGBA8,
		Timestamp:          src.Timestamp,
		PremultipliedAlpha: true,
	})
}

// Merge composites blend over base. Either side alone passes through.
type Merge struct{}

func NewMerge() *Merge {
	return &Merge{}
}

func (m *Merge) Inputs() []*graph.Input {
	return []*graph.Input{
		graph.NewInput(InputBase, types.DataTexture, nil),
		graph.NewInput(InputBlend, types.DataTexture, nil),
	}
}

func (m *Merge) Value(db *types.ValueDatabase) *types.ValueTable {
	base, hasBase := Texture(db, InputBase)
	blend, hasBlend := Texture(db, InputBlend)
	switch {
	case !hasBase && !hasBlend:
		return types.NewValueTable()
	case !hasBlend:
		return textureTable(base)
	case !hasBase:
		return textureTable(blend)
	}

	dst := toRGBA(base.Image)
	xdraw.Draw(dst, dst.Bounds(), blend.Image, blend.Image.Bounds().Min, xdraw.Over)

	return textureTable(&types.Frame{
		Image:              dst,
		Format:             types.PixelFormatRGBA8,
		Timestamp:          base.Timestamp,
		PremultipliedAlpha: true,
	})
}

// TimeOffset shows its texture input shifted in time by the offset input.
// The offset is a literal or keyframed value and cannot be connected.
type TimeOffset struct{}

func NewTimeOffset() *TimeOffset {
	return &TimeOffset{}
}

func (o *TimeOffset) Inputs() []*graph.Input {
	return []*graph.Input{
		graph.NewInput(InputTexture, types.DataTexture, nil),
		graph.NewLiteralInput(InputOffset, types.DataRational, types.Zero),
	}
}

// InputTimeAdjustment samples the offset at the start of r. Only the
// texture input is shifted.
func (o *TimeOffset) InputTimeAdjustment(n *graph.Node, input string, r types.TimeRange) types.TimeRange {
	if input != InputTexture {
		return r
	}
	in := n.Input(InputOffset)
	if in == nil {
		return r
	}
	offset, err := types.ToRational(in.ValueAt(r.In()))
	if err != nil {
		return r
	}
	return r.Shift(offset)
}

func (o *TimeOffset) Value(db *types.ValueDatabase) *types.ValueTable {
	f, _ := Texture(db, InputTexture)
	return textureTable(f)
}

type MathOp int

const (
	OpAdd MathOp = iota
	OpMultiply
)

func (op MathOp) String() string {
	if op == OpMultiply {
		return "multiply"
	}
	return "add"
}

// Math combines two floats.
type Math struct {
	Op MathOp
}

func NewMath(op MathOp) *Math {
	return &Math{Op: op}
}

func (m *Math) Inputs() []*graph.Input {
	return []*graph.Input{
		graph.NewInput(InputA, types.DataFloat, 0.0),
		graph.NewInput(InputB, types.DataFloat, 0.0),
	}
}

func (m *Math) Value(db *types.ValueDatabase) *types.ValueTable {
	a := Float(db, InputA, 0)
	b := Float(db, InputB, 0)

	table := types.NewValueTable()
	switch m.Op {
	case OpMultiply:
		table.Push(types.DataFloat, a*b)
	default:
		table.Push(types.DataFloat, a+b)
	}
	return table
}

func alphaOf(amount float64) color.Alpha {
	return color.Alpha{A: uint8(amount*0xff + 0.5)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
