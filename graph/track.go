package graph

import (
	"sort"

	"github.com/warriorguo/mediagraph/types"
)

// Block places a source node on a track. MediaIn is the source time shown
// at Placement.In().
type Block struct {
	Source    types.NodeID
	Placement types.TimeRange
	MediaIn   types.Rational
}

// Slice is the part of one block that overlaps a requested range.
type Slice struct {
	Source types.NodeID
	// Timeline is the overlap in track time, Local the same span in the
	// source's own time.
	Timeline types.TimeRange
	Local    types.TimeRange
}

type Track struct {
	blocks []Block
}

func (t *Track) Blocks() []Block {
	return append([]Block(nil), t.blocks...)
}

func (t *Track) add(b Block) {
	t.blocks = append(t.blocks, b)
	sort.SliceStable(t.blocks, func(i, j int) bool {
		return t.blocks[i].Placement.In().Less(t.blocks[j].Placement.In())
	})
}

// Slices returns, in timeline order, the overlap of every block with r
// mapped into block-local time.
func (t *Track) Slices(r types.TimeRange) []Slice {
	slices := make([]Slice, 0, len(t.blocks))
	for _, b := range t.blocks {
		overlap, ok := b.Placement.Intersect(r)
		if !ok {
			continue
		}
		offset := b.MediaIn.Sub(b.Placement.In())
		slices = append(slices, Slice{
			Source:   b.Source,
			Timeline: overlap,
			Local:    overlap.Shift(offset),
		})
	}
	return slices
}
