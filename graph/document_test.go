package graph

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/mediagraph/codec"
	"github.com/warriorguo/mediagraph/types"
)

type declared struct{}

func (declared) Inputs() []*Input {
	return []*Input{
		NewInput("a", types.DataFloat, 0.0),
		NewInput("b", types.DataFloat, 0.0),
	}
}

func (declared) Value(db *types.ValueDatabase) *types.ValueTable {
	return types.NewValueTable()
}

func TestAddNodeDeclaredInputs(t *testing.T) {
	doc := NewDocument()
	id := doc.AddNode("sum", declared{}, NewInput("extra", types.DataInt, 1))

	n, ok := doc.Node(id)
	require.True(t, ok)
	names := []string{}
	for _, in := range n.Inputs() {
		names = append(names, in.Name())
	}
	assert.Equal(t, []string{"a", "b", "extra"}, names)
	assert.Equal(t, KindPlain, n.Kind())

	_, ok = doc.Node(id + 1)
	assert.False(t, ok)

	byName, ok := doc.NodeByName("sum")
	require.True(t, ok)
	assert.Equal(t, id, byName.ID())
}

func TestConnectRejectsCycle(t *testing.T) {
	doc := NewDocument()
	a := doc.AddNode("a", declared{})
	b := doc.AddNode("b", declared{})
	c := doc.AddNode("c", declared{})

	require.NoError(t, doc.Connect(a, b, "a"))
	require.NoError(t, doc.Connect(b, c, "a"))

	err := doc.Connect(c, a, "a")
	assert.True(t, errors.Is(err, errors.Forbidden), "%v", err)
	err = doc.Connect(a, a, "b")
	assert.True(t, errors.Is(err, errors.Forbidden), "%v", err)

	assert.Equal(t, []types.NodeID{b}, doc.Upstream(c))

	// diamond is fine
	require.NoError(t, doc.Connect(a, c, "b"))
	assert.Equal(t, []types.NodeID{b, a}, doc.Upstream(c))
}

func TestConnectValidation(t *testing.T) {
	doc := NewDocument()
	a := doc.AddNode("a", declared{})
	b := doc.AddNode("b", declared{})

	assert.True(t, errors.Is(doc.Connect(a, b, "nope"), errors.NotFound))
	assert.True(t, errors.Is(doc.Connect(a, 42, "a"), errors.NotFound))
	assert.True(t, errors.Is(doc.Connect(42, b, "a"), errors.NotFound))

	require.NoError(t, doc.Connect(a, b, "a"))
	n, _ := doc.Node(b)
	assert.True(t, n.Input("a").IsConnected())

	c := doc.AddNode("c", declared{}, NewLiteralInput("gain", types.DataFloat, 1.0))
	assert.True(t, errors.Is(doc.Connect(a, c, "gain"), errors.NotSupported))
	require.NoError(t, doc.Connect(a, c, "a"))

	require.NoError(t, doc.Disconnect(b, "a"))
	assert.False(t, n.Input("a").IsConnected())
	assert.Empty(t, doc.Upstream(b))
}

func TestTrackBlocks(t *testing.T) {
	doc := NewDocument()
	src := doc.AddNode("clip", declared{})
	track := doc.AddTrack("v1")
	plain := doc.AddNode("plain", declared{})

	r := func(in, out int64) types.TimeRange {
		return types.NewTimeRange(types.FromInt(in), types.FromInt(out))
	}

	assert.True(t, errors.Is(doc.AddBlock(plain, Block{Source: src}), errors.BadRequest))
	assert.True(t, errors.Is(doc.AddBlock(track, Block{Source: 99}), errors.NotFound))

	require.NoError(t, doc.AddBlock(track, Block{Source: src, Placement: r(10, 20), MediaIn: types.FromInt(100)}))
	require.NoError(t, doc.AddBlock(track, Block{Source: src, Placement: r(0, 5), MediaIn: types.Zero}))

	// the track reads from clip, so clip can not read from the track
	assert.True(t, errors.Is(doc.Connect(track, src, "a"), errors.Forbidden))

	n, _ := doc.Node(track)
	require.True(t, n.IsTrack())
	slices := n.Track().Slices(r(3, 15))
	require.Len(t, slices, 2)

	assert.Equal(t, r(3, 5), slices[0].Timeline)
	assert.Equal(t, r(3, 5), slices[0].Local)
	assert.Equal(t, r(10, 15), slices[1].Timeline)
	assert.Equal(t, r(100, 105), slices[1].Local)

	assert.Empty(t, n.Track().Slices(r(5, 10)))
}

func TestAddFootageAssignsStreamIDs(t *testing.T) {
	doc := NewDocument()
	f1 := &codec.Footage{Filename: "a.png", DecoderID: "image"}
	f1.AddStream(&codec.Stream{Kind: codec.StreamImage})
	f2 := &codec.Footage{Filename: "b.png", DecoderID: "image"}
	f2.AddStream(&codec.Stream{Kind: codec.StreamImage})
	f2.AddStream(&codec.Stream{Kind: codec.StreamImage, Index: 1})

	id1 := doc.AddFootage(f1)
	id2 := doc.AddFootage(f2)
	assert.NotEqual(t, id1, id2)

	streams := doc.Streams()
	require.Len(t, streams, 3)
	for i, s := range streams {
		assert.Equal(t, types.StreamID(i), s.ID)
	}
	assert.Equal(t, id2, streams[2].Footage)
	assert.Equal(t, "b.png", streams[2].Filename)
	assert.Equal(t, "image", streams[2].DecoderID)

	s, ok := doc.Stream(1)
	require.True(t, ok)
	assert.Same(t, f2.Streams[0], s)
	_, ok = doc.Stream(3)
	assert.False(t, ok)

	f, ok := doc.Footage(id1)
	require.True(t, ok)
	assert.Same(t, f1, f)
}
