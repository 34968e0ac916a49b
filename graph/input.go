package graph

import (
	"sort"

	"github.com/spf13/cast"
	"github.com/warriorguo/mediagraph/types"
)

type Keyframe struct {
	Time  types.Rational
	Value any
}

// Input is a named slot of a Node. It is either connected to another
// node's output, or holds a literal value with optional keyframes.
type Input struct {
	name     string
	dataType types.DataType

	literalOnly bool
	connected   bool
	source      types.NodeID

	standard  any
	keyframes []Keyframe
}

func NewInput(name string, dataType types.DataType, standard any) *Input {
	return &Input{name: name, dataType: dataType, standard: standard}
}

// NewLiteralInput is an input that only takes literal values and
// keyframes. Document.Connect refuses it.
func NewLiteralInput(name string, dataType types.DataType, standard any) *Input {
	i := NewInput(name, dataType, standard)
	i.literalOnly = true
	return i
}

func (i *Input) Name() string {
	return i.name
}

func (i *Input) DataType() types.DataType {
	return i.dataType
}

func (i *Input) IsConnectable() bool {
	return !i.literalOnly
}

func (i *Input) IsConnected() bool {
	return i.connected
}

func (i *Input) ConnectedNode() (types.NodeID, bool) {
	return i.source, i.connected
}

func (i *Input) connect(source types.NodeID) {
	i.connected = true
	i.source = source
}

func (i *Input) disconnect() {
	i.connected = false
	i.source = 0
}

func (i *Input) StandardValue() any {
	return i.standard
}

func (i *Input) SetStandardValue(v any) {
	i.standard = v
}

// AddKeyframe inserts or replaces the key at t.
func (i *Input) AddKeyframe(t types.Rational, v any) {
	idx := sort.Search(len(i.keyframes), func(n int) bool {
		return !i.keyframes[n].Time.Less(t)
	})
	if idx < len(i.keyframes) && i.keyframes[idx].Time.Equal(t) {
		i.keyframes[idx].Value = v
		return
	}
	i.keyframes = append(i.keyframes, Keyframe{})
	copy(i.keyframes[idx+1:], i.keyframes[idx:])
	i.keyframes[idx] = Keyframe{Time: t, Value: v}
}

func (i *Input) Keyframes() []Keyframe {
	return append([]Keyframe(nil), i.keyframes...)
}

func (i *Input) IsKeyframed() bool {
	return len(i.keyframes) > 0
}

// ValueAt samples the literal storage at t. Before the first key and after
// the last one the nearest key holds. Float inputs interpolate linearly
// between keys; every other type holds the previous key.
func (i *Input) ValueAt(t types.Rational) any {
	if len(i.keyframes) == 0 {
		return i.standard
	}

	first, last := i.keyframes[0], i.keyframes[len(i.keyframes)-1]
	if !first.Time.Less(t) {
		return first.Value
	}
	if !t.Less(last.Time) {
		return last.Value
	}

	next := sort.Search(len(i.keyframes), func(n int) bool {
		return t.Less(i.keyframes[n].Time)
	})
	before, after := i.keyframes[next-1], i.keyframes[next]

	if i.dataType != types.DataFloat {
		return before.Value
	}

	span := after.Time.Sub(before.Time)
	progress := t.Sub(before.Time).Div(span).Float64()
	a, b := cast.ToFloat64(before.Value), cast.ToFloat64(after.Value)
	return a + (b-a)*progress
}
