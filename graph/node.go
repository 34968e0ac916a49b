package graph

import (
	"github.com/warriorguo/mediagraph/types"
)

// Kind is the closed set of node variants the evaluator distinguishes.
type Kind int

const (
	KindPlain Kind = iota
	KindTrack
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindTrack:
		return "track"
	}
	return "unknown"
}

// Behavior is the pure per-node computation: it reads the database built
// for this node's inputs and returns the node's output table.
type Behavior interface {
	Value(db *types.ValueDatabase) *types.ValueTable
}

type BehaviorFunc func(db *types.ValueDatabase) *types.ValueTable

func (f BehaviorFunc) Value(db *types.ValueDatabase) *types.ValueTable {
	return f(db)
}

// TimeAdjuster is implemented by behaviors that evaluate an input over a
// different range than the node itself, e.g. a time offset.
type TimeAdjuster interface {
	InputTimeAdjustment(n *Node, input string, r types.TimeRange) types.TimeRange
}

// InputDeclarer lets a behavior describe its inputs; AddNode creates them.
type InputDeclarer interface {
	Inputs() []*Input
}

type Node struct {
	id       types.NodeID
	name     string
	kind     Kind
	behavior Behavior

	inputs []*Input
	track  *Track
}

func (n *Node) ID() types.NodeID {
	return n.id
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) Kind() Kind {
	return n.kind
}

func (n *Node) IsTrack() bool {
	return n.kind == KindTrack
}

func (n *Node) Behavior() Behavior {
	return n.behavior
}

// Inputs are returned in declaration order.
func (n *Node) Inputs() []*Input {
	return append([]*Input(nil), n.inputs...)
}

func (n *Node) Input(name string) *Input {
	for _, in := range n.inputs {
		if in.name == name {
			return in
		}
	}
	return nil
}

// Track is nil unless the node is KindTrack.
func (n *Node) Track() *Track {
	return n.track
}

func (n *Node) Value(db *types.ValueDatabase) *types.ValueTable {
	if n.behavior == nil {
		return types.NewValueTable()
	}
	table := n.behavior.Value(db)
	if table == nil {
		table = types.NewValueTable()
	}
	return table
}

func (n *Node) InputTimeAdjustment(input string, r types.TimeRange) types.TimeRange {
	if ta, ok := n.behavior.(TimeAdjuster); ok {
		return ta.InputTimeAdjustment(n, input, r)
	}
	return r
}
