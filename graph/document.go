package graph

import (
	"sync"

	"github.com/juju/errors"
	"github.com/warriorguo/mediagraph/codec"
	"github.com/warriorguo/mediagraph/types"
)

/**
 * Document owns every node, footage and stream in arenas. Nodes refer to
 * each other and to streams only by ID, so there are no ownership cycles.
 * Evaluation only reads the document; edits must not overlap with
 * running evaluations.
 */
type Document struct {
	mu sync.RWMutex

	nodes   []*Node
	footage []*codec.Footage
	streams []*codec.Stream
}

func NewDocument() *Document {
	return &Document{}
}

// AddNode creates a plain node. Inputs declared by the behavior come first,
// followed by the extra ones.
func (d *Document) AddNode(name string, behavior Behavior, extra ...*Input) types.NodeID {
	n := &Node{name: name, kind: KindPlain, behavior: behavior}
	if decl, ok := behavior.(InputDeclarer); ok {
		n.inputs = append(n.inputs, decl.Inputs()...)
	}
	n.inputs = append(n.inputs, extra...)

	d.mu.Lock()
	defer d.mu.Unlock()

	n.id = types.NodeID(len(d.nodes))
	d.nodes = append(d.nodes, n)
	return n.id
}

func (d *Document) AddTrack(name string) types.NodeID {
	n := &Node{name: name, kind: KindTrack, track: &Track{}}

	d.mu.Lock()
	defer d.mu.Unlock()

	n.id = types.NodeID(len(d.nodes))
	d.nodes = append(d.nodes, n)
	return n.id
}

func (d *Document) AddBlock(track types.NodeID, b Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.node(track)
	if t == nil {
		return errors.NotFoundf("track: %d", track)
	}
	if !t.IsTrack() {
		return errors.BadRequestf("node %s is not a track", t.name)
	}
	if d.node(b.Source) == nil {
		return errors.NotFoundf("block source: %d", b.Source)
	}
	if b.Source == track || d.dependsOn(b.Source, track) {
		return errors.Forbiddenf("%d -> %d is linked", track, b.Source)
	}
	t.track.add(b)
	return nil
}

func (d *Document) node(id types.NodeID) *Node {
	if int(id) >= len(d.nodes) {
		return nil
	}
	return d.nodes[id]
}

func (d *Document) Node(id types.NodeID) (*Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := d.node(id)
	return n, n != nil
}

func (d *Document) NodeByName(name string) (*Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, n := range d.nodes {
		if n.name == name {
			return n, true
		}
	}
	return nil, false
}

func (d *Document) Nodes() []*Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]*Node(nil), d.nodes...)
}

// Connect feeds the output of source into target's input. Edges that
// would close a cycle are rejected.
func (d *Document) Connect(source, target types.NodeID, input string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	src := d.node(source)
	if src == nil {
		return errors.NotFoundf("source: %d", source)
	}
	dst := d.node(target)
	if dst == nil {
		return errors.NotFoundf("target: %d", target)
	}
	in := dst.Input(input)
	if in == nil {
		return errors.NotFoundf("input %s of %s", input, dst.name)
	}
	if !in.IsConnectable() {
		return errors.NotSupportedf("connecting input %s of %s", input, dst.name)
	}
	if source == target || d.dependsOn(source, target) {
		return errors.Forbiddenf("%s -> %s is linked", dst.name, src.name)
	}
	in.connect(source)
	return nil
}

func (d *Document) Disconnect(target types.NodeID, input string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dst := d.node(target)
	if dst == nil {
		return errors.NotFoundf("target: %d", target)
	}
	in := dst.Input(input)
	if in == nil {
		return errors.NotFoundf("input %s of %s", input, dst.name)
	}
	in.disconnect()
	return nil
}

// Upstream lists the nodes id reads from: connected inputs in declaration
// order, then track block sources.
func (d *Document) Upstream(id types.NodeID) []types.NodeID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.upstream(id)
}

func (d *Document) upstream(id types.NodeID) []types.NodeID {
	n := d.node(id)
	if n == nil {
		return nil
	}
	ids := make([]types.NodeID, 0, len(n.inputs))
	for _, in := range n.inputs {
		if src, ok := in.ConnectedNode(); ok {
			ids = append(ids, src)
		}
	}
	if n.track != nil {
		for _, b := range n.track.blocks {
			ids = append(ids, b.Source)
		}
	}
	return ids
}

// dependsOn reports whether from reads, directly or not, from to.
func (d *Document) dependsOn(from, to types.NodeID) bool {
	visited := make(map[types.NodeID]bool)
	stack := []types.NodeID{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, up := range d.upstream(cur) {
			if up == to {
				return true
			}
			stack = append(stack, up)
		}
	}
	return false
}

// AddFootage takes ownership of f and assigns IDs to it and its streams.
func (d *Document) AddFootage(f *codec.Footage) types.FootageID {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := types.FootageID(len(d.footage))
	d.footage = append(d.footage, f)
	for _, s := range f.Streams {
		s.ID = types.StreamID(len(d.streams))
		s.Footage = id
		if s.Filename == "" {
			s.Filename = f.Filename
		}
		if s.DecoderID == "" {
			s.DecoderID = f.DecoderID
		}
		d.streams = append(d.streams, s)
	}
	return id
}

func (d *Document) Footage(id types.FootageID) (*codec.Footage, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if int(id) >= len(d.footage) {
		return nil, false
	}
	return d.footage[id], true
}

func (d *Document) Stream(id types.StreamID) (*codec.Stream, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if int(id) >= len(d.streams) {
		return nil, false
	}
	return d.streams[id], true
}

func (d *Document) Streams() []*codec.Stream {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]*codec.Stream(nil), d.streams...)
}
