package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/types"
)

// RenderDOT writes doc as Graphviz DOT. With a record, evaluated nodes are
// filled green, accelerated ones blue and nodes whose footage was missing
// red.
func RenderDOT(doc *graph.Document, record *types.RenderRecord) (string, error) {
	return renderDOT(doc, record)
}

func renderDOT(doc *graph.Document, record *types.RenderRecord) (string, error) {
	renderer := newGraphRenderer(record)
	return renderer.generateDOT(doc)
}

func newGraphRenderer(record *types.RenderRecord) *graphRenderer {
	d := &graphRenderer{
		sb:          &strings.Builder{},
		record:      record,
		visited:     make(map[types.NodeID]bool),
		accelerated: make(map[types.NodeID]bool),
		missing:     make(map[types.StreamID]bool),
	}
	if record == nil {
		return d
	}
	for _, id := range record.VisitedNodes {
		d.visited[id] = true
	}
	for _, id := range record.Accelerated {
		d.accelerated[id] = true
	}
	for _, id := range record.OpenFailures {
		d.missing[id] = true
	}
	for _, ev := range record.Unavailable {
		d.missing[ev.Stream] = true
	}
	return d
}

type graphRenderer struct {
	sb     *strings.Builder
	record *types.RenderRecord

	visited     map[types.NodeID]bool
	accelerated map[types.NodeID]bool
	missing     map[types.StreamID]bool
}

func (d *graphRenderer) generateDOT(doc *graph.Document) (string, error) {
	d.write("digraph D {")
	if d.record != nil {
		d.write("comment=\"%s\"", packToComment(d.record))
	}
	for _, n := range doc.Nodes() {
		if n.IsTrack() {
			d.drawTrack(n)
			continue
		}
		d.drawNode(n)
	}
	for _, n := range doc.Nodes() {
		d.drawLinks(n)
	}
	d.write("}")
	return d.sb.String(), nil
}

func packToComment(r *types.RenderRecord) string {
	s, _ := json.Marshal(r)
	return formatNL(addSlashes(string(s)))
}

func (d *graphRenderer) calcAttr(n *graph.Node) string {
	if d.record == nil {
		return ""
	}

	color := ""
	switch {
	case d.hasMissingFootage(n):
		color = "red"
	case d.accelerated[n.ID()]:
		color = "lightblue"
	case d.visited[n.ID()]:
		color = "green"
	default:
		return ""
	}
	return fmt.Sprintf(" style=\"filled\" color=\"%s\"", color)
}

func (d *graphRenderer) hasMissingFootage(n *graph.Node) bool {
	for _, in := range n.Inputs() {
		if in.DataType() != types.DataFootage || in.IsConnected() {
			continue
		}
		id, err := cast.ToUint32E(in.StandardValue())
		if err != nil {
			continue
		}
		if d.missing[types.StreamID(id)] {
			return true
		}
	}
	return false
}

func (d *graphRenderer) drawNode(n *graph.Node) {
	d.write("%s [label=%s shape=\"record\"%s]", nodeID(n.ID()), quoteString(n.Name()), d.calcAttr(n))
}

func (d *graphRenderer) drawTrack(n *graph.Node) {
	d.write("subgraph cluster_%d{", n.ID())
	d.write("style=filled")
	d.write("color=lightgrey")
	d.write("%s [label=%s shape=\"box\"%s]", nodeID(n.ID()), quoteString(n.Name()), d.calcAttr(n))
	d.write("label=%s", quoteString(n.Name()))
	d.write("}")
}

func (d *graphRenderer) drawLinks(n *graph.Node) {
	for _, in := range n.Inputs() {
		if src, ok := in.ConnectedNode(); ok {
			d.write("%s -> %s [label=%s]", nodeID(src), nodeID(n.ID()), quoteString(in.Name()))
		}
	}
	if n.IsTrack() {
		for _, b := range n.Track().Blocks() {
			d.write("%s -> %s [label=%s]", nodeID(b.Source), nodeID(n.ID()), quoteString(b.Placement.String()))
		}
	}
}

func (d *graphRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

var (
	slashesToken = []string{"\\", "\"", "'", " "}
)

func addSlashes(s string) string {
	for _, token := range slashesToken {
		s = strings.ReplaceAll(s, token, "\\"+token)
	}
	return s
}

func formatNL(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

func nodeID(id types.NodeID) string {
	return fmt.Sprintf("n%d", id)
}
