package types

import "fmt"

type StatusType int32

const (
	None      StatusType = 0
	Pending   StatusType = 1
	Running   StatusType = 2
	Cancelled StatusType = 3
	Finished  StatusType = 10
)

func (s StatusType) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Cancelled:
		return "cancelled"
	case Finished:
		return "finished"
	}
	return "none"
}

// NodeID, StreamID and FootageID are arena handles into a graph.Document.
// They never own what they point to.
type NodeID uint32
type StreamID uint32
type FootageID uint32

// Dependency identifies "evaluate node N over range R".
type Dependency struct {
	Node  NodeID
	Range TimeRange
}

func NewDependency(node NodeID, r TimeRange) Dependency {
	return Dependency{Node: node, Range: r}
}

func (d Dependency) String() string {
	return fmt.Sprintf("node#%d%s", d.Node, d.Range)
}

type DataType int

const (
	DataNone DataType = iota
	DataInt
	DataFloat
	DataBoolean
	DataText
	DataRational
	DataColor
	DataFootage
	DataTexture
	DataAny
)

func (t DataType) String() string {
	switch t {
	case DataInt:
		return "int"
	case DataFloat:
		return "float"
	case DataBoolean:
		return "boolean"
	case DataText:
		return "text"
	case DataRational:
		return "rational"
	case DataColor:
		return "color"
	case DataFootage:
		return "footage"
	case DataTexture:
		return "texture"
	case DataAny:
		return "any"
	}
	return "none"
}

// RetrieveState reports whether a decoder can hand out data at a time.
type RetrieveState int

const (
	NotReady RetrieveState = iota
	Ready
	FailedToOpen
)

func (s RetrieveState) String() string {
	switch s {
	case Ready:
		return "ready"
	case FailedToOpen:
		return "failed-to-open"
	}
	return "not-ready"
}
