package render

import (
	"github.com/juju/errors"

	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/types"
)

// ErrFallbackToCPU tells the worker to keep the table computed by the
// node itself.
var ErrFallbackToCPU = errors.New("accelerator: falling back to CPU")

/**
 * Accelerator is an optional alternate evaluator for some node kinds.
 * When it succeeds its result must be value-equivalent to the node's own
 * output, within the precision of the backend.
 */
type Accelerator interface {
	Name() string

	/**
	 * Init is called by every worker before its first render. An engine
	 * shares one accelerator between its workers, so Init must tolerate
	 * being called more than once.
	 */
	Init() error
	Close()

	/**
	 * CanAccelerate is a fast check used to skip the accelerator for
	 * unsupported nodes.
	 */
	CanAccelerate(n *graph.Node) bool

	/**
	 * RunNode evaluates n over r with the database already built for it and
	 * pushes its result onto out. Any error, ErrFallbackToCPU included,
	 * discards out.
	 */
	RunNode(n *graph.Node, r types.TimeRange, db *types.ValueDatabase, out *types.ValueTable) error
}
