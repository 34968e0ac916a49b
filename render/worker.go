package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/warriorguo/mediagraph/codec"
	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/types"
)

type WorkerOption func(*Worker)

// WithAccelerator sets the alternate evaluator consulted after every node.
func WithAccelerator(accel Accelerator) WorkerOption {
	return func(w *Worker) {
		w.accel = accel
	}
}

func WithObserver(observer types.Observer) WorkerOption {
	return func(w *Worker) {
		w.observer = observer
	}
}

// WithDivider sets the resolution divider handed to decoders.
func WithDivider(divider int) WorkerOption {
	return func(w *Worker) {
		w.divider = divider
	}
}

func WithRegistry(registry *codec.Registry) WorkerOption {
	return func(w *Worker) {
		w.registry = registry
	}
}

/**
 * Worker resolves one Dependency at a time into a ValueTable. Several
 * workers may share a document and a decoder cache; the cache is the only
 * state they synchronize on.
 */
type Worker struct {
	doc      *graph.Document
	cache    *codec.DecoderCache
	registry *codec.Registry
	accel    Accelerator
	observer types.Observer
	divider  int

	mu          sync.Mutex
	started     bool
	currentPath types.Dependency
	lastRecord  *types.RenderRecord

	trace *trace
}

func NewWorker(doc *graph.Document, cache *codec.DecoderCache, opts ...WorkerOption) *Worker {
	w := &Worker{
		doc:      doc,
		cache:    cache,
		registry: codec.DefaultRegistry,
		divider:  1,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.divider < 1 {
		w.divider = 1
	}
	return w
}

// Init prepares the accelerator. A failing accelerator is dropped and the
// worker evaluates everything itself.
func (w *Worker) Init() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}
	if w.accel != nil {
		if err := w.accel.Init(); err != nil {
			log.Warnf("accelerator %s disabled: %v", w.accel.Name(), err)
			w.accel = nil
		}
	}
	w.started = true
	return nil
}

// Close stops the worker. Shared resources (decoders, the accelerator)
// belong to whoever handed them over.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.started = false
}

func (w *Worker) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.started
}

// CurrentPath is the dependency of the render in progress, or of the last
// one.
func (w *Worker) CurrentPath() types.Dependency {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.currentPath
}

// LastRecord describes the most recent render of this worker.
func (w *Worker) LastRecord() *types.RenderRecord {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lastRecord
}

/**
 * Render evaluates dep for the job and notifies observers once done.
 * Cancelling ctx makes the result partial or empty; it is never an error.
 */
func (w *Worker) Render(ctx context.Context, jobID string, dep types.Dependency, jobTime int64) (*types.ValueTable, error) {
	if !w.IsStarted() {
		return nil, types.ErrNotStarted
	}

	w.mu.Lock()
	w.currentPath = dep
	w.mu.Unlock()

	w.trace = newTrace(jobID, dep)
	table := w.ProcessNode(ctx, dep)
	cancelled := ctx.Err() != nil
	record := w.trace.end(table, cancelled)
	w.trace = nil

	w.mu.Lock()
	w.lastRecord = record
	w.mu.Unlock()

	if w.observer != nil {
		w.observer.OnRenderCompleted(types.RenderCompletedEvent{
			JobID:      jobID,
			Dependency: dep,
			Table:      table,
			JobTime:    jobTime,
			Cancelled:  cancelled,
		})
	}
	return table, nil
}

// ProcessNode evaluates one node over a range, recursing into whatever it
// is connected to. It never fails: missing pieces leave the table short.
func (w *Worker) ProcessNode(ctx context.Context, dep types.Dependency) *types.ValueTable {
	if w.trace == nil {
		// called directly rather than through Render
		w.mu.Lock()
		w.currentPath = dep
		w.mu.Unlock()

		w.trace = newTrace("", dep)
		defer func() { w.trace = nil }()
	}

	n, exists := w.doc.Node(dep.Node)
	if !exists {
		log.Errorf("%s unknown node %d", w.trace.jobID, dep.Node)
		return types.NewValueTable()
	}

	if !w.trace.enterNode(n.ID(), n.Name()) {
		return types.NewValueTable()
	}
	defer w.trace.exitNode(n.ID())

	if n.IsTrack() {
		return w.renderBlock(ctx, n, dep.Range)
	}

	db, ok := w.generateDatabase(ctx, n, dep.Range)
	if !ok {
		log.Debugf("%s cancelled at %s", w.trace.jobID, w.trace.currentPath())
		return types.NewValueTable()
	}

	table := w.runNode(n, db)
	if w.accel != nil && w.accel.CanAccelerate(n) {
		table = w.runNodeAccelerated(n, dep.Range, db, table)
	}
	return table
}

func (w *Worker) runNode(n *graph.Node, db *types.ValueDatabase) (table *types.ValueTable) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s panic on %s: %v", w.trace.jobID, w.trace.currentPath(), r)
			table = types.NewValueTable()
		}
	}()
	return n.Value(db)
}

// renderBlock evaluates every block of a track overlapping r and appends
// their results in timeline order.
func (w *Worker) renderBlock(ctx context.Context, n *graph.Node, r types.TimeRange) *types.ValueTable {
	table := types.NewValueTable()
	for _, slice := range n.Track().Slices(r) {
		if ctx.Err() != nil {
			return types.NewValueTable()
		}
		table.Append(w.ProcessNode(ctx, types.NewDependency(slice.Source, slice.Local)))
	}
	return table
}

// generateDatabase resolves every input of n in declaration order. The
// bool is false when the job was cancelled on the way.
func (w *Worker) generateDatabase(ctx context.Context, n *graph.Node, r types.TimeRange) (*types.ValueDatabase, bool) {
	db := types.NewValueDatabase()
	for _, in := range n.Inputs() {
		sub := n.InputTimeAdjustment(in.Name(), r)
		if ctx.Err() != nil {
			return nil, false
		}
		table, ok := w.processInput(ctx, in, sub)
		if !ok {
			return nil, false
		}
		db.Insert(in.Name(), table)
	}
	return db, true
}

func (w *Worker) processInput(ctx context.Context, in *graph.Input, r types.TimeRange) (*types.ValueTable, bool) {
	var table *types.ValueTable
	if src, connected := in.ConnectedNode(); connected {
		table = w.ProcessNode(ctx, types.NewDependency(src, r))
		if ctx.Err() != nil {
			return nil, false
		}
	} else {
		table = types.NewValueTable()
		table.Push(in.DataType(), in.ValueAt(r.In()))
	}

	if in.DataType() != types.DataFootage {
		return table, true
	}

	stream, exists := w.resolveStreamFromInput(table)
	if !exists {
		return table, true
	}
	// no decoder I/O once the job is cancelled
	if ctx.Err() != nil {
		return nil, false
	}
	decoder, err := w.resolveDecoderFromInput(stream)
	if err != nil {
		log.Warnf("%s %s: %v", w.trace.jobID, w.trace.currentPath(), err)
		return table, true
	}
	w.retrieve(decoder, stream, r, table)
	return table, true
}

// resolveStreamFromInput finds the stream a footage table refers to.
func (w *Worker) resolveStreamFromInput(table *types.ValueTable) (*codec.Stream, bool) {
	v, exists := table.Get(types.DataFootage)
	if !exists || v == nil {
		return nil, false
	}
	if s, ok := v.(*codec.Stream); ok {
		return s, s != nil
	}
	id, err := cast.ToUint32E(v)
	if err != nil {
		log.Warnf("%s footage value %v is not a stream: %v", w.trace.jobID, v, err)
		return nil, false
	}
	return w.doc.Stream(types.StreamID(id))
}

// resolveDecoderFromInput returns the cached decoder of the stream, or
// creates and opens one. Failed decoders are not cached, so the next
// render tries again.
func (w *Worker) resolveDecoderFromInput(stream *codec.Stream) (codec.Decoder, error) {
	decoder, created, err := w.cache.GetOrCreate(stream.ID, func() (codec.Decoder, error) {
		d, err := w.registry.CreateFromID(stream.DecoderID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		d.SetStream(stream)
		return d, nil
	})
	if err != nil {
		w.trace.openFailed(stream.ID)
		return nil, errors.Annotatef(err, "decoder of %s", stream)
	}
	if created {
		w.trace.decoderOpened(stream.ID)
	}
	return decoder, nil
}

func (w *Worker) retrieve(decoder codec.Decoder, stream *codec.Stream, r types.TimeRange, table *types.ValueTable) {
	at := r.Out()
	state := decoder.GetRetrieveState(at)
	if state != types.Ready {
		w.reportUnavailableFootage(stream, state, at)
		return
	}

	frame, err := decoder.RetrieveVideo(at, w.divider)
	if err != nil || frame == nil {
		log.Warnf("%s %s", w.trace.jobID, types.NewRetrieveError(stream.ID, at, err))
		return
	}
	table.Push(types.DataTexture, frame)
}

func (w *Worker) reportUnavailableFootage(stream *codec.Stream, state types.RetrieveState, at types.Rational) {
	ev := types.FootageUnavailableEvent{
		JobID:  w.trace.jobID,
		Stream: stream.ID,
		State:  state,
		Range:  w.CurrentPath().Range,
		Time:   at,
	}
	w.trace.unavailable(ev)
	if w.observer != nil {
		w.observer.OnFootageUnavailable(ev)
	}
}

// runNodeAccelerated gives the accelerator a copy of the table. The copy
// only replaces the node's own result when the accelerator succeeds.
func (w *Worker) runNodeAccelerated(n *graph.Node, r types.TimeRange, db *types.ValueDatabase, table *types.ValueTable) *types.ValueTable {
	out := table.Clone()
	if err := w.accel.RunNode(n, r, db, out); err != nil {
		if !errors.Is(err, ErrFallbackToCPU) {
			log.Warnf("%s accelerator %s failed on %s: %v", w.trace.jobID, w.accel.Name(), w.trace.currentPath(), err)
		} else {
			log.Debugf("%s %s falls back to CPU", w.trace.jobID, w.trace.currentPath())
		}
		return table
	}
	w.trace.accelerated(n.ID())
	return out
}

func (w *Worker) String() string {
	return fmt.Sprintf("worker(%v)", w.CurrentPath())
}
