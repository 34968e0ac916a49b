package render

import (
	"context"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/mediagraph/store"
	"github.com/warriorguo/mediagraph/types"
	"github.com/warriorguo/mediagraph/utils"
)

const (
	RecordPath = "/record/"
)

// trace follows one render of a worker: the node path being evaluated and
// what happened on the way.
type trace struct {
	jobID string

	onPath      map[types.NodeID]int
	executePath utils.Path
	record      *types.RenderRecord
}

func newTrace(jobID string, dep types.Dependency) *trace {
	log.Debugf("%s rendering %v", jobID, dep)

	t := &trace{jobID: jobID, onPath: make(map[types.NodeID]int)}
	t.record = &types.RenderRecord{}
	t.record.JobID = jobID
	t.record.Dependency = dep
	t.record.StartTime = time.Now()
	return t
}

func (t *trace) currentPath() string {
	return t.executePath.String()
}

// enterNode returns false when id is already being evaluated further up
// the path, which only a cycle can cause.
func (t *trace) enterNode(id types.NodeID, name string) bool {
	if t.onPath[id] > 0 {
		log.Errorf("%s cycle through %s at %s", t.jobID, name, t.currentPath())
		return false
	}
	t.onPath[id]++
	t.executePath = t.executePath.Push(name)
	t.record.Visited = append(t.record.Visited, t.currentPath())
	t.record.VisitedNodes = append(t.record.VisitedNodes, id)
	return true
}

func (t *trace) exitNode(id types.NodeID) {
	if t.onPath[id]--; t.onPath[id] <= 0 {
		delete(t.onPath, id)
	}
	t.executePath = t.executePath.Pop()
}

func (t *trace) decoderOpened(id types.StreamID) {
	t.record.DecoderOpens = append(t.record.DecoderOpens, id)
}

func (t *trace) openFailed(id types.StreamID) {
	t.record.OpenFailures = append(t.record.OpenFailures, id)
}

func (t *trace) unavailable(ev types.FootageUnavailableEvent) {
	t.record.Unavailable = append(t.record.Unavailable, ev)
}

func (t *trace) accelerated(id types.NodeID) {
	t.record.Accelerated = append(t.record.Accelerated, id)
}

func (t *trace) end(output *types.ValueTable, cancelled bool) *types.RenderRecord {
	t.record.EndTime = time.Now()
	t.record.Cancelled = cancelled
	t.record.OutputTypes = output.Types()
	// a stream or node reached through several inputs is listed once
	t.record.DecoderOpens = utils.UniqueSlice(t.record.DecoderOpens)
	t.record.OpenFailures = utils.UniqueSlice(t.record.OpenFailures)
	t.record.Accelerated = utils.UniqueSlice(t.record.Accelerated)
	return t.record
}

func saveRecord(ctx context.Context, s store.Store, record *types.RenderRecord) error {
	b, err := utils.Serialize(record)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.Set(ctx, RecordPath, record.JobID, b))
}

func loadRecord(ctx context.Context, s store.Store, jobID string) (*types.RenderRecord, error) {
	b, err := s.Get(ctx, RecordPath, jobID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(b) == 0 {
		return nil, errors.NotFoundf("record of %s", jobID)
	}
	record, err := utils.Unserialize[types.RenderRecord](b)
	if err != nil {
		return nil, errors.Annotatef(err, "record of %s", jobID)
	}
	return record, nil
}
