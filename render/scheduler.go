package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/mediagraph/codec"
	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/store"
	"github.com/warriorguo/mediagraph/types"
)

var (
	_ types.RenderEngine = &engine{}
	_ types.Observer     = &engine{}
)

// NewRenderEngine starts WorkerCount workers over doc. All of them share
// one decoder cache and, when enabled, one accelerator.
func NewRenderEngine(doc *graph.Document, s store.Store, opts *types.RenderOptions) (types.RenderEngine, error) {
	return newEngine(doc, s, opts)
}

type engine struct {
	ctx    context.Context
	cancel context.CancelFunc

	closed       atomic.Bool
	stopOnce     sync.Once
	stopped      chan struct{}
	teardownOnce sync.Once

	doc         *graph.Document
	store       store.Store
	cache       *codec.DecoderCache
	accel       Accelerator
	keepRecords bool
	retention   time.Duration

	wp      *workerpool.WorkerPool
	idle    chan *Worker
	workers []*Worker

	jobTime   atomic.Int64
	renderSeq atomic.Int64
	jobs      *jobSet

	obsMu     sync.RWMutex
	observers []types.Observer
}

func newEngine(doc *graph.Document, s store.Store, opts *types.RenderOptions, extra ...WorkerOption) (*engine, error) {
	if doc == nil {
		return nil, errors.BadRequestf("document is nil")
	}
	if opts.WorkerCount < 1 {
		return nil, errors.BadRequestf("worker count %d", opts.WorkerCount)
	}
	if opts.JobRetention < 0 {
		return nil, errors.BadRequestf("job retention %v", opts.JobRetention)
	}

	var accel Accelerator
	if opts.Accelerator != nil && opts.Acceleration {
		a, ok := opts.Accelerator.(Accelerator)
		if !ok {
			return nil, errors.BadRequestf("%T is not an accelerator", opts.Accelerator)
		}
		accel = a
	}

	e := &engine{}
	e.ctx, e.cancel = context.WithCancel(opts.Ctx)
	e.doc = doc
	e.store = s
	e.cache = codec.NewDecoderCache()
	e.accel = accel
	e.keepRecords = opts.KeepRecords && s != nil
	e.retention = opts.JobRetention
	e.wp = workerpool.New(opts.WorkerCount)
	e.idle = make(chan *Worker, opts.WorkerCount)
	e.jobs = &jobSet{}

	workerOpts := []WorkerOption{WithObserver(e), WithDivider(opts.Divider)}
	if accel != nil {
		workerOpts = append(workerOpts, WithAccelerator(accel))
	}
	workerOpts = append(workerOpts, extra...)
	for i := 0; i < opts.WorkerCount; i++ {
		w := NewWorker(doc, e.cache, workerOpts...)
		if err := w.Init(); err != nil {
			return nil, errors.Trace(err)
		}
		e.workers = append(e.workers, w)
		e.idle <- w
	}
	return e, nil
}

type job struct {
	mu sync.Mutex

	id      string
	dep     types.Dependency
	jobTime int64

	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool

	status     types.StatusType
	submitTime time.Time
	endTime    time.Time
	table      *types.ValueTable

	done chan struct{}
}

func (j *job) setStatus(status types.StatusType) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.status = status
}

func (j *job) finish(table *types.ValueTable, status types.StatusType) {
	j.mu.Lock()
	j.table = table
	j.status = status
	j.endTime = time.Now()
	j.mu.Unlock()

	j.stop()
	j.cancel()
	close(j.done)
}

func (j *job) getStatus() *types.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	return &types.JobStatus{
		Status:     j.status,
		Dependency: j.dep,
		SubmitTime: j.submitTime,
		EndTime:    j.endTime,
	}
}

type jobSet struct {
	mu sync.Mutex

	jobs map[string]*job
}

func (s *jobSet) get(key string) *job {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.jobs[key]
}

// remove drops j unless its id was already reused by a newer job.
func (s *jobSet) remove(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jobs[j.id] == j {
		delete(s.jobs, j.id)
	}
}

func (s *jobSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}

func (s *jobSet) add(key string, j *job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jobs == nil {
		s.jobs = make(map[string]*job)
	}
	if _, exists := s.jobs[key]; exists {
		return errors.AlreadyExistsf("job: %s", key)
	}
	s.jobs[key] = j
	return nil
}

func (e *engine) Submit(ctx context.Context, jobID string, dep types.Dependency) error {
	if e.closed.Load() {
		return types.ErrEngineClosed
	}
	if jobID == "" {
		return errors.BadRequestf("empty job id")
	}
	if _, exists := e.doc.Node(dep.Node); !exists {
		return errors.NotFoundf("node: %d", dep.Node)
	}

	j := &job{
		id:         jobID,
		dep:        dep,
		jobTime:    e.jobTime.Add(1),
		status:     types.Pending,
		submitTime: time.Now(),
		done:       make(chan struct{}),
	}
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.stop = context.AfterFunc(e.ctx, j.cancel)

	if err := e.jobs.add(jobID, j); err != nil {
		j.stop()
		j.cancel()
		return errors.Trace(err)
	}

	e.wp.Submit(func() {
		e.runJob(j)
	})
	return nil
}

func (e *engine) runJob(j *job) {
	if j.ctx.Err() != nil {
		// records are saved before finishing so Wait can read them
		e.saveRecord(&types.RenderRecord{
			JobID:      j.id,
			Dependency: j.dep,
			StartTime:  j.submitTime,
			EndTime:    time.Now(),
			Cancelled:  true,
		})
		j.finish(types.NewValueTable(), types.Cancelled)
		e.forget(j)
		return
	}

	w := <-e.idle
	defer func() {
		e.idle <- w
	}()

	j.setStatus(types.Running)
	table, err := w.Render(j.ctx, j.id, j.dep, j.jobTime)
	if err != nil {
		log.Errorf("%s render failed: %v", j.id, err)
		table = types.NewValueTable()
	}

	status := types.Finished
	if j.ctx.Err() != nil {
		status = types.Cancelled
	}
	e.saveRecord(w.LastRecord())
	j.finish(table, status)
	e.forget(j)
}

// forget drops a finished job once the retention is over.
func (e *engine) forget(j *job) {
	if e.retention <= 0 {
		e.jobs.remove(j)
		return
	}
	time.AfterFunc(e.retention, func() {
		e.jobs.remove(j)
	})
}

func (e *engine) saveRecord(record *types.RenderRecord) {
	if !e.keepRecords || record == nil {
		return
	}
	if err := saveRecord(context.Background(), e.store, record); err != nil {
		log.Errorf("%s failed to save record: %v", record.JobID, err)
	}
}

// Wait collects the output of a job. A job no one waits for is dropped
// after the retention, and its status is then read from its record.
func (e *engine) Wait(ctx context.Context, jobID string) (*types.ValueTable, error) {
	j := e.jobs.get(jobID)
	if j == nil {
		return nil, errors.NotFoundf("job: %s", jobID)
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		select {
		case <-j.done:
		default:
			return nil, errors.Trace(ctx.Err())
		}
	}

	e.jobs.remove(j)

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.table, nil
}

func (e *engine) Render(ctx context.Context, dep types.Dependency) (*types.ValueTable, error) {
	jobID := fmt.Sprintf("render-%d", e.renderSeq.Add(1))
	if err := e.Submit(ctx, jobID, dep); err != nil {
		return nil, errors.Trace(err)
	}
	return e.Wait(ctx, jobID)
}

func (e *engine) Cancel(jobID string) error {
	j := e.jobs.get(jobID)
	if j == nil {
		return errors.NotFoundf("job: %s", jobID)
	}
	j.cancel()
	return nil
}

// GetJobStatus reports live jobs first and falls back to stored records
// once a job was collected by Wait or dropped.
func (e *engine) GetJobStatus(ctx context.Context, jobID string) (*types.JobStatus, error) {
	if j := e.jobs.get(jobID); j != nil {
		return j.getStatus(), nil
	}

	record, err := e.GetJobRecord(ctx, jobID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	status := &types.JobStatus{
		Status:     types.Finished,
		Dependency: record.Dependency,
		SubmitTime: record.StartTime,
		EndTime:    record.EndTime,
	}
	if record.Cancelled {
		status.Status = types.Cancelled
	}
	return status, nil
}

func (e *engine) GetJobRecord(ctx context.Context, jobID string) (*types.RenderRecord, error) {
	if e.store == nil {
		return nil, errors.NotFoundf("record of %s", jobID)
	}
	return loadRecord(ctx, e.store, jobID)
}

func (e *engine) RenderGraph(ctx context.Context, jobID string) (string, error) {
	var record *types.RenderRecord
	if jobID != "" {
		var err error
		if record, err = e.GetJobRecord(ctx, jobID); err != nil {
			return "", errors.Trace(err)
		}
	}
	return renderDOT(e.doc, record)
}

func (e *engine) Subscribe(observer types.Observer) {
	if observer == nil {
		return
	}

	e.obsMu.Lock()
	defer e.obsMu.Unlock()

	e.observers = append(e.observers, observer)
}

func (e *engine) getObservers() []types.Observer {
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()

	return e.observers
}

func (e *engine) OnFootageUnavailable(ev types.FootageUnavailableEvent) {
	for _, o := range e.getObservers() {
		o.OnFootageUnavailable(ev)
	}
}

func (e *engine) OnRenderCompleted(ev types.RenderCompletedEvent) {
	for _, o := range e.getObservers() {
		o.OnRenderCompleted(ev)
	}
}

// Close cancels every job and releases workers, decoders and the
// accelerator once the running jobs returned. When ctx ends first the
// release is left to a later Close.
func (e *engine) Close(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.closed.Store(true)
		e.cancel()

		e.stopped = make(chan struct{})
		go func() {
			e.wp.StopWait()
			close(e.stopped)
		}()
	})

	select {
	case <-e.stopped:
	case <-ctx.Done():
		return errors.Annotatef(ctx.Err(), "waiting for running jobs")
	}

	var retErr error
	e.teardownOnce.Do(func() {
		for _, w := range e.workers {
			w.Close()
		}
		if e.accel != nil {
			e.accel.Close()
		}
		if err := e.cache.CloseAll(); err != nil {
			retErr = errors.Trace(err)
		}
	})
	return retErr
}
