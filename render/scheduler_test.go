package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/graph/nodes"
	"github.com/warriorguo/mediagraph/store/mem"
	"github.com/warriorguo/mediagraph/types"
)

func newTestEngine(t *testing.T, f *fixture, opts ...types.RenderOption) *engine {
	t.Helper()
	options := types.NewRenderOptions()
	for _, opt := range opts {
		opt(options)
	}
	e, err := newEngine(f.doc, mem.NewMemStore(), options, WithRegistry(f.registry))
	require.NoError(t, err)
	t.Cleanup(func() {
		e.Close(context.Background())
	})
	return e
}

// gate blocks its evaluation until released.
type gate struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) Value(*types.ValueDatabase) *types.ValueTable {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return types.NewValueTable()
}

func waitStarted(t *testing.T, g *gate) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		t.Fatal("gate never started")
	}
}

// gated builds top(first <- gate, second <- footage literal).
func gated(f *fixture) (types.NodeID, *gate) {
	g := newGate()
	gateID := f.doc.AddNode("gate", g)
	top := &capture{inputs: []*graph.Input{
		graph.NewInput("first", types.DataAny, nil),
		graph.NewInput("second", types.DataFootage, f.stream),
	}}
	topID := f.doc.AddNode("top", top)
	if err := f.doc.Connect(gateID, topID, "first"); err != nil {
		panic(err)
	}
	return topID, g
}

func TestEngineRender(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	clip := f.mediaInput("clip")
	e := newTestEngine(t, f, types.SetDivider(4))

	ctx := context.Background()
	dep := types.NewDependency(clip, span(0, 1))
	require.NoError(t, e.Submit(ctx, "job-1", dep))
	table, err := e.Wait(ctx, "job-1")
	require.NoError(t, err)

	frame, ok := table.GetFrame(types.DataTexture)
	require.True(t, ok)
	assert.Equal(t, 16, frame.Width())

	status, err := e.GetJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, types.Finished, status.Status)
	assert.Equal(t, dep, status.Dependency)

	record, err := e.GetJobRecord(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", record.JobID)
	assert.Equal(t, dep, record.Dependency)
	assert.Equal(t, []string{"clip"}, record.Visited)
	assert.False(t, record.Cancelled)

	table, err = e.Render(ctx, dep)
	require.NoError(t, err)
	assert.True(t, table.Has(types.DataTexture))
	assert.Equal(t, int32(1), f.stats.opens.Load())
}

func TestEngineSubmitValidation(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	top, g := gated(f)
	e := newTestEngine(t, f)
	ctx := context.Background()

	require.NoError(t, e.Submit(ctx, "job", types.NewDependency(top, span(0, 1))))
	assert.True(t, errors.Is(e.Submit(ctx, "job", types.NewDependency(top, span(0, 1))), errors.AlreadyExists))
	assert.True(t, errors.Is(e.Submit(ctx, "other", types.NewDependency(99, span(0, 1))), errors.NotFound))
	assert.True(t, errors.Is(e.Submit(ctx, "", types.NewDependency(top, span(0, 1))), errors.BadRequest))

	close(g.release)
	_, err := e.Wait(ctx, "job")
	require.NoError(t, err)

	_, err = e.Wait(ctx, "job")
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.True(t, errors.Is(e.Cancel("job"), errors.NotFound))
}

func TestEngineCancelRunning(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	top, g := gated(f)
	e := newTestEngine(t, f)
	ctx := context.Background()

	require.NoError(t, e.Submit(ctx, "job", types.NewDependency(top, span(0, 1))))
	waitStarted(t, g)

	status, err := e.GetJobStatus(ctx, "job")
	require.NoError(t, err)
	assert.Equal(t, types.Running, status.Status)

	require.NoError(t, e.Cancel("job"))
	close(g.release)

	table, err := e.Wait(ctx, "job")
	require.NoError(t, err)
	assert.True(t, table.IsEmpty())
	assert.Equal(t, int32(0), f.stats.opens.Load())

	status, err = e.GetJobStatus(ctx, "job")
	require.NoError(t, err)
	assert.Equal(t, types.Cancelled, status.Status)
}

func TestEngineCancelPending(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	top, g := gated(f)
	clip := f.mediaInput("clip")
	e := newTestEngine(t, f, types.SetWorkerCount(1))
	ctx := context.Background()

	require.NoError(t, e.Submit(ctx, "blocker", types.NewDependency(top, span(0, 1))))
	waitStarted(t, g)
	require.NoError(t, e.Submit(ctx, "pending", types.NewDependency(clip, span(0, 1))))

	status, err := e.GetJobStatus(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, types.Pending, status.Status)

	require.NoError(t, e.Cancel("pending"))
	close(g.release)

	table, err := e.Wait(ctx, "pending")
	require.NoError(t, err)
	assert.True(t, table.IsEmpty())

	record, err := e.GetJobRecord(ctx, "pending")
	require.NoError(t, err)
	assert.True(t, record.Cancelled)
	assert.Empty(t, record.Visited)

	_, err = e.Wait(ctx, "blocker")
	require.NoError(t, err)
	// only the blocker touched the decoder
	assert.Equal(t, int32(1), f.stats.opens.Load())
}

func TestEngineWaitHonorsContext(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	top, g := gated(f)
	e := newTestEngine(t, f)
	defer close(g.release)

	require.NoError(t, e.Submit(context.Background(), "job", types.NewDependency(top, span(0, 1))))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.Wait(ctx, "job")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestEngineObservers(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.NotReady})
	clip := f.mediaInput("clip")
	e := newTestEngine(t, f)

	events := &eventLog{}
	e.Subscribe(events)
	e.Subscribe(nil)

	_, err := e.Render(context.Background(), types.NewDependency(clip, span(3, 4)))
	require.NoError(t, err)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.unavailable, 1)
	assert.Equal(t, span(3, 4), events.unavailable[0].Range)
	assert.Equal(t, types.FromInt(4), events.unavailable[0].Time)
	require.Len(t, events.completed, 1)
	assert.Equal(t, clip, events.completed[0].Dependency.Node)
}

func TestEngineConcurrentJobsShareDecoder(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready, openDelay: 5 * time.Millisecond})
	clip := f.mediaInput("clip")
	e := newTestEngine(t, f, types.SetWorkerCount(4))
	ctx := context.Background()

	const jobs = 16
	for i := 0; i < jobs; i++ {
		require.NoError(t, e.Submit(ctx, fmt.Sprintf("job-%d", i), types.NewDependency(clip, span(int64(i), int64(i+1)))))
	}
	for i := 0; i < jobs; i++ {
		table, err := e.Wait(ctx, fmt.Sprintf("job-%d", i))
		require.NoError(t, err)
		assert.True(t, table.Has(types.DataTexture))
	}
	assert.Equal(t, int32(1), f.stats.opens.Load())
	assert.Equal(t, int32(jobs), f.stats.retrieves.Load())
}

func TestEngineClose(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	clip := f.mediaInput("clip")
	accel := &fakeAccel{}
	e := newTestEngine(t, f, types.WithAccelerator(accel))
	ctx := context.Background()

	_, err := e.Render(ctx, types.NewDependency(clip, span(0, 1)))
	require.NoError(t, err)
	assert.Equal(t, int32(4), accel.inits.Load())

	require.NoError(t, e.Close(ctx))
	require.NoError(t, e.Close(ctx))
	assert.True(t, accel.closed.Load())
	assert.Equal(t, int32(1), f.stats.closes.Load())
	assert.Equal(t, 0, e.cache.Len())

	assert.Equal(t, types.ErrEngineClosed, e.Submit(ctx, "late", types.NewDependency(clip, span(0, 1))))
}

func TestEngineCloseCancelsRunningJobs(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	top, g := gated(f)
	e := newTestEngine(t, f)
	ctx := context.Background()

	require.NoError(t, e.Submit(ctx, "job", types.NewDependency(top, span(0, 1))))
	waitStarted(t, g)

	done := make(chan error, 1)
	go func() {
		done <- e.Close(ctx)
	}()
	time.Sleep(10 * time.Millisecond)
	close(g.release)
	require.NoError(t, <-done)

	table, err := e.Wait(ctx, "job")
	require.NoError(t, err)
	assert.True(t, table.IsEmpty())
	assert.Equal(t, int32(0), f.stats.opens.Load())
}

func TestEngineCloseFinishesAfterTimeout(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	top, g := gated(f)
	clip := f.mediaInput("clip")
	accel := &fakeAccel{}
	e := newTestEngine(t, f, types.WithAccelerator(accel))
	ctx := context.Background()

	_, err := e.Render(ctx, types.NewDependency(clip, span(0, 1)))
	require.NoError(t, err)
	require.Equal(t, 1, e.cache.Len())

	require.NoError(t, e.Submit(ctx, "job", types.NewDependency(top, span(0, 1))))
	waitStarted(t, g)

	expired, cancel := context.WithCancel(ctx)
	cancel()
	err = e.Close(expired)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, accel.closed.Load())
	assert.Equal(t, 1, e.cache.Len())

	close(g.release)
	require.NoError(t, e.Close(ctx))
	assert.True(t, accel.closed.Load())
	assert.Equal(t, int32(1), f.stats.closes.Load())
	assert.Equal(t, 0, e.cache.Len())
}

func TestEngineDropsUncollectedJobs(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	clip := f.mediaInput("clip")
	e := newTestEngine(t, f, types.SetJobRetention(0))
	ctx := context.Background()
	dep := types.NewDependency(clip, span(0, 1))

	require.NoError(t, e.Submit(ctx, "job-a", dep))
	require.Eventually(t, func() bool { return e.jobs.len() == 0 }, 5*time.Second, 5*time.Millisecond)

	status, err := e.GetJobStatus(ctx, "job-a")
	require.NoError(t, err)
	assert.Equal(t, types.Finished, status.Status)

	// the id is free again
	require.NoError(t, e.Submit(ctx, "job-a", dep))
	require.Eventually(t, func() bool { return e.jobs.len() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestEngineRetainsFinishedJobs(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	top, g := gated(f)
	e := newTestEngine(t, f, types.SetJobRetention(50*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, e.Submit(ctx, "job", types.NewDependency(top, span(0, 1))))
	waitStarted(t, g)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err := e.Wait(short, "job")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, e.jobs.len())

	close(g.release)
	require.Eventually(t, func() bool {
		status, err := e.GetJobStatus(ctx, "job")
		return err == nil && status.Status == types.Finished
	}, 5*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return e.jobs.len() == 0 }, 5*time.Second, 5*time.Millisecond)
	_, err = e.Wait(ctx, "job")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestEngineOptions(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})

	options := types.NewRenderOptions()
	types.WithAccelerator("not an accelerator")(options)
	_, err := newEngine(f.doc, mem.NewMemStore(), options)
	assert.True(t, errors.Is(err, errors.BadRequest))

	// a disabled accelerator is never checked nor used
	types.DisableAcceleration()(options)
	e, err := newEngine(f.doc, mem.NewMemStore(), options)
	require.NoError(t, err)
	assert.Nil(t, e.accel)
	require.NoError(t, e.Close(context.Background()))

	options = types.NewRenderOptions()
	types.SetWorkerCount(0)(options)
	_, err = newEngine(f.doc, mem.NewMemStore(), options)
	assert.True(t, errors.Is(err, errors.BadRequest))

	options = types.NewRenderOptions()
	assert.Equal(t, time.Minute, options.JobRetention)
	types.SetJobRetention(-time.Second)(options)
	_, err = newEngine(f.doc, mem.NewMemStore(), options)
	assert.True(t, errors.Is(err, errors.BadRequest))
}

func TestEngineWithoutRecords(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	clip := f.mediaInput("clip")
	e := newTestEngine(t, f, types.DisableRecords())
	ctx := context.Background()

	require.NoError(t, e.Submit(ctx, "job", types.NewDependency(clip, span(0, 1))))
	_, err := e.Wait(ctx, "job")
	require.NoError(t, err)

	_, err = e.GetJobRecord(ctx, "job")
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = e.GetJobStatus(ctx, "job")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestEngineRenderGraph(t *testing.T) {
	f := newFixture(t, fakeConfig{state: types.Ready})
	clip := f.mediaInput("clip")
	opacity := f.doc.AddNode("fade", nodes.NewOpacity())
	require.NoError(t, f.doc.Connect(clip, opacity, nodes.InputTexture))
	track := f.doc.AddTrack("v1")
	require.NoError(t, f.doc.AddBlock(track, graph.Block{Source: opacity, Placement: span(0, 10)}))
	unused := f.doc.AddNode("unused", constant(types.DataInt, 1))

	e := newTestEngine(t, f)
	ctx := context.Background()

	dot, err := e.RenderGraph(ctx, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dot, "digraph D {"))
	assert.Contains(t, dot, `n0 [label="clip" shape="record"]`)
	assert.Contains(t, dot, `n0 -> n1 [label="texture"]`)
	assert.Contains(t, dot, "subgraph cluster_2{")
	assert.Contains(t, dot, `n1 -> n2 [label="[0, 10)"]`)

	require.NoError(t, e.Submit(ctx, "job", types.NewDependency(track, span(0, 1))))
	_, err = e.Wait(ctx, "job")
	require.NoError(t, err)

	dot, err = e.RenderGraph(ctx, "job")
	require.NoError(t, err)
	assert.Contains(t, dot, `n1 [label="fade" shape="record" style="filled" color="green"]`)
	assert.Contains(t, dot, fmt.Sprintf(`n%d [label="unused" shape="record"]`, unused))

	_, err = e.RenderGraph(ctx, "missing")
	assert.Error(t, err)
}
