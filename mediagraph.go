package mediagraph

import (
	"context"

	"github.com/juju/errors"

	"github.com/warriorguo/mediagraph/accel"
	_ "github.com/warriorguo/mediagraph/codec/stillimage"
	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/render"
	"github.com/warriorguo/mediagraph/store"
	"github.com/warriorguo/mediagraph/store/mem"
	"github.com/warriorguo/mediagraph/store/postgres"
	"github.com/warriorguo/mediagraph/types"
)

// NewRenderEngine creates a render engine over doc with the given options.
// Unless acceleration is disabled or another accelerator is given, nodes
// the gg rasterizer supports are composited through it.
func NewRenderEngine(doc *graph.Document, opts ...types.RenderOption) (types.RenderEngine, error) {
	options := types.NewRenderOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Acceleration && options.Accelerator == nil {
		options.Accelerator = accel.NewRaster()
	}

	s, err := newStore(options)
	if err != nil {
		return nil, errors.Trace(err)
	}

	e, err := render.NewRenderEngine(doc, s, options)
	if err != nil {
		s.Close()
		return nil, errors.Trace(err)
	}
	return &ownedStoreEngine{RenderEngine: e, store: s}, nil
}

func newStore(options *types.RenderOptions) (store.Store, error) {
	// PostgresConfig takes precedence over MemStore
	if options.PostgresConfig != nil {
		s, err := postgres.NewPostgresStore(postgres.FromOptions(options.PostgresConfig))
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
		return s, nil
	}
	// Default to mem store if not specified
	return mem.NewMemStore(), nil
}

// ownedStoreEngine closes the store it was built with after the engine.
type ownedStoreEngine struct {
	types.RenderEngine

	store store.Store
}

func (e *ownedStoreEngine) Close(ctx context.Context) error {
	if err := e.RenderEngine.Close(ctx); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.store.Close())
}
