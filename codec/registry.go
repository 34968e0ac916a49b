package codec

import (
	"sync"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

var DefaultRegistry = NewRegistry()

func Register(id string, factory Factory, prober Prober) error {
	return DefaultRegistry.Register(id, factory, prober)
}

func CreateFromID(id string) (Decoder, error) {
	return DefaultRegistry.CreateFromID(id)
}

func Probe(filename string) (*Footage, error) {
	return DefaultRegistry.Probe(filename)
}

type backend struct {
	id      string
	factory Factory
	prober  Prober
}

// Registry maps decoder IDs to factories. Probers are tried in
// registration order.
type Registry struct {
	mu sync.Mutex

	backends map[string]*backend
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]*backend)}
}

func (r *Registry) Register(id string, factory Factory, prober Prober) error {
	if factory == nil {
		return errors.BadRequestf("decoder %s factory is nil", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[id]; exists {
		return errors.AlreadyExistsf("decoder: %s", id)
	}
	r.backends[id] = &backend{id: id, factory: factory, prober: prober}
	r.order = append(r.order, id)
	return nil
}

func (r *Registry) get(id string) *backend {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.backends[id]
}

func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.order...)
}

func (r *Registry) CreateFromID(id string) (Decoder, error) {
	b := r.get(id)
	if b == nil {
		return nil, errors.NotFoundf("decoder: %s", id)
	}
	return b.factory(), nil
}

// Probe asks every backend in turn; the first one that accepts the file
// fills the footage and becomes its decoder.
func (r *Registry) Probe(filename string) (*Footage, error) {
	for _, id := range r.IDs() {
		b := r.get(id)
		if b == nil || b.prober == nil {
			continue
		}

		f := &Footage{Filename: filename}
		ok, err := b.prober(f)
		if err != nil {
			log.Debugf("probe %s with %s failed: %v", filename, id, err)
			continue
		}
		if !ok {
			continue
		}

		f.DecoderID = id
		for _, s := range f.Streams {
			s.Filename = filename
			s.DecoderID = id
		}
		return f, nil
	}
	return nil, errors.NotSupportedf("footage %s", filename)
}
