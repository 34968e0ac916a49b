package codec

import (
	"sync"

	"github.com/juju/errors"
	"github.com/warriorguo/mediagraph/types"
)

// DecoderCache keeps at most one live Decoder per stream. A single mutex
// guards the whole map. The cache never evicts on its own.
type DecoderCache struct {
	mu sync.Mutex

	decoders map[types.StreamID]Decoder
}

func NewDecoderCache() *DecoderCache {
	return &DecoderCache{decoders: make(map[types.StreamID]Decoder)}
}

// Get never creates.
func (c *DecoderCache) Get(id types.StreamID) (Decoder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, exists := c.decoders[id]
	return d, exists
}

// Add inserts d, replacing whatever was cached for id. The replaced
// decoder is not closed. Use GetOrCreate when racing with other workers.
func (c *DecoderCache) Add(id types.StreamID, d Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.decoders == nil {
		c.decoders = make(map[types.StreamID]Decoder)
	}
	c.decoders[id] = d
}

// GetOrCreate returns the cached decoder for id, or creates, opens and
// caches one while holding the lock the whole time. The first caller wins
// and later callers get the same instance. A decoder that fails to open is
// closed and not cached; the error is an *types.OpenError.
func (c *DecoderCache) GetOrCreate(id types.StreamID, create func() (Decoder, error)) (Decoder, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, exists := c.decoders[id]; exists {
		return d, false, nil
	}

	d, err := create()
	if err != nil {
		return nil, false, types.NewOpenError(id, err)
	}
	if d == nil {
		return nil, false, types.NewOpenErrorf(id, "no decoder created")
	}
	if err := d.Open(); err != nil {
		_ = d.Close()
		return nil, false, types.NewOpenError(id, err)
	}

	if c.decoders == nil {
		c.decoders = make(map[types.StreamID]Decoder)
	}
	c.decoders[id] = d
	return d, true, nil
}

// Remove closes and forgets the decoder of id, if any.
func (c *DecoderCache) Remove(id types.StreamID) error {
	c.mu.Lock()
	d, exists := c.decoders[id]
	delete(c.decoders, id)
	c.mu.Unlock()

	if !exists {
		return nil
	}
	return errors.Trace(d.Close())
}

func (c *DecoderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.decoders)
}

func (c *DecoderCache) CloseAll() error {
	c.mu.Lock()
	decoders := c.decoders
	c.decoders = make(map[types.StreamID]Decoder)
	c.mu.Unlock()

	var retErr error
	for id, d := range decoders {
		if err := d.Close(); err != nil {
			retErr = errors.Wrapf(retErr, err, "close decoder of stream %d", id)
		}
	}
	return retErr
}
