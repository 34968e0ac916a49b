package mem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/warriorguo/mediagraph/store"
)

var (
	_ store.Store = &memStore{}
)

func NewMemStore() store.Store {
	return &memStore{
		m: make(map[string][]byte),
		// setup no error as default
		mockErrHandler: defaultNoErr,
	}
}

// NewMemStoreWithErrHandler returns a store whose every call reports the
// error produced by errHandler, after doing its work.
func NewMemStoreWithErrHandler(errHandler func() error) store.Store {
	return &memStore{
		m:              make(map[string][]byte),
		mockErrHandler: errHandler,
	}
}

func defaultNoErr() error {
	return nil
}

/**
 * memStore keeps everything in a map, records are lost on exit.
 * only meant for tests and the command line tool.
 */
type memStore struct {
	mu sync.Mutex

	mockErrHandler func() error

	m map[string][]byte
}

func memKey(prefix, key string) string {
	return prefix + "|" + key
}

func (m *memStore) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("\n----------\n")
	for key, value := range m.m {
		sb.WriteString(fmt.Sprintf("%s: %d bytes\n", key, len(value)))
	}
	sb.WriteString("----------\n")
	return sb.String()
}

func (m *memStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, exists := m.m[memKey(prefix, key)]
	if !exists {
		return nil, m.mockErrHandler()
	}
	return append([]byte(nil), value...), m.mockErrHandler()
}

func (m *memStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.m[memKey(prefix, key)] = append([]byte(nil), value...)
	return m.mockErrHandler()
}

func (m *memStore) Remove(ctx context.Context, prefix, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.m, memKey(prefix, key))
	return m.mockErrHandler()
}

func (m *memStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	m.mu.Lock()
	prefix = memKey(prefix, "")
	matchedKeys := make([]string, 0)
	for key := range m.m {
		if rest, found := strings.CutPrefix(key, prefix); found {
			matchedKeys = append(matchedKeys, rest)
		}
	}
	m.mu.Unlock()

	sort.Strings(matchedKeys)
	for _, key := range matchedKeys {
		if !iterator(key) {
			break
		}
	}
	return m.mockErrHandler()
}

func (m *memStore) Close() error {
	return nil
}
