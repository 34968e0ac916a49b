package mem

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	defer s.Close()

	value, err := s.Get(ctx, "/record/", "job-1")
	require.NoError(t, err)
	assert.Nil(t, value)

	buf := []byte(`{"JobID":"job-1"}`)
	require.NoError(t, s.Set(ctx, "/record/", "job-1", buf))
	buf[0] = 'x'

	value, err = s.Get(ctx, "/record/", "job-1")
	require.NoError(t, err)
	assert.Equal(t, `{"JobID":"job-1"}`, string(value))

	require.NoError(t, s.Remove(ctx, "/record/", "job-1"))
	require.NoError(t, s.Remove(ctx, "/record/", "job-1"))
	value, _ = s.Get(ctx, "/record/", "job-1")
	assert.Nil(t, value)
}

func TestMemStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	for _, key := range []string{"c", "a", "b"} {
		require.NoError(t, s.Set(ctx, "/record/", key, []byte(key)))
	}
	require.NoError(t, s.Set(ctx, "/other/", "z", nil))

	keys := []string{}
	require.NoError(t, s.List(ctx, "/record/", func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	count := 0
	require.NoError(t, s.List(ctx, "/record/", func(string) bool {
		count++
		return count < 2
	}))
	assert.Equal(t, 2, count)
}

func TestMemStoreErrHandler(t *testing.T) {
	ctx := context.Background()
	s := NewMemStoreWithErrHandler(func() error {
		return errors.New("disk full")
	})

	assert.Error(t, s.Set(ctx, "/record/", "a", []byte("a")))
	_, err := s.Get(ctx, "/record/", "a")
	assert.Error(t, err)
}
