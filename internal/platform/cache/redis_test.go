package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAcceptsAddrAndURL(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/2"} {
		client, err := New(context.Background(), addr)
		require.NoError(t, err, addr)
		assert.Equal(t, mr.Addr(), client.Options().Addr)
		require.NoError(t, client.Close())
	}
}

func TestOptionsParsesDatabase(t *testing.T) {
	opts, err := options("redis://:secret@cache:6380/3")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = options("redis://cache:6380/notadb")
	assert.Error(t, err)
}
