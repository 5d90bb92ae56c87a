package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/sentinel-rag/pkg/options/redis"
)

func TestNewNilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.ErrorContains(t, err, "cannot be nil")
}

func TestNewInvalidOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Host = ""

	_, err := New(context.Background(), opts)
	assert.ErrorContains(t, err, "invalid redis options")
}

func TestNewUnreachable(t *testing.T) {
	opts := options.NewOptions()
	opts.Host = "127.0.0.1"
	opts.Port = 1
	opts.MaxRetries = -1
	opts.DialTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := New(ctx, opts)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
