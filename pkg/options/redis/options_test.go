package redis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRedaction(t *testing.T) {
	o := NewOptions()
	o.Password = "s3cret"

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
	assert.Contains(t, string(data), redactedPassword)
	assert.Contains(t, string(data), `"host":"127.0.0.1"`)

	assert.NotContains(t, o.String(), "s3cret")
}

func TestCompleteReadsEnv(t *testing.T) {
	t.Setenv("REDIS_PASSWORD", "from-env")
	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "from-env", o.Password)
	assert.Equal(t, "127.0.0.1:6379", o.Addr())
}

func TestValidate(t *testing.T) {
	o := NewOptions()
	assert.Empty(t, o.Validate())
	o.Port = 0
	o.Host = ""
	assert.Len(t, o.Validate(), 2)
}
