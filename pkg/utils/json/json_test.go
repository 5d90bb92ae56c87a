package json

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchBody struct {
	Query  string         `json:"query"`
	K      int            `json:"k"`
	Filter map[string]any `json:"filter,omitempty"`
}

func TestBackendSelection(t *testing.T) {
	want := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	assert.Equal(t, want, IsUsingSonic())
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(searchBody{Query: "q", K: 2}))
	assert.NotContains(t, buf.String(), "filter")

	var out searchBody
	require.NoError(t, NewDecoder(&buf).Decode(&out))
	assert.Equal(t, "q", out.Query)
	assert.Equal(t, 2, out.K)
}

func TestMarshalIndent(t *testing.T) {
	b, err := MarshalIndent(map[string]int{"count": 1}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"count\": 1")
}
