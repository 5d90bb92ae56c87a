package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/app/cliflag"
)

type testRAGOptions struct {
	TopK      int    `mapstructure:"top-k"`
	IndexName string `mapstructure:"index-name"`
}

type testOptions struct {
	RAG             *testRAGOptions `mapstructure:"rag"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown-timeout"`

	completed bool
}

func newTestOptions() *testOptions {
	return &testOptions{
		RAG:             &testRAGOptions{TopK: 5, IndexName: "documents"},
		ShutdownTimeout: 30 * time.Second,
	}
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("rag")
	fs.IntVar(&o.RAG.TopK, "rag.top-k", o.RAG.TopK, "top k")
	fs.StringVar(&o.RAG.IndexName, "rag.index-name", o.RAG.IndexName, "index name")
	fss.FlagSet("misc").DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "shutdown timeout")
	return fss
}

func (o *testOptions) Complete() error { o.completed = true; return nil }
func (o *testOptions) Validate() error { return nil }

func runTestApp(t *testing.T, opts *testOptions, args ...string) {
	t.Helper()
	ran := false
	a := NewApp(
		WithName("sentinel-rag-test"),
		WithOptions(opts),
		WithNoVersion(),
		WithRunFunc(func() error { ran = true; return nil }),
	)
	a.Command().SetArgs(append([]string{}, args...))
	require.NoError(t, a.Command().Execute())
	assert.True(t, ran)
	assert.True(t, opts.completed)
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "rag.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("rag:\n  top-k: 8\n  index-name: papers\nshutdown-timeout: 5s\n"), 0o600))

	opts := newTestOptions()
	runTestApp(t, opts, "--config", cfg, "--rag.top-k", "3")

	assert.Equal(t, 3, opts.RAG.TopK, "explicit flag wins over file")
	assert.Equal(t, "papers", opts.RAG.IndexName)
	assert.Equal(t, 5*time.Second, opts.ShutdownTimeout)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("SENTINEL_RAG_TEST_RAG_INDEX_NAME", "from-env")

	opts := newTestOptions()
	runTestApp(t, opts)

	assert.Equal(t, "from-env", opts.RAG.IndexName)
	assert.Equal(t, 5, opts.RAG.TopK)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "SENTINEL_RAG", EnvPrefix("sentinel-rag"))
}
