package cliflag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedFlagSets(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("rag").Int("rag.top-k", 5, "top k")
	fss.FlagSet("log").String("log.level", "INFO", "level")
	fss.FlagSet("rag").Int("rag.chunk-size", 512, "chunk size")

	assert.Equal(t, []string{"rag", "log"}, fss.Order)
	assert.NotNil(t, fss.FlagSets["rag"].Lookup("rag.chunk-size"))

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)
	out := buf.String()
	assert.Contains(t, out, "Rag flags:")
	assert.Contains(t, out, "--log.level")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Rag flags")), bytes.Index(buf.Bytes(), []byte("Log flags")))
}
