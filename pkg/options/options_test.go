package options

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

type fakeSection struct{ errs []error }

func (f *fakeSection) Validate() []error { return f.errs }

func (f *fakeSection) AddFlags(*pflag.FlagSet, ...string) {}

func TestJoin(t *testing.T) {
	assert.Equal(t, "", Join())
	assert.Equal(t, "cache.", Join("cache"))
	assert.Equal(t, "cache.redis.", Join("cache", "redis"))
}

func TestValidateAll(t *testing.T) {
	a := &fakeSection{errs: []error{errors.New("a")}}
	b := &fakeSection{}
	c := &fakeSection{errs: []error{errors.New("c1"), errors.New("c2")}}

	errs := ValidateAll(a, b, nil, c)
	assert.Len(t, errs, 3)
	assert.Empty(t, ValidateAll())
}
