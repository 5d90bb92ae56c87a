// Package options defines the contract shared by every options section and
// helpers for building flag names.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty, e.g. Join("cache", "redis") == "cache.redis.".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by every configuration section.
type IOptions interface {
	// Validate reports every invalid field, not just the first.
	Validate() []error

	// AddFlags registers the section's flags. The section name is appended
	// to prefixes by the implementation.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAll collects the errors of all sections. Nil sections are skipped.
func ValidateAll(sections ...IOptions) []error {
	var errs []error
	for _, s := range sections {
		if s == nil {
			continue
		}
		errs = append(errs, s.Validate()...)
	}
	return errs
}
