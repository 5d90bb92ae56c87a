// Package id generates the identifiers used by the service: random UUIDv4 for
// stored chunks and time-sortable ULIDs for request IDs.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator defines the interface for ID generators.
type Generator interface {
	// Generate creates a new unique ID.
	Generate() string
}

// Type represents the type of ID generator.
type Type string

const (
	// TypeUUID represents UUID v4 generator.
	TypeUUID Type = "uuid"

	// TypeULID represents ULID generator.
	TypeULID Type = "ulid"
)

// UUIDGenerator produces random UUIDv4 strings.
type UUIDGenerator struct{}

// Generate implements Generator.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// ULIDGenerator produces monotonic ULIDs. Safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator creates a ULID generator backed by crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate implements Generator.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

var defaultULID = NewULIDGenerator()

// NewUUID generates a new UUID v4 string.
func NewUUID() string {
	return uuid.NewString()
}

// NewULID generates a new ULID string.
func NewULID() string {
	return defaultULID.Generate()
}

// New generates a new ID using the specified generator type.
func New(t Type) string {
	if t == TypeULID {
		return NewULID()
	}
	return NewUUID()
}

// ParseUUID validates s as a UUID and returns its canonical form.
func ParseUUID(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", ErrInvalidUUID
	}
	return u.String(), nil
}

// ParseULID validates s as a ULID and returns its canonical form.
func ParseULID(s string) (string, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return "", ErrInvalidULID
	}
	return u.String(), nil
}
