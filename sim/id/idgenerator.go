// Package id generates identifiers for runs, recordings and firings.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

// NewSequentialGenerator returns a generator whose IDs are "1", "2", ... in
// call order. The IDs are reproducible across runs of the same model.
func NewSequentialGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewUniqueGenerator returns a generator of globally unique IDs. The IDs differ
// between runs.
func NewUniqueGenerator() IDGenerator {
	return uniqueIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	return strconv.FormatUint(idNumber, 10)
}

type uniqueIDGenerator struct{}

func (uniqueIDGenerator) Generate() string {
	return xid.New().String()
}

// RunID returns a new globally unique run identifier.
func RunID() string {
	return NewUniqueGenerator().Generate()
}
