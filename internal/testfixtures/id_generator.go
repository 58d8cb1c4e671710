package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator hands out predictable identifiers such as "id-1", "id-2" so
// assertions can name the rooms, reservations and sessions a test creates.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next is safe for concurrent use by booking goroutines.
func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.issued.Add(1))
}

func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers have been generated.
func (g *IDGenerator) Issued() int {
	return int(g.issued.Load())
}
