package oracle

import (
	"hash/fnv"
	"math/rand"

	"tipnet/ports"
)

// HashRNG derives one independent stream per name from a base seed.
type HashRNG struct{}

var _ ports.RNGPort = HashRNG{}

// Stream returns a generator seeded with seed mixed with a hash of name.
func (HashRNG) Stream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}
