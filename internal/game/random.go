package game

import "math/rand/v2"

// Source supplies uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource draws from the runtime's ChaCha8 generator, which is seeded
// from the OS and safe for concurrent use.
func DefaultSource() Source { return globalSource{} }
