package idgen

import (
	"fmt"
	"sync/atomic"

	"sozvon.me/pkg/utils"
)

// Generator hands out peer identifiers. Peer ids are generated by the
// server at connection time, never taken from the client, so the only
// requirements are process-wide uniqueness and unguessability of other
// peers' ids. Injecting the generator lets tests use fixed sequences.
type Generator interface {
	NextID() string
}

const randomIDLength = 16

type random struct{}

// NewRandom returns the production Generator: 16 random letters, about
// 91 bits, collisions are not a practical concern.
func NewRandom() Generator {
	return random{}
}

func (random) NextID() string {
	return utils.RandString(randomIDLength)
}

type sequence struct {
	prefix string
	n      uint64
}

// NewSequence returns a deterministic Generator producing prefix-1,
// prefix-2, ... Intended for tests.
func NewSequence(prefix string) Generator {
	return &sequence{prefix: prefix}
}

func (s *sequence) NextID() string {
	return fmt.Sprintf("%s-%d", s.prefix, atomic.AddUint64(&s.n, 1))
}
