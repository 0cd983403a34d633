package cpu

import (
	"math/rand/v2"
)

// Random supplies uniformly distributed bytes to the masked random opcode.
type Random interface {
	Byte() uint8
}

type sequence struct {
	values []uint8
	next   int
}

// RandomSequence returns a Random that cycles through the given bytes.
// An empty sequence always yields zero.
func RandomSequence(values ...uint8) Random {
	return &sequence{values: values}
}

func (seq *sequence) Byte() (value uint8) {
	if len(seq.values) == 0 {
		return
	}
	value = seq.values[seq.next%len(seq.values)]
	seq.next++
	return
}

type pcgRandom struct {
	rng *rand.Rand
}

// NewRandom returns a PCG generator seeded once with seed.
func NewRandom(seed uint64) Random {
	return &pcgRandom{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (pr *pcgRandom) Byte() uint8 {
	return uint8(pr.rng.Uint32())
}
