package worker

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// SaltStream yields the deterministic salt sequence for one worker. Each
// salt is four chained splitmix64 outputs, so a (seed, worker) pair always
// produces the same candidates regardless of how the other workers are
// scheduled.
type SaltStream struct {
	state uint64
}

// NewSaltStream derives an independent stream for one worker. Offsetting the
// base seed by a multiple of the golden-gamma constant keeps the per-worker
// starting states far apart.
func NewSaltStream(base uint64, worker int) *SaltStream {
	return &SaltStream{state: base + uint64(worker)*0x9e3779b97f4a7c15}
}

// Next fills salt with the next 32 bytes of the stream.
func (s *SaltStream) Next(salt *[32]byte) {
	for i := 0; i < 32; i += 8 {
		s.state = splitmix64(s.state)
		binary.LittleEndian.PutUint64(salt[i:], s.state)
	}
}

// splitmix64 is Vigna's 64-bit mixer. Candidate salts need to be well
// spread, not unpredictable.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	z := x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// RandomSeed draws a base seed from the OS entropy source. Runs that want
// reproducibility pass their own seed instead.
func RandomSeed() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("reading entropy for seed: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
