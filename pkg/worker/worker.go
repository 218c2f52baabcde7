// Package worker runs the per-goroutine candidate loop: draw a salt, derive
// the address, test it against the compiled constraints.
package worker

import (
	"encoding/hex"
	"math"
	"sync/atomic"

	"github.com/evmforge/create2-miner/internal/crypto"
	"github.com/evmforge/create2-miner/pkg/match"
)

// DefaultBatch is how many attempts a worker reserves from the shared
// budget at a time. Large enough that the two atomic counter updates per
// batch disappear next to the keccak work, small enough that a capped run
// still spreads evenly across workers.
const DefaultBatch = 2048

// Budget is the attempt budget shared by all workers of a run. Workers
// reserve attempts in batches before doing the work and report consumption
// afterwards, so the total consumed never exceeds the cap and an exhausted
// capped run has consumed the cap exactly.
type Budget struct {
	cap      uint64
	next     atomic.Uint64
	consumed atomic.Uint64
}

// NewBudget returns a budget capped at cap attempts; 0 means unbounded.
func NewBudget(cap uint64) *Budget {
	if cap == 0 {
		cap = math.MaxUint64
	}
	return &Budget{cap: cap}
}

// Reserve claims up to n attempts and returns how many were granted. A zero
// grant means the budget is exhausted.
func (b *Budget) Reserve(n uint64) uint64 {
	end := b.next.Add(n)
	start := end - n
	if start >= b.cap {
		return 0
	}
	if end > b.cap {
		return b.cap - start
	}
	return n
}

// Consume records n attempts as actually performed.
func (b *Budget) Consume(n uint64) {
	b.consumed.Add(n)
}

// Consumed returns the attempts performed so far. Safe to call while
// workers are running.
func (b *Budget) Consumed() uint64 {
	return b.consumed.Load()
}

// Cap returns the attempt cap, math.MaxUint64 when unbounded.
func (b *Budget) Cap() uint64 {
	return b.cap
}

// Found is a matching candidate discovered by a worker.
type Found struct {
	Salt    [32]byte
	Address [20]byte
}

// Worker owns one candidate pipeline. All buffers are preallocated; a full
// batch runs without touching the heap.
type Worker struct {
	deriver *crypto.Deriver
	matcher *match.Matcher
	stream  *SaltStream
	keccak  crypto.KeccakState

	salt [32]byte
	addr [20]byte
	hex  [40]byte
}

// New assembles a worker from its per-goroutine deriver and salt stream and
// the shared read-only matcher.
func New(deriver *crypto.Deriver, matcher *match.Matcher, stream *SaltStream) *Worker {
	return &Worker{
		deriver: deriver,
		matcher: matcher,
		stream:  stream,
		keccak:  crypto.NewKeccakState(),
	}
}

// Search runs candidates until one matches, the budget runs out, or stop
// flips. It returns the match and true if this worker found it. The stop
// flag is checked before every candidate so a win elsewhere ends the run
// within one derivation, and every exit path reports the attempts it
// actually performed.
func (w *Worker) Search(budget *Budget, stop *atomic.Bool) (Found, bool) {
	for !stop.Load() {
		grant := budget.Reserve(DefaultBatch)
		if grant == 0 {
			return Found{}, false
		}
		var done uint64
		for done < grant {
			if stop.Load() {
				budget.Consume(done)
				return Found{}, false
			}
			w.stream.Next(&w.salt)
			w.deriver.Derive(&w.salt, &w.addr)
			done++
			hex.Encode(w.hex[:], w.addr[:])
			if w.matcher.Checksum() {
				crypto.ChecksumHexInto(w.keccak, w.hex[:])
			}
			if w.matcher.MatchHex(w.hex[:]) {
				budget.Consume(done)
				return Found{Salt: w.salt, Address: w.addr}, true
			}
		}
		budget.Consume(done)
	}
	return Found{}, false
}
