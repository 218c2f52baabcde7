// Package types holds the result and progress values shared between the
// mining engine and its callers.
package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Result is the outcome of one search run. Found is false only when the
// attempt budget ran out, or the run was stopped, before any candidate
// satisfied the constraints; Salt and Address are meaningful only when
// Found is true.
type Result struct {
	Found    bool
	Salt     [32]byte
	Address  common.Address
	Attempts uint64
	Elapsed  time.Duration
}

// SaltHex returns the full-width 0x-prefixed salt.
func (r Result) SaltHex() string {
	return hexutil.Encode(r.Salt[:])
}

// ChecksumAddress returns the EIP-55 mixed-case form of the address.
func (r Result) ChecksumAddress() string {
	return r.Address.Hex()
}

// Rate returns attempts per second over the run, 0 for an instant run.
func (r Result) Rate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Attempts) / r.Elapsed.Seconds()
}

// Stats is a point-in-time snapshot of search progress.
type Stats struct {
	Attempts uint64
	Rate     float64
	Elapsed  time.Duration
}
