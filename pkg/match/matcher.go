// Package match compiles address constraints into an allocation-free
// predicate over 40-character hex representations.
package match

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrInvalidHexPattern = errors.New("pattern must contain only hex characters (0-9, a-f, A-F)")
	ErrPatternTooLong    = errors.New("pattern exceeds the 40 hex characters of an address")
)

// Spec describes what a candidate address must look like. Prefix and Suffix
// are hex fragments anchored at the start and end of the 40-character
// address body. With Checksum set, letter casing in the fragments must also
// survive EIP-55 encoding.
type Spec struct {
	Prefix   string
	Suffix   string
	Checksum bool
}

// Matcher is a compiled Spec. It is read-only after Compile and safe to
// share across workers.
type Matcher struct {
	prefix   []byte
	suffix   []byte
	checksum bool
}

// Compile validates the spec and fixes the comparison bytes once, so the
// per-candidate test is a pair of byte comparisons. A leading 0x is
// stripped from either fragment. Without checksum mode the fragments are
// folded to lowercase; with it their casing is kept verbatim and compared
// against the EIP-55 form.
func Compile(spec Spec) (*Matcher, error) {
	prefix, err := normalize("prefix", spec.Prefix, spec.Checksum)
	if err != nil {
		return nil, err
	}
	suffix, err := normalize("suffix", spec.Suffix, spec.Checksum)
	if err != nil {
		return nil, err
	}
	if len(prefix)+len(suffix) > 40 {
		return nil, fmt.Errorf("%w: prefix %d + suffix %d characters", ErrPatternTooLong, len(prefix), len(suffix))
	}
	return &Matcher{prefix: prefix, suffix: suffix, checksum: spec.Checksum}, nil
}

func normalize(role, fragment string, keepCase bool) ([]byte, error) {
	fragment = strings.TrimPrefix(fragment, "0x")
	if !keepCase {
		fragment = strings.ToLower(fragment)
	}
	if len(fragment) > 40 {
		return nil, fmt.Errorf("%w: %s is %d characters", ErrPatternTooLong, role, len(fragment))
	}
	for _, c := range fragment {
		if !isHexChar(c) {
			return nil, fmt.Errorf("%w: %s contains %q", ErrInvalidHexPattern, role, c)
		}
	}
	if len(fragment) == 0 {
		return nil, nil
	}
	return []byte(fragment), nil
}

func isHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// MatchHex reports whether a 40-character hex buffer satisfies the compiled
// constraints. The buffer must be lowercase, or EIP-55 cased when the
// matcher was compiled in checksum mode. Never allocates.
func (m *Matcher) MatchHex(hex40 []byte) bool {
	if len(m.prefix) > 0 && !bytes.HasPrefix(hex40, m.prefix) {
		return false
	}
	if len(m.suffix) > 0 && !bytes.HasSuffix(hex40, m.suffix) {
		return false
	}
	return true
}

// Checksum reports whether candidates must be EIP-55 cased before matching.
func (m *Matcher) Checksum() bool {
	return m.checksum
}

// Constrained reports whether the matcher restricts anything at all. An
// unconstrained matcher accepts every address.
func (m *Matcher) Constrained() bool {
	return len(m.prefix) > 0 || len(m.suffix) > 0
}

// Difficulty estimates how many candidates are expected per match: 16 per
// constrained nibble, doubled for each letter whose casing is pinned by
// checksum mode. Fits 2^200 worst case, hence the 256-bit result.
func (m *Matcher) Difficulty() *uint256.Int {
	shift := uint(4 * (len(m.prefix) + len(m.suffix)))
	if m.checksum {
		shift += countLetters(m.prefix) + countLetters(m.suffix)
	}
	return new(uint256.Int).Lsh(uint256.NewInt(1), shift)
}

func countLetters(fragment []byte) uint {
	var n uint
	for _, c := range fragment {
		if c > '9' {
			n++
		}
	}
	return n
}

// Describe renders the constraints for logs and reports.
func (m *Matcher) Describe() string {
	if !m.Constrained() {
		return "any address"
	}
	var parts []string
	if len(m.prefix) > 0 {
		parts = append(parts, fmt.Sprintf("prefix %q", m.prefix))
	}
	if len(m.suffix) > 0 {
		parts = append(parts, fmt.Sprintf("suffix %q", m.suffix))
	}
	desc := strings.Join(parts, " and ")
	if m.checksum {
		desc += " (checksum cased)"
	}
	return desc
}
