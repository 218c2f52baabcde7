package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// DefaultFactory is the canonical Create2Factory deployment the deploy
// scripts target when no factory address is supplied.
const DefaultFactory = "0x3528225F82292570B366eB4da9727c3E1c9DfBdb"

// CREATE2 preimage layout: 0xff (1) + factory (20) + salt (32) + initCodeHash (32) = 85.
const (
	create2Lead   = 0xff
	factoryOffset = 1
	saltOffset    = 21
	hashOffset    = 53
	preimageLen   = 85
)

var (
	ErrInvalidAddressLength = errors.New("address must be 20 bytes")
	ErrInvalidHashLength    = errors.New("init code hash must be 32 bytes")
	ErrInvalidSaltLength    = errors.New("salt must be at most 32 bytes")
)

// KeccakState is a keccak256 hash that also exposes Read. Reading the digest
// out of the sponge skips the state copy Sum performs, which matters in the
// per-candidate loop.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState returns a fresh keccak256 state.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 calculates the keccak256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	out := make([]byte, 32)
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(out)
	return out
}

// InitCodeHash hashes contract creation bytecode. Computed once per run;
// candidate salts never change it.
func InitCodeHash(initCode []byte) common.Hash {
	return common.BytesToHash(Keccak256(initCode))
}

// Deriver computes CREATE2 addresses for a fixed factory and init code hash.
// The static parts of the 85-byte preimage are primed at construction, so
// deriving a candidate only rewrites the salt slot and rehashes. A Deriver
// reuses its hasher state and is not safe for concurrent use; give each
// worker its own via Clone.
type Deriver struct {
	state    KeccakState
	preimage [preimageLen]byte
	digest   [32]byte
}

// NewDeriver validates input lengths once, up front, so the candidate loop
// runs with no error paths.
func NewDeriver(factory, initCodeHash []byte) (*Deriver, error) {
	if len(factory) != 20 {
		return nil, fmt.Errorf("%w: factory is %d bytes", ErrInvalidAddressLength, len(factory))
	}
	if len(initCodeHash) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidHashLength, len(initCodeHash))
	}
	d := &Deriver{state: NewKeccakState()}
	d.preimage[0] = create2Lead
	copy(d.preimage[factoryOffset:saltOffset], factory)
	copy(d.preimage[hashOffset:], initCodeHash)
	return d, nil
}

// Clone returns an independent Deriver with the same factory and init code
// hash, for handing to another goroutine.
func (d *Deriver) Clone() *Deriver {
	return &Deriver{state: NewKeccakState(), preimage: d.preimage}
}

// Derive writes the CREATE2 address for salt into addr: the low 20 bytes of
// keccak256(0xff ++ factory ++ salt ++ initCodeHash). No allocations.
func (d *Deriver) Derive(salt *[32]byte, addr *[20]byte) {
	copy(d.preimage[saltOffset:hashOffset], salt[:])
	d.state.Reset()
	d.state.Write(d.preimage[:])
	d.state.Read(d.digest[:])
	copy(addr[:], d.digest[12:])
}

// DeriveAddress is the convenience form of Derive for single computations
// and result assembly.
func (d *Deriver) DeriveAddress(salt [32]byte) common.Address {
	var addr [20]byte
	d.Derive(&salt, &addr)
	return common.Address(addr)
}

// ChecksumAddress converts a 20-byte address to its EIP-55 mixed-case string.
// Output-path helper; the hot loop uses ChecksumHexInto instead.
func ChecksumAddress(addr []byte) string {
	if len(addr) != 20 {
		panic(errors.New("address must be 20 bytes"))
	}
	var buf [40]byte
	hex.Encode(buf[:], addr)
	ChecksumHexInto(NewKeccakState(), buf[:])
	return "0x" + string(buf[:])
}

// ChecksumHexInto applies EIP-55 casing in place to a 40-char lowercase hex
// buffer: hex digit i is uppercased when nibble i of keccak256 over the hex
// string itself (not the raw address bytes) is 8 or more. The caller owns
// the hasher, so repeated calls allocate nothing.
func ChecksumHexInto(state KeccakState, hex40 []byte) {
	var digest [32]byte
	state.Reset()
	state.Write(hex40)
	state.Read(digest[:])
	for i, c := range hex40 {
		if c < 'a' {
			continue // digits have no case
		}
		if (digest[i/2]>>uint(4*(1-i%2)))&0xf >= 8 {
			hex40[i] = c - 32
		}
	}
}

// AddressBytes decodes a hex address, with or without the 0x prefix, into
// its 20 raw bytes.
func AddressBytes(s string) ([]byte, error) {
	h := trimHexPrefix(s)
	if len(h) != 40 {
		return nil, fmt.Errorf("%w: got %d hex characters, want 40", ErrInvalidAddressLength, len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("invalid address hex: %w", err)
	}
	return b, nil
}

// ParseSalt decodes a hex salt of up to 32 bytes and left-zero-pads it to
// full width, so short and odd-length inputs keep their numeric value.
func ParseSalt(s string) ([32]byte, error) {
	var salt [32]byte
	h := trimHexPrefix(s)
	if len(h) == 0 {
		return salt, fmt.Errorf("%w: empty input", ErrInvalidSaltLength)
	}
	if len(h) > 64 {
		return salt, fmt.Errorf("%w: got %d hex characters, want at most 64", ErrInvalidSaltLength, len(h))
	}
	if len(h)%2 != 0 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return salt, fmt.Errorf("invalid salt hex: %w", err)
	}
	copy(salt[:], common.LeftPadBytes(b, 32))
	return salt, nil
}

func trimHexPrefix(s string) string {
	h := strings.TrimSpace(s)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		return h[2:]
	}
	return h
}
