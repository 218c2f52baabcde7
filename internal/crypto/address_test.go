package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Runtime bytecode fragment of a minimal proxy, handy as init code in tests.
const testInitCodeHex = "608060405234801561001057600080fd5b50600436106100365760003560e01c8063"

func testInitCode(t *testing.T) []byte {
	t.Helper()
	code, err := hex.DecodeString(testInitCodeHex)
	require.NoError(t, err)
	return code
}

func TestKeccak256(t *testing.T) {
	// Known digest of the empty input.
	require.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(Keccak256(nil)))

	// Variadic concatenation behaves like hashing the joined input.
	a, b := []byte("create2"), []byte("miner")
	require.Equal(t, Keccak256(append(a, b...)), Keccak256(a, b))

	for i := 0; i < 16; i++ {
		buf := make([]byte, 1+i*17)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		require.Equal(t, ethcrypto.Keccak256(buf), Keccak256(buf))
	}
}

func TestInitCodeHash(t *testing.T) {
	code := testInitCode(t)
	require.Equal(t, ethcrypto.Keccak256Hash(code), InitCodeHash(code))
	require.Equal(t, ethcrypto.Keccak256Hash(nil), InitCodeHash(nil))
}

func TestNewDeriverValidation(t *testing.T) {
	hash := Keccak256([]byte{0x00})
	factory := make([]byte, 20)

	tests := []struct {
		name    string
		factory []byte
		hash    []byte
		wantErr error
	}{
		{"valid", factory, hash, nil},
		{"factory too short", factory[:19], hash, ErrInvalidAddressLength},
		{"factory too long", append(factory, factory...), hash, ErrInvalidAddressLength},
		{"nil factory", nil, hash, ErrInvalidAddressLength},
		{"hash too short", factory, hash[:31], ErrInvalidHashLength},
		{"hash too long", factory, append(hash, 0x00), ErrInvalidHashLength},
		{"nil hash", factory, nil, ErrInvalidHashLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDeriver(tt.factory, tt.hash)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, d)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, d)
		})
	}
}

func TestDeriveMatchesCreateAddress2(t *testing.T) {
	for i := 0; i < 64; i++ {
		var factory [20]byte
		var salt [32]byte
		code := make([]byte, 1+i*3)
		_, err := rand.Read(factory[:])
		require.NoError(t, err)
		_, err = rand.Read(salt[:])
		require.NoError(t, err)
		_, err = rand.Read(code)
		require.NoError(t, err)

		hash := InitCodeHash(code)
		d, err := NewDeriver(factory[:], hash.Bytes())
		require.NoError(t, err)

		want := ethcrypto.CreateAddress2(common.Address(factory), salt, hash.Bytes())

		var addr [20]byte
		d.Derive(&salt, &addr)
		require.Equal(t, want, common.Address(addr))
		require.Equal(t, want, d.DeriveAddress(salt))
	}
}

func TestDeriveIsRepeatable(t *testing.T) {
	factory, err := AddressBytes(DefaultFactory)
	require.NoError(t, err)
	hash := InitCodeHash(testInitCode(t))
	d, err := NewDeriver(factory, hash.Bytes())
	require.NoError(t, err)

	salt, err := ParseSalt("0xc261bc78b72af4a03d00448cc9230d0a861eef6a85ab9a0ef33e0432b868a52")
	require.NoError(t, err)

	first := d.DeriveAddress(salt)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, d.DeriveAddress(salt))
	}

	// Clones share parameters but not hasher state.
	clone := d.Clone()
	require.Equal(t, first, clone.DeriveAddress(salt))
	require.Equal(t, ethcrypto.CreateAddress2(common.BytesToAddress(factory), salt, hash.Bytes()), first)
}

func TestChecksumAddress(t *testing.T) {
	// EIP-55 reference vectors.
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
		"0x52908400098527886E0F7030069857D2E4169EE7",
		"0x8617E340B3D01FA5F11F306F4090FD50E238070D",
		"0xde709f2102306220921060314715629080e9fb98",
		"0x27b1fdb04752bbc536007a920d24acb045561c26",
	}

	for _, v := range vectors {
		t.Run(v, func(t *testing.T) {
			raw, err := AddressBytes(v)
			require.NoError(t, err)
			require.Equal(t, v, ChecksumAddress(raw))
			require.Equal(t, common.HexToAddress(v).Hex(), ChecksumAddress(raw))
		})
	}

	require.Panics(t, func() { ChecksumAddress(make([]byte, 19)) })
	require.Panics(t, func() { ChecksumAddress(nil) })
}

func TestChecksumHexInto(t *testing.T) {
	state := NewKeccakState()
	for i := 0; i < 32; i++ {
		var addr [20]byte
		_, err := rand.Read(addr[:])
		require.NoError(t, err)

		var buf [40]byte
		hex.Encode(buf[:], addr[:])
		ChecksumHexInto(state, buf[:])

		require.Equal(t, ChecksumAddress(addr[:]), "0x"+string(buf[:]))
		require.Equal(t, common.Address(addr).Hex(), "0x"+string(buf[:]))
		// Casing never changes the underlying digits.
		require.Equal(t, hex.EncodeToString(addr[:]), strings.ToLower(string(buf[:])))
	}
}

func TestAddressBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"with 0x", "0x3528225F82292570B366eB4da9727c3E1c9DfBdb", "3528225f82292570b366eb4da9727c3e1c9dfbdb", nil},
		{"without 0x", "3528225F82292570B366eB4da9727c3E1c9DfBdb", "3528225f82292570b366eb4da9727c3e1c9dfbdb", nil},
		{"uppercase 0X", "0X3528225F82292570B366eB4da9727c3E1c9DfBdb", "3528225f82292570b366eb4da9727c3e1c9dfbdb", nil},
		{"surrounding space", "  0x3528225F82292570B366eB4da9727c3E1c9DfBdb\n", "3528225f82292570b366eb4da9727c3e1c9dfbdb", nil},
		{"too short", "0x1234", "", ErrInvalidAddressLength},
		{"too long", "0x3528225F82292570B366eB4da9727c3E1c9DfBdb00", "", ErrInvalidAddressLength},
		{"empty", "", "", ErrInvalidAddressLength},
		{"bad hex", "0xzz28225F82292570B366eB4da9727c3E1c9DfBdb", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := AddressBytes(tt.input)
			if tt.want == "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, hex.EncodeToString(b))
		})
	}
}

func TestParseSalt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string // full 64-char hex of the parsed salt
		wantErr error
	}{
		{
			name:  "full width",
			input: "0x00000000000000000000000000000000000000000000000000000000000000ff",
			want:  "00000000000000000000000000000000000000000000000000000000000000ff",
		},
		{
			name:  "odd length keeps value",
			input: "0xc261bc78b72af4a03d00448cc9230d0a861eef6a85ab9a0ef33e0432b868a52",
			want:  "0c261bc78b72af4a03d00448cc9230d0a861eef6a85ab9a0ef33e0432b868a52",
		},
		{
			name:  "short input left padded",
			input: "0xff",
			want:  "00000000000000000000000000000000000000000000000000000000000000ff",
		},
		{
			name:  "no prefix",
			input: "deadbeef",
			want:  "00000000000000000000000000000000000000000000000000000000deadbeef",
		},
		{
			name:  "uppercase hex",
			input: "0xDEADBEEF",
			want:  "00000000000000000000000000000000000000000000000000000000deadbeef",
		},
		{name: "empty", input: "", wantErr: ErrInvalidSaltLength},
		{name: "prefix only", input: "0x", wantErr: ErrInvalidSaltLength},
		{
			name:    "too long",
			input:   "0x0000000000000000000000000000000000000000000000000000000000000000ff",
			wantErr: ErrInvalidSaltLength,
		},
		{name: "bad hex", input: "0xnope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			salt, err := ParseSalt(tt.input)
			if tt.want == "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, hex.EncodeToString(salt[:]))
		})
	}
}
