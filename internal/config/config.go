// Package config holds the run configuration bound to the CLI flags and its
// validation.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrNoConstraint = errors.New("must specify --salt, --prefix or --suffix")
	ErrNoInitCode   = errors.New("must specify either --init-code or --init-code-file")
)

// Config is the full description of one run. String fields stay exactly as
// the user typed them; parsing and deeper validation happen when the miner
// is constructed, so every error can name the offending input.
type Config struct {
	Factory      string
	InitCode     string
	InitCodeFile string

	Salt     string
	Prefix   string
	Suffix   string
	Checksum bool

	Attempts uint64
	Workers  int
	Seed     uint64
	HasSeed  bool

	Output      string
	LogFile     string
	LogJSON     bool
	LogInterval int
	Verbose     bool
}

// NewConfig returns a configuration with the defaults the flags advertise.
func NewConfig() *Config {
	return &Config{
		LogInterval: 5,
	}
}

// Validate checks the parts of the configuration that must be caught before
// any work is scheduled.
func (c *Config) Validate() error {
	if c.Salt == "" && c.Prefix == "" && c.Suffix == "" {
		return ErrNoConstraint
	}
	if c.InitCode == "" && c.InitCodeFile == "" {
		return ErrNoInitCode
	}
	return nil
}

// Deterministic reports whether the run derives a single supplied salt
// instead of searching.
func (c *Config) Deterministic() bool {
	return c.Salt != ""
}

// Describe returns a human-readable summary of what the run looks for.
func (c *Config) Describe() string {
	if c.Salt != "" {
		return "derive salt " + c.Salt
	}
	var parts []string
	if c.Prefix != "" {
		parts = append(parts, "prefix "+c.Prefix)
	}
	if c.Suffix != "" {
		parts = append(parts, "suffix "+c.Suffix)
	}
	desc := strings.Join(parts, " and ")
	if c.Checksum {
		desc += " (checksum cased)"
	}
	return desc
}

// InitCodeBytes returns the creation bytecode, from the file when one is
// given, otherwise from the inline hex.
func (c *Config) InitCodeBytes() ([]byte, error) {
	if c.InitCodeFile != "" {
		content, err := os.ReadFile(c.InitCodeFile)
		if err != nil {
			return nil, fmt.Errorf("reading init code file: %w", err)
		}
		return decodeInitCode(string(content))
	}
	if c.InitCode != "" {
		return decodeInitCode(c.InitCode)
	}
	return nil, ErrNoInitCode
}

// decodeInitCode cleans up pasted bytecode: surrounding whitespace and the
// 0x prefix go, an odd trailing nibble is right-padded the way solc output
// sometimes arrives truncated.
func decodeInitCode(code string) ([]byte, error) {
	code = strings.TrimSpace(code)
	if len(code) >= 2 && (code[:2] == "0x" || code[:2] == "0X") {
		code = code[2:]
	}
	if len(code)%2 != 0 {
		code = code + "0"
	}
	b, err := hex.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("invalid init code hex: %w", err)
	}
	return b, nil
}
