package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/evmforge/create2-miner/internal/config"
	"github.com/evmforge/create2-miner/internal/crypto"
	"github.com/evmforge/create2-miner/internal/logger"
	minerpkg "github.com/evmforge/create2-miner/pkg/miner"
	"github.com/evmforge/create2-miner/pkg/types"
)

var (
	cfg = config.NewConfig()
	log *logger.Logger
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "create2-miner",
		Short: "CREATE2 vanity address miner",
		Long: `Searches CREATE2 salts until the derived contract address matches the
requested hex prefix and/or suffix, or derives the address for one given
salt. Runs are reproducible: the same factory, init code, pattern, seed and
worker count always visit the same candidates.`,
		Run: runMiner,
	}

	rootCmd.Flags().StringVarP(&cfg.Factory, "factory", "f", crypto.DefaultFactory, "Factory contract address performing the CREATE2 deployment")
	rootCmd.Flags().StringVarP(&cfg.InitCode, "init-code", "B", "", "Contract creation bytecode (hex)")
	rootCmd.Flags().StringVarP(&cfg.InitCodeFile, "init-code-file", "F", "", "File containing contract creation bytecode (hex)")
	rootCmd.Flags().StringVar(&cfg.Salt, "salt", "", "Derive the address for this salt instead of searching (hex, up to 32 bytes)")
	rootCmd.Flags().StringVarP(&cfg.Prefix, "prefix", "p", "", "Hex prefix the address must start with")
	rootCmd.Flags().StringVarP(&cfg.Suffix, "suffix", "s", "", "Hex suffix the address must end with")
	rootCmd.Flags().BoolVarP(&cfg.Checksum, "checksum", "c", false, "Match letter casing against the EIP-55 checksum form")
	rootCmd.Flags().Uint64VarP(&cfg.Attempts, "attempts", "a", 0, "Give up after this many candidates, 0 for unbounded")
	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", 0, "Number of worker goroutines (default: all CPUs)")
	rootCmd.Flags().Uint64Var(&cfg.Seed, "seed", 0, "Base seed for the salt streams, for reproducible runs")
	rootCmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "Append the result as JSON to this file")
	rootCmd.Flags().StringVarP(&cfg.LogFile, "log-file", "l", "", "Log to this rotated file instead of stderr")
	rootCmd.Flags().BoolVar(&cfg.LogJSON, "log-json", false, "Log as JSON lines")
	rootCmd.Flags().IntVarP(&cfg.LogInterval, "log-interval", "i", 5, "Seconds between progress reports, 0 to disable")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runMiner(cmd *cobra.Command, args []string) {
	cfg.HasSeed = cmd.Flags().Changed("seed")
	log = logger.New(logger.Options{File: cfg.LogFile, JSON: cfg.LogJSON, Verbose: cfg.Verbose})

	miner, err := minerpkg.NewMiner(cfg, log)
	if err != nil {
		log.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	log.WithFields(logrus.Fields{
		"factory":      miner.Factory().Hex(),
		"initCodeHash": miner.InitCodeHash().Hex(),
		"target":       cfg.Describe(),
	}).Info("starting")
	if !cfg.Deterministic() {
		budget := "unbounded"
		if cfg.Attempts > 0 {
			budget = fmt.Sprintf("%d", cfg.Attempts)
		}
		seedSource := "randomized"
		if cfg.HasSeed {
			seedSource = "flag"
		}
		log.WithFields(logrus.Fields{
			"workers":    cfg.Workers,
			"budget":     budget,
			"seed":       miner.Seed(),
			"seedSource": seedSource,
			"difficulty": "1 in " + miner.Difficulty().Dec(),
		}).Info("search parameters")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	resultChan := make(chan types.Result, 1)
	go func() {
		resultChan <- miner.Run()
	}()

	var result types.Result
	select {
	case result = <-resultChan:
	case <-sigChan:
		log.Info("interrupt received, stopping workers")
		miner.Stop()
		result = <-resultChan
	}

	report(result)

	if cfg.Output != "" {
		if err := appendResult(cfg.Output, buildRecord(miner, result)); err != nil {
			log.Errorf("writing result file: %v", err)
			os.Exit(1)
		}
		log.WithField("path", cfg.Output).Info("result written")
	}
}

func report(result types.Result) {
	if result.Found {
		log.WithFields(logrus.Fields{
			"salt":     result.SaltHex(),
			"address":  result.ChecksumAddress(),
			"attempts": result.Attempts,
			"elapsed":  result.Elapsed.Round(time.Millisecond).String(),
			"rate":     uint64(result.Rate()),
		}).Info("match found")
		return
	}
	log.WithFields(logrus.Fields{
		"attempts": result.Attempts,
		"elapsed":  result.Elapsed.Round(time.Millisecond).String(),
	}).Warn("no match; raise --attempts, relax the pattern, or try another seed")
}

// resultRecord is the JSON shape appended to the output file. It carries
// the full run parameters so a hit can be verified and reproduced later.
type resultRecord struct {
	Found        bool   `json:"found"`
	Salt         string `json:"salt,omitempty"`
	Address      string `json:"address,omitempty"`
	Factory      string `json:"factory"`
	InitCodeHash string `json:"initCodeHash"`
	Prefix       string `json:"prefix,omitempty"`
	Suffix       string `json:"suffix,omitempty"`
	Checksum     bool   `json:"checksum"`
	Attempts     uint64 `json:"attempts"`
	AttemptsCap  uint64 `json:"attemptsCap,omitempty"`
	Seed         uint64 `json:"seed"`
	ElapsedMs    int64  `json:"elapsedMs"`
	CreatedAt    string `json:"createdAt"`
}

func buildRecord(miner *minerpkg.Miner, result types.Result) resultRecord {
	rec := resultRecord{
		Found:        result.Found,
		Factory:      miner.Factory().Hex(),
		InitCodeHash: miner.InitCodeHash().Hex(),
		Prefix:       cfg.Prefix,
		Suffix:       cfg.Suffix,
		Checksum:     cfg.Checksum,
		Attempts:     result.Attempts,
		AttemptsCap:  cfg.Attempts,
		Seed:         miner.Seed(),
		ElapsedMs:    result.Elapsed.Milliseconds(),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if result.Found {
		rec.Salt = result.SaltHex()
		rec.Address = result.ChecksumAddress()
	}
	return rec
}

// appendResult keeps the output file a JSON array and appends the record,
// so repeated runs against the same file accumulate.
func appendResult(path string, rec resultRecord) error {
	var records []json.RawMessage
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("existing output is not a JSON array: %w", err)
		}
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}

	entry, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	records = append(records, entry)

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}
