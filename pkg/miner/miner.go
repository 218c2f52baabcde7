// Package miner coordinates a CREATE2 vanity search: it validates the run
// configuration once, fans out workers over a shared attempt budget, and
// publishes the first match.
package miner

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/evmforge/create2-miner/internal/config"
	"github.com/evmforge/create2-miner/internal/crypto"
	"github.com/evmforge/create2-miner/internal/logger"
	"github.com/evmforge/create2-miner/pkg/match"
	"github.com/evmforge/create2-miner/pkg/types"
	"github.com/evmforge/create2-miner/pkg/worker"
)

// Miner owns one search run. Construct with NewMiner, run with Run, and
// interrupt with Stop; a Miner is single-use.
type Miner struct {
	cfg      *config.Config
	log      *logger.Logger
	deriver  *crypto.Deriver
	matcher  *match.Matcher
	factory  common.Address
	initHash common.Hash
	salt     [32]byte
	baseSeed uint64
	budget   *worker.Budget
	start    time.Time

	stop   atomic.Bool
	mu     sync.Mutex
	winner *worker.Found
	wg     sync.WaitGroup
}

// NewMiner validates the whole configuration and precomputes everything the
// workers share. All invalid-input errors surface here; after a successful
// return the run itself cannot fail, only miss.
func NewMiner(cfg *config.Config, log *logger.Logger) (*Miner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	factoryBytes, err := crypto.AddressBytes(cfg.Factory)
	if err != nil {
		return nil, err
	}

	initCode, err := cfg.InitCodeBytes()
	if err != nil {
		return nil, err
	}
	initHash := crypto.InitCodeHash(initCode)

	deriver, err := crypto.NewDeriver(factoryBytes, initHash.Bytes())
	if err != nil {
		return nil, err
	}

	m := &Miner{
		cfg:      cfg,
		log:      log,
		deriver:  deriver,
		factory:  common.BytesToAddress(factoryBytes),
		initHash: initHash,
		budget:   worker.NewBudget(cfg.Attempts),
		start:    time.Now(),
	}

	spec := match.Spec{Prefix: cfg.Prefix, Suffix: cfg.Suffix, Checksum: cfg.Checksum}
	if cfg.Deterministic() {
		if cfg.Prefix != "" || cfg.Suffix != "" {
			log.Warn("salt supplied, prefix/suffix constraints ignored; drop --salt to search")
		}
		spec = match.Spec{}
		if m.salt, err = crypto.ParseSalt(cfg.Salt); err != nil {
			return nil, err
		}
	}

	if m.matcher, err = match.Compile(spec); err != nil {
		return nil, err
	}
	if !cfg.Deterministic() && !m.matcher.Constrained() {
		return nil, config.ErrNoConstraint
	}

	if cfg.HasSeed {
		m.baseSeed = cfg.Seed
		log.WithField("seed", m.baseSeed).Debug("using supplied seed")
	} else {
		if m.baseSeed, err = worker.RandomSeed(); err != nil {
			return nil, err
		}
		log.WithField("seed", m.baseSeed).Debug("using randomized seed")
	}

	return m, nil
}

// Run executes the configured search and blocks until it resolves. With a
// salt supplied it is a single derivation; otherwise it brute-forces until
// a match, budget exhaustion, or Stop.
func (m *Miner) Run() types.Result {
	if m.cfg.Deterministic() {
		return m.Predict()
	}
	return m.Mine()
}

// Predict derives the address for the configured salt. Exactly one
// derivation, counted as one attempt.
func (m *Miner) Predict() types.Result {
	start := time.Now()
	addr := m.deriver.DeriveAddress(m.salt)
	return types.Result{
		Found:    true,
		Salt:     m.salt,
		Address:  addr,
		Attempts: 1,
		Elapsed:  time.Since(start),
	}
}

// Mine runs the parallel search. The first worker to find a match wins;
// everyone else is stopped within one candidate. When the budget runs out
// with no match the result carries Found=false and exactly the capped
// attempt count.
func (m *Miner) Mine() types.Result {
	m.log.WithFields(logrus.Fields{
		"workers":    m.cfg.Workers,
		"constraint": m.matcher.Describe(),
	}).Info("mining started")

	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.runWorker(i)
	}

	var logDone chan struct{}
	if m.cfg.LogInterval > 0 {
		logDone = make(chan struct{})
		go m.progressLoop(logDone)
	}

	m.wg.Wait()
	if logDone != nil {
		close(logDone)
	}

	elapsed := time.Since(m.start)
	attempts := m.budget.Consumed()

	m.mu.Lock()
	winner := m.winner
	m.mu.Unlock()

	if winner == nil {
		return types.Result{Attempts: attempts, Elapsed: elapsed}
	}
	return types.Result{
		Found:    true,
		Salt:     winner.Salt,
		Address:  common.Address(winner.Address),
		Attempts: attempts,
		Elapsed:  elapsed,
	}
}

// runWorker drives one worker goroutine and publishes its match, if any.
// The mutex only guards the publish; the candidate loop itself runs on
// atomics alone.
func (m *Miner) runWorker(id int) {
	defer m.wg.Done()

	w := worker.New(m.deriver.Clone(), m.matcher, worker.NewSaltStream(m.baseSeed, id))
	found, ok := w.Search(m.budget, &m.stop)
	if !ok {
		return
	}

	m.mu.Lock()
	if m.winner == nil {
		m.winner = &found
		m.stop.Store(true)
	}
	m.mu.Unlock()
}

// Stop interrupts a running search. The pending result resolves with
// whatever has been found so far; calling Stop twice is harmless.
func (m *Miner) Stop() {
	m.stop.Store(true)
}

// Stats snapshots progress while Mine is running.
func (m *Miner) Stats() types.Stats {
	attempts := m.budget.Consumed()
	elapsed := time.Since(m.start)
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(attempts) / elapsed.Seconds()
	}
	return types.Stats{Attempts: attempts, Rate: rate, Elapsed: elapsed}
}

// Difficulty estimates the expected number of candidates per match.
func (m *Miner) Difficulty() *uint256.Int {
	return m.matcher.Difficulty()
}

// Factory returns the factory address of this run.
func (m *Miner) Factory() common.Address {
	return m.factory
}

// InitCodeHash returns the init code hash of this run.
func (m *Miner) InitCodeHash() common.Hash {
	return m.initHash
}

// Seed returns the base seed, supplied or randomized, for reproducing the
// run.
func (m *Miner) Seed() uint64 {
	return m.baseSeed
}

// progressLoop reports attempt counts at the configured interval until the
// run ends. It only reads atomics, so it never slows the workers down.
func (m *Miner) progressLoop(done chan struct{}) {
	ticker := time.NewTicker(time.Duration(m.cfg.LogInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := m.Stats()
			m.log.WithFields(logrus.Fields{
				"attempts": stats.Attempts,
				"rate":     uint64(stats.Rate),
				"elapsed":  stats.Elapsed.Round(time.Second).String(),
			}).Info("mining progress")
		case <-done:
			return
		}
	}
}
