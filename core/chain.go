package core

// chain.go — the ChainState facade (spec.md §4, §5): the single entry
// point the rest of the system uses to submit entries, mine blocks, and
// read back the ledger. Concurrency follows spec.md §5's single-writer,
// many-readers discipline: writeMu serializes Submit and Mine against each
// other, while blocksMu is a RWMutex so concurrent readers (ReadChain,
// ReadNarrative, FindEntriesByAuthor) never block on each other or on a
// reader holding writeMu only long enough to append a block.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ChainState owns every piece of ledger state and is the only type the
// rest of the program talks to.
type ChainState struct {
	cfg Config
	log *logrus.Logger

	writeMu sync.Mutex // serializes Submit and Mine

	blocksMu sync.RWMutex
	blocks   []Block

	pendingMu sync.Mutex
	pending   []Entry

	assets       *AssetRegistry
	derivatives  *DerivativeRegistry
	fingerprints *FingerprintCache
	rateLimiter  RateLimiter
	classifier   *IntentClassifier
	validator    *Validator
	storage      StorageBackend
	metrics      *Metrics
}

// NewChainState constructs a ChainState, loading prior state from storage
// if present and otherwise sealing a fresh genesis block (spec.md §3, §8
// scenario 1).
func NewChainState(ctx context.Context, cfg Config, storage StorageBackend, validator *Validator, rateLimiter RateLimiter, metrics *Metrics, log *logrus.Logger) (*ChainState, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if rateLimiter == nil {
		rateLimiter = NewSlidingWindowLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	cs := &ChainState{
		cfg:          cfg,
		log:          log,
		assets:       NewAssetRegistry(),
		derivatives:  NewDerivativeRegistry(),
		fingerprints: NewFingerprintCache(cfg.FingerprintTTL),
		rateLimiter:  rateLimiter,
		validator:    validator,
		storage:      storage,
		metrics:      metrics,
	}
	cs.classifier = NewIntentClassifier(cfg.TransferKeywords, validator)

	snap, ok, err := storage.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := cs.restore(snap); err != nil {
			return nil, err
		}
		cs.log.WithFields(logrus.Fields{"blocks": len(cs.blocks)}).Info("restored ledger from snapshot")
		return cs, nil
	}

	genesis, err := NewGenesisBlock(cfg.GenesisText, cfg.Difficulty, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	cs.blocks = []Block{*genesis}
	if err := cs.sealGenesisRegistries(genesis); err != nil {
		return nil, err
	}
	if err := cs.persist(ctx); err != nil {
		return nil, err
	}
	cs.log.Info("sealed fresh genesis block")
	return cs, nil
}

func (cs *ChainState) sealGenesisRegistries(genesis *Block) error {
	loc := Location{BlockIndex: 0, EntryIndex: 0}
	return cs.derivatives.AddEdges(loc, nil)
}

func (cs *ChainState) restore(snap Snapshot) error {
	cs.blocks = snap.Blocks
	cs.assets.Restore(snap.Assets)
	if err := cs.derivatives.Restore(snap.Derivatives, ParseLocation); err != nil {
		return err
	}
	cs.fingerprints.Restore(snap.Fingerprints)
	return nil
}

func (cs *ChainState) snapshotLocked() Snapshot {
	return Snapshot{
		Version:      SnapshotVersion,
		Blocks:       append([]Block{}, cs.blocks...),
		Assets:       cs.assets.Snapshot(),
		Derivatives:  cs.derivatives.Snapshot(),
		Fingerprints: cs.fingerprints.Snapshot(),
		SavedAt:      time.Now().UTC(),
	}
}

func (cs *ChainState) persist(ctx context.Context) error {
	snap := cs.snapshotLocked()
	if err := cs.storage.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	return nil
}

// Submit runs candidate through the admission pipeline (spec.md §4.9) and,
// on success, places it in the pending pool awaiting mining.
func (cs *ChainState) Submit(ctx context.Context, candidate Entry) error {
	now := time.Now().UTC()
	ac := &admissionContext{
		cfg:          cs.cfg,
		rateLimiter:  cs.rateLimiter,
		fingerprints: cs.fingerprints,
		derivatives:  cs.derivatives,
		assets:       cs.assets,
		classifier:   cs.classifier,
		validator:    cs.validator,
		metrics:      cs.metrics,
	}

	admissionCtx, cancel := context.WithTimeout(ctx, cs.cfg.AdmissionTimeout)
	defer cancel()

	cs.writeMu.Lock()
	gr, err := runFastGates(admissionCtx, ac, &candidate, now, cs.LatestBlock().Timestamp)
	if err != nil {
		cs.writeMu.Unlock()
		cs.metrics.recordRejection(rejectionKindOf(err))
		return err
	}
	cs.writeMu.Unlock() // release for the slow LLM-backed gate (spec.md §5)

	resp, verr := runValidationGate(admissionCtx, ac, &candidate)

	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()

	if verr != nil {
		if gr.isTransfer {
			_ = cs.assets.AbortTransfer(gr.assetID)
		}
		cs.metrics.recordRejection(rejectionKindOf(verr))
		return verr
	}

	if err := recheckFastGates(ac, &candidate, gr, time.Now().UTC(), cs.LatestBlock().Timestamp); err != nil {
		if gr.isTransfer {
			_ = cs.assets.AbortTransfer(gr.assetID)
		}
		cs.metrics.recordRejection(rejectionKindOf(err))
		return err
	}

	candidate.ValidationStatus = resp.Status
	candidate.ValidationParaphrases = resp.Paraphrases

	cs.pendingMu.Lock()
	if len(cs.pending) >= cs.cfg.MaxPending {
		cs.pendingMu.Unlock()
		if gr.isTransfer {
			_ = cs.assets.AbortTransfer(gr.assetID)
		}
		err := reject(RejectPendingPoolFull, "pending pool is full")
		cs.metrics.recordRejection(rejectionKindOf(err))
		return err
	}
	cs.pending = append(cs.pending, candidate)
	cs.pendingMu.Unlock()

	cs.fingerprints.Remember(gr.fingerprint, now)
	if cs.metrics != nil {
		cs.metrics.Submissions.Inc()
	}
	return nil
}

// Mine seals up to cfg.MaxBlockEntries pending entries into a new block
// (spec.md §4.10). It returns ErrNothingToMine if the pending pool is
// empty.
func (cs *ChainState) Mine(ctx context.Context) (Block, error) {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()

	cs.pendingMu.Lock()
	if len(cs.pending) == 0 {
		cs.pendingMu.Unlock()
		return Block{}, ErrNothingToMine
	}
	n := len(cs.pending)
	if n > cs.cfg.MaxBlockEntries {
		n = cs.cfg.MaxBlockEntries
	}
	batch := append([]Entry{}, cs.pending[:n]...)
	cs.pendingMu.Unlock()

	if assetID, ok := firstDuplicateAssetTransfer(batch); ok {
		return Block{}, fmt.Errorf("%w: batch contains two entries transferring asset %q", ErrPersistFailed, assetID)
	}

	cs.blocksMu.RLock()
	prev := cs.blocks[len(cs.blocks)-1]
	nextIndex := prev.Index + 1
	prevHash := prev.Hash
	cs.blocksMu.RUnlock()

	mineCtx, cancel := context.WithTimeout(ctx, cs.cfg.MineTimeout)
	defer cancel()

	result, err := mineBlock(mineCtx, nextIndex, prevHash, batch, cs.cfg.Difficulty, time.Now().UTC(), cs.cfg.MineCancelCheckInterval)
	if err != nil {
		return Block{}, err
	}

	cs.blocksMu.Lock()
	cs.blocks = append(cs.blocks, result.Block)
	snap := cs.snapshotLocked()
	cs.blocksMu.Unlock()

	if err := cs.storage.SaveSnapshot(ctx, snap); err != nil {
		cs.blocksMu.Lock()
		cs.blocks = cs.blocks[:len(cs.blocks)-1] // roll back: block discarded, caller may retry (spec.md §7)
		cs.blocksMu.Unlock()
		return Block{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	for i, e := range batch {
		loc := Location{BlockIndex: nextIndex, EntryIndex: uint64(i)}
		if err := cs.derivatives.AddEdges(loc, e.ParentRefs); err != nil {
			cs.log.WithError(err).Warn("failed to record derivative edges for sealed entry")
		}
		if assetID, ok := e.AssetID(); ok {
			if _, pending := cs.assets.PendingTransferOf(assetID); pending {
				if err := cs.assets.CommitTransfer(assetID); err != nil {
					cs.log.WithError(err).Warn("failed to commit asset transfer for sealed entry")
				}
			}
		}
	}

	cs.pendingMu.Lock()
	cs.pending = cs.pending[n:]
	cs.pendingMu.Unlock()

	if cs.metrics != nil {
		cs.metrics.BlocksMined.Inc()
		cs.metrics.MineDuration.Observe(result.Elapsed.Seconds())
		cs.metrics.MineAttempts.Observe(float64(result.Attempts))
	}
	cs.log.WithFields(logrus.Fields{
		"index":    result.Block.Index,
		"entries":  len(result.Block.Entries),
		"attempts": result.Attempts,
		"elapsed":  result.Elapsed,
	}).Info("mined block")

	return result.Block, nil
}

// LatestBlock returns the most recently sealed block.
func (cs *ChainState) LatestBlock() Block {
	cs.blocksMu.RLock()
	defer cs.blocksMu.RUnlock()
	return cs.blocks[len(cs.blocks)-1]
}

// ReadChain returns every sealed block in order.
func (cs *ChainState) ReadChain() []Block {
	cs.blocksMu.RLock()
	defer cs.blocksMu.RUnlock()
	return append([]Block{}, cs.blocks...)
}

// ReadNarrative renders the sealed chain as prose (spec.md §4.11).
func (cs *ChainState) ReadNarrative() string {
	return ReadNarrative(cs.ReadChain())
}

// ValidateIntegrity rehashes and re-links every sealed block, returning a
// *CorruptAt on the first failure (spec.md §4.11, §8 scenario 6).
func (cs *ChainState) ValidateIntegrity() error {
	blocks := cs.ReadChain()
	for i, b := range blocks {
		if err := b.Verify(); err != nil {
			return &CorruptAt{Index: b.Index, Reason: err.Error()}
		}
		if i == 0 {
			if b.PreviousHash != "0" {
				return &CorruptAt{Index: b.Index, Reason: "genesis previous_hash must be \"0\""}
			}
			continue
		}
		if b.PreviousHash != blocks[i-1].Hash {
			return &CorruptAt{Index: b.Index, Reason: "previous_hash does not match prior block's hash"}
		}
		if b.Index != blocks[i-1].Index+1 {
			return &CorruptAt{Index: b.Index, Reason: "block index is not sequential"}
		}
	}
	return nil
}

// FindEntriesByAuthor returns the location and entry of every sealed entry
// written by author, in chain order.
func (cs *ChainState) FindEntriesByAuthor(author string) []struct {
	Location Location
	Entry    Entry
} {
	blocks := cs.ReadChain()
	var out []struct {
		Location Location
		Entry    Entry
	}
	for _, b := range blocks {
		for i, e := range b.Entries {
			if e.Author == author {
				out = append(out, struct {
					Location Location
					Entry    Entry
				}{Location: Location{BlockIndex: b.Index, EntryIndex: uint64(i)}, Entry: e})
			}
		}
	}
	return out
}

// Status reports ledger and dependency health for operational monitoring
// (a supplemented feature, modeled on the teacher's ConsensusStatus in
// core/consensus_difficulty.go).
type Status struct {
	Height            uint64
	PendingCount      int
	Difficulty        int
	ValidatorDegraded bool
}

// Status returns a point-in-time snapshot of ledger health.
func (cs *ChainState) Status() Status {
	cs.blocksMu.RLock()
	height := cs.blocks[len(cs.blocks)-1].Index
	cs.blocksMu.RUnlock()

	cs.pendingMu.Lock()
	pendingCount := len(cs.pending)
	cs.pendingMu.Unlock()

	degraded := false
	if cs.validator != nil {
		degraded = cs.validator.Degraded()
	}

	return Status{
		Height:            height,
		PendingCount:      pendingCount,
		Difficulty:        cs.cfg.Difficulty,
		ValidatorDegraded: degraded,
	}
}

// Close releases the storage backend and stops the fingerprint cache's
// reaper goroutine.
func (cs *ChainState) Close() error {
	cs.fingerprints.Close()
	return cs.storage.Close()
}

// firstDuplicateAssetTransfer re-checks, as defense in depth, that no two
// entries in a single mined batch transfer the same asset (spec.md §4.10).
// Admission gate 8 already forbids this at submit time, so finding one
// here indicates pending-pool state diverged from the admission
// invariant; the miner treats it as a persist failure rather than
// silently sealing a conflicting batch.
func firstDuplicateAssetTransfer(batch []Entry) (string, bool) {
	seen := make(map[string]struct{}, len(batch))
	for _, e := range batch {
		assetID, hasAsset := e.AssetID()
		_, hasDest := e.AssetDestination()
		if !hasAsset || !hasDest {
			continue
		}
		if _, dup := seen[assetID]; dup {
			return assetID, true
		}
		seen[assetID] = struct{}{}
	}
	return "", false
}

func rejectionKindOf(err error) RejectionKind {
	if r, ok := AsRejection(err); ok {
		return r.Kind
	}
	return RejectionKind("Unknown")
}
