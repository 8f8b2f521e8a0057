package core

// miner.go — proof-of-work nonce search (spec.md §4.10). The loop shape
// is the teacher's SealMainBlockPOW in core/consensus.go: increment a
// nonce, hash, compare against the difficulty predicate, repeat; the
// cancellation-every-N-hashes discipline is new here since the teacher's
// miner ran uninterruptibly.

import (
	"context"
	"time"
)

// MineResult reports the outcome of a completed mining attempt.
type MineResult struct {
	Block    Block
	Attempts uint64
	Elapsed  time.Duration
}

// mineBlock searches for a nonce satisfying difficulty over the given
// header fields and entries, checking ctx for cancellation every
// checkInterval attempts (spec.md §4.10: "mining must remain responsive
// to cancellation").
func mineBlock(ctx context.Context, index uint64, previousHash string, entries []Entry, difficulty int, now time.Time, checkInterval uint64) (MineResult, error) {
	start := time.Now()
	b := Block{
		Index:        index,
		Timestamp:    now,
		PreviousHash: previousHash,
		Difficulty:   difficulty,
		Entries:      entries,
	}

	if checkInterval == 0 {
		checkInterval = 1
	}

	var nonce uint64
	var attempts uint64
	for {
		if attempts%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return MineResult{}, ErrMineCancelled
			default:
			}
		}
		b.Nonce = nonce
		hash, err := b.ComputeHash()
		if err != nil {
			return MineResult{}, err
		}
		attempts++
		if SatisfiesDifficulty(hash, difficulty) {
			b.Hash = hash
			return MineResult{Block: b, Attempts: attempts, Elapsed: time.Since(start)}, nil
		}
		nonce++
	}
}
