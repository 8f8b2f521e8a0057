package core

// block.go — the Block data model and hash-chain invariants (spec.md §3).

import (
	"fmt"
	"time"
)

// Block is a hash-chained container of sealed entries (spec.md §3). Field
// layout matches the on-disk snapshot format of spec.md §6 directly.
type Block struct {
	Index        uint64    `json:"index"`
	Timestamp    time.Time `json:"timestamp"`
	PreviousHash string    `json:"previous_hash"`
	Nonce        uint64    `json:"nonce"`
	Difficulty   int       `json:"difficulty"`
	Hash         string    `json:"hash"`
	Entries      []Entry   `json:"entries"`
}

// canonicalMap builds the canonical representation hashed to produce the
// block's Hash field: (index, timestamp, entries, previous_hash, nonce,
// difficulty), per spec.md §3.
func (b *Block) canonicalMap() (map[string]interface{}, error) {
	entryMaps := make([]interface{}, len(b.Entries))
	for i := range b.Entries {
		m, err := b.Entries[i].canonicalMap(false)
		if err != nil {
			return nil, err
		}
		entryMaps[i] = m
	}
	return map[string]interface{}{
		"index":         int64(b.Index),
		"timestamp":     b.Timestamp.UTC().Format(time.RFC3339Nano),
		"entries":       entryMaps,
		"previous_hash": b.PreviousHash,
		"nonce":         int64(b.Nonce),
		"difficulty":    int64(b.Difficulty),
	}, nil
}

// ComputeHash recomputes the block hash from its header and body, without
// consulting the stored Hash field. Rehashing a stored block must reproduce
// the stored hash byte-for-byte (spec.md §4.1, §8).
func (b *Block) ComputeHash() (string, error) {
	m, err := b.canonicalMap()
	if err != nil {
		return "", err
	}
	buf, err := CanonicalJSON(m)
	if err != nil {
		return "", err
	}
	return sha256Hex(buf), nil
}

// SatisfiesDifficulty reports whether hash begins with difficulty leading
// hex zero digits (spec.md §3).
func SatisfiesDifficulty(hash string, difficulty int) bool {
	return leadingHexZeros(hash) >= difficulty
}

// Verify recomputes the block's hash and checks it against the stored
// value and the proof-of-work predicate. It does not check chain linkage
// against a neighbor; see ChainState.ValidateIntegrity for that.
func (b *Block) Verify() error {
	got, err := b.ComputeHash()
	if err != nil {
		return err
	}
	if got != b.Hash {
		return fmt.Errorf("hash mismatch: stored %s recomputed %s", b.Hash, got)
	}
	if !SatisfiesDifficulty(b.Hash, b.Difficulty) {
		return fmt.Errorf("hash %s does not satisfy difficulty %d", b.Hash, b.Difficulty)
	}
	return nil
}

// NewGenesisBlock constructs block 0: previous_hash "0", one constitutional
// entry carrying genesisText, sealed at the supplied difficulty via an
// immediate nonce search (spec.md §3, §8 scenario 1).
func NewGenesisBlock(genesisText string, difficulty int, now time.Time) (*Block, error) {
	entry := Entry{
		Content:          genesisText,
		Author:           "genesis",
		Intent:           "constitution",
		Timestamp:        now,
		ValidationStatus: StatusValid,
	}
	b := &Block{
		Index:        0,
		Timestamp:    now,
		PreviousHash: "0",
		Difficulty:   difficulty,
		Entries:      []Entry{entry},
	}
	var nonce uint64
	for {
		b.Nonce = nonce
		h, err := b.ComputeHash()
		if err != nil {
			return nil, err
		}
		if SatisfiesDifficulty(h, difficulty) {
			b.Hash = h
			break
		}
		nonce++
	}
	return b, nil
}
