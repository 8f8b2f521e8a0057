package core

import (
	"context"
	"testing"
	"time"
)

func TestMineBlockFindsSatisfyingNonce(t *testing.T) {
	res, err := mineBlock(context.Background(), 1, "previous-hash", nil, 1, time.Now().UTC(), 16)
	if err != nil {
		t.Fatalf("mineBlock: %v", err)
	}
	if !SatisfiesDifficulty(res.Block.Hash, 1) {
		t.Fatalf("mined hash %q does not satisfy difficulty 1", res.Block.Hash)
	}
	if res.Attempts == 0 {
		t.Fatal("expected at least one attempt to be recorded")
	}
}

func TestMineBlockRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mineBlock(ctx, 1, "previous-hash", nil, 64, time.Now().UTC(), 1)
	if err != ErrMineCancelled {
		t.Fatalf("expected ErrMineCancelled, got %v", err)
	}
}
