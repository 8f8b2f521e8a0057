package core

import "testing"

func TestAssetRegistryTransferLifecycle(t *testing.T) {
	r := NewAssetRegistry()
	r.SeedOwner("asset-1", "alice")

	if err := r.BeginTransfer("asset-1", "alice", "bob"); err != nil {
		t.Fatalf("BeginTransfer: %v", err)
	}
	if owner, _ := r.OwnerOf("asset-1"); owner != "alice" {
		t.Fatal("owner should not change until commit")
	}
	if err := r.CommitTransfer("asset-1"); err != nil {
		t.Fatalf("CommitTransfer: %v", err)
	}
	if owner, _ := r.OwnerOf("asset-1"); owner != "bob" {
		t.Fatalf("expected owner bob after commit, got %s", owner)
	}
}

func TestAssetRegistryRejectsUnknownAsset(t *testing.T) {
	r := NewAssetRegistry()
	if err := r.BeginTransfer("ghost", "alice", "bob"); err != ErrAssetUnknown {
		t.Fatalf("expected ErrAssetUnknown, got %v", err)
	}
}

func TestAssetRegistryRejectsNonOwner(t *testing.T) {
	r := NewAssetRegistry()
	r.SeedOwner("asset-1", "alice")
	if err := r.BeginTransfer("asset-1", "mallory", "bob"); err != ErrAssetNotOwner {
		t.Fatalf("expected ErrAssetNotOwner, got %v", err)
	}
}

func TestAssetRegistryFirstAdmittedWins(t *testing.T) {
	r := NewAssetRegistry()
	r.SeedOwner("asset-1", "alice")
	if err := r.BeginTransfer("asset-1", "alice", "bob"); err != nil {
		t.Fatalf("BeginTransfer: %v", err)
	}
	if err := r.BeginTransfer("asset-1", "alice", "carol"); err != ErrAssetAlreadyPending {
		t.Fatalf("expected second concurrent transfer to be rejected, got %v", err)
	}
}

func TestAssetRegistryAbortTransfer(t *testing.T) {
	r := NewAssetRegistry()
	r.SeedOwner("asset-1", "alice")
	r.BeginTransfer("asset-1", "alice", "bob")
	if err := r.AbortTransfer("asset-1"); err != nil {
		t.Fatalf("AbortTransfer: %v", err)
	}
	if _, pending := r.PendingTransferOf("asset-1"); pending {
		t.Fatal("expected no pending transfer after abort")
	}
	if err := r.BeginTransfer("asset-1", "alice", "carol"); err != nil {
		t.Fatalf("expected a new transfer to be possible after abort, got %v", err)
	}
}

func TestAssetRegistrySnapshotRestore(t *testing.T) {
	r := NewAssetRegistry()
	r.SeedOwner("asset-1", "alice")
	r.BeginTransfer("asset-1", "alice", "bob")
	snap := r.Snapshot()

	r2 := NewAssetRegistry()
	r2.Restore(snap)
	if owner, _ := r2.OwnerOf("asset-1"); owner != "alice" {
		t.Fatalf("expected restored owner alice, got %s", owner)
	}
	if dest, ok := r2.PendingTransferOf("asset-1"); !ok || dest != "bob" {
		t.Fatalf("expected restored pending transfer to bob, got %s (%v)", dest, ok)
	}
}
