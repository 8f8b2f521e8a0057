package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileStorageSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	defer fs.Close()

	snap := Snapshot{Version: SnapshotVersion, Blocks: []Block{{Index: 0, Hash: "abc"}}}
	if err := fs.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, ok, err := fs.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !ok || len(got.Blocks) != 1 || got.Blocks[0].Hash != "abc" {
		t.Fatalf("unexpected loaded snapshot: %+v", got)
	}
}

func TestFileStorageLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	fs, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	defer fs.Close()

	_, ok, err := fs.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if ok {
		t.Fatal("expected no snapshot for a fresh path")
	}
}

func TestFileStorageLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	defer fs.Close()

	snap := Snapshot{Version: SnapshotVersion + 1, Blocks: []Block{{Index: 0, Hash: "abc"}}}
	if err := fs.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	_, _, err = fs.LoadSnapshot(context.Background())
	var serr *StorageError
	if !errors.As(err, &serr) || serr.Kind != StorageCorrupt {
		t.Fatalf("expected StorageCorrupt for an unknown snapshot version, got %v", err)
	}
}

func TestFileStorageSecondLockFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	defer fs.Close()

	if _, err := NewFileStorage(path); err == nil {
		t.Fatal("expected second concurrent open of the same path to fail")
	}
}
