package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSQLStorageSaveAndLoad(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "snapshot.sqlite")
	s, err := NewSQLStorage(dsn)
	if err != nil {
		t.Fatalf("NewSQLStorage: %v", err)
	}
	defer s.Close()

	snap := Snapshot{Version: SnapshotVersion, Blocks: []Block{{Index: 0, Hash: "abc"}}}
	if err := s.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, ok, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !ok || len(got.Blocks) != 1 || got.Blocks[0].Hash != "abc" {
		t.Fatalf("unexpected loaded snapshot: %+v", got)
	}
}

func TestSQLStorageOverwritesPreviousSnapshot(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "snapshot.sqlite")
	s, err := NewSQLStorage(dsn)
	if err != nil {
		t.Fatalf("NewSQLStorage: %v", err)
	}
	defer s.Close()

	first := Snapshot{Version: SnapshotVersion, Blocks: []Block{{Index: 0, Hash: "abc"}}}
	second := Snapshot{Version: SnapshotVersion, Blocks: []Block{{Index: 0, Hash: "abc"}, {Index: 1, Hash: "def"}}}
	if err := s.SaveSnapshot(context.Background(), first); err != nil {
		t.Fatalf("SaveSnapshot first: %v", err)
	}
	if err := s.SaveSnapshot(context.Background(), second); err != nil {
		t.Fatalf("SaveSnapshot second: %v", err)
	}

	got, _, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got.Blocks) != 2 {
		t.Fatalf("expected 2 blocks after overwrite, got %d", len(got.Blocks))
	}
}

func TestSQLStorageLoadRejectsUnknownVersion(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "snapshot.sqlite")
	s, err := NewSQLStorage(dsn)
	if err != nil {
		t.Fatalf("NewSQLStorage: %v", err)
	}
	defer s.Close()

	snap := Snapshot{Version: SnapshotVersion + 1, Blocks: []Block{{Index: 0, Hash: "abc"}}}
	if err := s.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	_, _, err = s.LoadSnapshot(context.Background())
	var serr *StorageError
	if !errors.As(err, &serr) || serr.Kind != StorageCorrupt {
		t.Fatalf("expected StorageCorrupt for an unknown snapshot version, got %v", err)
	}
}

func TestSQLStorageHealth(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "snapshot.sqlite")
	s, err := NewSQLStorage(dsn)
	if err != nil {
		t.Fatalf("NewSQLStorage: %v", err)
	}
	defer s.Close()
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
