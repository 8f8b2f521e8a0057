package core

// storage_file.go — a single-file JSON StorageBackend (spec.md §6, backend
// "file"). Writes go to a temp file in the same directory, fsynced, then
// renamed over the target so a crash mid-write can never leave a
// truncated snapshot on disk. An advisory lock (gofrs/flock, the same
// library the pack's Erigon fork uses for its datadir lock) guards against
// two processes pointed at the same path.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// FileStorage persists snapshots to a single JSON file.
type FileStorage struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFileStorage opens (without requiring it to exist yet) the snapshot
// file at path and acquires an exclusive advisory lock on a sibling
// ".lock" file.
func NewFileStorage(path string) (*FileStorage, error) {
	lockPath := path + ".lock"
	lk := flock.New(lockPath)
	locked, err := lk.TryLock()
	if err != nil {
		return nil, storageErr(StorageUnavailable, "acquiring file lock", err)
	}
	if !locked {
		return nil, storageErr(StorageUnavailable, "snapshot file is locked by another process", nil)
	}
	return &FileStorage{path: path, lock: lk}, nil
}

func (f *FileStorage) LoadSnapshot(ctx context.Context) (Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, storageErr(StorageUnavailable, "reading snapshot file", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, storageErr(StorageCorrupt, "decoding snapshot file", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, false, storageErr(StorageCorrupt, fmt.Sprintf("unsupported snapshot version %d", snap.Version), nil)
	}
	return snap, true, nil
}

func (f *FileStorage) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return storageErr(StorageWriteError, "encoding snapshot", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return storageErr(StorageWriteError, "creating temp snapshot file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return storageErr(StorageWriteError, "writing temp snapshot file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return storageErr(StorageWriteError, "fsyncing temp snapshot file", err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr(StorageWriteError, "closing temp snapshot file", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return storageErr(StorageWriteError, "renaming snapshot file into place", err)
	}
	return nil
}

func (f *FileStorage) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir := filepath.Dir(f.path)
	info, err := os.Stat(dir)
	if err != nil {
		return storageErr(StorageUnavailable, "stat snapshot directory", err)
	}
	if !info.IsDir() {
		return storageErr(StorageUnavailable, fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return nil
}

func (f *FileStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lock.Unlock()
}
