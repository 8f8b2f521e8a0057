package core

// asset_registry.go — ownership and pending-transfer tracking for assets
// declared under the reserved `asset.*` metadata sub-namespace (spec.md
// §3, §4.3). Modeled on the teacher's role-cache pattern in
// access_control.go: an in-memory map guarded by a single mutex, safe for
// concurrent use, with first-admitted-wins conflict resolution.

import "sync"

// AssetRegistry tracks current ownership and in-flight transfers.
type AssetRegistry struct {
	mu       sync.Mutex
	owners   map[string]string // asset_id -> current owner
	pending  map[string]string // asset_id -> pending destination
}

// NewAssetRegistry returns an empty registry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		owners:  make(map[string]string),
		pending: make(map[string]string),
	}
}

// SeedOwner records initial ownership for an asset outside the normal
// transfer flow (used at genesis / snapshot restore).
func (r *AssetRegistry) SeedOwner(assetID, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[assetID] = owner
}

// OwnerOf returns the current owner of assetID, if known.
func (r *AssetRegistry) OwnerOf(assetID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[assetID]
	return o, ok
}

// PendingTransferOf returns the pending destination for assetID, if any.
func (r *AssetRegistry) PendingTransferOf(assetID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.pending[assetID]
	return d, ok
}

// BeginTransfer records a pending transfer of assetID from 'from' to 'to'.
// It enforces first-admitted-wins: the second concurrent candidate for the
// same asset is rejected with ErrAssetAlreadyPending even before semantic
// validation runs (spec.md §4.3 ordering policy).
func (r *AssetRegistry) BeginTransfer(assetID, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, known := r.owners[assetID]
	if !known {
		return ErrAssetUnknown
	}
	if owner != from {
		return ErrAssetNotOwner
	}
	if _, pending := r.pending[assetID]; pending {
		return ErrAssetAlreadyPending
	}
	if to == owner {
		return ErrAssetDestIsOwner
	}
	r.pending[assetID] = to
	return nil
}

// CommitTransfer finalizes a pending transfer, called only when the
// transferring entry is sealed into a block (spec.md §4.9 gate 11, §4.10).
func (r *AssetRegistry) CommitTransfer(assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dest, ok := r.pending[assetID]
	if !ok {
		return ErrAssetNotPending
	}
	r.owners[assetID] = dest
	delete(r.pending, assetID)
	return nil
}

// AbortTransfer cancels a pending transfer without changing ownership
// (used when the transferring entry is abandoned rather than mined).
func (r *AssetRegistry) AbortTransfer(assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[assetID]; !ok {
		return ErrAssetNotPending
	}
	delete(r.pending, assetID)
	return nil
}

// AssetSnapshot is the persisted form of the registry (spec.md §6).
type AssetSnapshot struct {
	Owners            map[string]string `json:"owners"`
	PendingTransfers  map[string]string `json:"pending_transfers"`
}

// Snapshot returns a copy of the registry's state for persistence.
func (r *AssetRegistry) Snapshot() AssetSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	owners := make(map[string]string, len(r.owners))
	for k, v := range r.owners {
		owners[k] = v
	}
	pending := make(map[string]string, len(r.pending))
	for k, v := range r.pending {
		pending[k] = v
	}
	return AssetSnapshot{Owners: owners, PendingTransfers: pending}
}

// Restore replaces the registry's state with a loaded snapshot.
func (r *AssetRegistry) Restore(s AssetSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners = make(map[string]string, len(s.Owners))
	for k, v := range s.Owners {
		r.owners[k] = v
	}
	r.pending = make(map[string]string, len(s.PendingTransfers))
	for k, v := range s.PendingTransfers {
		r.pending[k] = v
	}
}
