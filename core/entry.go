package core

// entry.go — the Entry data model (spec.md §3). An Entry is a single
// natural-language ledger record; it becomes immutable once sealed into a
// block by the Miner.

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"time"
)

// ValidationStatus is the outcome of the Semantic Validator's Proof of
// Understanding pass over an Entry (spec.md §3, §4.8).
type ValidationStatus string

const (
	StatusPending             ValidationStatus = "Pending"
	StatusValid               ValidationStatus = "Valid"
	StatusInvalid              ValidationStatus = "Invalid"
	StatusNeedsClarification  ValidationStatus = "NeedsClarification"
	StatusError               ValidationStatus = "Error"
)

// RelationshipKind labels a derivative edge between two entries (spec.md §3,
// §4.4).
type RelationshipKind string

const (
	RelAmendment RelationshipKind = "Amendment"
	RelExtension RelationshipKind = "Extension"
	RelResponse  RelationshipKind = "Response"
	RelRevision  RelationshipKind = "Revision"
	RelReference RelationshipKind = "Reference"
	RelFulfillment RelationshipKind = "Fulfillment"
)

// ParentRef points a child entry at an already-sealed ancestor (spec.md §3).
type ParentRef struct {
	BlockIndex   uint64           `json:"block_index"`
	EntryIndex   uint64           `json:"entry_index"`
	Relationship RelationshipKind `json:"relationship"`
}

// Location identifies an entry's position once sealed: (block_index,
// entry_index). It is the arena key the DerivativeRegistry uses instead of
// a pointer (spec.md §9).
type Location struct {
	BlockIndex uint64
	EntryIndex uint64
}

func (l Location) String() string { return fmt.Sprintf("%d#%d", l.BlockIndex, l.EntryIndex) }

// ParseLocation parses the "%d#%d" form produced by Location.String, used
// when restoring the derivative registry's edge map from a JSON snapshot
// (object keys must be strings).
func ParseLocation(s string) (Location, error) {
	var loc Location
	if _, err := fmt.Sscanf(s, "%d#%d", &loc.BlockIndex, &loc.EntryIndex); err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", s, err)
	}
	return loc, nil
}

// protectedMetadataKeys are names a writer may never set directly: the core
// owns and mutates them (spec.md §3 invariant). The asset.* sub-namespace is
// reserved but writer-settable, so it is intentionally absent here.
var protectedMetadataKeys = map[string]struct{}{
	"validation_status":  {},
	"hash":               {},
	"block_index":        {},
	"block_hash":         {},
	"signature":          {},
	"public_key":         {},
	"signer_fingerprint": {},
}

// Entry is a single ledger record (spec.md §3).
type Entry struct {
	Content                string                 `json:"content"`
	Author                 string                 `json:"author"`
	Intent                 string                 `json:"intent"`
	Timestamp              time.Time              `json:"timestamp"`
	ValidationStatus       ValidationStatus       `json:"validation_status"`
	ValidationParaphrases  []string               `json:"validation_paraphrases,omitempty"`
	Metadata               map[string]interface{} `json:"metadata,omitempty"`
	ParentRefs             []ParentRef            `json:"parent_refs,omitempty"`
	Signature              []byte                 `json:"signature,omitempty"`
	PublicKey              []byte                 `json:"public_key,omitempty"`
}

// MaxParaphrases is the spec-mandated bound on validation_paraphrases
// (spec.md §3).
const MaxParaphrases = 16

// CheckSchema performs gate 1 of the admission pipeline (spec.md §4.9):
// required fields present, bounds respected, no protected metadata names,
// content otherwise canonicalizable.
func (e *Entry) CheckSchema(cfg Config) error {
	if e.Author == "" {
		return reject(RejectSchemaInvalid, "author is required")
	}
	if len(e.Author) > cfg.MaxAuthorBytes {
		return reject(RejectSchemaInvalid, "author exceeds max_author_bytes")
	}
	if len(e.Content) == 0 {
		return reject(RejectSchemaInvalid, "content is required")
	}
	if len(e.Content) > cfg.MaxContentBytes {
		return reject(RejectSchemaInvalid, "content exceeds max_content_bytes")
	}
	if len(e.Intent) > cfg.MaxIntentBytes {
		return reject(RejectSchemaInvalid, "intent exceeds max_intent_bytes")
	}
	if len(e.ValidationParaphrases) > MaxParaphrases {
		return reject(RejectSchemaInvalid, "too many validation_paraphrases")
	}
	for k := range e.Metadata {
		if _, bad := protectedMetadataKeys[k]; bad {
			return reject(RejectSchemaInvalid, fmt.Sprintf("metadata key %q is protected", k))
		}
	}
	if (len(e.Signature) == 0) != (len(e.PublicKey) == 0) {
		return reject(RejectSchemaInvalid, "signature and public_key must both be present or both absent")
	}
	if len(e.PublicKey) != 0 && len(e.PublicKey) != ed25519.PublicKeySize {
		return reject(RejectSchemaInvalid, "public_key must be 32 bytes")
	}
	if _, err := e.SigningInput(); err != nil {
		return reject(RejectSchemaInvalid, err.Error())
	}
	return nil
}

// canonicalMap builds the canonical representation used for hashing,
// fingerprinting, and signing. When excludeSignature is true, the signature
// and public_key fields are omitted — this is the signing input (spec.md
// §6, Identity interface).
func (e *Entry) canonicalMap(excludeSignature bool) (map[string]interface{}, error) {
	m := map[string]interface{}{
		"content":   e.Content,
		"author":    e.Author,
		"intent":    e.Intent,
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
		"status":    string(e.ValidationStatus),
	}
	if len(e.ValidationParaphrases) > 0 {
		ps := make([]interface{}, len(e.ValidationParaphrases))
		for i, p := range e.ValidationParaphrases {
			ps[i] = p
		}
		m["paraphrases"] = ps
	}
	if len(e.Metadata) > 0 {
		md := make(map[string]interface{}, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		m["metadata"] = md
	}
	if len(e.ParentRefs) > 0 {
		refs := make([]interface{}, len(e.ParentRefs))
		for i, r := range e.ParentRefs {
			refs[i] = map[string]interface{}{
				"block_index": int64(r.BlockIndex),
				"entry_index": int64(r.EntryIndex),
				"relationship": string(r.Relationship),
			}
		}
		m["parent_refs"] = refs
	}
	if !excludeSignature && len(e.Signature) > 0 {
		m["signature"] = fmt.Sprintf("%x", e.Signature)
		m["public_key"] = fmt.Sprintf("%x", e.PublicKey)
	}
	return m, nil
}

// Fingerprint returns the SHA-256 digest over content+author+intent used
// for deduplication (spec.md §4.5).
func (e *Entry) Fingerprint() ([32]byte, error) {
	return Fingerprint(e.Content, e.Author, e.Intent)
}

// Hash returns the SHA-256 digest of the entry's full canonical form
// (signature included when present). Block.ComputeHash does not call it:
// a block's hash embeds each entry's canonical form directly.
func (e *Entry) Hash() ([32]byte, error) {
	m, err := e.canonicalMap(false)
	if err != nil {
		return [32]byte{}, err
	}
	b, err := CanonicalJSON(m)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// SigningInput returns the canonical serialization with signature fields
// removed — the exact bytes an Ed25519 signature is computed over (spec.md
// §6, Identity interface).
func (e *Entry) SigningInput() ([]byte, error) {
	m, err := e.canonicalMap(true)
	if err != nil {
		return nil, err
	}
	return CanonicalJSON(m)
}

// VerifySignature checks the entry's Ed25519 signature over its canonical
// form with signature fields excluded (spec.md §4.9 gate 9, §6).
func (e *Entry) VerifySignature() (bool, error) {
	if len(e.Signature) == 0 && len(e.PublicKey) == 0 {
		return true, nil // no signature present: nothing to verify
	}
	if len(e.Signature) != ed25519.SignatureSize || len(e.PublicKey) != ed25519.PublicKeySize {
		return false, nil
	}
	input, err := e.SigningInput()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(e.PublicKey), input, e.Signature), nil
}

// SignerFingerprint returns the first 16 hex characters of SHA-256(pubkey),
// as defined in spec.md §6.
func SignerFingerprint(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return fmt.Sprintf("%x", sum)[:16]
}

// AssetID extracts the asset.* metadata the Intent Classifier and Asset
// Registry consult (spec.md §3, §4.7).
func (e *Entry) AssetID() (string, bool) {
	v, ok := e.Metadata["asset.id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (e *Entry) AssetDestination() (string, bool) {
	v, ok := e.Metadata["asset.to"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
