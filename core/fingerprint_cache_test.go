package core

import (
	"testing"
	"time"
)

func TestFingerprintCacheSeenAfterRemember(t *testing.T) {
	c := NewFingerprintCache(time.Minute)
	defer c.Close()

	fp := [32]byte{1, 2, 3}
	now := time.Now()
	if c.Seen(fp, now) {
		t.Fatal("should not be seen before Remember")
	}
	c.Remember(fp, now)
	if !c.Seen(fp, now) {
		t.Fatal("should be seen immediately after Remember")
	}
}

func TestFingerprintCacheExpires(t *testing.T) {
	c := NewFingerprintCache(time.Minute)
	defer c.Close()

	fp := [32]byte{4, 5, 6}
	start := time.Now()
	c.Remember(fp, start)
	if !c.Seen(fp, start.Add(30*time.Second)) {
		t.Fatal("should still be seen within TTL")
	}
	if c.Seen(fp, start.Add(2*time.Minute)) {
		t.Fatal("should no longer be seen after TTL elapses")
	}
}

func TestFingerprintCacheForget(t *testing.T) {
	c := NewFingerprintCache(time.Minute)
	defer c.Close()

	fp := [32]byte{7, 8, 9}
	now := time.Now()
	c.Remember(fp, now)
	c.Forget(fp)
	if c.Seen(fp, now) {
		t.Fatal("should not be seen after Forget")
	}
}

func TestFingerprintCacheSnapshotRestore(t *testing.T) {
	c := NewFingerprintCache(time.Minute)
	defer c.Close()

	fp := [32]byte{10, 11, 12}
	now := time.Now()
	c.Remember(fp, now)
	snap := c.Snapshot()

	c2 := NewFingerprintCache(time.Minute)
	defer c2.Close()
	c2.Restore(snap)
	if !c2.Seen(fp, now) {
		t.Fatal("restored cache should recognize previously remembered fingerprint")
	}
}

func TestFingerprintRecordJSONRoundTrip(t *testing.T) {
	rec := FingerprintRecord{Fingerprint: [32]byte{1, 2, 3, 4}, ExpiresAt: time.Now().UTC()}
	b, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var got FingerprintRecord
	if err := got.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got.Fingerprint != rec.Fingerprint {
		t.Fatalf("fingerprint mismatch after round trip: %v vs %v", got.Fingerprint, rec.Fingerprint)
	}
}
