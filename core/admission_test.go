package core

import (
	"testing"
	"time"
)

func TestCheckTimestampWithinWindow(t *testing.T) {
	now := time.Now().UTC()
	cfg := DefaultConfig()
	if err := checkTimestamp(now, now, now.Add(-time.Hour), cfg); err != nil {
		t.Fatalf("expected timestamp within window to pass, got %v", err)
	}
}

func TestCheckTimestampRejectsFuture(t *testing.T) {
	now := time.Now().UTC()
	cfg := DefaultConfig()
	err := checkTimestamp(now.Add(cfg.TimestampFutureWindow+time.Second), now, now.Add(-time.Hour), cfg)
	r, ok := AsRejection(err)
	if !ok || r.Kind != RejectClockSkew {
		t.Fatalf("expected RejectClockSkew, got %v", err)
	}
}

func TestCheckTimestampRejectsPast(t *testing.T) {
	now := time.Now().UTC()
	cfg := DefaultConfig()
	err := checkTimestamp(now.Add(-cfg.TimestampPastWindow-time.Second), now, now.Add(-2*cfg.TimestampPastWindow), cfg)
	r, ok := AsRejection(err)
	if !ok || r.Kind != RejectTimestampRegression {
		t.Fatalf("expected RejectTimestampRegression, got %v", err)
	}
}

func TestCheckTimestampRejectsBeforeLatestBlock(t *testing.T) {
	now := time.Now().UTC()
	cfg := DefaultConfig()
	latestBlockTime := now.Add(-time.Minute)
	err := checkTimestamp(latestBlockTime.Add(-time.Second), now, latestBlockTime, cfg)
	r, ok := AsRejection(err)
	if !ok || r.Kind != RejectTimestampRegression {
		t.Fatalf("expected RejectTimestampRegression, got %v", err)
	}
}
