package core

import (
	"testing"
	"time"
)

func TestSlidingWindowLimiterAdmitsWithinBudget(t *testing.T) {
	l := NewSlidingWindowLimiter(3, time.Minute)
	now := time.Now()
	for i := 0; i < 3; i++ {
		ok, _ := l.TryAdmit("alice", now)
		if !ok {
			t.Fatalf("request %d should be admitted", i)
		}
	}
}

func TestSlidingWindowLimiterRejectsOverBudget(t *testing.T) {
	l := NewSlidingWindowLimiter(2, time.Minute)
	now := time.Now()
	l.TryAdmit("alice", now)
	l.TryAdmit("alice", now)
	ok, retryAfter := l.TryAdmit("alice", now)
	if ok {
		t.Fatal("third request should be rejected")
	}
	if retryAfter <= 0 {
		t.Fatal("expected a positive retry-after duration")
	}
}

func TestSlidingWindowLimiterResetsAfterWindow(t *testing.T) {
	l := NewSlidingWindowLimiter(1, time.Minute)
	now := time.Now()
	l.TryAdmit("alice", now)
	ok, _ := l.TryAdmit("alice", now.Add(2*time.Minute))
	if !ok {
		t.Fatal("expected request to be admitted in a fresh window")
	}
}

func TestSlidingWindowLimiterPerAuthorIndependence(t *testing.T) {
	l := NewSlidingWindowLimiter(1, time.Minute)
	now := time.Now()
	okA, _ := l.TryAdmit("alice", now)
	okB, _ := l.TryAdmit("bob", now)
	if !okA || !okB {
		t.Fatal("distinct authors should not share a budget")
	}
}

func TestSlidingWindowLimiterReset(t *testing.T) {
	l := NewSlidingWindowLimiter(1, time.Minute)
	now := time.Now()
	l.TryAdmit("alice", now)
	l.Reset()
	ok, _ := l.TryAdmit("alice", now)
	if !ok {
		t.Fatal("expected request to be admitted after Reset")
	}
}
