package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRejectionErrorIncludesRetryAfter(t *testing.T) {
	r := rejectRetry(RejectTooFast, "slow down", 5*time.Second)
	msg := r.Error()
	if !strings.Contains(msg, "retry after 5s") {
		t.Fatalf("expected error message to include the retry hint, got %q", msg)
	}
	if r.RetryAfter != 5*time.Second {
		t.Fatalf("expected RetryAfter to be preserved, got %v", r.RetryAfter)
	}
}

func TestAsRejectionUnwraps(t *testing.T) {
	var err error = reject(RejectSchemaInvalid, "bad")
	r, ok := AsRejection(err)
	if !ok || r.Kind != RejectSchemaInvalid {
		t.Fatalf("expected to unwrap a *Rejection, got %v (%v)", r, ok)
	}
}

func TestAsRejectionFalseForPlainError(t *testing.T) {
	_, ok := AsRejection(errors.New("plain"))
	if ok {
		t.Fatal("expected AsRejection to return false for a non-Rejection error")
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	se := storageErr(StorageWriteError, "writing snapshot", inner)
	if !errors.Is(se, inner) {
		t.Fatal("expected StorageError to unwrap to its inner error")
	}
}
