package core

import (
	"strings"
	"testing"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	b, err := CanonicalJSON(map[string]interface{}{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if got := string(b); got != `{"a":2,"b":1}` {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalJSONNoWhitespace(t *testing.T) {
	b, err := CanonicalJSON(map[string]interface{}{"x": []interface{}{"y", "z"}})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if strings.ContainsAny(string(b), " \t\n") {
		t.Fatalf("canonical output contains whitespace: %q", b)
	}
}

func TestCanonicalJSONNormalizesNFC(t *testing.T) {
	// "e" + combining acute accent vs precomposed "é" must canonicalize equal.
	decomposed := map[string]interface{}{"v": "é"}
	precomposed := map[string]interface{}{"v": "é"}
	a, err := CanonicalJSON(decomposed)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	b, err := CanonicalJSON(precomposed)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected NFC-normalized equality, got %q vs %q", a, b)
	}
}

func TestCanonicalJSONRejectsNull(t *testing.T) {
	if _, err := CanonicalJSON(map[string]interface{}{"v": nil}); err == nil {
		t.Fatal("expected error for null value")
	}
}

func TestCanonicalJSONRejectsNaN(t *testing.T) {
	var zero float64
	nan := zero / zero
	if _, err := CanonicalJSON(map[string]interface{}{"v": nan}); err == nil {
		t.Fatal("expected error for NaN")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a, err := Fingerprint("hello world", "alice", "note")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := Fingerprint("hello world", "alice", "note")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Fatal("expected identical fingerprints for identical inputs")
	}
	c, err := Fingerprint("hello world!", "alice", "note")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a == c {
		t.Fatal("expected different fingerprints for different content")
	}
}

func TestLeadingHexZeros(t *testing.T) {
	cases := map[string]int{
		"00ab": 2,
		"0000": 4,
		"1abc": 0,
		"":     0,
	}
	for in, want := range cases {
		if got := leadingHexZeros(in); got != want {
			t.Errorf("leadingHexZeros(%q) = %d, want %d", in, got, want)
		}
	}
}
