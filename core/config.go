package core

import "time"

// ValidationPolicy controls how the admission pipeline treats a persistently
// erroring Semantic Validator (spec.md §4.8, §4.9 gate 10).
type ValidationPolicy string

const (
	ValidationRequired ValidationPolicy = "Required"
	ValidationOptional ValidationPolicy = "Optional"
)

// Config is the configuration surface consumed by a ChainState (spec.md §6).
// All fields have defaults and are read once at construction; the core never
// mutates them afterward.
type Config struct {
	MaxContentBytes int
	MaxIntentBytes  int
	MaxAuthorBytes  int
	MaxPending      int
	MaxBlockEntries int
	Difficulty      int
	GenesisText     string

	ValidationPolicy ValidationPolicy

	RateLimitRequests      int
	RateLimitWindow        time.Duration
	TimestampPastWindow    time.Duration
	TimestampFutureWindow  time.Duration
	FingerprintTTL         time.Duration
	LLMTimeout             time.Duration
	RetryMax               int
	RetryBase              time.Duration
	RetryCap               time.Duration
	RetryJitterFraction    float64
	AdmissionTimeout       time.Duration
	MineTimeout            time.Duration
	TransferKeywords       []string
	MineCancelCheckInterval uint64
}

// DefaultConfig returns the spec-mandated defaults (spec.md §6).
func DefaultConfig() Config {
	return Config{
		MaxContentBytes:         64 * 1024,
		MaxIntentBytes:          1024,
		MaxAuthorBytes:          256,
		MaxPending:              10_000,
		MaxBlockEntries:         256,
		Difficulty:              1,
		GenesisText:             "Genesis entry",
		ValidationPolicy:        ValidationRequired,
		RateLimitRequests:       20,
		RateLimitWindow:         60 * time.Second,
		TimestampPastWindow:     24 * time.Hour,
		TimestampFutureWindow:   5 * time.Minute,
		FingerprintTTL:          60 * time.Minute,
		LLMTimeout:              30 * time.Second,
		RetryMax:                3,
		RetryBase:               1 * time.Second,
		RetryCap:                30 * time.Second,
		RetryJitterFraction:     0.1,
		AdmissionTimeout:        90 * time.Second,
		MineTimeout:             60 * time.Second,
		TransferKeywords:        []string{"transfer", "convey", "hand over", "assign", "deed over", "relinquish"},
		MineCancelCheckInterval: 1 << 12,
	}
}
