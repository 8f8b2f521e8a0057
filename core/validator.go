package core

// validator.go — the Semantic Validator, a.k.a. "Proof of Understanding"
// (spec.md §4.8). Each pending entry is checked against its declared
// intent by an LLM reachable through the LLMHandle interface; the default
// implementation wraps a gRPC stub client, modeled directly on the
// teacher's AIStubClient in core/ai.go. Retries use the same
// exponential-backoff-with-jitter policy the pack's Erigon fork pulls in
// via github.com/cenkalti/backoff/v4.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/text/unicode/norm"
)

// NonRetryableError marks an LLMHandle failure as Fatal in spec.md §4.8's
// state machine (Fatal → Error): schema-violating or malformed responses
// must never be retried, unlike transient transport/network/timeout
// failures.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string { return e.Err.Error() }
func (e *NonRetryableError) Unwrap() error { return e.Err }

// LLMHandle is the boundary between the Semantic Validator and whatever
// model backs it. The default implementation dials a gRPC endpoint; tests
// substitute a stub satisfying this interface directly, the same way the
// teacher's core/ai.go lets AIEngine swap its AIStubClient.
type LLMHandle interface {
	// Evaluate asks the model whether content plausibly fulfills the
	// declared intent, returning a decision, optional clarification
	// questions, and any rephrasing candidates.
	Evaluate(ctx context.Context, req ValidationRequest) (ValidationResponse, error)
}

// ValidationRequest is the sanitized payload sent to the LLM.
type ValidationRequest struct {
	Content string `json:"content"`
	Intent  string `json:"intent"`
	Author  string `json:"author"`
}

// ValidationResponse is the LLM's structured reply, mirroring spec.md
// §4.8's ValidationOutcome (decision, paraphrase, confidence, reasoning,
// issues).
type ValidationResponse struct {
	Status      ValidationStatus `json:"status"`
	Paraphrases []string         `json:"paraphrases,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
	Issues      []string         `json:"issues,omitempty"`
}

// Validator runs the Proof of Understanding pass: sanitize, dispatch to
// the LLM handle with retry/backoff and a timeout, and translate the
// result into a ValidationStatus the admission pipeline can act on.
type Validator struct {
	handle      LLMHandle
	callTimeout time.Duration
	retryCap    time.Duration
	retryBase   time.Duration
	retryMax    int
	jitter      float64
	degraded    bool // true once the handle has been observed failing persistently
}

// NewValidator constructs a Validator from the ChainState's Config.
// cfg.LLMTimeout bounds a single Evaluate call; cfg.RetryCap bounds the
// total time spent retrying and cfg.RetryMax bounds the attempt count,
// whichever is reached first, before the pipeline is told the validator
// is unavailable (spec.md §4.8, §7 ValidationUnavailable).
func NewValidator(handle LLMHandle, cfg Config) *Validator {
	return &Validator{
		handle:      handle,
		callTimeout: cfg.LLMTimeout,
		retryCap:    cfg.RetryCap,
		retryBase:   cfg.RetryBase,
		retryMax:    cfg.RetryMax,
		jitter:      cfg.RetryJitterFraction,
	}
}

// Degraded reports whether the validator's most recent call exhausted its
// retry budget, a signal surfaced in health/status reporting.
func (v *Validator) Degraded() bool { return v.degraded }

// sanitize applies NFKC normalization and strips control characters other
// than newline and tab before content reaches the model (spec.md §4.8
// "sanitization"). It does not strip delimiter sequences, redact
// prompt-injection patterns, or truncate the input.
func sanitize(s string) string {
	s = norm.NFKC.String(s)
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			out = append(out, r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Validate runs the full Proof of Understanding pass over an entry,
// returning the status to record on it (spec.md §4.9 gate 10). A
// RejectValidationUnavail rejection is returned, not a bare error, when
// the retry budget is exhausted — the pipeline treats that as retryable
// by the submitter, not a permanent rejection.
func (v *Validator) Validate(ctx context.Context, e *Entry) (ValidationResponse, error) {
	req := ValidationRequest{
		Content: sanitize(e.Content),
		Intent:  sanitize(e.Intent),
		Author:  sanitize(e.Author),
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = v.retryCap
	bo.InitialInterval = v.retryBase
	bo.Multiplier = 2
	bo.RandomizationFactor = v.jitter
	// RETRY_MAX bounds the attempt count; RetryCap/MaxElapsedTime bounds
	// wall-clock time. Whichever limit is hit first stops the retry loop
	// (spec.md §4.8 point 4).
	bounded := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(v.retryMax))

	var resp ValidationResponse
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
		defer cancel()
		r, err := v.handle.Evaluate(callCtx, req)
		if err != nil {
			var nonRetryable *NonRetryableError
			if errors.As(err, &nonRetryable) {
				// Schema or semantic failures are Fatal, not Transient
				// (spec.md §4.8 state machine): stop retrying immediately.
				return backoff.Permanent(nonRetryable.Err)
			}
			return err
		}
		resp = r
		return nil
	}

	err := backoff.Retry(op, bounded)
	if err != nil {
		v.degraded = true
		return ValidationResponse{}, rejectRetry(RejectValidationUnavail,
			fmt.Sprintf("semantic validator unavailable: %v", err), v.retryCap)
	}
	v.degraded = false

	switch resp.Status {
	case StatusValid, StatusInvalid, StatusNeedsClarification:
		return resp, nil
	default:
		return ValidationResponse{}, &CanonicalizationError{Reason: fmt.Sprintf("validator returned unknown status %q", resp.Status)}
	}
}

// ClassifyTransferIntent asks the model a narrower yes/no question used by
// IntentClassifier's slow path: does content assert an asset transfer.
func (v *Validator) ClassifyTransferIntent(ctx context.Context, content string) (bool, error) {
	req := ValidationRequest{Content: sanitize(content), Intent: "asset_transfer_check"}
	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()
	resp, err := v.handle.Evaluate(callCtx, req)
	if err != nil {
		return false, err
	}
	return resp.Status == StatusValid, nil
}

// GRPCStubHandle is the default LLMHandle: a thin wrapper over a gRPC
// client connection, modeled on core/ai.go's AIStubClient/AIEngine. The
// actual service contract (proto definitions, generated stubs) lives
// outside this package; NewGRPCStubHandle returns a handle around whatever
// RemoteEvaluator is passed in, so tests and alternate deployments can
// substitute any client without this package depending on generated code.
type GRPCStubHandle struct {
	endpoint string
	client   RemoteEvaluator
}

// RemoteEvaluator is the narrow surface GRPCStubHandle needs from a
// generated gRPC client stub.
type RemoteEvaluator interface {
	Evaluate(ctx context.Context, payload []byte) ([]byte, error)
}

// NewGRPCStubHandle wraps an already-dialed client for the given logical
// endpoint (used in logging only; the connection itself is the caller's
// responsibility, matching core/ai.go's pattern of a pre-configured
// grpc.ClientConn passed into AIEngine).
func NewGRPCStubHandle(endpoint string, client RemoteEvaluator) *GRPCStubHandle {
	return &GRPCStubHandle{endpoint: endpoint, client: client}
}

func (h *GRPCStubHandle) Evaluate(ctx context.Context, req ValidationRequest) (ValidationResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return ValidationResponse{}, &NonRetryableError{Err: err}
	}
	out, err := h.client.Evaluate(ctx, payload)
	if err != nil {
		// Transport-level failure (network, rate-limit, 5xx): Transient
		// per spec.md §4.8, left for the caller's backoff to retry.
		return ValidationResponse{}, err
	}
	var resp ValidationResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		// A non-JSON or schema-violating response is Fatal, never retried.
		return ValidationResponse{}, &NonRetryableError{Err: fmt.Errorf("validator response from %s: %w", h.endpoint, err)}
	}
	return resp, nil
}
