package core

// admission.go — the fixed-order entry admission pipeline (spec.md §4.9).
// Each gate either short-circuits with a named Rejection or lets the
// entry fall through to the next. Gates 1-9 run while ChainState holds its
// write lock; of these, only gate 7's slow path (intent classification
// through the validator) can call out to an LLM, and it does so with the
// lock held. Gate 10 (semantic validation) may call out to an LLM, so
// ChainState releases its write lock for that gate and re-checks the gates
// whose outcome could have changed while it was unlocked (spec.md §5).

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// admissionContext carries everything a gate needs without threading
// ChainState's lock through this file.
type admissionContext struct {
	cfg          Config
	rateLimiter  RateLimiter
	fingerprints *FingerprintCache
	derivatives  *DerivativeRegistry
	assets       *AssetRegistry
	classifier   *IntentClassifier
	validator    *Validator
	metrics      *Metrics
}

// gateResult is what the fast (pre-validation) gates need to hand to the
// commit step, computed once and not recomputed on re-check.
type gateResult struct {
	fingerprint [32]byte
	intent      IntentClassification
	assetID     string
	assetDest   string
	isTransfer  bool
}

// runFastGates executes gates 1 through 9: schema, rate limit, timestamp,
// duplicate, quality, derivative integrity, intent classification, asset
// transfer, signature.
func runFastGates(ctx context.Context, ac *admissionContext, e *Entry, now, latestBlockTime time.Time) (gateResult, error) {
	if err := e.CheckSchema(ac.cfg); err != nil {
		return gateResult{}, err
	}

	if ok, retryAfter := ac.rateLimiter.TryAdmit(e.Author, now); !ok {
		return gateResult{}, rejectRetry(RejectTooFast, "author exceeds rate limit", retryAfter)
	}

	if err := checkTimestamp(e.Timestamp, now, latestBlockTime, ac.cfg); err != nil {
		return gateResult{}, err
	}

	fp, err := e.Fingerprint()
	if err != nil {
		return gateResult{}, &CanonicalizationError{Reason: err.Error()}
	}
	if ac.fingerprints.Seen(fp, now) {
		return gateResult{}, reject(RejectDuplicateEntry, "an entry with this content, author, and intent was recently admitted")
	}

	if err := checkQuality(e, ac.cfg); err != nil {
		return gateResult{}, err
	}

	if err := ac.derivatives.CheckParents(e.ParentRefs); err != nil {
		return gateResult{}, reject(RejectInvalidParent, err.Error())
	}

	intent, err := ac.classifier.Classify(ctx, e)
	if err != nil {
		return gateResult{}, rejectRetry(RejectValidationUnavail, "intent classification unavailable: "+err.Error(), ac.cfg.RetryCap)
	}

	res := gateResult{fingerprint: fp, intent: intent}
	if intent.IsTransfer {
		assetID, hasAsset := e.AssetID()
		dest, hasDest := e.AssetDestination()
		if !hasAsset || !hasDest {
			return gateResult{}, reject(RejectSchemaInvalid, "transfer intent requires asset.id and asset.to metadata")
		}
		if err := ac.assets.BeginTransfer(assetID, e.Author, dest); err != nil {
			return gateResult{}, classifyAssetErr(err)
		}
		res.assetID = assetID
		res.assetDest = dest
		res.isTransfer = true
	}

	ok, err := e.VerifySignature()
	if err != nil {
		return gateResult{}, &CanonicalizationError{Reason: err.Error()}
	}
	if !ok {
		if res.isTransfer {
			_ = ac.assets.AbortTransfer(res.assetID)
		}
		return gateResult{}, reject(RejectBadSignature, "signature does not verify against public_key")
	}

	return res, nil
}

// recheckFastGates is run after the (possibly slow) semantic validation
// gate returns, while the write lock is held again, to catch state that
// changed while it was released: a duplicate admitted concurrently, or
// the asset's pending transfer having been aborted or reassigned out from
// under this candidate (spec.md §5).
func recheckFastGates(ac *admissionContext, e *Entry, gr gateResult, now, latestBlockTime time.Time) error {
	if ac.fingerprints.Seen(gr.fingerprint, now) {
		return reject(RejectStateChanged, "a duplicate of this entry was admitted while validation was pending")
	}
	if e.Timestamp.Before(latestBlockTime) {
		return reject(RejectStateChanged, "a block was sealed after this entry's timestamp while validation was pending")
	}
	if gr.isTransfer {
		dest, pending := ac.assets.PendingTransferOf(gr.assetID)
		if !pending || dest != gr.assetDest {
			return reject(RejectStateChanged, "this entry's pending asset transfer changed while validation was pending")
		}
	}
	return nil
}

// runValidationGate executes gate 10, semantic validation. The caller is
// responsible for releasing its write lock before calling this and
// reacquiring it afterward (spec.md §5).
func runValidationGate(ctx context.Context, ac *admissionContext, e *Entry) (ValidationResponse, error) {
	if ac.validator == nil {
		if ac.cfg.ValidationPolicy == ValidationRequired {
			return ValidationResponse{}, rejectRetry(RejectValidationUnavail, "no semantic validator configured", ac.cfg.RetryCap)
		}
		return ValidationResponse{Status: StatusPending}, nil
	}

	start := time.Now()
	resp, err := ac.validator.Validate(ctx, e)
	if ac.metrics != nil {
		ac.metrics.ValidatorLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if ac.cfg.ValidationPolicy == ValidationOptional {
			return ValidationResponse{Status: StatusPending, Reason: "validator unavailable, admitted under optional policy"}, nil
		}
		return ValidationResponse{}, err
	}

	switch resp.Status {
	case StatusValid:
		return resp, nil
	case StatusNeedsClarification:
		return ValidationResponse{}, reject(RejectNeedsClarification, resp.Reason)
	default: // StatusInvalid
		detail := resp.Reason
		if len(resp.Issues) > 0 {
			detail = fmt.Sprintf("%s (issues: %s)", detail, strings.Join(resp.Issues, "; "))
		}
		return ValidationResponse{}, reject(RejectSemanticInvalid, detail)
	}
}

// checkTimestamp enforces spec.md §4.9 gate 3: the entry's timestamp must
// fall within [now-PAST_WINDOW, now+FUTURE_WINDOW] and must not precede
// the latest sealed block's timestamp.
func checkTimestamp(ts, now, latestBlockTime time.Time, cfg Config) error {
	if ts.After(now.Add(cfg.TimestampFutureWindow)) {
		return reject(RejectClockSkew, "timestamp is too far in the future")
	}
	if ts.Before(now.Add(-cfg.TimestampPastWindow)) {
		return reject(RejectTimestampRegression, "timestamp is too far in the past")
	}
	if ts.Before(latestBlockTime) {
		return reject(RejectTimestampRegression, "timestamp precedes the latest sealed block")
	}
	return nil
}

func checkQuality(e *Entry, cfg Config) error {
	trimmed := strings.TrimSpace(e.Content)
	if trimmed == "" {
		return reject(RejectLowQuality, "content is empty or whitespace-only")
	}
	if len(strings.Fields(trimmed)) < 2 {
		return reject(RejectLowQuality, "content does not contain enough words to convey meaning")
	}
	return nil
}

func classifyAssetErr(err error) error {
	switch err {
	case ErrAssetUnknown:
		return reject(RejectUnknownAsset, err.Error())
	case ErrAssetNotOwner:
		return reject(RejectNotOwner, err.Error())
	case ErrAssetAlreadyPending:
		return reject(RejectAssetInFlight, err.Error())
	default:
		return reject(RejectSchemaInvalid, err.Error())
	}
}
