package core

// intent_classifier.go — determines whether an entry asserts an asset
// transfer (spec.md §4.7). A cheap keyword fast path covers the common
// case; anything it cannot confidently decide falls through to the
// Semantic Validator's LLM handle, mirroring the teacher's AIEngine
// pattern of a local heuristic backed by a remote model for the hard
// cases (core/ai.go's Anomaly/Inference split).

import (
	"context"
	"strings"
)

// IntentClassification is the outcome of classifying one entry.
type IntentClassification struct {
	IsTransfer bool
	Confident  bool // true if the keyword fast path alone decided it
}

// IntentClassifier decides whether an entry's content asserts an asset
// transfer, consulting a Validator for the slow path when keywords alone
// are inconclusive.
type IntentClassifier struct {
	keywords  []string
	validator *Validator
}

// NewIntentClassifier builds a classifier over the given keyword list
// (pass Config.TransferKeywords for the default policy) and an optional
// Validator for the LLM slow path. validator may be nil, in which case
// ambiguous entries are treated as non-transfers and marked not
// confident.
func NewIntentClassifier(keywords []string, validator *Validator) *IntentClassifier {
	return &IntentClassifier{keywords: keywords, validator: validator}
}

// Classify runs the fast path first: a keyword match and asset.*
// metadata are each a vote for Transfer. When both votes agree (either
// both present or both absent), and the entry doesn't explicitly demand
// the slow path, the fast path's verdict is confident. Otherwise — the
// votes disagree, or `transfer_classification_required` metadata is set —
// the decision is ambiguous and escalates to the Semantic Validator's
// slow path (spec.md §4.7).
func (c *IntentClassifier) Classify(ctx context.Context, e *Entry) (IntentClassification, error) {
	lower := strings.ToLower(e.Content)
	keywordMatch := false
	for _, kw := range c.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			keywordMatch = true
			break
		}
	}

	_, hasAsset := e.AssetID()
	_, hasDest := e.AssetDestination()
	hasAssetMetadata := hasAsset && hasDest

	forceSlowPath := metadataFlagSet(e.Metadata, "transfer_classification_required")

	if !forceSlowPath && keywordMatch == hasAssetMetadata {
		return IntentClassification{IsTransfer: keywordMatch, Confident: true}, nil
	}

	if c.validator == nil {
		return IntentClassification{IsTransfer: false, Confident: false}, nil
	}
	isTransfer, err := c.validator.ClassifyTransferIntent(ctx, e.Content)
	if err != nil {
		return IntentClassification{}, err
	}
	return IntentClassification{IsTransfer: isTransfer, Confident: false}, nil
}

// metadataFlagSet reports whether key is present in md and not explicitly
// falsy (false or "false").
func metadataFlagSet(md map[string]interface{}, key string) bool {
	v, ok := md[key]
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "false" && b != ""
	default:
		return true
	}
}
