package core

import (
	"context"
	"testing"
)

type stubHandle struct {
	resp ValidationResponse
	err  error
}

func (s *stubHandle) Evaluate(ctx context.Context, req ValidationRequest) (ValidationResponse, error) {
	return s.resp, s.err
}

func TestIntentClassifierKeywordFastPath(t *testing.T) {
	c := NewIntentClassifier([]string{"transfer"}, nil)
	e := &Entry{
		Content:  "I hereby transfer my rights to this work.",
		Metadata: map[string]interface{}{"asset.id": "asset-1", "asset.to": "bob"},
	}
	got, err := c.Classify(context.Background(), e)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !got.IsTransfer || !got.Confident {
		t.Fatalf("expected confident transfer classification, got %+v", got)
	}
}

func TestIntentClassifierKeywordWithoutAssetMetadataIsAmbiguous(t *testing.T) {
	c := NewIntentClassifier([]string{"transfer"}, nil)
	e := &Entry{Content: "I hereby transfer my rights to this work."}
	got, err := c.Classify(context.Background(), e)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Confident {
		t.Fatalf("expected disagreement between keyword and metadata to be non-confident, got %+v", got)
	}
}

func TestIntentClassifierForcesSlowPathWhenRequired(t *testing.T) {
	handle := &stubHandle{resp: ValidationResponse{Status: StatusInvalid}}
	v := NewValidator(handle, DefaultConfig())
	c := NewIntentClassifier([]string{"transfer"}, v)

	e := &Entry{
		Content:  "I hereby transfer my rights to this work.",
		Metadata: map[string]interface{}{"asset.id": "asset-1", "asset.to": "bob", "transfer_classification_required": true},
	}
	got, err := c.Classify(context.Background(), e)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Confident {
		t.Fatal("transfer_classification_required must always escalate to the slow path")
	}
	if got.IsTransfer {
		t.Fatal("expected slow path to report non-transfer for a StatusInvalid response")
	}
}

func TestIntentClassifierNoKeywordNoAssetMetadata(t *testing.T) {
	c := NewIntentClassifier([]string{"transfer"}, nil)
	e := &Entry{Content: "Just a regular note about the weather."}
	got, err := c.Classify(context.Background(), e)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.IsTransfer || !got.Confident {
		t.Fatalf("expected confident non-transfer classification, got %+v", got)
	}
}

func TestIntentClassifierSlowPathViaValidator(t *testing.T) {
	handle := &stubHandle{resp: ValidationResponse{Status: StatusValid}}
	v := NewValidator(handle, DefaultConfig())
	c := NewIntentClassifier([]string{"transfer"}, v)

	e := &Entry{
		Content:  "The undersigned grants the item described below to the recipient.",
		Metadata: map[string]interface{}{"asset.id": "asset-1", "asset.to": "bob"},
	}
	got, err := c.Classify(context.Background(), e)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !got.IsTransfer {
		t.Fatal("expected slow path to classify as transfer")
	}
	if got.Confident {
		t.Fatal("slow-path decisions should not be marked confident")
	}
}

func TestIntentClassifierAmbiguousWithoutValidator(t *testing.T) {
	c := NewIntentClassifier([]string{"transfer"}, nil)
	e := &Entry{
		Content:  "Here is a description of the item in question.",
		Metadata: map[string]interface{}{"asset.id": "asset-1", "asset.to": "bob"},
	}
	got, err := c.Classify(context.Background(), e)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.IsTransfer || got.Confident {
		t.Fatalf("expected non-confident non-transfer without a validator, got %+v", got)
	}
}
