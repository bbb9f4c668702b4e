package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	v1, err := e.Embed(context.Background(), "mock-v1", []string{"Golden Gate Park"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := e.Embed(context.Background(), "mock-v1", []string{"Golden Gate Park"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range v1[0] {
		if v1[0][i] != v2[0][i] {
			t.Fatalf("expected identical vectors for identical text, diverged at index %d", i)
		}
	}
}

func TestMockEmbedderNormalized(t *testing.T) {
	e := NewMockEmbedder(32)
	vecs, err := e.Embed(context.Background(), "mock-v1", []string{"some content here"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sumSq float64
	for _, x := range vecs[0] {
		sumSq += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sumSq)-1.0) > 1e-4 {
		t.Fatalf("expected unit-normalized vector, norm=%f", math.Sqrt(sumSq))
	}
}

func TestMockEmbedderDimension(t *testing.T) {
	e := NewMockEmbedder(128)
	if e.Dimension("anything") != 128 {
		t.Fatalf("expected dimension 128, got %d", e.Dimension("anything"))
	}
	vecs, _ := e.Embed(context.Background(), "mock-v1", []string{"a"})
	if len(vecs[0]) != 128 {
		t.Fatalf("expected vector length 128, got %d", len(vecs[0]))
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	e := NewMockEmbedder(8)
	if _, err := e.Embed(context.Background(), "mock-v1", nil); err == nil {
		t.Fatal("expected an error for empty input")
	}
	if _, err := e.Embed(context.Background(), "mock-v1", []string{""}); err == nil {
		t.Fatal("expected an error for an empty text")
	}
}
