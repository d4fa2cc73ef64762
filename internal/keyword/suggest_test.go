package keyword

import (
	"context"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"go", "", 2},
		{"kitten", "sitting", 3},
		{"python", "pyhton", 2},
		{"café", "cafe", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBleveIndex_Suggest(t *testing.T) {
	idx := newTestIndex(t)
	seedItems(t, idx)
	ctx := context.Background()

	got, changed, err := idx.Suggest(ctx, "Pyhton develper")
	if err != nil {
		t.Fatal(err)
	}
	if !changed || got != "python developer" {
		t.Errorf("Suggest = %q, %v", got, changed)
	}

	got, changed, err = idx.Suggest(ctx, "react")
	if err != nil {
		t.Fatal(err)
	}
	if changed || got != "react" {
		t.Errorf("known term changed: %q", got)
	}

	got, changed, _ = idx.Suggest(ctx, "zzzzzz")
	if changed || got != "zzzzzz" {
		t.Errorf("unmatched term changed: %q", got)
	}
}
