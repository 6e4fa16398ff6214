package utils

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID(7)
		if len(id) != 7 {
			t.Fatalf("len(%q) = %d, want 7", id, len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune(idAlphabet, r) {
				t.Fatalf("id %q contains %q outside the alphabet", id, r)
			}
		}
		seen[id] = true
	}
	// Over base36^7 values, 100 draws colliding would point at a broken
	// generator.
	if len(seen) < 99 {
		t.Fatalf("only %d distinct ids in 100 draws", len(seen))
	}
}

func TestGenerateIDZeroLength(t *testing.T) {
	if got := GenerateID(0); got != "" {
		t.Fatalf("GenerateID(0) = %q, want empty", got)
	}
}
