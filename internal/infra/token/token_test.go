package token

import (
	"strings"
	"testing"
)

func TestNewShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		tok := New(6)
		if len(tok) != 6 {
			t.Fatalf("len(%q) = %d, want 6", tok, len(tok))
		}
		for _, c := range tok {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("token %q contains %q outside alphabet", tok, c)
			}
		}
	}
}

func TestNewDefaultLength(t *testing.T) {
	if got := len(New(0)); got != DefaultLength {
		t.Errorf("len(New(0)) = %d, want %d", got, DefaultLength)
	}
	if got := len(New(-3)); got != DefaultLength {
		t.Errorf("len(New(-3)) = %d, want %d", got, DefaultLength)
	}
}

func TestNewNotConstant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[New(6)] = true
	}
	// 50 draws from a 36^6 space colliding into <2 distinct values would
	// mean the generator is broken.
	if len(seen) < 2 {
		t.Errorf("generator produced %d distinct tokens out of 50", len(seen))
	}
}
