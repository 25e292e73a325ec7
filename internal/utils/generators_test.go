package utils

import (
	"strings"
	"testing"
)

func TestGenerateBookingCode(t *testing.T) {
	code := GenerateBookingCode()

	if !strings.HasPrefix(code, "BK") {
		t.Errorf("Expected BK prefix, got %s", code)
	}

	// BK + 10-digit unix timestamp + 5 random characters.
	if len(code) != 17 {
		t.Errorf("Expected code length 17, got %d (%s)", len(code), code)
	}

	suffix := code[len(code)-5:]
	for _, c := range suffix {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("Suffix character %q not in alphabet", c)
		}
	}
}

func TestGenerateBookingCodeUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := GenerateBookingCode()
		if seen[code] {
			t.Fatalf("Duplicate booking code generated: %s", code)
		}
		seen[code] = true
	}
}
