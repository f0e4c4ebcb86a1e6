package validate

import "testing"

func TestRequired(t *testing.T) {
	if Required("  \t ") {
		t.Fatalf("blank value must not pass")
	}
	if !Required(" Wien ") {
		t.Fatalf("non-blank value must pass")
	}
}

func TestMaxRunesCountsCharacters(t *testing.T) {
	if !MaxRunes(" Kölner Dom ", 10) {
		t.Fatalf("10 characters must fit in 10")
	}
	if MaxRunes("Kölner Dom!", 10) {
		t.Fatalf("11 characters must not fit in 10")
	}
}
