package security

import "testing"

func TestHashToken_Deterministic(t *testing.T) {
	a := HashToken("refresh-token-1")
	b := HashToken("refresh-token-1")
	if a != b {
		t.Errorf("hashes differ: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == HashToken("refresh-token-2") {
		t.Error("different tokens should hash differently")
	}
}

func TestTokenHashEqual(t *testing.T) {
	stored := HashToken("refresh-token-1")
	if !TokenHashEqual("refresh-token-1", stored) {
		t.Error("matching token should compare equal")
	}
	if TokenHashEqual("refresh-token-2", stored) {
		t.Error("mismatched token should not compare equal")
	}
}
