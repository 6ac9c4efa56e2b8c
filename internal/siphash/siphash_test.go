package siphash

import "testing"

func TestSum128Deterministic(t *testing.T) {
	data := []byte("rustc 1.70.0 (90c541806 2023-05-31)\x00mylib")
	a := Sum128(data)
	b := Sum128(data)
	if a != b {
		t.Errorf("Sum128 not deterministic: %x != %x", a, b)
	}
}

func TestSum128DiffersOnSingleByteChange(t *testing.T) {
	a := Sum128([]byte("fingerprint-input-a"))
	b := Sum128([]byte("fingerprint-input-b"))
	if a == b {
		t.Errorf("Sum128 collided on near-identical inputs: %x", a)
	}
}

func TestSum128HandlesVariousLengths(t *testing.T) {
	for n := 0; n < 40; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		sum := Sum128(data)
		if sum == ([16]byte{}) && n > 0 {
			t.Errorf("length %d produced an all-zero digest, suspicious", n)
		}
	}
}

func TestHex128Length(t *testing.T) {
	h := Hex128([]byte("abc"))
	if len(h) != 32 {
		t.Errorf("Hex128 length = %d, want 32", len(h))
	}
}

func TestShortHexIsPrefixOfHex128(t *testing.T) {
	data := []byte("some-package-id-v1.2.3")
	full := Hex128(data)
	short := ShortHex(data)
	if len(short) != 16 {
		t.Errorf("ShortHex length = %d, want 16", len(short))
	}
	if full[:16] != short {
		t.Errorf("ShortHex %q is not a prefix of Hex128 %q", short, full)
	}
}

func TestSum128OutputHalvesIndependent(t *testing.T) {
	// Regression guard: the two 64-bit halves must come from distinct
	// finalization states (0xee then 0xdd markers), not the same state
	// hashed twice.
	sum := Sum128([]byte("distinctness-check"))
	var allEqual = true
	for i := 0; i < 8; i++ {
		if sum[i] != sum[i+8] {
			allEqual = false
			break
		}
	}
	if allEqual {
		t.Errorf("both 64-bit halves are byte-identical, finalization constants likely not applied: %x", sum)
	}
}
