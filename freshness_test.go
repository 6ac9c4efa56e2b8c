package kiln

import "testing"

func TestFreshnessString(t *testing.T) {
	if got, want := Fresh.String(), "fresh"; got != want {
		t.Errorf("Fresh.String() = %q, want %q", got, want)
	}
	if got, want := Dirty.String(), "dirty"; got != want {
		t.Errorf("Dirty.String() = %q, want %q", got, want)
	}
}
