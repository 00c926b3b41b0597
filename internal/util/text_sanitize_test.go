package util

import "testing"

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	in := "egfr\x00 binds\x01\x02\n\tkras\x7f"
	out := SanitizeText(in)
	if out != "egfr binds\n\tkras" {
		t.Fatalf("unexpected sanitized output: %q", out)
	}
}

func TestSanitizeAllKeepsLength(t *testing.T) {
	out := SanitizeAll([]string{" a\x00 ", "b"})
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Fatalf("unexpected output: %q", out)
	}
}
