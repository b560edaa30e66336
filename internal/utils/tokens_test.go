package utils

import "testing"

func TestNewLinkCodeRoundTrip(t *testing.T) {
	code, err := NewLinkCode()
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != LinkCodeLen {
		t.Fatalf("len = %d", len(code))
	}
	got, ok := NormalizeLinkCode("«" + code + "».")
	if !ok || got != code {
		t.Fatalf("NormalizeLinkCode = %q, %v", got, ok)
	}
}

func TestNormalizeLinkCode(t *testing.T) {
	cases := map[string]bool{
		"0123456789abcdef0123456789ABCDEF":            true,
		" `0123 4567 89AB CDEF 0123 4567 89AB CDEF` ": true,
		"0123":                               false,
		"":                                   false,
		"0123456789ABCDEF0123456789ABCDEF00": false,
	}
	for in, want := range cases {
		if _, ok := NormalizeLinkCode(in); ok != want {
			t.Errorf("NormalizeLinkCode(%q) ok = %v, want %v", in, ok, want)
		}
	}
}
