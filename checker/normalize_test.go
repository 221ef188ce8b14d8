package checker

import "testing"

func testNormalizer() *Normalizer {
	return NewNormalizer(NormalizerConfig{
		CountryCode:    "88",
		TrunkPrefix:    "01",
		NationalLength: 11,
	})
}

func TestNormalizeAccepts(t *testing.T) {
	n := testNormalizer()
	cases := []struct {
		raw  string
		want string
	}{
		{"+8801712345678", "+8801712345678"},
		{"01812345678", "+8801812345678"},
		{"8801712345678", "+8801712345678"},
		{" +880 17-1234 5678 ", "+8801712345678"},
		{"(018) 123-45678", "+8801812345678"},
		{"+12125551234", "+12125551234"},
	}
	for _, tc := range cases {
		got, ok := n.Normalize(tc.raw)
		if !ok {
			t.Fatalf("Normalize(%q) rejected, expected %q", tc.raw, tc.want)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, expected %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	n := testNormalizer()
	cases := []string{
		"",
		"badnumber",
		"+123",
		"0181234567",     // trunk prefix, one digit short
		"018123456789",   // trunk prefix, one digit long
		"+0123456789012", // leading zero after plus
		"12345",
	}
	for _, raw := range cases {
		if got, ok := n.Normalize(raw); ok {
			t.Fatalf("Normalize(%q) accepted as %q, expected rejection", raw, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := testNormalizer()
	for _, raw := range []string{"01812345678", "8801712345678", "+8801712345678"} {
		first, ok := n.Normalize(raw)
		if !ok {
			t.Fatalf("Normalize(%q) rejected", raw)
		}
		second, ok := n.Normalize(first)
		if !ok {
			t.Fatalf("Normalize(%q) rejected its own output %q", raw, first)
		}
		if second != first {
			t.Fatalf("Normalize not idempotent: %q -> %q -> %q", raw, first, second)
		}
	}
}

func TestNormalizeWithoutHeuristic(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})
	if got, ok := n.Normalize("+8801712345678"); !ok || got != "+8801712345678" {
		t.Fatalf("international input should pass without heuristic, got %q ok=%v", got, ok)
	}
	if _, ok := n.Normalize("01812345678"); ok {
		t.Fatal("national input should be rejected when no country code is configured")
	}
}
