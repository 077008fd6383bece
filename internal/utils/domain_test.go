package utils

import (
	"errors"
	"testing"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Example.COM", "example.com"},
		{"full url", "https://Bad.Example.com/phish?x=1", "bad.example.com"},
		{"trailing dot", "example.com.", "example.com"},
		{"path without scheme", "example.com/login", "example.com"},
		{"unicode", "bücher.de", "xn--bcher-kva.de"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeDomain(tc.input)
			if err != nil {
				t.Fatalf("normalize %q: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeDomainRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "no_tld", "-bad.com", "spaces in.com"} {
		if _, err := NormalizeDomain(input); !errors.Is(err, ErrInvalidDomain) {
			t.Fatalf("expected %q rejected, got %v", input, err)
		}
	}
}
