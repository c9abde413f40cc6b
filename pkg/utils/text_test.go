package utils

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"status 500: upstream failed", 10, "status 500..."},
		{"Café Olé", 4, "Caf..."},
		{"Café Olé", 5, "Café..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	addr := "Avenida São João 1500, Bogotá"
	for n := 1; n < len(addr); n++ {
		if got := Truncate(addr, n); !utf8.ValidString(got) {
			t.Fatalf("Truncate(%q, %d) = %q is not valid UTF-8", addr, n, got)
		}
	}
}
