package transcoder

import "testing"

func TestCastTextToInteger(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"  42  ", 42},
		{"+7", 7},
		{"-13", -13},
		{"42abc", 42},
		{"-42.9", -42},
		{"abc", 0},
		{"", 0},
		{"9223372036854775807", 9223372036854775807},
	}

	for _, tt := range tests {
		if got := CastTextToInteger(tt.in); got != tt.want {
			t.Errorf("CastTextToInteger(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCastTextToReal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2.5", 2.5},
		{" 2.5 ", 2.5},
		{"-0.25", -0.25},
		{"1e2", 100},
		{"2.5abc", 2.5},
		{"abc", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := CastTextToReal(tt.in); got != tt.want {
			t.Errorf("CastTextToReal(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}
