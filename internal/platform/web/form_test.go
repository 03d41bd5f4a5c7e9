package web

import "testing"

func TestNormalizeNationalID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"V-12345678", "V-12345678"},
		{" v-12345678 ", "V-12345678"},
		{"v- 123 456", "V-123456"},
		{"e-9\t", "E-9"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeNationalID(tt.in); got != tt.want {
			t.Errorf("NormalizeNationalID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
