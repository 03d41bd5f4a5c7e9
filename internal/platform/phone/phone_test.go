package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw, region, want string
	}{
		{"0414-1234567", "VE", "+584141234567"},
		{"+58 212 555 1234", "VE", "+582125551234"},
		{"  ", "VE", ""},
		{"ext. 22", "VE", "ext. 22"},
		{"+1 650-253-0000", "VE", "+16502530000"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.raw, tt.region); got != tt.want {
			t.Errorf("Normalize(%q, %q) = %q, want %q", tt.raw, tt.region, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("04141234567", "ve") {
		t.Error("expected Venezuelan mobile to be valid")
	}
	if Valid("123", "VE") {
		t.Error("expected short number to be invalid")
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("+584141234567", "VE"); got != "0414-1234567" {
		t.Errorf("unexpected national format %q", got)
	}
	if got := Display("free text", "VE"); got != "free text" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
