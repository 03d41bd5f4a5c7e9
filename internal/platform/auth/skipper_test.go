package auth

import "testing"

func TestIsPublicPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/metrics", false},
		{"/media/slides/abc.png", true},
		{"/static/site.css", true},
		{"/", false},
		{"/dashboard", false},
		{"/mediafile", false},
		{"/login", false},
	}
	for _, tt := range tests {
		if got := IsPublicPath(tt.path); got != tt.want {
			t.Errorf("IsPublicPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
