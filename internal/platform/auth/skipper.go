package auth

import "strings"

// publicPaths bypass session resolution entirely: infrastructure endpoints
// and static media that never depend on who is asking.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

var publicPrefixes = []string{
	"/media/",
	"/static/",
}

// IsPublicPath reports whether path skips session resolution.
func IsPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
