package dispatcher

import "strings"

// DefaultPrefix is the conventional first path component identifying
// backend-routed paths.
const DefaultPrefix = "persistent"

// backendPath reports whether path routes to the async backend: its
// first component, after an optional leading separator, must equal the
// configured prefix. Everything else is a fallback path.
func backendPath(prefix, path string) bool {
	if prefix == "" || path == "" {
		return false
	}
	p := strings.TrimPrefix(path, "/")
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}
