package auth

import "strings"

// MatchPath reports whether a concrete request path matches a rule pattern.
// Patterns are compared segment by segment: "*" matches exactly one segment,
// "**" is only meaningful as the final pattern segment and matches any number
// of trailing segments, including none. All other segments compare exact and
// case-sensitive. Without "**", segment counts must be equal.
func MatchPath(pattern, path string) bool {
	ps := splitSegments(pattern)
	cs := splitSegments(path)

	for i, seg := range ps {
		if seg == "**" {
			// "/a/**" matches "/a" as well as any deeper path.
			return i == len(ps)-1
		}
		if i >= len(cs) {
			return false
		}
		if seg != "*" && seg != cs[i] {
			return false
		}
	}
	return len(ps) == len(cs)
}

// splitSegments splits on "/" dropping empty segments produced by leading,
// trailing or doubled slashes.
func splitSegments(p string) []string {
	raw := strings.Split(p, "/")
	segs := raw[:0]
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
