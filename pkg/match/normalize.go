package match

import "strings"

// NormalizePattern converts a user-provided glob pattern to slash form.
//
// Patterns filter local paths, so every backslash is a Windows separator
// and becomes "/". Match a literal metacharacter with a class ("[*]").
//
//	"photos\2024\**"  → "photos/2024/**"
//	"img\**\*.png"    → "img/**/*.png"
func NormalizePattern(pattern string) string {
	return strings.ReplaceAll(pattern, `\`, "/")
}

// IsHidden reports whether any segment of a slash-separated path starts
// with a dot.
func IsHidden(rel string) bool {
	for seg := range strings.SplitSeq(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
