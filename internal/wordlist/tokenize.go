// Package wordlist turns walked paths into a deduplicated word list and persists it.
package wordlist

import (
	"strings"

	"github.com/temirov/srcwords/internal/utils"
)

const (
	forwardSeparator  = '/'
	backwardSeparator = '\\'
)

// Tokenize splits every path on both '/' and '\', flattens the segments in
// path order, drops empty segments, and keeps the first occurrence of each
// distinct segment. Segments are emitted exactly as they appear.
func Tokenize(paths []string) []string {
	segments := make([]string, 0, len(paths)*2)
	for _, path := range paths {
		segments = append(segments, SplitPath(path)...)
	}
	return utils.DeduplicateStrings(segments)
}

// SplitPath returns the non-empty segments of a single path.
func SplitPath(path string) []string {
	return strings.FieldsFunc(path, isSeparator)
}

func isSeparator(character rune) bool {
	return character == forwardSeparator || character == backwardSeparator
}
