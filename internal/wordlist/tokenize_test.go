package wordlist_test

import (
	"reflect"
	"testing"

	"github.com/temirov/srcwords/internal/wordlist"
)

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name     string
		paths    []string
		expected []string
	}{
		{
			name:     "stable first seen order",
			paths:    []string{"/a/b/c", "/a/d"},
			expected: []string{"a", "b", "c", "d"},
		},
		{
			name:     "backslash separators",
			paths:    []string{`src\lib\util.go`, "src/main.go"},
			expected: []string{"src", "lib", "util.go", "main.go"},
		},
		{
			name:     "mixed separators in one path",
			paths:    []string{`web/static\css/site.css`},
			expected: []string{"web", "static", "css", "site.css"},
		},
		{
			name:     "doubled and trailing separators",
			paths:    []string{"//a//b/", `\\c\`},
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "case sensitive and unnormalized",
			paths:    []string{"Admin/admin/ADMIN.php", "admin.PHP"},
			expected: []string{"Admin", "admin", "ADMIN.php", "admin.PHP"},
		},
		{
			name:     "empty input",
			paths:    nil,
			expected: []string{},
		},
		{
			name:     "only separators",
			paths:    []string{"/", `\`, ""},
			expected: []string{},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := wordlist.Tokenize(testCase.paths)
			if !reflect.DeepEqual(result, testCase.expected) {
				t.Fatalf("expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

func TestTokenizeHasNoEmptiesOrDuplicatesAndIsIdempotent(t *testing.T) {
	paths := []string{
		"/srv/app/index.php",
		"/srv/app/admin/index.php",
		`C:\srv\app\admin\config.ini`,
		"srv//app///uploads/",
		"/srv/app/admin",
	}

	first := wordlist.Tokenize(paths)
	second := wordlist.Tokenize(paths)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("tokenize not idempotent: %q vs %q", first, second)
	}

	seen := make(map[string]struct{}, len(first))
	for _, token := range first {
		if token == "" {
			t.Fatalf("empty token in %q", first)
		}
		if _, exists := seen[token]; exists {
			t.Fatalf("duplicate token %q in %q", token, first)
		}
		seen[token] = struct{}{}
	}

	var flattened []string
	for _, path := range paths {
		flattened = append(flattened, wordlist.SplitPath(path)...)
	}
	position := 0
	for _, token := range first {
		for position < len(flattened) && flattened[position] != token {
			position++
		}
		if position == len(flattened) {
			t.Fatalf("token %q out of first-seen order in %q", token, first)
		}
	}
}
