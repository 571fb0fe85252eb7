// Package resource builds and splits Firestore resource names and paths.
package resource

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/firerest/internal/domain"
)

// DefaultDatabase is the only database the client addresses.
const DefaultDatabase = "(default)"

var simpleFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)

// Name returns the fully-qualified resource name for a builder path.
// path is either empty (the documents root) or starts with "/".
func Name(project, path string) string {
	return "projects/" + project + "/databases/" + DefaultDatabase + "/documents" + path
}

// Join appends one segment to a builder path.
func Join(parent, segment string) string {
	return parent + "/" + segment
}

// ValidateSegment rejects segments that would corrupt the path.
func ValidateSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("empty path segment: %w", domain.ErrInvalidOperation)
	}
	return nil
}

// Split parses a slash-separated path into segments, ignoring a leading slash.
// Empty inner segments are rejected.
func Split(path string) ([]string, error) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if err := ValidateSegment(s); err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
	}
	return segments, nil
}

// LastSegment returns the final segment of a resource name, which is the document ID.
func LastSegment(name string) (string, error) {
	i := strings.LastIndexByte(name, '/')
	if i < 0 || i == len(name)-1 {
		return "", fmt.Errorf("resource name %q has no id segment: %w", name, domain.ErrUnexpectedResponse)
	}
	return name[i+1:], nil
}

// IsCollectionPath reports whether a builder path addresses a collection
// (odd number of segments).
func IsCollectionPath(path string) bool {
	segments, err := Split(path)
	if err != nil {
		return false
	}
	return len(segments)%2 == 1
}

// FieldPath quotes a top-level key for use in an update mask.
func FieldPath(key string) string {
	if simpleFieldName.MatchString(key) {
		return key
	}
	escaped := strings.ReplaceAll(key, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	return "`" + escaped + "`"
}

// SplitFieldPath splits a dotted field path into keys, honouring backtick quoting.
func SplitFieldPath(path string) []string {
	var (
		keys    []string
		cur     strings.Builder
		quoted  bool
		escaped bool
	)
	for _, r := range path {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '`':
			quoted = !quoted
		case r == '.' && !quoted:
			keys = append(keys, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(keys, cur.String())
}
