package restfire

import (
	"strings"
	"unicode/utf8"
)

const pathSeparator = "/"

// NormalizePath strips one trailing separator.
func NormalizePath(path string) string {
	return strings.TrimSuffix(path, pathSeparator)
}

// ConcatPath joins two paths with a single separator. An empty (or "/") base is the root.
func ConcatPath(base string, child string) string {
	normalizedBase := NormalizePath(base)
	normalizedChild := NormalizePath(strings.TrimPrefix(child, pathSeparator))

	if len(normalizedBase) == 0 {
		return normalizedChild
	}
	if len(normalizedChild) == 0 {
		return normalizedBase
	}
	return normalizedBase + pathSeparator + normalizedChild
}

// ParentPath returns the path with its last segment removed.
// ok = false means the path denotes the root and has no parent.
func ParentPath(path string) (parent string, ok bool) {
	normalized := NormalizePath(path)
	if len(normalized) == 0 {
		return "", false
	}

	index := strings.LastIndex(normalized, pathSeparator)
	if index < 0 {
		return "", true
	}
	return normalized[:index], true
}

// ValidatePath returns ErrInvalidArgument if the path can not address a node of the tree.
// A single leading or trailing separator is allowed, the empty path is the root.
func ValidatePath(path string) error {
	trimmed := NormalizePath(strings.TrimPrefix(path, pathSeparator))
	if len(trimmed) == 0 {
		return nil
	}

	for _, segment := range strings.Split(trimmed, pathSeparator) {
		if err := validateKey(segment); err != nil {
			return err
		}
	}
	return nil
}

func validateKey(key string) error {
	if len(key) == 0 {
		return ErrInvalidArgument
	}
	if !utf8.ValidString(key) {
		return ErrInvalidArgument
	}

	for _, r := range key {
		switch {
		case r < 0x20, r == 0x7f:
			return ErrInvalidArgument
		case r == '.', r == '#', r == '$', r == '[', r == ']':
			return ErrInvalidArgument
		default:
		}
	}
	return nil
}

// cleanPath is the canonical form stored in a Location: no leading or trailing separator.
func cleanPath(path string) string {
	return NormalizePath(strings.TrimPrefix(path, pathSeparator))
}

func lastSegment(path string) string {
	index := strings.LastIndex(path, pathSeparator)
	return path[index+1:]
}
