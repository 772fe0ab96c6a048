package restfiretest

import (
	"strings"
)

func cleanPath(path string) string {
	return strings.Trim(path, "/")
}

func splitPath(path string) []string {
	cleaned := cleanPath(path)
	if len(cleaned) == 0 {
		return nil
	}
	return strings.Split(cleaned, "/")
}

func joinPath(base string, child string) string {
	base = cleanPath(base)
	child = cleanPath(child)
	if len(base) == 0 {
		return child
	}
	if len(child) == 0 {
		return base
	}
	return base + "/" + child
}

// isDescendantOrSelf reports whether path is ancestor itself or below it.
func isDescendantOrSelf(path string, ancestor string) bool {
	if len(ancestor) == 0 || path == ancestor {
		return true
	}
	return strings.HasPrefix(path, ancestor+"/")
}

// relativePath returns path relative to ancestor, in the "/a/b" form of event paths.
func relativePath(path string, ancestor string) string {
	if len(ancestor) == 0 {
		return "/" + path
	}
	return "/" + cleanPath(strings.TrimPrefix(path, ancestor))
}

func getAtPath(node any, segments []string) any {
	current := node
	for _, segment := range segments {
		object, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = object[segment]
	}
	return current
}

// setAtPath stores value at segments under node, a nil value removes the entry
// and the parents it leaves empty.
func setAtPath(node any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}

	object, ok := node.(map[string]any)
	if !ok {
		if value == nil {
			return node
		}
		object = map[string]any{}
	}

	key := segments[0]
	child := setAtPath(object[key], segments[1:], value)
	if child == nil {
		delete(object, key)
	} else {
		object[key] = child
	}

	if len(object) == 0 {
		return nil
	}
	return object
}
