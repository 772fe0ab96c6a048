package restfire

import (
	"net/url"
	"strings"
)

const jsonSuffix = ".json"

// Location addresses one node of the remote tree. It is immutable,
// every navigation method returns a new value.
type Location struct {
	baseURL    string
	path       string
	credential string
}

// NewLocation creates a Location, the path is stored without leading or trailing separator.
func NewLocation(baseURL string, path string, credential string) Location {
	return Location{
		baseURL:    NormalizePath(baseURL),
		path:       cleanPath(path),
		credential: credential,
	}
}

// Path returns the path relative to the root, the root is the empty string.
func (l Location) Path() string {
	return l.path
}

// BaseURL ...
func (l Location) BaseURL() string {
	return l.baseURL
}

// HasCredential ...
func (l Location) HasCredential() bool {
	return len(l.credential) > 0
}

// IsRoot ...
func (l Location) IsRoot() bool {
	return len(l.path) == 0
}

// ReferenceURL is the externally visible URL of the node, without the document suffix.
// Every path segment is percent-escaped, so keys holding '?', '%' or spaces stay in the path.
func (l Location) ReferenceURL() string {
	return l.baseURL + pathSeparator + escapePath(l.path)
}

// requestURL is the wire-level URL, the auth parameter is added by the request builder.
func (l Location) requestURL() string {
	return l.ReferenceURL() + jsonSuffix
}

// Root ...
func (l Location) Root() Location {
	return Location{
		baseURL:    l.baseURL,
		credential: l.credential,
	}
}

// Parent returns the parent location, the parent of the root is the root itself.
func (l Location) Parent() Location {
	parent, ok := ParentPath(l.path)
	if !ok {
		return l
	}
	return Location{
		baseURL:    l.baseURL,
		path:       parent,
		credential: l.credential,
	}
}

// Child returns the location of a descendant, the relative path is not validated.
func (l Location) Child(relativePath string) Location {
	return Location{
		baseURL:    l.baseURL,
		path:       cleanPath(ConcatPath(l.path, relativePath)),
		credential: l.credential,
	}
}

func escapePath(path string) string {
	if len(path) == 0 {
		return path
	}
	segments := strings.Split(path, pathSeparator)
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, pathSeparator)
}
