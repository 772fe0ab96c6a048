// Package restfiretest provides an in-memory fake of the remote data store
// implementing restfire.Transport, for tests of code using restfire.
package restfiretest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/QuangTung97/restfire"
)

const (
	jsonSuffix  = ".json"
	priorityKey = ".priority"
	rulesPath   = ".settings/rules"
)

// RecordedRequest is a request received by the FakeServer.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

type injectedResult struct {
	status int
	body   string
	err    error
}

// FakeServer is an in-memory tree store speaking the REST + event stream protocol.
// It is safe for concurrent use.
type FakeServer struct {
	baseURL *url.URL

	// =================================
	// mutex protect following fields
	// =================================
	mut sync.Mutex

	root       any
	priorities map[string]any
	rules      any

	credential string
	denied     []string
	injected   []injectedResult

	requests []RecordedRequest
	streams  map[*fakeStream]struct{}
	// =================================
}

var _ restfire.Transport = &FakeServer{}

// NewFakeServer creates a FakeServer for the base URL, it panics if the URL is invalid.
func NewFakeServer(baseURL string) *FakeServer {
	u, err := url.Parse(restfire.NormalizePath(baseURL))
	if err != nil {
		panic(err)
	}
	return &FakeServer{
		baseURL:    u,
		priorities: map[string]any{},
		rules: map[string]any{
			"rules": map[string]any{
				restfire.ReadKey:  true,
				restfire.WriteKey: true,
			},
		},
		streams: map[*fakeStream]struct{}{},
	}
}

// BaseURL ...
func (s *FakeServer) BaseURL() string {
	return s.baseURL.String()
}

// RequireCredential makes every request without this credential fail with 401.
func (s *FakeServer) RequireCredential(credential string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.credential = credential
}

// Deny makes every request on path or its descendants fail with 401.
func (s *FakeServer) Deny(path string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.denied = append(s.denied, cleanPath(path))
}

// InjectResponse makes the next request (or stream) receive this status and body.
func (s *FakeServer) InjectResponse(status int, body string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.injected = append(s.injected, injectedResult{status: status, body: body})
}

// InjectError makes the next request (or stream) fail at transport level.
func (s *FakeServer) InjectError(err error) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.injected = append(s.injected, injectedResult{err: err})
}

// Requests returns the received requests, in order.
func (s *FakeServer) Requests() []RecordedRequest {
	s.mut.Lock()
	defer s.mut.Unlock()
	result := make([]RecordedRequest, len(s.requests))
	copy(result, s.requests)
	return result
}

// Value returns a copy of the stored value at path, nil when absent.
func (s *FakeServer) Value(path string) any {
	s.mut.Lock()
	defer s.mut.Unlock()
	return normalizeValue(getAtPath(s.root, splitPath(path)))
}

// Put stores value at path directly and notifies the streams, as a PUT request would.
func (s *FakeServer) Put(path string, value any) {
	normalized := normalizeValue(value)

	s.mut.Lock()
	defer s.mut.Unlock()
	s.applyPut(cleanPath(path), normalized)
}

// Priority returns the priority of the node at path.
func (s *FakeServer) Priority(path string) (any, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	p, ok := s.priorities[cleanPath(path)]
	return p, ok
}

type parsedRequest struct {
	path  string
	query url.Values
	auth  string
}

var errBadURL = errors.New("url does not belong to the fake server")

func (s *FakeServer) parseURL(rawURL string) (parsedRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return parsedRequest{}, err
	}
	if u.Scheme != s.baseURL.Scheme || u.Host != s.baseURL.Host {
		return parsedRequest{}, errBadURL
	}
	if !strings.HasPrefix(u.Path, s.baseURL.Path+"/") {
		return parsedRequest{}, errBadURL
	}
	path := strings.TrimPrefix(u.Path, s.baseURL.Path)
	if !strings.HasSuffix(path, jsonSuffix) {
		return parsedRequest{}, errBadURL
	}
	path = strings.TrimSuffix(path, jsonSuffix)

	query := u.Query()
	auth := query.Get("auth")
	query.Del("auth")

	return parsedRequest{
		path:  cleanPath(path),
		query: query,
		auth:  auth,
	}, nil
}

func (s *FakeServer) record(req *restfire.Request, parsed parsedRequest) {
	s.requests = append(s.requests, RecordedRequest{
		Method: req.Method,
		Path:   parsed.path,
		Query:  parsed.query,
		Header: req.Header.Clone(),
		Body:   string(req.Body),
	})
}

func (s *FakeServer) popInjected() (injectedResult, bool) {
	if len(s.injected) == 0 {
		return injectedResult{}, false
	}
	result := s.injected[0]
	s.injected = s.injected[1:]
	return result, true
}

func (s *FakeServer) isDenied(parsed parsedRequest) bool {
	if len(s.credential) > 0 && parsed.auth != s.credential {
		return true
	}
	for _, prefix := range s.denied {
		if isDescendantOrSelf(parsed.path, prefix) {
			return true
		}
	}
	return false
}

func errorBody(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}

func response(status int, body string) *restfire.Response {
	return &restfire.Response{
		StatusCode: status,
		Body:       []byte(body),
	}
}

func encodeValue(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Do ...
func (s *FakeServer) Do(ctx context.Context, req *restfire.Request) (*restfire.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := s.parseURL(req.URL)
	if err != nil {
		return response(http.StatusNotFound, errorBody(err.Error())), nil
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	s.record(req, parsed)

	if injected, ok := s.popInjected(); ok {
		if injected.err != nil {
			return nil, injected.err
		}
		return response(injected.status, injected.body), nil
	}

	if s.isDenied(parsed) {
		return response(http.StatusUnauthorized, errorBody("Permission denied")), nil
	}

	if parsed.path == rulesPath {
		return s.handleRules(req), nil
	}
	if parent, ok := priorityTarget(parsed.path); ok {
		return s.handlePriority(req, parent), nil
	}
	return s.handleData(req, parsed), nil
}

func (s *FakeServer) handleRules(req *restfire.Request) *restfire.Response {
	switch req.Method {
	case http.MethodGet:
		return response(http.StatusOK, encodeValue(s.rules))
	case http.MethodPut:
		var value any
		if err := json.Unmarshal(req.Body, &value); err != nil {
			return response(http.StatusBadRequest, errorBody("Invalid data; couldn't parse JSON object."))
		}
		s.rules = value
		return response(http.StatusOK, encodeValue(map[string]string{"status": "ok"}))
	default:
		return response(http.StatusMethodNotAllowed, errorBody("Method not allowed"))
	}
}

func (s *FakeServer) handlePriority(req *restfire.Request, path string) *restfire.Response {
	switch req.Method {
	case http.MethodGet:
		return response(http.StatusOK, encodeValue(s.priorities[path]))
	case http.MethodPut:
		var value any
		if err := json.Unmarshal(req.Body, &value); err != nil {
			return response(http.StatusBadRequest, errorBody("Invalid data; couldn't parse JSON object."))
		}
		if value == nil {
			delete(s.priorities, path)
		} else {
			s.priorities[path] = value
		}
		return response(http.StatusOK, string(req.Body))
	case http.MethodDelete:
		delete(s.priorities, path)
		return response(http.StatusOK, "null")
	default:
		return response(http.StatusMethodNotAllowed, errorBody("Method not allowed"))
	}
}

func (s *FakeServer) handleData(req *restfire.Request, parsed parsedRequest) *restfire.Response {
	switch req.Method {
	case http.MethodGet:
		value := getAtPath(s.root, splitPath(parsed.path))
		if len(parsed.query) > 0 {
			filtered, err := s.applyQuery(parsed.path, value, parsed.query)
			if err != nil {
				return response(http.StatusBadRequest, errorBody(err.Error()))
			}
			value = filtered
		}
		return response(http.StatusOK, encodeValue(value))

	case http.MethodPut:
		var value any
		if err := json.Unmarshal(req.Body, &value); err != nil {
			return response(http.StatusBadRequest, errorBody("Invalid data; couldn't parse JSON object."))
		}
		s.applyPut(parsed.path, value)
		return response(http.StatusOK, encodeValue(value))

	case http.MethodPatch:
		var updates map[string]any
		if err := json.Unmarshal(req.Body, &updates); err != nil || updates == nil {
			return response(http.StatusBadRequest, errorBody("Invalid data; couldn't parse JSON object."))
		}
		s.applyPatch(parsed.path, updates)
		return response(http.StatusOK, encodeValue(updates))

	case http.MethodPost:
		var value any
		if err := json.Unmarshal(req.Body, &value); err != nil {
			return response(http.StatusBadRequest, errorBody("Invalid data; couldn't parse JSON object."))
		}
		key := ulid.Make().String()
		s.applyPut(joinPath(parsed.path, key), value)
		return response(http.StatusOK, encodeValue(map[string]string{"name": key}))

	case http.MethodDelete:
		s.applyPut(parsed.path, nil)
		return response(http.StatusOK, "null")

	default:
		return response(http.StatusMethodNotAllowed, errorBody("Method not allowed"))
	}
}

// applyPut must be called with the lock held.
func (s *FakeServer) applyPut(path string, value any) {
	before := s.snapshotStreams()
	s.root = setAtPath(s.root, splitPath(path), value)
	s.notify(before, path, "put", value)
}

// applyPatch must be called with the lock held.
func (s *FakeServer) applyPatch(path string, updates map[string]any) {
	before := s.snapshotStreams()
	for key, child := range updates {
		s.root = setAtPath(s.root, splitPath(joinPath(path, key)), child)
	}
	s.notify(before, path, "patch", updates)
}

func priorityTarget(path string) (string, bool) {
	if path == priorityKey {
		return "", true
	}
	if strings.HasSuffix(path, "/"+priorityKey) {
		return strings.TrimSuffix(path, "/"+priorityKey), true
	}
	return "", false
}

func normalizeValue(value any) any {
	if value == nil {
		return nil
	}
	var result any
	if err := json.Unmarshal([]byte(encodeValue(value)), &result); err != nil {
		panic(fmt.Sprintf("value is not a json value: %v", err))
	}
	return result
}
