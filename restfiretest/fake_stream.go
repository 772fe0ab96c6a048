package restfiretest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/QuangTung97/restfire"
)

// fakeStream writes frames to the body of one event stream.
type fakeStream struct {
	path   string
	writer *io.PipeWriter

	// =================================
	// mutex protect following fields
	// =================================
	mut    sync.Mutex
	cond   *sync.Cond
	queue  []string
	closed bool
	// =================================
}

func newFakeStream(path string, writer *io.PipeWriter) *fakeStream {
	st := &fakeStream{
		path:   path,
		writer: writer,
	}
	st.cond = sync.NewCond(&st.mut)
	return st
}

func (st *fakeStream) push(frame string) {
	st.mut.Lock()
	defer st.mut.Unlock()
	if st.closed {
		return
	}
	st.queue = append(st.queue, frame)
	st.cond.Signal()
}

// close ends the body after the already queued frames.
func (st *fakeStream) close() {
	st.mut.Lock()
	defer st.mut.Unlock()
	st.closed = true
	st.cond.Signal()
}

func (st *fakeStream) getFrames() ([]string, bool) {
	st.mut.Lock()
	defer st.mut.Unlock()

	for {
		if len(st.queue) > 0 {
			frames := st.queue
			st.queue = nil
			return frames, true
		}
		if st.closed {
			return nil, false
		}
		st.cond.Wait()
	}
}

func (st *fakeStream) run() {
	defer func() { _ = st.writer.Close() }()

	for {
		frames, ok := st.getFrames()
		if !ok {
			return
		}
		for _, frame := range frames {
			if _, err := io.WriteString(st.writer, frame); err != nil {
				st.close()
				return
			}
		}
	}
}

func formatFrame(eventName string, data string) string {
	return "event: " + eventName + "\ndata: " + data + "\n\n"
}

func eventData(path string, value any) string {
	return encodeValue(map[string]any{
		"path": path,
		"data": value,
	})
}

// Stream ...
func (s *FakeServer) Stream(ctx context.Context, req *restfire.Request) (*restfire.StreamResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := s.parseURL(req.URL)
	if err != nil {
		return bodyResponse(http.StatusNotFound, errorBody(err.Error())), nil
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	s.record(req, parsed)

	if injected, ok := s.popInjected(); ok {
		if injected.err != nil {
			return nil, injected.err
		}
		return bodyResponse(injected.status, injected.body), nil
	}

	if s.isDenied(parsed) {
		return bodyResponse(http.StatusUnauthorized, errorBody("Permission denied")), nil
	}
	if req.Header.Get("Accept") != "text/event-stream" {
		return bodyResponse(http.StatusBadRequest, errorBody("Accept header must be text/event-stream")), nil
	}

	reader, writer := io.Pipe()
	st := newFakeStream(parsed.path, writer)
	s.streams[st] = struct{}{}

	st.push(formatFrame("put", eventData("/", getAtPath(s.root, splitPath(parsed.path)))))

	go st.run()
	go func() {
		<-ctx.Done()
		s.removeStream(st)
		st.close()
		_ = reader.CloseWithError(ctx.Err())
	}()

	return &restfire.StreamResponse{
		StatusCode: http.StatusOK,
		Body:       reader,
	}, nil
}

func bodyResponse(status int, body string) *restfire.StreamResponse {
	return &restfire.StreamResponse{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func (s *FakeServer) removeStream(st *fakeStream) {
	s.mut.Lock()
	defer s.mut.Unlock()
	delete(s.streams, st)
}

// snapshotStreams returns the encoded value at the path of every stream, with the lock held.
func (s *FakeServer) snapshotStreams() map[*fakeStream]string {
	result := make(map[*fakeStream]string, len(s.streams))
	for st := range s.streams {
		result[st] = encodeValue(getAtPath(s.root, splitPath(st.path)))
	}
	return result
}

// notify must be called with the lock held.
func (s *FakeServer) notify(before map[*fakeStream]string, path string, eventName string, value any) {
	for st, old := range before {
		if isDescendantOrSelf(path, st.path) {
			st.push(formatFrame(eventName, eventData(relativePath(path, st.path), value)))
			continue
		}
		if !isDescendantOrSelf(st.path, path) {
			continue
		}
		current := getAtPath(s.root, splitPath(st.path))
		if encodeValue(current) != old {
			st.push(formatFrame("put", eventData("/", current)))
		}
	}
}

func (s *FakeServer) streamsUnder(path string) []*fakeStream {
	path = cleanPath(path)
	var result []*fakeStream
	for st := range s.streams {
		if isDescendantOrSelf(st.path, path) {
			result = append(result, st)
		}
	}
	return result
}

// StreamCount returns the number of open streams on path or its descendants.
func (s *FakeServer) StreamCount(path string) int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return len(s.streamsUnder(path))
}

// SendRaw writes text as is to the streams on path or its descendants.
func (s *FakeServer) SendRaw(path string, text string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	for _, st := range s.streamsUnder(path) {
		st.push(text)
	}
}

// SendKeepAlive ...
func (s *FakeServer) SendKeepAlive(path string) {
	s.SendRaw(path, formatFrame("keep-alive", "null"))
}

func (s *FakeServer) endStreams(path string, lastFrame string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	for _, st := range s.streamsUnder(path) {
		if len(lastFrame) > 0 {
			st.push(lastFrame)
		}
		st.close()
		delete(s.streams, st)
	}
}

// CancelStreams sends a cancel event, as when the security rules no longer
// allow reading, then closes the streams on path or its descendants.
func (s *FakeServer) CancelStreams(path string) {
	s.endStreams(path, formatFrame("cancel", "null"))
}

// RevokeCredential sends an auth_revoked event then closes every stream.
func (s *FakeServer) RevokeCredential() {
	s.endStreams("", formatFrame("auth_revoked", `"credential is no longer valid"`))
}

// CloseStreams ends the bodies of the streams on path or its descendants.
func (s *FakeServer) CloseStreams(path string) {
	s.endStreams(path, "")
}
