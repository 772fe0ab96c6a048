package restfire

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
)

const maxErrorBodySize = 64 * 1024

// StreamState ...
type StreamState int

const (
	// StreamIdle means no listener session is running.
	StreamIdle StreamState = iota

	// StreamListening means a listener session is running.
	StreamListening
)

func (s StreamState) String() string {
	if s == StreamListening {
		return "Listening"
	}
	return "Idle"
}

// EventStream delivers the changes of a location and its descendants.
// At most one listener session is active per EventStream.
type EventStream struct {
	db  *Database
	loc Location

	current atomic.Pointer[Listener]
}

func newEventStream(db *Database, loc Location) *EventStream {
	return &EventStream{
		db:  db,
		loc: loc,
	}
}

// Listener is one listener session. Events are delivered in the order they
// were received, the session ends exactly once: cleanly (nil error) or with a failure.
type Listener struct {
	id     string
	events chan StreamEvent
	result *Future[Empty]

	ctx    context.Context
	cancel context.CancelFunc
}

// ID identifies the session in logs.
func (l *Listener) ID() string {
	return l.id
}

// Events is closed after the session ended. A consumer not reading
// the channel blocks the session once the buffer is full.
func (l *Listener) Events() <-chan StreamEvent {
	return l.events
}

// Done is closed when the session ended.
func (l *Listener) Done() <-chan struct{} {
	return l.result.Done()
}

// Err returns the failure of an ended session, nil while running or after a clean end.
func (l *Listener) Err() error {
	select {
	case <-l.result.Done():
		_, err := l.result.Result()
		return err
	default:
		return nil
	}
}

// Wait blocks until the session ended or ctx is done.
func (l *Listener) Wait(ctx context.Context) error {
	_, err := l.result.Wait(ctx)
	return err
}

// OnComplete registers a callback called once when the session ended.
func (l *Listener) OnComplete(callback func(err error)) {
	l.result.OnComplete(func(_ Empty, err error) {
		callback(err)
	})
}

func (l *Listener) finish(err error) bool {
	return l.result.settle(Empty{}, err)
}

// State ...
func (s *EventStream) State() StreamState {
	if s.current.Load() != nil {
		return StreamListening
	}
	return StreamIdle
}

// StartListening opens the event stream. It returns ErrAlreadyActive while another
// session of s is running, the running session is not affected.
func (s *EventStream) StartListening() (*Listener, error) {
	ctx, cancel := context.WithCancel(s.db.ctx)
	l := &Listener{
		id:     uuid.NewString(),
		events: make(chan StreamEvent, s.db.eventBufferSize),
		result: newFuture[Empty](s.db.dispatcher),
		ctx:    ctx,
		cancel: cancel,
	}

	if !s.current.CompareAndSwap(nil, l) {
		cancel()
		return nil, ErrAlreadyActive
	}

	s.db.logger.Infof("Start listening to '%s', session: %s", s.ReferenceURL(), l.id)

	ok := s.db.goRun(func() {
		s.runSession(l)
	})
	if !ok {
		s.current.CompareAndSwap(l, nil)
		cancel()
		close(l.events)
		l.finish(ErrDatabaseClosed)
		return nil, ErrDatabaseClosed
	}
	return l, nil
}

// StopListening ends the running session cleanly and closes its connection.
// It returns ErrNotActive if no session is running.
func (s *EventStream) StopListening() error {
	l := s.current.Swap(nil)
	if l == nil {
		return ErrNotActive
	}

	s.db.logger.Infof("Stop listening to '%s', session: %s", s.ReferenceURL(), l.id)
	l.finish(nil)
	l.cancel()
	return nil
}

func (s *EventStream) runSession(l *Listener) {
	defer close(l.events)
	defer l.cancel()

	err := s.listen(l)

	// idle before the outcome is visible
	s.current.CompareAndSwap(l, nil)

	if err != nil {
		s.db.logger.Warnf("Event stream of '%s' ended, session: %s, error: %v", s.ReferenceURL(), l.id, err)
	} else {
		s.db.logger.Infof("Event stream of '%s' ended, session: %s", s.ReferenceURL(), l.id)
	}
	l.finish(err)
}

func (s *EventStream) newStreamRequest() *Request {
	req := buildGet(s.loc.requestURL(), s.loc.credential)
	req.Header.Set("Accept", "text/event-stream")
	return req
}

func (s *EventStream) checkStreamStatus(resp *StreamResponse) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusTemporaryRedirect:
		return nil
	default:
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return s.db.classifier.checkStatus(s.ReferenceURL(), &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	})
}

// listen returns nil when the server closed the stream or the session was cancelled.
//
//revive:disable-next-line:cognitive-complexity
func (s *EventStream) listen(l *Listener) error {
	refURL := s.ReferenceURL()

	resp, err := s.db.transport.Stream(l.ctx, s.newStreamRequest())
	if err != nil {
		if l.ctx.Err() != nil {
			return nil
		}
		return newError(ErrStreamRequestFailed, refURL, 0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	s.db.logger.Debugf("Received status %d for event stream of '%s'", resp.StatusCode, refURL)

	if err := s.checkStreamStatus(resp); err != nil {
		return err
	}

	reader := newSSEReader(resp.Body)
	for {
		frame, err := reader.next()
		if err != nil {
			if l.ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, errDataWithoutEvent) {
				return newError(ErrDeserialization, refURL, 0, "", err)
			}
			return newError(ErrStreamRequestFailed, refURL, 0, "", err)
		}

		eventType, ok := parseEventType(frame.eventName)
		if !ok {
			return newError(ErrDeserialization, refURL, 0, frame.eventName, errUnknownEventType)
		}

		switch eventType {
		case EventKeepAlive:
			s.db.logger.Debugf("Keep alive received for '%s'", refURL)
			continue

		case EventCancelled:
			return newError(ErrAccessDenied, refURL, 0, frame.data, nil)

		case EventCredentialExpired:
			return newError(ErrCredentialExpired, refURL, 0, frame.data, nil)

		default:
		}

		ev, err := newDataEvent(s.db.codec, eventType, frame.data)
		if err != nil {
			return newError(ErrDeserialization, refURL, 0, frame.data, err)
		}

		select {
		case l.events <- ev:
		case <-l.ctx.Done():
			return nil
		}
	}
}

// ReferenceURL ...
func (s *EventStream) ReferenceURL() string {
	return s.loc.ReferenceURL()
}

// Path ...
func (s *EventStream) Path() string {
	return s.loc.Path()
}

// Reference returns the data reference of the same location.
func (s *EventStream) Reference() *Reference {
	return newReference(s.db, s.loc)
}

// Root ...
func (s *EventStream) Root() *EventStream {
	return newEventStream(s.db, s.loc.Root())
}

// Parent returns the stream of the parent location, the parent of the root is the root itself.
func (s *EventStream) Parent() *EventStream {
	return newEventStream(s.db, s.loc.Parent())
}

// Child returns the stream of a descendant, relativePath is validated with ValidatePath.
func (s *EventStream) Child(relativePath string) (*EventStream, error) {
	if err := ValidatePath(relativePath); err != nil {
		return nil, err
	}
	return newEventStream(s.db, s.loc.Child(relativePath)), nil
}
