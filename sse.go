package restfire

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const (
	eventField = "event"
	dataField  = "data"
)

var (
	errUnknownEventType = errors.New("unknown event type")
	errDataWithoutEvent = errors.New("data line without event line")
)

// sseFrame is one "event: <type>" line with its following "data: <payload>" line.
type sseFrame struct {
	eventName string
	data      string
}

// sseReader reads frames from an event stream body. Lines are buffered,
// a frame split across many body chunks is read as a whole.
type sseReader struct {
	reader *bufio.Reader

	pendingEvent string
	hasEvent     bool
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{
		reader: bufio.NewReader(r),
	}
}

func (r *sseReader) readLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			// last line without terminator
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func splitField(line string) (string, string) {
	index := strings.IndexByte(line, ':')
	if index < 0 {
		return line, ""
	}
	return line[:index], strings.TrimSpace(line[index+1:])
}

// next returns the next frame. An event line without data is returned at the
// following blank line or event line with an empty payload.
// io.EOF is returned when the body ends.
func (r *sseReader) next() (sseFrame, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) && r.hasEvent {
				return r.takeEvent(""), nil
			}
			return sseFrame{}, err
		}

		if len(line) == 0 {
			if r.hasEvent {
				return r.takeEvent(""), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		name, value := splitField(line)
		switch name {
		case eventField:
			if r.hasEvent {
				frame := r.takeEvent("")
				r.pendingEvent = value
				r.hasEvent = true
				return frame, nil
			}
			r.pendingEvent = value
			r.hasEvent = true

		case dataField:
			if !r.hasEvent {
				return sseFrame{}, errDataWithoutEvent
			}
			return r.takeEvent(value), nil

		default:
			// id, retry
		}
	}
}

func (r *sseReader) takeEvent(data string) sseFrame {
	frame := sseFrame{
		eventName: r.pendingEvent,
		data:      data,
	}
	r.pendingEvent = ""
	r.hasEvent = false
	return frame
}
