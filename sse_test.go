package restfire

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func readAllFrames(r io.Reader) ([]sseFrame, error) {
	reader := newSSEReader(r)
	var frames []sseFrame
	for {
		frame, err := reader.next()
		if err != nil {
			if err == io.EOF {
				return frames, nil
			}
			return frames, err
		}
		frames = append(frames, frame)
	}
}

func TestSSEReader(t *testing.T) {
	t.Run("event with data", func(t *testing.T) {
		frames, err := readAllFrames(strings.NewReader("event: put\ndata: {\"path\":\"/\",\"data\":1}\n\n"))
		assert.Equal(t, nil, err)
		assert.Equal(t, []sseFrame{
			{eventName: "put", data: `{"path":"/","data":1}`},
		}, frames)
	})

	t.Run("split across reads", func(t *testing.T) {
		body := "event: patch\ndata: {\"path\":\"/a\",\"data\":{\"b\":2}}\n\nevent: keep-alive\ndata: null\n\n"
		frames, err := readAllFrames(iotest.OneByteReader(strings.NewReader(body)))
		assert.Equal(t, nil, err)
		assert.Equal(t, []sseFrame{
			{eventName: "patch", data: `{"path":"/a","data":{"b":2}}`},
			{eventName: "keep-alive", data: "null"},
		}, frames)
	})

	t.Run("comments and crlf", func(t *testing.T) {
		body := ": hello\r\n\r\nevent: put\r\ndata: 1\r\n\r\n"
		frames, err := readAllFrames(strings.NewReader(body))
		assert.Equal(t, nil, err)
		assert.Equal(t, []sseFrame{
			{eventName: "put", data: "1"},
		}, frames)
	})

	t.Run("event without data", func(t *testing.T) {
		frames, err := readAllFrames(strings.NewReader("event: cancel\n\nevent: put\ndata: 2"))
		assert.Equal(t, nil, err)
		assert.Equal(t, []sseFrame{
			{eventName: "cancel"},
			{eventName: "put", data: "2"},
		}, frames)
	})

	t.Run("data without event", func(t *testing.T) {
		frames, err := readAllFrames(strings.NewReader("data: 1\n\n"))
		assert.Equal(t, errDataWithoutEvent, err)
		assert.Equal(t, 0, len(frames))
	})

	t.Run("event name kept as sent", func(t *testing.T) {
		frames, err := readAllFrames(strings.NewReader("event: Keep-Alive\ndata: null\n\n"))
		assert.Equal(t, nil, err)
		assert.Equal(t, []sseFrame{
			{eventName: "Keep-Alive", data: "null"},
		}, frames)
	})

	t.Run("ignored fields", func(t *testing.T) {
		frames, err := readAllFrames(strings.NewReader("id: 12\nretry: 100\nevent: put\ndata: 3\n\n"))
		assert.Equal(t, nil, err)
		assert.Equal(t, []sseFrame{
			{eventName: "put", data: "3"},
		}, frames)
	})
}
