package restfire

import (
	"fmt"
)

// EventType is the kind of a stream event.
type EventType int

const (
	// EventValueSet means the value at Path was replaced.
	EventValueSet EventType = iota + 1

	// EventValueUpdated means the top-level keys of the value were merged at Path.
	EventValueUpdated

	// EventKeepAlive is never delivered, it only keeps the connection open.
	EventKeepAlive

	// EventCancelled means the security rules no longer allow reading the location.
	EventCancelled

	// EventCredentialExpired means the credential was revoked or expired.
	EventCredentialExpired
)

// RootEventPath is the path of events concerning the listened location itself.
const RootEventPath = "/"

// wire names of the event types
var eventTypeTable = map[string]EventType{
	"put":          EventValueSet,
	"patch":        EventValueUpdated,
	"keep-alive":   EventKeepAlive,
	"cancel":       EventCancelled,
	"auth_revoked": EventCredentialExpired,
}

func (t EventType) String() string {
	switch t {
	case EventValueSet:
		return "ValueSet"
	case EventValueUpdated:
		return "ValueUpdated"
	case EventKeepAlive:
		return "KeepAlive"
	case EventCancelled:
		return "Cancelled"
	case EventCredentialExpired:
		return "CredentialExpired"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

func parseEventType(name string) (EventType, bool) {
	t, ok := eventTypeTable[name]
	return t, ok
}

// StreamEvent is a change notification delivered by a Listener.
type StreamEvent struct {
	Type EventType

	// Path is relative to the listened location, RootEventPath for the location itself.
	Path string

	// Data is the raw payload of the event, as sent by the server.
	Data string

	codec     Codec
	enveloped bool
}

func (e StreamEvent) String() string {
	return fmt.Sprintf("%s %s: %s", e.Type, e.Path, e.Data)
}

type eventEnvelope[T any] struct {
	Path string `json:"path"`
	Data T      `json:"data"`
}

// DecodeEventData decodes the value carried by a ValueSet or ValueUpdated event.
func DecodeEventData[T any](ev StreamEvent) (T, error) {
	codec := ev.codec
	if codec == nil {
		codec = NewJSONCodec()
	}

	if !ev.enveloped {
		var value T
		if err := decodeValue(codec, []byte(ev.Data), &value); err != nil {
			var empty T
			return empty, newError(ErrDeserialization, "", 0, ev.Data, err)
		}
		return value, nil
	}

	var envelope eventEnvelope[T]
	if err := codec.Unmarshal([]byte(ev.Data), &envelope); err != nil {
		var empty T
		return empty, newError(ErrDeserialization, "", 0, ev.Data, err)
	}
	return envelope.Data, nil
}

// Value is DecodeEventData with the generic representation of the value.
func (e StreamEvent) Value() (any, error) {
	return DecodeEventData[any](e)
}

// newDataEvent splits a set / update payload into its relative path and value.
// An object with a "path" or "data" key is an envelope, anything else is the value at the root.
func newDataEvent(codec Codec, eventType EventType, payload string) (StreamEvent, error) {
	ev := StreamEvent{
		Type:  eventType,
		Path:  RootEventPath,
		Data:  payload,
		codec: codec,
	}

	var decoded any
	if err := codec.Unmarshal([]byte(payload), &decoded); err != nil {
		return StreamEvent{}, err
	}

	object, ok := decoded.(map[string]any)
	if !ok {
		return ev, nil
	}

	rawPath, hasPath := object["path"]
	_, hasData := object["data"]
	if !hasPath && !hasData {
		return ev, nil
	}
	ev.enveloped = true

	if !hasPath || rawPath == nil {
		return ev, nil
	}
	path, ok := rawPath.(string)
	if !ok {
		return StreamEvent{}, fmt.Errorf("event path is not a string: %v", rawPath)
	}
	if len(path) > 0 {
		ev.Path = path
	}
	return ev, nil
}
