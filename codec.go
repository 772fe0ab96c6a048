package restfire

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Codec serializes values to and from request / response bodies.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// NewJSONCodec returns the default codec based on encoding/json.
// HTML characters are not escaped, rule expressions like "auth != null && ..." stay readable.
func NewJSONCodec() Codec {
	return jsonCodec{}
}

type jsonCodec struct {
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

var nullBody = []byte("null")

// decodeValue decodes data into target (a non-nil pointer).
// A null document is only accepted when the target type has a "no value" representation.
func decodeValue(codec Codec, data []byte, target any) error {
	if bytes.Equal(bytes.TrimSpace(data), nullBody) {
		return setNoValue(target)
	}
	return codec.Unmarshal(data, target)
}

func setNoValue(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidArgument
	}

	elem := rv.Elem()
	switch elem.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	default:
		return errNoValue
	}
}
