package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// NewJSON creates a serializer using JSON encoding.
func NewJSON() Serializer {
	return jsonSerializer{}
}

type jsonSerializer struct{}

func (jsonSerializer) Name() string { return NameJSON }

func (jsonSerializer) Serialize(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonSerializer) Deserialize(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json value")
	}
	return out, nil
}
