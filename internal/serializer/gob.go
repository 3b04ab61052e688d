package serializer

import (
	"bytes"
	"encoding/gob"
)

func init() {
	// Values decoded from JSON on the command line.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// NewGob creates a serializer using Go's gob format.
func NewGob() Serializer {
	return gobSerializer{}
}

type gobSerializer struct{}

// envelope lets gob carry an interface value together with its concrete type.
type envelope struct {
	Value any
}

func (gobSerializer) Name() string { return NameGob }

func (gobSerializer) Serialize(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Value: value}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializer) Deserialize(b []byte) (any, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&env); err != nil {
		return nil, err
	}
	return env.Value, nil
}
