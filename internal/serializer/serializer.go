package serializer

import (
	"encoding/gob"
	"fmt"
	"strings"
)

const (
	NameGob  = "gob"
	NameJSON = "json"
)

// Serializer converts cache values to bytes and back.
type Serializer interface {
	// Name identifies the format, e.g. "gob".
	Name() string
	// Serialize encodes value into bytes.
	Serialize(value any) ([]byte, error)
	// Deserialize decodes bytes produced by Serialize. Malformed input returns an error.
	Deserialize(b []byte) (any, error)
}

// ByName returns the serializer registered under name; an empty name selects gob.
func ByName(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameGob:
		return NewGob(), nil
	case NameJSON:
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown serializer %q", name)
	}
}

// Default returns the serializer used when a store is built without one.
func Default() Serializer {
	return NewGob()
}

// Register makes a custom type known to the gob serializer.
func Register(value any) {
	gob.Register(value)
}
