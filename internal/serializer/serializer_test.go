package serializer

import (
	"encoding/json"
	"testing"
)

type point struct {
	X, Y int
}

func TestGobPreservesBasicTypes(t *testing.T) {
	s := NewGob()
	cases := []any{42, int64(-7), "hello", true, 3.5, []byte("raw"), []string{"a", "b"}}
	for _, in := range cases {
		b, err := s.Serialize(in)
		if err != nil {
			t.Fatalf("Serialize(%v) error: %v", in, err)
		}
		out, err := s.Deserialize(b)
		if err != nil {
			t.Fatalf("Deserialize(%v) error: %v", in, err)
		}
		switch want := in.(type) {
		case []byte:
			if string(out.([]byte)) != string(want) {
				t.Fatalf("got %v, want %v", out, want)
			}
		case []string:
			got := out.([]string)
			if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
				t.Fatalf("got %v, want %v", got, want)
			}
		default:
			if out != in {
				t.Fatalf("got %#v, want %#v", out, in)
			}
		}
	}
}

func TestGobCustomTypeNeedsRegistration(t *testing.T) {
	Register(point{})
	s := NewGob()
	b, err := s.Serialize(point{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	out, err := s.Deserialize(b)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}
	if out != (point{X: 1, Y: 2}) {
		t.Fatalf("unexpected value %#v", out)
	}
}

func TestGobRejectsGarbage(t *testing.T) {
	if _, err := NewGob().Deserialize([]byte("not gob")); err == nil {
		t.Fatalf("expected error for malformed input")
	}
}

func TestJSONUsesNumbers(t *testing.T) {
	s := NewJSON()
	b, err := s.Serialize(map[string]any{"n": 42})
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	out, err := s.Deserialize(b)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}
	n, ok := out.(map[string]any)["n"].(json.Number)
	if !ok || n.String() != "42" {
		t.Fatalf("expected json.Number 42, got %#v", out)
	}
}

func TestJSONRejectsTrailingData(t *testing.T) {
	if _, err := NewJSON().Deserialize([]byte(`1 2`)); err == nil {
		t.Fatalf("expected error for trailing data")
	}
}

func TestByName(t *testing.T) {
	for name, want := range map[string]string{"": NameGob, "gob": NameGob, "JSON": NameJSON} {
		s, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) error: %v", name, err)
		}
		if s.Name() != want {
			t.Fatalf("ByName(%q) = %s, want %s", name, s.Name(), want)
		}
	}
	if _, err := ByName("yaml"); err == nil {
		t.Fatalf("expected error for unknown serializer")
	}
}
