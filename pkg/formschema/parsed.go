package formschema

import (
	"encoding/json"
	"strings"
)

// Parsed is the outcome of a lenient decode: either a value or null.
type Parsed[T any] struct {
	value T
	ok    bool
}

func Ok[T any](v T) Parsed[T] {
	return Parsed[T]{value: v, ok: true}
}

func Null[T any]() Parsed[T] {
	return Parsed[T]{}
}

func (p Parsed[T]) Get() (T, bool) {
	return p.value, p.ok
}

func (p Parsed[T]) IsNull() bool {
	return !p.ok
}

func (p Parsed[T]) OrElse(def T) T {
	if p.ok {
		return p.value
	}
	return def
}

// ParseOrNull decodes raw as JSON into T. Blank input, a literal null and
// malformed JSON all yield Null.
func ParseOrNull[T any](raw string) Parsed[T] {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Null[T]()
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Null[T]()
	}

	return Ok(v)
}
