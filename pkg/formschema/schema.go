package formschema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindString Kind = iota
	KindDecimal
	KindInt
	KindBool
	KindReference
	KindJSON
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindDecimal:
		return "decimal"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindReference:
		return "reference"
	case KindJSON:
		return "json"
	case KindEnum:
		return "enum"
	}
	return "string"
}

// Mode selects whether defaults and required checks apply.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	Default     string
	Options     []string
	NullWords   []string
	NonNegative bool
}

type Value struct {
	Kind    Kind
	Present bool
	Null    bool
	Str     string
	Decimal decimal.Decimal
	Int     int64
	Bool    bool
	JSON    Parsed[json.RawMessage]
}

// NullableDecimal returns nil for an absent or null decimal.
func (v Value) NullableDecimal() *decimal.Decimal {
	if !v.Present || v.Null {
		return nil
	}
	d := v.Decimal
	return &d
}

// NullableString returns nil for an absent or null value.
func (v Value) NullableString() *string {
	if !v.Present || v.Null {
		return nil
	}
	s := v.Str
	return &s
}

type Values map[string]Value

func (vs Values) Get(name string) Value {
	return vs[name]
}

func (vs Values) Has(name string) bool {
	return vs[name].Present
}

// As decodes a JSON field into T, Null when absent, null or of the wrong shape.
func As[T any](v Value) Parsed[T] {
	raw, ok := v.JSON.Get()
	if !v.Present || !ok {
		return Null[T]()
	}
	return ParseOrNull[T](string(raw))
}

type Schema struct {
	fields []Field
}

func New(fields ...Field) Schema {
	return Schema{fields: fields}
}

func (s Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Coerce applies the schema to submitted form values. Keys the schema does
// not declare are ignored. All field failures are reported together as
// errs.ValidationErrors.
func (s Schema) Coerce(form map[string][]string, mode Mode) (Values, error) {
	values := make(Values, len(s.fields))
	var fieldErrs errs.ValidationErrors

	for _, f := range s.fields {
		raws, present := form[f.Name]
		raw := ""
		if len(raws) > 0 {
			raw = raws[0]
		}

		if !present && mode == ModeCreate && f.Default != "" {
			raw, present = f.Default, true
		}

		if present && mode == ModeUpdate && f.Kind == KindEnum && strings.TrimSpace(raw) == "" {
			present = false
		}

		if !present {
			if mode == ModeCreate && f.Required {
				fieldErrs.Add(f.Name, "is required")
			}
			values[f.Name] = Value{Kind: f.Kind}
			continue
		}

		v, msg := coerceField(f, raw)
		if msg != "" {
			fieldErrs.Add(f.Name, msg)
			continue
		}
		if f.Required && v.Null {
			fieldErrs.Add(f.Name, "must not be empty")
			continue
		}
		values[f.Name] = v
	}

	if err := fieldErrs.OrNil(); err != nil {
		return nil, err
	}

	return values, nil
}

func coerceField(f Field, raw string) (Value, string) {
	v := Value{Kind: f.Kind, Present: true}
	trimmed := strings.TrimSpace(raw)

	switch f.Kind {
	case KindString:
		v.Str = trimmed
		v.Null = trimmed == ""

	case KindDecimal:
		if trimmed == "" {
			v.Null = true
			return v, ""
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return v, "must be a number"
		}
		if f.NonNegative && d.IsNegative() {
			return v, "must not be negative"
		}
		v.Decimal = d

	case KindInt:
		if trimmed == "" {
			trimmed = f.Default
		}
		if trimmed == "" {
			return v, ""
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return v, "must be an integer"
		}
		if f.NonNegative && n < 0 {
			return v, "must not be negative"
		}
		v.Int = n

	case KindBool:
		v.Bool = trimmed == "true"

	case KindReference:
		if trimmed == "" || slices.Contains(f.NullWords, trimmed) {
			v.Null = true
			return v, ""
		}
		if _, err := uuid.Parse(trimmed); err != nil {
			return v, "must be a valid id"
		}
		v.Str = trimmed

	case KindJSON:
		v.Str = raw
		v.JSON = ParseOrNull[json.RawMessage](raw)
		v.Null = v.JSON.IsNull()

	case KindEnum:
		if trimmed == "" {
			trimmed = f.Default
		}
		if !slices.Contains(f.Options, trimmed) {
			return v, fmt.Sprintf("must be one of %s", strings.Join(f.Options, ", "))
		}
		v.Str = trimmed
	}

	return v, ""
}
