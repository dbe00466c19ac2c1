package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Asset is a named link to a stored document or specification file.
type Asset struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return marshalJSONColumn([]string(l))
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, (*[]string)(l))
}

type AssetList []Asset

func (l AssetList) Value() (driver.Value, error) {
	return marshalJSONColumn([]Asset(l))
}

func (l *AssetList) Scan(src any) error {
	return scanJSON(src, (*[]Asset)(l))
}

// RawJSON is a nullable jsonb document kept verbatim.
type RawJSON json.RawMessage

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

func (r *RawJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("unsupported jsonb source %T", src)
	}
	return nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	*r = append(RawJSON(nil), data...)
	return nil
}

func marshalJSONColumn[T any](v []T) (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return fmt.Errorf("unsupported jsonb source %T", src)
}
