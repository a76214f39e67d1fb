package money

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// RawAmount holds a document field exactly as stored: a number, a
// currency-formatted string, or null.
type RawAmount struct {
	value any
}

// NewRawAmount wraps v without interpreting it.
func NewRawAmount(v any) RawAmount { return RawAmount{value: v} }

// Raw returns the wrapped value.
func (r RawAmount) Raw() any { return r.value }

// IsNull reports whether the field was absent or null.
func (r RawAmount) IsNull() bool { return r.value == nil }

func (r *RawAmount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		r.value = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	r.value = v
	return nil
}

func (r RawAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.value)
}

// Scan implements sql.Scanner. Stored values come back as text or numbers.
func (r *RawAmount) Scan(src any) error {
	switch x := src.(type) {
	case nil:
		r.value = nil
	case []byte:
		r.value = string(x)
	case string, float64, int64:
		r.value = x
	default:
		return fmt.Errorf("money: cannot scan %T into RawAmount", src)
	}
	return nil
}

// Value implements driver.Valuer, persisting the field as text.
func (r RawAmount) Value() (driver.Value, error) {
	switch x := r.value.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case Amount:
		return x.String(), nil
	default:
		return fmt.Sprint(x), nil
	}
}
