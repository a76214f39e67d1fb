package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Dater is implemented by timestamp values that expose their instant
// through an accessor rather than raw fields.
type Dater interface {
	ToDate() time.Time
}

// Timestamp accepts the shapes document stores emit for createdAt:
// {seconds, nanoseconds}, {_seconds, _nanoseconds}, RFC3339 strings and
// Dater values.
type Timestamp struct {
	time.Time
}

// Now returns the current instant as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

// TimestampFrom converts any supported timestamp shape.
func TimestampFrom(v any) (Timestamp, bool) {
	switch x := v.(type) {
	case nil:
		return Timestamp{}, false
	case Timestamp:
		return x, true
	case time.Time:
		return Timestamp{Time: x}, true
	case *time.Time:
		if x == nil {
			return Timestamp{}, false
		}
		return Timestamp{Time: *x}, true
	case Dater:
		return Timestamp{Time: x.ToDate()}, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return Timestamp{}, false
		}
		return Timestamp{Time: t}, true
	case map[string]any:
		return fromSecondsMap(x)
	default:
		return Timestamp{}, false
	}
}

func fromSecondsMap(m map[string]any) (Timestamp, bool) {
	secs, ok := number(m, "seconds", "_seconds")
	if !ok {
		return Timestamp{}, false
	}
	nanos, _ := number(m, "nanoseconds", "_nanoseconds")
	return Timestamp{Time: time.Unix(secs, nanos).UTC()}, true
}

func number(m map[string]any, keys ...string) (int64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int64(v), true
		case int64:
			return v, true
		case int:
			return int64(v), true
		case json.Number:
			n, err := v.Int64()
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	ts, ok := TimestampFrom(v)
	if !ok {
		return fmt.Errorf("models: unsupported timestamp %s", string(data))
	}
	*t = ts
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch x := src.(type) {
	case nil:
		*t = Timestamp{}
	case time.Time:
		*t = Timestamp{Time: x}
	default:
		return fmt.Errorf("models: cannot scan %T into Timestamp", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Time, nil
}
