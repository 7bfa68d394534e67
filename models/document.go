package models

import (
	"encoding/json"
	"time"
)

// Document is the loosely typed shape records take in either store. Remote
// documents come back with int64 counters, time.Time timestamps and []any
// arrays; local JSON comes back with float64 numbers and RFC3339 strings. The
// accessors below accept both so decode functions never have to care.
type Document map[string]any

func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func (d Document) Int(key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, _ := v.Float64()
			return int(f)
		}
		return int(n)
	}
	return 0
}

// Count reads a counter field. Missing or negative values read as 0.
func (d Document) Count(key string) int {
	n := d.Int(key)
	if n < 0 {
		return 0
	}
	return n
}

func (d Document) Bool(key string, fallback bool) bool {
	v, ok := d[key].(bool)
	if !ok {
		return fallback
	}
	return v
}

// Strings reads a string array. Anything that is not an array reads as empty.
func (d Document) Strings(key string) []string {
	out := []string{}
	switch v := d[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(v))
	case int64:
		return time.UnixMilli(v)
	}
	return time.Time{}
}

// Clone copies the document and any slices it holds.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		switch vv := v.(type) {
		case []any:
			out[k] = append([]any(nil), vv...)
		case []string:
			out[k] = append([]string(nil), vv...)
		case map[string]any:
			out[k] = map[string]any(Document(vv).Clone())
		default:
			out[k] = v
		}
	}
	return out
}

// setString writes a string field only when it is non-empty.
func (d Document) setString(key, value string) {
	if value != "" {
		d[key] = value
	}
}
