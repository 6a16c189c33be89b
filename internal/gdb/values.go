package gdb

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NullToken is the canonical encoding of a NULL value.
const NullToken = "\x00null"

// CanonicalValue renders v as a workspace-independent string for field f, so that
// rows read from different workspace kinds compare equal when their data is equal.
func CanonicalValue(f Field, v any) string {
	if v == nil {
		return NullToken
	}
	switch f.Type {
	case FieldSmallInteger, FieldInteger, FieldOID:
		if i, ok := toInt64(v); ok {
			return strconv.FormatInt(i, 10)
		}
	case FieldDouble:
		if d, ok := toFloat64(v); ok {
			return strconv.FormatFloat(d, 'g', -1, 64)
		}
	case FieldDate:
		if t, ok := ToTime(v); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case FieldBlob:
		if b, ok := v.([]byte); ok {
			return base64.StdEncoding.EncodeToString(b)
		}
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// NormalizeValue converts v into a plain value (string, int64, float64, bool, []byte)
// suitable for storage in field f. Dates become RFC 3339 strings in UTC.
func NormalizeValue(f Field, v any) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case FieldSmallInteger, FieldInteger, FieldOID:
		if i, ok := toInt64(v); ok {
			return i
		}
	case FieldDouble:
		if d, ok := toFloat64(v); ok {
			return d
		}
	case FieldDate:
		if t, ok := ToTime(v); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case FieldString, FieldGUID, FieldGeometry:
		switch t := v.(type) {
		case string:
			return t
		case []byte:
			return string(t)
		}
		return fmt.Sprint(v)
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if d, err := n.Float64(); err == nil {
			return d
		}
		return n.String()
	}
	return v
}

// ToTime converts time-like values (time.Time, RFC 3339 strings, MM/DD/YYYY strings).
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02", "01/02/2006"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case float32:
		if float64(t) == math.Trunc(float64(t)) {
			return int64(t), true
		}
	case float64:
		if t == math.Trunc(t) {
			return int64(t), true
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return i, true
		}
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case json.Number:
		if d, err := t.Float64(); err == nil {
			return d, true
		}
	case string:
		if d, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return d, true
		}
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// Truthy interprets flag-like values (1, true, "1", "true", "yes").
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "y", "t":
			return true
		}
		return false
	}
	if i, ok := toInt64(v); ok {
		return i != 0
	}
	return false
}

// Lookup returns the record value for name, matching the key case-insensitively.
func Lookup(rec Record, name string) (any, bool) {
	if v, ok := rec[name]; ok {
		return v, true
	}
	for k, v := range rec {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// StringValue returns the record value for name as a string ("" for NULL).
func StringValue(rec Record, name string) string {
	v, ok := Lookup(rec, name)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}

// CompareValues orders two values of field f. NULL sorts first; numbers and dates
// compare by value, everything else by canonical string.
func CompareValues(f Field, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch f.Type {
	case FieldSmallInteger, FieldInteger, FieldOID, FieldDouble:
		x, okA := toFloat64(a)
		y, okB := toFloat64(b)
		if okA && okB {
			return compareOrdered(x, y)
		}
	case FieldDate:
		x, okA := ToTime(a)
		y, okB := ToTime(b)
		if okA && okB {
			return x.Compare(y)
		}
	}
	return strings.Compare(CanonicalValue(f, a), CanonicalValue(f, b))
}

func compareOrdered(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
