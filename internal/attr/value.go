package attr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrConversion marks a stored value that cannot be coerced to the
// requested type.
var ErrConversion = errors.New("conversion error")

// Boolean attributes are stored as these strings in the string slot.
const (
	True  = "Y"
	False = "N"
)

// Value is the normalized (numeric, string) pair stored in an attribute row.
// Exactly one slot carries the payload; which one depends on how the value
// was constructed.
type Value struct {
	Num    float64
	Str    string
	HasStr bool // false when the string slot is NULL
}

// String encodes free text in the string slot.
func String(s string) Value {
	return Value{Str: s, HasStr: true}
}

// Number encodes a float in the numeric slot.
func Number(f float64) Value {
	return Value{Num: f}
}

// Integer encodes an integer in the numeric slot.
func Integer(n int64) Value {
	return Value{Num: float64(n)}
}

// Bool encodes a boolean as "Y" or "N" in the string slot.
func Bool(b bool) Value {
	if b {
		return String(True)
	}
	return String(False)
}

// Text returns the string slot. ok is false when the slot is NULL.
func (v Value) Text() (s string, ok bool) {
	return v.Str, v.HasStr
}

// Float returns the numeric slot.
func (v Value) Float() float64 {
	return v.Num
}

// Int returns the numeric slot truncated toward zero.
func (v Value) Int() int64 {
	return int64(v.Num)
}

// Boolean decodes the string slot. A NULL or empty slot yields false; any
// other unrecognized text is a conversion error.
func (v Value) Boolean() (bool, error) {
	if !v.HasStr || v.Str == "" {
		return false, nil
	}
	return ParseBool(v.Str)
}

// BooleanOr decodes the string slot, returning def when the slot is NULL,
// empty or unrecognized.
func (v Value) BooleanOr(def bool) bool {
	if !v.HasStr || v.Str == "" {
		return def
	}
	b, err := ParseBool(v.Str)
	if err != nil {
		return def
	}
	return b
}

// ParseBool accepts Y/N, YES/NO, TRUE/FALSE and 1/0, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "TRUE", "1":
		return true, nil
	case "N", "NO", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrConversion, s)
}

// Decode builds a Value from the raw column values returned by the driver.
// A NULL numeric slot decodes as 0; a NULL string slot leaves HasStr false.
func Decode(num, str any) (Value, error) {
	var v Value

	switch n := num.(type) {
	case nil:
	case float64:
		v.Num = n
	case int64:
		v.Num = float64(n)
	case []byte:
		f, err := parseFloat(string(n))
		if err != nil {
			return Value{}, err
		}
		v.Num = f
	case string:
		f, err := parseFloat(n)
		if err != nil {
			return Value{}, err
		}
		v.Num = f
	default:
		return Value{}, fmt.Errorf("%w: numeric slot holds %T", ErrConversion, num)
	}

	switch s := str.(type) {
	case nil:
	case string:
		v.Str, v.HasStr = s, true
	case []byte:
		v.Str, v.HasStr = string(s), true
	case int64:
		v.Str, v.HasStr = strconv.FormatInt(s, 10), true
	case float64:
		v.Str, v.HasStr = strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return Value{}, fmt.Errorf("%w: string slot holds %T", ErrConversion, str)
	}

	return v, nil
}

// Args returns the column arguments for the numeric and string slots.
func (v Value) Args() (num float64, str any) {
	if v.HasStr {
		return v.Num, v.Str
	}
	return v.Num, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrConversion, s)
	}
	return f, nil
}

// ToInteger coerces a raw key column (owner id or nr) to an integer.
func ToInteger(raw any) (int64, error) {
	switch n := raw.(type) {
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrConversion, n)
		}
		return int64(n), nil
	case []byte:
		return parseInt(string(n))
	case string:
		return parseInt(n)
	case nil:
		return 0, fmt.Errorf("%w: NULL is not an integer", ErrConversion)
	}
	return 0, fmt.Errorf("%w: %T is not an integer", ErrConversion, raw)
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrConversion, s)
	}
	return n, nil
}

// ToCode coerces a raw code column to a string.
func ToCode(raw any) (string, error) {
	switch s := raw.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case nil:
		return "", fmt.Errorf("%w: NULL code", ErrConversion)
	}
	return "", fmt.Errorf("%w: code holds %T", ErrConversion, raw)
}
