package pgwork

import (
	"fmt"
	"strconv"
	"time"
)

// Scanner lets a type participate in field conversion. ScanText receives
// the field's raw text form, or null == true for a SQL NULL, and populates
// the receiver. Implementations own their NULL handling; the engine does
// not pre-filter NULLs for Scanner destinations.
type Scanner interface {
	ScanText(src []byte, null bool) error
}

// Valuer produces the canonical wire text for a value, or null == true to
// transmit a SQL NULL.
type Valuer interface {
	TextValue() (text string, null bool, err error)
}

// ScanText converts a field's raw text form into dest. dest must be a
// non-nil pointer to one of the supported types (string, []byte, the
// signed and unsigned integer widths, float32/float64, bool, time.Time) or
// a Scanner. A NULL source fails with a ConvertError for every destination
// except a Scanner; wrap the target in Null to accept NULLs.
//
// Numeric parsing is strict: leading or trailing garbage and out-of-range
// values are conversion failures, never silent truncation.
func ScanText(dest any, src []byte, null bool) error {
	if s, ok := dest.(Scanner); ok {
		return s.ScanText(src, null)
	}
	if null {
		return &ConvertError{Target: fmt.Sprintf("%T", dest), Err: errNullValue}
	}

	switch d := dest.(type) {
	case *string:
		*d = string(src)
	case *[]byte:
		*d = append([]byte(nil), src...)
	case *bool:
		b, err := parseBool(src)
		if err != nil {
			return &ConvertError{Target: "bool", Value: string(src), Err: err}
		}
		*d = b
	case *int:
		n, err := strconv.ParseInt(string(src), 10, strconv.IntSize)
		if err != nil {
			return &ConvertError{Target: "int", Value: string(src), Err: err}
		}
		*d = int(n)
	case *int8:
		n, err := strconv.ParseInt(string(src), 10, 8)
		if err != nil {
			return &ConvertError{Target: "int8", Value: string(src), Err: err}
		}
		*d = int8(n)
	case *int16:
		n, err := strconv.ParseInt(string(src), 10, 16)
		if err != nil {
			return &ConvertError{Target: "int16", Value: string(src), Err: err}
		}
		*d = int16(n)
	case *int32:
		n, err := strconv.ParseInt(string(src), 10, 32)
		if err != nil {
			return &ConvertError{Target: "int32", Value: string(src), Err: err}
		}
		*d = int32(n)
	case *int64:
		n, err := strconv.ParseInt(string(src), 10, 64)
		if err != nil {
			return &ConvertError{Target: "int64", Value: string(src), Err: err}
		}
		*d = n
	case *uint:
		n, err := strconv.ParseUint(string(src), 10, strconv.IntSize)
		if err != nil {
			return &ConvertError{Target: "uint", Value: string(src), Err: err}
		}
		*d = uint(n)
	case *uint8:
		n, err := strconv.ParseUint(string(src), 10, 8)
		if err != nil {
			return &ConvertError{Target: "uint8", Value: string(src), Err: err}
		}
		*d = uint8(n)
	case *uint16:
		n, err := strconv.ParseUint(string(src), 10, 16)
		if err != nil {
			return &ConvertError{Target: "uint16", Value: string(src), Err: err}
		}
		*d = uint16(n)
	case *uint32:
		n, err := strconv.ParseUint(string(src), 10, 32)
		if err != nil {
			return &ConvertError{Target: "uint32", Value: string(src), Err: err}
		}
		*d = uint32(n)
	case *uint64:
		n, err := strconv.ParseUint(string(src), 10, 64)
		if err != nil {
			return &ConvertError{Target: "uint64", Value: string(src), Err: err}
		}
		*d = n
	case *float32:
		f, err := strconv.ParseFloat(string(src), 32)
		if err != nil {
			return &ConvertError{Target: "float32", Value: string(src), Err: err}
		}
		*d = float32(f)
	case *float64:
		f, err := strconv.ParseFloat(string(src), 64)
		if err != nil {
			return &ConvertError{Target: "float64", Value: string(src), Err: err}
		}
		*d = f
	case *time.Time:
		t, err := parseTimestamp(string(src))
		if err != nil {
			return &ConvertError{Target: "time.Time", Value: string(src), Err: err}
		}
		*d = t
	default:
		return &ConvertError{
			Target: fmt.Sprintf("%T", dest),
			Value:  string(src),
			Err:    fmt.Errorf("unsupported destination type"),
		}
	}
	return nil
}

// FormatText produces the canonical wire text for v, or null == true for a
// nil value or a Valuer reporting NULL. It is the inverse of ScanText and
// is applied to the arguments of Tx.ExecParams.
func FormatText(v any) (text string, null bool, err error) {
	switch val := v.(type) {
	case nil:
		return "", true, nil
	case Valuer:
		return val.TextValue()
	case string:
		return val, false, nil
	case []byte:
		return string(val), false, nil
	case bool:
		if val {
			return "true", false, nil
		}
		return "false", false, nil
	case int:
		return strconv.FormatInt(int64(val), 10), false, nil
	case int8:
		return strconv.FormatInt(int64(val), 10), false, nil
	case int16:
		return strconv.FormatInt(int64(val), 10), false, nil
	case int32:
		return strconv.FormatInt(int64(val), 10), false, nil
	case int64:
		return strconv.FormatInt(val, 10), false, nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), false, nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), false, nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), false, nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), false, nil
	case uint64:
		return strconv.FormatUint(val, 10), false, nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), false, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), false, nil
	case time.Time:
		return val.Format("2006-01-02 15:04:05.999999-07:00"), false, nil
	default:
		return "", false, fmt.Errorf("pgwork: unsupported parameter type %T", v)
	}
}

// parseBool accepts the forms PostgreSQL emits ("t"/"f") plus the spelled
// out literals it accepts on input.
func parseBool(src []byte) (bool, error) {
	switch string(src) {
	case "t", "true":
		return true, nil
	case "f", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean literal")
	}
}

// timestampFormats are tried in order when parsing timestamp, timestamptz,
// and date text. The fractional-second and zone designators are optional
// matches, so each entry covers a family of server outputs.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTimestamp parses the text form of a timestamp, timestamptz, or date
// column.
func parseTimestamp(s string) (time.Time, error) {
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// formatParams runs each argument through FormatText and produces the raw
// parameter vector handed to the protocol client. A nil cell is NULL.
func formatParams(args []any) ([][]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := make([][]byte, len(args))
	for i, arg := range args {
		text, null, err := FormatText(arg)
		if err != nil {
			return nil, fmt.Errorf("pgwork: parameter %d: %w", i+1, err)
		}
		if null {
			params[i] = nil
			continue
		}
		params[i] = []byte(text)
	}
	return params, nil
}
