package pgwork_test

import (
	"strings"
	"testing"
	"time"

	"github.com/flyarong/pgwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanText_Integers(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		var i64 int64
		require.NoError(t, pgwork.ScanText(&i64, []byte("-42"), false))
		assert.Equal(t, int64(-42), i64)

		var i16 int16
		require.NoError(t, pgwork.ScanText(&i16, []byte("32767"), false))
		assert.Equal(t, int16(32767), i16)

		var u32 uint32
		require.NoError(t, pgwork.ScanText(&u32, []byte("4294967295"), false))
		assert.Equal(t, uint32(4294967295), u32)
	})

	t.Run("Trailing garbage rejected", func(t *testing.T) {
		var n int64
		err := pgwork.ScanText(&n, []byte("42x"), false)
		var ce *pgwork.ConvertError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "int64", ce.Target)
		assert.Equal(t, "42x", ce.Value)
	})

	t.Run("Leading whitespace rejected", func(t *testing.T) {
		var n int
		assert.Error(t, pgwork.ScanText(&n, []byte(" 42"), false))
	})

	t.Run("Out of range rejected, not truncated", func(t *testing.T) {
		var small int8
		err := pgwork.ScanText(&small, []byte("300"), false)
		var ce *pgwork.ConvertError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, int8(0), small, "destination must be untouched on failure")
	})

	t.Run("Negative into unsigned rejected", func(t *testing.T) {
		var u uint64
		assert.Error(t, pgwork.ScanText(&u, []byte("-1"), false))
	})
}

func TestScanText_Floats(t *testing.T) {
	var f64 float64
	require.NoError(t, pgwork.ScanText(&f64, []byte("3.25"), false))
	assert.Equal(t, 3.25, f64)

	var f32 float32
	require.NoError(t, pgwork.ScanText(&f32, []byte("-0.5"), false))
	assert.Equal(t, float32(-0.5), f32)

	assert.Error(t, pgwork.ScanText(&f64, []byte("3.25abc"), false))
	assert.Error(t, pgwork.ScanText(&f64, []byte(""), false))
}

func TestScanText_Bool(t *testing.T) {
	cases := map[string]bool{"t": true, "true": true, "f": false, "false": false}
	for text, want := range cases {
		var b bool
		require.NoError(t, pgwork.ScanText(&b, []byte(text), false), text)
		assert.Equal(t, want, b, text)
	}

	var b bool
	assert.Error(t, pgwork.ScanText(&b, []byte("yes"), false))
	assert.Error(t, pgwork.ScanText(&b, []byte("TRUE"), false))
}

func TestScanText_StringAndBytes(t *testing.T) {
	var s string
	require.NoError(t, pgwork.ScanText(&s, []byte("hello"), false))
	assert.Equal(t, "hello", s)

	src := []byte("shared")
	var b []byte
	require.NoError(t, pgwork.ScanText(&b, src, false))
	src[0] = 'X'
	assert.Equal(t, "shared", string(b), "scanned bytes must not alias the source")
}

func TestScanText_Time(t *testing.T) {
	t.Run("Timestamp with fraction", func(t *testing.T) {
		var ts time.Time
		require.NoError(t, pgwork.ScanText(&ts, []byte("2026-08-23 10:11:12.123456"), false))
		assert.Equal(t, time.Date(2026, 8, 23, 10, 11, 12, 123456000, time.UTC), ts.UTC())
	})

	t.Run("Timestamptz with short offset", func(t *testing.T) {
		var ts time.Time
		require.NoError(t, pgwork.ScanText(&ts, []byte("2026-08-23 10:11:12-04"), false))
		assert.Equal(t, time.Date(2026, 8, 23, 14, 11, 12, 0, time.UTC), ts.UTC())
	})

	t.Run("Date only", func(t *testing.T) {
		var ts time.Time
		require.NoError(t, pgwork.ScanText(&ts, []byte("2026-08-23"), false))
		assert.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), ts.UTC())
	})

	t.Run("Garbage rejected", func(t *testing.T) {
		var ts time.Time
		assert.Error(t, pgwork.ScanText(&ts, []byte("not a time"), false))
	})
}

func TestScanText_NullIntoNonNullable(t *testing.T) {
	var n int64
	err := pgwork.ScanText(&n, nil, true)
	var ce *pgwork.ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "NULL")
}

func TestScanText_UnsupportedDestination(t *testing.T) {
	var ch chan int
	err := pgwork.ScanText(&ch, []byte("x"), false)
	var ce *pgwork.ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Err.Error(), "unsupported")
}

func TestNull(t *testing.T) {
	t.Run("NULL resets to invalid zero", func(t *testing.T) {
		n := pgwork.Null[int64]{V: 7, Valid: true}
		require.NoError(t, n.ScanText(nil, true))
		assert.False(t, n.Valid)
		assert.Equal(t, int64(0), n.V)
	})

	t.Run("Value scans through", func(t *testing.T) {
		var n pgwork.Null[int64]
		require.NoError(t, n.ScanText([]byte("99"), false))
		assert.True(t, n.Valid)
		assert.Equal(t, int64(99), n.V)
	})

	t.Run("Bad text still fails", func(t *testing.T) {
		var n pgwork.Null[int64]
		assert.Error(t, n.ScanText([]byte("ninety-nine"), false))
		assert.False(t, n.Valid)
	})

	t.Run("TextValue", func(t *testing.T) {
		text, null, err := pgwork.Null[string]{}.TextValue()
		require.NoError(t, err)
		assert.True(t, null)
		assert.Empty(t, text)

		text, null, err = pgwork.Null[string]{V: "hi", Valid: true}.TextValue()
		require.NoError(t, err)
		assert.False(t, null)
		assert.Equal(t, "hi", text)
	})
}

func TestFormatText(t *testing.T) {
	t.Run("Nil is NULL", func(t *testing.T) {
		_, null, err := pgwork.FormatText(nil)
		require.NoError(t, err)
		assert.True(t, null)
	})

	t.Run("Scalars", func(t *testing.T) {
		for _, tc := range []struct {
			in   any
			want string
		}{
			{int64(-7), "-7"},
			{uint16(80), "80"},
			{3.5, "3.5"},
			{true, "true"},
			{false, "false"},
			{"text", "text"},
			{[]byte("raw"), "raw"},
		} {
			text, null, err := pgwork.FormatText(tc.in)
			require.NoError(t, err)
			assert.False(t, null)
			assert.Equal(t, tc.want, text)
		}
	})

	t.Run("Time", func(t *testing.T) {
		ts := time.Date(2026, 8, 23, 10, 11, 12, 0, time.UTC)
		text, _, err := pgwork.FormatText(ts)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(text, "2026-08-23 10:11:12"))
	})

	t.Run("Unsupported type", func(t *testing.T) {
		_, _, err := pgwork.FormatText(struct{}{})
		assert.Error(t, err)
	})
}

// Round-tripping a value through the engine and back to text is identity
// for canonically represented values.
func TestFormatText_RoundTrip(t *testing.T) {
	for _, text := range []string{"0", "-12345", "42", "3.25", "-0.5", "plain text"} {
		formatted := text

		var s string
		require.NoError(t, pgwork.ScanText(&s, []byte(text), false))
		out, null, err := pgwork.FormatText(s)
		require.NoError(t, err)
		assert.False(t, null)
		assert.Equal(t, formatted, out)
	}

	var n int64
	require.NoError(t, pgwork.ScanText(&n, []byte("-12345"), false))
	out, _, err := pgwork.FormatText(n)
	require.NoError(t, err)
	assert.Equal(t, "-12345", out)
}

// upperText exercises the Scanner/Valuer extension points.
type upperText struct {
	value string
	null  bool
}

func (u *upperText) ScanText(src []byte, null bool) error {
	if null {
		u.null = true
		return nil
	}
	u.value = strings.ToUpper(string(src))
	return nil
}

func (u upperText) TextValue() (string, bool, error) {
	if u.null {
		return "", true, nil
	}
	return strings.ToLower(u.value), false, nil
}

func TestScanText_CustomScanner(t *testing.T) {
	var u upperText
	require.NoError(t, pgwork.ScanText(&u, []byte("quiet"), false))
	assert.Equal(t, "QUIET", u.value)

	// Scanners own their NULL handling.
	var v upperText
	require.NoError(t, pgwork.ScanText(&v, nil, true))
	assert.True(t, v.null)

	text, null, err := pgwork.FormatText(upperText{value: "LOUD"})
	require.NoError(t, err)
	assert.False(t, null)
	assert.Equal(t, "loud", text)
}
