package pgwork

// Null is a nullable wrapper around any supported value type. It maps a
// SQL NULL to Valid == false instead of failing the conversion.
//
//	var age pgwork.Null[int64]
//	err := row.FieldByName("age").Scan(&age) // hypothetical NULL-able column
//	if age.Valid {
//	    // use age.V
//	}
type Null[T any] struct {
	V     T
	Valid bool // Valid is true if the value is not NULL
}

var _ Scanner = (*Null[int64])(nil)
var _ Valuer = Null[int64]{}

// ScanText implements Scanner. A NULL source resets the wrapper to its zero
// value with Valid == false; any other source is converted as a T.
func (n *Null[T]) ScanText(src []byte, null bool) error {
	if null {
		var zero T
		n.V = zero
		n.Valid = false
		return nil
	}
	if err := ScanText(&n.V, src, false); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// TextValue implements Valuer. An invalid wrapper transmits a SQL NULL.
func (n Null[T]) TextValue() (string, bool, error) {
	if !n.Valid {
		return "", true, nil
	}
	return FormatText(n.V)
}
