package pgwork

import "strconv"

// Column represents metadata about a column in a query result.
type Column struct {
	// Name is the column name as reported by the server.
	Name string

	// TypeOID is the PostgreSQL object ID of the column's data type.
	TypeOID uint32

	// Type is the normalized type name ("int4", "text", ...) derived from
	// TypeOID, or "" when the OID is not one of the common built-ins.
	Type string
}

// CommandTag is the command completion tag the server sends when a query
// finishes, e.g. "SELECT 3" or "INSERT 0 1".
type CommandTag string

// String returns the tag verbatim.
func (t CommandTag) String() string {
	return string(t)
}

// RowsAffected returns the number of rows the command affected, parsed from
// the tag's trailing integer. Tags without a count report 0.
func (t CommandTag) RowsAffected() int64 {
	s := string(t)
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end || start == 0 || s[start-1] != ' ' {
		return 0
	}
	n, err := strconv.ParseInt(s[start:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// typeNameForOID maps the common built-in PostgreSQL type OIDs to their
// canonical names. Unknown OIDs map to "".
func typeNameForOID(oid uint32) string {
	switch oid {
	case 16:
		return "bool"
	case 17:
		return "bytea"
	case 18:
		return "char"
	case 19:
		return "name"
	case 20:
		return "int8"
	case 21:
		return "int2"
	case 23:
		return "int4"
	case 25:
		return "text"
	case 26:
		return "oid"
	case 700:
		return "float4"
	case 701:
		return "float8"
	case 1042:
		return "bpchar"
	case 1043:
		return "varchar"
	case 1082:
		return "date"
	case 1083:
		return "time"
	case 1114:
		return "timestamp"
	case 1184:
		return "timestamptz"
	case 1700:
		return "numeric"
	case 2950:
		return "uuid"
	default:
		return ""
	}
}
