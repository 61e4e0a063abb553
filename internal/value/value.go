// Package value defines Value, the closed set of storage classes a SQLite
// column or parameter can hold.
//
//   - https://www.sqlite.org/datatype3.html
package value

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nsqlite/litebind/internal/quote"
)

// Kind is the storage class of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a tagged union over the storage classes. Exactly one payload is
// meaningful, selected by Kind. The zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the NULL value.
func Null() Value {
	return Value{}
}

// Integer returns an INTEGER value.
func Integer(i int64) Value {
	return Value{kind: KindInteger, i: i}
}

// Real returns a REAL value.
func Real(f float64) Value {
	return Value{kind: KindReal, f: f}
}

// Text returns a TEXT value.
func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

// Blob returns a BLOB value. A nil slice is stored as an empty blob, it
// never turns into NULL.
func Blob(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBlob, b: b}
}

// Kind returns the storage class of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsInt64 returns the INTEGER payload.
func (v Value) AsInt64() (int64, bool) {
	return v.i, v.kind == KindInteger
}

// AsFloat64 returns the REAL payload.
func (v Value) AsFloat64() (float64, bool) {
	return v.f, v.kind == KindReal
}

// AsText returns the TEXT payload.
func (v Value) AsText() (string, bool) {
	return v.s, v.kind == KindText
}

// AsBlob returns the BLOB payload. The returned slice is shared with v.
func (v Value) AsBlob() ([]byte, bool) {
	return v.b, v.kind == KindBlob
}

// Interface returns the payload as nil, int64, float64, string or []byte.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether v and other have the same kind and payload.
// Values of different kinds are never equal, so Integer(0) != Null().
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindInteger:
		return v.i == other.i
	case KindReal:
		return v.f == other.f
	case KindText:
		return v.s == other.s
	case KindBlob:
		return bytes.Equal(v.b, other.b)
	default:
		return true
	}
}

// Compare orders a and b the way SQLite sorts them with the BINARY
// collation: NULL first, then numbers (INTEGER and REAL compared by
// numeric value), then TEXT, then BLOB.
//
// https://www.sqlite.org/datatype3.html#sort_order
func Compare(a, b Value) int {
	ra, rb := rank(a.kind), rank(b.kind)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch a.kind {
	case KindNull:
		return 0
	case KindInteger, KindReal:
		return compareNumeric(a, b)
	case KindText:
		return strings.Compare(a.s, b.s)
	default:
		return bytes.Compare(a.b, b.b)
	}
}

func rank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindInteger, KindReal:
		return 1
	case KindText:
		return 2
	default:
		return 3
	}
}

func compareNumeric(a, b Value) int {
	if a.kind == KindInteger && b.kind == KindInteger {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	}

	af, bf := a.f, b.f
	if a.kind == KindInteger {
		af = float64(a.i)
	}
	if b.kind == KindInteger {
		bf = float64(b.i)
	}

	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

// Literal renders v as an SQL literal that evaluates back to v.
func (v Value) Literal() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return formatReal(v.f)
	case KindText:
		return quote.Literal(v.s)
	case KindBlob:
		return "X'" + strings.ToUpper(hex.EncodeToString(v.b)) + "'"
	default:
		return "NULL"
	}
}

func formatReal(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "9e999"
	case math.IsInf(f, -1):
		return "-9e999"
	case math.IsNaN(f):
		return "NULL"
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// String returns a human readable form of v, used in logs and the shell.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBlob:
		return fmt.Sprintf("<blob %d bytes>", len(v.b))
	default:
		return "NULL"
	}
}
