// Package quote holds the single escaping routine used whenever caller
// supplied text is interpolated into SQL: savepoint names, attached
// database names and locations, and text literals in expanded SQL.
//
// Every call site that builds SQL from caller input must go through
// Literal or Identifier instead of escaping by hand.
package quote

import "strings"

// Literal wraps s in single quotes, doubling any single quote inside it.
//
// SQLite accepts a string literal wherever a savepoint name or an ATTACH
// / DETACH schema name is expected, so those names are quoted with it too.
//
// https://www.sqlite.org/lang_expr.html#literal_values_constants_
func Literal(s string) string {
	return wrap(s, '\'')
}

// Identifier wraps s in double quotes, doubling any double quote inside
// it. Use it for table and column names.
//
// https://www.sqlite.org/lang_keywords.html
func Identifier(s string) string {
	return wrap(s, '"')
}

func wrap(s string, q byte) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(q)
	for i := 0; i < len(s); i++ {
		if s[i] == q {
			sb.WriteByte(q)
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte(q)
	return sb.String()
}
