package sqlite

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
	"github.com/nsqlite/litebind/internal/binding"
	"github.com/nsqlite/litebind/internal/sqlerr"
	"github.com/nsqlite/litebind/internal/value"
)

// Row holds the values of one result row.
//
// Values are copied out of the engine when the row is produced, so a Row
// never changes and stays readable after its statement moves on.
type Row struct {
	columns []string
	values  []value.Value
	codec   binding.Codec
}

// mapper maps result columns onto struct fields by their `db` tag, or by
// the lower cased field name when there is no tag.
var mapper = reflectx.NewMapperFunc("db", strings.ToLower)

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.values)
}

// Columns returns the column names.
func (r *Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Values returns the column values in order.
func (r *Row) Values() []value.Value {
	return append([]value.Value(nil), r.values...)
}

// At returns the value of column i, NULL when i is out of range.
func (r *Row) At(i int) value.Value {
	if i < 0 || i >= len(r.values) {
		return value.Null()
	}
	return r.values[i]
}

// Index returns the position of the first column called name, matched
// exactly and then case insensitively, or -1.
func (r *Row) Index(name string) int {
	for i, col := range r.columns {
		if col == name {
			return i
		}
	}
	for i, col := range r.columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Named returns the value of the column called name.
func (r *Row) Named(name string) (value.Value, bool) {
	i := r.Index(name)
	if i < 0 {
		return value.Null(), false
	}
	return r.values[i], true
}

// Scan converts the columns into dest, one destination per column.
func (r *Row) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return sqlerr.Usage(sqlerr.ErrArity,
			fmt.Sprintf("row has %d columns, got %d destinations", len(r.values), len(dest)))
	}

	for i, d := range dest {
		if err := r.codec.Scan(r.values[i], d); err != nil {
			return fmt.Errorf("failed to scan column %q: %w", r.columns[i], err)
		}
	}
	return nil
}

// ScanStruct converts the columns into the fields of the struct dest
// points to. Every column needs a matching field.
func (r *Row) ScanStruct(dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return sqlerr.Conversionf("destination must be a non-nil pointer to a struct, got %T", dest)
	}
	v = v.Elem()

	traversals := mapper.TraversalsByName(v.Type(), r.columns)
	for i, traversal := range traversals {
		if len(traversal) == 0 {
			return sqlerr.Conversionf("missing destination name %s in %T", r.columns[i], dest)
		}
		field := reflectx.FieldByIndexes(v, traversal)
		if err := r.codec.Scan(r.values[i], field.Addr().Interface()); err != nil {
			return fmt.Errorf("failed to scan column %q: %w", r.columns[i], err)
		}
	}

	return nil
}

// Get returns column i of row as a T.
func Get[T any](row *Row, i int) (T, error) {
	if i < 0 || i >= row.Len() {
		var zero T
		return zero, &sqlerr.UsageError{Reason: fmt.Sprintf("column index %d out of range [0, %d)", i, row.Len())}
	}
	return binding.ExtractWith[T](row.codec, row.values[i])
}

// GetNamed returns the column called name as a T.
func GetNamed[T any](row *Row, name string) (T, error) {
	i := row.Index(name)
	if i < 0 {
		var zero T
		return zero, &sqlerr.UsageError{Reason: fmt.Sprintf("no column named %q", name)}
	}
	return binding.ExtractWith[T](row.codec, row.values[i])
}
