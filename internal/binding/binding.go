// Package binding converts Go values to engine values when they are bound
// as statement parameters, and engine values back to Go values when
// columns are read.
//
// Outbound conversion never loses information: unsigned 64-bit integers
// keep their bit pattern, floats are widened, nil becomes NULL. Inbound
// conversion is strict: the storage class must match the destination and
// integers must fit exactly, otherwise a *sqlerr.ConversionError is
// returned instead of a truncated value.
package binding

import (
	"net/url"
	"reflect"
	"time"

	"github.com/nsqlite/litebind/internal/sqlerr"
	"github.com/nsqlite/litebind/internal/value"
)

// Bindable is implemented by types that know how to become a parameter.
type Bindable interface {
	BindingValue() value.Value
}

// Extractable is implemented, on a pointer receiver, by types that know
// how to fill themselves from a column value. The value may be NULL.
type Extractable interface {
	FromBindingValue(v value.Value) error
}

// Codec carries the conversion settings that are not fixed by the type
// system. The zero Codec behaves like Default.
type Codec struct {
	// Time formats time.Time values stored as TEXT.
	Time TimeFormat
}

// Default is the codec used by the package level functions.
var Default = Codec{Time: DefaultTimeFormat}

func (c Codec) timeFormat() TimeFormat {
	if c.Time == nil {
		return DefaultTimeFormat
	}
	return c.Time
}

// ToValue converts v with the Default codec.
func ToValue(v any) (value.Value, error) {
	return Default.ToValue(v)
}

// Scan converts v into dest with the Default codec.
func Scan(v value.Value, dest any) error {
	return Default.Scan(v, dest)
}

// Extract converts v into a T with the Default codec.
func Extract[T any](v value.Value) (T, error) {
	return ExtractWith[T](Default, v)
}

// ExtractWith converts v into a T with the given codec. A pointer T
// accepts NULL and yields nil.
func ExtractWith[T any](c Codec, v value.Value) (T, error) {
	var out T
	err := c.Scan(v, &out)
	return out, err
}

var (
	typeTime  = reflect.TypeOf(time.Time{})
	typeURL   = reflect.TypeOf(url.URL{})
	typeValue = reflect.TypeOf(value.Value{})
)

// ToValue converts a Go value into the Value that is bound for it.
func (c Codec) ToValue(v any) (value.Value, error) {
	if v == nil {
		return value.Null(), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return value.Null(), nil
	}

	switch x := v.(type) {
	case value.Value:
		return x, nil
	case Bindable:
		return x.BindingValue(), nil
	case []byte:
		return value.Blob(x), nil
	case string:
		return value.Text(x), nil
	case int64:
		return value.Integer(x), nil
	case int:
		return value.Integer(int64(x)), nil
	case float64:
		return value.Real(x), nil
	case time.Time:
		return value.Text(c.timeFormat().Format(x)), nil
	case url.URL:
		return value.Text(x.String()), nil
	case *url.URL:
		return value.Text(x.String()), nil
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return c.ToValue(rv.Elem().Interface())
	case reflect.Bool:
		if rv.Bool() {
			return value.Integer(1), nil
		}
		return value.Integer(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Integer(rv.Int()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return value.Integer(int64(rv.Uint())), nil
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		// Stored as the same 64 bits; values above MaxInt64 read back
		// negative from SQL but round trip through Scan.
		return value.Integer(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Real(rv.Float()), nil
	case reflect.String:
		return value.Text(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value.Blob(rv.Bytes()), nil
		}
	}

	return value.Value{}, sqlerr.Bindingf("unsupported parameter type %T", v)
}

// Scan stores v into the variable dest points to.
//
// dest must be a non-nil pointer. Pointer-to-pointer destinations are
// nullable: NULL stores nil, anything else allocates and converts.
func (c Codec) Scan(v value.Value, dest any) error {
	if dest == nil {
		return sqlerr.Conversionf("destination is nil")
	}

	switch d := dest.(type) {
	case *value.Value:
		*d = v
		return nil
	case *any:
		*d = interfaceCopy(v)
		return nil
	case Extractable:
		return d.FromBindingValue(v)
	}

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return sqlerr.Conversionf("destination must be a non-nil pointer, got %T", dest)
	}

	return c.scanInto(v, rv.Elem())
}

func interfaceCopy(v value.Value) any {
	if b, ok := v.AsBlob(); ok {
		return append([]byte{}, b...)
	}
	return v.Interface()
}

func (c Codec) scanInto(v value.Value, dst reflect.Value) error {
	typ := dst.Type()

	if typ.Kind() == reflect.Pointer {
		if v.IsNull() {
			dst.Set(reflect.Zero(typ))
			return nil
		}
		elem := reflect.New(typ.Elem())
		if err := c.Scan(v, elem.Interface()); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	if v.IsNull() {
		return sqlerr.Conversionf("cannot store NULL into %s", typ)
	}

	switch typ {
	case typeValue:
		dst.Set(reflect.ValueOf(v))
		return nil
	case typeTime:
		s, ok := v.AsText()
		if !ok {
			return mismatch(v, typ)
		}
		t, err := c.timeFormat().Parse(s)
		if err != nil {
			return sqlerr.Conversionf("cannot parse %q as %s: %s", s, typ, err)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	case typeURL:
		s, ok := v.AsText()
		if !ok {
			return mismatch(v, typ)
		}
		u, err := url.Parse(s)
		if err != nil {
			return sqlerr.Conversionf("cannot parse %q as %s: %s", s, typ, err)
		}
		dst.Set(reflect.ValueOf(*u))
		return nil
	}

	switch typ.Kind() {
	case reflect.Bool:
		i, ok := v.AsInt64()
		if !ok {
			return mismatch(v, typ)
		}
		dst.SetBool(i != 0)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.AsInt64()
		if !ok {
			return mismatch(v, typ)
		}
		if dst.OverflowInt(i) {
			return outOfRange(i, typ)
		}
		dst.SetInt(i)

	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		i, ok := v.AsInt64()
		if !ok {
			return mismatch(v, typ)
		}
		if i < 0 || dst.OverflowUint(uint64(i)) {
			return outOfRange(i, typ)
		}
		dst.SetUint(uint64(i))

	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		i, ok := v.AsInt64()
		if !ok {
			return mismatch(v, typ)
		}
		u := uint64(i)
		// Only reachable where uint is 32 bits wide.
		if dst.OverflowUint(u) {
			return outOfRange(i, typ)
		}
		dst.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, ok := v.AsFloat64()
		if !ok {
			return mismatch(v, typ)
		}
		if dst.OverflowFloat(f) {
			return sqlerr.Conversionf("%g out of range for %s", f, typ)
		}
		dst.SetFloat(f)

	case reflect.String:
		s, ok := v.AsText()
		if !ok {
			return mismatch(v, typ)
		}
		dst.SetString(s)

	case reflect.Slice:
		if typ.Elem().Kind() != reflect.Uint8 {
			return sqlerr.Conversionf("unsupported destination type %s", typ)
		}
		b, ok := v.AsBlob()
		if !ok {
			return mismatch(v, typ)
		}
		dst.SetBytes(append([]byte{}, b...))

	default:
		return sqlerr.Conversionf("unsupported destination type %s", typ)
	}

	return nil
}

func mismatch(v value.Value, typ reflect.Type) error {
	return sqlerr.Conversionf("cannot store %s into %s", v.Kind(), typ)
}

func outOfRange(i int64, typ reflect.Type) error {
	return sqlerr.Conversionf("%d out of range for %s", i, typ)
}
