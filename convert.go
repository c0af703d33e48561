package dawnorm

import (
	"bytes"
	"database/sql"
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var (
	errNull     = errors.New("NULL value for non-nullable type")
	timeType    = reflect.TypeFor[time.Time]()
	timeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	}
)

// convertAssign stores src, a value produced by a driver, in the value
// pointed to by dest.
func convertAssign(dest, src any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination is not a non-nil pointer: %T", dest)
	}
	return assign(dv.Elem(), src)
}

// assign stores src in the settable value dv. Times are stored in UTC.
func assign(dv reflect.Value, src any) error {
	if t, ok := src.(time.Time); ok {
		src = t.UTC()
	}
	if _, raw := src.([]byte); !raw && src != nil && reflect.TypeOf(src).AssignableTo(dv.Type()) {
		dv.Set(reflect.ValueOf(src))
		return nil
	}
	if dv.CanAddr() {
		if s, ok := dv.Addr().Interface().(sql.Scanner); ok {
			return s.Scan(src)
		}
	}
	if src == nil {
		switch dv.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			dv.SetZero()
			return nil
		}
		return errNull
	}
	if dv.Kind() == reflect.Pointer {
		nv := reflect.New(dv.Type().Elem())
		if err := assign(nv.Elem(), src); err != nil {
			return err
		}
		dv.Set(nv)
		return nil
	}
	switch s := src.(type) {
	case []byte:
		switch {
		case dv.Kind() == reflect.String:
			dv.SetString(string(s))
			return nil
		case dv.Kind() == reflect.Slice && dv.Type().Elem().Kind() == reflect.Uint8:
			dv.SetBytes(bytes.Clone(s))
			return nil
		case dv.Kind() == reflect.Interface:
			dv.Set(reflect.ValueOf(bytes.Clone(s)))
			return nil
		}
		return assignText(dv, s)
	case string:
		switch {
		case dv.Kind() == reflect.String:
			dv.SetString(s)
			return nil
		case dv.Kind() == reflect.Slice && dv.Type().Elem().Kind() == reflect.Uint8:
			dv.SetBytes([]byte(s))
			return nil
		}
		if dv.Kind() != reflect.Interface {
			return assignText(dv, []byte(s))
		}
	}
	sv := reflect.ValueOf(src)
	if ok, err := assignNumeric(dv, sv); ok {
		return err
	}
	if dv.Kind() == reflect.String {
		switch s := src.(type) {
		case time.Time:
			dv.SetString(s.Format(time.RFC3339Nano))
			return nil
		case encoding.TextMarshaler:
			text, err := s.MarshalText()
			if err != nil {
				return err
			}
			dv.SetString(string(text))
			return nil
		}
	}
	if sv.Type().ConvertibleTo(dv.Type()) && sv.Kind() == dv.Kind() {
		dv.Set(sv.Convert(dv.Type()))
		return nil
	}
	return fmt.Errorf("unsupported conversion from %T to %s", src, dv.Type())
}

// assignNumeric converts between integer, float, bool and string kinds.
// ok is false when neither side is a kind it handles.
func assignNumeric(dv, sv reflect.Value) (bool, error) {
	switch dv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i = sv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := sv.Uint()
			if u > math.MaxInt64 {
				return true, fmt.Errorf("value %d overflows %s", u, dv.Type())
			}
			i = int64(u)
		case reflect.Float32, reflect.Float64:
			f := sv.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
				return true, fmt.Errorf("value %v is not an integer", f)
			}
			i = int64(f)
		default:
			return false, nil
		}
		if dv.OverflowInt(i) {
			return true, fmt.Errorf("value %d overflows %s", i, dv.Type())
		}
		dv.SetInt(i)
		return true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var u uint64
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i := sv.Int()
			if i < 0 {
				return true, fmt.Errorf("negative value %d for %s", i, dv.Type())
			}
			u = uint64(i)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u = sv.Uint()
		default:
			return false, nil
		}
		if dv.OverflowUint(u) {
			return true, fmt.Errorf("value %d overflows %s", u, dv.Type())
		}
		dv.SetUint(u)
		return true, nil
	case reflect.Float32, reflect.Float64:
		var f float64
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(sv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f = float64(sv.Uint())
		case reflect.Float32, reflect.Float64:
			f = sv.Float()
		default:
			return false, nil
		}
		if dv.OverflowFloat(f) {
			return true, fmt.Errorf("value %v overflows %s", f, dv.Type())
		}
		dv.SetFloat(f)
		return true, nil
	case reflect.Bool:
		switch sv.Kind() {
		case reflect.Bool:
			dv.SetBool(sv.Bool())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			// SQLite stores booleans as integers.
			switch sv.Int() {
			case 0:
				dv.SetBool(false)
			case 1:
				dv.SetBool(true)
			default:
				return true, fmt.Errorf("value %d is not a boolean", sv.Int())
			}
		default:
			return false, nil
		}
		return true, nil
	case reflect.String:
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dv.SetString(strconv.FormatInt(sv.Int(), 10))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			dv.SetString(strconv.FormatUint(sv.Uint(), 10))
		case reflect.Float32, reflect.Float64:
			dv.SetString(strconv.FormatFloat(sv.Float(), 'g', -1, sv.Type().Bits()))
		case reflect.Bool:
			dv.SetString(strconv.FormatBool(sv.Bool()))
		default:
			return false, nil
		}
		return true, nil
	}
	return false, nil
}

// assignText parses a textual column value into dv.
func assignText(dv reflect.Value, text []byte) error {
	s := string(text)
	if dv.Type() == timeType {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				dv.Set(reflect.ValueOf(t.UTC()))
				return nil
			}
		}
		return fmt.Errorf("cannot parse %q as time", s)
	}
	if dv.CanAddr() {
		if u, ok := dv.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText(text)
		}
	}
	switch dv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, dv.Type().Bits())
		if err != nil {
			return err
		}
		dv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, dv.Type().Bits())
		if err != nil {
			return err
		}
		dv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, dv.Type().Bits())
		if err != nil {
			return err
		}
		dv.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		dv.SetBool(b)
	default:
		return fmt.Errorf("unsupported conversion from text to %s", dv.Type())
	}
	return nil
}
