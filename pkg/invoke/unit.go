package invoke

import (
	"fmt"
	"math"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Unit is a callable together with the arguments bound to it.
//
// Invoking a unit does not change it, so the same unit may be invoked any
// number of times.
type Unit struct {
	fn   *Func
	args []interface{}
}

// Bind replaces the bound arguments with args and returns u.
// Binding is not cumulative.
func (u *Unit) Bind(args ...interface{}) *Unit {
	u.args = append([]interface{}(nil), args...)
	return u
}

// Func returns the callable the unit is bound to.
func (u *Unit) Func() *Func { return u.fn }

// Args returns a copy of the bound arguments.
func (u *Unit) Args() []interface{} {
	return append([]interface{}(nil), u.args...)
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s%v", u.fn, u.args)
}

// Invoke calls the callable with exactly the bound arguments.
//
// A callable with no results (other than an optional trailing error) yields
// nil, one result yields that value and several results yield a
// []interface{}. A trailing error result is returned as the error. Panics
// raised by the callable are not recovered.
func (u *Unit) Invoke() (interface{}, error) {
	in, err := u.fn.prepare(u.args)
	if err != nil {
		return nil, err
	}
	return u.fn.results(u.fn.fn.Call(in))
}

// InvokeAs invokes u and asserts its result to T. A callable without results
// yields the zero T.
func InvokeAs[T any](u *Unit) (T, error) {
	var zero T
	v, err := u.Invoke()
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %s",
			ErrResultType, u.fn, v, reflect.TypeOf((*T)(nil)).Elem())
	}
	return t, nil
}

func (f *Func) checkArity(n int) error {
	want := f.typ.NumIn()
	if f.typ.IsVariadic() {
		if n < want-1 {
			return fmt.Errorf("%w: %s takes at least %d, got %d", ErrArgCount, f, want-1, n)
		}
		return nil
	}
	if n != want {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, f, want, n)
	}
	return nil
}

// paramType returns the type argument i is passed as, expanding a variadic
// tail into its element type.
func (f *Func) paramType(i int) reflect.Type {
	n := f.typ.NumIn()
	if f.typ.IsVariadic() && i >= n-1 {
		return f.typ.In(n - 1).Elem()
	}
	return f.typ.In(i)
}

func (f *Func) prepare(args []interface{}) ([]reflect.Value, error) {
	if err := f.checkArity(len(args)); err != nil {
		return nil, err
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := adapt(a, f.paramType(i))
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d of %s: %v", ErrArgType, i, f, err)
		}
		in[i] = v
	}
	return in, nil
}

func (f *Func) results(out []reflect.Value) (interface{}, error) {
	var err error
	if n := len(out); n > 0 && f.typ.Out(n-1) == errorType {
		if e := out[n-1].Interface(); e != nil {
			err = e.(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	}
	vals := make([]interface{}, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}
	return vals, err
}

// adapt turns a bound argument into a value of type pt. Untyped nil becomes
// the zero value. Numeric kinds convert among themselves only when the value
// survives unchanged; string kinds convert freely.
func adapt(a interface{}, pt reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(pt), nil
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(pt) {
		out := reflect.New(pt).Elem()
		out.Set(v)
		return out, nil
	}
	switch {
	case isNumeric(v.Kind()) && isNumeric(pt.Kind()):
		out := reflect.New(pt).Elem()
		if !setNumber(out, v) {
			return reflect.Value{}, fmt.Errorf("%s %v does not fit in %s", v.Type(), v.Interface(), pt)
		}
		return out, nil
	case v.Kind() == reflect.String && pt.Kind() == reflect.String:
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), pt)
}

// setNumber stores v in out and reports whether the stored value equals v.
// Float to float only has to stay in range.
func setNumber(out, v reflect.Value) bool {
	switch k := v.Kind(); {
	case isInt(k):
		return setInt(out, v.Int())
	case isUint(k):
		return setUint(out, v.Uint())
	default:
		return setFloat(out, v.Float())
	}
}

func setInt(out reflect.Value, i int64) bool {
	switch k := out.Kind(); {
	case isInt(k):
		if out.OverflowInt(i) {
			return false
		}
		out.SetInt(i)
	case isUint(k):
		if i < 0 || out.OverflowUint(uint64(i)) {
			return false
		}
		out.SetUint(uint64(i))
	default:
		f := float64(i)
		if f >= 0x1p63 || int64(f) != i || !exactIn(out, f) {
			return false
		}
		out.SetFloat(f)
	}
	return true
}

func setUint(out reflect.Value, u uint64) bool {
	switch k := out.Kind(); {
	case isUint(k):
		if out.OverflowUint(u) {
			return false
		}
		out.SetUint(u)
	case isInt(k):
		if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
			return false
		}
		out.SetInt(int64(u))
	default:
		f := float64(u)
		if f >= 0x1p64 || uint64(f) != u || !exactIn(out, f) {
			return false
		}
		out.SetFloat(f)
	}
	return true
}

func setFloat(out reflect.Value, f float64) bool {
	switch k := out.Kind(); {
	case isFloat(k):
		if out.OverflowFloat(f) {
			return false
		}
		out.SetFloat(f)
	case isInt(k):
		if f != math.Trunc(f) || f < -0x1p63 || f >= 0x1p63 {
			return false
		}
		return setInt(out, int64(f))
	default:
		if f != math.Trunc(f) || f < 0 || f >= 0x1p64 {
			return false
		}
		return setUint(out, uint64(f))
	}
	return true
}

// exactIn reports whether f is representable in out's float kind.
func exactIn(out reflect.Value, f float64) bool {
	return out.Kind() != reflect.Float32 || float64(float32(f)) == f
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k)
}
