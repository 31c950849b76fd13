// construct.go instantiates filter and sink candidates.

package errfwd

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
)

// ErrNotConstructor is returned when a candidate is not a zero-argument
// constructor. It indicates a programming mistake in static configuration.
var ErrNotConstructor = errors.New("candidate is not a constructor")

// instantiate calls a zero-argument, single-result function and returns its
// result. A nil result is returned as nil without error.
func instantiate(candidate any) (any, error) {
	if candidate == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrNotConstructor)
	}

	v := reflect.ValueOf(candidate)
	t := v.Type()
	if t.Kind() != reflect.Func || v.IsNil() || t.NumIn() != 0 || t.NumOut() != 1 {
		return nil, fmt.Errorf("%w: %T", ErrNotConstructor, candidate)
	}

	out := v.Call(nil)[0]
	switch out.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if out.IsNil() {
			return nil, nil
		}
	}
	return out.Interface(), nil
}

// candidateName describes a candidate for diagnostics.
func candidateName(candidate any) string {
	v := reflect.ValueOf(candidate)
	if v.IsValid() && v.Kind() == reflect.Func && !v.IsNil() {
		if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return fmt.Sprintf("%T", candidate)
}
