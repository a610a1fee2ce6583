package invoke

import "errors"

// Errors returned by this package. Check them with errors.Is.
var (
	// ErrNotFunc is returned when a non-function value is registered.
	ErrNotFunc = errors.New("invoke: not a function")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("invoke: duplicate registration")

	// ErrNotRegistered is returned when a unit without a registered name is
	// encoded, or when an encoded unit names an unknown function.
	ErrNotRegistered = errors.New("invoke: function not registered")

	// ErrArgCount is returned when the bound arguments do not match the
	// callable's arity.
	ErrArgCount = errors.New("invoke: wrong number of arguments")

	// ErrArgType is returned when a bound argument cannot be used as the
	// corresponding parameter.
	ErrArgType = errors.New("invoke: argument type mismatch")

	// ErrResultType is returned by InvokeAs when the result has another type.
	ErrResultType = errors.New("invoke: result type mismatch")

	// ErrMalformed is returned when an encoded unit cannot be decoded.
	ErrMalformed = errors.New("invoke: malformed unit")
)
