package invoke

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// envelope is the wire form of a unit.
type envelope struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args"`
}

// Encode returns the unit in a form that fits in an environment variable.
// Arguments are validated against the callable before encoding, so a bad
// binding fails here, in the parent.
func (u *Unit) Encode() (string, error) {
	if !u.fn.Registered() {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, u.fn)
	}
	if _, err := u.fn.prepare(u.args); err != nil {
		return "", err
	}

	env := envelope{Name: u.fn.name, Args: make([]json.RawMessage, len(u.args))}
	for i, a := range u.args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("invoke: encode argument %d of %s: %w", i, u.fn, err)
		}
		env.Args[i] = b
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("invoke: encode %s: %w", u.fn, err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode rebuilds a unit encoded by Unit.Encode, resolving its callable in r.
func (r *Registry) Decode(s string) (*Unit, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	f, ok := r.Lookup(env.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, env.Name)
	}
	if err := f.checkArity(len(env.Args)); err != nil {
		return nil, err
	}

	args := make([]interface{}, len(env.Args))
	for i, raw := range env.Args {
		p := reflect.New(f.paramType(i))
		if err := json.Unmarshal(raw, p.Interface()); err != nil {
			return nil, fmt.Errorf("%w: argument %d of %s: %v", ErrMalformed, i, f, err)
		}
		args[i] = p.Elem().Interface()
	}
	return f.Bind(args...), nil
}

// Decode rebuilds a unit using the Default registry.
func Decode(s string) (*Unit, error) {
	return Default.Decode(s)
}

var durationType = reflect.TypeOf(time.Duration(0))

// ParseArgs converts command line strings into arguments for f. String
// parameters take the text verbatim, durations use time.ParseDuration and
// everything else is decoded as JSON.
func ParseArgs(f *Func, raw []string) ([]interface{}, error) {
	if err := f.checkArity(len(raw)); err != nil {
		return nil, err
	}
	args := make([]interface{}, len(raw))
	for i, s := range raw {
		pt := f.paramType(i)
		switch {
		case pt.Kind() == reflect.String:
			args[i] = reflect.ValueOf(s).Convert(pt).Interface()
		case pt == durationType:
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("%w: argument %d (%q): %v", ErrArgType, i, s, err)
			}
			args[i] = d
		default:
			p := reflect.New(pt)
			if err := json.Unmarshal([]byte(s), p.Interface()); err != nil {
				return nil, fmt.Errorf("%w: argument %d (%q) as %s: %v", ErrArgType, i, s, pt, err)
			}
			args[i] = p.Elem().Interface()
		}
	}
	return args, nil
}
