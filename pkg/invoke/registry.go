package invoke

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Func is a callable that units can be bound to.
type Func struct {
	name string
	fn   reflect.Value
	typ  reflect.Type
}

func newFunc(name string, fn interface{}) (*Func, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}
	return &Func{name: name, fn: v, typ: v.Type()}, nil
}

// New wraps fn as an anonymous callable. Units bound to it can be invoked in
// the current process but cannot be encoded for a child. It panics if fn is
// not a function.
func New(fn interface{}) *Func {
	f, err := newFunc("", fn)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the registered name, or "" for anonymous callables.
func (f *Func) Name() string { return f.name }

// Registered reports whether f can be encoded for a child process.
func (f *Func) Registered() bool { return f.name != "" }

// Type returns the callable's function type.
func (f *Func) Type() reflect.Type { return f.typ }

func (f *Func) String() string {
	if f.name == "" {
		return "<anonymous " + f.typ.String() + ">"
	}
	return f.name
}

// Bind returns a new unit with args bound to f.
func (f *Func) Bind(args ...interface{}) *Unit {
	u := &Unit{fn: f}
	return u.Bind(args...)
}

// Registry maps names to callables. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Func)}
}

// Default is the registry consulted by child processes.
var Default = NewRegistry()

// Register adds fn under name.
func (r *Registry) Register(name string, fn interface{}) (*Func, error) {
	if name == "" {
		return nil, fmt.Errorf("invoke: empty name for %T", fn)
	}
	f, err := newFunc(name, fn)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.funcs[name] = f
	return f, nil
}

// Lookup returns the callable registered under name.
func (r *Registry) Lookup(name string) (*Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Register adds fn to the Default registry. It must be called before
// fork.Dispatch, typically from an init function or a package-level var,
// so that parent and child agree on the set of names. It panics on an
// empty or duplicate name or a non-function value.
func Register(name string, fn interface{}) *Func {
	f, err := Default.Register(name, fn)
	if err != nil {
		panic(err)
	}
	return f
}

// Lookup returns the callable registered under name in the Default registry.
func Lookup(name string) (*Func, bool) {
	return Default.Lookup(name)
}
