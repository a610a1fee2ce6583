// Package invoke provides deferred invocation units: a callable bound to a
// fixed set of arguments that can be invoked later with no arguments.
//
// Units are what a forker hands to a child process. Since a child is a fresh
// execution of the same binary, a callable that must run there is registered
// by name, typically from an init function:
//
//	var greet = invoke.Register("greet", func(name string, n int) {
//	    for i := 0; i < n; i++ {
//	        fmt.Printf("hello %s\n", name)
//	    }
//	})
//
//	u := greet.Bind("gopher", 3)
//
// Bound arguments cross the process boundary by value, encoded as JSON, and
// are decoded in the child into the callable's parameter types. Anything that
// cannot be represented that way (open files, channels, pointers into parent
// memory) cannot be bound for a child; shared state must travel through the
// pipe instead.
//
// Callables used only in the current process (for example the parent-side
// unit of fork.Forker.RunWith) do not need a name:
//
//	u := invoke.New(strings.ToUpper).Bind("abc")
//	v, err := u.Invoke() // "ABC", nil
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.1.0
package invoke
