// Package fork runs deferred invocation units in child processes.
//
// Go cannot safely duplicate a running process, so a "fork" here re-executes
// the current binary with the child unit encoded in its environment. The
// child must call Dispatch before doing anything else; Dispatch runs the unit
// and terminates the process, so nothing after it executes in a child:
//
//	func main() {
//	    fork.Dispatch()
//	    // parent code...
//	}
//
// Tests that fork do the same from TestMain:
//
//	func TestMain(m *testing.M) {
//	    fork.Dispatch()
//	    os.Exit(m.Run())
//	}
//
// # Forker
//
// Forker.Run starts a child and returns at once without waiting for it.
// Forker.RunWith additionally invokes a unit in the parent and returns its
// result. There is no ordering between the two sides after the fork.
//
// # PipedForker
//
// PipedForker.Invoke binds the child's standard output to an anonymous pipe,
// drains it into a buffer while the child runs and reaps the child before
// returning. TakeResult and TakeResultAs hand out the captured output once.
//
//	p := fork.NewPiped()
//	if err := p.Invoke(greet.Bind("gopher", 1)); err != nil {
//	    return err
//	}
//	out := p.TakeResult() // "hello gopher\n"
//
// # Child termination
//
// A child exits with ExitCompleted after its unit returns normally and with
// ExitFailed when the unit returns an error or cannot be decoded. The child's
// return value never travels back to the parent; only its standard output
// does.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package fork
