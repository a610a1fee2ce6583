// Package tasks registers the units the forkpipe command can run in a child.
// Each task writes its result to standard output so a piped fork can
// capture it.
package tasks

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bft-labs/forkpipe/pkg/invoke"
)

var (
	// Echo prints its arguments separated by spaces.
	Echo = invoke.Register("echo", echo)

	// Repeat prints s n times.
	Repeat = invoke.Register("repeat", repeat)

	// Sum prints the sum of its arguments.
	Sum = invoke.Register("sum", sum)

	// Sleep waits for d and prints the time actually slept.
	Sleep = invoke.Register("sleep", sleep)

	// Fail prints nothing and returns an error with the given message.
	Fail = invoke.Register("fail", fail)

	// Pid prints the process id of the child.
	Pid = invoke.Register("pid", pid)
)

func echo(words ...string) error {
	_, err := fmt.Fprintln(os.Stdout, strings.Join(words, " "))
	return err
}

func repeat(s string, n int) error {
	if n < 0 {
		return fmt.Errorf("repeat: negative count %d", n)
	}
	_, err := os.Stdout.WriteString(strings.Repeat(s, n))
	return err
}

func sum(xs ...float64) error {
	var total float64
	for _, x := range xs {
		total += x
	}
	_, err := fmt.Fprintln(os.Stdout, total)
	return err
}

func sleep(d time.Duration) error {
	start := time.Now()
	time.Sleep(d)
	_, err := fmt.Fprintln(os.Stdout, time.Since(start).Round(time.Millisecond))
	return err
}

func fail(msg string) error {
	return errors.New(msg)
}

func pid() error {
	_, err := fmt.Fprintln(os.Stdout, os.Getpid())
	return err
}
