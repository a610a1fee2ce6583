package fork

import (
	"errors"
	"testing"

	"github.com/bft-labs/forkpipe/pkg/invoke"
	"github.com/bft-labs/forkpipe/pkg/log"
)

func TestRunChild(t *testing.T) {
	reg := invoke.NewRegistry()
	ran := 0
	okFn, _ := reg.Register("ok", func(n int) { ran += n })
	errFn, _ := reg.Register("err", func() error { return errors.New("nope") })

	encode := func(u *invoke.Unit) string {
		t.Helper()
		s, err := u.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		return s
	}

	tests := []struct {
		name string
		enc  string
		want int
	}{
		{"normal return still exits non-zero", encode(okFn.Bind(2)), ExitCompleted},
		{"error result", encode(errFn.Bind()), ExitFailed},
		{"garbage", "!!!", ExitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runChild(tt.enc, reg, log.Discard); got != tt.want {
				t.Fatalf("runChild = %d, want %d", got, tt.want)
			}
		})
	}
	if ran != 2 {
		t.Fatalf("unit ran with %d, want 2", ran)
	}
}

func TestRunChild_UnknownName(t *testing.T) {
	other := invoke.NewRegistry()
	f, _ := other.Register("elsewhere", func() {})
	enc, err := f.Bind().Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if got := runChild(enc, invoke.NewRegistry(), log.Discard); got != ExitFailed {
		t.Fatalf("runChild = %d, want %d", got, ExitFailed)
	}
}

func TestIsChild(t *testing.T) {
	t.Setenv(EnvUnit, "")
	if IsChild() {
		t.Fatal("IsChild with empty entry point")
	}
	t.Setenv(EnvUnit, "x")
	if !IsChild() {
		t.Fatal("IsChild with entry point set")
	}
}
