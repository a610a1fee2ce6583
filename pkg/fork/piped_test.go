package fork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/forkpipe/pkg/invoke"
)

func TestPipedForker_Hello(t *testing.T) {
	skipIfShort(t)
	p := NewPiped()

	if err := p.Invoke(printFn.Bind("hello")); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := p.TakeResult(); got != "hello" {
		t.Fatalf("TakeResult = %q, want %q", got, "hello")
	}

	st := p.ExitStatus()
	if !st.Completed() {
		t.Fatalf("ExitStatus = %v, want completed", st)
	}
	if st.Pid <= 0 {
		t.Fatalf("ExitStatus.Pid = %d", st.Pid)
	}
}

func TestPipedForker_TakeResultTwice(t *testing.T) {
	skipIfShort(t)
	p := NewPiped()

	if err := p.Invoke(printFn.Bind("once")); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := p.TakeResult(); got != "once" {
		t.Fatalf("first TakeResult = %q", got)
	}
	if got := p.TakeResult(); got != "" {
		t.Fatalf("second TakeResult = %q, want empty", got)
	}
}

func TestPipedForker_SequentialInvokes(t *testing.T) {
	skipIfShort(t)
	p := NewPiped()

	for _, s := range []string{"a", "b"} {
		if err := p.Invoke(printFn.Bind(s)); err != nil {
			t.Fatalf("Invoke(%q): %v", s, err)
		}
		if got := p.TakeResult(); got != s {
			t.Fatalf("TakeResult = %q, want %q", got, s)
		}
	}
}

func TestPipedForker_UntakenOutputIsDiscarded(t *testing.T) {
	skipIfShort(t)
	p := NewPiped()

	if err := p.Invoke(printFn.Bind("a")); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if err := p.Invoke(printFn.Bind("b")); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := p.TakeResult(); got != "b" {
		t.Fatalf("TakeResult = %q, want %q", got, "b")
	}
}

func TestPipedForker_MultiChunkRoundTrip(t *testing.T) {
	skipIfShort(t)

	tests := []struct {
		name      string
		part      string
		writes    int
		chunkSize int
	}{
		{"many small writes, small chunks", "0123456789", 100, 7},
		{"writes larger than a chunk", strings.Repeat("x", 5000), 3, 1024},
		{"single byte chunks", "ab", 50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPiped(WithChunkSize(tt.chunkSize))
			if err := p.Invoke(writesFn.Bind(tt.part, tt.writes)); err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			got := p.TakeResult()
			if want := repeated(tt.part, tt.writes); got != want {
				t.Fatalf("captured %d bytes, want %d", len(got), len(want))
			}
		})
	}
}

func TestPipedForker_OutputLargerThanPipeBuffer(t *testing.T) {
	skipIfShort(t)
	events := &recordingHandler{}
	p := NewPiped(WithEventHandler(events))

	// 4 MiB is far beyond any default pipe buffer, so the child blocks
	// unless the parent drains while it runs.
	part := strings.Repeat("z", 4096)
	if err := p.Invoke(writesFn.Bind(part, 1024)); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := p.Len(); got != 4096*1024 {
		t.Fatalf("Len = %d, want %d", got, 4096*1024)
	}
	b := p.TakeBytes()
	if !bytes.Equal(b, []byte(repeated(part, 1024))) {
		t.Fatal("captured bytes differ from written bytes")
	}

	captures := events.captures()
	if len(captures) != 1 {
		t.Fatalf("capture events = %d, want 1", len(captures))
	}
	if captures[0].Bytes != 4096*1024 || captures[0].Chunks < 2 {
		t.Fatalf("capture event = %+v", captures[0])
	}
}

func TestTakeResultAs(t *testing.T) {
	skipIfShort(t)
	p := NewPiped()

	if err := p.Invoke(printFn.Bind("42\n")); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	n, err := TakeResultAs[int](p)
	if err != nil {
		t.Fatalf("TakeResultAs: %v", err)
	}
	if n != 42 {
		t.Fatalf("TakeResultAs = %d, want 42", n)
	}
	if p.Len() != 0 {
		t.Fatal("TakeResultAs should clear the buffer")
	}
}

func TestTakeResultAs_Tokens(t *testing.T) {
	p := NewPiped()

	p.buf.WriteString("  3.5 trailing words\n")
	f, err := TakeResultAs[float64](p)
	if err != nil || f != 3.5 {
		t.Fatalf("TakeResultAs[float64] = %v, %v", f, err)
	}

	p.buf.WriteString("first second")
	s, err := TakeResultAs[string](p)
	if err != nil || s != "first" {
		t.Fatalf("TakeResultAs[string] = %q, %v", s, err)
	}

	p.buf.WriteString("true")
	b, err := TakeResultAs[bool](p)
	if err != nil || !b {
		t.Fatalf("TakeResultAs[bool] = %v, %v", b, err)
	}
}

func TestTakeResultAs_ParseFailure(t *testing.T) {
	p := NewPiped()

	for _, out := range []string{"not-a-number", ""} {
		p.buf.WriteString(out)
		n, err := TakeResultAs[int](p)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("TakeResultAs(%q) error = %v, want ErrParse", out, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Output != out || perr.Type != "int" {
			t.Fatalf("ParseError = %+v", perr)
		}
		if n != 0 {
			t.Fatalf("TakeResultAs(%q) = %d, want 0", out, n)
		}
		if p.Len() != 0 {
			t.Fatal("failed parse should still clear the buffer")
		}
	}
}

func TestPipedForker_AbnormalExitBeforeWriting(t *testing.T) {
	skipIfShort(t)
	p := NewPiped()

	if err := p.Invoke(exitFn.Bind(3)); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := p.TakeResult(); got != "" {
		t.Fatalf("TakeResult = %q, want empty", got)
	}
	if st := p.ExitStatus(); st.Code != 3 || st.Completed() {
		t.Fatalf("ExitStatus = %v, want code 3", st)
	}
}

func TestPipedForker_ChildErrorKeepsPartialOutput(t *testing.T) {
	skipIfShort(t)
	var stderr syncBuffer
	p := NewPiped(WithStderr(&stderr))

	out, err := p.Capture(failFn.Bind("it broke"))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if out != "partial" {
		t.Fatalf("Capture = %q, want %q", out, "partial")
	}
	if st := p.ExitStatus(); st.Code != ExitFailed {
		t.Fatalf("ExitStatus = %v, want code %d", st, ExitFailed)
	}
	if !strings.Contains(stderr.String(), "it broke") {
		t.Fatalf("stderr = %q, want the child's error", stderr.String())
	}
}

func TestPipedForker_ChildPanic(t *testing.T) {
	skipIfShort(t)
	p := NewPiped(WithStderr(nil))

	if err := p.Invoke(panicFn.Bind()); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if st := p.ExitStatus(); st.Completed() {
		t.Fatalf("ExitStatus = %v, want failure", st)
	}
}

func TestPipedForker_Env(t *testing.T) {
	skipIfShort(t)
	p := NewPiped(WithEnv("FORKPIPE_TEST_VALUE=from-parent"))

	out, err := p.Capture(envFn.Bind("FORKPIPE_TEST_VALUE"))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if out != "from-parent" {
		t.Fatalf("Capture = %q", out)
	}

	out, err = p.Capture(envFn.Bind(EnvForkID))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(out) != 36 {
		t.Fatalf("fork id = %q, want a UUID", out)
	}
}

func TestPipedForker_ContextCancel(t *testing.T) {
	skipIfShort(t)
	p := NewPiped()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.InvokeContext(ctx, blockFn.Bind()); err != nil {
		t.Fatalf("InvokeContext: %v", err)
	}
	if got := p.TakeResult(); got != "waiting" {
		t.Fatalf("TakeResult = %q, want %q", got, "waiting")
	}
	st := p.ExitStatus()
	if st.Signal != "SIGKILL" {
		t.Fatalf("ExitStatus.Signal = %q, want SIGKILL", st.Signal)
	}
	if want := fmt.Sprintf("pid %d killed by SIGKILL", st.Pid); st.String() != want {
		t.Fatalf("ExitStatus = %q, want %q", st, want)
	}
}

func TestPipedForker_ProcessCreationFailureClearsStaleOutput(t *testing.T) {
	events := &recordingHandler{}
	p := NewPiped(WithExecutable("/nonexistent/forkpipe-child"), WithEventHandler(events))
	p.buf.WriteString("stale")

	err := p.Invoke(printFn.Bind("x"))
	if !errors.Is(err, ErrProcessCreation) {
		t.Fatalf("Invoke error = %v, want ErrProcessCreation", err)
	}
	if got := p.TakeResult(); got != "" {
		t.Fatalf("TakeResult = %q, want empty", got)
	}
	if st := p.ExitStatus(); st.Pid != -1 {
		t.Fatalf("ExitStatus = %v, want not started", st)
	}

	errs := events.errors()
	if len(errs) != 1 || errs[0].Kind != "process_creation" {
		t.Fatalf("error events = %+v", errs)
	}
}

func TestPipedForker_UnregisteredUnit(t *testing.T) {
	p := NewPiped()

	err := p.Invoke(invoke.New(func() {}).Bind())
	if !errors.Is(err, invoke.ErrNotRegistered) {
		t.Fatalf("Invoke error = %v, want ErrNotRegistered", err)
	}
}

func TestPipedForker_LossyBindingFailsInParent(t *testing.T) {
	events := &recordingHandler{}
	p := NewPiped(WithEventHandler(events))

	err := p.Invoke(writesFn.Bind("x", 2.5))
	if !errors.Is(err, invoke.ErrArgType) {
		t.Fatalf("Invoke error = %v, want ErrArgType", err)
	}
	if st := p.ExitStatus(); st.Pid >= 0 {
		t.Fatalf("ExitStatus = %v, want no child", st)
	}
	if starts := len(events.starts); starts != 0 {
		t.Fatalf("fork start events = %d, want 0", starts)
	}
}

func TestPipedForker_Drain(t *testing.T) {
	p := NewPiped(WithChunkSize(4))
	readErr := errors.New("read failed")

	chunks, err := p.drain(&failingReader{data: []byte("abcdefghij"), err: readErr})
	if !errors.Is(err, readErr) {
		t.Fatalf("drain error = %v, want %v", err, readErr)
	}
	if chunks != 3 {
		t.Fatalf("chunks = %d, want 3", chunks)
	}
	if got := p.TakeResult(); got != "abcdefghij" {
		t.Fatalf("bytes read before the failure = %q", got)
	}
}

func TestPipedForker_ReadFailureKeepsPartialOutput(t *testing.T) {
	skipIfShort(t)
	events := &recordingHandler{}
	p := NewPiped(WithEventHandler(events))
	readErr := errors.New("read failed")
	p.source = func(r io.Reader) io.Reader {
		return &eofFailingReader{r: r, err: readErr}
	}

	err := p.Invoke(printFn.Bind("partial output"))
	if !errors.Is(err, ErrPipeRead) {
		t.Fatalf("Invoke error = %v, want ErrPipeRead", err)
	}
	if !errors.Is(err, readErr) {
		t.Fatalf("Invoke error = %v, want it to wrap %v", err, readErr)
	}
	if got := p.TakeResult(); got != "partial output" {
		t.Fatalf("TakeResult = %q, want the bytes read before the failure", got)
	}
	if st := p.ExitStatus(); !st.Completed() {
		t.Fatalf("ExitStatus = %v, want completed", st)
	}

	caps := events.captures()
	if len(caps) != 1 || !errors.Is(caps[0].Err, ErrPipeRead) {
		t.Fatalf("capture events = %+v", caps)
	}
}

// eofFailingReader passes reads through to r and turns its EOF into err.
type eofFailingReader struct {
	r   io.Reader
	err error
}

func (e *eofFailingReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		return n, e.err
	}
	return n, err
}

// failingReader returns its data in reads of at most len(p) and then err.
type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

// syncBuffer is a bytes.Buffer safe for the copy goroutine of os/exec.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// recordingHandler records fork events.
type recordingHandler struct {
	mu       sync.Mutex
	starts   []ForkStartEvent
	errs     []ForkErrorEvent
	exits    []ChildExitEvent
	captured []CaptureEvent
}

func (r *recordingHandler) OnForkStart(e ForkStartEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, e)
}

func (r *recordingHandler) OnForkError(e ForkErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recordingHandler) OnChildExit(e ChildExitEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exits = append(r.exits, e)
}

func (r *recordingHandler) OnCapture(e CaptureEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, e)
}

func (r *recordingHandler) captures() []CaptureEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CaptureEvent(nil), r.captured...)
}

func (r *recordingHandler) errors() []ForkErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ForkErrorEvent(nil), r.errs...)
}

func (r *recordingHandler) childExits() []ChildExitEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChildExitEvent(nil), r.exits...)
}
