package fork

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bft-labs/forkpipe/pkg/invoke"
	"github.com/bft-labs/forkpipe/pkg/log"
)

// PipedForker runs a child with its standard output captured through a
// pipe. It is not safe for concurrent use.
type PipedForker struct {
	forker *Forker
	chunk  []byte
	buf    bytes.Buffer
	status ExitStatus

	// source wraps the read end of the pipe before draining. Tests set it.
	source func(io.Reader) io.Reader
}

// NewPiped creates a PipedForker.
func NewPiped(opts ...Option) *PipedForker {
	f := New(opts...)
	return &PipedForker{
		forker: f,
		chunk:  make([]byte, f.opts.chunkSize),
		status: unknownStatus,
	}
}

// Invoke runs child in a new process and captures everything it writes to
// standard output. It returns once the output has been drained and the
// child has been reaped. Output left over from an earlier Invoke that was
// never taken is discarded first, so a failed Invoke leaves nothing to take.
//
// Setup failures return ErrPipeCreation or ErrProcessCreation before any
// child exists. A read failure returns ErrPipeRead; the bytes read until
// then stay available through TakeResult. A child that fails or exits
// abnormally is not an error: inspect ExitStatus.
func (p *PipedForker) Invoke(child *invoke.Unit) error {
	return p.InvokeContext(context.Background(), child)
}

// InvokeContext is like Invoke but kills the child when ctx is done. The
// drain loop then sees EOF and Invoke returns normally.
func (p *PipedForker) InvokeContext(ctx context.Context, child *invoke.Unit) error {
	p.buf.Reset()
	p.status = unknownStatus

	f := p.forker
	h := f.begin(ModePiped, child)

	r, w, err := os.Pipe()
	if err != nil {
		return f.fail(h, fmt.Errorf("%w: %w", ErrPipeCreation, err))
	}

	// The read end is close-on-exec, so only the write end reaches the child,
	// where it becomes fd 1.
	cmd, err := f.start(ctx, h, child, w)
	if err != nil {
		r.Close()
		w.Close()
		return err
	}

	// The parent's copy of the write end must go before reading, otherwise
	// the read end never sees EOF.
	w.Close()

	begin := time.Now()
	capacity := pipeCapacity(r)
	var src io.Reader = r
	if p.source != nil {
		src = p.source(r)
	}
	chunks, readErr := p.drain(src)
	r.Close()

	status, waitErr := reap(cmd)
	p.status = status
	f.finish(h, status, waitErr)

	if readErr != nil {
		readErr = fmt.Errorf("%w: %w", ErrPipeRead, readErr)
		f.logger.Error("capture failed",
			log.ForkID(h.ID()),
			log.Int("bytes", p.buf.Len()),
			log.Err(readErr),
		)
	}
	f.logger.Debug("output captured",
		log.ForkID(h.ID()),
		log.Int("bytes", p.buf.Len()),
		log.Int("chunks", chunks),
		log.Int("pipe_capacity", capacity),
	)
	f.events.capture(CaptureEvent{
		ID:           h.ID(),
		Pid:          status.Pid,
		Bytes:        p.buf.Len(),
		Chunks:       chunks,
		PipeCapacity: capacity,
		Elapsed:      time.Since(begin),
		Err:          readErr,
	})

	if readErr != nil {
		return readErr
	}
	if waitErr != nil {
		return fmt.Errorf("fork: wait for pid %d: %w", status.Pid, waitErr)
	}
	return nil
}

// drain appends fixed-size reads to the capture buffer until EOF or error.
func (p *PipedForker) drain(r io.Reader) (int, error) {
	chunks := 0
	for {
		n, err := r.Read(p.chunk)
		if n > 0 {
			p.buf.Write(p.chunk[:n])
			chunks++
		}
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
	}
}

// Capture invokes child and takes the result in one step. On ErrPipeRead
// the partial output is returned along with the error.
func (p *PipedForker) Capture(child *invoke.Unit) (string, error) {
	err := p.Invoke(child)
	return p.TakeResult(), err
}

// TakeResult returns the captured output and clears it. A second call
// without an Invoke in between returns "".
func (p *PipedForker) TakeResult() string {
	s := p.buf.String()
	p.buf.Reset()
	return s
}

// TakeBytes is TakeResult returning a copy of the raw bytes.
func (p *PipedForker) TakeBytes() []byte {
	b := bytes.Clone(p.buf.Bytes())
	p.buf.Reset()
	return b
}

// Len returns the number of captured bytes not yet taken.
func (p *PipedForker) Len() int {
	return p.buf.Len()
}

// ExitStatus returns the status of the child reaped by the last Invoke.
func (p *PipedForker) ExitStatus() ExitStatus {
	return p.status
}

// TakeResultAs parses the first whitespace-delimited token of the captured
// output as a T, with fmt.Sscan semantics, and clears the output whether or
// not parsing succeeds. A parse failure returns a *ParseError that wraps
// ErrParse and keeps the consumed text.
func TakeResultAs[T any](p *PipedForker) (T, error) {
	out := p.TakeResult()
	var v T
	if _, err := fmt.Sscan(out, &v); err != nil {
		var zero T
		return zero, &ParseError{Output: out, Type: fmt.Sprintf("%T", zero), Err: err}
	}
	return v, nil
}
