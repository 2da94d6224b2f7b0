// Package serialio adapts a context-aware serial port (uartx on RP2) to the
// io.Reader and io.Writer used by line-oriented services.
package serialio

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// Port is the receive side of a UART.
type Port interface {
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// Writer serialises writes from several goroutines onto one port so each
// Write call reaches the wire whole.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

// recvSlice bounds each blocking receive so a cancelled ctx is noticed.
const recvSlice = 250 * time.Millisecond

// Reader reads from a Port until its context ends, after which Read
// returns io.EOF. Port errors other than a slice timeout are returned.
type Reader struct {
	ctx  context.Context
	port Port
	echo io.Writer
}

// NewReader returns a Reader bound to ctx. A non-nil echo receives every
// byte read, CR expanded to CRLF, for terminals without local echo.
func NewReader(ctx context.Context, port Port, echo io.Writer) *Reader {
	return &Reader{ctx: ctx, port: port, echo: echo}
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if r.ctx.Err() != nil {
			return 0, io.EOF
		}
		rctx, cancel := context.WithTimeout(r.ctx, recvSlice)
		n, err := r.port.RecvSomeContext(rctx, p)
		cancel()
		if n <= 0 {
			if err == nil || r.ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return 0, err
		}
		// Terminals send CR for enter; the scanner upstream splits on LF.
		for i := 0; i < n; i++ {
			if p[i] == '\r' {
				p[i] = '\n'
			}
		}
		if r.echo != nil {
			r.writeEcho(p[:n])
		}
		return n, nil
	}
}

func (r *Reader) writeEcho(b []byte) {
	out := make([]byte, 0, len(b)+2)
	for _, c := range b {
		if c == '\n' {
			out = append(out, '\r')
		}
		out = append(out, c)
	}
	_, _ = r.echo.Write(out)
}
