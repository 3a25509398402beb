package logger

import (
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// writeOp is either a line to emit or, when ack is set, a barrier that
// reports the sticky error once every earlier line has been written.
type writeOp struct {
	line []byte
	ack  chan error
}

// asyncWriter moves sink I/O off the logging goroutine. Lines keep their
// order and are never dropped; a full queue blocks the caller. The first
// sink error sticks.
type asyncWriter struct {
	sinks []io.Writer
	ops   chan writeOp
	done  chan struct{}

	closeMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(sinks []io.Writer, queue int) *asyncWriter {
	if queue <= 0 {
		queue = 256
	}
	w := &asyncWriter{
		ops:  make(chan writeOp, queue),
		done: make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- w.stickyErr()
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(op.line); err != nil {
				w.fail(err)
				break
			}
		}
	}
}

// Write queues a copy of p.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return w.stickyErr()
	}
	return w.submit(writeOp{line: append([]byte(nil), p...)})
}

// Flush blocks until every line queued before it has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	if err := w.submit(writeOp{ack: ack}); err != nil {
		return err
	}
	return <-ack
}

func (w *asyncWriter) submit(op writeOp) error {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	if err := w.stickyErr(); err != nil {
		return err
	}
	w.ops <- op
	return nil
}

// Close drains pending lines and stops the writer. It is safe to call twice.
func (w *asyncWriter) Close() error {
	w.closeMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.closeMu.Unlock()
	<-w.done
	return w.stickyErr()
}

func (w *asyncWriter) stickyErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) fail(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
