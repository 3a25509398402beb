package logger

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestAsyncWriterKeepsOrderAcrossSinks(t *testing.T) {
	var a, b bytes.Buffer
	w := newAsyncWriter([]io.Writer{&a, nil, &b}, 4)
	for _, line := range []string{"one\n", "two\n", "three\n"} {
		if err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if a.String() != "one\ntwo\nthree\n" || a.String() != b.String() {
		t.Fatalf("sinks diverged: %q vs %q", a.String(), b.String())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("expected errWriterClosed, got %v", err)
	}
}

func TestAsyncWriterStickyError(t *testing.T) {
	boom := errors.New("disk full")
	w := newAsyncWriter([]io.Writer{failingWriter{boom}}, 1)
	_ = w.Write([]byte("x\n"))
	if err := w.Flush(); !errors.Is(err, boom) {
		t.Fatalf("flush should report sink error, got %v", err)
	}
	if err := w.Write([]byte("y\n")); !errors.Is(err, boom) {
		t.Fatalf("write after failure should fail, got %v", err)
	}
	if err := w.Close(); !errors.Is(err, boom) {
		t.Fatalf("close should report sink error, got %v", err)
	}
}

func TestAsyncWriterConcurrentWriters(t *testing.T) {
	var buf bytes.Buffer
	w := newAsyncWriter([]io.Writer{&buf}, 2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := strings.Count(buf.String(), "line\n"); got != 200 {
		t.Fatalf("expected 200 lines, got %d", got)
	}
}
