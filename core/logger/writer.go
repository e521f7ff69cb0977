package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// sink receives every line at or above min.
type sink struct {
	w   *bufio.Writer
	min slog.Level
}

func newSink(w io.Writer, min slog.Level, bufSize int) sink {
	return sink{w: bufio.NewWriterSize(w, bufSize), min: min}
}

// record is either a log line or, when ack is set, a flush marker.
type record struct {
	level slog.Level
	line  []byte
	ack   chan error
}

// asyncWriter fans log lines out to its sinks from a single goroutine.
// Flush markers travel through the same queue, so a Flush covers every
// line written before it.
type asyncWriter struct {
	queue chan record
	done  chan struct{}
	sinks []sink

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(sinks []sink, queueSize int) *asyncWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &asyncWriter{
		queue: make(chan record, queueSize),
		done:  make(chan struct{}),
		sinks: sinks,
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for rec := range w.queue {
		if rec.ack != nil {
			rec.ack <- w.flush()
			continue
		}
		w.setErr(w.write(rec))
		if len(w.queue) == 0 {
			w.setErr(w.flush())
		}
	}
	w.setErr(w.flush())
}

// Write enqueues a copy of p. It blocks while the queue is full.
func (w *asyncWriter) Write(level slog.Level, p []byte) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- record{level: level, line: line}
	return nil
}

// Flush returns once every line queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return w.getErr()
	}
	w.queue <- record{ack: ack}
	w.mu.RUnlock()
	if err := <-ack; err != nil {
		return err
	}
	return w.getErr()
}

// Close drains the queue and reports the first write error.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.getErr()
}

func (w *asyncWriter) write(rec record) error {
	for _, s := range w.sinks {
		if rec.level < s.min {
			continue
		}
		if _, err := s.w.Write(rec.line); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
