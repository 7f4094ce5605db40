package logger

import (
	"errors"
	"io"
	"sync"
)

// lineWriter serialises whole lines onto every sink.
type lineWriter struct {
	mu      sync.Mutex
	sinks   []io.Writer
	closers []io.Closer
	closed  bool
}

func newLineWriter(sinks []io.Writer, closers ...io.Closer) *lineWriter {
	return &lineWriter{sinks: sinks, closers: closers}
}

// Write copies line to each sink. A failing sink does not starve the others.
func (w *lineWriter) Write(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errClosed
	}
	var errs []error
	for _, s := range w.sinks {
		if _, err := s.Write(line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the files opened for the writer.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
