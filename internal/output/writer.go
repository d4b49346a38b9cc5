package output

import (
	"os"

	"golang.org/x/sys/unix"
)

// Writer writes formatted output to a file descriptor, using writev for batching.
type Writer struct {
	fd int
}

// NewWriter creates a Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{fd: int(os.Stdout.Fd())}
}

// NewFileWriter creates a Writer that writes to f.
func NewFileWriter(f *os.File) *Writer {
	return &Writer{fd: int(f.Fd())}
}

// Write writes the given bytes using writev for scatter-gather I/O.
func (w *Writer) Write(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	for len(data) > 0 {
		iovs := [][]byte{data}
		n, err := unix.Writev(w.fd, iovs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}

// OrderedWriter receives results from a channel and writes them in sequence order.
// This ensures output is deterministic even with parallel workers.
type OrderedWriter struct {
	writer    *Writer
	formatter Formatter
	multiFile bool
	buf       []byte
}

// NewOrderedWriter creates an OrderedWriter.
func NewOrderedWriter(w *Writer, f Formatter, multiFile bool) *OrderedWriter {
	return &OrderedWriter{
		writer:    w,
		formatter: f,
		multiFile: multiFile,
	}
}

// WriteOrdered consumes results from the channel, buffering out-of-order results
// and writing them in sequence-number order. onResult sees every result in
// order, before its buffer is released.
func (ow *OrderedWriter) WriteOrdered(results <-chan Result, onResult func(Result)) error {
	nextSeq := 1
	pending := make(map[int]Result)
	var firstErr error

	emit := func(r Result) {
		if onResult != nil {
			onResult(r)
		}
		if err := ow.writeResult(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for r := range results {
		if r.SeqNum != nextSeq {
			pending[r.SeqNum] = r
			continue
		}
		emit(r)
		nextSeq++
		// Flush any consecutive pending results
		for {
			p, ok := pending[nextSeq]
			if !ok {
				break
			}
			emit(p)
			delete(pending, nextSeq)
			nextSeq++
		}
	}
	return firstErr
}

func (ow *OrderedWriter) writeResult(r Result) error {
	defer r.Release()
	ow.buf = ow.formatter.Format(ow.buf[:0], r, ow.multiFile)
	return ow.writer.Write(ow.buf)
}
