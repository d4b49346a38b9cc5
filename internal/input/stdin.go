package input

import (
	"io"
	"os"

	"github.com/dl/goread/internal/ioerr"
)

// StdinReader reads data from stdin. Stdin cannot seek, so the offset of a
// Range is skipped by discarding bytes.
type StdinReader struct {
	src io.Reader
}

// NewStdinReader creates a new StdinReader.
func NewStdinReader() *StdinReader {
	return &StdinReader{src: os.Stdin}
}

// NewStdinReaderFrom creates a StdinReader over any pipe-like source.
func NewStdinReaderFrom(src io.Reader) *StdinReader {
	return &StdinReader{src: src}
}

func (r *StdinReader) Read(_ string, rng Range) (ReadResult, error) {
	if err := rng.Validate("-"); err != nil {
		return ReadResult{}, err
	}
	if rng.Offset > 0 {
		if _, err := io.CopyN(io.Discard, r.src, rng.Offset); err != nil && err != io.EOF {
			return ReadResult{}, ioerr.Wrap("read", "-", err)
		}
	}

	src := r.src
	if rng.Limited {
		src = io.LimitReader(r.src, rng.Length)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return ReadResult{}, ioerr.Wrap("read", "-", err)
	}
	if len(data) == 0 {
		return emptyResult(rng)
	}
	return ReadResult{
		Data:   data,
		Closer: noopCloser,
	}, nil
}
