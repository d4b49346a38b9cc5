package input

import "io"

// DefaultMmapThreshold is the window size at which the adaptive reader
// switches from pread into a pooled buffer to memory-mapping.
const DefaultMmapThreshold = 1 << 20

// ReadResult holds the data read from a file and a cleanup function.
// Data aliases pooled or mapped memory and is only valid until Closer runs.
type ReadResult struct {
	Data   []byte
	Closer func() error
}

// noopCloser is a package-level no-op closer to avoid allocating a func literal per file.
func noopCloser() error { return nil }

// Reader reads a window of a file's content into a byte slice.
//
// The file is opened and closed inside Read. A limited, non-zero window
// that finds no bytes returns io.EOF instead of an empty result.
type Reader interface {
	Read(path string, rng Range) (ReadResult, error)
}

var defaultReader = NewAdaptiveReader(DefaultMmapThreshold)

// ReadFile reads rng of the file at path and returns a private copy of the
// bytes. It returns io.EOF when rng asks for a positive length and the
// file has nothing at the offset.
func ReadFile(path string, rng Range) ([]byte, error) {
	res, err := defaultReader.Read(path, rng)
	if err != nil {
		return nil, err
	}
	defer res.Closer()

	out := make([]byte, len(res.Data))
	copy(out, res.Data)
	return out, nil
}

// emptyResult is the result for a window that holds no bytes.
func emptyResult(rng Range) (ReadResult, error) {
	if rng.wantsBytes() {
		return ReadResult{}, io.EOF
	}
	return ReadResult{Data: nil, Closer: noopCloser}, nil
}
