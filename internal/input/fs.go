package input

import (
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/dl/goread/internal/ioerr"
)

// FSReader reads files through a billy.Filesystem, so the same Range
// semantics apply to in-memory and chrooted trees as to the host.
type FSReader struct {
	fs billy.Filesystem
}

// NewFSReader creates an FSReader over fsys.
func NewFSReader(fsys billy.Filesystem) *FSReader {
	return &FSReader{fs: fsys}
}

func (r *FSReader) Read(path string, rng Range) (ReadResult, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return ReadResult{}, ioerr.Wrap("open", path, err)
	}
	defer f.Close()

	if err := rng.Validate(path); err != nil {
		return ReadResult{}, err
	}

	if rng.Offset > 0 {
		if _, err := f.Seek(rng.Offset, io.SeekStart); err != nil {
			return ReadResult{}, ioerr.Wrap("seek", path, err)
		}
	}

	var src io.Reader = f
	if rng.Limited {
		src = io.LimitReader(f, rng.Length)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return ReadResult{}, ioerr.Wrap("read", path, err)
	}
	if len(data) == 0 {
		return emptyResult(rng)
	}
	return ReadResult{
		Data:   data,
		Closer: noopCloser,
	}, nil
}
