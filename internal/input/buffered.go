package input

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dl/goread/internal/ioerr"
)

// bufPool pools read buffers to reduce per-file heap allocations.
// Buffers are stored as *[]byte so the pool can reuse the backing array
// even when the slice grows beyond its original capacity.
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64*1024) // 64KB initial capacity
		return &b
	},
}

// BufferedReader reads files using unix.Open with O_NOATIME and unix.Pread.
// Uses sync.Pool to reuse buffers across files, avoiding per-file heap allocation.
type BufferedReader struct{}

// NewBufferedReader creates a new BufferedReader.
func NewBufferedReader() *BufferedReader {
	return &BufferedReader{}
}

func (r *BufferedReader) Read(path string, rng Range) (ReadResult, error) {
	fd, size, err := openRange(path, rng)
	if err != nil {
		return ReadResult{}, err
	}
	return readBuffered(fd, size, rng, path)
}

// readBuffered reads the window rng of an already-open fd into a pooled buffer.
// Takes ownership of fd; the caller must not close it.
func readBuffered(fd int, size int64, rng Range, path string) (ReadResult, error) {
	start, end := rng.clip(size)
	want := int(end - start)
	if want == 0 {
		unix.Close(fd)
		return emptyResult(rng)
	}

	// Get a pooled buffer and grow it to fit the window
	bp := bufPool.Get().(*[]byte)
	buf := *bp
	if cap(buf) < want {
		buf = make([]byte, want)
	} else {
		buf = buf[:want]
	}
	release := func() error {
		*bp = buf
		bufPool.Put(bp)
		return nil
	}

	// pread keeps no seek state, so a short file just ends the loop
	var totalRead int
	for totalRead < want {
		n, err := unix.Pread(fd, buf[totalRead:], start+int64(totalRead))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			unix.Close(fd)
			release()
			return ReadResult{}, ioerr.Wrap("read", path, err)
		}
		if n == 0 {
			break // EOF
		}
		totalRead += n
	}

	unix.Close(fd)

	if totalRead == 0 {
		release()
		return emptyResult(rng)
	}

	return ReadResult{
		Data:   buf[:totalRead],
		Closer: release,
	}, nil
}
