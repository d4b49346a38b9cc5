// Package stream implements incremental reads over an open file handle.
//
// A Stream keeps a read-ahead buffer in front of the handle. Reads report
// end-of-file in two shapes: ReadAll returns an empty slice, while
// length-bounded reads (ReadN, ReadInto) return io.EOF once nothing is
// left. A Stream is owned by a single goroutine.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/sys/unix"

	"github.com/dl/goread/internal/ioerr"
)

const (
	bufSize = 32 * 1024

	// maxEmptyReads bounds consecutive (0, nil) reads from the handle.
	maxEmptyReads = 100
)

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufSize)
		return &b
	},
}

// File is the handle a Stream reads from. *os.File and billy.File both
// satisfy it.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// Stream reads incrementally from a File.
type Stream struct {
	f    File
	name string

	bp   *[]byte
	buf  []byte
	r, w int // buf[r:w] is read-ahead not yet handed out

	closed bool
}

// New wraps an already-open handle. The Stream takes ownership of f and
// closes it in Close.
func New(f File, name string) *Stream {
	bp := bufPool.Get().(*[]byte)
	return &Stream{
		f:    f,
		name: name,
		bp:   bp,
		buf:  *bp,
	}
}

// Open opens path read-only.
func Open(path string) (*Stream, error) {
	return OpenFile(path, os.O_RDONLY, 0)
}

// OpenFile opens path with the given flags, e.g. os.O_RDWR for a
// read/write stream.
func OpenFile(path string, flag int, perm os.FileMode) (*Stream, error) {
	fd, err := unix.Open(path, flag|unix.O_CLOEXEC, uint32(perm.Perm()))
	if err != nil {
		return nil, ioerr.Wrap("open", path, err)
	}
	return New(os.NewFile(uintptr(fd), path), path), nil
}

// OpenFS opens name on fsys.
func OpenFS(fsys billy.Filesystem, name string, flag int) (*Stream, error) {
	f, err := fsys.OpenFile(name, flag, 0644)
	if err != nil {
		return nil, ioerr.Wrap("open", name, err)
	}
	return New(f, name), nil
}

// Name returns the path the stream was opened with.
func (s *Stream) Name() string { return s.name }

// ReadAll reads everything from the cursor to end-of-file. At end-of-file
// it returns an empty, non-nil slice and a nil error.
func (s *Stream) ReadAll() ([]byte, error) {
	if err := s.check("read"); err != nil {
		return nil, err
	}
	out, err := s.appendN(make([]byte, 0, max(s.w-s.r, 512)), math.MaxInt)
	if err != nil {
		return nil, ioerr.Wrap("read", s.name, err)
	}
	return out, nil
}

// ReadN reads up to n bytes. The result is shorter than n when end-of-file
// intervenes. When n > 0 and nothing is left it returns nil, io.EOF.
// ReadN(0) returns an empty slice without touching the cursor.
func (s *Stream) ReadN(n int) ([]byte, error) {
	if err := s.check("read"); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, s.negativeLength(n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	out, err := s.appendN(make([]byte, 0, min(n, bufSize)), n)
	if err != nil {
		return nil, ioerr.Wrap("read", s.name, err)
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

// ReadInto reads up to n bytes into *buf, replacing its previous contents
// whatever their length, and returns *buf. The backing array is reused
// when it is large enough. At end-of-file with n > 0, *buf is left empty
// and io.EOF is returned. A nil buf behaves like ReadN.
func (s *Stream) ReadInto(n int, buf *[]byte) ([]byte, error) {
	if buf == nil {
		return s.ReadN(n)
	}
	if err := s.check("read"); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, s.negativeLength(n)
	}

	out, err := s.appendN((*buf)[:0], n)
	*buf = out
	if err != nil {
		*buf = out[:0]
		return nil, ioerr.Wrap("read", s.name, err)
	}
	if n > 0 && len(out) == 0 {
		return *buf, io.EOF
	}
	return *buf, nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if err := s.check("read"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if s.r == s.w {
		if len(p) >= len(s.buf) {
			// Large read, skip the buffer.
			n, err := s.readRaw(p)
			if err != nil && err != io.EOF {
				err = ioerr.Wrap("read", s.name, err)
			}
			return n, err
		}
		if err := s.fill(); s.r == s.w {
			if err != nil && err != io.EOF {
				err = ioerr.Wrap("read", s.name, err)
			}
			return 0, err
		}
	}
	n := copy(p, s.buf[s.r:s.w])
	s.r += n
	return n, nil
}

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if err := s.check("read"); err != nil {
		return 0, err
	}
	if s.r == s.w {
		if err := s.fill(); s.r == s.w {
			if err == nil || err == io.EOF {
				return 0, io.EOF
			}
			return 0, ioerr.Wrap("read", s.name, err)
		}
	}
	c := s.buf[s.r]
	s.r++
	return c, nil
}

// UnreadByte steps back over the byte returned by the last ReadByte.
func (s *Stream) UnreadByte() error {
	if err := s.check("unread"); err != nil {
		return err
	}
	if s.r == 0 {
		return bufio.ErrInvalidUnreadByte
	}
	s.r--
	return nil
}

// EOF reports whether the cursor is at end-of-file. It may read ahead into
// the buffer to find out, so it also works on pipes.
func (s *Stream) EOF() (bool, error) {
	if err := s.check("eof"); err != nil {
		return false, err
	}
	if s.r < s.w {
		return false, nil
	}
	err := s.fill()
	if s.r < s.w {
		return false, nil
	}
	if err == io.EOF {
		return true, nil
	}
	return false, ioerr.Wrap("read", s.name, err)
}

// Pos returns the logical cursor: the handle's offset minus the unread
// read-ahead.
func (s *Stream) Pos() (int64, error) {
	if err := s.check("tell"); err != nil {
		return 0, err
	}
	cur, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, ioerr.Wrap("seek", s.name, err)
	}
	return cur - int64(s.w-s.r), nil
}

// Seek implements io.Seeker relative to the logical cursor and drops the
// read-ahead. A negative resulting offset fails with ioerr.KindInvalidValue.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if err := s.check("seek"); err != nil {
		return 0, err
	}
	if whence == io.SeekCurrent {
		offset -= int64(s.w - s.r)
	}
	s.r, s.w = 0, 0
	pos, err := s.f.Seek(offset, whence)
	if err != nil {
		return 0, ioerr.Wrap("seek", s.name, err)
	}
	return pos, nil
}

// Rewind moves the cursor back to the start of the file.
func (s *Stream) Rewind() error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

// Write writes p at the logical cursor.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.check("write"); err != nil {
		return 0, err
	}
	if s.r < s.w {
		if _, err := s.f.Seek(-int64(s.w-s.r), io.SeekCurrent); err != nil {
			return 0, ioerr.Wrap("seek", s.name, err)
		}
		s.r, s.w = 0, 0
	}
	n, err := s.f.Write(p)
	if err != nil {
		return n, ioerr.Wrap("write", s.name, err)
	}
	return n, nil
}

// Close releases the handle. Every later call, Close included, fails with
// ioerr.KindClosed.
func (s *Stream) Close() error {
	if err := s.check("close"); err != nil {
		return err
	}
	s.closed = true
	s.r, s.w = 0, 0
	s.buf = nil
	bufPool.Put(s.bp)
	s.bp = nil
	return ioerr.Wrap("close", s.name, s.f.Close())
}

func (s *Stream) check(op string) error {
	if s.closed {
		return ioerr.New(op, s.name, ioerr.KindClosed, nil)
	}
	return nil
}

func (s *Stream) negativeLength(n int) error {
	return ioerr.New("read", s.name, ioerr.KindInvalidArgument, fmt.Errorf("negative length %d given", n))
}

// appendN appends up to n bytes to dst, stopping early at end-of-file.
// io.EOF is not reported as an error.
func (s *Stream) appendN(dst []byte, n int) ([]byte, error) {
	for len(dst) < n {
		if s.r < s.w {
			k := min(n-len(dst), s.w-s.r)
			dst = append(dst, s.buf[s.r:s.r+k]...)
			s.r += k
			continue
		}
		if err := s.fill(); err != nil {
			if err == io.EOF {
				if s.r < s.w {
					continue
				}
				return dst, nil
			}
			return dst, err
		}
	}
	return dst, nil
}

// fill reads more data into the buffer behind any unread bytes.
func (s *Stream) fill() error {
	if s.r > 0 {
		copy(s.buf, s.buf[s.r:s.w])
		s.w -= s.r
		s.r = 0
	}
	if s.w == len(s.buf) {
		return nil
	}
	n, err := s.readRaw(s.buf[s.w:])
	s.w += n
	return err
}

func (s *Stream) readRaw(p []byte) (int, error) {
	for range maxEmptyReads {
		n, err := s.f.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, io.ErrNoProgress
}
