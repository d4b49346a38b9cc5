// Package binding exposes the readers to callers that pass untyped
// arguments, such as an embedded scripting host or raw command-line
// values. It owns argument checking and coercion: paths must be text,
// lengths and offsets integers, buffers mutable byte containers.
package binding

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/dl/goread/internal/input"
	"github.com/dl/goread/internal/ioerr"
	"github.com/dl/goread/internal/stream"
)

// Value is the result of a read. Absent marks a length-bounded read that
// found nothing, as distinct from an empty Data.
type Value struct {
	Data   []byte
	Absent bool
}

func (v Value) String() string {
	if v.Absent {
		return "<absent>"
	}
	return string(v.Data)
}

// PathCoercer is implemented by values that can stand in for a path.
type PathCoercer interface {
	ToPath() string
}

// IntCoercer is implemented by values that can stand in for a length or
// offset.
type IntCoercer interface {
	ToInt() int64
}

// BufferCoercer is implemented by values that can supply the byte
// container a read fills.
type BufferCoercer interface {
	ToBuffer() *[]byte
}

var defaultReader = input.NewAdaptiveReader(input.DefaultMmapThreshold)

// ReadFile reads a file given untyped arguments: path [, length [, offset]].
// A nil length or offset counts as absent.
func ReadFile(path any, args ...any) (Value, error) {
	return ReadFileFrom(defaultReader, path, args...)
}

// ReadFileFrom is ReadFile over a specific input.Reader.
func ReadFileFrom(r input.Reader, path any, args ...any) (Value, error) {
	p, err := toPath(path)
	if err != nil {
		return Value{}, err
	}
	if len(args) > 2 {
		return Value{}, arity("read", len(args)+1, 1, 3)
	}

	var rng input.Range
	if len(args) > 0 {
		n, ok, err := toInt("length", args[0])
		if err != nil {
			return Value{}, err
		}
		rng.Length, rng.Limited = n, ok
	}
	if len(args) > 1 {
		off, _, err := toInt("offset", args[1])
		if err != nil {
			return Value{}, err
		}
		rng.Offset = off
	}

	res, err := r.Read(p, rng)
	if err == io.EOF {
		return Value{Absent: true}, nil
	}
	if err != nil {
		return Value{}, err
	}
	defer res.Closer()

	data := make([]byte, len(res.Data))
	copy(data, res.Data)
	return Value{Data: data}, nil
}

// Read reads from s given untyped arguments: [length [, buffer]].
//
// Without a length it reads to end-of-file and never reports Absent. With
// a length it reports Absent once nothing is left. When a buffer is given
// its previous contents are replaced by the bytes read and the returned
// Data is the buffer's new content.
func Read(s *stream.Stream, args ...any) (Value, error) {
	if len(args) > 2 {
		return Value{}, arity("read", len(args), 0, 2)
	}

	var (
		n      int64
		hasLen bool
		err    error
	)
	if len(args) > 0 {
		if n, hasLen, err = toInt("length", args[0]); err != nil {
			return Value{}, err
		}
		if n > math.MaxInt {
			n = math.MaxInt
		}
	}

	var target *buffer
	if len(args) > 1 {
		if target, err = toBuffer(args[1]); err != nil {
			return Value{}, err
		}
	}

	if target == nil {
		if !hasLen {
			data, err := s.ReadAll()
			if err != nil {
				return Value{}, err
			}
			return Value{Data: data}, nil
		}
		data, err := s.ReadN(int(n))
		if err == io.EOF {
			return Value{Absent: true}, nil
		}
		if err != nil {
			return Value{}, err
		}
		return Value{Data: data}, nil
	}

	if !hasLen {
		data, err := s.ReadAll()
		if err != nil {
			return Value{}, err
		}
		*target.p = append((*target.p)[:0], data...)
		target.commit()
		return Value{Data: *target.p}, nil
	}

	_, err = s.ReadInto(int(n), target.p)
	if err == io.EOF {
		target.commit()
		return Value{Absent: true}, nil
	}
	if err != nil {
		return Value{}, err
	}
	target.commit()
	return Value{Data: *target.p}, nil
}

func toPath(v any) (string, error) {
	switch p := v.(type) {
	case string:
		return p, nil
	case []byte:
		return string(p), nil
	case PathCoercer:
		return p.ToPath(), nil
	}
	return "", mismatch("path", v, "string")
}

// toInt converts v to an int64. ok is false when v is nil.
func toInt(name string, v any) (n int64, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return int64(x), true, nil
	case int8:
		return int64(x), true, nil
	case int16:
		return int64(x), true, nil
	case int32:
		return int64(x), true, nil
	case int64:
		return x, true, nil
	case uint:
		return clampUint(uint64(x)), true, nil
	case uint8:
		return int64(x), true, nil
	case uint16:
		return int64(x), true, nil
	case uint32:
		return int64(x), true, nil
	case uint64:
		return clampUint(x), true, nil
	case IntCoercer:
		return x.ToInt(), true, nil
	}
	return 0, false, mismatch(name, v, "integer")
}

func clampUint(x uint64) int64 {
	if x > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(x)
}

// buffer is a byte container a read fills, plus the step that copies the
// result back into the caller's value when it is not a plain *[]byte.
type buffer struct {
	p      *[]byte
	commit func()
}

func toBuffer(v any) (*buffer, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case *[]byte:
		if b == nil {
			return nil, mismatch("buffer", v, "byte buffer")
		}
		return &buffer{p: b, commit: func() {}}, nil
	case *bytes.Buffer:
		if b == nil {
			return nil, mismatch("buffer", v, "byte buffer")
		}
		var p []byte
		return &buffer{p: &p, commit: func() {
			b.Reset()
			b.Write(p)
		}}, nil
	case *string:
		if b == nil {
			return nil, mismatch("buffer", v, "byte buffer")
		}
		p := []byte(*b)
		return &buffer{p: &p, commit: func() { *b = string(p) }}, nil
	case BufferCoercer:
		p := b.ToBuffer()
		if p == nil {
			return nil, mismatch("buffer", v, "byte buffer")
		}
		return &buffer{p: p, commit: func() {}}, nil
	}
	return nil, mismatch("buffer", v, "byte buffer")
}

func mismatch(name string, v any, want string) error {
	return ioerr.New("", "", ioerr.KindTypeMismatch,
		fmt.Errorf("%s: cannot convert %T to %s", name, v, want))
}

func arity(op string, got, lo, hi int) error {
	return ioerr.New(op, "", ioerr.KindInvalidArgument,
		fmt.Errorf("wrong number of arguments (%d for %d..%d)", got, lo, hi))
}
