package input

import (
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/dl/goread/internal/ioerr"
)

// Range selects the bytes of a file to read. The zero value selects the
// whole file. Length only applies when Limited is set.
type Range struct {
	Offset  int64
	Length  int64
	Limited bool
}

// All selects the entire file.
func All() Range { return Range{} }

// First selects up to n bytes from the start of the file.
func First(n int64) Range { return Range{Length: n, Limited: true} }

// Window selects up to n bytes starting at offset.
func Window(offset, n int64) Range { return Range{Offset: offset, Length: n, Limited: true} }

// From selects everything from offset to the end of the file.
func From(offset int64) Range { return Range{Offset: offset} }

// Validate rejects negative offsets and lengths. The offset is checked
// first: a negative offset is a positioning error (EINVAL) no matter what
// length accompanies it. Path readers call it after opening the file.
func (r Range) Validate(path string) error {
	if r.Offset < 0 {
		return ioerr.New("seek", path, ioerr.KindInvalidValue, unix.EINVAL)
	}
	if r.Limited && r.Length < 0 {
		return ioerr.New("read", path, ioerr.KindInvalidArgument,
			fmt.Errorf("negative length %d given", r.Length))
	}
	return nil
}

// clip returns the byte interval of a file of the given size covered by r.
func (r Range) clip(size int64) (start, end int64) {
	start = min(r.Offset, size)
	end = size
	if r.Limited && r.Length < end-start {
		end = start + r.Length
	}
	return start, end
}

// wantsBytes reports whether an empty read of r means "nothing read"
// rather than an empty result.
func (r Range) wantsBytes() bool {
	return r.Limited && r.Length > 0
}

func (r Range) String() string {
	if !r.Limited {
		return strconv.FormatInt(r.Offset, 10) + ":"
	}
	return strconv.FormatInt(r.Offset, 10) + ":+" + strconv.FormatInt(r.Length, 10)
}
