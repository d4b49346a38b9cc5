package binding

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/dl/goread/internal/input"
	"github.com/dl/goread/internal/ioerr"
	"github.com/dl/goread/internal/stream"
)

const contents = "1234567890"

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

type pathLike string

func (p pathLike) ToPath() string { return string(p) }

type count int

func (c count) ToInt() int64 { return int64(c) }

type bufferMock struct {
	mock.Mock
}

func (m *bufferMock) ToBuffer() *[]byte {
	args := m.Called()
	return args.Get(0).(*[]byte)
}

func TestReadFile(t *testing.T) {
	path := writeFixture(t)

	tests := []struct {
		name string
		path any
		args []any
		want string
	}{
		{"whole file", path, nil, contents},
		{"length", path, []any{5}, "12345"},
		{"length and offset", path, []any{5, 3}, "45678"},
		{"nil length with offset", path, []any{nil, 3}, "4567890"},
		{"zero length", path, []any{0}, ""},
		{"byte slice path", []byte(path), []any{int64(2)}, "12"},
		{"coerced path and length", pathLike(path), []any{count(3), uint8(1)}, "234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ReadFile(tt.path, tt.args...)
			require.NoError(t, err)
			assert.False(t, v.Absent)
			assert.Equal(t, tt.want, string(v.Data))
		})
	}
}

func TestReadFile_Errors(t *testing.T) {
	path := writeFixture(t)

	tests := []struct {
		name string
		path any
		args []any
		kind error
	}{
		{"missing file", filepath.Join(t.TempDir(), "missing.txt"), nil, ioerr.ErrNotFound},
		{"missing file with negative length", filepath.Join(t.TempDir(), "missing.txt"), []any{-1}, ioerr.ErrNotFound},
		{"missing file with negative offset", filepath.Join(t.TempDir(), "missing.txt"), []any{-1, -1}, ioerr.ErrNotFound},
		{"nil path", nil, nil, ioerr.ErrTypeMismatch},
		{"integer path", 42, nil, ioerr.ErrTypeMismatch},
		{"negative length", path, []any{-1}, ioerr.ErrInvalidArgument},
		{"negative offset", path, []any{0, -1}, ioerr.ErrInvalidValue},
		{"negative length and offset", path, []any{-1, -1}, ioerr.ErrInvalidValue},
		{"string length", path, []any{"5"}, ioerr.ErrTypeMismatch},
		{"float offset", path, []any{1, 2.5}, ioerr.ErrTypeMismatch},
		{"too many arguments", path, []any{1, 2, 3}, ioerr.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFile(tt.path, tt.args...)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	_, err := ReadFile(path, 0, -1)
	assert.ErrorIs(t, err, unix.EINVAL)
}

func TestReadFile_Absent(t *testing.T) {
	path := writeFixture(t)

	v, err := ReadFile(path, 5, 10)
	require.NoError(t, err)
	assert.True(t, v.Absent)
	assert.Equal(t, "<absent>", v.String())

	// Without a length the end of the file is an empty result.
	v, err = ReadFile(path, nil, 10)
	require.NoError(t, err)
	assert.False(t, v.Absent)
	assert.Empty(t, v.Data)
}

func TestReadFileFrom_FS(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "test.txt", []byte(contents), 0644))

	v, err := ReadFileFrom(input.NewFSReader(fsys), "test.txt", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, "45678", v.String())
}

func openStream(t *testing.T) *stream.Stream {
	t.Helper()
	s, err := stream.OpenFile(writeFixture(t), os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRead_ZeroLength(t *testing.T) {
	s := openStream(t)

	v, err := Read(s, 0)
	require.NoError(t, err)
	assert.False(t, v.Absent)
	assert.Empty(t, v.Data)

	c, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('1'), c)
}

func TestRead_EndOfFile(t *testing.T) {
	s := openStream(t)

	v, err := Read(s)
	require.NoError(t, err)
	assert.Equal(t, contents, v.String())

	eof, err := s.EOF()
	require.NoError(t, err)
	assert.True(t, eof)

	v, err = Read(s)
	require.NoError(t, err)
	assert.False(t, v.Absent)
	assert.Empty(t, v.Data)

	v, err = Read(s, 1)
	require.NoError(t, err)
	assert.True(t, v.Absent)
}

func TestRead_MoreThanAvailable(t *testing.T) {
	s := openStream(t)

	v, err := Read(s, len(contents)+1)
	require.NoError(t, err)
	assert.Equal(t, contents, v.String())
}

func TestRead_IntoBuffer(t *testing.T) {
	s := openStream(t)

	for _, prior := range []string{"", "ABCDE", "ABCDEABCDEABCDEABCDEABCDE"} {
		require.NoError(t, s.Rewind())

		buf := []byte(prior)
		v, err := Read(s, 10, &buf)
		require.NoError(t, err)
		assert.Equal(t, contents, string(buf))
		assert.Equal(t, buf, v.Data)
	}
}

func TestRead_CoercesBuffer(t *testing.T) {
	s := openStream(t)

	buf := []byte("ABCDE")
	obj := new(bufferMock)
	obj.On("ToBuffer").Return(&buf)

	v, err := Read(s, 15, obj)
	require.NoError(t, err)
	assert.Equal(t, contents, string(buf))
	assert.Equal(t, buf, v.Data)
	obj.AssertExpectations(t)
}

func TestRead_OtherBuffers(t *testing.T) {
	s := openStream(t)

	var bb bytes.Buffer
	bb.WriteString("previous content")
	_, err := Read(s, 4, &bb)
	require.NoError(t, err)
	assert.Equal(t, "1234", bb.String())

	str := "xy"
	_, err = Read(s, nil, &str)
	require.NoError(t, err)
	assert.Equal(t, "567890", str)

	// At end-of-file the buffer is emptied.
	v, err := Read(s, 3, &str)
	require.NoError(t, err)
	assert.True(t, v.Absent)
	assert.Empty(t, str)
}

func TestRead_Errors(t *testing.T) {
	s := openStream(t)

	_, err := Read(s, -1)
	assert.ErrorIs(t, err, ioerr.ErrInvalidArgument)

	_, err = Read(s, "10")
	assert.ErrorIs(t, err, ioerr.ErrTypeMismatch)

	_, err = Read(s, 10, 42)
	assert.ErrorIs(t, err, ioerr.ErrTypeMismatch)

	_, err = Read(s, 1, nil, nil)
	assert.ErrorIs(t, err, ioerr.ErrInvalidArgument)
}

func TestRead_ClosedStream(t *testing.T) {
	s, err := stream.Open(writeFixture(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Read(s)
	assert.ErrorIs(t, err, ioerr.ErrClosed)
}
