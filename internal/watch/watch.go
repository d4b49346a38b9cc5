package watch

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dl/goread/internal/stream"
)

// Event represents a file change event.
type Event struct {
	Path string
	Type EventType
	Err  error
}

// EventType identifies the kind of file change.
type EventType int

const (
	EventModified EventType = iota
	EventCreated
	EventDeleted
)

// Watcher watches files and directories for changes using raw inotify + epoll.
// Each watched file is read through its own open stream, so ReadNew
// continues from wherever the previous read stopped.
type Watcher struct {
	inotifyFd int
	epollFd   int

	// mu guards watches and streams. The events goroutine reads watches
	// while callers add paths.
	mu      sync.RWMutex
	watches map[int]string            // wd -> path
	streams map[string]*stream.Stream // path -> open stream

	done chan struct{}
}

// New creates a new inotify-based file watcher.
func New() (*Watcher, error) {
	ifd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}

	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(ifd)
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	// Register inotify fd with epoll
	event := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(ifd),
	}
	if err := unix.EpollCtl(efd, unix.EPOLL_CTL_ADD, ifd, &event); err != nil {
		unix.Close(efd)
		unix.Close(ifd)
		return nil, fmt.Errorf("epoll_ctl: %w", err)
	}

	return &Watcher{
		inotifyFd: ifd,
		epollFd:   efd,
		watches:   make(map[int]string),
		streams:   make(map[string]*stream.Stream),
		done:      make(chan struct{}),
	}, nil
}

// Add adds a path to watch. For directories, watches for new/modified files.
// For files, watches for modifications and moves (log rotation); only bytes
// appended after Add are returned by ReadNew.
func (w *Watcher) Add(path string) error {
	return w.AddAt(path, io.SeekEnd)
}

// AddAt is Add with the starting point for files given as a whence:
// io.SeekStart makes the first ReadNew return the existing content.
func (w *Watcher) AddAt(path string, whence int) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	mask := uint32(unix.IN_MODIFY | unix.IN_CREATE | unix.IN_MOVED_TO | unix.IN_MOVE_SELF | unix.IN_DELETE_SELF)

	wd, err := unix.InotifyAddWatch(w.inotifyFd, absPath, mask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", absPath, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.watches[wd] = absPath

	var stat unix.Stat_t
	if err := unix.Stat(absPath, &stat); err != nil || stat.Mode&unix.S_IFMT == unix.S_IFDIR {
		return nil
	}
	// A re-added path may be a new file under an old name.
	if old, ok := w.streams[absPath]; ok {
		old.Close()
		delete(w.streams, absPath)
	}
	s, err := w.open(absPath)
	if err != nil {
		return err
	}
	if _, err := s.Seek(0, whence); err != nil {
		return err
	}
	return nil
}

// open returns the stream for path, opening it if needed. w.mu must be held.
func (w *Watcher) open(path string) (*stream.Stream, error) {
	if s, ok := w.streams[path]; ok {
		return s, nil
	}
	s, err := stream.Open(path)
	if err != nil {
		return nil, err
	}
	w.streams[path] = s
	return s, nil
}

// Events returns a channel of file events. Blocks until Close() is called.
func (w *Watcher) Events() <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		buf := make([]byte, 4096)
		events := make([]unix.EpollEvent, 1)

		for {
			select {
			case <-w.done:
				return
			default:
			}

			// Wait for events with 100ms timeout
			n, err := unix.EpollWait(w.epollFd, events, 100)
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				ch <- Event{Err: fmt.Errorf("epoll_wait: %w", err)}
				return
			}
			if n == 0 {
				continue
			}

			// Read inotify events
			nbytes, err := unix.Read(w.inotifyFd, buf)
			if err != nil {
				if err == unix.EAGAIN {
					continue
				}
				ch <- Event{Err: fmt.Errorf("read inotify: %w", err)}
				return
			}

			// Parse inotify events from buffer
			w.parseEvents(buf[:nbytes], ch)
		}
	}()
	return ch
}

// inotify event header layout:
//   int32  wd       (offset 0)
//   uint32 mask     (offset 4)
//   uint32 cookie   (offset 8)
//   uint32 len      (offset 12)
//   char   name[]   (offset 16)
const inotifyEventSize = 16

func (w *Watcher) parseEvents(buf []byte, ch chan<- Event) {
	offset := 0
	for offset+inotifyEventSize <= len(buf) {
		wd := int32(binary.LittleEndian.Uint32(buf[offset:]))
		mask := binary.LittleEndian.Uint32(buf[offset+4:])
		// cookie at offset+8 (unused)
		nameLen := int(binary.LittleEndian.Uint32(buf[offset+12:]))

		var name string
		if nameLen > 0 {
			nameStart := offset + inotifyEventSize
			nameEnd := nameStart + nameLen
			if nameEnd > len(buf) {
				break
			}
			nameBytes := buf[nameStart:nameEnd]
			// Trim NUL padding
			for i, b := range nameBytes {
				if b == 0 {
					nameBytes = nameBytes[:i]
					break
				}
			}
			name = string(nameBytes)
		}

		offset += inotifyEventSize + nameLen

		w.mu.RLock()
		dirPath := w.watches[int(wd)]
		w.mu.RUnlock()
		var path string
		if name != "" {
			path = filepath.Join(dirPath, name)
		} else {
			path = dirPath
		}

		switch {
		case mask&unix.IN_CREATE != 0 || mask&unix.IN_MOVED_TO != 0:
			ch <- Event{Path: path, Type: EventCreated}
		case mask&unix.IN_MODIFY != 0:
			ch <- Event{Path: path, Type: EventModified}
		case mask&unix.IN_DELETE_SELF != 0 || mask&unix.IN_MOVE_SELF != 0:
			ch <- Event{Path: path, Type: EventDeleted}
		}
	}
}

// ReadNew reads new content appended to a file since the last read.
// Files not seen before (created in a watched directory) are read from the
// start. A file that shrank below the cursor was truncated and is reread
// from the start.
func (w *Watcher) ReadNew(path string) ([]byte, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	s, err := w.open(absPath)
	if err != nil {
		return nil, err
	}

	var stat unix.Stat_t
	if err := unix.Stat(absPath, &stat); err != nil {
		return nil, err
	}
	pos, err := s.Pos()
	if err != nil {
		return nil, err
	}
	if stat.Size < pos {
		if err := s.Rewind(); err != nil {
			return nil, err
		}
	}

	data, err := s.ReadAll()
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return data, nil
}

// Forget closes the stream for a file that was deleted or moved away.
func (w *Watcher) Forget(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	s, ok := w.streams[absPath]
	delete(w.streams, absPath)
	w.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close()
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	close(w.done)

	w.mu.Lock()
	for path, s := range w.streams {
		s.Close()
		delete(w.streams, path)
	}
	w.mu.Unlock()

	unix.Close(w.epollFd)
	return unix.Close(w.inotifyFd)
}
