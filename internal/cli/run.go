package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/dl/goread/internal/input"
	"github.com/dl/goread/internal/output"
	"github.com/dl/goread/internal/scheduler"
	"github.com/dl/goread/internal/stream"
	"github.com/dl/goread/internal/watch"
)

// Exit codes.
const (
	ExitOK      = 0 // every read produced data
	ExitNothing = 1 // a length-bounded read found nothing
	ExitError   = 2 // invalid arguments or a read failed
)

// Run executes the read with the given config, writing to stdout.
// Returns exit code: 0 = data read, 1 = nothing read, 2 = error.
func Run(cfg Config) int {
	return run(cfg, output.NewWriter(), input.NewStdinReader())
}

func run(cfg Config, w *output.Writer, stdinReader input.Reader) int {
	logger := newLogger(cfg.Verbosity)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid arguments", "err", err)
		return ExitError
	}

	formatter := newFormatter(cfg)

	switch cfg.Mode {
	case ModeChunks:
		return runChunks(cfg.Paths[0], cfg.ChunkSize, formatter, w, logger)
	case ModeFollow:
		return runFollow(cfg.Paths, formatter, w, logger)
	}

	if len(cfg.Paths) == 0 {
		return runStdin(stdinReader, cfg.Range(), formatter, w, logger)
	}

	threshold := cfg.MmapThreshold
	if threshold == 0 {
		threshold = input.DefaultMmapThreshold
	}
	return runFiles(cfg.Paths, cfg.Range(), cfg.Workers, input.NewAdaptiveReader(threshold), formatter, w, logger)
}

func newLogger(verbosity string) *log.Logger {
	level := log.WarnLevel
	if verbosity != "" {
		if l, err := log.ParseLevel(verbosity); err == nil {
			level = l
		}
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:  level,
		Prefix: "goread",
	})
}

func newFormatter(cfg Config) output.Formatter {
	if cfg.JSONOutput {
		return output.NewJSONFormatter()
	}

	// Determine color mode
	useColor := false
	switch cfg.Color {
	case ColorAlways:
		useColor = true
	case ColorNever:
		useColor = false
	case ColorAuto:
		useColor = output.StdoutIsTerminal()
	}

	styles := output.NoStyles()
	if useColor {
		styles = output.NewStyles()
	}
	return output.NewTextFormatter(styles, useColor, cfg.ShowAbsent)
}

func runStdin(reader input.Reader, rng input.Range, formatter output.Formatter, w *output.Writer, logger *log.Logger) int {
	result := output.Result{FilePath: "-", Offset: rng.Offset}

	readResult, err := reader.Read("", rng)
	switch {
	case err == io.EOF:
		result.Absent = true
	case err != nil:
		logger.Error("read error", "path", "-", "err", err)
		return ExitError
	default:
		result.Data = readResult.Data
		result.Closer = readResult.Closer
	}
	defer result.Release()

	if err := w.Write(formatter.Format(nil, result, false)); err != nil {
		logger.Error("write error", "err", err)
		return ExitError
	}
	if result.Absent {
		return ExitNothing
	}
	return ExitOK
}

func runFiles(paths []string, rng input.Range, workers int, reader input.Reader, formatter output.Formatter, w *output.Writer, logger *log.Logger) int {
	jobs := make([]scheduler.Job, len(paths))
	for i, path := range paths {
		jobs[i] = scheduler.Job{Path: path, Range: rng}
	}

	sched := scheduler.New(workers, reader)
	resultCh := sched.Run(jobs)

	// Write results in order
	code := ExitOK
	ow := output.NewOrderedWriter(w, formatter, len(paths) > 1)
	err := ow.WriteOrdered(resultCh, func(r output.Result) {
		switch {
		case r.Err != nil:
			logger.Warn("read error", "path", r.FilePath, "err", r.Err)
			code = ExitError
		case r.Absent:
			logger.Debug("nothing read", "path", r.FilePath, "range", rng)
			if code == ExitOK {
				code = ExitNothing
			}
		case r.HasData():
			logger.Debug("read", "path", r.FilePath, "bytes", len(r.Data))
		default:
			logger.Debug("empty read", "path", r.FilePath, "range", rng)
		}
	})
	if err != nil {
		logger.Error("write error", "err", err)
		return ExitError
	}
	return code
}

func runChunks(path string, size int, formatter output.Formatter, w *output.Writer, logger *log.Logger) int {
	s, err := stream.Open(path)
	if err != nil {
		logger.Error("open error", "path", path, "err", err)
		return ExitError
	}
	defer s.Close()

	if size == 0 {
		data, err := s.ReadAll()
		if err != nil {
			logger.Error("read error", "path", path, "err", err)
			return ExitError
		}
		if err := w.Write(formatter.Format(nil, output.Result{FilePath: path, Data: data}, false)); err != nil {
			logger.Error("write error", "err", err)
			return ExitError
		}
		return ExitOK
	}

	var (
		offset int64
		chunks int
		out    []byte
	)
	buf := make([]byte, 0, size)
	for {
		_, err := s.ReadInto(size, &buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Error("read error", "path", path, "offset", offset, "err", err)
			return ExitError
		}
		out = formatter.Format(out[:0], output.Result{FilePath: path, Offset: offset, Data: buf}, false)
		if err := w.Write(out); err != nil {
			logger.Error("write error", "err", err)
			return ExitError
		}
		offset += int64(len(buf))
		chunks++
	}

	logger.Debug("stream drained", "path", path, "chunks", chunks, "bytes", offset)
	if chunks == 0 {
		return ExitNothing
	}
	return ExitOK
}

func runFollow(paths []string, formatter output.Formatter, w *output.Writer, logger *log.Logger) int {
	watcher, err := watch.New()
	if err != nil {
		logger.Error("failed to create watcher", "err", err)
		return ExitError
	}
	defer watcher.Close()

	multiFile := len(paths) > 1
	emit := func(path string) {
		emitNew(watcher, path, formatter, w, logger, multiFile)
	}

	// Add all paths to watch, printing what is already there
	for _, path := range paths {
		if err := watcher.AddAt(path, io.SeekStart); err != nil {
			logger.Error("failed to watch", "path", path, "err", err)
			return ExitError
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			emit(path)
		}
	}

	for evt := range watcher.Events() {
		if evt.Err != nil {
			logger.Warn("watch error", "err", evt.Err)
			continue
		}

		switch evt.Type {
		case watch.EventModified:
			emit(evt.Path)

		case watch.EventCreated:
			// Add newly created files to the watch
			if err := watcher.AddAt(evt.Path, io.SeekStart); err != nil {
				logger.Warn("failed to watch new file", "path", evt.Path, "err", err)
				continue
			}
			emit(evt.Path)

		case watch.EventDeleted:
			logger.Warn("watched file removed", "path", evt.Path)
			watcher.Forget(evt.Path)
		}
	}

	return ExitOK
}

// emitNew writes whatever was appended to path since the last read.
// Failures are logged and following continues.
func emitNew(watcher *watch.Watcher, path string, formatter output.Formatter, w *output.Writer, logger *log.Logger, multiFile bool) {
	data, err := watcher.ReadNew(path)
	if err != nil {
		logger.Warn("read error", "path", path, "err", err)
		return
	}
	if len(data) == 0 {
		return
	}
	if err := w.Write(formatter.Format(nil, output.Result{FilePath: path, Data: data}, multiFile)); err != nil {
		logger.Warn("write error", "path", path, "err", err)
	}
}
