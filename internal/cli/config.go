package cli

import (
	"fmt"

	"github.com/dl/goread/internal/input"
	"github.com/dl/goread/internal/ioerr"
)

// ColorMode controls when colored output is used.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // color when stdout is a terminal
	ColorAlways                  // always use color
	ColorNever                   // never use color
)

// ParseColorMode parses the --color flag value.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "auto", "":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

// Mode selects which read operation a run performs.
type Mode int

const (
	ModeCat    Mode = iota // whole-file reads of each path
	ModeChunks             // incremental reads of one open stream
	ModeFollow             // print, then keep printing appended bytes
)

// Config holds all configuration for a goread run.
type Config struct {
	Mode          Mode
	Length        int64
	HasLength     bool
	Offset        int64
	ChunkSize     int
	JSONOutput    bool
	ShowAbsent    bool
	Color         ColorMode
	Workers       int
	MmapThreshold int64
	Verbosity     string
	Paths         []string
}

// Range returns the window of each file the run reads.
func (c *Config) Range() input.Range {
	return input.Range{Offset: c.Offset, Length: c.Length, Limited: c.HasLength}
}

// Validate checks that the config is valid and returns an error if not.
// Offset and length are checked with the same rules, and the same error
// kinds, as the readers use.
func (c *Config) Validate() error {
	if err := c.Range().Validate(""); err != nil {
		return err
	}
	if c.ChunkSize < 0 {
		return ioerr.New("", "", ioerr.KindInvalidArgument, fmt.Errorf("invalid chunk size: %d", c.ChunkSize))
	}
	if c.MmapThreshold < 0 {
		return fmt.Errorf("invalid mmap threshold: %d", c.MmapThreshold)
	}
	switch c.Mode {
	case ModeChunks:
		if len(c.Paths) != 1 {
			return fmt.Errorf("chunks reads exactly one path, got %d", len(c.Paths))
		}
	case ModeFollow:
		if len(c.Paths) == 0 {
			return fmt.Errorf("follow needs at least one path")
		}
	}
	return nil
}
