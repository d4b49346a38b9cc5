package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"
)

// Styles holds the lipgloss styles for output formatting.
type Styles struct {
	Header lipgloss.Style
	Path   lipgloss.Style
	Absent lipgloss.Style
}

// NewStyles creates the default color styles.
func NewStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),           // cyan
		Path:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true), // bold magenta
		Absent: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),           // gray
	}
}

// NoStyles returns styles with no coloring.
func NoStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle(),
		Path:   lipgloss.NewStyle(),
		Absent: lipgloss.NewStyle(),
	}
}

// IsTerminal checks if the given file descriptor is a terminal using ioctl.
func IsTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}

// StdoutIsTerminal returns true if stdout is a terminal.
func StdoutIsTerminal() bool {
	return IsTerminal(os.Stdout.Fd())
}
