package output

import "github.com/charmbracelet/lipgloss"

// TextFormatter writes file contents verbatim. With several files each
// one gets a "==> path <==" header, the way head(1) separates them.
type TextFormatter struct {
	styles   Styles
	useColor bool
	// showAbsent prints a marker line for reads that found nothing.
	showAbsent bool
}

// NewTextFormatter creates a TextFormatter.
func NewTextFormatter(styles Styles, useColor bool, showAbsent bool) *TextFormatter {
	return &TextFormatter{
		styles:     styles,
		useColor:   useColor,
		showAbsent: showAbsent,
	}
}

func (f *TextFormatter) Format(buf []byte, result Result, multiFile bool) []byte {
	if result.Err != nil {
		return buf
	}

	if multiFile {
		buf = f.styled(buf, f.styles.Header, "==> ")
		buf = f.styled(buf, f.styles.Path, result.FilePath)
		buf = f.styled(buf, f.styles.Header, " <==")
		buf = append(buf, '\n')
	}

	if result.Absent {
		if f.showAbsent {
			buf = f.styled(buf, f.styles.Absent, "(nothing read)")
			buf = append(buf, '\n')
		}
		return buf
	}

	buf = append(buf, result.Data...)
	if multiFile && len(result.Data) > 0 && result.Data[len(result.Data)-1] != '\n' {
		buf = append(buf, '\n')
	}
	return buf
}

func (f *TextFormatter) styled(buf []byte, st lipgloss.Style, s string) []byte {
	if !f.useColor {
		return append(buf, s...)
	}
	return append(buf, st.Render(s)...)
}

// Ensure TextFormatter implements Formatter.
var _ Formatter = (*TextFormatter)(nil)
