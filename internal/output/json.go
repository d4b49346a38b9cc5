package output

import (
	"encoding/json"

	"github.com/dl/goread/internal/ioerr"
)

// JSONFormatter formats results as JSON Lines (one JSON object per file).
type JSONFormatter struct{}

// NewJSONFormatter creates a JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// jsonChunk is the JSON serialization format for a read result.
type jsonChunk struct {
	Type   string `json:"type"`
	File   string `json:"file,omitempty"`
	Offset int64  `json:"offset"`
	Length int    `json:"length"`
	Text   string `json:"text"`
	Absent bool   `json:"absent,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (f *JSONFormatter) Format(buf []byte, result Result, multiFile bool) []byte {
	jc := jsonChunk{
		Type:   "chunk",
		File:   result.FilePath,
		Offset: result.Offset,
		Length: len(result.Data),
		Text:   string(result.Data),
		Absent: result.Absent,
	}
	if result.Err != nil {
		jc.Type = "error"
		jc.Code = ioerr.KindOf(result.Err).String()
		jc.Error = result.Err.Error()
	}
	data, _ := json.Marshal(jc)
	buf = append(buf, data...)
	buf = append(buf, '\n')
	return buf
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
