package output

// Result holds the outcome of reading one file.
type Result struct {
	FilePath string
	SeqNum   int
	Offset   int64
	Data     []byte
	// Absent is set when a length was requested and nothing was there.
	Absent bool
	Err    error
	// Closer releases the buffer that Data points into.
	// Must be called after the result has been fully formatted/consumed.
	Closer func() error
}

// HasData returns true if the read produced at least one byte.
func (r *Result) HasData() bool {
	return len(r.Data) > 0
}

// Release runs Closer once.
func (r *Result) Release() {
	if r.Closer != nil {
		r.Closer()
		r.Closer = nil
	}
}
