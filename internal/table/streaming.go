package table

import (
	"errors"
	"io"
)

// ErrFileTooLarge is returned by a LimitReader once more than its limit has
// been read.
var ErrFileTooLarge = errors.New("file exceeds maximum upload size")

// LimitReader counts bytes read from an upload and fails once the configured
// limit is exceeded. A zero limit disables the check.
type LimitReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewLimitReader wraps r.
func NewLimitReader(r io.Reader, limit int64) *LimitReader {
	return &LimitReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *LimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}
