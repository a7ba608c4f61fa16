package fetcher

import (
	"fmt"
	"io"
)

// limitedReadCloser wraps an io.ReadCloser and returns an error once more
// than maxSize bytes have been read, rather than silently truncating.
type limitedReadCloser struct {
	r    io.ReadCloser
	left int64
}

func newLimitedReadCloser(r io.ReadCloser, maxSize int64) io.ReadCloser {
	return &limitedReadCloser{r: r, left: maxSize + 1}
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.left <= 0 {
		return 0, fmt.Errorf("response exceeds size limit")
	}
	if int64(len(p)) > l.left {
		p = p[:l.left]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	return n, err
}

func (l *limitedReadCloser) Close() error {
	return l.r.Close()
}
