package httpclient

import (
	"io"
	"time"
)

// progressReader reports upload progress as the transport consumes the body.
type progressReader struct {
	r        io.Reader
	total    int64
	uploaded int64
	last     int64
	onUpload UploadProgressFunc
}

// newProgressReader wraps r. A negative size is reported as an unknown total (0).
func newProgressReader(r io.Reader, size int64, fn UploadProgressFunc) *progressReader {
	return &progressReader{
		r:        r,
		total:    max(size, 0),
		onUpload: fn,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.uploaded += int64(n)
		// wall clock steps backwards are hidden from the callback
		p.last = max(p.last, time.Now().UnixMilli())
		p.onUpload(UploadProgressEvent{
			UploadedBytes: p.uploaded,
			TotalBytes:    p.total,
			Timestamp:     p.last,
		})
	}
	return n, err
}
