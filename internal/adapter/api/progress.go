package api

import (
	"io"
	"time"

	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/port"
)

// progressReader counts bytes flowing through an upload body and reports
// each read as an UploadProgress snapshot.
type progressReader struct {
	r          io.Reader
	total      int64
	loaded     int64
	started    time.Time
	onProgress port.ProgressFunc
}

func newProgressReader(r io.Reader, total int64, onProgress port.ProgressFunc) *progressReader {
	return &progressReader{
		r:          r,
		total:      total,
		started:    time.Now(),
		onProgress: onProgress,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(domain.NewUploadProgress(p.loaded, p.total, time.Since(p.started)))
		}
	}
	return n, err
}
