package domain

import (
	"fmt"
	"math"
	"time"
)

// UploadProgress is a transient snapshot of an in-flight upload. Speed is
// in MB/s, EstimatedTime in seconds (0 when not yet computable).
type UploadProgress struct {
	Loaded        int64
	Total         int64
	Percentage    int
	Speed         float64
	EstimatedTime int
}

// NewUploadProgress derives percentage, transfer speed and remaining time
// from the byte counters and elapsed wall-clock time.
func NewUploadProgress(loaded, total int64, elapsed time.Duration) UploadProgress {
	p := UploadProgress{Loaded: loaded, Total: total}

	if total > 0 {
		p.Percentage = int(math.Round(float64(loaded) / float64(total) * 100))
	}

	if secs := elapsed.Seconds(); secs > 0 {
		p.Speed = float64(loaded) / (1024 * 1024) / secs
	}

	if p.Speed > 0 && loaded < total {
		p.EstimatedTime = int(math.Round(float64(total-loaded) / (p.Speed * 1024 * 1024)))
	}

	return p
}

// ProgressInfo is the user-facing progress line for either phase of a job.
// Speed and RemainingTime are free-form display strings: a speed/ETA pair
// while uploading, an elapsed-time message while processing, empty when
// nothing is known.
type ProgressInfo struct {
	Status        string
	Percentage    int
	Speed         string
	RemainingTime string
}

// Info formats an upload snapshot for display.
func (p UploadProgress) Info() ProgressInfo {
	info := ProgressInfo{
		Status:     "uploading",
		Percentage: p.Percentage,
	}
	if p.Speed > 0 {
		info.Speed = fmt.Sprintf("%.2f MB/s", p.Speed)
	}
	if p.EstimatedTime > 0 {
		info.RemainingTime = fmt.Sprintf("about %ds remaining", p.EstimatedTime)
	}
	return info
}
