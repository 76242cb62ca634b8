package domain

import "time"

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// TranscriptionJob is one remote transcription request. The server assigns
// the ID on upload; status only ever moves processing -> completed|failed
// and the job is immutable once terminal.
type TranscriptionJob struct {
	ID                string     `json:"id"`
	OriginalFilename  string     `json:"originalFilename"`
	FileURL           string     `json:"fileUrl"`
	FileSize          int64      `json:"fileSize"`
	Duration          float64    `json:"duration,omitempty"`
	Language          string     `json:"language"`
	TranscriptionText string     `json:"transcriptionText,omitempty"`
	Status            JobStatus  `json:"status"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *TranscriptionJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
