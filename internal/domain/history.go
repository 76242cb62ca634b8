package domain

import "time"

// previewRunes is the length of the short excerpt stored alongside each
// history entry for list rendering.
const previewRunes = 100

// TranscriptionHistory is a persisted summary of a completed job. Entries
// are never mutated after creation, only deleted.
type TranscriptionHistory struct {
	ID                string    `json:"id"`
	OriginalFilename  string    `json:"originalFilename"`
	TranscriptionText string    `json:"transcriptionText"`
	CreatedAt         time.Time `json:"createdAt"`
	PreviewText       string    `json:"previewText,omitempty"`
	FileSize          int64     `json:"fileSize,omitempty"`
	Duration          float64   `json:"duration,omitempty"`
}

// NewHistoryEntry builds the history record for a completed job.
func NewHistoryEntry(job *TranscriptionJob) *TranscriptionHistory {
	preview := job.TranscriptionText
	if runes := []rune(preview); len(runes) > previewRunes {
		preview = string(runes[:previewRunes])
	}

	return &TranscriptionHistory{
		ID:                job.ID,
		OriginalFilename:  job.OriginalFilename,
		TranscriptionText: job.TranscriptionText,
		CreatedAt:         job.CreatedAt,
		PreviewText:       preview,
		FileSize:          job.FileSize,
		Duration:          job.Duration,
	}
}

type DateFilter string

const (
	DateFilterAll       DateFilter = "all"
	DateFilterToday     DateFilter = "today"
	DateFilterThisWeek  DateFilter = "thisWeek"
	DateFilterThisMonth DateFilter = "thisMonth"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// HistoryFilter combines keyword search, a date window and a sort order.
type HistoryFilter struct {
	SearchTerm string
	DateFilter DateFilter
	SortOrder  SortOrder
}
