// Package mock provides an in-process Transcriber for demos and offline
// development. No network, no backend: uploads "succeed" after simulated
// progress and jobs complete with a canned transcript after a few polls.
package mock

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/port"
)

const sampleTranscript = "こんにちは。本日の会議を始めます。まず、先月の売上についてご報告します。" +
	"前年同月比で15パーセントの増加となりました。次に、新プロジェクトの進捗状況です。" +
	"開発は予定通り進んでおり、来月のリリースに向けて最終調整を行っています。" +
	"最後に、次回の会議は来週の金曜日に開催します。以上で本日の会議を終わります。"

const (
	defaultProgressTicks = 5
	defaultTickDelay     = 200 * time.Millisecond
	defaultPollsToFinish = 3
)

type job struct {
	record *domain.TranscriptionJob
	polls  int
}

// Transcriber simulates the transcription backend in memory.
type Transcriber struct {
	mu       sync.Mutex
	jobs     map[string]*job
	language string

	// knobs for tests; zero values fall back to the defaults above
	tickDelay     time.Duration
	pollsToFinish int
}

func NewTranscriber(language string) *Transcriber {
	return &Transcriber{
		jobs:     make(map[string]*job),
		language: language,
	}
}

// Upload drains the source, emits a handful of synthetic progress snapshots
// and registers a processing job.
func (m *Transcriber) Upload(ctx context.Context, file port.UploadFile, onProgress port.ProgressFunc) (*domain.TranscriptionJob, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload source: %w", err)
	}
	if _, err := io.Copy(io.Discard, src); err != nil {
		_ = src.Close()
		return nil, err
	}
	_ = src.Close()

	delay := m.tickDelay
	if delay == 0 {
		delay = defaultTickDelay
	}
	started := time.Now()
	for i := 1; i <= defaultProgressTicks; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if onProgress != nil {
			loaded := file.Size * int64(i) / defaultProgressTicks
			onProgress(domain.NewUploadProgress(loaded, file.Size, time.Since(started)))
		}
	}

	now := time.Now().UTC()
	record := &domain.TranscriptionJob{
		ID:               uuid.NewString(),
		OriginalFilename: file.Name,
		FileURL:          "mock://" + file.Name,
		FileSize:         file.Size,
		Language:         m.language,
		Status:           domain.JobStatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	m.mu.Lock()
	m.jobs[record.ID] = &job{record: record}
	m.mu.Unlock()

	copied := *record
	return &copied, nil
}

// GetStatus advances the simulated job one poll; after enough polls the job
// completes with the sample transcript.
func (m *Transcriber) GetStatus(ctx context.Context, jobID string) (*domain.TranscriptionJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.NewErrorInfo("transcription not found", domain.ErrorTypeUnknown, false)
	}

	threshold := m.pollsToFinish
	if threshold == 0 {
		threshold = defaultPollsToFinish
	}
	if j.record.Status == domain.JobStatusProcessing {
		j.polls++
		if j.polls >= threshold {
			now := time.Now().UTC()
			j.record.Status = domain.JobStatusCompleted
			j.record.TranscriptionText = sampleTranscript
			j.record.Duration = 245.0
			j.record.UpdatedAt = now
			j.record.CompletedAt = &now
		}
	}

	copied := *j.record
	return &copied, nil
}

func (m *Transcriber) GetResult(ctx context.Context, jobID string) (*domain.TranscriptionJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.NewErrorInfo("transcription not found", domain.ErrorTypeUnknown, false)
	}
	copied := *j.record
	return &copied, nil
}

func (m *Transcriber) Delete(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return domain.NewErrorInfo("transcription not found", domain.ErrorTypeUnknown, false)
	}
	delete(m.jobs, jobID)
	return nil
}

var _ port.Transcriber = (*Transcriber)(nil)
