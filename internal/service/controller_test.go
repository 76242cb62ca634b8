package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTranscriber scripts upload outcomes and a status sequence, recording
// call timestamps so tests can assert on poll pacing.
type fakeTranscriber struct {
	mu           sync.Mutex
	uploadErrs   []error
	uploads      int
	statuses     []domain.JobStatus
	statusCalls  []time.Time
	statusErr    error
	errorMessage string
	blockUpload  chan struct{}
}

func (f *fakeTranscriber) Upload(ctx context.Context, file port.UploadFile, onProgress port.ProgressFunc) (*domain.TranscriptionJob, error) {
	f.mu.Lock()
	attempt := f.uploads
	f.uploads++
	block := f.blockUpload
	f.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}

	if attempt < len(f.uploadErrs) && f.uploadErrs[attempt] != nil {
		return nil, f.uploadErrs[attempt]
	}

	if onProgress != nil {
		onProgress(domain.NewUploadProgress(file.Size, file.Size, time.Millisecond))
	}
	now := time.Now().UTC()
	return &domain.TranscriptionJob{
		ID:               "job-1",
		OriginalFilename: file.Name,
		FileSize:         file.Size,
		Status:           domain.JobStatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (f *fakeTranscriber) GetStatus(ctx context.Context, jobID string) (*domain.TranscriptionJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.statusErr != nil {
		return nil, f.statusErr
	}

	f.mu.Lock()
	call := len(f.statusCalls)
	f.statusCalls = append(f.statusCalls, time.Now())
	status := domain.JobStatusProcessing
	if len(f.statuses) > 0 {
		if call >= len(f.statuses) {
			call = len(f.statuses) - 1
		}
		status = f.statuses[call]
	}
	f.mu.Unlock()

	job := &domain.TranscriptionJob{ID: jobID, Status: status, CreatedAt: time.Now().UTC()}
	switch status {
	case domain.JobStatusCompleted:
		job.TranscriptionText = "本日の会議を始めます"
	case domain.JobStatusFailed:
		job.ErrorMessage = f.errorMessage
	}
	return job, nil
}

func (f *fakeTranscriber) GetResult(ctx context.Context, jobID string) (*domain.TranscriptionJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &domain.TranscriptionJob{
		ID:                jobID,
		Status:            domain.JobStatusCompleted,
		TranscriptionText: "本日の会議を始めます",
		CreatedAt:         now,
		UpdatedAt:         now,
		CompletedAt:       &now,
	}, nil
}

func (f *fakeTranscriber) Delete(ctx context.Context, jobID string) error { return nil }

func (f *fakeTranscriber) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

// collectEvents drains a controller's event stream into a slice until the
// subscription is closed.
func collectEvents(t *testing.T, bus *EventBus, sessionID string) func() []Event {
	t.Helper()
	ch := bus.Subscribe(sessionID)
	var mu sync.Mutex
	var events []Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}
	}()
	return func() []Event {
		bus.Unsubscribe(sessionID, ch)
		<-done
		mu.Lock()
		defer mu.Unlock()
		return events
	}
}

func validFile() port.UploadFile {
	return port.UploadFile{
		Name:        "meeting.mp3",
		Size:        1024,
		ContentType: "audio/mpeg",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("audio")), nil
		},
	}
}

func newTestController(f *fakeTranscriber, bus *EventBus, opts ...Option) *Controller {
	base := []Option{
		WithPollInterval(10 * time.Millisecond),
		WithPollTimeout(time.Second),
		WithRetryDelays([]time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}),
	}
	return NewController(f, NewHistoryService(newFakeKV()), bus, append(base, opts...)...)
}

func TestControllerSubmit(t *testing.T) {
	t.Run("completes after polling and records history", func(t *testing.T) {
		f := &fakeTranscriber{statuses: []domain.JobStatus{
			domain.JobStatusProcessing,
			domain.JobStatusProcessing,
			domain.JobStatusCompleted,
		}}
		bus := NewEventBus()
		history := NewHistoryService(newFakeKV())
		c := NewController(f, history, bus,
			WithPollInterval(10*time.Millisecond), WithPollTimeout(time.Second))
		drain := collectEvents(t, bus, c.ID())

		err := c.Submit(context.Background(), validFile())

		require.NoError(t, err)
		assert.Equal(t, StateCompleted, c.State())
		require.NotNil(t, c.CurrentJob())
		assert.Equal(t, "本日の会議を始めます", c.CurrentJob().TranscriptionText)

		f.mu.Lock()
		calls := append([]time.Time(nil), f.statusCalls...)
		f.mu.Unlock()
		require.Len(t, calls, 3)
		for i := 1; i < len(calls); i++ {
			assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), 10*time.Millisecond)
		}

		entries := history.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "job-1", entries[0].ID)

		events := drain()
		var states []State
		for _, ev := range events {
			if ev.Type == EventTypeStatus {
				states = append(states, ev.State)
			}
		}
		assert.Equal(t, []State{StateUploading, StateProcessing, StateCompleted}, states)
	})

	t.Run("rejects an unsupported file before any upload", func(t *testing.T) {
		f := &fakeTranscriber{}
		c := newTestController(f, NewEventBus())

		err := c.Submit(context.Background(), port.UploadFile{Name: "notes.txt", Size: 10, ContentType: "text/plain"})

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Equal(t, domain.ErrorTypeFileType, info.Type)
		assert.Equal(t, StateFailed, c.State())
		assert.Zero(t, f.uploadCount())
	})

	t.Run("rejects a second submission while one is in flight", func(t *testing.T) {
		block := make(chan struct{})
		f := &fakeTranscriber{blockUpload: block, statuses: []domain.JobStatus{domain.JobStatusCompleted}}
		c := newTestController(f, NewEventBus())

		done := make(chan error, 1)
		go func() { done <- c.Submit(context.Background(), validFile()) }()
		require.Eventually(t, func() bool { return c.State() == StateUploading }, time.Second, time.Millisecond)

		err := c.Submit(context.Background(), validFile())

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Contains(t, info.Message, "already in progress")

		close(block)
		require.NoError(t, <-done)
	})

	t.Run("times out when the job never finishes", func(t *testing.T) {
		f := &fakeTranscriber{}
		c := newTestController(f, NewEventBus(), WithPollTimeout(25*time.Millisecond))

		err := c.Submit(context.Background(), validFile())

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Equal(t, "transcription timed out", info.Message)
		assert.Equal(t, StateFailed, c.State())
	})

	t.Run("surfaces a server-side failure message", func(t *testing.T) {
		f := &fakeTranscriber{
			statuses:     []domain.JobStatus{domain.JobStatusFailed},
			errorMessage: "audio codec not supported",
		}
		c := newTestController(f, NewEventBus())

		err := c.Submit(context.Background(), validFile())

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Equal(t, "audio codec not supported", info.Message)
		assert.Equal(t, StateFailed, c.State())
		assert.Same(t, info, c.Err())
	})

	t.Run("retries network failures and then succeeds", func(t *testing.T) {
		netErr := domain.NewErrorInfo("connection reset", domain.ErrorTypeNetwork, true)
		f := &fakeTranscriber{
			uploadErrs: []error{netErr, netErr, netErr},
			statuses:   []domain.JobStatus{domain.JobStatusCompleted},
		}
		c := newTestController(f, NewEventBus())

		err := c.Submit(context.Background(), validFile())

		require.NoError(t, err)
		assert.Equal(t, StateCompleted, c.State())
		assert.Equal(t, 4, f.uploadCount())
		assert.Equal(t, 3, c.RetryCount())
	})

	t.Run("a fourth network failure surfaces", func(t *testing.T) {
		netErr := domain.NewErrorInfo("connection reset", domain.ErrorTypeNetwork, true)
		f := &fakeTranscriber{uploadErrs: []error{netErr, netErr, netErr, netErr}}
		c := newTestController(f, NewEventBus())

		err := c.Submit(context.Background(), validFile())

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Equal(t, domain.ErrorTypeNetwork, info.Type)
		assert.Equal(t, StateFailed, c.State())
		assert.Equal(t, 4, f.uploadCount())
	})

	t.Run("non-network failures are not retried", func(t *testing.T) {
		f := &fakeTranscriber{uploadErrs: []error{
			domain.NewErrorInfo("file too large", domain.ErrorTypeFileSize, false),
		}}
		c := newTestController(f, NewEventBus())

		err := c.Submit(context.Background(), validFile())

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Equal(t, domain.ErrorTypeFileSize, info.Type)
		assert.Equal(t, 1, f.uploadCount())
	})

	t.Run("a network failure while polling never re-uploads", func(t *testing.T) {
		f := &fakeTranscriber{
			statusErr: domain.NewErrorInfo("connection reset", domain.ErrorTypeNetwork, true),
		}
		c := newTestController(f, NewEventBus())

		err := c.Submit(context.Background(), validFile())

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Equal(t, domain.ErrorTypeNetwork, info.Type)
		assert.Equal(t, StateFailed, c.State())
		assert.Equal(t, 1, f.uploadCount())
		assert.Zero(t, c.RetryCount())
	})

	t.Run("processing progress carries an elapsed-time message", func(t *testing.T) {
		f := &fakeTranscriber{statuses: []domain.JobStatus{
			domain.JobStatusProcessing,
			domain.JobStatusProcessing,
			domain.JobStatusCompleted,
		}}
		bus := NewEventBus()
		c := newTestController(f, bus)
		drain := collectEvents(t, bus, c.ID())

		require.NoError(t, c.Submit(context.Background(), validFile()))

		var processing []*domain.ProgressInfo
		for _, ev := range drain() {
			if ev.Type == EventTypeProgress && ev.State == StateProcessing {
				processing = append(processing, ev.Progress)
			}
		}
		require.NotEmpty(t, processing)
		for _, p := range processing {
			assert.GreaterOrEqual(t, p.Percentage, 50)
			assert.LessOrEqual(t, p.Percentage, 95)
			assert.Contains(t, p.RemainingTime, "elapsed")
		}
	})

	t.Run("unclassified errors become unknown and are not retried", func(t *testing.T) {
		f := &fakeTranscriber{uploadErrs: []error{errors.New("boom")}}
		c := newTestController(f, NewEventBus())

		err := c.Submit(context.Background(), validFile())

		var info *domain.ErrorInfo
		require.ErrorAs(t, err, &info)
		assert.Equal(t, domain.ErrorTypeUnknown, info.Type)
		assert.Equal(t, 1, f.uploadCount())
	})
}

func TestControllerCancel(t *testing.T) {
	block := make(chan struct{})
	f := &fakeTranscriber{blockUpload: block}
	c := newTestController(f, NewEventBus())

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), validFile()) }()
	require.Eventually(t, func() bool { return c.State() == StateUploading }, time.Second, time.Millisecond)

	c.Cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, c.State())
	assert.Nil(t, c.CurrentJob())
}

func TestControllerRetry(t *testing.T) {
	t.Run("resets a failed session to idle", func(t *testing.T) {
		f := &fakeTranscriber{uploadErrs: []error{
			domain.NewErrorInfo("file too large", domain.ErrorTypeFileSize, false),
		}}
		c := newTestController(f, NewEventBus())
		require.Error(t, c.Submit(context.Background(), validFile()))
		require.Equal(t, StateFailed, c.State())

		c.Retry()

		assert.Equal(t, StateIdle, c.State())
		assert.Nil(t, c.Err())
		assert.Zero(t, c.RetryCount())
	})

	t.Run("does nothing unless the session failed", func(t *testing.T) {
		c := newTestController(&fakeTranscriber{}, NewEventBus())

		c.Retry()

		assert.Equal(t, StateIdle, c.State())
	})
}

func TestControllerWriteTranscript(t *testing.T) {
	t.Run("errors before any transcript exists", func(t *testing.T) {
		c := newTestController(&fakeTranscriber{}, NewEventBus())

		err := c.WriteTranscript(io.Discard, domain.FormatText)

		assert.ErrorIs(t, err, domain.ErrNoTranscript)
	})

	t.Run("renders the transcript in the requested format", func(t *testing.T) {
		f := &fakeTranscriber{statuses: []domain.JobStatus{domain.JobStatusCompleted}}
		c := newTestController(f, NewEventBus())
		require.NoError(t, c.Submit(context.Background(), validFile()))

		var buf strings.Builder
		require.NoError(t, c.WriteTranscript(&buf, domain.FormatSRT))

		assert.Contains(t, buf.String(), "00:00:00,000 --> 00:00:10,000")
		assert.Contains(t, buf.String(), "本日の会議を始めます")
	})
}

func TestEstimateProgress(t *testing.T) {
	assert.Equal(t, 50, estimateProgress(0))
	assert.Equal(t, 50, estimateProgress(time.Second))
	assert.Equal(t, 51, estimateProgress(2*time.Second))
	assert.Equal(t, 80, estimateProgress(60*time.Second))
	assert.Equal(t, 95, estimateProgress(90*time.Second))
	assert.Equal(t, 95, estimateProgress(time.Hour))
}

func TestEventBus(t *testing.T) {
	t.Run("delivers to all subscribers of a session", func(t *testing.T) {
		bus := NewEventBus()
		a := bus.Subscribe("s")
		b := bus.Subscribe("s")

		bus.Publish("s", Event{Type: EventTypeStatus, State: StateUploading})

		assert.Equal(t, StateUploading, (<-a).State)
		assert.Equal(t, StateUploading, (<-b).State)
	})

	t.Run("does not deliver across sessions", func(t *testing.T) {
		bus := NewEventBus()
		other := bus.Subscribe("other")

		bus.Publish("s", Event{Type: EventTypeStatus})

		select {
		case <-other:
			t.Fatal("event leaked to another session")
		default:
		}
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		bus := NewEventBus()
		ch := bus.Subscribe("s")

		bus.Unsubscribe("s", ch)

		_, open := <-ch
		assert.False(t, open)
	})

	t.Run("a full subscriber does not block publish", func(t *testing.T) {
		bus := NewEventBus()
		ch := bus.Subscribe("s")
		for i := 0; i < 20; i++ {
			bus.Publish("s", Event{Type: EventTypeProgress})
		}

		assert.Len(t, ch, 16)
	})
}
