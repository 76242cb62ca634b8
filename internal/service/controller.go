// Package service holds the transcription session state machine, the
// history store and the event bus that connects them to the UI layer.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/infrastructure/logger"
	"github.com/mojika/mojika/internal/port"
	"github.com/mojika/mojika/internal/validation"
)

type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 10 * time.Minute
)

// defaultRetryDelays backs the automatic retry of transient network
// failures. Its length is the retry cap: a failure after the last delay
// surfaces to the caller.
var defaultRetryDelays = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

type Option func(*Controller)

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

func WithPollTimeout(d time.Duration) Option {
	return func(c *Controller) { c.pollTimeout = d }
}

func WithRetryDelays(delays []time.Duration) Option {
	return func(c *Controller) { c.retryDelays = delays }
}

// Controller drives one transcription session from file validation through
// upload, polling and history persistence. Lifecycle events are published
// on the bus under the controller's session ID.
type Controller struct {
	id          string
	transcriber port.Transcriber
	history     *HistoryService
	events      EventPublisher

	pollInterval time.Duration
	pollTimeout  time.Duration
	retryDelays  []time.Duration

	mu         sync.Mutex
	state      State
	currentJob *domain.TranscriptionJob
	lastErr    *domain.ErrorInfo
	retryCount int
	cancelFn   context.CancelFunc
}

func NewController(transcriber port.Transcriber, history *HistoryService, events EventPublisher, opts ...Option) *Controller {
	c := &Controller{
		id:           uuid.NewString(),
		transcriber:  transcriber,
		history:      history,
		events:       events,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		retryDelays:  defaultRetryDelays,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID is the session identifier events are published under.
func (c *Controller) ID() string { return c.id }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) CurrentJob() *domain.TranscriptionJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentJob
}

func (c *Controller) Err() *domain.ErrorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}

// Submit validates the file, uploads it and polls until the job reaches a
// terminal state. Only the upload is retried automatically, and only for
// transient network failures; once the server holds the job, a poll failure
// surfaces for manual retry instead of re-uploading a file that is already
// being processed.
func (c *Controller) Submit(ctx context.Context, file port.UploadFile) error {
	if info := validation.ValidateUpload(file.Name, file.ContentType, file.Size); info != nil {
		c.fail(info)
		return info
	}

	c.mu.Lock()
	if c.state == StateUploading || c.state == StateProcessing {
		c.mu.Unlock()
		return domain.NewErrorInfo("a transcription is already in progress", domain.ErrorTypeUnknown, false)
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancelFn = cancel
	c.lastErr = nil
	c.retryCount = 0
	c.mu.Unlock()
	defer cancel()

	job, err := c.upload(runCtx, file)
	if err != nil {
		if runCtx.Err() != nil {
			return runCtx.Err()
		}
		info := domain.Classify(err)
		c.fail(info)
		return info
	}

	c.mu.Lock()
	c.currentJob = job
	c.state = StateProcessing
	c.mu.Unlock()
	c.publish(Event{Type: EventTypeStatus, State: StateProcessing, Job: job})

	if err := c.track(runCtx, job.ID); err != nil {
		if runCtx.Err() != nil {
			return runCtx.Err()
		}
		info := domain.Classify(err)
		c.fail(info)
		return info
	}
	return nil
}

// upload transfers the file, replaying the whole transfer after an
// escalating delay when it fails with a transient network error. Any other
// failure, or exhausting the retry budget, is returned as-is.
func (c *Controller) upload(ctx context.Context, file port.UploadFile) (*domain.TranscriptionJob, error) {
	for attempt := 0; ; attempt++ {
		c.setState(StateUploading)
		c.publish(Event{Type: EventTypeStatus, State: StateUploading})

		job, err := c.transcriber.Upload(ctx, file, func(p domain.UploadProgress) {
			if ctx.Err() != nil {
				return
			}
			info := p.Info()
			c.publish(Event{Type: EventTypeProgress, State: StateUploading, Progress: &info})
		})
		if err == nil {
			return job, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		info := domain.Classify(err)
		if info.Type != domain.ErrorTypeNetwork || !info.Retryable || attempt >= len(c.retryDelays) {
			return nil, info
		}

		c.mu.Lock()
		c.retryCount = attempt + 1
		c.mu.Unlock()
		logger.Warn.Printf("upload failed, retry %d/%d in %s: %s",
			attempt+1, len(c.retryDelays), c.retryDelays[attempt], info.Message)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelays[attempt]):
		}
	}
}

// track polls the job until it completes, fails or the deadline passes.
func (c *Controller) track(ctx context.Context, jobID string) error {
	started := time.Now()
	deadline := started.Add(c.pollTimeout)

	job, err := c.transcriber.GetStatus(ctx, jobID)
	if err != nil {
		return err
	}

	for !job.Terminal() {
		if time.Now().After(deadline) {
			return domain.NewErrorInfo("transcription timed out", domain.ErrorTypeUnknown, true)
		}

		elapsed := time.Since(started)
		info := &domain.ProgressInfo{
			Status:        "processing",
			Percentage:    estimateProgress(elapsed),
			RemainingTime: fmt.Sprintf("%ds elapsed", int(elapsed.Seconds())),
		}
		c.publish(Event{Type: EventTypeProgress, State: StateProcessing, Progress: info})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		job, err = c.transcriber.GetStatus(ctx, jobID)
		if err != nil {
			return err
		}
	}

	if job.Status == domain.JobStatusFailed {
		message := job.ErrorMessage
		if message == "" {
			message = "transcription failed"
		}
		return domain.NewErrorInfo(message, domain.ErrorTypeUnknown, true)
	}

	// the status endpoint can omit the transcript; fetch the full record
	job, err = c.transcriber.GetResult(ctx, jobID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.currentJob = job
	c.state = StateCompleted
	c.mu.Unlock()

	if err := c.history.Add(job); err != nil {
		// a full or broken store must not fail the transcription itself
		logger.Error.Printf("failed to record history for job %s: %v", job.ID, err)
	}

	c.publish(Event{Type: EventTypeStatus, State: StateCompleted, Job: job})
	return nil
}

// estimateProgress synthesizes a processing percentage from elapsed time:
// the server reports no progress, so the bar starts at 50 and creeps toward
// a 95 ceiling at half a point per second.
func estimateProgress(elapsed time.Duration) int {
	pct := 50 + int(elapsed.Seconds())/2
	if pct > 95 {
		pct = 95
	}
	return pct
}

// Retry clears a failed session back to idle so Submit can run again.
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFailed {
		return
	}
	c.state = StateIdle
	c.lastErr = nil
	c.retryCount = 0
}

// Cancel aborts an in-flight session and resets to idle. Subscribers
// receive no further events for the aborted run.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancelFn != nil {
		c.cancelFn()
		c.cancelFn = nil
	}
	c.state = StateIdle
	c.currentJob = nil
	c.lastErr = nil
	c.retryCount = 0
	c.mu.Unlock()
}

// WriteTranscript renders the completed transcript to w in the requested
// format.
func (c *Controller) WriteTranscript(w io.Writer, format domain.OutputFormat) error {
	c.mu.Lock()
	job := c.currentJob
	c.mu.Unlock()

	if job == nil || job.TranscriptionText == "" {
		return domain.ErrNoTranscript
	}
	if _, err := io.WriteString(w, domain.ConvertFormat(job.TranscriptionText, format)); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) fail(info *domain.ErrorInfo) {
	c.mu.Lock()
	c.state = StateFailed
	c.lastErr = info
	c.mu.Unlock()
	c.publish(Event{Type: EventTypeStatus, State: StateFailed, Err: info})
}

func (c *Controller) publish(event Event) {
	if c.events != nil {
		c.events.Publish(c.id, event)
	}
}
