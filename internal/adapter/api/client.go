// Package api implements the transcription service client over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/infrastructure/logger"
	"github.com/mojika/mojika/internal/port"
)

// uploadTimeout bounds a single request; large uploads need the headroom.
// The poll-loop deadline in the service layer is separate from this.
const uploadTimeout = 300 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: uploadTimeout,
		},
	}
}

// Upload streams the file as multipart form data, reporting byte-level
// progress while the body is transferred.
func (c *Client) Upload(ctx context.Context, file port.UploadFile, onProgress port.ProgressFunc) (*domain.TranscriptionJob, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload source: %w", err)
	}
	defer func() { _ = src.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", file.Name)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		counted := newProgressReader(src, file.Size, onProgress)
		if _, err := io.Copy(part, counted); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcriptions/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error.Printf("upload request failed: %v", err)
		return nil, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var dto transcriptionJobDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, domain.NewErrorInfo("failed to parse upload response", domain.ErrorTypeUnknown, true)
	}

	logger.Info.Printf("uploaded %s as job %s", logger.SanitizeForLog(file.Name), dto.ID)
	return dto.toDomain(), nil
}

// GetStatus fetches the current job state; used by the poll loop.
func (c *Client) GetStatus(ctx context.Context, jobID string) (*domain.TranscriptionJob, error) {
	return c.getJob(ctx, fmt.Sprintf("%s/transcriptions/%s/status", c.baseURL, jobID))
}

// GetResult fetches the full job including the transcript.
func (c *Client) GetResult(ctx context.Context, jobID string) (*domain.TranscriptionJob, error) {
	return c.getJob(ctx, fmt.Sprintf("%s/transcriptions/%s", c.baseURL, jobID))
}

func (c *Client) getJob(ctx context.Context, url string) (*domain.TranscriptionJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var dto transcriptionJobDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, domain.NewErrorInfo("failed to parse job response", domain.ErrorTypeUnknown, true)
	}
	return dto.toDomain(), nil
}

// Delete removes the server-side job record.
func (c *Client) Delete(ctx context.Context, jobID string) error {
	url := fmt.Sprintf("%s/transcriptions/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

func networkError(err error) *domain.ErrorInfo {
	return domain.NewErrorInfo("network error: "+err.Error(), domain.ErrorTypeNetwork, true)
}

// statusError maps a non-2xx response to the failure taxonomy: 413 and 415
// are permanent client-side rejections, 5xx is transient, everything else
// is unknown and not worth retrying.
func statusError(resp *http.Response) *domain.ErrorInfo {
	message := "the transcription API returned an error"
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload errorBodyDTO
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			message = payload.Detail
		} else if payload.Err != "" {
			message = payload.Err
		}
	}

	logger.Error.Printf("API error: status=%d message=%s", resp.StatusCode, logger.SanitizeForLog(message))

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return domain.NewErrorInfo(message, domain.ErrorTypeFileSize, false)
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return domain.NewErrorInfo(message, domain.ErrorTypeFileType, false)
	case resp.StatusCode >= 500:
		return domain.NewErrorInfo(message, domain.ErrorTypeNetwork, true)
	default:
		return domain.NewErrorInfo(message, domain.ErrorTypeUnknown, false)
	}
}

var _ port.Transcriber = (*Client)(nil)
