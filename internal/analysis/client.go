// Package analysis is the client for the document analysis endpoint.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"financewatch/internal/core"
	"financewatch/internal/logger"
)

const (
	DefaultEndpoint  = "http://127.0.0.1:5000/api/analyze"
	DefaultFieldName = "files"
	DefaultTimeout   = 120 * time.Second
)

// ErrEmptyResult is returned when a successful response carries no trend list.
var ErrEmptyResult = errors.New("analysis response has no trends")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d", e.StatusCode)
}

// RemoteError is returned when the endpoint answers with success=false.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "unknown analysis error"
	}
	return e.Message
}

// Response is the JSON body of the analysis endpoint.
type Response struct {
	Success bool         `json:"success"`
	Trends  []core.Trend `json:"trends,omitempty"`
	Report  *core.Report `json:"report,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Options configures a Client.
type Options struct {
	Endpoint   string
	FieldName  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts uploaded documents to the analysis endpoint.
type Client struct {
	endpoint   string
	fieldName  string
	httpClient *http.Client
}

// NewClient creates a client, filling unset options with defaults.
// A zero Timeout keeps DefaultTimeout; a negative one disables it.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.FieldName == "" {
		opts.FieldName = DefaultFieldName
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		if timeout < 0 {
			timeout = 0
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   opts.Endpoint,
		fieldName:  opts.FieldName,
		httpClient: httpClient,
	}
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze sends every file in one multipart request and returns the trends
// (with ids 0..n-1) and report.
func (c *Client) Analyze(ctx context.Context, files []core.UploadedFile) (core.AnalysisResult, error) {
	body, contentType, err := c.encode(files)
	if err != nil {
		return core.AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("read response failed: %w", err)
	}

	logger.Debug("Analysis endpoint responded",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.AnalysisResult{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return core.AnalysisResult{}, fmt.Errorf("decode response failed: %w", err)
	}
	if !decoded.Success {
		return core.AnalysisResult{}, &RemoteError{Message: decoded.Error}
	}
	if decoded.Trends == nil {
		return core.AnalysisResult{}, ErrEmptyResult
	}

	trends := make([]core.Trend, len(decoded.Trends))
	for i, t := range decoded.Trends {
		t.ID = int64(i)
		trends[i] = t
	}

	return core.AnalysisResult{Trends: trends, Report: decoded.Report}, nil
}

func (c *Client) encode(files []core.UploadedFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		part, err := w.CreateFormFile(c.fieldName, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create form part for %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", fmt.Errorf("write form part for %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
