package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financewatch/internal/core"
)

func TestAnalyzeSendsOnePartPerFile(t *testing.T) {
	var names []string
	var contents []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for _, fh := range r.MultipartForm.File["files"] {
			names = append(names, fh.Filename)
			f, err := fh.Open()
			require.NoError(t, err)
			b, _ := io.ReadAll(f)
			f.Close()
			contents = append(contents, string(b))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"trends": []map[string]any{
				{"category": "Crypto", "sentiment": 70, "mentions": 12, "change": "+4%", "description": "up"},
				{"category": "Rates", "sentiment": 40, "mentions": 8, "change": "-2%", "description": "down"},
			},
			"report": map[string]any{
				"executive_summary": "summary",
				"key_trends":        []string{"one", "two"},
				"recommendations":   "watch",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL})
	got, err := c.Analyze(context.Background(), []core.UploadedFile{
		{Name: "a.txt", Content: []byte("alpha")},
		{Name: "b.pdf", Content: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.pdf"}, names)
	assert.Equal(t, []string{"alpha", "%PDF-1.4"}, contents)

	require.Len(t, got.Trends, 2)
	assert.Equal(t, int64(0), got.Trends[0].ID)
	assert.Equal(t, int64(1), got.Trends[1].ID)
	assert.Equal(t, "Crypto", got.Trends[0].Category)
	assert.Equal(t, 70, got.Trends[0].Sentiment)
	assert.Equal(t, "-2%", got.Trends[1].Change)
	require.NotNil(t, got.Report)
	assert.Equal(t, []string{"one", "two"}, got.Report.KeyTrends)
}

func TestAnalyzeCustomFieldName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Len(t, r.MultipartForm.File["documents"], 1)
		_, _ = w.Write([]byte(`{"success":true,"trends":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, FieldName: "documents"})
	got, err := c.Analyze(context.Background(), []core.UploadedFile{{Name: "a.txt"}})
	require.NoError(t, err)
	assert.Empty(t, got.Trends)
	assert.Nil(t, got.Report)
}

func TestAnalyzeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL}).Analyze(context.Background(), nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", statusErr.Body)
	assert.Equal(t, "server error: 502", err.Error())
}

func TestAnalyzeRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"model overloaded"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL}).Analyze(context.Background(), nil)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "model overloaded", remoteErr.Error())
}

func TestAnalyzeMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL}).Analyze(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response failed")
}

func TestAnalyzeMissingTrends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL}).Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestAnalyzeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(Options{Endpoint: url}).Analyze(context.Background(), []core.UploadedFile{{Name: "a.txt"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis request failed")
}

func TestAnalyzeHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(Options{Endpoint: srv.URL}).Analyze(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Options{})
	assert.Equal(t, DefaultEndpoint, c.Endpoint())
	assert.Equal(t, DefaultFieldName, c.fieldName)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	c = NewClient(Options{Timeout: -1})
	assert.Zero(t, c.httpClient.Timeout)
}
