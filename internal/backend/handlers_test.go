package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financewatch/internal/analysis"
	"financewatch/internal/config"
	"financewatch/internal/core"
)

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(FieldName, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandleAnalyze(t *testing.T) {
	gen := &fakeGenerator{replies: []string{trendsReply, reportReply}}
	h := NewHandler(NewService(gen, Options{}), HandlerOptions{})

	body, contentType := multipartBody(t, map[string]string{"news.txt": "Rates stay high."})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Trends, 2)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "Stay diversified.", resp.Report.Recommendations)
	assert.Contains(t, gen.requests[0].Prompt, "Document: news.txt\nRates stay high.")
}

func TestHandleAnalyzeFailure(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"not json"}}
	h := NewHandler(NewService(gen, Options{}), HandlerOptions{})

	body, contentType := multipartBody(t, map[string]string{"news.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "failed to parse trends response")
}

func TestHandleAnalyzeRejectsNonMultipart(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{}, Options{}), HandlerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(`{"files":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid upload")
}

func TestHandleHealth(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{}, Options{}), HandlerOptions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","model":"fake-model"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{}, Options{}), HandlerOptions{
		CORS: config.CORS{Enabled: true, AllowedOrigins: []string{"*"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAnalysisClientRoundTrip(t *testing.T) {
	gen := &fakeGenerator{replies: []string{trendsReply, reportReply}}
	srv := httptest.NewServer(NewHandler(NewService(gen, Options{}), HandlerOptions{}))
	defer srv.Close()

	client := analysis.NewClient(analysis.Options{Endpoint: srv.URL + "/api/analyze"})
	result, err := client.Analyze(context.Background(), []core.UploadedFile{
		{ID: "1", Name: "a.txt", Content: []byte("alpha")},
		{ID: "2", Name: "b.txt", Content: []byte("beta")},
	})
	require.NoError(t, err)

	require.Len(t, result.Trends, 2)
	assert.Equal(t, "Interest rates", result.Trends[1].Category)
	assert.Equal(t, int64(1), result.Trends[1].ID)
	assert.Equal(t, "Markets were mixed.", result.Report.ExecutiveSummary)

	prompt := gen.requests[0].Prompt
	assert.Contains(t, prompt, "Document: a.txt\nalpha\n\n---\n\nDocument: b.txt\nbeta")
}
