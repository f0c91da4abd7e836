package backend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financewatch/internal/extract"
	"financewatch/internal/llm"
)

// fakeGenerator answers each call with the next scripted reply.
type fakeGenerator struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []llm.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeGenerator) Name() string { return "fake-model" }

const (
	trendsReply = "```json\n" + `{"trends":[
  {"category":"Crypto & DeFi","sentiment":72.6,"mentions":45,"change":"+12%","description":"Bitcoin rallies"},
  {"category":"Interest rates","sentiment":40,"mentions":30,"change":"-5%","description":"Rates stay high"}
]}` + "\n```"

	reportReply = `{"executive_summary":"Markets were mixed.","key_trends":["Crypto up","Rates flat"],"recommendations":"Stay diversified."}`
)

func TestAnalyzeTwoStep(t *testing.T) {
	gen := &fakeGenerator{replies: []string{trendsReply, reportReply}}
	svc := NewService(gen, Options{Temperature: 0.5, MaxTokens: 800})

	result, err := svc.Analyze(context.Background(), []extract.Document{
		{Name: "week.txt", Text: "Bitcoin rallied this week."},
	})
	require.NoError(t, err)

	require.Len(t, result.Trends, 2)
	assert.Equal(t, int64(0), result.Trends[0].ID)
	assert.Equal(t, int64(1), result.Trends[1].ID)
	assert.Equal(t, "Crypto & DeFi", result.Trends[0].Category)
	assert.Equal(t, 73, result.Trends[0].Sentiment)
	assert.Equal(t, 45, result.Trends[0].Mentions)

	require.NotNil(t, result.Report)
	assert.Equal(t, "Markets were mixed.", result.Report.ExecutiveSummary)
	assert.Equal(t, []string{"Crypto up", "Rates flat"}, result.Report.KeyTrends)

	require.Len(t, gen.requests, 2)
	first, second := gen.requests[0], gen.requests[1]
	assert.Contains(t, first.Prompt, "Document: week.txt\nBitcoin rallied this week.")
	assert.Contains(t, first.System, "expert financial analyst")
	assert.Equal(t, float32(0.5), first.Temperature)
	assert.Equal(t, int32(800), first.MaxTokens)
	assert.True(t, first.JSON)

	// The report prompt carries the extracted trends unescaped.
	assert.Contains(t, second.Prompt, `"category": "Crypto & DeFi"`)
	assert.NotContains(t, second.Prompt, `\u0026`)
}

func TestAnalyzeWithoutDocumentsStillPrompts(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`{"trends":[]}`, reportReply}}
	svc := NewService(gen, Options{})

	result, err := svc.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Trends)
	require.Len(t, gen.requests, 2)
	assert.Contains(t, gen.requests[0].Prompt, "create 4 trends")
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		wantErr string
	}{
		{"provider failure", &fakeGenerator{err: errors.New("quota exceeded")}, "trend extraction failed: quota exceeded"},
		{"trends not json", &fakeGenerator{replies: []string{"I cannot help with that"}}, "failed to parse trends response"},
		{"trends field missing", &fakeGenerator{replies: []string{`{"items":[]}`}}, "no trends field"},
		{"report not json", &fakeGenerator{replies: []string{trendsReply, "Sure! Here is the report"}}, "failed to parse report response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.gen, Options{})
			_, err := svc.Analyze(context.Background(), []extract.Document{{Name: "a.txt", Text: "x"}})
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestAnalyzeHonoursCancelledContext(t *testing.T) {
	gen := &fakeGenerator{replies: []string{trendsReply, reportReply}}
	svc := NewService(gen, Options{RPM: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limiter wait error")
	assert.Empty(t, gen.requests)
}

func TestNewServiceLimiter(t *testing.T) {
	svc := NewService(&fakeGenerator{}, Options{RPM: 120})
	assert.InDelta(t, 2.0, float64(svc.limiter.Limit()), 1e-9)
	assert.Equal(t, 12, svc.limiter.Burst())

	svc = NewService(&fakeGenerator{}, Options{RPM: 6})
	assert.Equal(t, 2, svc.limiter.Burst())
}

func TestModel(t *testing.T) {
	svc := NewService(&fakeGenerator{}, Options{})
	assert.Equal(t, "fake-model", svc.Model())
}
