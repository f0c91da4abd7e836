// Package backend is the analysis service: it extracts text from uploaded
// documents and asks an LLM for the trends and the weekly report.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"financewatch/internal/core"
	"financewatch/internal/extract"
	"financewatch/internal/llm"
	"financewatch/internal/logger"
)

const (
	trendsSystemPrompt = "You are an expert financial analyst. Analyse the documents and extract the main financial trends."
	reportSystemPrompt = "You are an expert financial analyst. Write a professional weekly report."

	trendsPromptTemplate = `Analyse these documents and extract the financial trends.

Documents:
%s

Answer ONLY with JSON (no backticks, no text before or after) in exactly this format:
{
  "trends": [
    {
      "category": "Category name",
      "sentiment": 75,
      "mentions": 45,
      "change": "+12%%",
      "description": "Short description"
    }
  ]
}

If the documents do not contain enough information, create 4 trends based on recent financial news (crypto, AI, interest rates, emerging markets).`

	reportPromptTemplate = `Write a weekly report based on these trends:

%s

Answer ONLY with JSON (no backticks, no text before or after) in exactly this format:
{
  "executive_summary": "Summary in 2-3 sentences",
  "key_trends": [
    "Trend 1 with details",
    "Trend 2 with details",
    "Trend 3 with details"
  ],
  "recommendations": "Concrete recommendations"
}`
)

// Trend is a trend as the model produces it and the service returns it.
// Numbers are accepted as floats since models do not always emit integers.
type Trend struct {
	Category    string  `json:"category"`
	Sentiment   float64 `json:"sentiment"`
	Mentions    float64 `json:"mentions"`
	Change      string  `json:"change"`
	Description string  `json:"description"`
}

func (t Trend) core() core.Trend {
	return core.Trend{
		Category:    t.Category,
		Sentiment:   int(math.Round(t.Sentiment)),
		Mentions:    int(math.Round(t.Mentions)),
		Change:      t.Change,
		Description: t.Description,
	}
}

// Options configures a Service.
type Options struct {
	RPM         int           // LLM calls per minute, 0 disables throttling
	Temperature float32       // 0 uses llm.DefaultTemperature
	MaxTokens   int32         // 0 uses llm.DefaultMaxTokens
	Timeout     time.Duration // Budget for one Analyze call, 0 for none
}

// Service runs the two-step analysis.
type Service struct {
	gen     llm.Generator
	limiter *rate.Limiter
	opts    Options
}

// NewService creates a Service around gen.
func NewService(gen llm.Generator, opts Options) *Service {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPM > 0 {
		limit := rate.Limit(float64(opts.RPM) / 60.0)
		burst := opts.RPM / 10
		if burst < 2 {
			burst = 2
		}
		limiter = rate.NewLimiter(limit, burst)
	}
	return &Service{gen: gen, limiter: limiter, opts: opts}
}

// Model names the generator in use.
func (s *Service) Model() string {
	return s.gen.Name()
}

// Analyze extracts trends from docs, then writes a report from those trends.
func (s *Service) Analyze(ctx context.Context, docs []extract.Document) (core.AnalysisResult, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	log := logger.Ctx(ctx)

	combined := extract.Combine(docs)
	log.Info().Int("documents", len(docs)).Int("chars", len(combined)).Str("model", s.gen.Name()).Msg("Extracting trends")

	trendsText, err := s.generate(ctx, trendsSystemPrompt, fmt.Sprintf(trendsPromptTemplate, combined))
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("trend extraction failed: %w", err)
	}

	var trendsData struct {
		Trends []Trend `json:"trends"`
	}
	if err := json.Unmarshal([]byte(llm.CleanJSON(trendsText)), &trendsData); err != nil {
		return core.AnalysisResult{}, fmt.Errorf("failed to parse trends response: %w", err)
	}
	if trendsData.Trends == nil {
		return core.AnalysisResult{}, fmt.Errorf("trends response has no trends field")
	}

	trendsJSON, err := marshalIndentNoEscape(trendsData.Trends)
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("failed to encode trends: %w", err)
	}

	log.Info().Int("trends", len(trendsData.Trends)).Msg("Writing report")

	reportText, err := s.generate(ctx, reportSystemPrompt, fmt.Sprintf(reportPromptTemplate, trendsJSON))
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("report generation failed: %w", err)
	}

	var report core.Report
	if err := json.Unmarshal([]byte(llm.CleanJSON(reportText)), &report); err != nil {
		return core.AnalysisResult{}, fmt.Errorf("failed to parse report response: %w", err)
	}

	trends := make([]core.Trend, len(trendsData.Trends))
	for i, t := range trendsData.Trends {
		trends[i] = t.core()
		trends[i].ID = int64(i)
	}

	return core.AnalysisResult{Trends: trends, Report: &report}, nil
}

func (s *Service) generate(ctx context.Context, system, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("limiter wait error: %w", err)
	}
	return s.gen.Generate(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		JSON:        true,
	})
}

// marshalIndentNoEscape keeps accented characters and & readable in the prompt.
func marshalIndentNoEscape(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
