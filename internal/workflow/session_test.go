package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"financewatch/internal/core"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, files []core.UploadedFile) (core.AnalysisResult, error) {
	args := m.Called(ctx, files)
	return args.Get(0).(core.AnalysisResult), args.Error(1)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) Load(ctx context.Context) ([]core.HistoryEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]core.HistoryEntry)
	return entries, args.Error(1)
}

func (m *mockHistory) Save(ctx context.Context, history []core.HistoryEntry) error {
	return m.Called(ctx, history).Error(0)
}

func (m *mockHistory) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// blockingAnalyzer holds Analyze open until release is closed.
type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, files []core.UploadedFile) (core.AnalysisResult, error) {
	close(b.started)
	<-b.release
	return core.AnalysisResult{Trends: []core.Trend{{Category: "Gold"}}}, nil
}

func TestSessionLoadsHistory(t *testing.T) {
	ctx := context.Background()
	hist := &mockHistory{}
	saved := []core.HistoryEntry{{Date: "07/03/2025", Trends: []core.Trend{{Category: "Crypto", Sentiment: 70}}}}
	hist.On("Load", ctx).Return(saved, nil)

	env, _ := testEnv()
	s := NewSession(ctx, &mockAnalyzer{}, hist, env)

	snap := s.Snapshot()
	assert.Equal(t, saved, snap.History)
	assert.Equal(t, core.ViewUpload, snap.View)
	hist.AssertExpectations(t)
}

func TestSessionStartsEmptyWhenHistoryFails(t *testing.T) {
	ctx := context.Background()
	hist := &mockHistory{}
	hist.On("Load", ctx).Return(nil, errors.New("disk gone"))

	env, _ := testEnv()
	s := NewSession(ctx, &mockAnalyzer{}, hist, env)
	assert.Empty(t, s.Snapshot().History)
}

func TestSessionAnalyzeSuccess(t *testing.T) {
	ctx := context.Background()
	analyzer := &mockAnalyzer{}
	result := core.AnalysisResult{
		Trends: []core.Trend{{Category: "Gold", Sentiment: 60, Change: "+3%"}},
		Report: &core.Report{ExecutiveSummary: "steady"},
	}
	analyzer.On("Analyze", ctx, mock.MatchedBy(func(files []core.UploadedFile) bool {
		return len(files) == 1 && files[0].Status == core.FileAnalyzing
	})).Return(result, nil)

	env, _ := testEnv()
	s := NewSession(ctx, analyzer, nil, env)
	_, err := s.AddFiles(core.UploadedFile{ID: "f1", Name: "gold.txt", Content: []byte("gold")})
	require.NoError(t, err)

	require.NoError(t, s.Analyze(ctx))

	snap := s.Snapshot()
	assert.Equal(t, core.ViewValidation, snap.View)
	assert.True(t, snap.ValidationMode)
	assert.False(t, snap.Analyzing)
	assert.Equal(t, "Gold", snap.Trends[0].Category)
	assert.Equal(t, core.FileCompleted, snap.Files[0].Status)
	assert.False(t, s.Busy())
	analyzer.AssertExpectations(t)
}

func TestSessionAnalyzeFallsBack(t *testing.T) {
	ctx := context.Background()
	analyzer := &mockAnalyzer{}
	analyzer.On("Analyze", ctx, mock.Anything).Return(core.AnalysisResult{}, errors.New("dial tcp: connection refused"))

	env, _ := testEnv()
	s := NewSession(ctx, analyzer, nil, env)
	_, err := s.AddFiles(core.UploadedFile{Name: "a.pdf"})
	require.NoError(t, err)

	require.NoError(t, s.Analyze(ctx))

	snap := s.Snapshot()
	assert.Equal(t, DemoResult().Trends, snap.Trends)
	assert.Equal(t, core.ViewValidation, snap.View)
	assert.Equal(t, FallbackNotice, snap.Notice)
}

func TestSessionAnalyzeWithoutFiles(t *testing.T) {
	env, _ := testEnv()
	s := NewSession(context.Background(), &mockAnalyzer{}, nil, env)

	assert.ErrorIs(t, s.Analyze(context.Background()), ErrNoFiles)
	assert.False(t, s.Busy())
}

func TestSessionAnalyzeRejectsReentry(t *testing.T) {
	ctx := context.Background()
	analyzer := &blockingAnalyzer{started: make(chan struct{}), release: make(chan struct{})}

	env, _ := testEnv()
	s := NewSession(ctx, analyzer, nil, env)
	_, err := s.AddFiles(core.UploadedFile{Name: "a.txt"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Analyze(ctx))
	}()

	<-analyzer.started
	assert.True(t, s.Busy())
	assert.True(t, s.Snapshot().Analyzing)
	assert.ErrorIs(t, s.Analyze(ctx), ErrAnalysisInFlight)

	_, err = s.Dispatch(ctx, StartAnalysis{})
	assert.ErrorIs(t, err, ErrAnalysisInFlight)

	close(analyzer.release)
	wg.Wait()

	assert.False(t, s.Busy())
	assert.Equal(t, "Gold", s.Snapshot().Trends[0].Category)
}

func TestSessionApprovePersistsTruncatedHistory(t *testing.T) {
	ctx := context.Background()
	analyzer := &mockAnalyzer{}
	analyzer.On("Analyze", ctx, mock.Anything).Return(DemoResult(), nil)

	existing := []core.HistoryEntry{{Date: "1"}, {Date: "2"}, {Date: "3"}}
	hist := &mockHistory{}
	hist.On("Load", ctx).Return(existing, nil)
	hist.On("Save", ctx, mock.MatchedBy(func(h []core.HistoryEntry) bool {
		return len(h) == HistoryLimit && h[0].Date == "14/03/2025" && h[1].Date == "1" && h[2].Date == "2"
	})).Return(nil).Once()

	env, _ := testEnv()
	s := NewSession(ctx, analyzer, hist, env)
	_, err := s.AddFiles(core.UploadedFile{Name: "a.txt"})
	require.NoError(t, err)
	require.NoError(t, s.Analyze(ctx))

	snap, err := s.Dispatch(ctx, Approve{})
	require.NoError(t, err)

	assert.Equal(t, core.ViewTrends, snap.View)
	assert.False(t, snap.ValidationMode)
	assert.Len(t, snap.History, HistoryLimit)
	hist.AssertExpectations(t)
}

func TestSessionApproveKeepsStateWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	analyzer := &mockAnalyzer{}
	analyzer.On("Analyze", ctx, mock.Anything).Return(DemoResult(), nil)

	hist := &mockHistory{}
	hist.On("Load", ctx).Return(nil, nil)
	hist.On("Save", ctx, mock.Anything).Return(errors.New("read-only"))

	env, _ := testEnv()
	s := NewSession(ctx, analyzer, hist, env)
	_, err := s.AddFiles(core.UploadedFile{Name: "a.txt"})
	require.NoError(t, err)
	require.NoError(t, s.Analyze(ctx))

	snap, err := s.Dispatch(ctx, Approve{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.True(t, snap.ValidationMode)
	assert.Equal(t, core.ViewValidation, snap.View)
	assert.Empty(t, snap.History)
}

func TestSessionDispatchRejectsAnalysisOutcomes(t *testing.T) {
	env, _ := testEnv()
	s := NewSession(context.Background(), &mockAnalyzer{}, nil, env)

	_, err := s.Dispatch(context.Background(), AnalysisFailed{})
	assert.Error(t, err)
	assert.Empty(t, s.Snapshot().Trends)
}

func TestSessionClearHistory(t *testing.T) {
	ctx := context.Background()
	hist := &mockHistory{}
	hist.On("Load", ctx).Return([]core.HistoryEntry{{Date: "1"}}, nil)
	hist.On("Clear", ctx).Return(nil)

	env, _ := testEnv()
	s := NewSession(ctx, &mockAnalyzer{}, hist, env)
	require.Len(t, s.Snapshot().History, 1)

	require.NoError(t, s.ClearHistory(ctx))
	assert.Empty(t, s.Snapshot().History)
	hist.AssertExpectations(t)
}
