package history

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financewatch/internal/core"
	"financewatch/internal/store"
	"financewatch/internal/workflow"
)

func sampleHistory(n int) []core.HistoryEntry {
	out := make([]core.HistoryEntry, n)
	for i := range out {
		out[i] = core.HistoryEntry{
			Date: fmt.Sprintf("%02d/03/2025", i+1),
			Trends: []core.Trend{
				{ID: 0, Category: "Crypto & Blockchain", Sentiment: 70 + i, Mentions: 10, Change: "+4%", Description: "up"},
				{ID: 1712000000000, Category: "Rates", Sentiment: 40, Mentions: 3, Change: "-1%", Description: "down"},
			},
			Report: &core.Report{
				ExecutiveSummary: "Résumé",
				KeyTrends:        []string{"one", "two"},
				Recommendations:  "watch",
			},
		}
	}
	return out
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	h := New(store.NewMemoryStore(), "")
	assert.Equal(t, DefaultKey, h.Key())

	entries, err := h.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := New(store.NewMemoryStore(), "")

	want := sampleHistory(3)
	want[2].Report = nil
	require.NoError(t, h.Save(ctx, want))

	got, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRoundTripSQLite(t *testing.T) {
	ctx := context.Background()
	kv, err := store.NewStore(t.TempDir())
	require.NoError(t, err)
	defer kv.Close()

	h := New(kv, "")
	want := sampleHistory(2)
	require.NoError(t, h.Save(ctx, want))

	got, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveTruncates(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	h := New(kv, "")

	require.NoError(t, h.Save(ctx, sampleHistory(5)))

	got, err := h.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, workflow.HistoryLimit)
	assert.Equal(t, "01/03/2025", got[0].Date)
	assert.Equal(t, "03/03/2025", got[2].Date)
}

func TestLoadTruncatesOversizedValue(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()

	raw := `[{"date":"a","trends":[],"report":null},{"date":"b","trends":[],"report":null},` +
		`{"date":"c","trends":[],"report":null},{"date":"d","trends":[],"report":null}]`
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(raw)))

	got, err := New(kv, "").Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Date)
}

func TestLoadCorruptValueResets(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(`{not json`)))

	h := New(kv, "")
	got, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = kv.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, store.ErrNotFound, "corrupt value should be deleted")
}

func TestLoadWrongShapeResets(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(`{"date":"14/03/2025"}`)))

	got, err := New(kv, "").Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveEmptyWritesArray(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, New(kv, "").Save(ctx, nil))

	raw, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestWireFormat(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()

	entry := core.HistoryEntry{
		Date:   "14/03/2025",
		Trends: []core.Trend{{ID: 0, Category: "Crypto", Sentiment: 70, Mentions: 2, Change: "+1%", Description: "d"}},
		Report: &core.Report{ExecutiveSummary: "s", KeyTrends: []string{"k"}, Recommendations: "r"},
	}
	require.NoError(t, New(kv, "").Save(ctx, []core.HistoryEntry{entry}))

	raw, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"date": "14/03/2025",
		"trends": [{"id":0,"category":"Crypto","sentiment":70,"mentions":2,"change":"+1%","description":"d"}],
		"report": {"executive_summary":"s","key_trends":["k"],"recommendations":"r"}
	}]`, string(raw))
}

type failingKV struct {
	store.KV
}

func (failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestLoadPropagatesBackendErrors(t *testing.T) {
	_, err := New(failingKV{KV: store.NewMemoryStore()}, "").Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClearAndLatest(t *testing.T) {
	ctx := context.Background()
	h := New(store.NewMemoryStore(), "custom-key")

	_, ok, err := h.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.Save(ctx, sampleHistory(2)))
	latest, ok, err := h.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "01/03/2025", latest.Date)

	require.NoError(t, h.Clear(ctx))
	got, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSessionIntegration(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	h := New(kv, "")
	require.NoError(t, h.Save(ctx, sampleHistory(1)))

	s := workflow.NewSession(ctx, nil, h, workflow.DefaultEnv())
	snap := s.Snapshot()
	require.Len(t, snap.History, 1)

	prev, ok := workflow.PreviousPeriod(snap.History, "Crypto & Blockchain")
	require.True(t, ok)
	assert.Equal(t, 70, prev.Sentiment)
}
