package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	testCases := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{name: "Zero", bytes: 0, expected: "0.00 KB"},
		{name: "One kilobyte", bytes: 1024, expected: "1.00 KB"},
		{name: "Fractional", bytes: 1536, expected: "1.50 KB"},
		{name: "Small file", bytes: 100, expected: "0.10 KB"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatSize(tc.bytes))
		})
	}
}

func TestTrendRising(t *testing.T) {
	assert.True(t, Trend{Change: "+12%"}.Rising())
	assert.True(t, Trend{Change: " +1%"}.Rising())
	assert.False(t, Trend{Change: "-8%"}.Rising())
	assert.False(t, Trend{Change: "0%"}.Rising())
}

func TestParseView(t *testing.T) {
	v, err := ParseView("Validation")
	require.NoError(t, err)
	assert.Equal(t, ViewValidation, v)

	_, err = ParseView("settings")
	assert.Error(t, err)
}

func TestReportClone(t *testing.T) {
	var nilReport *Report
	assert.Nil(t, nilReport.Clone())

	original := &Report{ExecutiveSummary: "summary", KeyTrends: []string{"a", "b"}}
	clone := original.Clone()
	clone.KeyTrends[0] = "changed"

	assert.Equal(t, "a", original.KeyTrends[0])
}

func TestHistoryEntryWireFormat(t *testing.T) {
	entry := HistoryEntry{
		Date: "19/10/2026",
		Trends: []Trend{
			{ID: 0, Category: "Crypto", Sentiment: 70, Mentions: 12, Change: "+3%", Description: "up"},
		},
		Report: &Report{ExecutiveSummary: "s", KeyTrends: []string{"k"}, Recommendations: "r"},
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "date")
	assert.Contains(t, raw, "trends")
	report := raw["report"].(map[string]any)
	assert.Contains(t, report, "executive_summary")
	assert.Contains(t, report, "key_trends")
	assert.Contains(t, report, "recommendations")
}

func TestUploadedFileContentNotSerialized(t *testing.T) {
	data, err := json.Marshal(UploadedFile{Name: "a.txt", Content: []byte("secret")})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}
