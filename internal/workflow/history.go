package workflow

import "financewatch/internal/core"

// HistoryLimit is the number of approved reports kept, most recent first.
const HistoryLimit = 3

// PrependHistory puts entry in front of history and drops anything past HistoryLimit.
func PrependHistory(history []core.HistoryEntry, entry core.HistoryEntry) []core.HistoryEntry {
	out := make([]core.HistoryEntry, 0, len(history)+1)
	out = append(out, entry)
	out = append(out, history...)
	return TruncateHistory(out)
}

// TruncateHistory caps history at HistoryLimit entries.
func TruncateHistory(history []core.HistoryEntry) []core.HistoryEntry {
	if len(history) > HistoryLimit {
		return history[:HistoryLimit]
	}
	return history
}

// PreviousPeriod finds category in the most recent approved entry.
// Matching is exact and case-sensitive; false means no prior data.
func PreviousPeriod(history []core.HistoryEntry, category string) (core.Trend, bool) {
	if len(history) == 0 {
		return core.Trend{}, false
	}
	for _, t := range history[0].Trends {
		if t.Category == category {
			return t, true
		}
	}
	return core.Trend{}, false
}

// ComparisonBase returns the trends of the approved report that precedes the
// current one. Once the current report is approved it sits at index 0, so the
// comparison moves to index 1.
func (s State) ComparisonBase() []core.Trend {
	idx := 0
	if s.Approved {
		idx = 1
	}
	if idx >= len(s.History) {
		return nil
	}
	return core.CloneTrends(s.History[idx].Trends)
}
