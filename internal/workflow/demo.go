package workflow

import "financewatch/internal/core"

// FallbackNotice is shown when the analysis endpoint could not be used.
const FallbackNotice = "Could not reach the analysis backend. Using demonstration data."

// DemoResult is the fixed dataset substituted when analysis fails, so the
// review workflow stays usable offline.
func DemoResult() core.AnalysisResult {
	return core.AnalysisResult{
		Trends: []core.Trend{
			{ID: 0, Category: "Crypto & Blockchain", Sentiment: 85, Mentions: 234, Change: "+12%", Description: "Strong rally in the crypto market"},
			{ID: 1, Category: "Interest Rates", Sentiment: 42, Mentions: 189, Change: "-8%", Description: "Uncertainty around monetary policy"},
			{ID: 2, Category: "AI & Tech", Sentiment: 78, Mentions: 156, Change: "+24%", Description: "Explosive growth in AI"},
			{ID: 3, Category: "Emerging Markets", Sentiment: 61, Mentions: 98, Change: "+5%", Description: "Gradual stabilization"},
		},
		Report: &core.Report{
			ExecutiveSummary: "This week financial markets were marked by strong volatility in the technology sector, with particular attention paid to developments in artificial intelligence.",
			KeyTrends: []string{
				"Crypto & Blockchain: significant 12% rise in mentions, very positive sentiment (85%)",
				"Artificial Intelligence: explosive 24% growth, with 156 mentions across the analysed reports",
				"Interest Rates: sentiment falling (-8%), reflecting market uncertainty",
			},
			Recommendations: "Closely monitor monetary policy announcements and regulatory developments in the crypto sector.",
		},
	}
}
