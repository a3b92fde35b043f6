package engine

import "strconv"

const (
	highConfidenceScore = 80
	topInfringingLimit  = 10
)

// Summarize aggregates classification results. Pure: no I/O, no clock.
func Summarize(results []ClassificationResult) SummaryReport {
	report := SummaryReport{
		TotalAnalyzed: len(results),
		TypeBreakdown: make(map[CopyrightType]int),
		TopInfringing: []ClassificationResult{},
	}

	for _, r := range results {
		if !r.IsLikelyInfringing {
			continue
		}
		report.LikelyInfringing++
		if r.ConfidenceScore >= highConfidenceScore {
			report.HighConfidence++
		}
		report.TypeBreakdown[r.CopyrightType]++
		if len(report.TopInfringing) < topInfringingLimit {
			report.TopInfringing = append(report.TopInfringing, r)
		}
	}

	report.PercentageInfringing = percentage(report.LikelyInfringing, report.TotalAnalyzed)
	return report
}

// percentage formats part/total*100 with one decimal; zero total yields "0.0".
func percentage(part, total int) string {
	if total == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(part)/float64(total)*100, 'f', 1, 64)
}
