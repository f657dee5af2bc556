package engine

import (
	"math"

	"github.com/dnldd/hammer/shared"
)

// Accuracy thresholds a strategy clears before being considered live ready.
const (
	DefaultMinWinRate      = 55.0
	DefaultMinProfitFactor = 1.5
)

// AccuracyThresholds represents the pass criteria for a backtest report.
type AccuracyThresholds struct {
	// MinWinRate is the minimum win rate percentage.
	MinWinRate float64
	// MinProfitFactor is the minimum profit factor.
	MinProfitFactor float64
}

// Assessment represents the accuracy verdict for a single backtest report.
type Assessment struct {
	Market             string
	Timeframe          shared.Timeframe
	WinRate            float64
	ProfitFactor       float64
	TotalReturnPct     float64
	PassedWinRate      bool
	PassedProfitFactor bool
	Profitable         bool
	Ready              bool
}

// AssessReport evaluates the provided report against the accuracy thresholds.
func AssessReport(report *Report, thresholds *AccuracyThresholds) *Assessment {
	assessment := &Assessment{
		Market:         report.Market,
		Timeframe:      report.Timeframe,
		WinRate:        report.WinRate,
		ProfitFactor:   report.ProfitFactor,
		TotalReturnPct: report.TotalReturnPct,
	}

	assessment.PassedWinRate = report.WinRate >= thresholds.MinWinRate
	assessment.PassedProfitFactor = report.ProfitFactor >= thresholds.MinProfitFactor
	assessment.Profitable = report.TotalReturnPct > 0
	assessment.Ready = assessment.PassedWinRate && assessment.PassedProfitFactor &&
		assessment.Profitable

	return assessment
}

// AccuracySummary summarizes assessments across a set of backtests.
type AccuracySummary struct {
	Total           int
	Passed          int
	Failed          int
	AvgWinRate      float64
	AvgProfitFactor float64
	AvgReturnPct    float64
	Ready           bool
}

// SummarizeAssessments reduces the provided assessments into a summary. The
// strategy is ready only when every assessed dataset passed.
func SummarizeAssessments(assessments []*Assessment) *AccuracySummary {
	summary := &AccuracySummary{Total: len(assessments)}
	if len(assessments) == 0 {
		return summary
	}

	var sumWinRate, sumReturn float64
	var sumProfitFactor float64
	var finiteFactors int

	for idx := range assessments {
		assessment := assessments[idx]

		if assessment.Ready {
			summary.Passed++
		} else {
			summary.Failed++
		}

		sumWinRate += assessment.WinRate
		sumReturn += assessment.TotalReturnPct

		// Unbounded factors are left out of the average.
		if !math.IsInf(assessment.ProfitFactor, 1) {
			sumProfitFactor += assessment.ProfitFactor
			finiteFactors++
		}
	}

	summary.AvgWinRate = sumWinRate / float64(len(assessments))
	summary.AvgReturnPct = sumReturn / float64(len(assessments))

	if finiteFactors > 0 {
		summary.AvgProfitFactor = sumProfitFactor / float64(finiteFactors)
	} else {
		summary.AvgProfitFactor = math.Inf(1)
	}

	summary.Ready = summary.Passed == summary.Total

	return summary
}
