package portfolio

import (
	"math/rand/v2"
	"time"

	"portfolio-tracker/models"
)

const (
	// DefaultPerformanceMonths is the length of the generated series
	DefaultPerformanceMonths = 36
	performanceBase          = 100.0
	performanceDrift         = 0.45
	performanceVolatility    = 0.1
)

// DefaultPerformanceStart is the first month of the generated series
var DefaultPerformanceStart = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// MockSeries returns a random walk starting from 100, compounding
// value × (1 + (r - 0.45) × 0.1) each month before the point is recorded
func MockSeries(rng *rand.Rand, months int) []float64 {
	if months <= 0 {
		return []float64{}
	}
	series := make([]float64, months)
	value := performanceBase
	for i := range series {
		value *= 1 + (rng.Float64()-performanceDrift)*performanceVolatility
		series[i] = value
	}
	return series
}

// MockPerformance builds a placeholder portfolio series and an independently
// generated S&P 500 series, labelled "Jan 23" style from start
func MockPerformance(rng *rand.Rand, start time.Time, months int) models.Performance {
	portfolio := MockSeries(rng, months)
	benchmark := MockSeries(rng, months)

	points := make([]models.PerformancePoint, len(portfolio))
	for i := range portfolio {
		date := start.AddDate(0, i, 0)
		points[i] = models.PerformancePoint{
			Label:     MonthLabel(date),
			Date:      date,
			Portfolio: portfolio[i],
			Benchmark: benchmark[i],
		}
	}

	return models.Performance{Source: models.PerformanceSourceMock, Points: points}
}

// MonthLabel formats a date as a short month and two-digit year
func MonthLabel(t time.Time) string {
	return t.Format("Jan 06")
}
