package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dimension is a classification axis for allocation breakdowns
type Dimension string

const (
	DimensionCategory  Dimension = "category"
	DimensionSector    Dimension = "sector"
	DimensionMarketCap Dimension = "market_cap"
)

// Dimensions lists the breakdowns shown on the dashboard, in display order
var Dimensions = []Dimension{DimensionCategory, DimensionSector, DimensionMarketCap}

// Title returns the chart heading for a dimension
func (d Dimension) Title() string {
	switch d {
	case DimensionCategory:
		return "Category"
	case DimensionSector:
		return "Sector"
	case DimensionMarketCap:
		return "Market Cap"
	default:
		return string(d)
	}
}

// Of returns the position's label along this dimension
func (d Dimension) Of(p Position) string {
	switch d {
	case DimensionCategory:
		return p.Category
	case DimensionSector:
		return p.Sector
	case DimensionMarketCap:
		return p.MarketCap
	default:
		return ""
	}
}

// Bucket is one slice of a distribution
type Bucket struct {
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// Distribution is the share of current value per label along one dimension.
// Buckets are ordered by first appearance in the position list.
type Distribution struct {
	Dimension Dimension `json:"dimension"`
	Buckets   []Bucket  `json:"buckets"`
}

// Labels returns bucket labels in order
func (d Distribution) Labels() []string {
	labels := make([]string, len(d.Buckets))
	for i, b := range d.Buckets {
		labels[i] = b.Label
	}
	return labels
}

// Values returns bucket values as floats for charting
func (d Distribution) Values() []float64 {
	values := make([]float64, len(d.Buckets))
	for i, b := range d.Buckets {
		values[i] = b.Value.InexactFloat64()
	}
	return values
}

// PerformancePoint is one month of the performance chart
type PerformancePoint struct {
	Label     string    `json:"label"`
	Date      time.Time `json:"date"`
	Portfolio float64   `json:"portfolio"`
	Benchmark float64   `json:"benchmark"`
}

// PerformanceSource tells whether a series was generated or uploaded
type PerformanceSource string

const (
	PerformanceSourceMock     PerformanceSource = "mock"
	PerformanceSourceUploaded PerformanceSource = "uploaded"
)

// Performance is the series rendered by the performance chart
type Performance struct {
	Source PerformanceSource  `json:"source"`
	Points []PerformancePoint `json:"points"`
}

// NotificationLevel is the toast style
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient user-facing message
type Notification struct {
	Message string            `json:"message"`
	Level   NotificationLevel `json:"level"`
}

// Success builds a success notification
func Success(message string) Notification {
	return Notification{Message: message, Level: NotificationSuccess}
}

// Failure builds an error notification
func Failure(message string) Notification {
	return Notification{Message: message, Level: NotificationError}
}

// PortfolioSnapshot is everything the dashboard needs for one render
type PortfolioSnapshot struct {
	Positions     []PricedPosition `json:"positions"`
	Totals        PortfolioTotals  `json:"totals"`
	Distributions []Distribution   `json:"distributions"`
	QuoteSource   string           `json:"quote_source"`
	// Warning is set when quotes could not be fetched and prices fell back to avg cost
	Warning string    `json:"warning,omitempty"`
	AsOf    time.Time `json:"as_of"`
}

// Analysis is the AI commentary on the portfolio
type Analysis struct {
	Provider    string    `json:"provider"`
	Text        string    `json:"text"`
	Paragraphs  []string  `json:"paragraphs"`
	HTML        string    `json:"html"`
	Fallback    bool      `json:"fallback"`
	GeneratedAt time.Time `json:"generated_at"`
}
