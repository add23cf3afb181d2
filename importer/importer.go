package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
)

// Sheet names looked up in uploaded workbooks
const (
	PositionsSheet   = "Positions"
	PerformanceSheet = "Performance"
)

var (
	// ErrInvalidWorkbook is returned when the upload is not a readable xlsx file
	ErrInvalidWorkbook = errors.New("error reading Excel file")
	// ErrMissingColumn is returned when a required header is absent
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidRow is returned when a row holds an unparsable or out-of-range value
	ErrInvalidRow = errors.New("invalid row")
	// ErrNoPositions is returned when the positions sheet has a header but no data
	ErrNoPositions = errors.New("no positions found in workbook")
)

// column keys after header normalisation
const (
	colTicker         = "ticker"
	colShares         = "shares"
	colAvgCost        = "avgcost"
	colCategory       = "category"
	colSector         = "sector"
	colMarketCap      = "marketcap"
	colDate           = "date"
	colPortfolioValue = "portfoliovalue"
	colBenchmarkValue = "sp500value"
)

// headerAliases maps normalised header text to column keys
var headerAliases = map[string]string{
	"ticker":         colTicker,
	"symbol":         colTicker,
	"shares":         colShares,
	"quantity":       colShares,
	"avgcost":        colAvgCost,
	"averagecost":    colAvgCost,
	"category":       colCategory,
	"sector":         colSector,
	"marketcap":      colMarketCap,
	"date":           colDate,
	"month":          colDate,
	"portfoliovalue": colPortfolioValue,
	"portfolio":      colPortfolioValue,
	"sp500value":     colBenchmarkValue,
	"sp500":          colBenchmarkValue,
	"benchmark":      colBenchmarkValue,
}

// Result is a parsed workbook
type Result struct {
	Sheet       string
	Positions   []models.Position
	Performance *models.Performance
	// Skipped counts blank rows
	Skipped int
}

// Import reads positions, and optionally a performance series, from an xlsx workbook.
// Positions come from the "Positions" sheet when present, otherwise the first sheet.
// Any unparsable row rejects the whole workbook.
func Import(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidWorkbook)
	}

	sheet := sheets[0]
	perfSheet := ""
	for _, name := range sheets {
		switch {
		case strings.EqualFold(name, PositionsSheet):
			sheet = name
		case strings.EqualFold(name, PerformanceSheet):
			perfSheet = name
		}
	}
	// the first sheet may itself be the performance sheet
	if strings.EqualFold(sheet, PerformanceSheet) && len(sheets) > 1 {
		for _, name := range sheets {
			if !strings.EqualFold(name, PerformanceSheet) {
				sheet = name
				break
			}
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	res := &Result{Sheet: sheet}
	res.Positions, res.Skipped, err = parsePositions(rows)
	if err != nil {
		return nil, err
	}

	if perfSheet != "" && perfSheet != sheet {
		perfRows, err := f.GetRows(perfSheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
		}
		perf, err := parsePerformance(perfRows)
		if err != nil {
			return nil, err
		}
		res.Performance = perf
	}

	return res, nil
}

func parsePositions(rows [][]string) ([]models.Position, int, error) {
	header, start := findHeader(rows)
	for _, required := range []string{colTicker, colShares, colAvgCost} {
		if _, ok := header[required]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, displayName(required))
		}
	}

	var positions []models.Position
	skipped := 0
	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		if isBlank(row) {
			skipped++
			continue
		}

		ticker := models.NormalizeTicker(cell(row, header, colTicker))
		if ticker == "" {
			return nil, 0, fmt.Errorf("%w %d: ticker is empty", ErrInvalidRow, rowNum)
		}

		shares, err := parseNumber(cell(row, header, colShares))
		if err != nil || !shares.IsPositive() {
			return nil, 0, fmt.Errorf("%w %d: shares %q must be a positive number", ErrInvalidRow, rowNum, cell(row, header, colShares))
		}

		avgCost, err := parseNumber(cell(row, header, colAvgCost))
		if err != nil || avgCost.IsNegative() {
			return nil, 0, fmt.Errorf("%w %d: avg cost %q must be a non-negative number", ErrInvalidRow, rowNum, cell(row, header, colAvgCost))
		}

		positions = append(positions, models.NewPosition(
			ticker,
			shares,
			avgCost,
			strings.TrimSpace(cell(row, header, colCategory)),
			strings.TrimSpace(cell(row, header, colSector)),
			strings.TrimSpace(cell(row, header, colMarketCap)),
		))
	}

	if len(positions) == 0 {
		return nil, skipped, ErrNoPositions
	}
	return positions, skipped, nil
}

func parsePerformance(rows [][]string) (*models.Performance, error) {
	header, start := findHeader(rows)
	for _, required := range []string{colDate, colPortfolioValue} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("%w: %s (%s sheet)", ErrMissingColumn, displayName(required), PerformanceSheet)
		}
	}

	perf := &models.Performance{Source: models.PerformanceSourceUploaded, Points: []models.PerformancePoint{}}
	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		if isBlank(row) {
			continue
		}

		date, err := parseDate(cell(row, header, colDate))
		if err != nil {
			return nil, fmt.Errorf("%w %d (%s sheet): %v", ErrInvalidRow, rowNum, PerformanceSheet, err)
		}
		value, err := strconv.ParseFloat(cleanNumber(cell(row, header, colPortfolioValue)), 64)
		if err != nil {
			return nil, fmt.Errorf("%w %d (%s sheet): portfolio value is not a number", ErrInvalidRow, rowNum, PerformanceSheet)
		}

		point := models.PerformancePoint{
			Label:     portfolio.MonthLabel(date),
			Date:      date,
			Portfolio: value,
		}
		if raw := cell(row, header, colBenchmarkValue); strings.TrimSpace(raw) != "" {
			bench, err := strconv.ParseFloat(cleanNumber(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("%w %d (%s sheet): S&P 500 value is not a number", ErrInvalidRow, rowNum, PerformanceSheet)
			}
			point.Benchmark = bench
		}
		perf.Points = append(perf.Points, point)
	}

	return perf, nil
}

// findHeader returns the column index of each known header from the first
// non-blank row, and the index of the row after it
func findHeader(rows [][]string) (map[string]int, int) {
	header := make(map[string]int)
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		for j, text := range row {
			if key, ok := headerAliases[normalizeHeader(text)]; ok {
				if _, seen := header[key]; !seen {
					header[key] = j
				}
			}
		}
		return header, i + 1
	}
	return header, len(rows)
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func displayName(key string) string {
	switch key {
	case colTicker:
		return "Ticker"
	case colShares:
		return "Shares"
	case colAvgCost:
		return "Avg Cost"
	case colDate:
		return "Date"
	case colPortfolioValue:
		return "PortfolioValue"
	default:
		return key
	}
}

func cell(row []string, header map[string]int, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	return strings.ReplaceAll(s, ",", "")
}

func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(cleanNumber(s))
}

var dateLayouts = []string{"2006-01-02", "2006-01", "01/02/2006", "1/2/2006", "Jan 06", "Jan 2006", time.RFC3339}

// parseDate accepts ISO dates, a few common text layouts and Excel serial dates
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("date %q is not recognised", s)
}
