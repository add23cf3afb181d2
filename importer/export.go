package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"portfolio-tracker/models"
)

var (
	positionsHeader   = []interface{}{"Ticker", "Shares", "Avg Cost", "Category", "Sector", "Market Cap"}
	performanceHeader = []interface{}{"Date", "PortfolioValue", "SP500Value"}
)

// Export writes positions, and a performance series when given, in the layout Import reads
func Export(w io.Writer, positions []models.Position, perf *models.Performance) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PositionsSheet); err != nil {
		return fmt.Errorf("failed to name positions sheet: %w", err)
	}
	if err := f.SetSheetRow(PositionsSheet, "A1", &positionsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range positions {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			p.Ticker,
			p.Shares.InexactFloat64(),
			p.AvgCost.InexactFloat64(),
			p.Category,
			p.Sector,
			p.MarketCap,
		}
		if err := f.SetSheetRow(PositionsSheet, cellRef, &row); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.Ticker, err)
		}
	}

	if perf != nil && len(perf.Points) > 0 {
		if _, err := f.NewSheet(PerformanceSheet); err != nil {
			return fmt.Errorf("failed to add performance sheet: %w", err)
		}
		if err := f.SetSheetRow(PerformanceSheet, "A1", &performanceHeader); err != nil {
			return fmt.Errorf("failed to write performance header: %w", err)
		}
		for i, pt := range perf.Points {
			cellRef, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			row := []interface{}{pt.Date.Format("2006-01-02"), pt.Portfolio, pt.Benchmark}
			if err := f.SetSheetRow(PerformanceSheet, cellRef, &row); err != nil {
				return fmt.Errorf("failed to write performance row: %w", err)
			}
		}
	}

	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
