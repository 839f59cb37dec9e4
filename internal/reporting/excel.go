// Package reporting writes the daily strategy run to an Excel workbook.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/niftyshop/nifty-shop-bot/internal/strategy"
	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

type excelStyles struct {
	header  int
	percent int
	price   int
}

// ExcelReporter writes strategy run summaries as .xlsx workbooks.
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteRunReport writes a workbook with the scan results, orders, and
// closing holdings of one strategy run.
func (r *ExcelReporter) WriteRunReport(summary *strategy.Summary, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const (
		scanSheet     = "Scan"
		ordersSheet   = "Orders"
		holdingsSheet = "Holdings"
	)
	fx.SetSheetName(fx.GetSheetName(0), scanSheet)
	fx.NewSheet(ordersSheet)
	fx.NewSheet(holdingsSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeScanSheet(fx, scanSheet, summary, styles); err != nil {
		return err
	}
	if err := r.writeOrdersSheet(fx, ordersSheet, summary, styles); err != nil {
		return err
	}
	if err := r.writeHoldingsSheet(fx, holdingsSheet, summary, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.price, err = fx.NewStyle(&excelize.Style{
		NumFmt:    2,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	return styles, err
}

func (r *ExcelReporter) writeScanSheet(fx *excelize.File, sheet string, summary *strategy.Summary, styles excelStyles) error {
	headers := []string{"Rank", "Symbol", "Close", "20 DMA", "Deviation"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, s := range summary.Scan {
		row := i + 2
		cells := []interface{}{i + 1, s.Symbol, s.Close, s.DMA, s.Deviation / 100}
		if err := fx.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return err
		}
		fx.SetCellStyle(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row), styles.price)
		fx.SetCellStyle(sheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), styles.percent)
	}
	return nil
}

func (r *ExcelReporter) writeOrdersSheet(fx *excelize.File, sheet string, summary *strategy.Summary, styles excelStyles) error {
	headers := []string{"Order ID", "Symbol", "Side", "Quantity", "Price", "Status", "Placed At"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	orders := make([]types.Order, 0, len(summary.Sold)+len(summary.Bought))
	orders = append(orders, summary.Sold...)
	orders = append(orders, summary.Bought...)

	for i, o := range orders {
		row := i + 2
		cells := []interface{}{o.ID, o.Symbol, string(o.Side), o.Quantity, o.Price, o.Status,
			o.PlacedAt.Format("2006-01-02 15:04:05")}
		if err := fx.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return err
		}
		fx.SetCellStyle(sheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), styles.price)
	}
	return nil
}

func (r *ExcelReporter) writeHoldingsSheet(fx *excelize.File, sheet string, summary *strategy.Summary, styles excelStyles) error {
	headers := []string{"Symbol", "Quantity", "Avg Price", "Last Price", "P&L %"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, h := range summary.Holdings {
		row := i + 2
		var pnlPct float64
		if h.AveragePrice != 0 {
			pnlPct = (h.LastPrice - h.AveragePrice) / h.AveragePrice
		}
		cells := []interface{}{h.Symbol, h.Quantity, h.AveragePrice, h.LastPrice, pnlPct}
		if err := fx.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return err
		}
		fx.SetCellStyle(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row), styles.price)
		fx.SetCellStyle(sheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), styles.percent)
	}
	return nil
}

func (r *ExcelReporter) writeHeader(fx *excelize.File, sheet string, headers []string, styles excelStyles) error {
	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	if err := fx.SetSheetRow(sheet, "A1", &cells); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, "A1", last, styles.header)
}
