// Package decoder turns uploaded workbook bytes into a raw cell grid.
//
// Only the first sheet is read: bank statement exports put the movements
// there. Modern .xlsx files are read with excelize; legacy .xls files fall
// back to xlsReader. Cells are kept raw (no number formatting applied) so
// date serials and unformatted amounts reach the extractor intact.
package decoder

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/models"
	apperrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Decoder is the spreadsheet decoding collaborator consumed by the session
type Decoder interface {
	// Decode reads the first sheet of a workbook into a RawGrid
	Decode(data []byte, source string) (models.RawGrid, error)
}

// ExcelDecoder decodes .xlsx and legacy .xls workbooks
type ExcelDecoder struct {
	logger logger.Logger
}

// NewExcelDecoder creates an ExcelDecoder
func NewExcelDecoder() *ExcelDecoder {
	return &ExcelDecoder{
		logger: logger.GetGlobalLogger().WithComponent("decoder"),
	}
}

// Decode reads the first sheet of the given workbook bytes. It tries .xlsx
// first and falls back to .xls; if neither reader accepts the bytes the
// upload is aborted with a DecodeError and nothing is appended.
func (d *ExcelDecoder) Decode(data []byte, source string) (models.RawGrid, error) {
	if len(data) == 0 {
		return nil, apperrors.DecodeError(apperrors.CodeEmptyWorkbook, source, nil)
	}

	grid, xlsxErr := d.decodeXLSX(data)
	if xlsxErr == nil {
		d.logger.WithFields(logger.Fields{
			"source": source,
			"rows":   len(grid),
			"format": "xlsx",
		}).Debug("Decoded workbook")
		return grid, nil
	}

	grid, xlsErr := d.decodeXLS(data)
	if xlsErr == nil {
		d.logger.WithFields(logger.Fields{
			"source": source,
			"rows":   len(grid),
			"format": "xls",
		}).Debug("Decoded legacy workbook")
		return grid, nil
	}

	d.logger.WithFields(logger.Fields{
		"source":    source,
		"xlsx_errs": xlsxErr.Error(),
		"xls_errs":  xlsErr.Error(),
	}).Warn("Workbook not readable by any decoder")

	return nil, apperrors.DecodeError(apperrors.CodeUnreadableFile, source, xlsxErr)
}

func (d *ExcelDecoder) decodeXLSX(data []byte) (models.RawGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	// Raw values keep date serials numeric instead of format-dependent text
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make(models.RawGrid, 0, len(rows))
	for _, row := range rows {
		grid = append(grid, toCells(row))
	}
	return grid, nil
}

func (d *ExcelDecoder) decodeXLS(data []byte) (models.RawGrid, error) {
	// xlsReader works from file paths, so spool the upload to a temp file
	tmp, err := os.CreateTemp("", "statement-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	workbook, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, err
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, err
	}

	var grid models.RawGrid
	for _, row := range sheet.GetRows() {
		var texts []string
		for _, col := range row.GetCols() {
			texts = append(texts, col.GetString())
		}
		grid = append(grid, toCells(texts))
	}
	return grid, nil
}

// toCells converts raw cell texts into typed cells. A cell that parses as a
// plain float is numeric; everything else stays text.
func toCells(row []string) models.Row {
	cells := make(models.Row, len(row))
	for i, text := range row {
		trimmed := strings.TrimSpace(text)
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil && trimmed != "" {
			cells[i] = models.NumberCell(v, text)
		} else {
			cells[i] = models.TextCell(text)
		}
	}
	return cells
}

// excelEpoch is day zero of the 1900 date system. Using Dec 30 1899 absorbs
// the Lotus leap-year bug (the fictitious Feb 29 1900) for all modern serials.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// DateFromSerial converts an Excel 1900-system date serial to a calendar
// date. Fractional day parts (time of day) are discarded.
func DateFromSerial(serial float64) (day int, month int, year int) {
	t := excelEpoch.AddDate(0, 0, int(serial))
	return t.Day(), int(t.Month()), t.Year()
}
