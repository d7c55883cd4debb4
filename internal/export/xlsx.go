package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jmartell/docintel/internal/pipeline"
)

// SummaryXLSX renders the run summary as a single-sheet workbook, one row per
// document, mirroring the JSON summary columns.
func (s *Service) SummaryXLSX(summary pipeline.RunSummary) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet so the workbook only carries ours
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Document",
		"Status",
		"Detected Type",
		"Type Score",
		"Confidence Score",
		"Output File",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for rowIdx, rec := range summary.Records {
		var conf any
		var outFile string
		if rec.Result != nil {
			conf = rec.Result.ConfidenceScore
			if !rec.Failed() {
				outFile = ArtifactName(rec.Filename)
			}
		}
		values := []any{
			rec.Filename,
			string(rec.Status),
			string(rec.DetectedType),
			rec.TypeScore,
			conf,
			outFile,
			rec.ErrorDetail,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.log.Info("export.xlsx.ok",
		"run_id", summary.RunID,
		"rows", len(summary.Records),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
