package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"docintel-platform/models"
)

// ExportComparisonsXLSX writes the comparison history as a spreadsheet with
// a Comparisons sheet and a Summary sheet.
func ExportComparisonsXLSX(w io.Writer, history []models.ComparisonResult, stats models.ComparisonStats) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Comparisons"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Document ID", "Page", "Engine A", "Engine B",
		"Match Rate", "Similarity", "Words A", "Words B",
		"Common Tokens", "Unique A", "Unique B", "Diff Spans", "Compared At",
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		f.SetCellValue(sheet, cell, h)
	}

	for row, r := range history {
		values := []interface{}{
			r.DocumentID, r.PageIndex, r.EngineA, r.EngineB,
			r.MatchRate, r.SimilarityScore, r.WordCountA, r.WordCountB,
			strings.Join(r.CommonTokens, " "),
			strings.Join(r.UniqueA, " "),
			strings.Join(r.UniqueB, " "),
			len(r.Diff),
			r.ComparedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("failed to build cell: %w", err)
			}
			f.SetCellValue(sheet, cell, v)
		}
	}

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summaryRows := [][]interface{}{
		{"Total Pages", stats.TotalPages},
		{"Average Match Rate", stats.AverageMatchRate},
		{"Average Similarity", stats.AverageSimilarity},
		{"Total Diff Spans", stats.TotalDiffSpans},
		{"Average Common Tokens", stats.AverageCommonTokens},
		{"Average Unique A", stats.AverageUniqueA},
		{"Average Unique B", stats.AverageUniqueB},
		{"Total Words A", stats.TotalWordsA},
		{"Total Words B", stats.TotalWordsB},
	}
	for i, row := range summaryRows {
		f.SetCellValue(summary, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(summary, fmt.Sprintf("B%d", i+1), row[1])
	}

	return f.Write(w)
}
