package sheet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/pkg/errors"
)

// Sheet names recognized in an import workbook. All are optional; a workbook
// with only a Scores sheet is a valid (scores-only) import.
const (
	SheetUsers    = "Users"
	SheetClasses  = "Classes"
	SheetCourses  = "Courses"
	SheetStudents = "Students"
	SheetScores   = "Scores"
)

type WorkbookParser struct{}

func NewWorkbookParser() *WorkbookParser {
	return &WorkbookParser{}
}

func (p *WorkbookParser) Parse(ctx context.Context, data []byte) (*model.ImportInput, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	input := &model.ImportInput{}
	known := false

	for _, sheetName := range file.GetSheetList() {
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to get rows for sheet %s: %w", sheetName, err)
		}

		switch sheetName {
		case SheetUsers:
			input.Users, err = parseRows(rows, decodeUser)
		case SheetClasses:
			input.Classes, err = parseRows(rows, decodeClass)
		case SheetCourses:
			input.Courses, err = parseRows(rows, decodeCourse)
		case SheetStudents:
			input.Students, err = parseRows(rows, decodeStudent)
		case SheetScores:
			input.Scores, err = parseRows(rows, decodeScore)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		known = true
	}

	if !known || input.Empty() {
		return nil, errors.ErrInvalidFileFormat
	}
	return input, nil
}

// parseRows decodes a header row plus data rows into typed records. Rows
// shorter than the header are padded; fully blank rows are skipped.
func parseRows[T any](rows [][]string, decode func(rowGetter) (T, error)) ([]T, error) {
	if len(rows) < 2 {
		return nil, nil
	}

	columnMap := make(map[string]int)
	for i, col := range rows[0] {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var records []T
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}

		get := func(col string) string {
			if idx, exists := columnMap[col]; exists && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		rec, err := decode(get)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
