package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/pkg/errors"
)

// CSVParser parses one single-entity CSV file. The entity is sniffed from
// the header row, so callers importing all five entities upload five files
// (or one workbook).
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(ctx context.Context, data []byte) (*model.ImportInput, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.ErrInvalidFileFormat
	}

	header := make(map[string]bool, len(rows[0]))
	for _, col := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(col))] = true
	}

	input := &model.ImportInput{}
	switch {
	case header["assessment_code"]:
		input.Scores, err = parseRows(rows, decodeScore)
	case header["course_type"] && header["class_name"]:
		input.Courses, err = parseRows(rows, decodeCourse)
	case header["student_id"] && header["full_name"]:
		input.Students, err = parseRows(rows, decodeStudent)
	case header["email"]:
		input.Users, err = parseRows(rows, decodeUser)
	case header["name"] && header["academic_year"]:
		input.Classes, err = parseRows(rows, decodeClass)
	default:
		return nil, errors.ErrUnknownEntitySheet
	}
	if err != nil {
		return nil, err
	}
	return input, nil
}
