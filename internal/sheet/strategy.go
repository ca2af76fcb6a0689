// Package sheet turns uploaded workbooks into typed import records. The
// pipeline itself never re-validates fields; this package is the stage that
// guarantees required-ness and well-typedness before anything is imported.
package sheet

import (
	"bytes"
	"context"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
)

type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte) (*model.ImportInput, error)
	Validate(ctx context.Context, input *model.ImportInput) error
}

type WorkbookStrategy struct {
	xlsx      *WorkbookParser
	csv       *CSVParser
	validator *Validator
}

func NewWorkbookStrategy() ParsingStrategy {
	return &WorkbookStrategy{
		xlsx:      NewWorkbookParser(),
		csv:       NewCSVParser(),
		validator: NewValidator(),
	}
}

// Parse dispatches on the file magic: XLSX workbooks are ZIP containers,
// anything else is treated as a single-entity CSV whose entity is sniffed
// from the header row.
func (s *WorkbookStrategy) Parse(ctx context.Context, data []byte) (*model.ImportInput, error) {
	if bytes.HasPrefix(data, []byte("PK")) {
		return s.xlsx.Parse(ctx, data)
	}
	return s.csv.Parse(ctx, data)
}

func (s *WorkbookStrategy) Validate(ctx context.Context, input *model.ImportInput) error {
	return s.validator.Validate(ctx, input)
}
