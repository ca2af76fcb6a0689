package model

// ImportStage names one of the five ordered pipeline stages. StageSystem is
// reserved for failures of the orchestrator itself rather than any one stage.
type ImportStage string

const (
	StageUsers    ImportStage = "users"
	StageClasses  ImportStage = "classes"
	StageCourses  ImportStage = "courses"
	StageStudents ImportStage = "students"
	StageScores   ImportStage = "scores"
	StageSystem   ImportStage = "system"
)

// Stages lists the five entity stages in execution order.
var Stages = []ImportStage{StageUsers, StageClasses, StageCourses, StageStudents, StageScores}

type StageSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// ImportError records one write that failed after the retry budget was
// exhausted. Errors are the only contributor to Success == false.
type ImportError struct {
	Stage     ImportStage `json:"stage"`
	Operation string      `json:"operation"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message"`
}

// ImportWarning records one record skipped because a referenced natural key
// did not resolve. Warnings never affect Success.
type ImportWarning struct {
	Stage   ImportStage `json:"stage"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ImportResult is the aggregate report for one run. It is mutated by the
// sequential stages and finalized once at the end; it is never persisted as-is
// (the run repository stores a JSON snapshot).
type ImportResult struct {
	Success  bool                          `json:"success"`
	Summary  map[ImportStage]*StageSummary `json:"summary"`
	Errors   []ImportError                 `json:"errors"`
	Warnings []ImportWarning               `json:"warnings"`
}

func NewImportResult() *ImportResult {
	summary := make(map[ImportStage]*StageSummary, len(Stages))
	for _, stage := range Stages {
		summary[stage] = &StageSummary{}
	}
	return &ImportResult{
		Summary:  summary,
		Errors:   []ImportError{},
		Warnings: []ImportWarning{},
	}
}

func (r *ImportResult) AddWarning(stage ImportStage, message string, data interface{}) {
	r.Warnings = append(r.Warnings, ImportWarning{Stage: stage, Message: message, Data: data})
}

func (r *ImportResult) AddError(stage ImportStage, operation, message string, data interface{}) {
	r.Errors = append(r.Errors, ImportError{Stage: stage, Operation: operation, Data: data, Message: message})
	if s, ok := r.Summary[stage]; ok {
		s.Errors++
	}
}

// MergeStage folds one stage's write outcome into the aggregate.
func (r *ImportResult) MergeStage(stage ImportStage, created, updated int, errs []ImportError) {
	s := r.Summary[stage]
	s.Created += created
	s.Updated += updated
	s.Errors += len(errs)
	r.Errors = append(r.Errors, errs...)
}

// TotalErrors counts every recorded error, including system-level ones that
// belong to no stage summary.
func (r *ImportResult) TotalErrors() int {
	return len(r.Errors)
}

// Finalize computes the success flag: true iff no stage recorded an error.
// Warnings are deliberately ignored.
func (r *ImportResult) Finalize() *ImportResult {
	r.Success = r.TotalErrors() == 0
	return r
}

// DryRunResult mirrors ImportResult for the read-only checker. WouldCreate
// is an upper bound (the length of each stage's valid input list), not a
// forecast of which records will survive resolution during a real run.
type DryRunResult struct {
	WouldCreate       map[ImportStage]int `json:"would_create"`
	WouldUpdate       map[ImportStage]int `json:"would_update"`
	PotentialWarnings []ImportWarning     `json:"potential_warnings"`
}

func NewDryRunResult() *DryRunResult {
	create := make(map[ImportStage]int, len(Stages))
	update := make(map[ImportStage]int, len(Stages))
	for _, stage := range Stages {
		create[stage] = 0
		update[stage] = 0
	}
	return &DryRunResult{
		WouldCreate:       create,
		WouldUpdate:       update,
		PotentialWarnings: []ImportWarning{},
	}
}

func (r *DryRunResult) AddWarning(stage ImportStage, message string, data interface{}) {
	r.PotentialWarnings = append(r.PotentialWarnings, ImportWarning{Stage: stage, Message: message, Data: data})
}
