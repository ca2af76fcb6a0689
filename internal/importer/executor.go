package importer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// Executor sequences the five stages in dependency order and aggregates
// their outcomes into a single ImportResult. There is no rollback: an
// earlier stage's failures never stop later stages from attempting, so a
// run always makes maximum forward progress and always returns a complete
// report.
type Executor struct {
	store    store.RowStore
	cfg      config.ImporterConfig
	resolver *Resolver
	batch    *BatchInserter
	courses  courseStage
	log      zerolog.Logger
}

func NewExecutor(st store.RowStore, cfg config.ImporterConfig) *Executor {
	e := &Executor{
		store:    st,
		cfg:      cfg,
		resolver: NewResolver(st, cfg.LookupLimit),
		batch:    NewBatchInserter(st, cfg),
		log:      logger.Get().With().Str("component", "import_executor").Logger(),
	}
	if cfg.CourseCreationMode == config.CourseCreationTriggerAssisted {
		e.courses = triggerAssistedCourseStage{}
	} else {
		e.courses = explicitCourseStage{}
	}
	return e
}

// Execute runs one import. actorID is the surrogate id of the user who
// triggered the run, used as the fallback entered_by on score rows.
func (e *Executor) Execute(ctx context.Context, input *model.ImportInput, actorID string) *model.ImportResult {
	result := model.NewImportResult()
	reported := make(map[string]bool)

	// Nothing may escape a stage executor; anything that still does is a
	// single system-level error on an otherwise complete report.
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error().Interface("panic", rec).Msg("Import run aborted by unexpected failure")
			result.AddError(model.StageSystem, "import", fmt.Sprintf("unexpected failure: %v", rec), nil)
			result.Finalize()
		}
	}()

	e.resolver.Refresh(ctx)
	e.reportDegraded(result, reported)

	if len(input.Users) > 0 {
		e.runUsers(ctx, input.Users, result)
	}
	if len(input.Classes) > 0 {
		e.refresh(ctx, result, reported)
		e.runClasses(ctx, input.Classes, result)
	}
	if len(input.Courses) > 0 {
		e.refresh(ctx, result, reported)
		e.courses.run(ctx, e, input.Courses, result)
	}
	if len(input.Students) > 0 {
		e.refresh(ctx, result, reported)
		e.runStudents(ctx, input.Students, result)
	}
	if len(input.Scores) > 0 {
		e.refresh(ctx, result, reported)
		e.runScores(ctx, input.Scores, actorID, result)
	}

	result.Finalize()
	e.log.Info().
		Bool("success", result.Success).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("Import run finished")
	return result
}

// refresh rebuilds the lookup maps so the upcoming stage sees every row
// written by the stages before it.
func (e *Executor) refresh(ctx context.Context, result *model.ImportResult, reported map[string]bool) {
	e.resolver.Refresh(ctx)
	e.reportDegraded(result, reported)
}

// reportDegraded surfaces one warning per entity table whose lookup query
// failed outright, so operators can tell "the lookup broke" from "no rows
// matched". Each table is reported at most once per run.
func (e *Executor) reportDegraded(result *model.ImportResult, reported map[string]bool) {
	for _, table := range e.resolver.Degraded() {
		if reported[table] {
			continue
		}
		reported[table] = true
		result.AddWarning(model.StageSystem,
			fmt.Sprintf("reference lookup for %s failed; all %s references in this run are treated as unresolved", table, table),
			table)
	}
}
