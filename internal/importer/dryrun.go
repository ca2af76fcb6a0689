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

// DryRunChecker is the read-only twin of Executor: it runs only the
// reference-lookup half of each stage's transform, producing the same
// warning shapes a real run would, and never writes. Would-create counts are
// the input list lengths, an upper bound rather than a forecast, because the
// real run's stages change what the later stages can resolve.
type DryRunChecker struct {
	resolver *Resolver
	mode     config.CourseCreationMode
	log      zerolog.Logger
}

func NewDryRunChecker(st store.RowStore, cfg config.ImporterConfig) *DryRunChecker {
	return &DryRunChecker{
		resolver: NewResolver(st, cfg.LookupLimit),
		mode:     cfg.CourseCreationMode,
		log:      logger.Get().With().Str("component", "dry_run_checker").Logger(),
	}
}

func (c *DryRunChecker) Check(ctx context.Context, input *model.ImportInput, actorID string) *model.DryRunResult {
	result := model.NewDryRunResult()

	c.resolver.Refresh(ctx)
	for _, table := range c.resolver.Degraded() {
		result.AddWarning(model.StageSystem,
			fmt.Sprintf("reference lookup for %s failed; all %s references are reported as unresolved", table, table),
			table)
	}

	result.WouldCreate[model.StageUsers] = len(input.Users)
	result.WouldCreate[model.StageClasses] = len(input.Classes)
	result.WouldCreate[model.StageCourses] = len(input.Courses)
	result.WouldCreate[model.StageStudents] = len(input.Students)
	result.WouldCreate[model.StageScores] = len(input.Scores)

	c.checkClasses(input.Classes, result)
	c.checkCourses(input.Courses, result)
	c.checkStudents(input.Students, result)
	c.checkScores(input.Scores, actorID, result)

	c.log.Info().Int("warnings", len(result.PotentialWarnings)).Msg("Dry run completed")
	return result
}

func (c *DryRunChecker) checkClasses(records []model.ClassImport, result *model.DryRunResult) {
	if c.mode != config.CourseCreationTriggerAssisted {
		return
	}
	for _, rec := range records {
		if rec.TeacherEmail == "" {
			continue
		}
		if c.resolver.GetUserID(rec.TeacherEmail) == "" {
			result.AddWarning(model.StageClasses,
				fmt.Sprintf("teacher %s not found, course assignment for class %s would be skipped", rec.TeacherEmail, rec.Name),
				rec)
		}
	}
}

func (c *DryRunChecker) checkCourses(records []model.CourseImport, result *model.DryRunResult) {
	for _, rec := range records {
		if c.resolver.GetClassID(rec.ClassName) == "" {
			result.AddWarning(model.StageCourses,
				fmt.Sprintf("class %s not found, skipping %s course", rec.ClassName, rec.CourseType),
				rec)
			continue
		}
		if c.resolver.GetUserID(rec.TeacherEmail) == "" {
			result.AddWarning(model.StageCourses,
				fmt.Sprintf("teacher %s not found, skipping %s course for class %s", rec.TeacherEmail, rec.CourseType, rec.ClassName),
				rec)
		}
	}
}

func (c *DryRunChecker) checkStudents(records []model.StudentImport, result *model.DryRunResult) {
	for _, rec := range records {
		if rec.ClassName == "" {
			continue
		}
		if c.resolver.GetClassID(rec.ClassName) == "" {
			result.AddWarning(model.StageStudents,
				fmt.Sprintf("class %s not found, student %s would import unassigned", rec.ClassName, rec.StudentID),
				rec)
		}
	}
}

func (c *DryRunChecker) checkScores(records []model.ScoreImport, actorID string, result *model.DryRunResult) {
	for _, rec := range records {
		studentID := c.resolver.GetStudentID(rec.StudentID)
		if studentID == "" {
			result.AddWarning(model.StageScores,
				fmt.Sprintf("student %s not found, skipping score for exam %s", rec.StudentID, rec.ExamName),
				rec)
			continue
		}

		enteredBy := ""
		if rec.EnteredByEmail != "" {
			enteredBy = c.resolver.GetUserID(rec.EnteredByEmail)
		}
		if enteredBy == "" && actorID == "" {
			result.AddWarning(model.StageScores,
				fmt.Sprintf("no teacher resolved for %s and no import actor, skipping score for student %s", rec.EnteredByEmail, rec.StudentID),
				rec)
			continue
		}

		if c.resolver.GetCourseID(studentID, rec.CourseType) == "" {
			result.AddWarning(model.StageScores,
				fmt.Sprintf("no %s course enrollment for student %s, skipping score", rec.CourseType, rec.StudentID),
				rec)
		}
		// A missing exam is not a warning: the real run auto-creates it.
	}
}
