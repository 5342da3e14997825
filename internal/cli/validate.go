package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"course-scene-service/internal/app"
	"course-scene-service/internal/config"
	"course-scene-service/internal/domain"
	"course-scene-service/internal/infra/memory"
	"github.com/spf13/cobra"
)

// NewValidateCmd checks exported course files against the save rules.
func NewValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <course.json>...",
		Short: "Validate exported course files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			service := newValidationService(cfg, logger)
			failed := 0
			for _, path := range args {
				problems, err := validateFile(service, path)
				if err != nil {
					return err
				}
				if len(problems) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
					continue
				}
				failed++
				for _, p := range problems {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, p)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d course files are invalid", failed, len(args))
			}
			return nil
		},
	}
}

// newValidationService runs the save checks without touching any database.
func newValidationService(cfg config.Config, logger *slog.Logger) *app.CourseService {
	store := memory.NewCourseStore()
	return app.NewCourseService(store, memory.NewCourseRepository(store, time.Minute),
		memory.NewAssignmentStore(), validationRules(cfg), logger)
}

func validationRules(cfg config.Config) domain.ValidationRules {
	return domain.ValidationRules{RejectInvalidGotoTargets: cfg.RejectInvalidGotoTargets()}
}

func validateFile(service *app.CourseService, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var course domain.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return []string{"decode: " + err.Error()}, nil
	}
	if len(course.Scenes) == 0 {
		return []string{domain.ErrEmptyCourse.Error()}, nil
	}
	return flatten(service.Validate(course)), nil
}

func flatten(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
