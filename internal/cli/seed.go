package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"course-scene-service/internal/config"
	"course-scene-service/internal/domain"
	"course-scene-service/internal/geometry"
	"course-scene-service/internal/typeid"
)

// seedCourses stores the configured seed file, or the demo course when
// running without a database. Existing courses are left untouched.
func seedCourses(ctx context.Context, st stores, cfg config.Config, logger *slog.Logger) error {
	var seed domain.Course
	switch {
	case cfg.Course.SeedFile != "":
		data, err := os.ReadFile(cfg.Course.SeedFile)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		if err := json.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("decode seed file: %w", err)
		}
	case !st.persistent:
		seed = sampleCourse()
	default:
		return nil
	}

	if seed.ID == "" {
		seed.ID = typeid.NewCourseID()
	}
	if _, err := st.courses.LoadCourse(ctx, seed.ID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrCourseNotFound) {
		return err
	}

	stored, err := geometry.CourseToPercent(seed)
	if err != nil {
		return fmt.Errorf("seed course %s: %w", seed.ID, err)
	}
	if err := domain.ValidateCourse(stored, validationRules(cfg)); err != nil {
		return fmt.Errorf("seed course %s: %w", seed.ID, err)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
		stored.UpdatedAt = stored.CreatedAt
	}
	if err := st.courses.SaveCourse(ctx, stored); err != nil {
		return err
	}
	logger.Info("seeded course", "course", stored.ID, "title", stored.Title, "scenes", len(stored.Scenes))
	return nil
}

// sampleCourse is a three-scene product tour used by the in-memory mode.
func sampleCourse() domain.Course {
	return domain.Course{
		ID:          "course_demo",
		Title:       "Dashboard tour",
		Description: "Finds the reports page and checks what was learned.",
		CreatedBy:   "system",
		Published:   true,
		Scenes: []domain.Scene{
			{
				ID:            "scene_welcome",
				Name:          "Welcome",
				Screenshot:    "/media/demo/dashboard.png",
				NaturalWidth:  1600,
				NaturalHeight: 900,
				Space:         domain.SpacePixels,
				Elements: []domain.Element{
					{
						ID:       "el_intro",
						Type:     domain.TypeText,
						Data:     domain.TextData{Text: "Welcome to the dashboard", FontSize: 24, Color: "#111827"},
						Geometry: domain.Pixels(80, 60, 480, 60),
						Row:      1,
					},
					{
						ID:       "el_menu",
						Type:     domain.TypeHotspot,
						Data:     domain.HotspotData{Label: "Menu", PulseColor: "#ef4444", Action: domain.ActionShowTooltip, TooltipText: "All pages live here", TooltipTrigger: domain.TriggerHover},
						Geometry: domain.Pixels(24, 24, 48, 48),
						Row:      2,
					},
					{
						ID:       "el_next",
						Type:     domain.TypeButton,
						Data:     domain.ButtonData{Label: "Open reports", Action: domain.ActionNextScene, BackgroundColor: "#2563eb", TextColor: "#ffffff", FontSize: 16},
						Geometry: domain.Pixels(800, 450, 160, 90),
						Row:      1,
					},
				},
			},
			{
				ID:            "scene_reports",
				Name:          "Reports",
				Screenshot:    "/media/demo/reports.png",
				NaturalWidth:  1600,
				NaturalHeight: 900,
				Space:         domain.SpacePixels,
				Elements: []domain.Element{
					{
						ID:       "el_export",
						Type:     domain.TypeClickzone,
						Data:     domain.ClickzoneData{Label: "Export", Action: domain.ActionNextScene},
						Geometry: domain.Pixels(1380, 40, 180, 60),
						Row:      1,
					},
				},
			},
			{
				ID:            "scene_check",
				Name:          "Check",
				Screenshot:    "/media/demo/reports.png",
				NaturalWidth:  1600,
				NaturalHeight: 900,
				Space:         domain.SpacePixels,
				Elements: []domain.Element{
					{
						ID:   "el_survey",
						Type: domain.TypeSurvey,
						Data: domain.SurveyData{
							Question: "Where do you export a report?",
							Choices: []domain.SurveyChoice{
								{ID: "a", Text: "Top right button", Correct: true},
								{ID: "b", Text: "Settings page"},
							},
						},
						Geometry: domain.Pixels(500, 250, 600, 400),
						Row:      1,
					},
				},
			},
		},
	}
}
