package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"course-scene-service/internal/config"
	"course-scene-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCourse(t *testing.T, course domain.Course) string {
	t.Helper()
	data, err := json.Marshal(course)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "course.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestSeedCoursesInMemory(t *testing.T) {
	ctx := context.Background()
	st := newStores(nil)

	require.NoError(t, seedCourses(ctx, st, config.Default(), quietLogger()))
	course, err := st.courses.LoadCourse(ctx, "course_demo")
	require.NoError(t, err)
	assert.True(t, course.Published)
	assert.Len(t, course.Scenes, 3)
	for _, scene := range course.Scenes {
		for _, el := range scene.Elements {
			assert.Equal(t, domain.SpacePercent, el.Geometry.Space, "element %s", el.ID)
		}
	}

	// A second run leaves the stored course alone.
	require.NoError(t, seedCourses(ctx, st, config.Default(), quietLogger()))
	list, err := st.courses.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSeedFileRejectsDanglingGoto(t *testing.T) {
	course := sampleCourse()
	course.ID = "course_broken"
	course.Scenes[1].Elements[0].Data = domain.ClickzoneData{Label: "Jump", Action: domain.ActionGotoScene, TargetScene: "scene_missing"}

	cfg := config.Default()
	cfg.Course.SeedFile = writeCourse(t, course)

	err := seedCourses(context.Background(), newStores(nil), cfg, quietLogger())
	require.Error(t, err)
	var target *domain.InvalidTransitionTargetError
	assert.ErrorAs(t, err, &target)
}

func TestSeedFileAssignsID(t *testing.T) {
	course := sampleCourse()
	course.ID = ""
	cfg := config.Default()
	cfg.Course.SeedFile = writeCourse(t, course)
	st := newStores(nil)

	require.NoError(t, seedCourses(context.Background(), st, cfg, quietLogger()))
	list, err := st.courses.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].ID)
	assert.Equal(t, "Dashboard tour", list[0].Title)
}

func TestValidateFile(t *testing.T) {
	cfg := config.Default()

	ok := writeCourse(t, sampleCourse())
	broken := sampleCourse()
	broken.Scenes[2].Elements[0].Data = domain.SurveyData{Question: "?", Choices: []domain.SurveyChoice{{ID: "a", Text: "A"}}}
	bad := writeCourse(t, broken)

	problems, err := validateFile(newValidationService(cfg, quietLogger()), ok)
	require.NoError(t, err)
	assert.Empty(t, problems)

	problems, err = validateFile(newValidationService(cfg, quietLogger()), bad)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "no choice marked correct")
}
