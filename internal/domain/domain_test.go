package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementJSONKeepsOneGeometrySpace(t *testing.T) {
	raw := `{"id":"el1","type":"button","data":{"label":"Go","action":"goto-scene","targetScene":"s2"},
		"positionPercent":{"x":50,"y":50},"sizePercent":{"width":10,"height":10}}`

	var el Element
	require.NoError(t, json.Unmarshal([]byte(raw), &el))
	assert.Equal(t, SpacePercent, el.Geometry.Space)
	assert.Equal(t, 1, el.Row)

	btn, ok := el.Data.(ButtonData)
	require.True(t, ok, "expected ButtonData, got %T", el.Data)
	assert.Equal(t, ActionGotoScene, btn.Action)
	assert.Equal(t, "#3b82f6", btn.BackgroundColor, "missing fields keep registry defaults")

	out, err := json.Marshal(el)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Contains(t, fields, "positionPercent")
	assert.Contains(t, fields, "sizePercent")
	assert.NotContains(t, fields, "position")
	assert.NotContains(t, fields, "size")
}

func TestElementJSONPrefersPercentWhenBothPresent(t *testing.T) {
	raw := `{"id":"el1","type":"text","position":{"x":1,"y":2},"positionPercent":{"x":3,"y":4}}`

	var el Element
	require.NoError(t, json.Unmarshal([]byte(raw), &el))
	assert.Equal(t, SpacePercent, el.Geometry.Space)
	assert.Equal(t, Point{X: 3, Y: 4}, el.Geometry.Position)
}

func TestElementJSONRejectsUnknownType(t *testing.T) {
	var el Element
	err := json.Unmarshal([]byte(`{"id":"el1","type":"sparkle"}`), &el)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownElementType))
}

func TestSceneDerivesGeometrySpace(t *testing.T) {
	var scene Scene
	raw := `{"id":"s1","name":"One","elements":[{"id":"e","type":"text","position":{"x":1,"y":1}}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &scene))
	assert.Equal(t, SpacePixels, scene.Space)

	var empty Scene
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s2","name":"Two"}`), &empty))
	assert.Equal(t, SpacePercent, empty.Space)
	assert.NotNil(t, empty.Elements)
}

func TestSurveyEvaluateUsesExactSetEquality(t *testing.T) {
	survey := SurveyData{
		Multiple: true,
		Choices: []SurveyChoice{
			{ID: "a", Correct: true},
			{ID: "b", Correct: true},
			{ID: "c", Correct: false},
		},
	}

	cases := []struct {
		name     string
		selected []string
		want     bool
	}{
		{"exact", []string{"a", "b"}, true},
		{"reordered", []string{"b", "a"}, true},
		{"repeated", []string{"a", "b", "a"}, true},
		{"subset", []string{"a"}, false},
		{"superset", []string{"a", "b", "c"}, false},
		{"disjoint", []string{"c"}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, survey.Evaluate(tc.selected))
		})
	}
}

func TestValidateCourseReportsEveryProblem(t *testing.T) {
	course := Course{
		ID: "c1",
		Scenes: []Scene{
			{
				ID: "s1",
				Elements: []Element{
					{ID: "b1", Type: TypeButton, Data: ButtonData{Action: ActionGotoScene, TargetScene: "gone"}},
					{ID: "q1", Type: TypeSurvey, Data: SurveyData{Choices: []SurveyChoice{{ID: "a"}, {ID: "b"}}}},
					{ID: "t1", Type: TypeText, Data: TextData{}, Geometry: Percent(1, 1, 1, 1)},
				},
			},
		},
	}

	err := ValidateCourse(course, DefaultValidationRules)
	require.Error(t, err)

	var target *InvalidTransitionTargetError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "gone", target.Target)

	var survey *SurveyEvaluationError
	require.True(t, errors.As(err, &survey))
	assert.Equal(t, "q1", survey.ElementID)

	var geom *GeometryError
	require.True(t, errors.As(err, &geom))
	assert.Equal(t, "s1", geom.SceneID)
}

func TestValidateCourseAllowsDanglingGotoWhenRuleOff(t *testing.T) {
	course := Course{
		Scenes: []Scene{{
			ID: "s1",
			Elements: []Element{
				{ID: "b1", Type: TypeButton, Data: ButtonData{Action: ActionGotoScene, TargetScene: "gone"}},
			},
		}},
	}
	assert.NoError(t, ValidateCourse(course, ValidationRules{RejectInvalidGotoTargets: false}))
	assert.Error(t, ValidateCourse(course, ValidationRules{RejectInvalidGotoTargets: true}))
}

func TestValidateSurveyRejectsSeveralCorrectOnSingleAnswer(t *testing.T) {
	err := ValidateSurvey(SurveyData{Choices: []SurveyChoice{{ID: "a", Correct: true}, {ID: "b", Correct: true}}})
	assert.Error(t, err)

	err = ValidateSurvey(SurveyData{Multiple: true, Choices: []SurveyChoice{{ID: "a", Correct: true}, {ID: "b", Correct: true}}})
	assert.NoError(t, err)
}

func TestRegistryCoversEveryType(t *testing.T) {
	types := ElementTypes()
	assert.Len(t, types, 11)
	for _, typ := range types {
		spec, ok := Lookup(typ)
		require.True(t, ok)
		assert.Equal(t, typ, spec.NewPayload().ElementType())
		assert.Positive(t, spec.DefaultSize.Width)
	}

	hotspot, _ := Lookup(TypeHotspot)
	assert.Equal(t, Size{Width: 80, Height: 80}, hotspot.DefaultSize)
	input, _ := Lookup(TypeInput)
	assert.Equal(t, Size{Width: 300, Height: 40}, input.DefaultSize)
}

func TestGatesTransition(t *testing.T) {
	assert.True(t, GatesTransition(Element{Type: TypeButton, Data: ButtonData{Action: ActionComplete}}))
	assert.False(t, GatesTransition(Element{Type: TypeButton, Data: ButtonData{Action: "open-link"}}))
	assert.True(t, GatesTransition(Element{Type: TypeSurvey, Data: SurveyData{}}))
	assert.False(t, GatesTransition(Element{Type: TypeClickzone, Data: ClickzoneData{Action: ActionNextScene}}))
	assert.False(t, GatesTransition(Element{Type: TypeHotspot, Data: HotspotData{}}))
}
