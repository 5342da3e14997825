package domain

import (
	"errors"
	"fmt"
)

// ValidationRules toggles the checks applied before a course is saved.
type ValidationRules struct {
	// RejectInvalidGotoTargets turns dangling goto-scene targets into save errors.
	// When off they stay a silent no-op at playback time.
	RejectInvalidGotoTargets bool
}

// DefaultValidationRules is the rule set used when nothing is configured.
var DefaultValidationRules = ValidationRules{RejectInvalidGotoTargets: true}

// ValidateCourse checks every scene and returns all problems joined together.
func ValidateCourse(course Course, rules ValidationRules) error {
	var errs []error
	sceneIDs := make(map[string]struct{}, len(course.Scenes))
	for _, scene := range course.Scenes {
		if _, dup := sceneIDs[scene.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate scene id %q", scene.ID))
		}
		sceneIDs[scene.ID] = struct{}{}
	}
	for _, scene := range course.Scenes {
		errs = append(errs, validateScene(scene, sceneIDs, rules)...)
	}
	return errors.Join(errs...)
}

func validateScene(scene Scene, sceneIDs map[string]struct{}, rules ValidationRules) []error {
	var errs []error
	elementIDs := make(map[string]struct{}, len(scene.Elements))
	hasPercent := false
	for _, el := range scene.Elements {
		if _, dup := elementIDs[el.ID]; dup {
			errs = append(errs, fmt.Errorf("scene %s: duplicate element id %q", scene.ID, el.ID))
		}
		elementIDs[el.ID] = struct{}{}

		if el.Data == nil || el.Data.ElementType() != el.Type {
			errs = append(errs, fmt.Errorf("scene %s: element %s: payload does not match type %q", scene.ID, el.ID, el.Type))
			continue
		}
		if el.Geometry.Space == SpacePercent {
			hasPercent = true
		}

		switch data := el.Data.(type) {
		case ButtonData:
			if err := checkTarget(scene.ID, el.ID, data.Action, data.TargetScene, sceneIDs, rules); err != nil {
				errs = append(errs, err)
			}
		case ClickzoneData:
			if err := checkTarget(scene.ID, el.ID, data.Action, data.TargetScene, sceneIDs, rules); err != nil {
				errs = append(errs, err)
			}
		case SurveyData:
			if err := ValidateSurvey(data); err != nil {
				errs = append(errs, &SurveyEvaluationError{SceneID: scene.ID, ElementID: el.ID, Reason: err.Error()})
			}
		}
	}
	if hasPercent && !scene.Sized() {
		errs = append(errs, &GeometryError{SceneID: scene.ID, Width: scene.NaturalWidth, Height: scene.NaturalHeight})
	}
	return errs
}

func checkTarget(sceneID, elementID string, action Action, target string, sceneIDs map[string]struct{}, rules ValidationRules) error {
	if action != ActionGotoScene || !rules.RejectInvalidGotoTargets {
		return nil
	}
	if _, ok := sceneIDs[target]; ok && target != "" {
		return nil
	}
	return &InvalidTransitionTargetError{SceneID: sceneID, ElementID: elementID, Target: target}
}

// ValidateSurvey rejects choice sets that can never evaluate as correct.
func ValidateSurvey(s SurveyData) error {
	if len(s.Choices) == 0 {
		return errors.New("no choices")
	}
	seen := make(map[string]struct{}, len(s.Choices))
	correct := 0
	for _, c := range s.Choices {
		if c.ID == "" {
			return errors.New("choice without id")
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate choice id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Correct {
			correct++
		}
	}
	if correct == 0 {
		return errors.New("no choice marked correct")
	}
	if !s.Multiple && correct > 1 {
		return fmt.Errorf("single-answer survey has %d correct choices", correct)
	}
	return nil
}
