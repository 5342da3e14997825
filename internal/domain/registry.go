package domain

import "sort"

// Affordance describes what a learner can do with a rendered element.
type Affordance string

const (
	AffordanceNone    Affordance = "none"
	AffordanceClick   Affordance = "click"
	AffordanceCapture Affordance = "value-capture"
	AffordanceReveal  Affordance = "reveal-tooltip"
	AffordancePassive Affordance = "passive"
	AffordanceOverlay Affordance = "open-overlay"
	AffordanceSubmit  Affordance = "submit"
)

// TypeSpec is the registry entry of one element type.
type TypeSpec struct {
	Type        ElementType
	DefaultSize Size
	Affordance  Affordance

	// BaseFontSize and BaseIconSize are natural-pixel sizes scaled with the scene.
	BaseFontSize float64
	BaseIconSize float64
	NewPayload   func() Payload
}

// Interactive reports whether the element reacts to learner input.
func (s TypeSpec) Interactive() bool {
	return s.Affordance != AffordanceNone && s.Affordance != AffordancePassive
}

var defaultSize = Size{Width: 200, Height: 150}

var registry = map[ElementType]TypeSpec{
	TypeText: {
		Type: TypeText, DefaultSize: defaultSize, Affordance: AffordanceNone, BaseFontSize: 16,
		NewPayload: func() Payload {
			return TextData{Text: "New text", FontSize: 16, Color: "#000000", BackgroundColor: "transparent"}
		},
	},
	TypeImage: {
		Type: TypeImage, DefaultSize: defaultSize, Affordance: AffordanceNone,
		NewPayload: func() Payload { return ImageData{URL: "", Alt: "Image"} },
	},
	TypeVideo: {
		Type: TypeVideo, DefaultSize: defaultSize, Affordance: AffordanceNone, BaseIconSize: 48,
		NewPayload: func() Payload { return VideoData{URL: "", Autoplay: false} },
	},
	TypeButton: {
		Type: TypeButton, DefaultSize: defaultSize, Affordance: AffordanceClick, BaseFontSize: 16,
		NewPayload: func() Payload {
			return ButtonData{Label: "Next", Action: ActionNextScene, BackgroundColor: "#3b82f6", TextColor: "#ffffff", FontSize: 16}
		},
	},
	TypeInput: {
		Type: TypeInput, DefaultSize: Size{Width: 300, Height: 40}, Affordance: AffordanceCapture, BaseFontSize: 14,
		NewPayload: func() Payload {
			return InputData{Placeholder: "Type your answer...", Label: "", Required: false, Multiline: false}
		},
	},
	TypeHotspot: {
		Type: TypeHotspot, DefaultSize: Size{Width: 80, Height: 80}, Affordance: AffordanceReveal, BaseIconSize: 24,
		NewPayload: func() Payload {
			return HotspotData{Label: "Point", PulseColor: "#ef4444", Action: ActionShowTooltip, TooltipText: "Click here", TooltipTrigger: TriggerClick}
		},
	},
	TypeTooltip: {
		Type: TypeTooltip, DefaultSize: defaultSize, Affordance: AffordancePassive, BaseFontSize: 14,
		NewPayload: func() Payload {
			return TooltipData{Text: "Hint", BackgroundColor: "#1f2937", TextColor: "#ffffff", TooltipTrigger: TriggerHover}
		},
	},
	TypeArrow: {
		Type: TypeArrow, DefaultSize: defaultSize, Affordance: AffordanceNone,
		NewPayload: func() Payload { return ArrowData{Color: "#ef4444", Thickness: 4} },
	},
	TypePresentation: {
		Type: TypePresentation, DefaultSize: defaultSize, Affordance: AffordanceOverlay, BaseIconSize: 48,
		NewPayload: func() Payload { return PresentationData{URL: "", FileName: "", Type: "pdf"} },
	},
	TypeSurvey: {
		Type: TypeSurvey, DefaultSize: defaultSize, Affordance: AffordanceSubmit, BaseFontSize: 16,
		NewPayload: func() Payload {
			return SurveyData{
				Question: "Question?",
				Choices: []SurveyChoice{
					{ID: "a", Text: "Option A", Correct: true},
					{ID: "b", Text: "Option B", Correct: false},
				},
				Multiple:    false,
				FailOnWrong: true,
			}
		},
	},
	TypeClickzone: {
		Type: TypeClickzone, DefaultSize: defaultSize, Affordance: AffordanceClick, BaseFontSize: 14,
		NewPayload: func() Payload { return ClickzoneData{Label: "Click zone", Action: ActionNextScene} },
	},
}

// Lookup returns the registry entry for t.
func Lookup(t ElementType) (TypeSpec, bool) {
	spec, ok := registry[t]
	return spec, ok
}

// ElementTypes lists every registered type in stable order.
func ElementTypes() []ElementType {
	types := make([]ElementType, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// GatesTransition reports whether the element blocks forward navigation
// until it has been acted on in the current scene visit.
func GatesTransition(el Element) bool {
	switch data := el.Data.(type) {
	case ButtonData:
		return data.Action.Transitions()
	case SurveyData:
		return true
	default:
		return false
	}
}
