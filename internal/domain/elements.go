package domain

import (
	"encoding/json"
	"fmt"
)

// ElementType is the closed set of widgets a scene can hold.
type ElementType string

const (
	TypeText         ElementType = "text"
	TypeImage        ElementType = "image"
	TypeVideo        ElementType = "video"
	TypeButton       ElementType = "button"
	TypeInput        ElementType = "input"
	TypeHotspot      ElementType = "hotspot"
	TypeTooltip      ElementType = "tooltip"
	TypeArrow        ElementType = "arrow"
	TypePresentation ElementType = "presentation"
	TypeSurvey       ElementType = "survey"
	TypeClickzone    ElementType = "clickzone"
)

// Action is what a button or clickzone does when clicked.
type Action string

const (
	ActionNextScene   Action = "next-scene"
	ActionGotoScene   Action = "goto-scene"
	ActionComplete    Action = "complete"
	ActionShowTooltip Action = "show-tooltip"
)

// Transitions reports whether the action moves the learner between scenes.
func (a Action) Transitions() bool {
	return a == ActionNextScene || a == ActionGotoScene || a == ActionComplete
}

// Trigger selects how a tooltip is revealed.
type Trigger string

const (
	TriggerHover Trigger = "hover"
	TriggerClick Trigger = "click"
)

// Payload is the type-specific data of an element. The set of
// implementations is closed to this package.
type Payload interface {
	ElementType() ElementType
	payload()
}

type TextData struct {
	Text            string  `json:"text"`
	FontSize        float64 `json:"fontSize"`
	Color           string  `json:"color"`
	BackgroundColor string  `json:"backgroundColor"`
}

type ImageData struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type VideoData struct {
	URL      string `json:"url"`
	Autoplay bool   `json:"autoplay"`
}

type ButtonData struct {
	Label           string  `json:"label"`
	Action          Action  `json:"action"`
	TargetScene     string  `json:"targetScene,omitempty"`
	BackgroundColor string  `json:"backgroundColor"`
	TextColor       string  `json:"textColor"`
	FontSize        float64 `json:"fontSize"`
}

type InputData struct {
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Multiline   bool   `json:"multiline"`
}

type HotspotData struct {
	Label          string  `json:"label"`
	PulseColor     string  `json:"pulseColor"`
	Action         Action  `json:"action"`
	TooltipText    string  `json:"tooltipText"`
	TooltipTrigger Trigger `json:"tooltipTrigger"`
}

type TooltipData struct {
	Text            string  `json:"text"`
	BackgroundColor string  `json:"backgroundColor"`
	TextColor       string  `json:"textColor"`
	TooltipTrigger  Trigger `json:"tooltipTrigger"`
}

// ArrowData carries arrow styling; rotation lives on the element.
type ArrowData struct {
	Color     string  `json:"color"`
	Thickness float64 `json:"thickness"`
}

type PresentationData struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Type     string `json:"type"`
}

type SurveyChoice struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type SurveyData struct {
	Question    string         `json:"question"`
	Choices     []SurveyChoice `json:"choices"`
	Multiple    bool           `json:"multiple"`
	FailOnWrong bool           `json:"failOnWrong"`
}

// CorrectSet returns the ids of choices marked correct.
func (s SurveyData) CorrectSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Choices))
	for _, c := range s.Choices {
		if c.Correct {
			set[c.ID] = struct{}{}
		}
	}
	return set
}

// Evaluate compares the selection with the correct choices by exact set equality.
func (s SurveyData) Evaluate(selected []string) bool {
	correct := s.CorrectSet()
	picked := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		picked[id] = struct{}{}
	}
	if len(picked) != len(correct) {
		return false
	}
	for id := range picked {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return true
}

// ClickzoneData is the legacy clickable region; it acts like a button without gating.
type ClickzoneData struct {
	Label       string `json:"label"`
	Action      Action `json:"action"`
	TargetScene string `json:"targetScene,omitempty"`
}

func (TextData) ElementType() ElementType         { return TypeText }
func (ImageData) ElementType() ElementType        { return TypeImage }
func (VideoData) ElementType() ElementType        { return TypeVideo }
func (ButtonData) ElementType() ElementType       { return TypeButton }
func (InputData) ElementType() ElementType        { return TypeInput }
func (HotspotData) ElementType() ElementType      { return TypeHotspot }
func (TooltipData) ElementType() ElementType      { return TypeTooltip }
func (ArrowData) ElementType() ElementType        { return TypeArrow }
func (PresentationData) ElementType() ElementType { return TypePresentation }
func (SurveyData) ElementType() ElementType       { return TypeSurvey }
func (ClickzoneData) ElementType() ElementType    { return TypeClickzone }

func (TextData) payload()         {}
func (ImageData) payload()        {}
func (VideoData) payload()        {}
func (ButtonData) payload()       {}
func (InputData) payload()        {}
func (HotspotData) payload()      {}
func (TooltipData) payload()      {}
func (ArrowData) payload()        {}
func (PresentationData) payload() {}
func (SurveyData) payload()       {}
func (ClickzoneData) payload()    {}

// DecodePayload decodes raw element data into the payload of the given type,
// starting from the type's defaults so missing fields keep sensible values.
func DecodePayload(t ElementType, raw json.RawMessage) (Payload, error) {
	spec, ok := Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElementType, t)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return spec.NewPayload(), nil
	}
	switch p := spec.NewPayload().(type) {
	case TextData:
		return decodeInto(raw, p)
	case ImageData:
		return decodeInto(raw, p)
	case VideoData:
		return decodeInto(raw, p)
	case ButtonData:
		return decodeInto(raw, p)
	case InputData:
		return decodeInto(raw, p)
	case HotspotData:
		return decodeInto(raw, p)
	case TooltipData:
		return decodeInto(raw, p)
	case ArrowData:
		return decodeInto(raw, p)
	case PresentationData:
		return decodeInto(raw, p)
	case SurveyData:
		// choices are replaced wholesale, never merged with the defaults
		p.Choices = nil
		return decodeInto(raw, p)
	case ClickzoneData:
		return decodeInto(raw, p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownElementType, t)
	}
}

func decodeInto[T Payload](raw json.RawMessage, p T) (Payload, error) {
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", p.ElementType(), err)
	}
	return p, nil
}
