package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"course-scene-service/internal/domain"
)

// DefaultTooltipDuration is how long a hotspot tooltip stays visible.
const DefaultTooltipDuration = 3 * time.Second

// EventKind is a discrete learner input.
type EventKind string

const (
	EventClick        EventKind = "click"
	EventHover        EventKind = "hover"
	EventSubmit       EventKind = "submit"
	EventInput        EventKind = "input"
	EventNext         EventKind = "next"
	EventPrev         EventKind = "prev"
	EventFinish       EventKind = "finish"
	EventTabExit      EventKind = "tab-exit"
	EventCloseOverlay EventKind = "close-overlay"
)

// Event is one learner input delivered to a Player.
type Event struct {
	Kind      EventKind `json:"kind"`
	ElementID string    `json:"elementId,omitempty"`
	Choices   []string  `json:"choices,omitempty"`
	Value     string    `json:"value,omitempty"`
}

// Tooltip is a hotspot tooltip shown until ExpiresAt.
type Tooltip struct {
	ElementID string    `json:"elementId"`
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Overlay is an open presentation viewer.
type Overlay struct {
	ElementID string `json:"elementId"`
	URL       string `json:"url"`
	FileName  string `json:"fileName"`
	Type      string `json:"type"`
}

// PlayerState is a snapshot of playback.
type PlayerState struct {
	CourseID          string                `json:"courseId"`
	SceneIndex        int                   `json:"sceneIndex"`
	SceneID           string                `json:"sceneId"`
	TotalScenes       int                   `json:"totalScenes"`
	Status            domain.ProgressStatus `json:"status"`
	CanAdvance        bool                  `json:"canAdvance"`
	IsLastScene       bool                  `json:"isLastScene"`
	TransitionClicked bool                  `json:"transitionClicked"`
	CompletedHotspots []string              `json:"completedHotspots"`
	InputValues       map[string]string     `json:"inputValues"`
	Tooltip           *Tooltip              `json:"tooltip,omitempty"`
	Presentation      *Overlay              `json:"presentation,omitempty"`
	TabExits          int                   `json:"tabExits"`
	StartedAt         time.Time             `json:"startedAt"`
	CompletedAt       *time.Time            `json:"completedAt,omitempty"`
	Duration          int64                 `json:"duration"`
}

// Outcome is the result of handling one event.
type Outcome struct {
	State         PlayerState
	SceneChanged  bool
	Finished      bool
	SurveyCorrect *bool
	// Interactions are the log entries the event produced, in order.
	Interactions []domain.UserInteraction
}

// Progress returns the playback-owned progress fields for the state.
func (s PlayerState) Progress() domain.ProgressUpdate {
	return domain.ProgressUpdate{
		Status:       s.Status,
		CurrentScene: s.SceneID,
		TabExits:     s.TabExits,
		Duration:     s.Duration,
		CompletedAt:  s.CompletedAt,
	}
}

type sceneVisit struct {
	transitionClicked bool
	surveyPassed      bool
	completedHotspots map[string]struct{}
	inputValues       map[string]string
	tooltip           *Tooltip
	presentation      *Overlay
}

func newSceneVisit() sceneVisit {
	return sceneVisit{
		completedHotspots: make(map[string]struct{}),
		inputValues:       make(map[string]string),
	}
}

// Player runs playback of one course attempt. It is not safe for concurrent
// use; PlaybackSession serializes access.
type Player struct {
	course      domain.Course
	index       int
	status      domain.ProgressStatus
	startedAt   time.Time
	completedAt *time.Time
	duration    int64
	tabExits    int
	now         func() time.Time
	tooltipTTL  time.Duration
	visit       sceneVisit
}

// PlayerOption customizes a Player.
type PlayerOption func(*Player)

// WithClock is used for deterministic timestamps in tests.
func WithClock(now func() time.Time) PlayerOption {
	return func(p *Player) { p.now = now }
}

// WithTooltipDuration overrides DefaultTooltipDuration.
func WithTooltipDuration(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.tooltipTTL = d
		}
	}
}

// WithResume continues an attempt that is already in progress.
func WithResume(progress domain.CourseProgress) PlayerOption {
	return func(p *Player) {
		if !progress.StartedAt.IsZero() {
			p.startedAt = progress.StartedAt
		}
		p.tabExits = progress.TabExits
		if idx := p.course.SceneIndex(progress.CurrentScene); idx >= 0 {
			p.index = idx
		}
	}
}

// NewPlayer starts playback on the first scene.
func NewPlayer(course domain.Course, opts ...PlayerOption) (*Player, error) {
	if len(course.Scenes) == 0 {
		return nil, domain.ErrEmptyCourse
	}
	p := &Player{
		course:     course,
		status:     domain.StatusInProgress,
		now:        time.Now,
		tooltipTTL: DefaultTooltipDuration,
		visit:      newSceneVisit(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.startedAt.IsZero() {
		p.startedAt = p.now()
	}
	return p, nil
}

// Scene is the current scene.
func (p *Player) Scene() domain.Scene {
	return p.course.Scenes[p.index]
}

func (p *Player) isLast() bool {
	return p.index == len(p.course.Scenes)-1
}

// CanAdvance reports whether forward navigation is unlocked. A scene holding
// a transition button stays locked until one was clicked this visit; a scene
// holding a survey stays locked until it was answered correctly.
func (p *Player) CanAdvance() bool {
	for _, el := range p.Scene().Elements {
		if !domain.GatesTransition(el) {
			continue
		}
		switch el.Data.(type) {
		case domain.ButtonData:
			if !p.visit.transitionClicked {
				return false
			}
		case domain.SurveyData:
			if !p.visit.surveyPassed {
				return false
			}
		}
	}
	return true
}

// State returns a snapshot; expired tooltips are left out.
func (p *Player) State() PlayerState {
	now := p.now()
	hotspots := make([]string, 0, len(p.visit.completedHotspots))
	for id := range p.visit.completedHotspots {
		hotspots = append(hotspots, id)
	}
	sort.Strings(hotspots)
	inputs := make(map[string]string, len(p.visit.inputValues))
	for k, v := range p.visit.inputValues {
		inputs[k] = v
	}

	state := PlayerState{
		CourseID:          p.course.ID,
		SceneIndex:        p.index,
		SceneID:           p.Scene().ID,
		TotalScenes:       len(p.course.Scenes),
		Status:            p.status,
		CanAdvance:        p.CanAdvance(),
		IsLastScene:       p.isLast(),
		TransitionClicked: p.visit.transitionClicked,
		CompletedHotspots: hotspots,
		InputValues:       inputs,
		Presentation:      p.visit.presentation,
		TabExits:          p.tabExits,
		StartedAt:         p.startedAt,
		CompletedAt:       p.completedAt,
		Duration:          p.duration,
	}
	if tip := p.visit.tooltip; tip != nil && now.Before(tip.ExpiresAt) {
		copied := *tip
		state.Tooltip = &copied
	}
	if !p.status.Terminal() {
		state.Duration = p.elapsed(now)
	}
	return state
}

// Handle applies one event.
func (p *Player) Handle(ev Event) (Outcome, error) {
	if p.status.Terminal() {
		return Outcome{State: p.State()}, domain.ErrPlaybackFinished
	}
	before := p.index
	out := Outcome{}
	var err error

	switch ev.Kind {
	case EventClick:
		err = p.click(ev.ElementID, &out)
	case EventHover:
		err = p.hover(ev.ElementID, &out)
	case EventSubmit:
		err = p.submit(ev.ElementID, ev.Choices, &out)
	case EventInput:
		err = p.input(ev.ElementID, ev.Value, &out)
	case EventNext:
		err = p.next()
	case EventPrev:
		err = p.prev()
	case EventFinish:
		err = p.finish()
	case EventTabExit:
		p.tabExits++
	case EventCloseOverlay:
		p.visit.presentation = nil
	default:
		err = fmt.Errorf("%w: %q", domain.ErrUnsupportedEvent, ev.Kind)
	}

	out.SceneChanged = p.index != before
	out.Finished = p.status.Terminal()
	out.State = p.State()
	return out, err
}

func (p *Player) element(elementID string) (domain.Element, error) {
	el, ok := p.Scene().Element(elementID)
	if !ok {
		return domain.Element{}, fmt.Errorf("%w: %s", domain.ErrElementNotFound, elementID)
	}
	return el, nil
}

func (p *Player) record(out *Outcome, el domain.Element, action, value string) {
	out.Interactions = append(out.Interactions, domain.UserInteraction{
		Timestamp:   p.now(),
		SceneID:     p.Scene().ID,
		ElementID:   el.ID,
		ElementType: el.Type,
		Action:      action,
		Value:       value,
	})
}

func (p *Player) click(elementID string, out *Outcome) error {
	el, err := p.element(elementID)
	if err != nil {
		return err
	}
	p.record(out, el, domain.InteractionClick, "")

	switch data := el.Data.(type) {
	case domain.ButtonData:
		p.visit.transitionClicked = true
		p.runAction(data.Action, data.TargetScene)
	case domain.ClickzoneData:
		p.runAction(data.Action, data.TargetScene)
	case domain.HotspotData:
		p.revealHotspot(el.ID, data)
	case domain.PresentationData:
		p.visit.presentation = &Overlay{ElementID: el.ID, URL: data.URL, FileName: data.FileName, Type: data.Type}
		p.record(out, el, domain.InteractionOpenPresentation, "")
	}
	return nil
}

// runAction performs a transition action. An unknown goto target is a no-op.
func (p *Player) runAction(action domain.Action, target string) {
	switch action {
	case domain.ActionNextScene:
		if !p.isLast() {
			p.enter(p.index + 1)
		}
	case domain.ActionGotoScene:
		if target == "" {
			return
		}
		if idx := p.course.SceneIndex(target); idx >= 0 {
			p.enter(idx)
		}
	case domain.ActionComplete:
		p.complete()
	}
}

func (p *Player) hover(elementID string, out *Outcome) error {
	el, err := p.element(elementID)
	if err != nil {
		return err
	}
	if data, ok := el.Data.(domain.HotspotData); ok && data.TooltipTrigger == domain.TriggerHover {
		p.record(out, el, domain.InteractionHover, "")
		p.revealHotspot(el.ID, data)
	}
	return nil
}

func (p *Player) revealHotspot(elementID string, data domain.HotspotData) {
	p.visit.completedHotspots[elementID] = struct{}{}
	p.visit.tooltip = &Tooltip{
		ElementID: elementID,
		Text:      data.TooltipText,
		ExpiresAt: p.now().Add(p.tooltipTTL),
	}
}

func (p *Player) submit(elementID string, choices []string, out *Outcome) error {
	el, err := p.element(elementID)
	if err != nil {
		return err
	}
	survey, ok := el.Data.(domain.SurveyData)
	if !ok {
		return fmt.Errorf("%w: submit on %s", domain.ErrUnsupportedEvent, el.Type)
	}
	selected := append([]string(nil), choices...)
	sort.Strings(selected)
	p.record(out, el, domain.InteractionSubmit, strings.Join(selected, ","))

	correct := survey.Evaluate(choices)
	out.SurveyCorrect = &correct
	switch {
	case correct:
		p.visit.surveyPassed = true
		if p.isLast() {
			p.complete()
		} else {
			p.enter(p.index + 1)
		}
	case survey.FailOnWrong:
		p.fail()
	}
	return nil
}

func (p *Player) input(elementID, value string, out *Outcome) error {
	el, err := p.element(elementID)
	if err != nil {
		return err
	}
	if el.Type != domain.TypeInput {
		return fmt.Errorf("%w: input on %s", domain.ErrUnsupportedEvent, el.Type)
	}
	p.visit.inputValues[el.ID] = value
	p.record(out, el, domain.InteractionInputChange, value)
	return nil
}

func (p *Player) next() error {
	if p.isLast() {
		return domain.ErrNoNextScene
	}
	if !p.CanAdvance() {
		return domain.ErrNavigationLocked
	}
	p.enter(p.index + 1)
	return nil
}

func (p *Player) prev() error {
	if p.index == 0 {
		return domain.ErrNoPreviousScene
	}
	p.enter(p.index - 1)
	return nil
}

func (p *Player) finish() error {
	if !p.isLast() {
		return domain.ErrNotLastScene
	}
	if !p.CanAdvance() {
		return domain.ErrNavigationLocked
	}
	p.complete()
	return nil
}

// enter moves to scene i and resets the per-visit state, even when i is
// the current scene.
func (p *Player) enter(i int) {
	p.index = i
	p.visit = newSceneVisit()
}

func (p *Player) complete() {
	now := p.now()
	p.status = domain.StatusCompleted
	p.completedAt = &now
	p.duration = p.elapsed(now)
}

func (p *Player) fail() {
	p.status = domain.StatusFailed
	p.duration = p.elapsed(p.now())
}

func (p *Player) elapsed(now time.Time) int64 {
	d := now.Sub(p.startedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
