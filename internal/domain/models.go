package domain

import (
	"encoding/json"
	"time"
)

// Role is the identity role attached to every authenticated request.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// CanEdit reports whether the role may author courses.
func (r Role) CanEdit() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Identity is the authenticated caller as seen by the services.
type Identity struct {
	UserID string
	Role   Role
}

// Course is a sequence of scenes authored by an admin.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Scenes      []Scene   `json:"scenes"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Published   bool      `json:"published"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

// SceneIndex returns the position of the scene with the given id, or -1.
func (c Course) SceneIndex(sceneID string) int {
	for i := range c.Scenes {
		if c.Scenes[i].ID == sceneID {
			return i
		}
	}
	return -1
}

// Scene is one screen of a course anchored to a background image.
type Scene struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Screenshot    string    `json:"screenshot,omitempty"`
	NaturalWidth  float64   `json:"screenshotNaturalWidth,omitempty"`
	NaturalHeight float64   `json:"screenshotNaturalHeight,omitempty"`
	Elements      []Element `json:"elements"`

	// Space tags the coordinate space of an in-memory copy. It is never read
	// from JSON; decoding derives it from the elements.
	Space GeometrySpace `json:"-"`
}

// Sized reports whether natural dimensions have been captured.
func (s Scene) Sized() bool {
	return s.NaturalWidth > 0 && s.NaturalHeight > 0
}

// Element returns the element with the given id.
func (s Scene) Element(elementID string) (Element, bool) {
	for _, el := range s.Elements {
		if el.ID == elementID {
			return el, true
		}
	}
	return Element{}, false
}

func (s *Scene) UnmarshalJSON(data []byte) error {
	type plain Scene
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Scene(raw)
	s.Space = SpacePercent
	for _, el := range s.Elements {
		if el.Geometry.Space != SpacePercent {
			s.Space = SpacePixels
			break
		}
	}
	if s.Elements == nil {
		s.Elements = []Element{}
	}
	return nil
}

// GeometrySpace names the coordinate space element geometry is expressed in.
type GeometrySpace string

const (
	// SpacePixels is natural-image pixel space used while editing.
	SpacePixels GeometrySpace = "pixels"
	// SpacePercent is percent of natural image size used for storage and export.
	SpacePercent GeometrySpace = "percent"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry is an element box in exactly one coordinate space.
type Geometry struct {
	Space    GeometrySpace
	Position Point
	Size     *Size
}

// Pixels builds pixel-space geometry.
func Pixels(x, y, width, height float64) Geometry {
	return Geometry{Space: SpacePixels, Position: Point{X: x, Y: y}, Size: &Size{Width: width, Height: height}}
}

// Percent builds percent-space geometry.
func Percent(x, y, width, height float64) Geometry {
	return Geometry{Space: SpacePercent, Position: Point{X: x, Y: y}, Size: &Size{Width: width, Height: height}}
}

// Element is a positioned widget placed on a scene.
type Element struct {
	ID       string
	Type     ElementType
	Data     Payload
	Geometry Geometry
	Rotation float64
	// Row is the editor layer; it has no effect on playback.
	Row int
}

// Layer returns the element row, defaulting to 1.
func (e Element) Layer() int {
	if e.Row <= 0 {
		return 1
	}
	return e.Row
}

type elementJSON struct {
	ID              string          `json:"id"`
	Type            ElementType     `json:"type"`
	Data            json.RawMessage `json:"data,omitempty"`
	Position        *Point          `json:"position,omitempty"`
	Size            *Size           `json:"size,omitempty"`
	PositionPercent *Point          `json:"positionPercent,omitempty"`
	SizePercent     *Size           `json:"sizePercent,omitempty"`
	Rotation        float64         `json:"rotation,omitempty"`
	Row             int             `json:"row"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	out := elementJSON{
		ID:       e.ID,
		Type:     e.Type,
		Rotation: e.Rotation,
		Row:      e.Layer(),
	}
	if e.Data != nil {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		out.Data = data
	}
	pos := e.Geometry.Position
	var size *Size
	if e.Geometry.Size != nil {
		s := *e.Geometry.Size
		size = &s
	}
	if e.Geometry.Space == SpacePercent {
		out.PositionPercent = &pos
		out.SizePercent = size
	} else {
		out.Position = &pos
		out.Size = size
	}
	return json.Marshal(out)
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var in elementJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	payload, err := DecodePayload(in.Type, in.Data)
	if err != nil {
		return err
	}
	*e = Element{
		ID:       in.ID,
		Type:     in.Type,
		Data:     payload,
		Rotation: in.Rotation,
		Row:      in.Row,
	}
	if e.Row <= 0 {
		e.Row = 1
	}
	switch {
	case in.PositionPercent != nil:
		e.Geometry = Geometry{Space: SpacePercent, Position: *in.PositionPercent, Size: in.SizePercent}
	case in.Position != nil:
		e.Geometry = Geometry{Space: SpacePixels, Position: *in.Position, Size: in.Size}
	default:
		e.Geometry = Geometry{Space: SpacePixels, Size: in.Size}
	}
	return nil
}

// ProgressStatus is the lifecycle of a course attempt.
type ProgressStatus string

const (
	StatusInProgress ProgressStatus = "in-progress"
	StatusCompleted  ProgressStatus = "completed"
	StatusFailed     ProgressStatus = "failed"
)

// Terminal reports whether no further playback transitions are allowed.
func (s ProgressStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CourseProgress is one attempt of a user at a course.
type CourseProgress struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	CourseID     string            `json:"courseId"`
	StartedAt    time.Time         `json:"startedAt"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	Duration     int64             `json:"duration"` // seconds
	TabExits     int               `json:"tabExits"`
	Status       ProgressStatus    `json:"status"`
	CurrentScene string            `json:"currentScene,omitempty"`
	Interactions []UserInteraction `json:"interactions"`
}

// ProgressUpdate carries the playback-owned fields of a progress record.
// Interactions are appended separately and never overwritten by it.
type ProgressUpdate struct {
	Status       ProgressStatus
	CurrentScene string
	TabExits     int
	Duration     int64
	CompletedAt  *time.Time
}

// Apply copies the update into p.
func (u ProgressUpdate) Apply(p *CourseProgress) {
	p.Status = u.Status
	p.CurrentScene = u.CurrentScene
	p.TabExits = u.TabExits
	p.Duration = u.Duration
	p.CompletedAt = u.CompletedAt
}

// Interaction actions recorded during playback.
const (
	InteractionClick            = "click"
	InteractionSubmit           = "submit"
	InteractionInputChange      = "input-change"
	InteractionOpenPresentation = "open-presentation"
	InteractionHover            = "hover"
)

// UserInteraction is an append-only log entry of a learner action.
type UserInteraction struct {
	Timestamp   time.Time   `json:"timestamp"`
	SceneID     string      `json:"sceneId"`
	ElementID   string      `json:"elementId"`
	ElementType ElementType `json:"elementType"`
	Action      string      `json:"action"`
	Value       string      `json:"value,omitempty"`
}

// CourseAssignment grants a user access to a published course.
type CourseAssignment struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"courseId"`
	UserID     string    `json:"userId"`
	AssignedBy string    `json:"assignedBy"`
	AssignedAt time.Time `json:"assignedAt"`
}
