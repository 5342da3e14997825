package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser       = "user"
	PrefixCourse     = "course"
	PrefixScene      = "scene"
	PrefixElement    = "el"
	PrefixProgress   = "prog"
	PrefixAssignment = "asg"
	PrefixAsset      = "asset"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string       { return New(PrefixUser) }
func NewCourseID() string     { return New(PrefixCourse) }
func NewSceneID() string      { return New(PrefixScene) }
func NewElementID() string    { return New(PrefixElement) }
func NewProgressID() string   { return New(PrefixProgress) }
func NewAssignmentID() string { return New(PrefixAssignment) }
func NewAssetID() string      { return New(PrefixAsset) }

// Validate checks that id parses and carries the expected prefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
