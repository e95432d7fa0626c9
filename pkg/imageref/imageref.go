// Package imageref holds the image naming rules shared by the config decoder and the registry clients.
package imageref

import (
	"errors"
	"fmt"
)

const (
	// Scratch is the reserved name of the implicit empty base image.
	Scratch = "scratch"
	// LatestTag is used whenever a tag is omitted.
	LatestTag = "latest"
)

// ErrReservedName matches every ReservedNameError via errors.Is.
var ErrReservedName = errors.New("reserved image name")

// ReservedNameError is returned when the reserved scratch name is used where a real image is required.
type ReservedNameError struct {
	Event     string // what was attempted, e.g. "download image"
	ImageName string
}

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("cannot %s because %s image is reserved instance", e.Event, e.ImageName)
}

func (e *ReservedNameError) Is(target error) bool {
	return target == ErrReservedName
}

// IsScratch reports whether name is the reserved sentinel. The match is exact and case-sensitive.
func IsScratch(name string) bool {
	return name == Scratch
}

// TagOrLatest returns tag, or LatestTag when tag is empty.
func TagOrLatest(tag string) string {
	if tag == "" {
		return LatestTag
	}
	return tag
}
