package linkage

import (
	"fmt"

	"github.com/pkg/errors"
)

// ReferenceError reports a joint or geometry reference that does not
// resolve within the mechanism. Assembly never mutates the model, so a
// ReferenceError surfaced mid-solve leaves every pose untouched.
type ReferenceError struct {
	// Joint is the id of the joint holding the reference, when the failure
	// occurred while resolving a joint.
	Joint string
	// Kind is what the reference names: "link", "joint", "point",
	// "direction", or "line".
	Kind string
	// Link is the link searched, for feature references.
	Link string
	// ID is the identifier that failed to resolve.
	ID string
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("unknown %s %q", e.Kind, e.ID)
	if e.Link != "" {
		msg += fmt.Sprintf(" on link %q", e.Link)
	}
	if e.Joint != "" {
		msg = fmt.Sprintf("joint %q references %s", e.Joint, msg)
	}
	return msg
}

// NewLinkReferenceError returns a ReferenceError for an unresolvable link
// id; jointID may be empty when the reference did not come from a joint.
func NewLinkReferenceError(jointID, linkID string) error {
	return &ReferenceError{Joint: jointID, Kind: "link", ID: linkID}
}

// NewJointReferenceError returns a ReferenceError for an unresolvable
// joint id.
func NewJointReferenceError(jointID string) error {
	return &ReferenceError{Kind: "joint", ID: jointID}
}

// NewPointReferenceError returns a ReferenceError for a point id that does
// not resolve on the given link.
func NewPointReferenceError(jointID, linkID, pointID string) error {
	return &ReferenceError{Joint: jointID, Kind: "point", Link: linkID, ID: pointID}
}

// NewDirectionReferenceError returns a ReferenceError for a direction id
// that does not resolve on the given link.
func NewDirectionReferenceError(jointID, linkID, directionID string) error {
	return &ReferenceError{Joint: jointID, Kind: "direction", Link: linkID, ID: directionID}
}

// NewLineReferenceError returns a ReferenceError for a line id that does
// not resolve on the given link.
func NewLineReferenceError(jointID, linkID, lineID string) error {
	return &ReferenceError{Joint: jointID, Kind: "line", Link: linkID, ID: lineID}
}

// UnsupportedJointTypeError reports a joint type tag the parser does not
// implement. Parsing aborts on it: silently skipping the joint would
// change the mechanism's degrees of freedom.
type UnsupportedJointTypeError struct {
	Type string
}

func (e *UnsupportedJointTypeError) Error() string {
	return fmt.Sprintf("unsupported joint type %q", e.Type)
}

// NewUnsupportedJointTypeError returns an UnsupportedJointTypeError for
// the given type tag.
func NewUnsupportedJointTypeError(jointType string) error {
	return &UnsupportedJointTypeError{Type: jointType}
}

// NewDuplicateIDError returns an error for a repeated link or joint id.
func NewDuplicateIDError(kind, id string) error {
	return errors.Errorf("duplicate %s id %q", kind, id)
}

// NewDuplicateFeatureError returns an error for a feature id repeated
// within one link.
func NewDuplicateFeatureError(linkID, kind, featureID string) error {
	return errors.Errorf("link %q declares %s %q more than once", linkID, kind, featureID)
}

// NewMissingJointFieldError returns an error for a joint document entry
// missing a field its type requires.
func NewMissingJointFieldError(jointID, field string) error {
	return errors.Errorf("joint %q is missing required field %q", jointID, field)
}

// NewGearRatioError returns an error for a gear joint without a usable
// ratio.
func NewGearRatioError(jointID string) error {
	return errors.Errorf("gear joint %q requires a nonzero ratio", jointID)
}

// NewConventionError returns an error for a document convention the pose
// math does not support.
func NewConventionError(c Convention) error {
	return errors.Errorf("unsupported convention %q/%q (only %q with %q rotation is supported)",
		c.AxisOrientation, c.PositiveRotation, AxisOrientationYUp, PositiveRotationCCW)
}

// NewPoseVectorLengthError returns an error for a flat pose vector whose
// length does not match the mechanism's free pose parameters.
func NewPoseVectorLengthError(got, want int) error {
	return errors.Errorf("pose vector has %d values; mechanism has %d free pose parameters", got, want)
}
