package kinematics

import (
	"go.uber.org/multierr"

	"github.com/planarmech/linkage2d/linkage"
)

// SlideTravel returns a prismatic joint's signed travel under the
// mechanism's current poses: the component of the child axis origin's
// offset from the parent axis origin along the parent axis direction, in
// the document's length unit.
func SlideTravel(lk *linkage.Linkage, j *linkage.PrismaticJoint) (float64, error) {
	state := linkage.NewPoseState(lk)
	dir, err := state.WorldDirection(j.Parent(), j.ParentAxis().DirectionID)
	if err != nil {
		return 0, err
	}
	parentOrigin, err := state.WorldPoint(j.Parent(), j.ParentAxis().PointID)
	if err != nil {
		return 0, err
	}
	childOrigin, err := state.WorldPoint(j.Child(), j.ChildAxis().PointID)
	if err != nil {
		return 0, err
	}
	return childOrigin.Sub(parentOrigin).Dot(dir), nil
}

// CheckLimits verifies every prismatic joint with declared limits sits
// within them under the mechanism's current poses, boundary values
// included. Travel limits are not solver constraints, so a solved pose
// can land outside them; violations aggregate into one error with a
// LimitError per joint.
func CheckLimits(lk *linkage.Linkage) error {
	var errs error
	for _, j := range lk.Joints() {
		prismatic, ok := j.(*linkage.PrismaticJoint)
		if !ok {
			continue
		}
		limits := prismatic.Limits()
		if limits == nil {
			continue
		}
		travel, err := SlideTravel(lk, prismatic)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if travel < limits.Min || travel > limits.Max {
			errs = multierr.Append(errs, &LimitError{
				Joint:  j.ID(),
				Travel: travel,
				Min:    limits.Min,
				Max:    limits.Max,
			})
		}
	}
	return errs
}
