package linkage

import (
	"go.uber.org/multierr"

	"github.com/planarmech/linkage2d/planarmath"
)

// Joint is a kinematic constraint between a parent link and a child link.
// Each kind contributes a fixed number of scalar residual rows that vanish
// when the constraint is satisfied. The set of kinds is closed: joints are
// only built by the document parser, and every kind implements its own
// residual rows, so an unhandled kind is a compile-time hole rather than a
// silent runtime skip.
type Joint interface {
	// ID returns the joint's identifier.
	ID() string
	// Name returns the joint's display name.
	Name() string
	// Parent returns the id of the parent link.
	Parent() string
	// Child returns the id of the child link.
	Child() string
	// ConstraintCount returns the number of residual rows the joint
	// contributes.
	ConstraintCount() int
	// AppendResiduals evaluates the joint's residual rows against the
	// candidate poses in state and appends them to dst.
	AppendResiduals(dst []float64, state *PoseState) ([]float64, error)

	validate(lk *Linkage) error
	config() JointConfig
}

// Axis names a slide axis on a link: a point the axis passes through and a
// direction it runs along, both resolved on that link.
type Axis struct {
	PointID     string
	DirectionID string
}

// Limits bounds a prismatic joint's travel along its axis, in the
// document's length unit.
type Limits struct {
	Min float64
	Max float64
}

type jointCommon struct {
	id     string
	name   string
	parent string
	child  string
}

func (j *jointCommon) ID() string {
	return j.id
}

func (j *jointCommon) Name() string {
	return j.name
}

func (j *jointCommon) Parent() string {
	return j.parent
}

func (j *jointCommon) Child() string {
	return j.child
}

func (j *jointCommon) validateLinks(lk *Linkage) error {
	var errs error
	if _, ok := lk.Link(j.parent); !ok {
		errs = multierr.Append(errs, NewLinkReferenceError(j.id, j.parent))
	}
	if _, ok := lk.Link(j.child); !ok {
		errs = multierr.Append(errs, NewLinkReferenceError(j.id, j.child))
	}
	return errs
}

func (j *jointCommon) validateFeature(lk *Linkage, kind, linkID, featureID string) error {
	l, ok := lk.Link(linkID)
	if !ok {
		// The missing link is reported by validateLinks.
		return nil
	}
	found := false
	switch kind {
	case "point":
		_, found = l.Point(featureID)
	case "direction":
		_, found = l.Direction(featureID)
	case "line":
		_, found = l.Line(featureID)
	}
	if !found {
		return &ReferenceError{Joint: j.id, Kind: kind, Link: linkID, ID: featureID}
	}
	return nil
}

// RevoluteJoint pins a point on the parent to a point on the child,
// leaving their relative rotation free. Two residual rows: the world
// positions of the two points must coincide.
type RevoluteJoint struct {
	jointCommon
	parentPointID string
	childPointID  string
}

// ParentPointID returns the pinned point's id on the parent link.
func (j *RevoluteJoint) ParentPointID() string {
	return j.parentPointID
}

// ChildPointID returns the pinned point's id on the child link.
func (j *RevoluteJoint) ChildPointID() string {
	return j.childPointID
}

// ConstraintCount returns 2.
func (j *RevoluteJoint) ConstraintCount() int {
	return 2
}

// AppendResiduals appends the world-position mismatch of the two pinned
// points.
func (j *RevoluteJoint) AppendResiduals(dst []float64, state *PoseState) ([]float64, error) {
	parentWorld, err := state.worldPoint(j.id, j.parent, j.parentPointID)
	if err != nil {
		return nil, err
	}
	childWorld, err := state.worldPoint(j.id, j.child, j.childPointID)
	if err != nil {
		return nil, err
	}
	return append(dst, parentWorld.X-childWorld.X, parentWorld.Y-childWorld.Y), nil
}

func (j *RevoluteJoint) validate(lk *Linkage) error {
	return multierr.Combine(
		j.validateLinks(lk),
		j.validateFeature(lk, "point", j.parent, j.parentPointID),
		j.validateFeature(lk, "point", j.child, j.childPointID),
	)
}

func (j *RevoluteJoint) config() JointConfig {
	return JointConfig{
		ID:            j.id,
		Name:          j.name,
		Type:          JointTypeRevolute,
		Parent:        j.parent,
		Child:         j.child,
		ParentPointID: j.parentPointID,
		ChildPointID:  j.childPointID,
	}
}

// PrismaticJoint constrains the child to slide along an axis on the
// parent. Two residual rows: the two links' axis directions must stay
// parallel, and the child's axis origin must stay on the parent's axis
// line. Declared travel limits are not residual rows; they are checked
// against a solved state separately.
type PrismaticJoint struct {
	jointCommon
	parentAxis Axis
	childAxis  Axis
	limits     *Limits
}

// ParentAxis returns the slide axis on the parent link.
func (j *PrismaticJoint) ParentAxis() Axis {
	return j.parentAxis
}

// ChildAxis returns the slide axis on the child link.
func (j *PrismaticJoint) ChildAxis() Axis {
	return j.childAxis
}

// Limits returns the declared travel limits, or nil when the document
// declares none.
func (j *PrismaticJoint) Limits() *Limits {
	if j.limits == nil {
		return nil
	}
	limits := *j.limits
	return &limits
}

// ConstraintCount returns 2.
func (j *PrismaticJoint) ConstraintCount() int {
	return 2
}

// AppendResiduals appends the direction-parallelism and origin-collinearity
// rows, both as 2D cross products that vanish when satisfied.
func (j *PrismaticJoint) AppendResiduals(dst []float64, state *PoseState) ([]float64, error) {
	parentDir, err := state.worldDirection(j.id, j.parent, j.parentAxis.DirectionID)
	if err != nil {
		return nil, err
	}
	childDir, err := state.worldDirection(j.id, j.child, j.childAxis.DirectionID)
	if err != nil {
		return nil, err
	}
	parentOrigin, err := state.worldPoint(j.id, j.parent, j.parentAxis.PointID)
	if err != nil {
		return nil, err
	}
	childOrigin, err := state.worldPoint(j.id, j.child, j.childAxis.PointID)
	if err != nil {
		return nil, err
	}
	offset := childOrigin.Sub(parentOrigin)
	return append(dst, parentDir.Cross(childDir), offset.Cross(parentDir)), nil
}

func (j *PrismaticJoint) validate(lk *Linkage) error {
	return multierr.Combine(
		j.validateLinks(lk),
		j.validateFeature(lk, "point", j.parent, j.parentAxis.PointID),
		j.validateFeature(lk, "direction", j.parent, j.parentAxis.DirectionID),
		j.validateFeature(lk, "point", j.child, j.childAxis.PointID),
		j.validateFeature(lk, "direction", j.child, j.childAxis.DirectionID),
	)
}

func (j *PrismaticJoint) config() JointConfig {
	cfg := JointConfig{
		ID:         j.id,
		Name:       j.name,
		Type:       JointTypePrismatic,
		Parent:     j.parent,
		Child:      j.child,
		ParentAxis: &AxisConfig{PointID: j.parentAxis.PointID, DirectionID: j.parentAxis.DirectionID},
		ChildAxis:  &AxisConfig{PointID: j.childAxis.PointID, DirectionID: j.childAxis.DirectionID},
	}
	if j.limits != nil {
		cfg.Limits = &LimitsConfig{Min: j.limits.Min, Max: j.limits.Max}
	}
	return cfg
}

// PinInSlotJoint constrains a point on the child to lie on the infinite
// line through two of the parent's points. One residual row: the cross
// product of the line direction with the pin offset.
type PinInSlotJoint struct {
	jointCommon
	parentLineID string
	childPointID string
}

// ParentLineID returns the slot line's id on the parent link.
func (j *PinInSlotJoint) ParentLineID() string {
	return j.parentLineID
}

// ChildPointID returns the pin point's id on the child link.
func (j *PinInSlotJoint) ChildPointID() string {
	return j.childPointID
}

// ConstraintCount returns 1.
func (j *PinInSlotJoint) ConstraintCount() int {
	return 1
}

// AppendResiduals appends the pin's signed deviation from the slot line.
func (j *PinInSlotJoint) AppendResiduals(dst []float64, state *PoseState) ([]float64, error) {
	a, b, err := state.worldLine(j.id, j.parent, j.parentLineID)
	if err != nil {
		return nil, err
	}
	pin, err := state.worldPoint(j.id, j.child, j.childPointID)
	if err != nil {
		return nil, err
	}
	ab := b.Sub(a)
	ap := pin.Sub(a)
	return append(dst, ab.Cross(ap)), nil
}

func (j *PinInSlotJoint) validate(lk *Linkage) error {
	return multierr.Combine(
		j.validateLinks(lk),
		j.validateFeature(lk, "line", j.parent, j.parentLineID),
		j.validateFeature(lk, "point", j.child, j.childPointID),
	)
}

func (j *PinInSlotJoint) config() JointConfig {
	return JointConfig{
		ID:           j.id,
		Name:         j.name,
		Type:         JointTypePinInSlot,
		Parent:       j.parent,
		Child:        j.child,
		ParentLineID: j.parentLineID,
		ChildPointID: j.childPointID,
	}
}

// GearJoint couples the rotation of two links by a fixed ratio and phase
// offset. One residual row: ratio·θ_child − θ_parent − phase, with every
// angle in the document's unit.
type GearJoint struct {
	jointCommon
	ratio float64
	phase float64
}

// Ratio returns the angular coupling ratio.
func (j *GearJoint) Ratio() float64 {
	return j.ratio
}

// PhaseOffset returns the phase offset in the document's angle unit.
func (j *GearJoint) PhaseOffset() float64 {
	return j.phase
}

// ConstraintCount returns 1.
func (j *GearJoint) ConstraintCount() int {
	return 1
}

// AppendResiduals appends the coupled-rotation row.
func (j *GearJoint) AppendResiduals(dst []float64, state *PoseState) ([]float64, error) {
	parentPose, err := state.pose(j.id, j.parent)
	if err != nil {
		return nil, err
	}
	childPose, err := state.pose(j.id, j.child)
	if err != nil {
		return nil, err
	}
	return append(dst, j.ratio*childPose.Angle-parentPose.Angle-j.phase), nil
}

func (j *GearJoint) validate(lk *Linkage) error {
	errs := j.validateLinks(lk)
	if j.ratio == 0 {
		errs = multierr.Append(errs, NewGearRatioError(j.id))
	}
	return errs
}

func (j *GearJoint) config() JointConfig {
	return JointConfig{
		ID:          j.id,
		Name:        j.name,
		Type:        JointTypeGear,
		Parent:      j.parent,
		Child:       j.child,
		Ratio:       j.ratio,
		PhaseOffset: j.phase,
	}
}

// WeldJoint rigidly fixes the child's frame at a declared offset pose
// relative to the parent. Three residual rows: the child's origin must sit
// at the parent-transformed offset position, and the angle difference must
// equal the offset angle.
type WeldJoint struct {
	jointCommon
	relative planarmath.Pose
}

// RelativePose returns the child frame's declared offset from the parent
// frame.
func (j *WeldJoint) RelativePose() planarmath.Pose {
	return j.relative
}

// ConstraintCount returns 3.
func (j *WeldJoint) ConstraintCount() int {
	return 3
}

// AppendResiduals appends the position-match and angle-offset rows. The
// rows are exactly zero whenever the child's pose equals the parent's pose
// composed with the relative pose.
func (j *WeldJoint) AppendResiduals(dst []float64, state *PoseState) ([]float64, error) {
	parentPose, err := state.pose(j.id, j.parent)
	if err != nil {
		return nil, err
	}
	childPose, err := state.pose(j.id, j.child)
	if err != nil {
		return nil, err
	}
	weldWorld := parentPose.TransformPoint(j.relative.Position, state.AngleUnit())
	return append(dst,
		weldWorld.X-childPose.Position.X,
		weldWorld.Y-childPose.Position.Y,
		(childPose.Angle-parentPose.Angle)-j.relative.Angle,
	), nil
}

func (j *WeldJoint) validate(lk *Linkage) error {
	return j.validateLinks(lk)
}

func (j *WeldJoint) config() JointConfig {
	return JointConfig{
		ID:     j.id,
		Name:   j.name,
		Type:   JointTypeWeld,
		Parent: j.parent,
		Child:  j.child,
		RelativePose: &PoseConfig{
			Position: [2]float64{j.relative.Position.X, j.relative.Position.Y},
			Angle:    j.relative.Angle,
		},
	}
}
