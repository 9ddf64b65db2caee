package linkage

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/planarmech/linkage2d/planarmath"
)

func mustParseConfig(t *testing.T, cfg *LinkageConfig) *Linkage {
	t.Helper()
	lk, err := cfg.ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	return lk
}

func TestRevoluteJointResiduals(t *testing.T) {
	lk := mustParseConfig(t, &LinkageConfig{
		ID:        "pair",
		AngleUnit: "deg",
		Links: []LinkConfig{
			{
				ID:       "base",
				Grounded: true,
				Points:   []PointConfig{{ID: "hub", Position: [2]float64{10, 5}}},
			},
			{
				ID:     "arm",
				Pose:   &PoseConfig{Position: [2]float64{3, 4}, Angle: 90},
				Points: []PointConfig{{ID: "end", Position: [2]float64{7, 0}}},
			},
		},
		Joints: []JointConfig{{
			ID:            "J1",
			Type:          JointTypeRevolute,
			Parent:        "base",
			Child:         "arm",
			ParentPointID: "hub",
			ChildPointID:  "end",
		}},
	})

	j := lk.Joints()[0]
	test.That(t, j.ConstraintCount(), test.ShouldEqual, 2)

	// The arm's end lands at (3, 11), so the pin misses the hub by (7, -6).
	state := NewPoseState(lk)
	res, err := j.AppendResiduals([]float64{99}, state)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(res), test.ShouldEqual, 3)
	test.That(t, res[0], test.ShouldEqual, 99)
	test.That(t, res[1], test.ShouldAlmostEqual, 7)
	test.That(t, res[2], test.ShouldAlmostEqual, -6)

	// Swinging the arm to reach the hub zeroes both rows.
	arm, ok := lk.Link("arm")
	test.That(t, ok, test.ShouldBeTrue)
	arm.SetPose(planarmath.NewPose(3, 5, 0))
	res, err = j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldAlmostEqual, 0)
	test.That(t, res[1], test.ShouldAlmostEqual, 0)
}

func TestPrismaticJointResiduals(t *testing.T) {
	cfg := &LinkageConfig{
		ID:        "slide",
		AngleUnit: "deg",
		Links: []LinkConfig{
			{
				ID:         "base",
				Grounded:   true,
				Points:     []PointConfig{{ID: "origin", Position: [2]float64{0, 0}}},
				Directions: []DirectionConfig{{ID: "rail", Angle: 0}},
			},
			{
				ID:         "slider",
				Pose:       &PoseConfig{Position: [2]float64{5, 2}, Angle: 0},
				Points:     []PointConfig{{ID: "pivot", Position: [2]float64{0, 0}}},
				Directions: []DirectionConfig{{ID: "axis", Angle: 90}},
			},
		},
		Joints: []JointConfig{{
			ID:         "P1",
			Type:       JointTypePrismatic,
			Parent:     "base",
			Child:      "slider",
			ParentAxis: &AxisConfig{PointID: "origin", DirectionID: "rail"},
			ChildAxis:  &AxisConfig{PointID: "pivot", DirectionID: "axis"},
			Limits:     &LimitsConfig{Min: -10, Max: 10},
		}},
	}
	lk := mustParseConfig(t, cfg)

	j := lk.Joints()[0]
	test.That(t, j.ConstraintCount(), test.ShouldEqual, 2)
	prismatic, ok := j.(*PrismaticJoint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, prismatic.Limits(), test.ShouldResemble, &Limits{Min: -10, Max: 10})

	// The slider axis points along world y while the rail points along x,
	// and the slider origin sits 2 above the rail.
	res, err := j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldAlmostEqual, 1)
	test.That(t, res[1], test.ShouldAlmostEqual, -2)

	// Rotating the slider so the axes align and dropping it onto the rail
	// zeroes both rows.
	slider, ok := lk.Link("slider")
	test.That(t, ok, test.ShouldBeTrue)
	slider.SetPose(planarmath.NewPose(5, 0, -90))
	res, err = j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldAlmostEqual, 0)
	test.That(t, res[1], test.ShouldAlmostEqual, 0)
}

func TestPinInSlotJointResiduals(t *testing.T) {
	lk := mustParseConfig(t, &LinkageConfig{
		ID:        "slot",
		AngleUnit: "deg",
		Links: []LinkConfig{
			{
				ID:       "base",
				Grounded: true,
				Points: []PointConfig{
					{ID: "a", Position: [2]float64{0, 0}},
					{ID: "b", Position: [2]float64{10, 0}},
				},
				Lines: []LineConfig{{ID: "slot", PointIDs: [2]string{"a", "b"}}},
			},
			{
				ID:     "follower",
				Pose:   &PoseConfig{Position: [2]float64{4, 3}, Angle: 0},
				Points: []PointConfig{{ID: "pin", Position: [2]float64{0, 0}}},
			},
		},
		Joints: []JointConfig{{
			ID:           "S1",
			Type:         JointTypePinInSlot,
			Parent:       "base",
			Child:        "follower",
			ParentLineID: "slot",
			ChildPointID: "pin",
		}},
	})

	j := lk.Joints()[0]
	test.That(t, j.ConstraintCount(), test.ShouldEqual, 1)

	// The pin floats 3 above a slot of length 10: cross product 30.
	res, err := j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldAlmostEqual, 30)

	// Anywhere along the infinite line is admissible, including beyond the
	// segment's endpoints.
	follower, ok := lk.Link("follower")
	test.That(t, ok, test.ShouldBeTrue)
	follower.SetPose(planarmath.NewPose(25, 0, 0))
	res, err = j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldAlmostEqual, 0)
}

func TestGearJointResiduals(t *testing.T) {
	lk := mustParseConfig(t, &LinkageConfig{
		ID:        "gears",
		AngleUnit: "deg",
		Links: []LinkConfig{
			{ID: "frame", Grounded: true},
			{ID: "drive", Pose: &PoseConfig{Angle: 30}},
			{ID: "driven", Pose: &PoseConfig{Angle: 20}},
		},
		Joints: []JointConfig{{
			ID:          "G1",
			Type:        JointTypeGear,
			Parent:      "drive",
			Child:       "driven",
			Ratio:       2,
			PhaseOffset: 5,
		}},
	})

	j := lk.Joints()[0]
	test.That(t, j.ConstraintCount(), test.ShouldEqual, 1)
	gear, ok := j.(*GearJoint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gear.Ratio(), test.ShouldEqual, 2)
	test.That(t, gear.PhaseOffset(), test.ShouldEqual, 5)

	res, err := j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldEqual, 2*20-30-5)

	driven, ok := lk.Link("driven")
	test.That(t, ok, test.ShouldBeTrue)
	driven.SetPose(planarmath.NewPose(0, 0, 17.5))
	res, err = j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldEqual, 0)
}

func TestWeldJointResiduals(t *testing.T) {
	lk := mustParseConfig(t, &LinkageConfig{
		ID:        "welded",
		AngleUnit: "deg",
		Links: []LinkConfig{
			{ID: "base", Grounded: true, Pose: &PoseConfig{Position: [2]float64{10, 0}, Angle: 90}},
			{ID: "bracket"},
		},
		Joints: []JointConfig{{
			ID:           "W1",
			Type:         JointTypeWeld,
			Parent:       "base",
			Child:        "bracket",
			RelativePose: &PoseConfig{Position: [2]float64{5, 0}, Angle: 45},
		}},
	})

	j := lk.Joints()[0]
	test.That(t, j.ConstraintCount(), test.ShouldEqual, 3)

	// Placing the bracket at exactly the parent pose composed with the
	// relative pose zeroes all three rows with no floating point slack.
	base, ok := lk.Link("base")
	test.That(t, ok, test.ShouldBeTrue)
	weldWorld := base.Pose().TransformPoint(r2.Point{X: 5}, lk.AngleUnit())
	bracket, ok := lk.Link("bracket")
	test.That(t, ok, test.ShouldBeTrue)
	bracket.SetPose(planarmath.Pose{Position: weldWorld, Angle: base.Pose().Angle + 45})
	res, err := j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldEqual, 0)
	test.That(t, res[1], test.ShouldEqual, 0)
	test.That(t, res[2], test.ShouldEqual, 0)

	// Twisting the bracket off the weld angle shows up only in the angle
	// row, as a raw difference in document units.
	bracket.SetPose(planarmath.Pose{Position: weldWorld, Angle: base.Pose().Angle + 47})
	res, err = j.AppendResiduals(nil, NewPoseState(lk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res[0], test.ShouldEqual, 0)
	test.That(t, res[1], test.ShouldEqual, 0)
	test.That(t, res[2], test.ShouldEqual, 2)
}

func TestAppendResidualsReferenceError(t *testing.T) {
	lk := mustParseConfig(t, &LinkageConfig{
		ID:        "pair",
		AngleUnit: "deg",
		Links: []LinkConfig{
			{ID: "base", Grounded: true, Points: []PointConfig{{ID: "hub", Position: [2]float64{0, 0}}}},
			{ID: "arm", Points: []PointConfig{{ID: "end", Position: [2]float64{1, 0}}}},
		},
	})

	rogue := &RevoluteJoint{
		jointCommon:   jointCommon{id: "J9", parent: "base", child: "arm"},
		parentPointID: "hub",
		childPointID:  "nowhere",
	}
	before := lk.Links()[1].Pose()
	_, err := rogue.AppendResiduals(nil, NewPoseState(lk))
	var refErr *ReferenceError
	test.That(t, errors.As(err, &refErr), test.ShouldBeTrue)
	test.That(t, refErr.Joint, test.ShouldEqual, "J9")
	test.That(t, refErr.Kind, test.ShouldEqual, "point")
	test.That(t, refErr.Link, test.ShouldEqual, "arm")
	test.That(t, refErr.ID, test.ShouldEqual, "nowhere")
	test.That(t, lk.Links()[1].Pose(), test.ShouldResemble, before)
}
