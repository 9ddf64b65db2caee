package linkage

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/planarmech/linkage2d/planarmath"
)

func TestParseFileFourBar(t *testing.T) {
	lk, err := ParseFile("testdata/four_bar.json")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lk.ID(), test.ShouldEqual, "four_bar")
	test.That(t, lk.Name(), test.ShouldEqual, "Four-Bar Linkage")
	test.That(t, lk.Type(), test.ShouldEqual, "planar_linkage")
	test.That(t, lk.LengthUnit(), test.ShouldEqual, "mm")
	test.That(t, lk.AngleUnit(), test.ShouldEqual, planarmath.Degrees)
	test.That(t, lk.Convention(), test.ShouldResemble, Convention{
		AxisOrientation:  AxisOrientationYUp,
		PositiveRotation: PositiveRotationCCW,
	})

	test.That(t, len(lk.Links()), test.ShouldEqual, 4)
	ground, ok := lk.Link("ground")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ground.Grounded(), test.ShouldBeTrue)
	test.That(t, len(ground.Points()), test.ShouldEqual, 2)
	test.That(t, ground.Circles()[0].Radius, test.ShouldEqual, 40)
	test.That(t, ground.Arcs()[0].EndAngle, test.ShouldEqual, 90)

	crank, ok := lk.Link("crank")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, crank.Grounded(), test.ShouldBeFalse)
	b, ok := crank.Point("B")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, b.Position.X, test.ShouldEqual, 40)

	test.That(t, len(lk.Joints()), test.ShouldEqual, 4)
	j, ok := lk.Joint("R1")
	test.That(t, ok, test.ShouldBeTrue)
	revolute, ok := j.(*RevoluteJoint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, revolute.Parent(), test.ShouldEqual, "ground")
	test.That(t, revolute.Child(), test.ShouldEqual, "crank")
	test.That(t, revolute.ParentPointID(), test.ShouldEqual, "O1")
	test.That(t, revolute.ChildPointID(), test.ShouldEqual, "A")
}

func TestParseFileCrankSlider(t *testing.T) {
	lk, err := ParseFile("testdata/crank_slider.json")
	test.That(t, err, test.ShouldBeNil)

	j, ok := lk.Joint("P1")
	test.That(t, ok, test.ShouldBeTrue)
	prismatic, ok := j.(*PrismaticJoint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, prismatic.ParentAxis(), test.ShouldResemble, Axis{PointID: "O", DirectionID: "slide_dir"})
	test.That(t, prismatic.ChildAxis(), test.ShouldResemble, Axis{PointID: "S", DirectionID: "axis"})
	test.That(t, prismatic.Limits(), test.ShouldResemble, &Limits{Min: 70, Max: 130})
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("testdata/no_such_file.json")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no_such_file.json")
}

func TestParseUnsupportedJointType(t *testing.T) {
	doc := []byte(`{
		"id": "bad",
		"unit_angle": "deg",
		"links": [{"id": "a", "isGrounded": true}, {"id": "b"}],
		"joints": [{"id": "J1", "type": "ball", "parent": "a", "child": "b"}]
	}`)
	_, err := UnmarshalLinkageJSON(doc)
	var typeErr *UnsupportedJointTypeError
	test.That(t, errors.As(err, &typeErr), test.ShouldBeTrue)
	test.That(t, typeErr.Type, test.ShouldEqual, "ball")
}

func TestParseJointFieldErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		joint string
		want  string
	}{
		{
			"revolute without child point",
			`{"id": "J1", "type": "revolute", "parent": "a", "child": "b", "point_id_parent": "p"}`,
			`missing required field "point_id_child"`,
		},
		{
			"prismatic without child axis",
			`{"id": "J1", "type": "prismatic", "parent": "a", "child": "b",
			  "axis_parent": {"point_id": "p", "direction_id": "d"}}`,
			`missing required field "axis_child"`,
		},
		{
			"pin-in-slot without line",
			`{"id": "J1", "type": "pin-in-slot", "parent": "a", "child": "b", "point_id_child": "p"}`,
			`missing required field "line_id_parent"`,
		},
		{
			"gear without ratio",
			`{"id": "J1", "type": "gear", "parent": "a", "child": "b"}`,
			"nonzero ratio",
		},
		{
			"weld without relative pose",
			`{"id": "J1", "type": "weld", "parent": "a", "child": "b"}`,
			`missing required field "relative_pose"`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc := []byte(`{
				"id": "bad",
				"unit_angle": "deg",
				"links": [
					{"id": "a", "isGrounded": true,
					 "points": [{"id": "p", "position": [0, 0]}],
					 "directions": [{"id": "d", "angle": 0}]},
					{"id": "b"}
				],
				"joints": [` + tc.joint + `]
			}`)
			_, err := UnmarshalLinkageJSON(doc)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.want)
		})
	}
}

func TestParseBadAngleUnit(t *testing.T) {
	_, err := UnmarshalLinkageJSON([]byte(`{"id": "bad", "unit_angle": "grad", "links": [], "joints": []}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown angle unit "grad"`)
}

func TestWeldLegacyRelativeFields(t *testing.T) {
	nested := []byte(`{
		"id": "welded",
		"unit_angle": "deg",
		"links": [{"id": "a", "isGrounded": true}, {"id": "b"}],
		"joints": [{"id": "W1", "type": "weld", "parent": "a", "child": "b",
			"relative_pose": {"position": [5, -2], "angle": 30}}]
	}`)
	legacy := []byte(`{
		"id": "welded",
		"unit_angle": "deg",
		"links": [{"id": "a", "isGrounded": true}, {"id": "b"}],
		"joints": [{"id": "W1", "type": "weld", "parent": "a", "child": "b",
			"relative_pos": [5, -2], "relative_angle": 30}]
	}`)

	lkNested, err := UnmarshalLinkageJSON(nested)
	test.That(t, err, test.ShouldBeNil)
	lkLegacy, err := UnmarshalLinkageJSON(legacy)
	test.That(t, err, test.ShouldBeNil)

	jn := lkNested.Joints()[0].(*WeldJoint)
	jl := lkLegacy.Joints()[0].(*WeldJoint)
	test.That(t, jl.RelativePose(), test.ShouldResemble, jn.RelativePose())
	test.That(t, jl.RelativePose(), test.ShouldResemble, planarmath.NewPose(5, -2, 30))

	// Legacy documents may also declare just one of the pair; the other
	// defaults to zero.
	angleOnly := []byte(`{
		"id": "welded",
		"unit_angle": "deg",
		"links": [{"id": "a", "isGrounded": true}, {"id": "b"}],
		"joints": [{"id": "W1", "type": "weld", "parent": "a", "child": "b", "relative_angle": 30}]
	}`)
	lkAngle, err := UnmarshalLinkageJSON(angleOnly)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lkAngle.Joints()[0].(*WeldJoint).RelativePose(), test.ShouldResemble, planarmath.NewPose(0, 0, 30))
}

func TestRoundTrip(t *testing.T) {
	lk, err := ParseFile("testdata/four_bar.json")
	test.That(t, err, test.ShouldBeNil)

	// Move a link so the emitted document carries solved poses, then make
	// sure a reparse sees the identical mechanism.
	crank, ok := lk.Link("crank")
	test.That(t, ok, test.ShouldBeTrue)
	crank.SetPose(planarmath.NewPose(0, 0, 33))

	data, err := lk.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	reparsed, err := UnmarshalLinkageJSON(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reparsed.Config(), test.ShouldResemble, lk.Config())

	crank2, ok := reparsed.Link("crank")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, crank2.Pose().Angle, test.ShouldEqual, 33)
}
