// Package linkage models planar mechanisms: rigid links carrying named
// attachment geometry, joined by kinematic constraints. A Linkage is built
// from its JSON document form via UnmarshalLinkageJSON or ParseFile and can
// be written back out after solving.
package linkage

import (
	"github.com/golang/geo/r2"
	"go.uber.org/multierr"

	"github.com/planarmech/linkage2d/planarmath"
)

// Point is a named location fixed in a link's local frame.
type Point struct {
	ID       string
	Position r2.Point
}

// Direction is a named unit direction fixed in a link's local frame,
// stored as an angle from the link's x axis in the document's angle unit.
type Direction struct {
	ID    string
	Angle float64
}

// Line is the infinite line through two of a link's points.
type Line struct {
	ID       string
	PointIDs [2]string
}

// Circle is auxiliary geometry centered on one of a link's points. It is
// drawn but takes no part in constraint solving.
type Circle struct {
	ID            string
	CenterPointID string
	Radius        float64
}

// Arc is auxiliary geometry: a circular arc about one of a link's points
// between two angles in the document's angle unit. Like circles, arcs take
// no part in constraint solving.
type Arc struct {
	ID            string
	CenterPointID string
	Radius        float64
	StartAngle    float64
	EndAngle      float64
}

// Link is one rigid body of a mechanism. Its pose places the link's local
// frame in the world; a grounded link's pose stays fixed during solving
// while the others are the solver's unknowns.
type Link struct {
	id         string
	name       string
	grounded   bool
	pose       planarmath.Pose
	points     []Point
	directions []Direction
	lines      []Line
	circles    []Circle
	arcs       []Arc
}

// ID returns the link's identifier.
func (l *Link) ID() string {
	return l.id
}

// Name returns the link's display name.
func (l *Link) Name() string {
	return l.name
}

// Grounded reports whether the link's pose is fixed during solving.
func (l *Link) Grounded() bool {
	return l.grounded
}

// Pose returns the link's current pose.
func (l *Link) Pose() planarmath.Pose {
	return l.pose
}

// SetPose overwrites the link's pose.
func (l *Link) SetPose(pose planarmath.Pose) {
	l.pose = pose
}

// Points returns the link's points in declaration order.
func (l *Link) Points() []Point {
	return l.points
}

// Point looks up one of the link's points by id.
func (l *Link) Point(id string) (Point, bool) {
	for _, p := range l.points {
		if p.ID == id {
			return p, true
		}
	}
	return Point{}, false
}

// Directions returns the link's directions in declaration order.
func (l *Link) Directions() []Direction {
	return l.directions
}

// Direction looks up one of the link's directions by id.
func (l *Link) Direction(id string) (Direction, bool) {
	for _, d := range l.directions {
		if d.ID == id {
			return d, true
		}
	}
	return Direction{}, false
}

// Lines returns the link's lines in declaration order.
func (l *Link) Lines() []Line {
	return l.lines
}

// Line looks up one of the link's lines by id.
func (l *Link) Line(id string) (Line, bool) {
	for _, ln := range l.lines {
		if ln.ID == id {
			return ln, true
		}
	}
	return Line{}, false
}

// Circles returns the link's auxiliary circles.
func (l *Link) Circles() []Circle {
	return l.circles
}

// Arcs returns the link's auxiliary arcs.
func (l *Link) Arcs() []Arc {
	return l.arcs
}

// Convention records a document's declared axis and rotation-sign
// conventions. The pose math assumes a y-up frame with CCW-positive
// angles; documents declaring anything else are rejected at parse time.
type Convention struct {
	AxisOrientation  string
	PositiveRotation string
}

// The convention values the pose math supports.
const (
	AxisOrientationYUp  = "y_up"
	PositiveRotationCCW = "ccw"
)

// Linkage is a complete planar mechanism: an ordered set of links joined
// by kinematic constraints, plus the document metadata needed to interpret
// them (most importantly the angle unit).
type Linkage struct {
	id         string
	name       string
	mechType   string
	version    string
	lengthUnit string
	angleUnit  planarmath.AngleUnit
	convention Convention
	links      []*Link
	joints     []Joint
}

// ID returns the document identifier.
func (lk *Linkage) ID() string {
	return lk.id
}

// Name returns the document display name.
func (lk *Linkage) Name() string {
	return lk.name
}

// Type returns the document's declared mechanism type.
func (lk *Linkage) Type() string {
	return lk.mechType
}

// Version returns the document format version.
func (lk *Linkage) Version() string {
	return lk.version
}

// LengthUnit returns the unit lengths are expressed in, e.g. "mm".
func (lk *Linkage) LengthUnit() string {
	return lk.lengthUnit
}

// AngleUnit returns the unit every angle in the document is expressed in.
func (lk *Linkage) AngleUnit() planarmath.AngleUnit {
	return lk.angleUnit
}

// Convention returns the document's axis and rotation-sign conventions.
func (lk *Linkage) Convention() Convention {
	return lk.convention
}

// Links returns the mechanism's links in declaration order.
func (lk *Linkage) Links() []*Link {
	return lk.links
}

// Link looks up a link by id.
func (lk *Linkage) Link(id string) (*Link, bool) {
	for _, l := range lk.links {
		if l.id == id {
			return l, true
		}
	}
	return nil, false
}

// Joints returns the mechanism's joints in declaration order.
func (lk *Linkage) Joints() []Joint {
	return lk.joints
}

// Joint looks up a joint by id.
func (lk *Linkage) Joint(id string) (Joint, bool) {
	for _, j := range lk.joints {
		if j.ID() == id {
			return j, true
		}
	}
	return nil, false
}

// FreeLinks returns the non-grounded links in declaration order. Their
// poses are the unknowns of a solve.
func (lk *Linkage) FreeLinks() []*Link {
	var free []*Link
	for _, l := range lk.links {
		if !l.grounded {
			free = append(free, l)
		}
	}
	return free
}

// DoF returns the number of free pose parameters, three per non-grounded
// link.
func (lk *Linkage) DoF() int {
	return 3 * len(lk.FreeLinks())
}

// ConstraintCount returns the number of scalar residual rows the
// mechanism's joints contribute, excluding any driving constraint.
func (lk *Linkage) ConstraintCount() int {
	count := 0
	for _, j := range lk.joints {
		count += j.ConstraintCount()
	}
	return count
}

// Validate checks the mechanism's structural invariants: identifiers are
// unique, line endpoints resolve within their link, the declared
// convention is one the pose math supports, and every joint reference
// resolves. All failures are aggregated rather than reported one at a
// time.
func (lk *Linkage) Validate() error {
	var errs error

	if lk.convention != (Convention{}) {
		if lk.convention.AxisOrientation != AxisOrientationYUp || lk.convention.PositiveRotation != PositiveRotationCCW {
			errs = multierr.Append(errs, NewConventionError(lk.convention))
		}
	}

	linkIDs := map[string]bool{}
	for _, l := range lk.links {
		if linkIDs[l.id] {
			errs = multierr.Append(errs, NewDuplicateIDError("link", l.id))
			continue
		}
		linkIDs[l.id] = true
		errs = multierr.Append(errs, l.validate())
	}

	jointIDs := map[string]bool{}
	for _, j := range lk.joints {
		if jointIDs[j.ID()] {
			errs = multierr.Append(errs, NewDuplicateIDError("joint", j.ID()))
			continue
		}
		jointIDs[j.ID()] = true
		errs = multierr.Append(errs, j.validate(lk))
	}
	return errs
}

func (l *Link) validate() error {
	var errs error
	seen := map[string]bool{}
	for _, p := range l.points {
		if seen["point/"+p.ID] {
			errs = multierr.Append(errs, NewDuplicateFeatureError(l.id, "point", p.ID))
		}
		seen["point/"+p.ID] = true
	}
	for _, d := range l.directions {
		if seen["direction/"+d.ID] {
			errs = multierr.Append(errs, NewDuplicateFeatureError(l.id, "direction", d.ID))
		}
		seen["direction/"+d.ID] = true
	}
	for _, ln := range l.lines {
		if seen["line/"+ln.ID] {
			errs = multierr.Append(errs, NewDuplicateFeatureError(l.id, "line", ln.ID))
		}
		seen["line/"+ln.ID] = true
		for _, ptID := range ln.PointIDs {
			if _, ok := l.Point(ptID); !ok {
				errs = multierr.Append(errs, NewPointReferenceError("", l.id, ptID))
			}
		}
	}
	for _, c := range l.circles {
		if _, ok := l.Point(c.CenterPointID); !ok {
			errs = multierr.Append(errs, NewPointReferenceError("", l.id, c.CenterPointID))
		}
	}
	for _, a := range l.arcs {
		if _, ok := l.Point(a.CenterPointID); !ok {
			errs = multierr.Append(errs, NewPointReferenceError("", l.id, a.CenterPointID))
		}
	}
	return errs
}

// Clone returns a copy of the mechanism sharing no mutable state with the
// original. Link poses and geometry are copied; joints are immutable after
// parsing and are shared.
func (lk *Linkage) Clone() *Linkage {
	clone := *lk
	clone.links = make([]*Link, 0, len(lk.links))
	for _, l := range lk.links {
		lc := *l
		lc.points = append([]Point(nil), l.points...)
		lc.directions = append([]Direction(nil), l.directions...)
		lc.lines = append([]Line(nil), l.lines...)
		lc.circles = append([]Circle(nil), l.circles...)
		lc.arcs = append([]Arc(nil), l.arcs...)
		clone.links = append(clone.links, &lc)
	}
	clone.joints = append([]Joint(nil), lk.joints...)
	return &clone
}

// ApplyPoses sets the pose of each named link, leaving links absent from
// the map untouched.
func (lk *Linkage) ApplyPoses(poses map[string]planarmath.Pose) error {
	for id, pose := range poses {
		l, ok := lk.Link(id)
		if !ok {
			return NewLinkReferenceError("", id)
		}
		l.pose = pose
	}
	return nil
}
