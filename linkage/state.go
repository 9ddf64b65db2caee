package linkage

import (
	"github.com/golang/geo/r2"

	"github.com/planarmech/linkage2d/planarmath"
)

// PoseState is a working copy of a mechanism's poses used while evaluating
// residuals and searching for a solution. Grounded links keep their fixed
// poses; the non-grounded links' candidate poses pack into a flat
// [x, y, angle] vector in link declaration order. Residual evaluation only
// ever touches the working copy, so a failed or abandoned solve leaves the
// Linkage exactly as it was.
type PoseState struct {
	lk    *Linkage
	poses map[string]planarmath.Pose
	free  []string
}

// NewPoseState copies the mechanism's current poses into a fresh working
// state.
func NewPoseState(lk *Linkage) *PoseState {
	poses := make(map[string]planarmath.Pose, len(lk.links))
	var free []string
	for _, l := range lk.links {
		poses[l.id] = l.pose
		if !l.grounded {
			free = append(free, l.id)
		}
	}
	return &PoseState{lk: lk, poses: poses, free: free}
}

// DoF returns the number of free pose parameters, three per non-grounded
// link.
func (s *PoseState) DoF() int {
	return 3 * len(s.free)
}

// FreeLinks returns the ids of the non-grounded links in declaration
// order, the order FreeVector packs.
func (s *PoseState) FreeLinks() []string {
	return append([]string(nil), s.free...)
}

// AngleUnit returns the document's angle unit.
func (s *PoseState) AngleUnit() planarmath.AngleUnit {
	return s.lk.angleUnit
}

// FreeVector packs the non-grounded links' candidate poses into a flat
// vector: [x, y, angle] per link, in declaration order.
func (s *PoseState) FreeVector() []float64 {
	out := make([]float64, 0, s.DoF())
	for _, id := range s.free {
		p := s.poses[id]
		out = append(out, p.Position.X, p.Position.Y, p.Angle)
	}
	return out
}

// SetFreeVector adopts a candidate pose vector in FreeVector's packing.
func (s *PoseState) SetFreeVector(x []float64) error {
	if len(x) != s.DoF() {
		return NewPoseVectorLengthError(len(x), s.DoF())
	}
	for i, id := range s.free {
		s.poses[id] = planarmath.Pose{
			Position: r2.Point{X: x[3*i], Y: x[3*i+1]},
			Angle:    x[3*i+2],
		}
	}
	return nil
}

// Pose returns the candidate pose of the named link.
func (s *PoseState) Pose(linkID string) (planarmath.Pose, error) {
	return s.pose("", linkID)
}

// Poses returns a copy of every link's candidate pose keyed by link id.
func (s *PoseState) Poses() map[string]planarmath.Pose {
	out := make(map[string]planarmath.Pose, len(s.poses))
	for id, p := range s.poses {
		out[id] = p
	}
	return out
}

// WorldPoint resolves a link's named point and transforms it to world
// coordinates under the candidate poses.
func (s *PoseState) WorldPoint(linkID, pointID string) (r2.Point, error) {
	return s.worldPoint("", linkID, pointID)
}

// WorldDirection resolves a link's named direction to a world unit vector
// under the candidate poses.
func (s *PoseState) WorldDirection(linkID, directionID string) (r2.Point, error) {
	return s.worldDirection("", linkID, directionID)
}

// WorldLine resolves both defining points of a link's named line to world
// coordinates under the candidate poses.
func (s *PoseState) WorldLine(linkID, lineID string) (a, b r2.Point, err error) {
	return s.worldLine("", linkID, lineID)
}

// Commit writes the candidate poses of the non-grounded links back into
// the mechanism.
func (s *PoseState) Commit() {
	for _, id := range s.free {
		if l, ok := s.lk.Link(id); ok {
			l.pose = s.poses[id]
		}
	}
}

func (s *PoseState) pose(jointID, linkID string) (planarmath.Pose, error) {
	p, ok := s.poses[linkID]
	if !ok {
		return planarmath.Pose{}, &ReferenceError{Joint: jointID, Kind: "link", ID: linkID}
	}
	return p, nil
}

func (s *PoseState) worldPoint(jointID, linkID, pointID string) (r2.Point, error) {
	l, ok := s.lk.Link(linkID)
	if !ok {
		return r2.Point{}, &ReferenceError{Joint: jointID, Kind: "link", ID: linkID}
	}
	pt, ok := l.Point(pointID)
	if !ok {
		return r2.Point{}, &ReferenceError{Joint: jointID, Kind: "point", Link: linkID, ID: pointID}
	}
	return s.poses[linkID].TransformPoint(pt.Position, s.lk.angleUnit), nil
}

func (s *PoseState) worldDirection(jointID, linkID, directionID string) (r2.Point, error) {
	l, ok := s.lk.Link(linkID)
	if !ok {
		return r2.Point{}, &ReferenceError{Joint: jointID, Kind: "link", ID: linkID}
	}
	d, ok := l.Direction(directionID)
	if !ok {
		return r2.Point{}, &ReferenceError{Joint: jointID, Kind: "direction", Link: linkID, ID: directionID}
	}
	return s.poses[linkID].TransformDirection(d.Angle, s.lk.angleUnit), nil
}

func (s *PoseState) worldLine(jointID, linkID, lineID string) (r2.Point, r2.Point, error) {
	l, ok := s.lk.Link(linkID)
	if !ok {
		return r2.Point{}, r2.Point{}, &ReferenceError{Joint: jointID, Kind: "link", ID: linkID}
	}
	ln, ok := l.Line(lineID)
	if !ok {
		return r2.Point{}, r2.Point{}, &ReferenceError{Joint: jointID, Kind: "line", Link: linkID, ID: lineID}
	}
	a, err := s.worldPoint(jointID, linkID, ln.PointIDs[0])
	if err != nil {
		return r2.Point{}, r2.Point{}, err
	}
	b, err := s.worldPoint(jointID, linkID, ln.PointIDs[1])
	if err != nil {
		return r2.Point{}, r2.Point{}, err
	}
	return a, b, nil
}
