package linkage

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/planarmech/linkage2d/planarmath"
)

// Joint type tags accepted in a linkage document.
const (
	JointTypeRevolute  = "revolute"
	JointTypePrismatic = "prismatic"
	JointTypePinInSlot = "pin-in-slot"
	JointTypeGear      = "gear"
	JointTypeWeld      = "weld"
)

// LinkageConfig represents all supported fields in a linkage document.
type LinkageConfig struct {
	Version    string            `json:"version,omitempty"`
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Type       string            `json:"type,omitempty"`
	LengthUnit string            `json:"unit_length,omitempty"`
	AngleUnit  string            `json:"unit_angle,omitempty"`
	Convention *ConventionConfig `json:"convention,omitempty"`
	Links      []LinkConfig      `json:"links"`
	Joints     []JointConfig     `json:"joints"`
}

// ConventionConfig is the wire form of a document's axis and rotation-sign
// conventions.
type ConventionConfig struct {
	AxisOrientation  string `json:"axis_orientation,omitempty"`
	PositiveRotation string `json:"positive_rotation,omitempty"`
}

// PoseConfig is the wire form of a pose.
type PoseConfig struct {
	Position [2]float64 `json:"position"`
	Angle    float64    `json:"angle"`
}

// LinkConfig is the wire form of a link and its attached geometry.
type LinkConfig struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Grounded   bool              `json:"isGrounded"`
	Pose       *PoseConfig       `json:"pose,omitempty"`
	Points     []PointConfig     `json:"points,omitempty"`
	Directions []DirectionConfig `json:"directions,omitempty"`
	Lines      []LineConfig      `json:"lines,omitempty"`
	Circles    []CircleConfig    `json:"circles,omitempty"`
	Arcs       []ArcConfig       `json:"arcs,omitempty"`
}

// PointConfig is the wire form of a link point.
type PointConfig struct {
	ID       string     `json:"id"`
	Position [2]float64 `json:"position"`
}

// DirectionConfig is the wire form of a link direction.
type DirectionConfig struct {
	ID    string  `json:"id"`
	Angle float64 `json:"angle"`
}

// LineConfig is the wire form of a link line.
type LineConfig struct {
	ID       string    `json:"id"`
	PointIDs [2]string `json:"point_ids"`
}

// CircleConfig is the wire form of an auxiliary circle.
type CircleConfig struct {
	ID            string  `json:"id"`
	CenterPointID string  `json:"center_point_id"`
	Radius        float64 `json:"radius"`
}

// ArcConfig is the wire form of an auxiliary arc.
type ArcConfig struct {
	ID            string  `json:"id"`
	CenterPointID string  `json:"center_point_id"`
	Radius        float64 `json:"radius"`
	StartAngle    float64 `json:"start_angle"`
	EndAngle      float64 `json:"end_angle"`
}

// AxisConfig is the wire form of a prismatic slide axis.
type AxisConfig struct {
	PointID     string `json:"point_id"`
	DirectionID string `json:"direction_id"`
}

// LimitsConfig is the wire form of prismatic travel limits.
type LimitsConfig struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// JointConfig is the wire form of a joint, discriminated by Type; the
// fields beyond the common set apply per joint kind.
type JointConfig struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type"`
	Parent string `json:"parent"`
	Child  string `json:"child"`

	// Revolute.
	ParentPointID string `json:"point_id_parent,omitempty"`
	ChildPointID  string `json:"point_id_child,omitempty"`

	// Prismatic.
	ParentAxis *AxisConfig   `json:"axis_parent,omitempty"`
	ChildAxis  *AxisConfig   `json:"axis_child,omitempty"`
	Limits     *LimitsConfig `json:"limits,omitempty"`

	// Pin-in-slot (shares ChildPointID with revolute).
	ParentLineID string `json:"line_id_parent,omitempty"`

	// Gear.
	Ratio       float64 `json:"ratio,omitempty"`
	PhaseOffset float64 `json:"phase_offset,omitempty"`

	// Weld. The flat relative_pos/relative_angle pair is a legacy spelling
	// of RelativePose and is accepted as a synonym on input; output always
	// uses the nested form.
	RelativePose     *PoseConfig `json:"relative_pose,omitempty"`
	RelativePosition *[2]float64 `json:"relative_pos,omitempty"`
	RelativeAngle    *float64    `json:"relative_angle,omitempty"`
}

// UnmarshalLinkageJSON parses a linkage document into a validated Linkage.
func UnmarshalLinkageJSON(jsonData []byte) (*Linkage, error) {
	cfg := &LinkageConfig{}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal linkage json")
	}
	return cfg.ParseConfig()
}

// ParseFile reads and parses a linkage document from disk.
func ParseFile(path string) (*Linkage, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read linkage file %s", path)
	}
	lk, err := UnmarshalLinkageJSON(jsonData)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse linkage file %s", path)
	}
	return lk, nil
}

// ParseConfig converts the config into a full Linkage, building every link
// and joint and validating all identifiers and references.
func (cfg *LinkageConfig) ParseConfig() (*Linkage, error) {
	unit, err := planarmath.ParseAngleUnit(cfg.AngleUnit)
	if err != nil {
		return nil, err
	}
	lk := &Linkage{
		id:         cfg.ID,
		name:       cfg.Name,
		mechType:   cfg.Type,
		version:    cfg.Version,
		lengthUnit: cfg.LengthUnit,
		angleUnit:  unit,
	}
	if cfg.Convention != nil {
		lk.convention = Convention{
			AxisOrientation:  cfg.Convention.AxisOrientation,
			PositiveRotation: cfg.Convention.PositiveRotation,
		}
	}
	for i := range cfg.Links {
		lk.links = append(lk.links, cfg.Links[i].parse())
	}
	for i := range cfg.Joints {
		j, err := cfg.Joints[i].parse()
		if err != nil {
			return nil, err
		}
		lk.joints = append(lk.joints, j)
	}
	if err := lk.Validate(); err != nil {
		return nil, err
	}
	return lk, nil
}

func (cfg *PoseConfig) parse() planarmath.Pose {
	return planarmath.Pose{
		Position: r2.Point{X: cfg.Position[0], Y: cfg.Position[1]},
		Angle:    cfg.Angle,
	}
}

func (cfg *LinkConfig) parse() *Link {
	l := &Link{
		id:       cfg.ID,
		name:     cfg.Name,
		grounded: cfg.Grounded,
	}
	if cfg.Pose != nil {
		l.pose = cfg.Pose.parse()
	}
	for _, p := range cfg.Points {
		l.points = append(l.points, Point{ID: p.ID, Position: r2.Point{X: p.Position[0], Y: p.Position[1]}})
	}
	for _, d := range cfg.Directions {
		l.directions = append(l.directions, Direction{ID: d.ID, Angle: d.Angle})
	}
	for _, ln := range cfg.Lines {
		l.lines = append(l.lines, Line{ID: ln.ID, PointIDs: ln.PointIDs})
	}
	for _, c := range cfg.Circles {
		l.circles = append(l.circles, Circle{ID: c.ID, CenterPointID: c.CenterPointID, Radius: c.Radius})
	}
	for _, a := range cfg.Arcs {
		l.arcs = append(l.arcs, Arc{
			ID:            a.ID,
			CenterPointID: a.CenterPointID,
			Radius:        a.Radius,
			StartAngle:    a.StartAngle,
			EndAngle:      a.EndAngle,
		})
	}
	return l
}

func (cfg *JointConfig) parse() (Joint, error) {
	common := jointCommon{id: cfg.ID, name: cfg.Name, parent: cfg.Parent, child: cfg.Child}
	switch cfg.Type {
	case JointTypeRevolute:
		if cfg.ParentPointID == "" {
			return nil, NewMissingJointFieldError(cfg.ID, "point_id_parent")
		}
		if cfg.ChildPointID == "" {
			return nil, NewMissingJointFieldError(cfg.ID, "point_id_child")
		}
		return &RevoluteJoint{
			jointCommon:   common,
			parentPointID: cfg.ParentPointID,
			childPointID:  cfg.ChildPointID,
		}, nil
	case JointTypePrismatic:
		if cfg.ParentAxis == nil {
			return nil, NewMissingJointFieldError(cfg.ID, "axis_parent")
		}
		if cfg.ChildAxis == nil {
			return nil, NewMissingJointFieldError(cfg.ID, "axis_child")
		}
		j := &PrismaticJoint{
			jointCommon: common,
			parentAxis:  Axis{PointID: cfg.ParentAxis.PointID, DirectionID: cfg.ParentAxis.DirectionID},
			childAxis:   Axis{PointID: cfg.ChildAxis.PointID, DirectionID: cfg.ChildAxis.DirectionID},
		}
		if cfg.Limits != nil {
			j.limits = &Limits{Min: cfg.Limits.Min, Max: cfg.Limits.Max}
		}
		return j, nil
	case JointTypePinInSlot:
		if cfg.ParentLineID == "" {
			return nil, NewMissingJointFieldError(cfg.ID, "line_id_parent")
		}
		if cfg.ChildPointID == "" {
			return nil, NewMissingJointFieldError(cfg.ID, "point_id_child")
		}
		return &PinInSlotJoint{
			jointCommon:  common,
			parentLineID: cfg.ParentLineID,
			childPointID: cfg.ChildPointID,
		}, nil
	case JointTypeGear:
		if cfg.Ratio == 0 {
			return nil, NewGearRatioError(cfg.ID)
		}
		return &GearJoint{
			jointCommon: common,
			ratio:       cfg.Ratio,
			phase:       cfg.PhaseOffset,
		}, nil
	case JointTypeWeld:
		relative, err := cfg.weldRelativePose()
		if err != nil {
			return nil, err
		}
		return &WeldJoint{jointCommon: common, relative: relative}, nil
	default:
		return nil, NewUnsupportedJointTypeError(cfg.Type)
	}
}

func (cfg *JointConfig) weldRelativePose() (planarmath.Pose, error) {
	if cfg.RelativePose != nil {
		return cfg.RelativePose.parse(), nil
	}
	if cfg.RelativePosition == nil && cfg.RelativeAngle == nil {
		return planarmath.Pose{}, NewMissingJointFieldError(cfg.ID, "relative_pose")
	}
	var relative planarmath.Pose
	if cfg.RelativePosition != nil {
		relative.Position = r2.Point{X: cfg.RelativePosition[0], Y: cfg.RelativePosition[1]}
	}
	if cfg.RelativeAngle != nil {
		relative.Angle = *cfg.RelativeAngle
	}
	return relative, nil
}

// Config returns the document form of the mechanism, including its
// current (possibly solved) poses, suitable for writing back out as JSON.
func (lk *Linkage) Config() *LinkageConfig {
	cfg := &LinkageConfig{
		Version:    lk.version,
		ID:         lk.id,
		Name:       lk.name,
		Type:       lk.mechType,
		LengthUnit: lk.lengthUnit,
		AngleUnit:  string(lk.angleUnit),
	}
	if lk.convention != (Convention{}) {
		cfg.Convention = &ConventionConfig{
			AxisOrientation:  lk.convention.AxisOrientation,
			PositiveRotation: lk.convention.PositiveRotation,
		}
	}
	for _, l := range lk.links {
		cfg.Links = append(cfg.Links, l.config())
	}
	for _, j := range lk.joints {
		cfg.Joints = append(cfg.Joints, j.config())
	}
	return cfg
}

// MarshalJSON writes the mechanism in its document form.
func (lk *Linkage) MarshalJSON() ([]byte, error) {
	return json.Marshal(lk.Config())
}

func (l *Link) config() LinkConfig {
	cfg := LinkConfig{
		ID:       l.id,
		Name:     l.name,
		Grounded: l.grounded,
		Pose: &PoseConfig{
			Position: [2]float64{l.pose.Position.X, l.pose.Position.Y},
			Angle:    l.pose.Angle,
		},
	}
	for _, p := range l.points {
		cfg.Points = append(cfg.Points, PointConfig{ID: p.ID, Position: [2]float64{p.Position.X, p.Position.Y}})
	}
	for _, d := range l.directions {
		cfg.Directions = append(cfg.Directions, DirectionConfig{ID: d.ID, Angle: d.Angle})
	}
	for _, ln := range l.lines {
		cfg.Lines = append(cfg.Lines, LineConfig{ID: ln.ID, PointIDs: ln.PointIDs})
	}
	for _, c := range l.circles {
		cfg.Circles = append(cfg.Circles, CircleConfig{ID: c.ID, CenterPointID: c.CenterPointID, Radius: c.Radius})
	}
	for _, a := range l.arcs {
		cfg.Arcs = append(cfg.Arcs, ArcConfig{
			ID:            a.ID,
			CenterPointID: a.CenterPointID,
			Radius:        a.Radius,
			StartAngle:    a.StartAngle,
			EndAngle:      a.EndAngle,
		})
	}
	return cfg
}
