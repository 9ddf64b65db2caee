package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/planarmech/linkage2d/kinematics"
	"github.com/planarmech/linkage2d/linkage"
)

// TracePath returns the world positions a link point moves through across
// a sweep's solved frames, in frame order, skipping failed frames.
func TracePath(lk *linkage.Linkage, frames []kinematics.Frame, linkID, pointID string) (plotter.XYs, error) {
	l, ok := lk.Link(linkID)
	if !ok {
		return nil, linkage.NewLinkReferenceError("", linkID)
	}
	pt, ok := l.Point(pointID)
	if !ok {
		return nil, linkage.NewPointReferenceError("", linkID, pointID)
	}
	unit := lk.AngleUnit()
	xys := make(plotter.XYs, 0, len(frames))
	for _, frame := range frames {
		if frame.Solution == nil {
			continue
		}
		pose, ok := frame.Solution.Poses[linkID]
		if !ok {
			continue
		}
		world := pose.TransformPoint(pt.Position, unit)
		xys = append(xys, plotter.XY{X: world.X, Y: world.Y})
	}
	return xys, nil
}

// TracePlot writes the path a link point traces over a sweep as a line
// plot at path; the image format follows the file extension.
func TracePlot(lk *linkage.Linkage, frames []kinematics.Frame, linkID, pointID, path string) error {
	xys, err := TracePath(lk, frames, linkID, pointID)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s.%s path", linkID, pointID)
	xLabel, yLabel := "X", "Y"
	if unit := lk.LengthUnit(); unit != "" {
		xLabel = fmt.Sprintf("X (%s)", unit)
		yLabel = fmt.Sprintf("Y (%s)", unit)
	}
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
