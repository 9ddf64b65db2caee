// Package render draws mechanisms: single frames with link geometry and
// frame axes, image sequences for solved sweeps, and traced point paths.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/errgroup"

	"github.com/planarmech/linkage2d/kinematics"
	"github.com/planarmech/linkage2d/linkage"
)

var labelFont *truetype.Font

// init sets up the font used for link and point labels.
func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

var (
	axisXColor = color.RGBA{R: 255, A: 255}
	axisYColor = color.RGBA{G: 170, A: 255}
	barColor   = color.RGBA{A: 255}
	pointColor = color.RGBA{R: 255, A: 255}
	guideColor = color.RGBA{B: 255, A: 255}
	labelColor = color.RGBA{R: 64, G: 64, B: 64, A: 255}
)

// Options tunes how a mechanism is drawn. The zero value of any numeric
// field selects its default.
type Options struct {
	// Width and Height size the output image in pixels.
	Width  int
	Height int
	// Padding is the minimum inset between the drawn mechanism and the
	// image edge, in pixels.
	Padding float64
	// Margin widens computed world bounds on every side, in world units.
	Margin float64
	// AxisLength is the length of each link's frame axes, in world units.
	AxisLength float64
	// LineWidth is the stroke width of bars and guides, in pixels.
	LineWidth float64
	// PointRadius is the dot radius of link points, in pixels.
	PointRadius float64
	// ShowLabels draws link ids at frame origins and point ids beside
	// points.
	ShowLabels bool
	// Background fills the image before drawing; nil means white.
	Background color.Color
}

// DefaultOptions returns the rendering options used when none are given.
func DefaultOptions() *Options {
	return &Options{
		Width:       800,
		Height:      600,
		Padding:     40,
		Margin:      20,
		AxisLength:  40,
		LineWidth:   2,
		PointRadius: 4,
		ShowLabels:  true,
		Background:  color.White,
	}
}

func (o *Options) normalized() Options {
	out := *o
	if out.Width <= 0 {
		out.Width = 800
	}
	if out.Height <= 0 {
		out.Height = 600
	}
	if out.Padding <= 0 {
		out.Padding = 40
	}
	if out.Margin <= 0 {
		out.Margin = 20
	}
	if out.AxisLength <= 0 {
		out.AxisLength = 40
	}
	if out.LineWidth <= 0 {
		out.LineWidth = 2
	}
	if out.PointRadius <= 0 {
		out.PointRadius = 4
	}
	if out.Background == nil {
		out.Background = color.White
	}
	return out
}

// Bounds is an axis-aligned box in world coordinates.
type Bounds struct {
	Min r2.Point
	Max r2.Point
}

func newBounds() Bounds {
	inf := math.Inf(1)
	return Bounds{Min: r2.Point{X: inf, Y: inf}, Max: r2.Point{X: -inf, Y: -inf}}
}

func (b Bounds) empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y
}

// Expand grows the bounds to include p.
func (b Bounds) Expand(p r2.Point) Bounds {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	return b
}

// Union grows the bounds to include o.
func (b Bounds) Union(o Bounds) Bounds {
	if o.empty() {
		return b
	}
	return b.Expand(o.Min).Expand(o.Max)
}

// Pad widens the bounds by m world units on every side.
func (b Bounds) Pad(m float64) Bounds {
	if b.empty() {
		return b
	}
	b.Min.X -= m
	b.Min.Y -= m
	b.Max.X += m
	b.Max.Y += m
	return b
}

// MechanismBounds returns the world extents of the mechanism's geometry
// under its current poses: every link origin and point, plus circle and
// arc envelopes.
func MechanismBounds(lk *linkage.Linkage) Bounds {
	bounds := newBounds()
	unit := lk.AngleUnit()
	for _, l := range lk.Links() {
		pose := l.Pose()
		bounds = bounds.Expand(pose.Position)
		for _, pt := range l.Points() {
			bounds = bounds.Expand(pose.TransformPoint(pt.Position, unit))
		}
		for _, c := range l.Circles() {
			center, ok := l.Point(c.CenterPointID)
			if !ok {
				continue
			}
			w := pose.TransformPoint(center.Position, unit)
			bounds = bounds.Expand(w.Add(r2.Point{X: c.Radius, Y: c.Radius}))
			bounds = bounds.Expand(w.Sub(r2.Point{X: c.Radius, Y: c.Radius}))
		}
		for _, a := range l.Arcs() {
			center, ok := l.Point(a.CenterPointID)
			if !ok {
				continue
			}
			w := pose.TransformPoint(center.Position, unit)
			bounds = bounds.Expand(w.Add(r2.Point{X: a.Radius, Y: a.Radius}))
			bounds = bounds.Expand(w.Sub(r2.Point{X: a.Radius, Y: a.Radius}))
		}
	}
	return bounds
}

// SweepBounds returns the union of the mechanism's bounds across every
// solved frame of a sweep, so a rendered sequence can hold one camera for
// the whole motion.
func SweepBounds(lk *linkage.Linkage, frames []kinematics.Frame) Bounds {
	bounds := MechanismBounds(lk)
	work := lk.Clone()
	for _, frame := range frames {
		if frame.Solution == nil {
			continue
		}
		if err := work.ApplyPoses(frame.Solution.Poses); err != nil {
			continue
		}
		bounds = bounds.Union(MechanismBounds(work))
	}
	return bounds
}

// Frame draws the mechanism under its current poses into an image, fitting
// and centering the given world bounds. Each link gets its frame axes, red
// dots on its points, black bars between every pair of its points, and
// dashed guides for circles and arcs.
func Frame(lk *linkage.Linkage, bounds Bounds, opts *Options) image.Image {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := opts.normalized()
	if bounds.empty() {
		bounds = Bounds{Min: r2.Point{X: -1, Y: -1}, Max: r2.Point{X: 1, Y: 1}}
	}
	spanX := bounds.Max.X - bounds.Min.X
	spanY := bounds.Max.Y - bounds.Min.Y
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}
	scale := math.Min(
		(float64(o.Width)-2*o.Padding)/spanX,
		(float64(o.Height)-2*o.Padding)/spanY,
	)
	ox := (float64(o.Width) - spanX*scale) / 2
	oy := (float64(o.Height) - spanY*scale) / 2
	sx := func(p r2.Point) float64 { return ox + (p.X-bounds.Min.X)*scale }
	sy := func(p r2.Point) float64 { return float64(o.Height) - oy - (p.Y-bounds.Min.Y)*scale }

	dc := gg.NewContext(o.Width, o.Height)
	dc.SetColor(o.Background)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: 12}))

	unit := lk.AngleUnit()
	quarter := unit.FullTurn() / 4
	for _, l := range lk.Links() {
		pose := l.Pose()
		origin := pose.Position
		xTip := origin.Add(pose.TransformDirection(0, unit).Mul(o.AxisLength))
		yTip := origin.Add(pose.TransformDirection(quarter, unit).Mul(o.AxisLength))
		drawArrow(dc, sx(origin), sy(origin), sx(xTip), sy(xTip), axisXColor, o.LineWidth)
		drawArrow(dc, sx(origin), sy(origin), sx(yTip), sy(yTip), axisYColor, o.LineWidth)

		world := make([]r2.Point, len(l.Points()))
		for i, pt := range l.Points() {
			world[i] = pose.TransformPoint(pt.Position, unit)
		}

		dc.SetColor(barColor)
		dc.SetLineWidth(o.LineWidth)
		for i := range world {
			for j := i + 1; j < len(world); j++ {
				dc.DrawLine(sx(world[i]), sy(world[i]), sx(world[j]), sy(world[j]))
				dc.Stroke()
			}
		}

		for i := range world {
			dc.DrawPoint(sx(world[i]), sy(world[i]), o.PointRadius)
			dc.SetColor(pointColor)
			dc.Fill()
		}

		dc.SetDash(6, 4)
		dc.SetColor(guideColor)
		dc.SetLineWidth(o.LineWidth / 2)
		for _, c := range l.Circles() {
			center, ok := l.Point(c.CenterPointID)
			if !ok {
				continue
			}
			w := pose.TransformPoint(center.Position, unit)
			dc.DrawCircle(sx(w), sy(w), c.Radius*scale)
			dc.Stroke()
		}
		for _, a := range l.Arcs() {
			center, ok := l.Point(a.CenterPointID)
			if !ok {
				continue
			}
			w := pose.TransformPoint(center.Position, unit)
			start := unit.ToRadians(pose.Angle + a.StartAngle)
			end := unit.ToRadians(pose.Angle + a.EndAngle)
			// Screen y points down, so world angles negate.
			dc.DrawArc(sx(w), sy(w), a.Radius*scale, -end, -start)
			dc.Stroke()
		}
		dc.SetDash()

		if o.ShowLabels {
			dc.SetColor(labelColor)
			dc.DrawString(l.ID(), sx(origin)+5, sy(origin)-5)
			for i, pt := range l.Points() {
				dc.DrawString(pt.ID, sx(world[i])+o.PointRadius+2, sy(world[i])-o.PointRadius-2)
			}
		}
	}
	return dc.Image()
}

func drawArrow(dc *gg.Context, x1, y1, x2, y2 float64, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawLine(x1, y1, x2, y2)
	dc.Stroke()
	angle := math.Atan2(y2-y1, x2-x1)
	const headLen = 8
	for _, off := range []float64{math.Pi - 0.4, math.Pi + 0.4} {
		dc.DrawLine(x2, y2, x2+headLen*math.Cos(angle+off), y2+headLen*math.Sin(angle+off))
		dc.Stroke()
	}
}

// Render draws the mechanism at its current poses, sized and centered by
// its own bounds.
func Render(lk *linkage.Linkage, opts *Options) image.Image {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := opts.normalized()
	return Frame(lk, MechanismBounds(lk).Pad(o.Margin), &o)
}

// SavePNG writes the image to path as a PNG.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create image file %s", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return png.Encode(f, img)
}

// Sequence renders every solved frame of a sweep into dir as
// frame_000.png, frame_001.png, and so on, numbered by frame index and
// sharing a single camera across the whole motion. Failed frames leave
// gaps in the numbering.
func Sequence(ctx context.Context, lk *linkage.Linkage, frames []kinematics.Frame, dir string, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := opts.normalized()
	bounds := SweepBounds(lk, frames).Pad(o.Margin)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for i, frame := range frames {
		if frame.Solution == nil {
			continue
		}
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			work := lk.Clone()
			if err := work.ApplyPoses(frame.Solution.Poses); err != nil {
				return err
			}
			img := Frame(work, bounds, &o)
			return SavePNG(img, filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i)))
		})
	}
	return group.Wait()
}
