// Package main is a command line tool for solving planar linkage documents:
// a one-shot solve at an optional driving angle, a rendered sweep through a
// range of driving angles, point path tracing, and a watch mode that
// re-solves whenever the document changes on disk.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/planarmech/linkage2d/kinematics"
	"github.com/planarmech/linkage2d/linkage"
	"github.com/planarmech/linkage2d/render"
)

var logger = golog.NewDevelopmentLogger("linkage2d")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile   string  `flag:"0,required,usage=linkage json file"`
	DrivingJoint string  `flag:"joint,usage=driving joint id (default: first revolute joint on a grounded link)"`
	Angle        string  `flag:"angle,usage=driving angle for a one-shot solve (document angle unit)"`
	SweepStart   float64 `flag:"sweep-start,default=0,usage=first driving angle of a sweep"`
	SweepEnd     float64 `flag:"sweep-end,default=360,usage=last driving angle of a sweep"`
	Frames       int     `flag:"frames,usage=number of sweep frames; 0 means one-shot solve"`
	Trace        string  `flag:"trace,usage=link.point whose world path to plot over a sweep"`
	OutDir       string  `flag:"out,default=.,usage=directory solved documents and images are written to"`
	Simplex      bool    `flag:"simplex,usage=use the derivative-free simplex solver"`
	Watch        bool    `flag:"watch,usage=re-solve whenever the document file changes"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Frames > 0 && argsParsed.Angle != "" {
		return errors.New("-angle applies to one-shot solves; use -sweep-start/-sweep-end with -frames")
	}
	if err := os.MkdirAll(argsParsed.OutDir, 0o755); err != nil {
		return err
	}

	if argsParsed.Watch {
		return watchAndSolve(ctx, argsParsed, logger)
	}
	return solveDocument(ctx, argsParsed, logger)
}

func newSolver(args Arguments, logger golog.Logger) kinematics.Solver {
	if args.Simplex {
		return kinematics.NewNelderMeadSolver(nil, logger)
	}
	return kinematics.NewLeastSquaresSolver(nil, logger)
}

func solveDocument(ctx context.Context, args Arguments, logger golog.Logger) error {
	lk, err := linkage.ParseFile(args.ConfigFile)
	if err != nil {
		return err
	}
	solver := newSolver(args, logger)

	if args.Frames > 0 {
		return solveSweep(ctx, solver, lk, args, logger)
	}
	return solveOnce(ctx, solver, lk, args, logger)
}

func solveOnce(ctx context.Context, solver kinematics.Solver, lk *linkage.Linkage, args Arguments, logger golog.Logger) error {
	var driving []kinematics.DrivingConstraint
	if args.Angle != "" {
		target, err := strconv.ParseFloat(args.Angle, 64)
		if err != nil {
			return errors.Wrapf(err, "bad driving angle %q", args.Angle)
		}
		joint, err := drivingJoint(lk, args.DrivingJoint)
		if err != nil {
			return err
		}
		driving = append(driving, kinematics.DrivingConstraint{
			Child:  joint.Child(),
			Parent: joint.Parent(),
			Angle:  target,
		})
	}

	sol, err := solver.Solve(ctx, lk, nil, driving...)
	if err != nil {
		return err
	}
	logger.Infow("solved", "mechanism", lk.ID(), "iterations", sol.Iterations, "residual", sol.Residual)
	if err := kinematics.CheckLimits(lk); err != nil {
		logger.Warnw("solved pose violates joint limits", "error", err)
	}

	base := strings.TrimSuffix(filepath.Base(args.ConfigFile), filepath.Ext(args.ConfigFile))
	solvedPath := filepath.Join(args.OutDir, "solved_"+base+".json")
	if err := writeDocument(lk, solvedPath); err != nil {
		return err
	}
	imgPath := filepath.Join(args.OutDir, base+".png")
	if err := render.SavePNG(render.Render(lk, nil), imgPath); err != nil {
		return err
	}
	logger.Infof("wrote %s and %s", solvedPath, imgPath)
	return nil
}

func solveSweep(ctx context.Context, solver kinematics.Solver, lk *linkage.Linkage, args Arguments, logger golog.Logger) error {
	frames, err := kinematics.Sweep(ctx, solver, lk, kinematics.SweepConfig{
		DrivingJointID:  args.DrivingJoint,
		Targets:         kinematics.SweepRange(args.SweepStart, args.SweepEnd, args.Frames),
		SkipUnreachable: true,
	})
	if err != nil {
		return err
	}
	solved := 0
	for _, frame := range frames {
		if frame.Err != nil {
			logger.Warnw("unreachable frame", "target", frame.Target, "error", frame.Err)
			continue
		}
		solved++
	}
	logger.Infow("sweep finished", "mechanism", lk.ID(), "frames", len(frames), "solved", solved)

	if err := render.Sequence(ctx, lk, frames, args.OutDir, nil); err != nil {
		return err
	}
	if args.Trace != "" {
		linkID, pointID, ok := strings.Cut(args.Trace, ".")
		if !ok {
			return errors.Errorf("bad trace target %q (expected link.point)", args.Trace)
		}
		tracePath := filepath.Join(args.OutDir, fmt.Sprintf("trace_%s_%s.png", linkID, pointID))
		if err := render.TracePlot(lk, frames, linkID, pointID, tracePath); err != nil {
			return err
		}
		logger.Infof("wrote %s", tracePath)
	}
	return nil
}

func drivingJoint(lk *linkage.Linkage, jointID string) (*linkage.RevoluteJoint, error) {
	if jointID == "" {
		return kinematics.FindDrivingJoint(lk)
	}
	j, ok := lk.Joint(jointID)
	if !ok {
		return nil, linkage.NewJointReferenceError(jointID)
	}
	revolute, ok := j.(*linkage.RevoluteJoint)
	if !ok {
		return nil, errors.Errorf("driving joint %q is not a revolute joint", jointID)
	}
	return revolute, nil
}

func writeDocument(lk *linkage.Linkage, path string) error {
	jsonData, err := json.MarshalIndent(lk, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, jsonData, 0o644)
}

func watchAndSolve(ctx context.Context, args Arguments, logger golog.Logger) error {
	if err := solveDocument(ctx, args, logger); err != nil {
		logger.Errorw("solve failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		utils.UncheckedErrorFunc(watcher.Close)
	}()
	// Watch the directory: editors typically replace the file, which drops
	// a watch on the file itself.
	if err := watcher.Add(filepath.Dir(args.ConfigFile)); err != nil {
		return err
	}
	target := filepath.Clean(args.ConfigFile)
	logger.Infof("watching %s", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debugw("document changed", "event", event.Op.String())
			if err := solveDocument(ctx, args, logger); err != nil {
				logger.Errorw("solve failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorw("watch error", "error", err)
		}
	}
}
