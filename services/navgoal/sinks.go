package navgoal

import (
	"context"
	"time"

	"go.viam.com/navgoal/goal"
	"go.viam.com/navgoal/recorder"
	"go.viam.com/navgoal/ros"
	"go.viam.com/navgoal/web"
)

// A GoalSink is told about every goal the service publishes.
type GoalSink interface {
	GoalPublished(ctx context.Context, sel goal.Selection, msg ros.PoseStamped, at time.Time) error
}

// GoalSinkFunc adapts a function to a GoalSink.
type GoalSinkFunc func(ctx context.Context, sel goal.Selection, msg ros.PoseStamped, at time.Time) error

// GoalPublished calls f.
func (f GoalSinkFunc) GoalPublished(ctx context.Context, sel goal.Selection, msg ros.PoseStamped, at time.Time) error {
	return f(ctx, sel, msg, at)
}

// RecorderSink stores published goals in a goal history.
func RecorderSink(rec *recorder.Recorder) GoalSink {
	return GoalSinkFunc(func(ctx context.Context, sel goal.Selection, msg ros.PoseStamped, at time.Time) error {
		return rec.Record(ctx, sel.Side, sel.Goal, at)
	})
}

// MonitorSink streams published goals to the monitor's websocket clients.
func MonitorSink(srv *web.Server) GoalSink {
	return GoalSinkFunc(func(ctx context.Context, sel goal.Selection, msg ros.PoseStamped, at time.Time) error {
		return srv.PublishGoal(sel, msg)
	})
}
