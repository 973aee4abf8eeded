// Package action describes the request/feedback/result exchange spoken by the task servers that
// run next to navgoal. Nothing in navgoal imports it yet: navgoal runs no action server or client
// itself, and the shapes live here so those servers and their clients agree on them.
package action

import (
	"context"

	"github.com/google/uuid"
)

// A GoalID identifies one submitted goal.
type GoalID uuid.UUID

// NewGoalID returns a random goal ID.
func NewGoalID() GoalID {
	return GoalID(uuid.New())
}

// ParseGoalID parses the string form of a goal ID.
func ParseGoalID(s string) (GoalID, error) {
	id, err := uuid.Parse(s)
	return GoalID(id), err
}

func (id GoalID) String() string {
	return uuid.UUID(id).String()
}

// GoalResponse is a server's answer to a submitted goal.
type GoalResponse int

// Goal responses.
const (
	Reject GoalResponse = iota
	AcceptAndExecute
	AcceptAndDefer
)

// CancelResponse is a server's answer to a cancel request.
type CancelResponse int

// Cancel responses.
const (
	CancelReject CancelResponse = iota
	CancelAccept
)

// Status is where a goal is in its life.
type Status int

// Goal statuses.
const (
	StatusUnknown Status = iota
	StatusAccepted
	StatusExecuting
	StatusCanceling
	StatusSucceeded
	StatusCanceled
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusExecuting:
		return "executing"
	case StatusCanceling:
		return "canceling"
	case StatusSucceeded:
		return "succeeded"
	case StatusCanceled:
		return "canceled"
	case StatusAborted:
		return "aborted"
	case StatusUnknown:
	}
	return "unknown"
}

// Terminal reports whether the goal has finished.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusCanceled || s == StatusAborted
}

// CanTransition reports whether a goal in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusAccepted:
		return next == StatusExecuting || next == StatusCanceling
	case StatusExecuting:
		return next == StatusCanceling || next == StatusSucceeded || next == StatusAborted
	case StatusCanceling:
		return next == StatusCanceled || next == StatusSucceeded || next == StatusAborted
	case StatusUnknown:
		return next == StatusAccepted
	case StatusSucceeded, StatusCanceled, StatusAborted:
	}
	return false
}

// A GoalHandle is the server side of one accepted goal with feedback F and result R.
type GoalHandle[F, R any] interface {
	ID() GoalID
	Status() Status
	// IsCanceling reports whether a client asked to cancel and the server agreed.
	IsCanceling() bool
	PublishFeedback(ctx context.Context, feedback F) error
	Succeed(result R) error
	Canceled(result R) error
	Abort(result R) error
}

// Handlers are the callbacks a server runs for goal G with feedback F and result R.
type Handlers[G, F, R any] struct {
	HandleGoal   func(ctx context.Context, id GoalID, goal G) GoalResponse
	HandleCancel func(ctx context.Context, handle GoalHandle[F, R]) CancelResponse
	// HandleAccepted must return quickly; long running work belongs on its own goroutine.
	HandleAccepted func(handle GoalHandle[F, R])
}

// A Server serves one named action.
type Server[G, F, R any] interface {
	Name() string
	Handlers() Handlers[G, F, R]
	Close() error
}

// A Client submits goals to a named action.
type Client[G, F, R any] interface {
	// SendGoal submits goal. onFeedback, if not nil, is called for every feedback message.
	SendGoal(ctx context.Context, goal G, onFeedback func(F)) (GoalID, GoalResponse, error)
	Cancel(ctx context.Context, id GoalID) (CancelResponse, error)
	// Result blocks until the goal is terminal.
	Result(ctx context.Context, id GoalID) (Status, R, error)
}
