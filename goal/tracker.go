package goal

import (
	"math"
	"sync"
	"time"
)

// NeverSeenAge is the age of a side that has never produced a goal.
const NeverSeenAge = time.Duration(math.MaxInt64)

// Freshness classifies a side's goal at a single instant.
type Freshness int

// The freshness states.
const (
	NeverSeen Freshness = iota
	Fresh
	Stale
)

func (f Freshness) String() string {
	switch f {
	case NeverSeen:
		return "never_seen"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// A Snapshot is a consistent copy of one side's goal and its age.
type Snapshot struct {
	Side      Side
	Goal      GoalPose
	Updated   time.Time
	Age       time.Duration
	Freshness Freshness
}

// A Tracker holds the latest goal for one side. The goal is kept until overwritten; only its age
// grows.
type Tracker struct {
	side Side

	mu      sync.Mutex
	goal    GoalPose
	updated time.Time
	seen    bool
}

// NewTracker returns a tracker for side that has never seen a goal.
func NewTracker(side Side) *Tracker {
	return &Tracker{side: side}
}

// Side returns the side this tracker follows.
func (t *Tracker) Side() Side {
	return t.side
}

// Update records g as the side's goal, last confirmed at updated.
func (t *Tracker) Update(g GoalPose, updated time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.goal = g
	t.updated = updated
	t.seen = true
}

// Snapshot returns the goal with its age at now. A goal is fresh when its age is strictly below
// staleness.
func (t *Tracker) Snapshot(now time.Time, staleness time.Duration) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := Snapshot{Side: t.side, Goal: t.goal, Updated: t.updated}
	switch {
	case !t.seen:
		snap.Age = NeverSeenAge
		snap.Freshness = NeverSeen
	default:
		snap.Age = now.Sub(t.updated)
		if snap.Age < staleness {
			snap.Freshness = Fresh
		} else {
			snap.Freshness = Stale
		}
	}
	return snap
}
