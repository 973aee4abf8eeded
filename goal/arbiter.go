package goal

// Reason explains an arbitration outcome.
type Reason string

// Arbitration outcomes.
const (
	ReasonLeftNewer  Reason = "left_newer"
	ReasonRightNewer Reason = "right_newer"
	ReasonDocking    Reason = "docking"
	ReasonStale      Reason = "stale"
	ReasonEqualAge   Reason = "equal_age"
)

// A Selection is what one publish tick decided.
type Selection struct {
	Emit   bool
	Side   Side
	Goal   GoalPose
	Reason Reason
}

// Select picks the goal to publish this tick, if any. The side confirmed most recently wins as
// long as it is fresh and the robot is not docking. Equal ages, including two sides that were never
// seen, select nothing.
func Select(left, right Snapshot, docking bool) Selection {
	switch {
	case left.Age < right.Age:
		return pick(left, docking, ReasonLeftNewer)
	case left.Age > right.Age:
		return pick(right, docking, ReasonRightNewer)
	default:
		return Selection{Reason: ReasonEqualAge}
	}
}

func pick(newest Snapshot, docking bool, reason Reason) Selection {
	if newest.Freshness != Fresh {
		return Selection{Reason: ReasonStale}
	}
	if docking {
		return Selection{Reason: ReasonDocking}
	}
	return Selection{Emit: true, Side: newest.Side, Goal: newest.Goal, Reason: reason}
}
