package goal

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

const staleness = time.Second

// snapshotAt builds the snapshot of a side last updated age ago. A negative age means never seen.
func snapshotAt(t *testing.T, side Side, now time.Time, age time.Duration) Snapshot {
	t.Helper()
	tr := NewTracker(side)
	if age >= 0 {
		tr.Update(GoalPose{FrameID: "map", Stamp: now.Add(-age)}, now.Add(-age))
	}
	return tr.Snapshot(now, staleness)
}

func TestSelectScenarios(t *testing.T) {
	now := clock.NewMock().Now()

	t.Run("left newer and fresh", func(t *testing.T) {
		sel := Select(snapshotAt(t, Left, now, 200*time.Millisecond), snapshotAt(t, Right, now, 900*time.Millisecond), false)
		test.That(t, sel.Emit, test.ShouldBeTrue)
		test.That(t, sel.Side, test.ShouldEqual, Left)
		test.That(t, sel.Reason, test.ShouldEqual, ReasonLeftNewer)
		test.That(t, sel.Goal.Stamp, test.ShouldEqual, now.Add(-200*time.Millisecond))
	})

	t.Run("docking suppresses", func(t *testing.T) {
		sel := Select(snapshotAt(t, Left, now, 200*time.Millisecond), snapshotAt(t, Right, now, 900*time.Millisecond), true)
		test.That(t, sel.Emit, test.ShouldBeFalse)
		test.That(t, sel.Reason, test.ShouldEqual, ReasonDocking)
	})

	t.Run("left stale", func(t *testing.T) {
		sel := Select(snapshotAt(t, Left, now, 1500*time.Millisecond), snapshotAt(t, Right, now, 400*time.Millisecond), false)
		test.That(t, sel.Emit, test.ShouldBeTrue)
		test.That(t, sel.Side, test.ShouldEqual, Right)
		test.That(t, sel.Reason, test.ShouldEqual, ReasonRightNewer)
	})

	t.Run("only right ever seen", func(t *testing.T) {
		sel := Select(snapshotAt(t, Left, now, -1), snapshotAt(t, Right, now, 100*time.Millisecond), false)
		test.That(t, sel.Emit, test.ShouldBeTrue)
		test.That(t, sel.Side, test.ShouldEqual, Right)
	})

	t.Run("newest is stale", func(t *testing.T) {
		sel := Select(snapshotAt(t, Left, now, 2*time.Second), snapshotAt(t, Right, now, 3*time.Second), false)
		test.That(t, sel.Emit, test.ShouldBeFalse)
		test.That(t, sel.Reason, test.ShouldEqual, ReasonStale)
	})

	t.Run("exactly at threshold is stale", func(t *testing.T) {
		sel := Select(snapshotAt(t, Left, now, staleness), snapshotAt(t, Right, now, -1), false)
		test.That(t, sel.Emit, test.ShouldBeFalse)
		test.That(t, sel.Reason, test.ShouldEqual, ReasonStale)
	})
}

func TestSelectEqualAgesEmitNothing(t *testing.T) {
	now := clock.NewMock().Now()
	for _, age := range []time.Duration{-1, 0, 300 * time.Millisecond, 5 * time.Second} {
		for _, docking := range []bool{false, true} {
			sel := Select(snapshotAt(t, Left, now, age), snapshotAt(t, Right, now, age), docking)
			test.That(t, sel.Emit, test.ShouldBeFalse)
			test.That(t, sel.Reason, test.ShouldEqual, ReasonEqualAge)
		}
	}
	test.That(t, string(ReasonEqualAge), test.ShouldEqual, "equal_age")
}

// ruleTable is the selection rule written out literally, with never seen as an infinite age.
func ruleTable(leftAge, rightAge time.Duration, docking bool) (Side, bool) {
	switch {
	case leftAge < rightAge && leftAge < staleness && !docking:
		return Left, true
	case leftAge > rightAge && rightAge < staleness && !docking:
		return Right, true
	default:
		return 0, false
	}
}

func TestSelectMatchesRuleTable(t *testing.T) {
	now := clock.NewMock().Now()
	ages := []time.Duration{
		-1, 0, time.Millisecond, 200 * time.Millisecond, 999 * time.Millisecond,
		staleness, 1500 * time.Millisecond, time.Hour,
	}
	effective := func(age time.Duration) time.Duration {
		if age < 0 {
			return NeverSeenAge
		}
		return age
	}
	for _, leftAge := range ages {
		for _, rightAge := range ages {
			for _, docking := range []bool{false, true} {
				name := fmt.Sprintf("%v/%v/%v", leftAge, rightAge, docking)
				sel := Select(snapshotAt(t, Left, now, leftAge), snapshotAt(t, Right, now, rightAge), docking)
				side, emit := ruleTable(effective(leftAge), effective(rightAge), docking)
				test.That(t, sel.Emit, test.ShouldEqual, emit)
				if emit {
					test.That(t, sel.Side, test.ShouldEqual, side)
				}
				if leftAge == rightAge {
					test.That(t, sel.Emit, test.ShouldBeFalse)
				}
				if t.Failed() {
					t.Fatalf("mismatch at %s", name)
				}
			}
		}
	}
}
