package goal

import "go.uber.org/atomic"

// DefaultDockingThreshold is the longitudinal distance, in meters, under which the robot is
// considered close enough to dock.
const DefaultDockingThreshold = 0.3

// A DockingEvaluator judges whether a marker is close enough to dock.
type DockingEvaluator struct {
	Threshold float64
}

// Docking reports whether distance is strictly below the threshold.
func (e DockingEvaluator) Docking(distance float64) bool {
	return distance < e.Threshold
}

// DockingStatus is the single docking flag shared by both sides. The last write wins regardless of
// which side made it.
type DockingStatus struct {
	docking atomic.Bool
}

// Set stores the latest docking judgement.
func (s *DockingStatus) Set(docking bool) {
	s.docking.Store(docking)
}

// Docking returns the latest docking judgement.
func (s *DockingStatus) Docking() bool {
	return s.docking.Load()
}
