// Package marker describes fiducial marker detections and how their identities are read.
package marker

import (
	"regexp"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// ID identifies a single fiducial marker.
type ID int

// NoID is the ID that never matches a detection. Any negative configured ID is treated as NoID.
const NoID ID = -1

var labelPattern = regexp.MustCompile(`aruco_marker_(\d+)`)

// ExtractID reads the marker index embedded in a frame label such as "aruco_marker_7". It returns
// NoID and false when the label carries no index or the index does not fit in an int.
func ExtractID(label string) (ID, bool) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return NoID, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return NoID, false
	}
	return ID(n), true
}

// A Detection is one marker seen by a camera, expressed in that camera's frame.
type Detection struct {
	Label       string
	Position    r3.Vector
	Orientation quat.Number
	Stamp       time.Time
}

// A Batch is every marker one camera reported in a single frame.
type Batch struct {
	FrameID    string
	Stamp      time.Time
	Detections []Detection
}

// EffectiveLabel returns the label of the i-th detection, falling back to the batch frame id,
// which is where upstream detectors put the marker label.
func (b Batch) EffectiveLabel(i int) string {
	if label := b.Detections[i].Label; label != "" {
		return label
	}
	return b.FrameID
}

// Matching returns the detections whose label carries the desired ID, in batch order.
func (b Batch) Matching(desired ID) []Detection {
	if desired < 0 {
		return nil
	}
	var matches []Detection
	for i, det := range b.Detections {
		id, ok := ExtractID(b.EffectiveLabel(i))
		if !ok || id != desired {
			continue
		}
		if det.Stamp.IsZero() {
			det.Stamp = b.Stamp
		}
		matches = append(matches, det)
	}
	return matches
}
