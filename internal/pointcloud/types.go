package pointcloud

import "fmt"

// Point is a single sample in sensor world coordinates (metres, Y up).
type Point struct {
	X, Y, Z float32
}

// TrackingState is the coarse tracking quality reported by the sensor.
type TrackingState string

const (
	TrackingNormal      TrackingState = "normal"
	TrackingLimited     TrackingState = "limited"
	TrackingUnavailable TrackingState = "unavailable"
)

// TrackingQuality pairs a TrackingState with the sensor's reason for a
// Limited state (e.g. "excessive-motion", "insufficient-features").
//
// The zero value has an empty State and counts as Unavailable, so a Frame
// built without tracking is always rejected. ParseTrackingState, used for
// recordings, maps an absent label to Normal instead.
type TrackingQuality struct {
	State  TrackingState
	Reason string
}

// Normal returns a TrackingQuality in the Normal state.
func Normal() TrackingQuality { return TrackingQuality{State: TrackingNormal} }

// Limited returns a TrackingQuality in the Limited state with a reason.
func Limited(reason string) TrackingQuality {
	return TrackingQuality{State: TrackingLimited, Reason: reason}
}

// Unavailable returns a TrackingQuality in the Unavailable state.
func Unavailable() TrackingQuality { return TrackingQuality{State: TrackingUnavailable} }

// IsUnavailable reports whether the sensor lost tracking entirely or no
// state was set.
func (q TrackingQuality) IsUnavailable() bool {
	return q.State == TrackingUnavailable || q.State == ""
}

func (q TrackingQuality) String() string {
	if q.State == TrackingLimited && q.Reason != "" {
		return fmt.Sprintf("%s(%s)", q.State, q.Reason)
	}
	return string(q.State)
}

// ParseTrackingState converts a recorded tracking label to a TrackingState.
func ParseTrackingState(s string) (TrackingState, error) {
	switch TrackingState(s) {
	case TrackingNormal, TrackingLimited, TrackingUnavailable:
		return TrackingState(s), nil
	case "":
		return TrackingNormal, nil
	default:
		return "", fmt.Errorf("unknown tracking state %q", s)
	}
}

// ROI is a normalised region of interest in image space; all fields lie in [0,1].
type ROI struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the rectangle is non-empty and inside the unit square.
func (r ROI) Valid() bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= 1 && r.Y+r.Height <= 1
}

// SelectionEvent is raised by the presentation layer when the user picks
// the target object on screen.
type SelectionEvent struct {
	ROI ROI
}

// Frame is one sensor tick: the sampled points, tracking quality and an
// optional region of interest. Frames are immutable once produced; the
// core never retains Points beyond the call that processes the frame.
type Frame struct {
	Points   []Point
	Tracking TrackingQuality
	ROI      *ROI
}

// Empty reports whether the frame carries no points.
func (f Frame) Empty() bool { return len(f.Points) == 0 }
