package session

import (
	"fmt"

	"github.com/banshee-data/keyscan/internal/pointcloud"
)

// RejectionReason explains why an enrollment frame was not counted.
type RejectionReason string

const (
	RejectNone             RejectionReason = ""
	RejectNoPoints         RejectionReason = "no-points"
	RejectTooFar           RejectionReason = "too-far"
	RejectTooClose         RejectionReason = "too-close"
	RejectPoorTracking     RejectionReason = "poor-tracking"
	RejectExtractionFailed RejectionReason = "extraction-failed"
)

// Advisory messages shown to the user while enrolling.
const (
	msgAwaitingSelection = "Tap the object to select it."
	msgSelected          = "Object selected. Move slowly around it."
	msgCapturing         = "Capturing. Keep moving slowly around the object."
	msgReady             = "Enough views captured. You can finish or keep scanning."
	msgFull              = "Capture complete. Finish enrollment."
	msgLimitedTracking   = "Tracking is limited (%s). Move the device slowly."
)

var rejectionMessages = map[RejectionReason]string{
	RejectNoPoints:         "No surface detected. Point the camera at the object.",
	RejectTooFar:           "Object too far or too small. Move closer.",
	RejectTooClose:         "Object too close or too large. Move back.",
	RejectPoorTracking:     "Tracking lost. Hold the device steady.",
	RejectExtractionFailed: "Could not read the object's shape. Hold still.",
}

// Message returns the user-facing guidance for r.
func (r RejectionReason) Message() string {
	return rejectionMessages[r]
}

// gate applies the enrollment quality checks in order: tracking, point
// count, bounding-box volume. Non-finite samples are ignored, the same
// points the extractor would drop; a frame with no finite point has no
// surface to measure.
func (c Config) gate(frame pointcloud.Frame) RejectionReason {
	if frame.Tracking.IsUnavailable() {
		return RejectPoorTracking
	}
	points := pointcloud.FinitePoints(frame.Points)
	if len(points) == 0 {
		return RejectNoPoints
	}
	bounds, _ := pointcloud.ComputeBounds(points)
	vol := bounds.Volume()
	switch {
	case vol < c.MinVolume:
		return RejectTooFar
	case vol > c.MaxVolume:
		return RejectTooClose
	}
	return RejectNone
}

func limitedTrackingMessage(q pointcloud.TrackingQuality) string {
	reason := q.Reason
	if reason == "" {
		reason = "unknown"
	}
	return fmt.Sprintf(msgLimitedTracking, reason)
}
