// Package pointcloud owns the sensor-facing data model of keyscan.
//
// Responsibilities: the PointCloudFrame contract handed over by the
// sensor/tracking collaborator, tracking quality, region-of-interest
// selection, axis-aligned bounds, and JSON-lines frame recordings used
// for offline replay.
// Key types: Point, Frame, TrackingQuality, Bounds.
//
// Dependency rule: this package depends on nothing else in keyscan.
// No feature extraction, matching or storage code is allowed here.
package pointcloud
