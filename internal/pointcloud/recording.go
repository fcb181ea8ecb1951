package pointcloud

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// maxRecordLineBytes bounds a single JSON line; a dense depth frame of
// ~50k points fits comfortably.
const maxRecordLineBytes = 16 * 1024 * 1024

// Record is the on-disk form of one recorded frame (one JSON object per line).
type Record struct {
	Points   [][3]float32 `json:"points"`
	Tracking string       `json:"tracking,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	ROI      *ROI         `json:"roi,omitempty"`
	Select   bool         `json:"select,omitempty"`
}

// RecordedFrame is a decoded Record: the frame plus the selection event
// the user raised on that tick, if any.
type RecordedFrame struct {
	Frame     Frame
	Selection *SelectionEvent
}

// ReadRecording decodes a JSON-lines frame recording. Blank lines are
// skipped; a malformed line aborts with its line number.
func ReadRecording(r io.Reader) ([]RecordedFrame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordLineBytes)

	var out []RecordedFrame
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("recording line %d: %w", line, err)
		}
		rf, err := rec.decode()
		if err != nil {
			return nil, fmt.Errorf("recording line %d: %w", line, err)
		}
		out = append(out, rf)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return out, nil
}

func (rec Record) decode() (RecordedFrame, error) {
	state, err := ParseTrackingState(rec.Tracking)
	if err != nil {
		return RecordedFrame{}, err
	}
	pts := make([]Point, len(rec.Points))
	for i, p := range rec.Points {
		pts[i] = Point{X: p[0], Y: p[1], Z: p[2]}
	}
	rf := RecordedFrame{
		Frame: Frame{
			Points:   pts,
			Tracking: TrackingQuality{State: state, Reason: rec.Reason},
			ROI:      rec.ROI,
		},
	}
	if rec.Select {
		sel := SelectionEvent{ROI: ROI{X: 0, Y: 0, Width: 1, Height: 1}}
		if rec.ROI != nil {
			sel.ROI = *rec.ROI
		}
		rf.Selection = &sel
	}
	return rf, nil
}

// WriteRecording encodes frames as JSON lines, the inverse of ReadRecording.
func WriteRecording(w io.Writer, frames []RecordedFrame) error {
	enc := json.NewEncoder(w)
	for i, rf := range frames {
		rec := Record{
			Points:   make([][3]float32, len(rf.Frame.Points)),
			Tracking: string(rf.Frame.Tracking.State),
			Reason:   rf.Frame.Tracking.Reason,
			ROI:      rf.Frame.ROI,
		}
		for j, p := range rf.Frame.Points {
			rec.Points[j] = [3]float32{p.X, p.Y, p.Z}
		}
		if rf.Selection != nil {
			rec.Select = true
			if rec.ROI == nil {
				roi := rf.Selection.ROI
				rec.ROI = &roi
			}
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}
