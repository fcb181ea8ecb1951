package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/keyscan/internal/keytemplate"
	"github.com/banshee-data/keyscan/internal/pointcloud"
	"github.com/banshee-data/keyscan/internal/timeutil"
)

// EnrollmentState is the lifecycle state of an EnrollmentSession.
type EnrollmentState string

const (
	EnrollmentIdle              EnrollmentState = "idle"
	EnrollmentAwaitingSelection EnrollmentState = "awaiting-selection"
	EnrollmentCapturing         EnrollmentState = "capturing"
	EnrollmentCompleted         EnrollmentState = "completed"
	EnrollmentAborted           EnrollmentState = "aborted"
)

// Terminal reports whether no further transitions are possible.
func (s EnrollmentState) Terminal() bool {
	return s == EnrollmentCompleted || s == EnrollmentAborted
}

// EnrollmentProgress is emitted once per processed enrollment frame.
type EnrollmentProgress struct {
	State      EnrollmentState
	Accepted   bool            // frame contributed a vector
	Rejection  RejectionReason // set when the quality gate or extraction refused the frame
	FrameCount int             // accepted vectors so far
	Progress   float64         // min(1, FrameCount/MaxFrames)
	Message    string          // advisory text for the user
}

// ProgressHandler receives enrollment progress synchronously, in frame
// order. It may call Abort, Complete or the Manager but must not submit
// frames itself.
type ProgressHandler func(EnrollmentProgress)

// EnrollmentSession accumulates feature vectors from a live frame stream
// into a KeyTemplate. All methods are safe for concurrent use; frames are
// serialised internally.
type EnrollmentSession struct {
	cfg   Config
	clock timeutil.Clock

	// emitMu serialises frames and handler calls; mu is released before
	// the handler runs.
	emitMu sync.Mutex

	mu      sync.Mutex
	handler ProgressHandler
	state   EnrollmentState
	roi     *pointcloud.ROI
	vectors [][]float32
	started time.Time
	elapsed time.Duration // frozen once the session is terminal
}

// NewEnrollmentSession returns an Idle session. A nil clock uses the
// real clock.
func NewEnrollmentSession(cfg Config, clock timeutil.Clock) *EnrollmentSession {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &EnrollmentSession{cfg: cfg, clock: clock, state: EnrollmentIdle}
}

// OnProgress registers the handler that receives every progress event.
func (s *EnrollmentSession) OnProgress(h ProgressHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start leaves Idle. Without an ROI the session waits for a selection
// event; with one it starts capturing immediately. Starting twice is
// rejected rather than silently reinitialising.
func (s *EnrollmentSession) Start(initialROI *pointcloud.ROI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != EnrollmentIdle {
		return fmt.Errorf("%w: start enrollment from %s", ErrInvalidState, s.state)
	}
	s.started = s.clock.Now()
	if initialROI == nil {
		s.state = EnrollmentAwaitingSelection
	} else {
		roi := *initialROI
		s.roi = &roi
		s.state = EnrollmentCapturing
	}
	diagf("enrollment started: state=%s max_frames=%d min_frames=%d", s.state, s.cfg.MaxFrames, s.cfg.MinFrames)
	return nil
}

// OnFrame processes one frame. selection is the user's object pick on
// this tick, if any. Frames submitted outside AwaitingSelection or
// Capturing return ErrInvalidState and emit nothing.
func (s *EnrollmentSession) OnFrame(frame pointcloud.Frame, selection *pointcloud.SelectionEvent) (EnrollmentProgress, error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	var p EnrollmentProgress
	switch s.state {
	case EnrollmentAwaitingSelection:
		p = s.awaitSelection(selection)
	case EnrollmentCapturing:
		p = s.capture(frame)
	default:
		st := s.state
		s.mu.Unlock()
		return EnrollmentProgress{}, fmt.Errorf("%w: frame in %s", ErrInvalidState, st)
	}
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(p)
	}
	return p, nil
}

func (s *EnrollmentSession) awaitSelection(selection *pointcloud.SelectionEvent) EnrollmentProgress {
	if selection == nil {
		return s.progress(false, RejectNone, msgAwaitingSelection)
	}
	roi := selection.ROI
	s.roi = &roi
	s.state = EnrollmentCapturing
	diagf("enrollment selection received: roi=%+v", roi)
	return s.progress(false, RejectNone, msgSelected)
}

func (s *EnrollmentSession) capture(frame pointcloud.Frame) EnrollmentProgress {
	if len(s.vectors) >= s.cfg.MaxFrames {
		return s.progress(false, RejectNone, msgFull)
	}

	if reason := s.cfg.gate(frame); reason != RejectNone {
		tracef("enrollment frame rejected: reason=%s points=%d tracking=%s", reason, len(frame.Points), frame.Tracking)
		return s.progress(false, reason, reason.Message())
	}

	vec, err := s.cfg.Extractor.Extract(frame.Points)
	if err != nil {
		tracef("enrollment extraction failed: %v", err)
		return s.progress(false, RejectExtractionFailed, RejectExtractionFailed.Message())
	}
	s.vectors = append(s.vectors, vec)
	tracef("enrollment frame accepted: count=%d points=%d", len(s.vectors), len(frame.Points))

	msg := msgCapturing
	switch {
	case len(s.vectors) >= s.cfg.MaxFrames:
		msg = msgFull
	case len(s.vectors) >= s.cfg.MinFrames:
		msg = msgReady
	case frame.Tracking.State == pointcloud.TrackingLimited:
		msg = limitedTrackingMessage(frame.Tracking)
	}
	return s.progress(true, RejectNone, msg)
}

func (s *EnrollmentSession) progress(accepted bool, reason RejectionReason, msg string) EnrollmentProgress {
	return EnrollmentProgress{
		State:      s.state,
		Accepted:   accepted,
		Rejection:  reason,
		FrameCount: len(s.vectors),
		Progress:   s.progressRatio(),
		Message:    msg,
	}
}

func (s *EnrollmentSession) progressRatio() float64 {
	if s.cfg.MaxFrames <= 0 {
		return 0
	}
	return min(1.0, float64(len(s.vectors))/float64(s.cfg.MaxFrames))
}

// Complete builds the KeyTemplate from every accumulated vector and moves
// to Completed. Before MinFrames vectors it returns an
// *InsufficientFramesError and the session keeps capturing.
func (s *EnrollmentSession) Complete() (keytemplate.KeyTemplate, error) {
	return s.CompleteWith(nil)
}

// CompleteWith is Complete with a commit step: commit receives the built
// template and, if it fails, the session stays in Capturing with its
// vectors intact and the error is returned.
func (s *EnrollmentSession) CompleteWith(commit func(keytemplate.KeyTemplate) error) (keytemplate.KeyTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != EnrollmentCapturing {
		return keytemplate.KeyTemplate{}, fmt.Errorf("%w: complete from %s", ErrInvalidState, s.state)
	}
	if len(s.vectors) < s.cfg.MinFrames {
		return keytemplate.KeyTemplate{}, &InsufficientFramesError{Have: len(s.vectors), Need: s.cfg.MinFrames}
	}

	tmpl, err := keytemplate.New(s.clock.Now(), s.vectors)
	if err != nil {
		return keytemplate.KeyTemplate{}, fmt.Errorf("build template: %w", err)
	}
	if commit != nil {
		if err := commit(tmpl); err != nil {
			return keytemplate.KeyTemplate{}, err
		}
	}

	s.state = EnrollmentCompleted
	s.vectors = nil
	s.elapsed = s.clock.Since(s.started)
	diagf("enrollment completed: template=%s vectors=%d elapsed=%s", tmpl.ID, len(tmpl.FeatureVectors), s.elapsed)
	return tmpl, nil
}

// Abort discards all accumulated vectors and moves to Aborted. It is a
// no-op on a terminal session and may be called from the progress
// handler.
func (s *EnrollmentSession) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	if s.state != EnrollmentIdle {
		s.elapsed = s.clock.Since(s.started)
	}
	diagf("enrollment aborted: state=%s discarded=%d elapsed=%s", s.state, len(s.vectors), s.elapsed)
	s.state = EnrollmentAborted
	s.vectors = nil
}

// State returns the current state.
func (s *EnrollmentSession) State() EnrollmentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the session can still take frames.
func (s *EnrollmentSession) Active() bool {
	st := s.State()
	return st == EnrollmentAwaitingSelection || st == EnrollmentCapturing
}

// Elapsed returns the time since Start, frozen when the session completes
// or aborts. It is zero before Start.
func (s *EnrollmentSession) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == EnrollmentIdle, s.state.Terminal():
		return s.elapsed
	default:
		return s.clock.Since(s.started)
	}
}

// FrameCount returns the number of accepted vectors.
func (s *EnrollmentSession) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vectors)
}

// Progress returns min(1, FrameCount/MaxFrames).
func (s *EnrollmentSession) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressRatio()
}

// ROI returns the selected region of interest, or nil before selection.
func (s *EnrollmentSession) ROI() *pointcloud.ROI {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roi == nil {
		return nil
	}
	roi := *s.roi
	return &roi
}
