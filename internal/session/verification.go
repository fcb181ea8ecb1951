package session

import (
	"fmt"
	"sync"

	"github.com/banshee-data/keyscan/internal/keytemplate"
	"github.com/banshee-data/keyscan/internal/matching"
	"github.com/banshee-data/keyscan/internal/pointcloud"
	"github.com/banshee-data/keyscan/internal/smoothing"
)

// VerificationState is the lifecycle state of a VerificationSession.
type VerificationState string

const (
	VerificationIdle   VerificationState = "idle"
	VerificationActive VerificationState = "active"
)

// ScanErrorReason qualifies a non-matching ScanResult.
type ScanErrorReason string

const (
	ScanErrorNone              ScanErrorReason = ""
	ScanErrorTooFarOrUntracked ScanErrorReason = "toofar-or-untracked"
	ScanErrorUnknown           ScanErrorReason = "unknown"
	ScanErrorNoMatch           ScanErrorReason = "no-match"
)

// ScanResult is emitted once per processed verification frame.
type ScanResult struct {
	IsMatch         bool
	ConfidenceScore float64
	ErrorReason     ScanErrorReason
}

// ResultHandler receives scan results synchronously, in frame order. It
// may call Stop or the Manager but must not submit frames itself.
type ResultHandler func(ScanResult)

// VerificationSession confirms that frames show the enrolled key. It does
// not stop itself on a confirmed match; the caller decides when to Stop.
// All methods are safe for concurrent use; frames are serialised internally.
type VerificationSession struct {
	cfg     Config
	matcher matching.Matcher

	// emitMu serialises frames and handler calls. mu guards state and is
	// never held while the handler runs, so the handler may call Stop or
	// the Manager.
	emitMu sync.Mutex

	mu       sync.Mutex
	handler  ResultHandler
	state    VerificationState
	template *keytemplate.KeyTemplate
	window   *smoothing.Window
}

// NewVerificationSession returns an Idle session.
func NewVerificationSession(cfg Config) *VerificationSession {
	return &VerificationSession{
		cfg:     cfg,
		matcher: cfg.matcher(),
		state:   VerificationIdle,
		window:  cfg.window(),
	}
}

// OnResult registers the handler that receives every scan result.
func (s *VerificationSession) OnResult(h ResultHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start begins verifying against target. An empty template is rejected
// with ErrEmptyTemplate; starting an active session returns ErrInvalidState.
func (s *VerificationSession) Start(target keytemplate.KeyTemplate) error {
	if len(target.FeatureVectors) == 0 {
		return ErrEmptyTemplate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != VerificationIdle {
		return fmt.Errorf("%w: start verification from %s", ErrInvalidState, s.state)
	}
	tmpl := target.Clone()
	s.template = &tmpl
	s.window.Reset()
	s.state = VerificationActive
	diagf("verification started: template=%s vectors=%d threshold=%.3f window=%d",
		tmpl.ID, len(tmpl.FeatureVectors), s.matcher.Threshold, s.window.Size())
	return nil
}

// OnFrame scores one frame. Frames without tracking or points, and frames
// whose extraction fails, produce a no-match result without touching the
// smoothing window. Calling OnFrame on an idle session returns
// ErrInvalidState and emits nothing.
func (s *VerificationSession) OnFrame(frame pointcloud.Frame) (ScanResult, error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.state != VerificationActive {
		st := s.state
		s.mu.Unlock()
		return ScanResult{}, fmt.Errorf("%w: frame in %s", ErrInvalidState, st)
	}
	r := s.evaluate(frame)
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(r)
	}
	return r, nil
}

func (s *VerificationSession) evaluate(frame pointcloud.Frame) ScanResult {
	if frame.Tracking.IsUnavailable() || frame.Empty() {
		tracef("verification frame skipped: points=%d tracking=%s", len(frame.Points), frame.Tracking)
		return ScanResult{ErrorReason: ScanErrorTooFarOrUntracked}
	}

	vec, err := s.cfg.Extractor.Extract(frame.Points)
	if err != nil {
		tracef("verification extraction failed: %v", err)
		return ScanResult{ErrorReason: ScanErrorUnknown}
	}

	score, rawMatch := s.matcher.Match(vec, s.template.FeatureVectors)
	confirmed := s.window.AddFrame(rawMatch)
	tracef("verification frame: score=%.4f raw=%t confirmed=%t window=%d/%d",
		score, rawMatch, confirmed, s.window.Len(), s.window.Size())

	r := ScanResult{IsMatch: confirmed, ConfidenceScore: score}
	if !confirmed && !rawMatch {
		r.ErrorReason = ScanErrorNoMatch
	}
	return r
}

// Stop returns to Idle, clearing the smoothing window and the template
// reference. It is idempotent and may be called from the result handler;
// no frame submitted after Stop returns is evaluated.
func (s *VerificationSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == VerificationIdle {
		return
	}
	diagf("verification stopped: template=%s", s.template.ID)
	s.window.Reset()
	s.template = nil
	s.state = VerificationIdle
}

// State returns the current state.
func (s *VerificationSession) State() VerificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the session is verifying.
func (s *VerificationSession) Active() bool {
	return s.State() == VerificationActive
}

// Target returns the template being verified against, if any.
func (s *VerificationSession) Target() (keytemplate.KeyTemplate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.template == nil {
		return keytemplate.KeyTemplate{}, false
	}
	return s.template.Clone(), true
}
