package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/keyscan/internal/keystore"
	"github.com/banshee-data/keyscan/internal/keytemplate"
	"github.com/banshee-data/keyscan/internal/pointcloud"
	"github.com/banshee-data/keyscan/internal/timeutil"
)

// Manager is one key-management context. It owns the enrolled-key cache,
// allows at most one active enrollment or verification session, and
// persists templates through the TemplateStore. The cache only changes
// after the store has confirmed a save or delete.
type Manager struct {
	cfg   Config
	store keystore.TemplateStore
	clock timeutil.Clock
	obs   Observer

	mu           sync.Mutex
	keys         map[uuid.UUID]keytemplate.KeyTemplate
	enrollment   *EnrollmentSession
	verification *VerificationSession
}

// NewManager validates cfg and returns a Manager with an empty key cache.
// Call LoadKeys to populate it from the store. A nil clock uses the real
// clock.
func NewManager(cfg Config, store keystore.TemplateStore, clock timeutil.Clock) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if store == nil {
		return nil, errors.New("session manager requires a template store")
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Manager{
		cfg:   cfg,
		store: store,
		clock: clock,
		obs:   NoopObserver{},
		keys:  make(map[uuid.UUID]keytemplate.KeyTemplate),
	}, nil
}

// SetObserver installs o for sessions started afterwards. nil restores
// the no-op observer.
func (m *Manager) SetObserver(o Observer) {
	if o == nil {
		o = NoopObserver{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = o
	o.ObserveKeyCount(len(m.keys))
}

// LoadKeys replaces the cache with every template in the store.
func (m *Manager) LoadKeys(ctx context.Context) error {
	all, err := m.store.LoadAll(ctx)
	if err != nil {
		opsf("load keys failed: %v", err)
		return fmt.Errorf("%w: load keys: %w", ErrStorageFailure, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = make(map[uuid.UUID]keytemplate.KeyTemplate, len(all))
	for _, t := range all {
		m.keys[t.ID] = t
	}
	m.obs.ObserveKeyCount(len(m.keys))
	diagf("loaded %d enrolled keys", len(all))
	return nil
}

// Keys returns the enrolled templates ordered by enrollment time.
func (m *Manager) Keys() []keytemplate.KeyTemplate {
	m.mu.Lock()
	out := make([]keytemplate.KeyTemplate, 0, len(m.keys))
	for _, t := range m.keys {
		out = append(out, t.Clone())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].EnrolledAt.Before(out[j].EnrolledAt)
	})
	return out
}

// Key returns one enrolled template from the cache.
func (m *Manager) Key(id uuid.UUID) (keytemplate.KeyTemplate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.keys[id]
	if !ok {
		return keytemplate.KeyTemplate{}, false
	}
	return t.Clone(), true
}

// activeLocked reports which session, if any, is still running.
func (m *Manager) activeLocked() string {
	if m.enrollment != nil && m.enrollment.Active() {
		return "enrollment"
	}
	if m.verification != nil && m.verification.Active() {
		return "verification"
	}
	return ""
}

// StartEnrollment begins a new enrollment. It fails with ErrSessionActive
// while any session is running.
func (m *Manager) StartEnrollment(initialROI *pointcloud.ROI, h ProgressHandler) (*EnrollmentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if active := m.activeLocked(); active != "" {
		return nil, fmt.Errorf("%w: %s in progress", ErrSessionActive, active)
	}

	s := NewEnrollmentSession(m.cfg, m.clock)
	obs := m.obs
	s.OnProgress(func(p EnrollmentProgress) {
		obs.ObserveEnrollmentFrame(p)
		if h != nil {
			h(p)
		}
	})
	if err := s.Start(initialROI); err != nil {
		return nil, err
	}
	m.enrollment = s
	return s, nil
}

// CompleteEnrollment finishes the current enrollment and saves the
// template. On a store failure it returns ErrStorageFailure, the session
// keeps capturing and the key is not cached, so the caller may retry.
func (m *Manager) CompleteEnrollment(ctx context.Context) (keytemplate.KeyTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrollment == nil {
		return keytemplate.KeyTemplate{}, fmt.Errorf("%w: no enrollment in progress", ErrInvalidState)
	}

	tmpl, err := m.enrollment.CompleteWith(func(t keytemplate.KeyTemplate) error {
		if err := m.store.Save(ctx, t); err != nil {
			opsf("save template %s failed: %v", t.ID, err)
			return fmt.Errorf("%w: save template %s: %w", ErrStorageFailure, t.ID, err)
		}
		return nil
	})
	if err != nil {
		return keytemplate.KeyTemplate{}, err
	}

	m.keys[tmpl.ID] = tmpl.Clone()
	m.enrollment = nil
	m.obs.ObserveKeyCount(len(m.keys))
	diagf("key enrolled: id=%s vectors=%d", tmpl.ID, len(tmpl.FeatureVectors))
	return tmpl, nil
}

// AbortEnrollment aborts the current enrollment, if any. Idempotent.
func (m *Manager) AbortEnrollment() {
	m.mu.Lock()
	s := m.enrollment
	m.enrollment = nil
	m.mu.Unlock()
	if s != nil {
		s.Abort()
	}
}

// StartVerification begins verifying against the enrolled key id. The
// template comes from the cache, falling back to the store.
func (m *Manager) StartVerification(ctx context.Context, id uuid.UUID, h ResultHandler) (*VerificationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if active := m.activeLocked(); active != "" {
		return nil, fmt.Errorf("%w: %s in progress", ErrSessionActive, active)
	}

	tmpl, ok := m.keys[id]
	if !ok {
		loaded, err := m.store.Load(ctx, id)
		switch {
		case errors.Is(err, keystore.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
		case err != nil:
			opsf("load template %s failed: %v", id, err)
			return nil, fmt.Errorf("%w: load template %s: %w", ErrStorageFailure, id, err)
		}
		tmpl = loaded
		m.keys[id] = loaded
		m.obs.ObserveKeyCount(len(m.keys))
	}

	s := NewVerificationSession(m.cfg)
	obs := m.obs
	s.OnResult(func(r ScanResult) {
		obs.ObserveScanResult(r)
		if h != nil {
			h(r)
		}
	})
	if err := s.Start(tmpl); err != nil {
		return nil, err
	}
	m.verification = s
	return s, nil
}

// StopVerification stops the current verification, if any. Idempotent.
func (m *Manager) StopVerification() {
	m.mu.Lock()
	s := m.verification
	m.verification = nil
	m.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// RemoveKey deletes an enrolled key from the store and then the cache.
// Unknown ids return ErrKeyNotFound; store errors return
// ErrStorageFailure and leave the cache untouched. A key that is being
// verified cannot be removed.
func (m *Manager) RemoveKey(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verification != nil {
		if target, ok := m.verification.Target(); ok && target.ID == id {
			return fmt.Errorf("%w: key %s is being verified", ErrSessionActive, id)
		}
	}

	if err := m.store.Delete(ctx, id); err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			delete(m.keys, id)
			m.obs.ObserveKeyCount(len(m.keys))
			return fmt.Errorf("%w: %s", ErrKeyNotFound, id)
		}
		opsf("delete template %s failed: %v", id, err)
		return fmt.Errorf("%w: delete template %s: %w", ErrStorageFailure, id, err)
	}
	delete(m.keys, id)
	m.obs.ObserveKeyCount(len(m.keys))
	diagf("key removed: id=%s", id)
	return nil
}
