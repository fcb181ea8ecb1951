// Package keytemplate defines the enrolled key record and its wire form.
//
// A KeyTemplate is created once when enrollment completes and is never
// mutated afterwards; replacing a key means enrolling a new template.
// The JSON shape {id, enrolledDate, featureVectors} is the persistence
// contract and must stay bit-exact for existing stores.
package keytemplate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmpty is returned for a template that holds no feature vectors.
	ErrEmpty = errors.New("template has no feature vectors")
	// ErrInvalid is returned for a template that fails validation.
	ErrInvalid = errors.New("invalid template")
)

// KeyTemplate is the set of feature vectors describing one enrolled key.
type KeyTemplate struct {
	ID             uuid.UUID
	EnrolledAt     time.Time
	FeatureVectors [][]float32
}

// New builds a template with a fresh random ID, deep-copying vectors so
// the caller's buffers cannot alias the stored record.
func New(enrolledAt time.Time, vectors [][]float32) (KeyTemplate, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return KeyTemplate{}, fmt.Errorf("generate template id: %w", err)
	}
	t := KeyTemplate{
		ID:             id,
		EnrolledAt:     enrolledAt.UTC(),
		FeatureVectors: cloneVectors(vectors),
	}
	if err := t.Validate(); err != nil {
		return KeyTemplate{}, err
	}
	return t, nil
}

// Validate checks the template is non-empty, that every vector has the
// same non-zero length, and that every value is finite.
func (t KeyTemplate) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: nil id", ErrInvalid)
	}
	if len(t.FeatureVectors) == 0 {
		return ErrEmpty
	}
	dim := len(t.FeatureVectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: vector 0 is empty", ErrInvalid)
	}
	for i, v := range t.FeatureVectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrInvalid, i, len(v), dim)
		}
		for j, x := range v {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: vector %d value %d is not finite", ErrInvalid, i, j)
			}
		}
	}
	return nil
}

// Dimension returns the length of the template's vectors, or 0 when empty.
func (t KeyTemplate) Dimension() int {
	if len(t.FeatureVectors) == 0 {
		return 0
	}
	return len(t.FeatureVectors[0])
}

// Clone returns a deep copy.
func (t KeyTemplate) Clone() KeyTemplate {
	t.FeatureVectors = cloneVectors(t.FeatureVectors)
	return t
}

func cloneVectors(vectors [][]float32) [][]float32 {
	if vectors == nil {
		return nil
	}
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		out[i] = append([]float32(nil), v...)
	}
	return out
}

// wireTemplate is the persisted JSON shape.
type wireTemplate struct {
	ID             string      `json:"id"`
	EnrolledDate   string      `json:"enrolledDate"`
	FeatureVectors [][]float32 `json:"featureVectors"`
}

// MarshalJSON encodes the template with an ISO-8601 enrolledDate.
func (t KeyTemplate) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTemplate{
		ID:             t.ID.String(),
		EnrolledDate:   t.EnrolledAt.UTC().Format(time.RFC3339Nano),
		FeatureVectors: t.FeatureVectors,
	})
}

// UnmarshalJSON decodes the persisted shape.
func (t *KeyTemplate) UnmarshalJSON(data []byte) error {
	var w wireTemplate
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return fmt.Errorf("%w: id: %w", ErrInvalid, err)
	}
	at, err := time.Parse(time.RFC3339Nano, w.EnrolledDate)
	if err != nil {
		return fmt.Errorf("%w: enrolledDate: %w", ErrInvalid, err)
	}
	*t = KeyTemplate{ID: id, EnrolledAt: at.UTC(), FeatureVectors: w.FeatureVectors}
	return nil
}

// Marshal encodes t after validating it.
func Marshal(t KeyTemplate) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(t)
}

// Unmarshal decodes and validates a persisted template.
func Unmarshal(data []byte) (KeyTemplate, error) {
	var t KeyTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return KeyTemplate{}, fmt.Errorf("decode template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return KeyTemplate{}, err
	}
	return t, nil
}
