// Package keystore persists enrolled key templates.
//
// The session layer only sees the TemplateStore capability; MemoryStore
// backs tests and dry runs, SQLiteStore backs the device database.
package keystore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/banshee-data/keyscan/internal/keytemplate"
)

// ErrNotFound is returned when no template exists for an id.
var ErrNotFound = errors.New("template not found")

// TemplateStore is the persistence capability the key manager calls at
// enrollment completion and key removal. Implementations must be safe
// for concurrent use and must return ErrNotFound (optionally wrapped)
// for unknown ids.
type TemplateStore interface {
	Save(ctx context.Context, t keytemplate.KeyTemplate) error
	Load(ctx context.Context, id uuid.UUID) (keytemplate.KeyTemplate, error)
	LoadAll(ctx context.Context) ([]keytemplate.KeyTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
