package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/keyscan/internal/keytemplate"
)

// enrolledAtLayout is fixed-width so the enrolled_at column sorts
// chronologically as text.
const enrolledAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists templates in the key_templates table created by
// the db package migrations. The full template is kept as its JSON wire
// form so feature vectors round-trip bit-exactly.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store over an already-migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Save inserts or replaces the template with t.ID.
func (s *SQLiteStore) Save(ctx context.Context, t keytemplate.KeyTemplate) error {
	payload, err := keytemplate.Marshal(t)
	if err != nil {
		return fmt.Errorf("save template %s: %w", t.ID, err)
	}

	query := `
		INSERT INTO key_templates (
			template_id, enrolled_at, dimension, vector_count, payload_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(template_id) DO UPDATE SET
			enrolled_at = excluded.enrolled_at,
			dimension = excluded.dimension,
			vector_count = excluded.vector_count,
			payload_json = excluded.payload_json
	`
	_, err = s.db.ExecContext(ctx, query,
		t.ID.String(),
		t.EnrolledAt.UTC().Format(enrolledAtLayout),
		t.Dimension(),
		len(t.FeatureVectors),
		string(payload),
		s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert template %s: %w", t.ID, err)
	}
	return nil
}

// Load retrieves a template by id.
func (s *SQLiteStore) Load(ctx context.Context, id uuid.UUID) (keytemplate.KeyTemplate, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM key_templates WHERE template_id = ?`, id.String(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return keytemplate.KeyTemplate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return keytemplate.KeyTemplate{}, fmt.Errorf("get template %s: %w", id, err)
	}

	t, err := keytemplate.Unmarshal([]byte(payload))
	if err != nil {
		return keytemplate.KeyTemplate{}, fmt.Errorf("get template %s: %w", id, err)
	}
	return t, nil
}

// LoadAll retrieves every template ordered by enrollment time.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]keytemplate.KeyTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT template_id, payload_json FROM key_templates ORDER BY enrolled_at ASC, template_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []keytemplate.KeyTemplate
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t, err := keytemplate.Unmarshal([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode template %s: %w", id, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// Delete removes a template. Unknown ids return ErrNotFound rather than
// succeeding silently.
func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM key_templates WHERE template_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
