package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"tradejournal/internal/domain/therapy"
	"tradejournal/pkg/errors"
)

var _ therapy.Repository = (*TherapyRepository)(nil)

// TherapyRepository stores transcripts as a JSON array per session
type TherapyRepository struct {
	db DBTX
}

// NewTherapyRepository creates a new therapy session repository
func NewTherapyRepository(db DBTX) *TherapyRepository {
	return &TherapyRepository{db: db}
}

// Create inserts a new session
func (r *TherapyRepository) Create(ctx context.Context, s *therapy.Session) error {
	content, err := marshalContent(s.Content)
	if err != nil {
		return err
	}

	query := `INSERT INTO therapy_sessions (id, user_id, content, created_at) VALUES ($1, $2, $3, $4)`
	_, err = r.db.ExecContext(ctx, query, s.ID, s.UserID, content, s.CreatedAt)
	return mapError(err, "therapy session")
}

// Latest returns the newest session for a user
func (r *TherapyRepository) Latest(ctx context.Context, userID uuid.UUID) (*therapy.Session, error) {
	var (
		s       therapy.Session
		content []byte
	)

	query := `
		SELECT id, user_id, content, created_at
		FROM therapy_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.ID, &s.UserID, &content, &s.CreatedAt)
	if err != nil {
		return nil, mapError(err, "therapy session")
	}

	if err := json.Unmarshal(content, &s.Content); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal therapy content")
	}
	return &s, nil
}

// SaveContent overwrites the transcript
func (r *TherapyRepository) SaveContent(ctx context.Context, s *therapy.Session) error {
	content, err := marshalContent(s.Content)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE therapy_sessions SET content = $2 WHERE id = $1`, s.ID, content)
	if err != nil {
		return mapError(err, "therapy session")
	}
	return expectRow(res, "therapy session")
}

func marshalContent(entries []therapy.Entry) (string, error) {
	if entries == nil {
		entries = []therapy.Entry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal therapy content")
	}
	return string(raw), nil
}
