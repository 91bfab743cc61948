package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain/conversation"
	"tradejournal/pkg/errors"
)

var _ conversation.Store = (*ConversationStateRepository)(nil)

// ConversationStateRepository stores one row per user in user_states
type ConversationStateRepository struct {
	db DBTX
}

// NewConversationStateRepository creates a Postgres-backed state store
func NewConversationStateRepository(db DBTX) *ConversationStateRepository {
	return &ConversationStateRepository{db: db}
}

type stateRow struct {
	UserID    uuid.UUID `db:"user_id"`
	State     string    `db:"state"`
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Get returns the active state, or nil when the user is idle
func (r *ConversationStateRepository) Get(ctx context.Context, userID uuid.UUID) (*conversation.State, error) {
	var row stateRow
	query := `SELECT user_id, state, data, updated_at FROM user_states WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		err = mapError(err, "conversation state")
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	step, err := conversation.ParseStep(row.State)
	if err != nil {
		return nil, err
	}

	var payload conversation.Payload
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &payload); err != nil {
			return nil, errors.Wrap(errors.ErrMalformedState, err.Error())
		}
	}

	return &conversation.State{
		UserID:    row.UserID,
		Step:      step,
		Payload:   payload,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Set upserts the step. A nil payload keeps the stored data column.
func (r *ConversationStateRepository) Set(ctx context.Context, userID uuid.UUID, step conversation.Step, payload *conversation.Payload) error {
	if !step.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown step %q", step)
	}

	var data interface{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshal state payload")
		}
		data = string(raw)
	}

	query := `
		INSERT INTO user_states (user_id, state, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			state = EXCLUDED.state,
			data = COALESCE(EXCLUDED.data, user_states.data),
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, userID, string(step), data, time.Now().UTC())
	return mapError(err, "conversation state")
}

// Clear deletes the record; clearing an idle user is a no-op
func (r *ConversationStateRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_states WHERE user_id = $1`, userID)
	return mapError(err, "conversation state")
}
