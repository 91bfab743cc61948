package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tradejournal/internal/domain/conversation"
	"tradejournal/pkg/errors"
)

var _ conversation.Store = (*ConversationStateRepository)(nil)

// getter is satisfied by *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// maxWatchRetries bounds optimistic-lock retries in Set
const maxWatchRetries = 3

// ConversationStateRepository keeps one JSON value per user, without expiry
type ConversationStateRepository struct {
	client *redis.Client
}

// NewConversationStateRepository creates a Redis-backed state store
func NewConversationStateRepository(client *redis.Client) *ConversationStateRepository {
	return &ConversationStateRepository{client: client}
}

type stateRecord struct {
	State     string          `json:"state"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Get returns the active state, or nil when the user is idle
func (r *ConversationStateRepository) Get(ctx context.Context, userID uuid.UUID) (*conversation.State, error) {
	rec, err := r.load(ctx, r.client, userID)
	if err != nil || rec == nil {
		return nil, err
	}

	step, err := conversation.ParseStep(rec.State)
	if err != nil {
		return nil, err
	}

	var payload conversation.Payload
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &payload); err != nil {
			return nil, errors.Wrap(errors.ErrMalformedState, err.Error())
		}
	}

	return &conversation.State{
		UserID:    userID,
		Step:      step,
		Payload:   payload,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Set upserts the step. With a nil payload the stored data is carried over
// inside a WATCH transaction so a concurrent write is never lost.
func (r *ConversationStateRepository) Set(ctx context.Context, userID uuid.UUID, step conversation.Step, payload *conversation.Payload) error {
	if !step.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown step %q", step)
	}

	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshal state payload")
		}
		data = raw
	}

	key := stateKey(userID)
	txf := func(tx *redis.Tx) error {
		rec := stateRecord{State: string(step), Data: data, UpdatedAt: time.Now().UTC()}
		if payload == nil {
			prev, err := r.load(ctx, tx, userID)
			if err != nil {
				return err
			}
			if prev != nil {
				rec.Data = prev.Data
			}
		}

		encoded, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "marshal state record")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return errors.Wrap(err, "set conversation state")
	}
	return errors.Wrap(errors.ErrUnavailable, "set conversation state: too much contention")
}

// Clear deletes the record
func (r *ConversationStateRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return errors.Wrap(err, "clear conversation state")
	}
	return nil
}

func (r *ConversationStateRepository) load(ctx context.Context, c getter, userID uuid.UUID) (*stateRecord, error) {
	raw, err := c.Get(ctx, stateKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get conversation state")
	}

	var rec stateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedState, err.Error())
	}
	return &rec, nil
}

func stateKey(userID uuid.UUID) string {
	return "user_state:" + userID.String()
}
