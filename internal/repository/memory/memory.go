// Package memory holds map-backed repositories with the same contracts as the
// Postgres and Redis implementations. Values are copied on the way in and out
// so callers observe the same isolation a database gives them.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/menu_session"
	"tradejournal/internal/domain/report"
	"tradejournal/internal/domain/therapy"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/pkg/errors"
)

var (
	_ user.Repository         = (*UserRepository)(nil)
	_ trade.Repository        = (*TradeRepository)(nil)
	_ therapy.Repository      = (*TherapyRepository)(nil)
	_ report.Repository       = (*ReportRepository)(nil)
	_ conversation.Store      = (*StateStore)(nil)
	_ menu_session.Repository = (*MenuSessionRepository)(nil)
)

// UserRepository stores users by id
type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[uuid.UUID]user.User{}}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.TelegramID == u.TelegramID {
			return errors.Wrapf(errors.ErrAlreadyExists, "user telegram_id=%d", u.TelegramID)
		}
	}
	r.users[u.ID] = copyUser(*u)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.Wrap(errors.ErrNotFound, "user not found")
	}
	c := copyUser(u)
	return &c, nil
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.TelegramID == telegramID {
			c := copyUser(u)
			return &c, nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "user not found")
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return errors.Wrap(errors.ErrNotFound, "user not found")
	}
	r.users[u.ID] = copyUser(*u)
	return nil
}

func (r *UserRepository) ListRegistered(ctx context.Context) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		if u.RegistrationComplete {
			c := copyUser(u)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TelegramID < out[j].TelegramID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func copyUser(u user.User) user.User {
	if u.Phase != nil {
		p := *u.Phase
		u.Phase = &p
	}
	return u
}

// TradeRepository stores trades with a BIGSERIAL-like id sequence
type TradeRepository struct {
	mu     sync.RWMutex
	nextID int64
	trades map[int64]trade.Trade
}

func NewTradeRepository() *TradeRepository {
	return &TradeRepository{nextID: 1, trades: map[int64]trade.Trade{}}
}

func (r *TradeRepository) Create(ctx context.Context, t *trade.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	r.trades[t.ID] = copyTrade(*t)
	return nil
}

func (r *TradeRepository) GetForUser(ctx context.Context, userID uuid.UUID, id int64) (*trade.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trades[id]
	if !ok || t.UserID != userID {
		return nil, errors.Wrap(errors.ErrNotFound, "trade not found")
	}
	c := copyTrade(t)
	return &c, nil
}

func (r *TradeRepository) Update(ctx context.Context, t *trade.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.trades[t.ID]
	if !ok || existing.UserID != t.UserID {
		return errors.Wrap(errors.ErrNotFound, "trade not found")
	}
	r.trades[t.ID] = copyTrade(*t)
	return nil
}

func (r *TradeRepository) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.trades[id]
	if !ok || existing.UserID != userID {
		return errors.Wrap(errors.ErrNotFound, "trade not found")
	}
	delete(r.trades, id)
	return nil
}

func (r *TradeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]trade.Trade, error) {
	return r.filter(userID, func(trade.Trade) bool { return true }, false), nil
}

func (r *TradeRepository) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]trade.Trade, error) {
	return r.filter(userID, func(t trade.Trade) bool {
		return !t.Date.Before(from) && !t.Date.After(to)
	}, false), nil
}

func (r *TradeRepository) ListPage(ctx context.Context, userID uuid.UUID, limit, offset int) ([]trade.Trade, error) {
	all := r.filter(userID, func(trade.Trade) bool { return true }, true)
	if offset >= len(all) {
		return []trade.Trade{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *TradeRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(r.filter(userID, func(trade.Trade) bool { return true }, false)), nil
}

// Count returns the number of stored trades across all users
func (r *TradeRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trades)
}

func (r *TradeRepository) filter(userID uuid.UUID, keep func(trade.Trade) bool, newestFirst bool) []trade.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]trade.Trade, 0)
	for _, t := range r.trades {
		if t.UserID == userID && keep(t) {
			out = append(out, copyTrade(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		less := out[i].Date.Before(out[j].Date) ||
			(out[i].Date.Equal(out[j].Date) && out[i].ID < out[j].ID)
		if newestFirst {
			return !less
		}
		return less
	})
	return out
}

func copyTrade(t trade.Trade) trade.Trade {
	if t.ScreenshotID != nil {
		s := *t.ScreenshotID
		t.ScreenshotID = &s
	}
	return t
}

// TherapyRepository stores transcripts
type TherapyRepository struct {
	mu       sync.RWMutex
	sessions []therapy.Session
}

func NewTherapyRepository() *TherapyRepository {
	return &TherapyRepository{}
}

func (r *TherapyRepository) Create(ctx context.Context, s *therapy.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, copySession(*s))
	return nil
}

func (r *TherapyRepository) Latest(ctx context.Context, userID uuid.UUID) (*therapy.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *therapy.Session
	for i := range r.sessions {
		s := r.sessions[i]
		if s.UserID != userID {
			continue
		}
		if latest == nil || !s.CreatedAt.Before(latest.CreatedAt) {
			c := copySession(s)
			latest = &c
		}
	}
	if latest == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "therapy session not found")
	}
	return latest, nil
}

func (r *TherapyRepository) SaveContent(ctx context.Context, s *therapy.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].ID == s.ID {
			r.sessions[i].Content = append([]therapy.Entry(nil), s.Content...)
			return nil
		}
	}
	return errors.Wrap(errors.ErrNotFound, "therapy session not found")
}

// Sessions returns how many transcripts exist for userID
func (r *TherapyRepository) Sessions(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

func copySession(s therapy.Session) therapy.Session {
	s.Content = append([]therapy.Entry(nil), s.Content...)
	return s
}

// ReportRepository stores weekly reports keyed by user and window
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]report.WeeklyReport
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{reports: map[string]report.WeeklyReport{}}
}

func reportKey(userID uuid.UUID, start, end time.Time) string {
	return userID.String() + "|" + start.Format(trade.DateLayout) + "|" + end.Format(trade.DateLayout)
}

func (r *ReportRepository) GetByWeek(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time) (*report.WeeklyReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[reportKey(userID, weekStart, weekEnd)]
	if !ok {
		return nil, errors.Wrap(errors.ErrNotFound, "weekly report not found")
	}
	return &rep, nil
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.WeeklyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reportKey(rep.UserID, rep.WeekStart, rep.WeekEnd)
	if _, ok := r.reports[key]; ok {
		return errors.Wrap(errors.ErrAlreadyExists, "weekly report exists")
	}
	r.reports[key] = *rep
	return nil
}

// StateStore keeps conversation state as JSON, mirroring the durable backends
type StateStore struct {
	mu     sync.Mutex
	states map[uuid.UUID]storedState
	now    func() time.Time
}

type storedState struct {
	Step    string
	Payload []byte
	At      time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{states: map[uuid.UUID]storedState{}, now: time.Now}
}

func (s *StateStore) Get(ctx context.Context, userID uuid.UUID) (*conversation.State, error) {
	s.mu.Lock()
	rec, ok := s.states[userID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	step, err := conversation.ParseStep(rec.Step)
	if err != nil {
		return nil, err
	}
	var payload conversation.Payload
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, errors.Wrap(errors.ErrMalformedState, err.Error())
		}
	}
	return &conversation.State{UserID: userID, Step: step, Payload: payload, UpdatedAt: rec.At}, nil
}

func (s *StateStore) Set(ctx context.Context, userID uuid.UUID, step conversation.Step, payload *conversation.Payload) error {
	if !step.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown step %q", step)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.states[userID]
	rec.Step = string(step)
	rec.At = s.now()
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshal state payload")
		}
		rec.Payload = raw
	}
	s.states[userID] = rec
	return nil
}

func (s *StateStore) Clear(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// PutRaw stores an arbitrary step string, bypassing validation. Tests use it
// to simulate records written by an incompatible deployment.
func (s *StateStore) PutRaw(userID uuid.UUID, step string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = storedState{Step: step, Payload: payload, At: s.now()}
}

// MenuSessionRepository stores UI sessions, ignoring TTL
type MenuSessionRepository struct {
	mu       sync.Mutex
	sessions map[int64]menu_session.Session
}

func NewMenuSessionRepository() *MenuSessionRepository {
	return &MenuSessionRepository{sessions: map[int64]menu_session.Session{}}
}

func (r *MenuSessionRepository) Get(ctx context.Context, telegramID int64) (*menu_session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[telegramID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "menu session not found for telegram_id=%d", telegramID)
	}
	return &s, nil
}

func (r *MenuSessionRepository) Save(ctx context.Context, session *menu_session.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.TelegramID] = *session
	return nil
}

func (r *MenuSessionRepository) Delete(ctx context.Context, telegramID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, telegramID)
	return nil
}
