package dialogue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/report"
	"tradejournal/internal/domain/therapy"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/services/analytics"
	"tradejournal/internal/services/coaching"
	"tradejournal/internal/services/ledger"
	"tradejournal/internal/services/menu_session"
)

// UserService is the slice of the user service the engine drives
type UserService interface {
	GetOrCreate(ctx context.Context, telegramID int64, displayName string) (*user.User, error)
	Save(ctx context.Context, u *user.User) error
	CompleteRegistration(ctx context.Context, u *user.User) error
	ListRegistered(ctx context.Context) ([]*user.User, error)
}

// TradeService is the slice of the trade service the engine drives
type TradeService interface {
	Get(ctx context.Context, userID uuid.UUID, id int64) (*trade.Trade, error)
	List(ctx context.Context, userID uuid.UUID) ([]trade.Trade, error)
	Page(ctx context.Context, userID uuid.UUID, page int) (trade.Page, error)
}

// Ledger writes a trade change together with the balance shift it causes.
// On error neither the trade nor the user has changed.
type Ledger interface {
	Log(ctx context.Context, u *user.User, t *trade.Trade) error
	Update(ctx context.Context, u *user.User, t *trade.Trade, oldPnL decimal.Decimal) error
	Delete(ctx context.Context, u *user.User, t *trade.Trade) error
}

// Analytics serves /stats and /report
type Analytics interface {
	Stats(ctx context.Context, userID uuid.UUID) (analytics.Stats, []trade.Trade, error)
	WeeklyReport(ctx context.Context, userID uuid.UUID, now time.Time) (*report.WeeklyReport, error)
}

// Coach produces therapy replies and history summaries. It never fails.
type Coach interface {
	Reply(ctx context.Context, p coaching.Profile, transcript []therapy.Entry, input string) string
	Summary(ctx context.Context, p coaching.Profile, trades []trade.Trade) string
}

// PageCursor remembers which trade-list page a chat is looking at
type PageCursor interface {
	CurrentPage(ctx context.Context, telegramID int64) (int, error)
	SetPage(ctx context.Context, telegramID int64, page int) error
	Reset(ctx context.Context, telegramID int64) error
}

// Deliverer sends a plain message to one chat outside the current turn
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

var (
	_ Coach        = (*coaching.Coach)(nil)
	_ Analytics    = (*analytics.Service)(nil)
	_ UserService  = (*user.Service)(nil)
	_ TradeService = (*trade.Service)(nil)
	_ Ledger       = (*ledger.Service)(nil)
	_ PageCursor   = (*menu_session.Service)(nil)
)
