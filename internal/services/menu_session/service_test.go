package menu_session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "tradejournal/internal/domain/menu_session"
	"tradejournal/internal/repository/memory"
	"tradejournal/internal/services/menu_session"
	"tradejournal/pkg/logger"
)

func TestService_PageCursor(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMenuSessionRepository()
	svc := menu_session.NewService(repo, time.Minute, logger.NewNop())

	page, err := svc.CurrentPage(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, page, "no session starts at the first page")

	require.NoError(t, svc.SetPage(ctx, 42, 3))
	page, err = svc.CurrentPage(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	require.NoError(t, svc.SetPage(ctx, 42, -4))
	page, err = svc.CurrentPage(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, page, "cursor never drops below the first page")

	require.NoError(t, svc.Reset(ctx, 42))
	_, err = repo.Get(ctx, 42)
	assert.Error(t, err)
}

func TestService_OtherScreenIgnored(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMenuSessionRepository()
	svc := menu_session.NewService(repo, time.Minute, logger.NewNop())

	s := domain.NewSession(7, "settings")
	s.SetPage(4)
	require.NoError(t, repo.Save(ctx, s, time.Minute))

	page, err := svc.CurrentPage(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
}
