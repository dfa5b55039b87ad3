package services

import (
	"context"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure ListBrowser implements the interface.
var _ driving.ListBrowser = (*ListBrowser)(nil)

// ListBrowser reads the To Do lists of the signed-in account.
type ListBrowser struct {
	reader driven.TaskListReader
	tokens driving.AccessTokenSource
}

// NewListBrowser creates a list browser.
func NewListBrowser(reader driven.TaskListReader, tokens driving.AccessTokenSource) *ListBrowser {
	return &ListBrowser{reader: reader, tokens: tokens}
}

// Lists returns every task list, in the order the service reports them.
func (b *ListBrowser) Lists(ctx context.Context) ([]domain.TaskList, error) {
	token, err := b.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	lists, err := b.reader.ListTaskLists(ctx, token)
	if err != nil {
		return nil, err
	}
	logger.Debug("found %d task list(s)", len(lists))
	return lists, nil
}
