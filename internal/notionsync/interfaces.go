package notionsync

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// NotionService is the slice of the Notion API the sync needs. It exists so
// the sync logic can be tested without real API calls.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePage(ctx context.Context, pageID string) error
}

// TransactionSource supplies the ledger rows to mirror into Notion.
type TransactionSource interface {
	ListAllTransactionsForUser(ctx context.Context, userID string) ([]domain.Transaction, error)
}
