package pipeline

import (
	"context"

	"github.com/dvloznov/statement-ledger/internal/categories"
	"github.com/dvloznov/statement-ledger/internal/domain"
)

// TextExtractor turns uploaded statement bytes into plain text.
type TextExtractor interface {
	Text(filename string, data []byte) (string, error)
}

// CategoryResolver maps free-text category names to durable ids and supplies
// the whitelist handed to the extraction prompt.
type CategoryResolver interface {
	ResolveOrCreate(ctx context.Context, name, userID string) (categories.Resolution, error)
	ListForUser(ctx context.Context, userID string) ([]string, error)
}

// TransactionStore persists validated batches atomically.
type TransactionStore interface {
	InsertTransactionBatch(ctx context.Context, txs []*domain.Transaction) error
}

// Archiver stores the raw uploaded statement after a successful ingestion.
// Implementations must tolerate being handed arbitrary bytes; failures are
// logged by the pipeline, never surfaced.
type Archiver interface {
	ArchiveStatement(ctx context.Context, userID, filename string, data []byte) (string, error)
}
