// Package notionsync mirrors a user's ledger into a Notion database. The
// ledger is the source of truth: pages missing in the ledger are archived,
// pages missing in Notion are created, and the Transaction ID column makes
// repeated runs idempotent.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
)

// SyncTransactions pushes all of a user's transactions into the Notion
// database. With dryRun set it only reports what it would do.
func SyncTransactions(ctx context.Context, src TransactionSource, notion NotionService, databaseID, userID string, dryRun bool, log zerolog.Logger) error {
	log = log.With().Str("user_id", userID).Bool("dry_run", dryRun).Logger()

	transactions, err := src.ListAllTransactionsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("notionsync: list transactions: %w", err)
	}
	log.Info().Int("transactions", len(transactions)).Msg("Loaded ledger transactions")

	valid := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		valid[tx.TransactionID] = true
	}

	pages, err := queryAllPages(ctx, notion, databaseID)
	if err != nil {
		return err
	}
	log.Info().Int("pages", len(pages)).Msg("Loaded existing Notion pages")

	existing := make(map[string]bool, len(pages))
	var deleted int
	for _, page := range pages {
		txID := pageTransactionID(page)

		// Pages with no transaction id predate the current sync layout;
		// treat them as stale along with anything the ledger no longer has.
		if txID == "" || !valid[txID] {
			if dryRun {
				log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("Would archive stale page")
				deleted++
				continue
			}
			if err := notion.DeletePage(ctx, string(page.ID)); err != nil {
				log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale page")
				continue
			}
			deleted++
			continue
		}
		existing[txID] = true
	}

	var created, skipped int
	for _, tx := range transactions {
		if existing[tx.TransactionID] {
			skipped++
			continue
		}
		if dryRun {
			log.Info().Str("transaction_id", tx.TransactionID).Msg("Would create page")
			created++
			continue
		}
		if _, err := notion.CreatePage(ctx, databaseID, TransactionToNotionProperties(tx)); err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.TransactionID).Msg("Failed to create page")
			continue
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("archived", deleted).
		Int("unchanged", skipped).
		Msg("Notion sync completed")
	return nil
}

func queryAllPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("notionsync: query pages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

func pageTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties["Transaction ID"]
	if !ok {
		return ""
	}
	rich, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rich.RichText) == 0 {
		return ""
	}
	return rich.RichText[0].PlainText
}
