package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// TransactionToNotionProperties maps a ledger transaction onto the columns of
// the Notion transactions database: a title, a date, a number, two selects
// and the transaction id used for idempotent re-syncs.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: richText(pageTitle(tx)),
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: notionDate(tx.Date)},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount,
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Type)},
		},
		"Transaction ID": notionapi.RichTextProperty{
			RichText: richText(tx.TransactionID),
		},
	}

	if tx.CategoryName != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.CategoryName},
		}
	}
	if tx.ToFrom != "" {
		props["Counterparty"] = notionapi.RichTextProperty{
			RichText: richText(tx.ToFrom),
		}
	}

	return props
}

// pageTitle picks the most descriptive field available so pages are not all
// titled alike.
func pageTitle(tx domain.Transaction) string {
	switch {
	case tx.Description != "":
		return tx.Description
	case tx.ToFrom != "":
		return tx.ToFrom
	default:
		return tx.CategoryName
	}
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func notionDate(t time.Time) *notionapi.Date {
	d := notionapi.Date(t)
	return &d
}
